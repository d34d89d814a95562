// Package realtime opens and maintains the bidirectional realtime
// transcription session: it classifies close reasons, reconnects with
// exponential backoff, and dispatches inbound events to the utterance
// tracker and output queue.
package realtime

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/quietkey/dictate/internal/metrics"
	"github.com/quietkey/dictate/internal/outputqueue"
)

const (
	defaultURL      = "wss://api.openai.com/v1/realtime?intent=transcription"
	pingInterval    = 20 * time.Second
	pongWait        = 10 * time.Second
	reconnectBase   = 1 * time.Second
	reconnectCap    = 30 * time.Second
	maxReconnectN   = 10
)

// Model is the transcription model requested in transcription_session.update.
type Model string

const (
	ModelWhisper1           Model = "whisper-1"
	ModelGPT4oTranscribe    Model = "gpt-4o-transcribe"
	ModelGPT4oMiniTranscribe Model = "gpt-4o-mini-transcribe"
)

// Config configures the Manager.
type Config struct {
	URL      string // defaults to defaultURL
	APIKey   string
	Model    Model
	Language string
}

// PartialTranscript is a best-effort, unordered display-only delta; it must
// never be used to drive text injection.
type PartialTranscript struct {
	ItemID string
	Delta  string
}

// Manager owns the websocket connection and the reconnect state machine.
type Manager struct {
	cfg      Config
	coord    *outputqueue.Coordinator
	ring     ringAppender
	metrics  *metrics.Metrics
	eventLog func(level string, payload any)

	mu           sync.Mutex
	conn         *websocket.Conn
	reconnectN   int
	closedByUser bool

	partial chan PartialTranscript

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// ringAppender is the subset of ring.Ring's API the connection manager
// needs for its own bookkeeping; the audio pipeline appends frames to the
// ring independently of this package.
type ringAppender interface {
	Reset()
}

// New constructs a Manager. coord receives routed completions; ring is
// reset on reconnect per the connection manager's reset policy.
func New(cfg Config, coord *outputqueue.Coordinator, ring ringAppender, m *metrics.Metrics, eventLog func(level string, payload any)) *Manager {
	if cfg.URL == "" {
		cfg.URL = defaultURL
	}
	return &Manager{
		cfg:      cfg,
		coord:    coord,
		ring:     ring,
		metrics:  m,
		eventLog: eventLog,
		partial:  make(chan PartialTranscript, 64),
	}
}

// Partial returns the channel of best-effort, unordered display deltas.
func (m *Manager) Partial() <-chan PartialTranscript { return m.partial }

// Start dials the session and launches the read loop and ping ticker.
func (m *Manager) Start(ctx context.Context) error {
	m.ctx, m.cancel = context.WithCancel(ctx)
	if err := m.connect(); err != nil {
		return err
	}
	m.wg.Add(2)
	go m.readLoop()
	go m.pingLoop()
	return nil
}

func (m *Manager) connect() error {
	m.metrics.ConnectionAttempts.Add(1)
	headers := http.Header{}
	headers.Set("Authorization", "Bearer "+m.cfg.APIKey)
	headers.Set("OpenAI-Beta", "realtime=v1")

	conn, resp, err := websocket.DefaultDialer.DialContext(m.ctx, m.cfg.URL, headers)
	if err != nil {
		if resp != nil {
			return fmt.Errorf("realtime dial: status %d: %w", resp.StatusCode, err)
		}
		return fmt.Errorf("realtime dial: %w", err)
	}

	m.mu.Lock()
	m.conn = conn
	m.mu.Unlock()

	if err := m.configureSession(); err != nil {
		conn.Close()
		return fmt.Errorf("configure session: %w", err)
	}

	m.metrics.ConnectionSuccesses.Add(1)
	m.reconnectN = 0
	return nil
}

type sessionUpdate struct {
	Type    string        `json:"type"`
	Session sessionConfig `json:"session"`
}

type sessionConfig struct {
	InputAudioTranscription transcriptionConfig `json:"input_audio_transcription"`
}

type transcriptionConfig struct {
	Model    string `json:"model"`
	Language string `json:"language,omitempty"`
}

func (m *Manager) configureSession() error {
	update := sessionUpdate{
		Type: "transcription_session.update",
		Session: sessionConfig{
			InputAudioTranscription: transcriptionConfig{
				Model:    string(m.cfg.Model),
				Language: m.cfg.Language,
			},
		},
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.conn.WriteJSON(update)
}

// SendFrame base64-encodes a 24kHz PCM16 frame and appends it to the
// server's input audio buffer.
func (m *Manager) SendFrame(pcm []byte) error {
	msg := struct {
		Type  string `json:"type"`
		Audio string `json:"audio"`
	}{
		Type:  "input_audio_buffer.append",
		Audio: base64.StdEncoding.EncodeToString(pcm),
	}
	m.mu.Lock()
	conn := m.conn
	m.mu.Unlock()
	if conn == nil {
		return fmt.Errorf("realtime: no active connection")
	}
	m.mu.Lock()
	err := conn.WriteJSON(msg)
	m.mu.Unlock()
	if err != nil {
		return fmt.Errorf("realtime: send frame: %w", err)
	}
	m.metrics.AudioChunksSent.Add(1)
	return nil
}

func (m *Manager) pingLoop() {
	defer m.wg.Done()
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-m.ctx.Done():
			return
		case <-ticker.C:
			m.mu.Lock()
			conn := m.conn
			m.mu.Unlock()
			if conn == nil {
				continue
			}
			_ = conn.SetWriteDeadline(time.Now().Add(pongWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				m.metrics.WebsocketErrors.Add(1)
			}
		}
	}
}

func (m *Manager) readLoop() {
	defer m.wg.Done()
	for {
		select {
		case <-m.ctx.Done():
			return
		default:
		}

		m.mu.Lock()
		conn := m.conn
		m.mu.Unlock()
		if conn == nil {
			if !m.reconnect() {
				return
			}
			continue
		}

		_, raw, err := conn.ReadMessage()
		if err != nil {
			select {
			case <-m.ctx.Done():
				return
			default:
			}
			m.classifyClose(err)
			if m.closedByUser {
				return
			}
			if !m.reconnect() {
				return
			}
			continue
		}

		var evt serverEvent
		if err := json.Unmarshal(raw, &evt); err != nil {
			log.Printf("realtime: malformed event: %v", err)
			continue
		}
		if m.eventLog != nil {
			m.eventLog("info", evt)
		}
		m.handleEvent(evt)
	}
}

// classifyClose implements the close-code policy: 1000 is terminal, 1006 or
// missing is abnormal (reconnect), anything else also reconnects.
func (m *Manager) classifyClose(err error) {
	if ce, ok := err.(*websocket.CloseError); ok {
		if ce.Code == websocket.CloseNormalClosure {
			m.closedByUser = true
			return
		}
	}
	m.metrics.WebsocketErrors.Add(1)
}

func (m *Manager) reconnect() bool {
	m.mu.Lock()
	if m.conn != nil {
		m.conn.Close()
		m.conn = nil
	}
	m.mu.Unlock()

	if m.ring != nil {
		m.ring.Reset()
	}
	m.coord.Reset()

	for m.reconnectN < maxReconnectN {
		select {
		case <-m.ctx.Done():
			return false
		default:
		}
		delay := backoffDelay(m.reconnectN + 1)
		select {
		case <-m.ctx.Done():
			return false
		case <-time.After(delay):
		}

		m.reconnectN++
		m.metrics.ReconnectionAttempts.Add(1)
		if err := m.connect(); err == nil {
			return true
		}
	}
	return false
}

// backoffDelay implements min(base * 2^(n-1), cap) for attempt n (1-indexed).
func backoffDelay(n int) time.Duration {
	d := reconnectBase * time.Duration(1<<uint(n-1))
	if d > reconnectCap {
		d = reconnectCap
	}
	return d
}

type serverEvent struct {
	Type       string     `json:"type"`
	ItemID     string     `json:"item_id,omitempty"`
	Item       *item      `json:"item,omitempty"`
	AudioStart *int       `json:"audio_start_ms,omitempty"`
	AudioEnd   *int       `json:"audio_end_ms,omitempty"`
	Delta      string     `json:"delta,omitempty"`
	Transcript string     `json:"transcript,omitempty"`
	Error      *eventErr  `json:"error,omitempty"`
}

type item struct {
	ID string `json:"id"`
}

type eventErr struct {
	Code    string `json:"code,omitempty"`
	Message string `json:"message,omitempty"`
}

func (m *Manager) handleEvent(evt serverEvent) {
	switch evt.Type {
	case "session.created", "session.updated":
		// informational

	case "conversation.item.created":
		if evt.Item != nil {
			m.coord.OnItemCreated(evt.Item.ID)
		}

	case "input_audio_buffer.speech_started":
		if evt.AudioStart != nil {
			m.coord.OnSpeechStarted(evt.ItemID, uint32(*evt.AudioStart))
		}

	case "input_audio_buffer.speech_stopped":
		if evt.AudioEnd != nil {
			m.coord.OnSpeechStopped(evt.ItemID, uint32(*evt.AudioEnd))
		} else {
			m.coord.OnSpeechStopped(evt.ItemID, 0)
		}

	case "conversation.item.input_audio_transcription.delta", "response.audio_transcript.delta":
		if evt.Delta != "" {
			select {
			case m.partial <- PartialTranscript{ItemID: evt.ItemID, Delta: evt.Delta}:
			default:
			}
		}

	case "conversation.item.input_audio_transcription.completed", "response.audio_transcript.done":
		m.metrics.RealtimeTranscriptions.Add(1)
		m.coord.Complete(evt.ItemID, evt.Transcript)

	case "error":
		if evt.Error != nil {
			m.metrics.APIErrors.Add(1)
			if evt.Error.Code == "session_expired" {
				m.metrics.SessionExpirations.Add(1)
				m.mu.Lock()
				conn := m.conn
				m.conn = nil
				m.mu.Unlock()
				if conn != nil {
					conn.Close()
				}
			}
		}

	default:
		// unknown event types are logged by the caller via eventLog and
		// otherwise ignored; the router is exhaustive only on known variants.
	}
}

// Close shuts down the connection manager, sending a normal close frame.
func (m *Manager) Close() error {
	if m.cancel == nil {
		return nil
	}
	m.closedByUser = true
	m.cancel()

	m.mu.Lock()
	conn := m.conn
	m.mu.Unlock()
	if conn != nil {
		_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		conn.Close()
	}
	m.wg.Wait()
	return nil
}
