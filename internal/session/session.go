// Package session wires the audio, realtime, fallback, filter, injection,
// and metrics packages together into one dictation run: it owns the
// goroutines that move audio in, transcripts out, and drives the timeout
// and metrics tickers.
package session

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/quietkey/dictate/internal/audio"
	"github.com/quietkey/dictate/internal/audioproc"
	"github.com/quietkey/dictate/internal/config"
	"github.com/quietkey/dictate/internal/fallback"
	"github.com/quietkey/dictate/internal/filter"
	"github.com/quietkey/dictate/internal/injection"
	"github.com/quietkey/dictate/internal/metrics"
	"github.com/quietkey/dictate/internal/notify"
	"github.com/quietkey/dictate/internal/outputqueue"
	"github.com/quietkey/dictate/internal/realtime"
	"github.com/quietkey/dictate/internal/ring"
)

const (
	fallbackTimeout  = 2500 * time.Millisecond
	timeoutTickEvery = 1 * time.Second
	fallbackDeadline = 10 * time.Second
	ringMaxAge       = 10 * time.Minute
)

// Session owns one dictation run: a realtime connection, its audio
// pipeline, and the downstream filter/injection/metrics stages.
type Session struct {
	cfg *config.Config

	recorder  *audio.Recorder
	processor *audioproc.Processor
	ring      *ring.Ring
	coord     *outputqueue.Coordinator
	conn      *realtime.Manager
	fallback  *fallback.Client
	filters   *filter.FilterSet
	dedup     *filter.DedupWindow
	injector  *injection.Injector
	metrics   *metrics.Metrics
	logger    *metrics.SessionLogger
	notifier  notify.Notifier

	wg     sync.WaitGroup
	cancel context.CancelFunc
}

// New builds a Session from cfg. logDir is where the transcript, event
// log, and metrics summary are written.
func New(cfg *config.Config, logDir string) (*Session, error) {
	logger, err := metrics.NewSessionLogger(logDir)
	if err != nil {
		return nil, fmt.Errorf("session logger: %w", err)
	}

	m := metrics.New()
	r := ring.New(ringMaxAge)
	coord := outputqueue.New(cfg.Recording.ChannelBufferSize)

	conn := realtime.New(realtime.Config{
		APIKey:   cfg.Transcription.APIKey,
		Model:    realtime.Model(cfg.Transcription.Model),
		Language: cfg.Transcription.Language,
	}, coord, r, m, func(level string, payload any) {
		if err := logger.LogEvent(level, payload); err != nil {
			log.Printf("session: failed to log event: %v", err)
		}
	})

	var proc *audioproc.Processor
	procCfg := audioproc.Config{NoiseSuppression: cfg.Recording.NoiseSuppression, Gain: cfg.Recording.Gain}
	if !cfg.Recording.NoAudioProcessing && procCfg.Enabled() {
		proc = audioproc.New(procCfg, audioproc.NopSuppressor{})
	}

	s := &Session{
		cfg:       cfg,
		recorder:  audio.NewRecorder(audio.Config{Device: cfg.Recording.Device, ChannelBufferSize: cfg.Recording.ChannelBufferSize}),
		processor: proc,
		ring:      r,
		coord:     coord,
		conn:      conn,
		fallback:  fallback.NewClient(cfg.Transcription.APIKey),
		filters: filter.NewFilterSet(cfg.Logging.FilterPath, filter.Options{
			DisableHallucinations: cfg.Transcription.AllowByeThankYou,
			DisableFillers:        cfg.Transcription.AllowFillers,
			DisableNonASCII:       cfg.Transcription.AllowNonASCII,
		}),
		dedup: filter.NewDedupWindow(),
		injector: injection.New(injection.Config{
			Default:          cfg.Injection.Default,
			RulesPath:        cfg.Injection.RulesPath,
			WtypeTimeout:     time.Duration(cfg.Injection.WtypeTimeoutMs) * time.Millisecond,
			YdotoolTimeout:   time.Duration(cfg.Injection.YdotoolTimeoutMs) * time.Millisecond,
			ClipboardTimeout: time.Duration(cfg.Injection.ClipboardTimeout) * time.Millisecond,
			RestoreClipboard: cfg.Injection.RestoreClipboard,
		}),
		metrics:  m,
		logger:   logger,
		notifier: notify.New(cfg.Notifications.Type),
	}
	return s, nil
}

// Run starts every goroutine and blocks until ctx is cancelled or a fatal
// audio/connection error occurs.
func (s *Session) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	defer cancel()

	s.metrics.Start(func(line string) { log.Print(line) })
	defer s.metrics.Stop()

	if err := s.conn.Start(ctx); err != nil {
		return fmt.Errorf("start realtime session: %w", err)
	}
	defer s.conn.Close()

	frames, audioErrs, err := s.recorder.Start(ctx)
	if err != nil {
		return fmt.Errorf("start recorder: %w", err)
	}
	defer s.recorder.Stop()
	s.notifier.RecordingChanged(true)
	defer s.notifier.RecordingChanged(false)

	s.wg.Add(4)
	go s.captureLoop(ctx, frames, audioErrs)
	go s.timeoutLoop(ctx)
	go s.emitLoop(ctx)
	go s.partialLoop(ctx)

	<-ctx.Done()
	s.wg.Wait()

	if err := s.logger.WriteMetricsSummary(s.metrics); err != nil {
		log.Printf("session: failed to write metrics summary: %v", err)
	}
	return s.logger.Close()
}

// Stop requests an orderly shutdown; Run returns once the capture,
// timeout, emit and partial-display goroutines have exited. Fallback
// requests still in flight are not waited for.
func (s *Session) Stop() {
	if s.cancel != nil {
		s.cancel()
	}
}

// captureLoop reads frames off the recorder, optionally runs them through
// the audio processor, appends the result to the ring, and forwards it to
// the realtime connection. Each send is synchronous, so a slow connection
// delays this loop; the recorder then drops frames once its own channel
// is full.
func (s *Session) captureLoop(ctx context.Context, frames <-chan audio.Frame, audioErrs <-chan error) {
	defer s.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case err, ok := <-audioErrs:
			if !ok {
				return
			}
			log.Printf("session: audio error: %v", err)
			s.cancel()
			return
		case f, ok := <-frames:
			if !ok {
				return
			}
			pcm := f.PCM
			if s.processor != nil {
				pcm = s.processor.Process(pcm)
				if len(pcm) == 0 {
					continue
				}
			}
			s.ring.Append(f.SessionMs, pcm)
			if err := s.conn.SendFrame(pcm); err != nil {
				log.Printf("session: send frame: %v", err)
			}
		}
	}
}

// timeoutLoop wakes every timeoutTickEvery and fallback-transcribes any
// utterance that has been silent for fallbackTimeout without completing.
func (s *Session) timeoutLoop(ctx context.Context) {
	defer s.wg.Done()
	ticker := time.NewTicker(timeoutTickEvery)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			for _, snap := range s.coord.TimedOut(fallbackTimeout) {
				s.metrics.Timeouts.Add(1)
				go s.runFallback(ctx, snap)
			}
		}
	}
}

func (s *Session) runFallback(ctx context.Context, snap outputqueue.Snapshot) {
	if fallback.SegmentTooShort(snap.SpeechStartMs, snap.SpeechEndMs) {
		s.metrics.ShortSegmentsSkipped.Add(1)
		s.coord.Complete(snap.ItemID, "")
		return
	}

	source := func(lo, hi uint32) []fallback.Frame {
		chunks := s.ring.ChunksInRange(lo, hi)
		out := make([]fallback.Frame, len(chunks))
		for i, c := range chunks {
			out[i] = fallback.Frame{SessionMs: c.SessionMs, PCM: c.PCM}
		}
		return out
	}

	text, err := fallback.Transcribe(ctx, s.fallback, source, snap.SpeechStartMs, snap.SpeechEndMs, fallbackDeadline)
	if err != nil {
		if time.Duration(snap.SpeechEndMs-snap.SpeechStartMs)*time.Millisecond < time.Second {
			s.metrics.FallbackFailuresShort.Add(1)
		} else {
			s.metrics.FallbackFailuresLong.Add(1)
		}
		log.Printf("session: fallback transcription failed for %s: %v", snap.ItemID, err)
		text = ""
	} else {
		s.metrics.FallbackSuccesses.Add(1)
	}

	if raced := s.coord.Complete(snap.ItemID, text); raced {
		s.metrics.FallbackRaces.Add(1)
	}
}

// emitLoop drains the output queue in speech order, filters and dedups
// each transcript, logs it, and injects it into the focused window.
func (s *Session) emitLoop(ctx context.Context) {
	defer s.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case e, ok := <-s.coord.Emit():
			if !ok {
				return
			}
			s.handleEmitted(ctx, e)
		}
	}
}

func (s *Session) handleEmitted(ctx context.Context, e outputqueue.Emitted) {
	text := s.filters.Filter(e.Text)
	if text == "" {
		s.metrics.ContentFiltered.Add(1)
		return
	}
	if s.dedup.CheckAndRecord(text) {
		s.metrics.DuplicatesFiltered.Add(1)
		return
	}

	if err := s.logger.WriteTranscript(text); err != nil {
		log.Printf("session: failed to write transcript: %v", err)
	}

	if !s.injector.Inject(ctx, text) {
		s.notifier.Error("failed to inject transcribed text")
	}
}

// partialLoop forwards best-effort display deltas; it never drives
// injection and is safe to drop under backpressure.
func (s *Session) partialLoop(ctx context.Context) {
	defer s.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case p, ok := <-s.conn.Partial():
			if !ok {
				return
			}
			_ = p // display-only; no terminal UI wired in yet
		}
	}
}
