package realtime

import (
	"testing"
	"time"

	"github.com/quietkey/dictate/internal/metrics"
	"github.com/quietkey/dictate/internal/outputqueue"
)

func TestBackoffDelaySchedule(t *testing.T) {
	cases := []struct {
		n    int
		want time.Duration
	}{
		{1, 1 * time.Second},
		{2, 2 * time.Second},
		{3, 4 * time.Second},
		{6, 30 * time.Second}, // 32s capped at 30s
		{10, 30 * time.Second},
	}
	for _, c := range cases {
		if got := backoffDelay(c.n); got != c.want {
			t.Errorf("backoffDelay(%d) = %v, want %v", c.n, got, c.want)
		}
	}
}

type noopRing struct{ resetCalls int }

func (r *noopRing) Reset() { r.resetCalls++ }

func TestHandleEventRoutesCompletionToCoordinator(t *testing.T) {
	coord := outputqueue.New(4)
	m := metrics.New()
	mgr := New(Config{APIKey: "x", Model: ModelWhisper1}, coord, &noopRing{}, m, nil)

	mgr.handleEvent(serverEvent{Type: "conversation.item.created", Item: &item{ID: "A"}})
	mgr.handleEvent(serverEvent{Type: "input_audio_buffer.speech_started", ItemID: "A", AudioStart: intPtr(0)})
	mgr.handleEvent(serverEvent{Type: "input_audio_buffer.speech_stopped", ItemID: "A", AudioEnd: intPtr(900)})
	mgr.handleEvent(serverEvent{Type: "conversation.item.input_audio_transcription.completed", ItemID: "A", Transcript: "hello"})

	select {
	case e := <-coord.Emit():
		if e.Text != "hello" {
			t.Fatalf("expected hello, got %q", e.Text)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for emission")
	}
	if m.RealtimeTranscriptions.Load() != 1 {
		t.Fatalf("expected 1 realtime transcription counted, got %d", m.RealtimeTranscriptions.Load())
	}
}

func TestHandleEventSessionExpiredRecordsExpiration(t *testing.T) {
	coord := outputqueue.New(4)
	m := metrics.New()
	mgr := New(Config{APIKey: "x"}, coord, &noopRing{}, m, nil)
	mgr.handleEvent(serverEvent{Type: "error", Error: &eventErr{Code: "session_expired", Message: "expired"}})
	if m.SessionExpirations.Load() != 1 {
		t.Fatalf("expected session expiration recorded, got %d", m.SessionExpirations.Load())
	}
}

func intPtr(v int) *int { return &v }
