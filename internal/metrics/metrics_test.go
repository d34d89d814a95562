package metrics

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestSummaryPercentagesZeroSafe(t *testing.T) {
	m := New()
	s := m.GetSummary()
	if s.TimeoutRatePct != 0 || s.FallbackSuccessRatePct != 0 || s.OverallSuccessRatePct != 0 {
		t.Fatalf("expected zero percentages with no attempts, got %+v", s)
	}
}

func TestSummaryPercentages(t *testing.T) {
	m := New()
	m.RealtimeTranscriptions.Add(3)
	m.Timeouts.Add(1)
	m.FallbackSuccesses.Add(1)
	s := m.GetSummary()
	if s.TimeoutRatePct != 25 {
		t.Fatalf("expected 25%% timeout rate, got %v", s.TimeoutRatePct)
	}
	if s.FallbackSuccessRatePct != 100 {
		t.Fatalf("expected 100%% fallback success rate, got %v", s.FallbackSuccessRatePct)
	}
}

func TestSessionLoggerWritesArtifacts(t *testing.T) {
	dir := t.TempDir()
	l, err := NewSessionLogger(dir)
	if err != nil {
		t.Fatalf("NewSessionLogger: %v", err)
	}
	defer l.Close()

	if err := l.WriteTranscript("alpha"); err != nil {
		t.Fatalf("WriteTranscript: %v", err)
	}
	if err := l.WriteTranscript("beta"); err != nil {
		t.Fatalf("WriteTranscript: %v", err)
	}
	if err := l.LogEvent("info", map[string]string{"type": "session.created"}); err != nil {
		t.Fatalf("LogEvent: %v", err)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	var sawTranscript, sawEvents bool
	for _, e := range entries {
		if strings.HasPrefix(e.Name(), "transcription_") {
			sawTranscript = true
			data, _ := os.ReadFile(filepath.Join(dir, e.Name()))
			if !strings.Contains(string(data), "alpha") || !strings.Contains(string(data), "beta") {
				t.Fatalf("transcript file missing lines: %q", data)
			}
		}
		if strings.HasPrefix(e.Name(), "debug_events_") {
			sawEvents = true
		}
	}
	if !sawTranscript || !sawEvents {
		t.Fatalf("expected both transcript and event files, got %v", entries)
	}
}

func TestReconnectPreservesTranscriptFile(t *testing.T) {
	// Mirrors scenario S6: reconnecting must not touch files already on disk.
	dir := t.TempDir()
	l, err := NewSessionLogger(dir)
	if err != nil {
		t.Fatal(err)
	}
	l.WriteTranscript("alpha")
	l.WriteTranscript("beta") // simulating post-reconnect emission into the same file
	l.Close()

	entries, _ := os.ReadDir(dir)
	count := 0
	for _, e := range entries {
		if strings.HasPrefix(e.Name(), "transcription_") {
			count++
		}
	}
	if count != 1 {
		t.Fatalf("expected exactly one transcript file across reconnect, got %d", count)
	}
}
