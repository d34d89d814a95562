// Package metrics tracks counters for a transcription session and writes
// the transcript file, structured event log, and periodic/summary reports.
package metrics

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"
)

// Metrics holds the counters for one session. The zero value is ready to
// use; call Start to begin the periodic log goroutine.
type Metrics struct {
	ConnectionAttempts   atomic.Int64
	ConnectionSuccesses  atomic.Int64
	SessionExpirations   atomic.Int64
	ReconnectionAttempts atomic.Int64

	AudioChunksSent atomic.Int64

	RealtimeTranscriptions atomic.Int64
	Timeouts               atomic.Int64
	FallbackSuccesses      atomic.Int64
	FallbackFailuresShort  atomic.Int64
	FallbackFailuresLong   atomic.Int64
	FallbackRaces          atomic.Int64
	ShortSegmentsSkipped   atomic.Int64

	DuplicatesFiltered atomic.Int64
	ContentFiltered    atomic.Int64

	WebsocketErrors atomic.Int64
	APIErrors       atomic.Int64

	startedAt time.Time
	stop      chan struct{}
	stopOnce  sync.Once
	log       func(string)
}

// New returns a fresh Metrics instance.
func New() *Metrics {
	return &Metrics{stop: make(chan struct{})}
}

// Start marks the session start time and, if log is non-nil, launches a
// goroutine that logs a one-line summary every 60s until Stop is called.
func (m *Metrics) Start(log func(string)) {
	m.startedAt = time.Now()
	m.log = log
	if log != nil {
		go m.periodicLog()
	}
}

// Stop halts the periodic logging goroutine.
func (m *Metrics) Stop() {
	m.stopOnce.Do(func() { close(m.stop) })
}

func (m *Metrics) periodicLog() {
	ticker := time.NewTicker(60 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			m.log(m.oneLine())
		case <-m.stop:
			return
		}
	}
}

func (m *Metrics) duration() time.Duration {
	if m.startedAt.IsZero() {
		return 0
	}
	return time.Since(m.startedAt)
}

func (m *Metrics) oneLine() string {
	minutes := int(m.duration().Minutes())
	totalAttempts := m.RealtimeTranscriptions.Load() + m.Timeouts.Load()
	timeoutPct := percent(m.Timeouts.Load(), totalAttempts)
	return fmt.Sprintf(
		"METRICS [%dm] | realtime:%d timeouts:%d (%.1f%%) fallback_ok:%d fail_short:%d fail_long:%d races:%d | filtered:%d dupes:%d | errors: ws=%d api=%d",
		minutes,
		m.RealtimeTranscriptions.Load(), m.Timeouts.Load(), timeoutPct,
		m.FallbackSuccesses.Load(), m.FallbackFailuresShort.Load(), m.FallbackFailuresLong.Load(), m.FallbackRaces.Load(),
		m.ContentFiltered.Load(), m.DuplicatesFiltered.Load(),
		m.WebsocketErrors.Load(), m.APIErrors.Load(),
	)
}

func percent(n, total int64) float64 {
	if total == 0 {
		return 0
	}
	return 100 * float64(n) / float64(total)
}

// Summary is a point-in-time snapshot of every counter plus derived rates.
type Summary struct {
	SessionDurationSeconds float64

	ConnectionAttempts   int64
	ConnectionSuccesses  int64
	SessionExpirations   int64
	ReconnectionAttempts int64

	AudioChunksSent int64

	RealtimeTranscriptions int64
	Timeouts               int64
	FallbackSuccesses      int64
	FallbackFailuresShort  int64
	FallbackFailuresLong   int64
	FallbackRaces          int64
	ShortSegmentsSkipped   int64

	DuplicatesFiltered int64
	ContentFiltered    int64

	WebsocketErrors int64
	APIErrors       int64

	TimeoutRatePct          float64
	FallbackSuccessRatePct  float64
	OverallSuccessRatePct   float64
}

// GetSummary computes a point-in-time snapshot with the derived percentages.
func (m *Metrics) GetSummary() Summary {
	totalAttempts := m.RealtimeTranscriptions.Load() + m.Timeouts.Load()
	totalSuccess := m.RealtimeTranscriptions.Load() + m.FallbackSuccesses.Load()
	return Summary{
		SessionDurationSeconds: m.duration().Seconds(),

		ConnectionAttempts:   m.ConnectionAttempts.Load(),
		ConnectionSuccesses:  m.ConnectionSuccesses.Load(),
		SessionExpirations:   m.SessionExpirations.Load(),
		ReconnectionAttempts: m.ReconnectionAttempts.Load(),

		AudioChunksSent: m.AudioChunksSent.Load(),

		RealtimeTranscriptions: m.RealtimeTranscriptions.Load(),
		Timeouts:               m.Timeouts.Load(),
		FallbackSuccesses:      m.FallbackSuccesses.Load(),
		FallbackFailuresShort:  m.FallbackFailuresShort.Load(),
		FallbackFailuresLong:   m.FallbackFailuresLong.Load(),
		FallbackRaces:          m.FallbackRaces.Load(),
		ShortSegmentsSkipped:   m.ShortSegmentsSkipped.Load(),

		DuplicatesFiltered: m.DuplicatesFiltered.Load(),
		ContentFiltered:    m.ContentFiltered.Load(),

		WebsocketErrors: m.WebsocketErrors.Load(),
		APIErrors:       m.APIErrors.Load(),

		TimeoutRatePct:         percent(m.Timeouts.Load(), totalAttempts),
		FallbackSuccessRatePct: percent(m.FallbackSuccesses.Load(), m.Timeouts.Load()),
		OverallSuccessRatePct:  percent(totalSuccess, totalAttempts),
	}
}

// WriteSummary renders the formatted text report written on shutdown.
func (m *Metrics) WriteSummary() string {
	s := m.GetSummary()
	minutes := int(s.SessionDurationSeconds) / 60
	seconds := int(s.SessionDurationSeconds) % 60

	lines := []string{
		"==================================================",
		"TRANSCRIPTION SESSION METRICS",
		"==================================================",
		"",
		fmt.Sprintf("Session Duration: %dm %ds", minutes, seconds),
		"",
		"--- Connection ---",
		fmt.Sprintf("  Connection attempts:    %d", s.ConnectionAttempts),
		fmt.Sprintf("  Successful connections: %d", s.ConnectionSuccesses),
		fmt.Sprintf("  Session expirations:    %d", s.SessionExpirations),
		fmt.Sprintf("  Reconnection attempts:  %d", s.ReconnectionAttempts),
		"",
		"--- Transcription ---",
		fmt.Sprintf("  Realtime API success:   %d", s.RealtimeTranscriptions),
		fmt.Sprintf("  Timeouts (needed fallback): %d (%.1f%%)", s.Timeouts, s.TimeoutRatePct),
		fmt.Sprintf("  Fallback successes:     %d", s.FallbackSuccesses),
		fmt.Sprintf("  Fallback fail (<1s):    %d", s.FallbackFailuresShort),
		fmt.Sprintf("  Fallback fail (>=1s):   %d", s.FallbackFailuresLong),
		fmt.Sprintf("  Fallback races:         %d", s.FallbackRaces),
	}
	if s.Timeouts > 0 {
		lines = append(lines, fmt.Sprintf("  Fallback success rate:  %.1f%%", s.FallbackSuccessRatePct))
	}
	lines = append(lines,
		fmt.Sprintf("  Overall success rate:   %.1f%%", s.OverallSuccessRatePct),
		"",
		"--- Filtering ---",
		fmt.Sprintf("  Short segments skipped: %d", s.ShortSegmentsSkipped),
		fmt.Sprintf("  Duplicates filtered:    %d", s.DuplicatesFiltered),
		fmt.Sprintf("  Content filtered:       %d", s.ContentFiltered),
		"",
		"--- Errors ---",
		fmt.Sprintf("  WebSocket errors:       %d", s.WebsocketErrors),
		fmt.Sprintf("  API errors:             %d", s.APIErrors),
		"",
		"--- Audio ---",
		fmt.Sprintf("  Audio chunks sent:      %d", s.AudioChunksSent),
		"==================================================",
	)

	out := ""
	for _, l := range lines {
		out += l + "\n"
	}
	return out
}
