package session

import (
	"context"
	"testing"

	"github.com/quietkey/dictate/internal/config"
	"github.com/quietkey/dictate/internal/outputqueue"
)

func testConfig() *config.Config {
	cfg := config.Defaults()
	cfg.Transcription.APIKey = "test-key"
	return cfg
}

func TestNew_WiresEveryComponent(t *testing.T) {
	dir := t.TempDir()
	s, err := New(testConfig(), dir)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if s.recorder == nil || s.ring == nil || s.coord == nil || s.conn == nil ||
		s.fallback == nil || s.filters == nil || s.dedup == nil ||
		s.injector == nil || s.metrics == nil || s.logger == nil || s.notifier == nil {
		t.Fatal("New() left one or more components nil")
	}
	if err := s.logger.Close(); err != nil {
		t.Fatalf("logger.Close() error = %v", err)
	}
}

func TestNew_NoAudioProcessingDisablesProcessor(t *testing.T) {
	dir := t.TempDir()
	cfg := testConfig()
	cfg.Recording.NoAudioProcessing = true
	cfg.Recording.NoiseSuppression = 3
	s, err := New(cfg, dir)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer s.logger.Close()
	if s.processor != nil {
		t.Error("expected nil processor when NoAudioProcessing is set")
	}
}

func TestNew_DefaultGainDisablesProcessor(t *testing.T) {
	dir := t.TempDir()
	cfg := testConfig()
	cfg.Recording.NoiseSuppression = 0
	cfg.Recording.Gain = 1.0
	s, err := New(cfg, dir)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer s.logger.Close()
	if s.processor != nil {
		t.Error("expected nil processor when noise suppression is off and gain is unity")
	}
}

func TestHandleEmitted_FiltersHallucination(t *testing.T) {
	dir := t.TempDir()
	s, err := New(testConfig(), dir)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer s.logger.Close()

	before := s.metrics.ContentFiltered.Load()
	s.handleEmitted(context.Background(), outputqueue.Emitted{ItemID: "a", Text: "Bye."})
	if s.metrics.ContentFiltered.Load() != before+1 {
		t.Errorf("expected ContentFiltered to increment for a pure-hallucination utterance")
	}
}
