package outputqueue

import (
	"testing"
	"time"
)

func drain(t *testing.T, c *Coordinator, n int) []Emitted {
	t.Helper()
	var out []Emitted
	for i := 0; i < n; i++ {
		select {
		case e := <-c.Emit():
			out = append(out, e)
		case <-time.After(time.Second):
			t.Fatalf("timed out waiting for emission %d/%d", i+1, n)
		}
	}
	return out
}

// TestOrderedEmission mirrors scenario S1: B completes before A, but A was
// created first, so A must still be emitted first.
func TestOrderedEmission(t *testing.T) {
	c := New(4)
	c.OnItemCreated("A")
	c.OnSpeechStarted("A", 0)
	c.OnSpeechStopped("A", 900)
	c.OnItemCreated("B")
	c.OnSpeechStarted("B", 1200)
	c.Complete("B", "world")
	c.OnSpeechStopped("B", 2100)
	c.Complete("A", "hello")

	got := drain(t, c, 2)
	if got[0].Text != "hello" || got[1].Text != "world" {
		t.Fatalf("expected hello then world, got %+v", got)
	}
}

func TestCompleteTwiceRaces(t *testing.T) {
	c := New(4)
	c.OnItemCreated("A")
	if raced := c.Complete("A", "first"); raced {
		t.Fatal("first completion should not race")
	}
	if raced := c.Complete("A", "second"); !raced {
		t.Fatal("second completion should be discarded as a race")
	}
	got := drain(t, c, 1)
	if got[0].Text != "first" {
		t.Fatalf("expected first completion to win, got %q", got[0].Text)
	}
}

func TestUnknownItemEmitsImmediately(t *testing.T) {
	c := New(4)
	c.Complete("ghost", "surprise")
	got := drain(t, c, 1)
	if got[0].ItemID != "ghost" {
		t.Fatalf("expected bypass emission for unknown item, got %+v", got[0])
	}
}

func TestTimedOutOnlyFiresOnce(t *testing.T) {
	c := New(4)
	c.OnItemCreated("A")
	c.OnSpeechStarted("A", 0)
	c.OnSpeechStopped("A", 500)
	// backdate stopped_at so it reads as timed out
	c.mu.Lock()
	c.utterances["A"].StoppedAt = time.Now().Add(-3 * time.Second)
	c.mu.Unlock()

	first := c.TimedOut(2500 * time.Millisecond)
	if len(first) != 1 {
		t.Fatalf("expected one timed-out item, got %d", len(first))
	}
	second := c.TimedOut(2500 * time.Millisecond)
	if len(second) != 0 {
		t.Fatalf("expected no re-fire on second tick, got %d", len(second))
	}
}

func TestResetClearsOrdering(t *testing.T) {
	c := New(4)
	c.OnItemCreated("A")
	c.Reset()
	c.OnItemCreated("B")
	c.mu.Lock()
	seq := c.utterances["B"].CreatedSeq
	c.mu.Unlock()
	if seq != 0 {
		t.Fatalf("expected seq reset to 0 for new session, got %d", seq)
	}
}
