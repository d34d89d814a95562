package ring

import (
	"testing"
	"time"
)

func TestChunksInRangeInclusive(t *testing.T) {
	r := New(time.Minute)
	r.Append(0, []byte{0})
	r.Append(100, []byte{1})
	r.Append(200, []byte{2})
	r.Append(300, []byte{3})

	got := r.ChunksInRange(100, 200)
	if len(got) != 2 {
		t.Fatalf("expected 2 frames in [100,200], got %d", len(got))
	}
	if got[0].SessionMs != 100 || got[1].SessionMs != 200 {
		t.Fatalf("unexpected frames: %+v", got)
	}
}

func TestChunksInRangeNeverEmptyWhenFramesExist(t *testing.T) {
	r := New(time.Minute)
	for ms := uint32(0); ms <= 1000; ms += 50 {
		r.Append(ms, []byte{byte(ms)})
	}
	got := r.ChunksInRange(400-200, 600+200)
	if len(got) == 0 {
		t.Fatal("expected non-empty result when frames exist in range")
	}
}

func TestResetClearsFrames(t *testing.T) {
	r := New(time.Minute)
	r.Append(0, []byte{0})
	r.Reset()
	if r.Len() != 0 {
		t.Fatalf("expected empty ring after reset, got %d", r.Len())
	}
}

func TestAgeBasedTrim(t *testing.T) {
	r := New(10 * time.Millisecond)
	fake := time.Now()
	r.nowFunc = func() time.Time { return fake }
	r.Append(0, []byte{0})
	fake = fake.Add(50 * time.Millisecond)
	r.Append(100, []byte{1})
	if r.Len() != 1 {
		t.Fatalf("expected old frame trimmed, got len=%d", r.Len())
	}
}
