package fallback

import "testing"

func synthFrames(count int, startMs uint32) []Frame {
	frames := make([]Frame, count)
	ms := startMs
	for i := range frames {
		frames[i] = Frame{SessionMs: ms, PCM: make([]byte, 2048)}
		ms += 43 // ≈1024/24000*1000
	}
	return frames
}

func rangeSource(all []Frame) func(lo, hi uint32) []Frame {
	return func(lo, hi uint32) []Frame {
		var out []Frame
		for _, f := range all {
			if f.SessionMs >= lo && f.SessionMs <= hi {
				out = append(out, f)
			}
		}
		return out
	}
}

func TestSegmentBoundary(t *testing.T) {
	if SegmentTooShort(0, 299) != true {
		t.Fatal("299ms segment should be too short")
	}
	if SegmentTooShort(0, 300) != false {
		t.Fatal("300ms segment should not be too short")
	}
}

func TestBestOffsetNeverEmptyWhenFramesExist(t *testing.T) {
	all := synthFrames(40, 0) // covers roughly [0, 1720)ms
	_, ok := ExtractBestSegment(rangeSource(all), 400, 600)
	if !ok {
		t.Fatal("expected a non-empty result when frames exist in range")
	}
}

func TestBestOffsetPicksClosestDuration(t *testing.T) {
	all := synthFrames(60, 0)
	res, ok := ExtractBestSegment(rangeSource(all), 0, 1500)
	if !ok {
		t.Fatal("expected match")
	}
	if res.DurationErrMs > offsetMarginMs {
		t.Fatalf("expected a reasonably close match, got error %v", res.DurationErrMs)
	}
}

func TestWAVRoundTrip(t *testing.T) {
	pcm := make([]byte, 4096)
	for i := range pcm {
		pcm[i] = byte(i)
	}
	wav := EncodeWAV(pcm)
	decoded, err := DecodeWAV(wav)
	if err != nil {
		t.Fatalf("DecodeWAV: %v", err)
	}
	if len(decoded) != len(pcm) {
		t.Fatalf("expected %d bytes, got %d", len(pcm), len(decoded))
	}
	for i := range pcm {
		if decoded[i] != pcm[i] {
			t.Fatalf("byte %d mismatch: got %d want %d", i, decoded[i], pcm[i])
		}
	}
}
