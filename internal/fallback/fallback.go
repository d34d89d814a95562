// Package fallback implements the fallback transcriber: on a timed-out
// utterance it slices the timestamped audio ring by a best-offset search,
// encodes a canonical WAV, and submits it to the one-shot transcription
// endpoint.
package fallback

import (
	"bytes"
	"context"
	"fmt"
	"log"
	"time"

	"github.com/sashabaranov/go-openai"
)

const (
	minSegmentMs    = 300
	offsetMarginMs  = 200
	offsetStepMs    = 20
	durationWarnMs  = 500
	msPerFrame      = 1024.0 / 24000.0 * 1000.0 // ≈42.667ms per 1024-sample frame
)

// Frame mirrors the subset of ring.Frame this package needs, so fallback
// does not import ring directly and stays testable with plain slices.
type Frame struct {
	SessionMs uint32
	PCM       []byte
}

// Client performs the one-shot transcription call.
type Client struct {
	api *openai.Client
}

// NewClient wraps an OpenAI-compatible API key for whisper-1 transcriptions.
func NewClient(apiKey string) *Client {
	return &Client{api: openai.NewClient(apiKey)}
}

// Transcribe submits WAV bytes to whisper-1 and returns the transcript, or
// an error. An empty wav returns ("", nil) without an API call.
func (c *Client) Transcribe(ctx context.Context, wav []byte) (string, error) {
	if len(wav) == 0 {
		return "", nil
	}
	req := openai.AudioRequest{
		Model:    "whisper-1",
		Reader:   bytes.NewReader(wav),
		FilePath: "audio.wav",
	}
	resp, err := c.api.CreateTranscription(ctx, req)
	if err != nil {
		return "", fmt.Errorf("fallback transcription: %w", err)
	}
	return resp.Text, nil
}

// BestOffsetResult is the outcome of the search in ExtractBestSegment.
type BestOffsetResult struct {
	PCM          []byte
	OffsetMs     int
	DurationErrMs float64
}

// ExtractBestSegment searches offsets in [-M, +M] (20ms steps) applied to
// [startMs, endMs], picking the offset whose resulting frame-derived
// duration is closest to the expected (endMs - startMs). Never returns an
// empty PCM slice when any frame exists in [startMs-M, endMs+M].
func ExtractBestSegment(source func(lo, hi uint32) []Frame, startMs, endMs uint32) (BestOffsetResult, bool) {
	expected := float64(endMs) - float64(startMs)
	var best BestOffsetResult
	found := false
	bestErr := -1.0

	for offset := -offsetMarginMs; offset <= offsetMarginMs; offset += offsetStepMs {
		lo := clampOffset(startMs, offset)
		hi := clampOffset(endMs, offset)
		frames := source(lo, hi)
		if len(frames) == 0 {
			continue
		}
		actual := float64(len(frames)) * msPerFrame
		errMs := actual - expected
		if errMs < 0 {
			errMs = -errMs
		}
		if !found || errMs < bestErr {
			found = true
			bestErr = errMs
			best = BestOffsetResult{PCM: concatPCM(frames), OffsetMs: offset, DurationErrMs: errMs}
		}
	}

	if found && bestErr > durationWarnMs {
		log.Printf("fallback: best-offset duration error %.0fms exceeds %dms, proceeding anyway", bestErr, durationWarnMs)
	}
	return best, found
}

func clampOffset(ms uint32, offset int) uint32 {
	v := int64(ms) + int64(offset)
	if v < 0 {
		return 0
	}
	return uint32(v)
}

func concatPCM(frames []Frame) []byte {
	var out []byte
	for _, f := range frames {
		out = append(out, f.PCM...)
	}
	return out
}

// SegmentTooShort reports whether [startMs, endMs) is empty, inverted, or
// below the minimum segment duration worth fallback-transcribing.
func SegmentTooShort(startMs, endMs uint32) bool {
	return endMs <= startMs || endMs-startMs < minSegmentMs
}

// Transcribe runs the full fallback pipeline for one item: duration check,
// best-offset extraction, WAV encoding, and the API call. deadline bounds
// the HTTP request.
func Transcribe(ctx context.Context, client *Client, source func(lo, hi uint32) []Frame, startMs, endMs uint32, deadline time.Duration) (string, error) {
	if SegmentTooShort(startMs, endMs) {
		return "", nil
	}
	seg, ok := ExtractBestSegment(source, startMs, endMs)
	if !ok {
		return "", nil
	}
	wav := EncodeWAV(seg.PCM)

	callCtx := ctx
	var cancel context.CancelFunc
	if deadline > 0 {
		callCtx, cancel = context.WithTimeout(ctx, deadline)
		defer cancel()
	}
	return client.Transcribe(callCtx, wav)
}
