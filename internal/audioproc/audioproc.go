// Package audioproc applies optional noise suppression and gain to captured
// PCM16 mono frames by resampling to 16 kHz, running fixed 10 ms chunks
// through a suppressor, applying gain, and resampling back to 24 kHz.
package audioproc

import (
	"encoding/binary"
	"math"
)

const (
	inRate    = 24000
	procRate  = 16000
	chunkSize = procRate / 100 // 10ms at 16kHz = 160 samples
)

// Suppressor processes one 10ms, 160-sample frame at 16kHz in place and
// returns the (possibly attenuated) samples. Level is 0 (off) to 4
// (strongest); implementations may ignore unsupported levels.
//
// No third-party Go noise-suppression library was available to wire here
// (see DESIGN.md); NopSuppressor is the default, passthrough implementation,
// and matches original_source/noise_reduction.py's own graceful-degradation
// path when its native suppressor is unavailable.
type Suppressor interface {
	Process10ms(level int, samples []int16) []int16
}

// NopSuppressor returns its input unchanged.
type NopSuppressor struct{}

func (NopSuppressor) Process10ms(_ int, samples []int16) []int16 { return samples }

// Config controls whether and how processing is applied.
type Config struct {
	NoiseSuppression int     // 0..4, 0 disables suppression
	Gain             float64 // 1.0 = unity
}

// Processor resamples 24kHz<->16kHz, batches into exact 10ms frames, and
// applies suppression + gain. A Processor is not safe for concurrent use.
type Processor struct {
	cfg        Config
	suppressor Suppressor

	residual []int16 // buffered 16kHz samples not yet forming a full 10ms chunk
}

// New returns a Processor. If cfg.NoiseSuppression == 0 and cfg.Gain == 1.0,
// Process is still safe to call but becomes an identity passthrough of the
// resample round-trip (which is lossy at the sample level but preserves
// frame timing); callers that want a true bypass should skip the processor
// entirely.
func New(cfg Config, suppressor Suppressor) *Processor {
	if suppressor == nil {
		suppressor = NopSuppressor{}
	}
	if cfg.Gain == 0 {
		cfg.Gain = 1.0
	}
	return &Processor{cfg: cfg, suppressor: suppressor}
}

// Enabled reports whether processing was requested at all.
func (c Config) Enabled() bool {
	return c.NoiseSuppression > 0 || c.Gain != 1.0
}

// Process consumes one 24kHz PCM16 frame (little-endian bytes) and returns
// zero or more bytes of processed 24kHz PCM16 output. The first one or two
// calls may yield no output while the internal 10ms buffer fills.
func (p *Processor) Process(pcm24 []byte) []byte {
	in16 := decodePCM16(pcm24)
	down := resampleLinear(in16, inRate, procRate)
	p.residual = append(p.residual, down...)

	var outDown []int16
	for len(p.residual) >= chunkSize {
		chunk := p.residual[:chunkSize]
		p.residual = p.residual[chunkSize:]
		if p.cfg.NoiseSuppression > 0 {
			chunk = p.suppressor.Process10ms(p.cfg.NoiseSuppression, chunk)
		}
		applyGain(chunk, p.cfg.Gain)
		outDown = append(outDown, chunk...)
	}
	if len(outDown) == 0 {
		return nil
	}
	up := resampleLinear(outDown, procRate, inRate)
	return encodePCM16(up)
}

// Flush pads any trailing partial 10ms chunk with zeros, processes it, and
// returns the residue as 24kHz PCM bytes (possibly empty).
func (p *Processor) Flush() []byte {
	if len(p.residual) == 0 {
		return nil
	}
	chunk := make([]int16, chunkSize)
	copy(chunk, p.residual)
	p.residual = nil
	if p.cfg.NoiseSuppression > 0 {
		chunk = p.suppressor.Process10ms(p.cfg.NoiseSuppression, chunk)
	}
	applyGain(chunk, p.cfg.Gain)
	up := resampleLinear(chunk, procRate, inRate)
	return encodePCM16(up)
}

func applyGain(samples []int16, gain float64) {
	if gain == 1.0 {
		return
	}
	for i, s := range samples {
		v := float64(s) * gain
		samples[i] = clipInt16(v)
	}
}

func clipInt16(v float64) int16 {
	if v > math.MaxInt16 {
		return math.MaxInt16
	}
	if v < math.MinInt16 {
		return math.MinInt16
	}
	return int16(v)
}

// resampleLinear resamples samples from rateIn to rateOut via linear
// interpolation, mirroring original_source/noise_reduction.py's use of
// np.interp for the same 24k<->16k conversion.
func resampleLinear(samples []int16, rateIn, rateOut int) []int16 {
	if len(samples) == 0 || rateIn == rateOut {
		out := make([]int16, len(samples))
		copy(out, samples)
		return out
	}
	n := len(samples)
	outLen := n * rateOut / rateIn
	if outLen == 0 {
		return nil
	}
	out := make([]int16, outLen)
	for i := 0; i < outLen; i++ {
		srcPos := float64(i) * float64(n-1) / float64(maxInt(outLen-1, 1))
		lo := int(math.Floor(srcPos))
		if lo >= n-1 {
			out[i] = samples[n-1]
			continue
		}
		frac := srcPos - float64(lo)
		out[i] = int16(float64(samples[lo])*(1-frac) + float64(samples[lo+1])*frac)
	}
	return out
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func decodePCM16(b []byte) []int16 {
	out := make([]int16, len(b)/2)
	for i := range out {
		out[i] = int16(binary.LittleEndian.Uint16(b[i*2:]))
	}
	return out
}

func encodePCM16(samples []int16) []byte {
	out := make([]byte, len(samples)*2)
	for i, s := range samples {
		binary.LittleEndian.PutUint16(out[i*2:], uint16(s))
	}
	return out
}
