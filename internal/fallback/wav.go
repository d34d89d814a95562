package fallback

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

const (
	sampleRate    = 24000
	channels      = 1
	bitsPerSample = 16
)

// EncodeWAV wraps raw 16-bit PCM in a canonical mono 24kHz RIFF/fmt/data
// header so it can be handed to an API that expects a file, not a raw stream.
func EncodeWAV(pcm []byte) []byte {
	var buf bytes.Buffer
	byteRate := sampleRate * channels * bitsPerSample / 8
	blockAlign := channels * bitsPerSample / 8
	dataSize := len(pcm)
	fileSize := 36 + dataSize

	buf.WriteString("RIFF")
	binary.Write(&buf, binary.LittleEndian, uint32(fileSize))
	buf.WriteString("WAVE")

	buf.WriteString("fmt ")
	binary.Write(&buf, binary.LittleEndian, uint32(16))
	binary.Write(&buf, binary.LittleEndian, uint16(1))
	binary.Write(&buf, binary.LittleEndian, uint16(channels))
	binary.Write(&buf, binary.LittleEndian, uint32(sampleRate))
	binary.Write(&buf, binary.LittleEndian, uint32(byteRate))
	binary.Write(&buf, binary.LittleEndian, uint16(blockAlign))
	binary.Write(&buf, binary.LittleEndian, uint16(bitsPerSample))

	buf.WriteString("data")
	binary.Write(&buf, binary.LittleEndian, uint32(dataSize))
	buf.Write(pcm)

	return buf.Bytes()
}

// DecodeWAV extracts the raw PCM payload from a WAV produced by EncodeWAV.
// DecodeWAV(EncodeWAV(pcm)) == pcm for any pcm.
func DecodeWAV(wav []byte) ([]byte, error) {
	if len(wav) < 44 || string(wav[0:4]) != "RIFF" || string(wav[8:12]) != "WAVE" {
		return nil, fmt.Errorf("not a RIFF/WAVE file")
	}
	offset := 12
	for offset+8 <= len(wav) {
		chunkID := string(wav[offset : offset+4])
		chunkSize := binary.LittleEndian.Uint32(wav[offset+4 : offset+8])
		start := offset + 8
		if chunkID == "data" {
			end := start + int(chunkSize)
			if end > len(wav) {
				end = len(wav)
			}
			return wav[start:end], nil
		}
		offset = start + int(chunkSize)
	}
	return nil, fmt.Errorf("no data chunk found")
}
