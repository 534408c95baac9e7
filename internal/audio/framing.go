package audio

import (
	"bytes"
	"encoding/binary"
	"fmt"

	wavdec "github.com/go-audio/wav"
	"layeh.com/gopus"
)

// WireFormat selects the outbound encoding a connection negotiated.
type WireFormat string

const (
	WireFormatPCM  WireFormat = "pcm"
	WireFormatOpus WireFormat = "opus"
)

// FrameMillis is the contractual outbound frame duration.
const FrameMillis = 60

// DecodeWAVToPCM16 decodes a synthesized WAV file into interleaved mono
// PCM16 samples plus its sample rate.
func DecodeWAVToPCM16(data []byte) ([]int16, int, error) {
	dec := wavdec.NewDecoder(bytes.NewReader(data))
	if !dec.IsValidFile() {
		return nil, 0, fmt.Errorf("not a valid wav file")
	}
	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, 0, fmt.Errorf("decode wav: %w", err)
	}
	samples := make([]int16, len(buf.Data))
	for i, v := range buf.Data {
		samples[i] = int16(v)
	}
	return samples, int(dec.SampleRate), nil
}

// FrameSamples returns how many PCM16 samples make up one FrameMillis frame
// at the given sample rate.
func FrameSamples(sampleRate int) int {
	return sampleRate * FrameMillis / 1000
}

// EncodePCMFrames re-chunks PCM16 samples into fixed-size little-endian
// PCM16 byte frames of FrameMillis duration. The final partial frame, if
// any, is zero-padded to a full frame.
func EncodePCMFrames(samples []int16, sampleRate int) [][]byte {
	frameLen := FrameSamples(sampleRate)
	if frameLen <= 0 {
		return nil
	}
	var frames [][]byte
	for start := 0; start < len(samples); start += frameLen {
		end := min(start+frameLen, len(samples))
		chunk := samples[start:end]
		buf := make([]byte, frameLen*2)
		for i, s := range chunk {
			binary.LittleEndian.PutUint16(buf[i*2:], uint16(s))
		}
		frames = append(frames, buf)
	}
	return frames
}

// EncodeOpusFrames encodes PCM16 samples into 60ms Opus frames at the given
// sample rate (mono). The final partial frame is zero-padded before
// encoding, matching Opus's fixed-frame-size requirement.
func EncodeOpusFrames(samples []int16, sampleRate int) ([][]byte, error) {
	enc, err := gopus.NewEncoder(sampleRate, 1, gopus.Voip)
	if err != nil {
		return nil, fmt.Errorf("create opus encoder: %w", err)
	}

	frameLen := FrameSamples(sampleRate)
	if frameLen <= 0 {
		return nil, fmt.Errorf("invalid sample rate %d", sampleRate)
	}

	var frames [][]byte
	for start := 0; start < len(samples); start += frameLen {
		end := min(start+frameLen, len(samples))
		chunk := make([]int16, frameLen)
		copy(chunk, samples[start:end])

		encoded, err := enc.Encode(chunk, frameLen, frameLen*2)
		if err != nil {
			return nil, fmt.Errorf("encode opus frame: %w", err)
		}
		frames = append(frames, encoded)
	}
	return frames, nil
}
