package providers

import (
	"github.com/outlinevoice/gateway/internal/audio"
	"github.com/outlinevoice/gateway/internal/metrics"
)

// EnergyVAD adapts the energy-based VAD to the VoiceActivityDetector
// capability. VAD is out of scope as core pipeline logic (§1 non-goals);
// this adapter exists so cmd/gateway can assemble a runnable demo.
type EnergyVAD struct {
	vad *audio.VAD
}

// NewEnergyVAD wraps a configured audio.VAD.
func NewEnergyVAD(cfg audio.VADConfig) *EnergyVAD {
	return &EnergyVAD{vad: audio.NewVAD(cfg)}
}

// Detect satisfies VoiceActivityDetector. It converts one frame of int16
// PCM to float32 and reports whether a speech segment has just ended;
// confidence is a coarse 0/1 signal since the underlying detector is
// threshold-based, not probabilistic.
func (e *EnergyVAD) Detect(frame []int16) (bool, float64) {
	samples := make([]float32, len(frame))
	for i, s := range frame {
		samples[i] = float32(s) / 32768.0
	}
	result := e.vad.Process(samples)
	if result.SpeechEnded {
		metrics.SpeechSegments.Inc()
	}
	metrics.AudioChunks.Inc()
	return result.SpeechEnded, boolConfidence(result.SpeechEnded)
}

// Reset satisfies VoiceActivityDetector.
func (e *EnergyVAD) Reset() {
	e.vad.Flush()
}

func boolConfidence(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
