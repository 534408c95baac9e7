package audio

import (
	"testing"
	"time"
)

func testVADConfig() VADConfig {
	return VADConfig{
		SpeechThresholdDB:   -30,
		SilenceTimeout:      20 * time.Millisecond,
		MinSpeechDuration:   1 * time.Millisecond,
		PreSpeechBuffer:     0,
		SampleRate:          16000,
		CalibrationDuration: 0,
		AdaptiveMarginDB:    10,
	}
}

func loudSamples(n int) []float32 {
	s := make([]float32, n)
	for i := range s {
		s[i] = 0.5
	}
	return s
}

func quietSamples(n int) []float32 {
	s := make([]float32, n)
	for i := range s {
		s[i] = 0.0001
	}
	return s
}

func TestVADDetectsSpeechThenSilenceEndsSegment(t *testing.T) {
	v := NewVAD(testVADConfig())

	result := v.Process(loudSamples(160))
	if result.SpeechEnded {
		t.Fatalf("Process(loud) reported SpeechEnded immediately")
	}

	time.Sleep(25 * time.Millisecond)

	result = v.Process(quietSamples(160))
	if !result.SpeechEnded {
		t.Fatalf("Process(silence after timeout) SpeechEnded = false, want true")
	}
	if len(result.Audio) == 0 {
		t.Error("expected non-empty audio segment on speech end")
	}
}

func TestVADDiscardsTooShortSpeech(t *testing.T) {
	cfg := testVADConfig()
	cfg.MinSpeechDuration = 500 * time.Millisecond
	v := NewVAD(cfg)

	v.Process(loudSamples(160))
	time.Sleep(25 * time.Millisecond)
	result := v.Process(quietSamples(160))

	if result.SpeechEnded {
		t.Error("expected short speech burst to be discarded, got SpeechEnded = true")
	}
}

func TestVADIgnoresSilenceWithoutPriorSpeech(t *testing.T) {
	v := NewVAD(testVADConfig())
	result := v.Process(quietSamples(160))
	if result.SpeechEnded {
		t.Error("expected no segment when silence arrives without prior speech")
	}
}

func TestVADFlushReturnsBufferedAudio(t *testing.T) {
	v := NewVAD(testVADConfig())
	v.Process(loudSamples(160))

	segment := v.Flush()
	if len(segment) == 0 {
		t.Fatal("Flush() returned empty segment after active speech")
	}

	if again := v.Flush(); again != nil {
		t.Errorf("Flush() after flush = %v, want nil", again)
	}
}

func TestComputeEnergyDBEmptyIsFloor(t *testing.T) {
	if got := computeEnergyDB(nil); got != -100 {
		t.Errorf("computeEnergyDB(nil) = %v, want -100", got)
	}
}

func TestComputeEnergyDBLoudExceedsThreshold(t *testing.T) {
	cfg := testVADConfig()
	if got := computeEnergyDB(loudSamples(160)); got < cfg.SpeechThresholdDB {
		t.Errorf("computeEnergyDB(loud) = %v, want >= %v", got, cfg.SpeechThresholdDB)
	}
}
