package whisper

import (
	"encoding/binary"
	"math"
	"testing"
)

func pcmFromSamples(values []int16) []byte {
	pcm := make([]byte, len(values)*2)
	for i, v := range values {
		binary.LittleEndian.PutUint16(pcm[i*2:], uint16(v))
	}
	return pcm
}

func TestPcmToFloat32(t *testing.T) {
	tests := []struct {
		name  string
		value int16
		want  float32
	}{
		{"max positive", 32767, 32767.0 / 32768.0},
		{"max negative", -32768, -1.0},
		{"zero", 0, 0.0},
		{"mid positive", 16384, 0.5},
		{"mid negative", -16384, -0.5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := pcmToFloat32(pcmFromSamples([]int16{tt.value}))
			if len(out) != 1 {
				t.Fatalf("expected 1 sample, got %d", len(out))
			}
			if math.Abs(float64(out[0]-tt.want)) > 1e-6 {
				t.Errorf("pcmToFloat32(%d) = %f; want %f", tt.value, out[0], tt.want)
			}
		})
	}
}

func TestPcmToFloat32_OddByteCount(t *testing.T) {
	// 3 bytes: only 1 complete sample, trailing byte ignored.
	out := pcmToFloat32([]byte{0x00, 0x40, 0xFF})
	if len(out) != 1 {
		t.Fatalf("expected 1 sample from 3-byte input, got %d", len(out))
	}
}

func TestPcmToFloat32Mono_Stereo(t *testing.T) {
	// Two stereo frames: (1000, 3000) and (-2000, -4000).
	mono := pcmToFloat32Mono(pcmFromSamples([]int16{1000, 3000, -2000, -4000}), 2)
	if len(mono) != 2 {
		t.Fatalf("expected 2 mono samples from 4-sample stereo, got %d", len(mono))
	}
	want0 := (float32(1000)/32768.0 + float32(3000)/32768.0) / 2.0
	if math.Abs(float64(mono[0]-want0)) > 1e-6 {
		t.Errorf("mono[0] = %f; want %f", mono[0], want0)
	}
	want1 := (float32(-2000)/32768.0 + float32(-4000)/32768.0) / 2.0
	if math.Abs(float64(mono[1]-want1)) > 1e-6 {
		t.Errorf("mono[1] = %f; want %f", mono[1], want1)
	}
}

func TestPcmToFloat32Mono_SingleChannelMatchesDirect(t *testing.T) {
	pcm := pcmFromSamples([]int16{100, -200, 300})
	mono := pcmToFloat32Mono(pcm, 1)
	direct := pcmToFloat32(pcm)
	for i := range mono {
		if mono[i] != direct[i] {
			t.Errorf("sample[%d]: mono=%f, direct=%f", i, mono[i], direct[i])
		}
	}
}

func TestComputeRMS(t *testing.T) {
	if rms := computeRMS(nil); rms != 0 {
		t.Errorf("RMS of empty buffer = %f, want 0", rms)
	}
	if rms := computeRMS(pcmFromSamples([]int16{0, 0, 0, 0})); rms != 0 {
		t.Errorf("RMS of silence = %f, want 0", rms)
	}
	// Constant amplitude: RMS equals the amplitude.
	rms := computeRMS(pcmFromSamples([]int16{1000, -1000, 1000, -1000}))
	if math.Abs(rms-1000) > 1e-6 {
		t.Errorf("RMS of square wave = %f, want 1000", rms)
	}
}

func TestChunkDurationMs(t *testing.T) {
	// 16 kHz mono 16-bit: 32 bytes per millisecond.
	if ms := chunkDurationMs(make([]byte, 320), 16000, 1); ms != 10 {
		t.Errorf("duration = %d ms, want 10", ms)
	}
	if ms := chunkDurationMs(make([]byte, 320), 0, 1); ms != 0 {
		t.Errorf("duration with zero sample rate = %d, want 0", ms)
	}
}
