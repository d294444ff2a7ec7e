package openai

import (
	"encoding/binary"
	"testing"

	"github.com/davfehr/typestream/pkg/asr"
)

func TestNew_EmptyAPIKey(t *testing.T) {
	_, err := New("")
	if err == nil {
		t.Error("expected error for empty API key")
	}
}

func TestEncodeWAV_Header(t *testing.T) {
	pcm := make([]byte, 320) // 10 ms at 16 kHz mono
	wav := encodeWAV(pcm, 16000, 1)

	if len(wav) != 44+len(pcm) {
		t.Fatalf("wav length = %d, want %d", len(wav), 44+len(pcm))
	}
	if string(wav[0:4]) != "RIFF" || string(wav[8:12]) != "WAVE" {
		t.Error("missing RIFF/WAVE markers")
	}
	if got := binary.LittleEndian.Uint32(wav[24:28]); got != 16000 {
		t.Errorf("sample rate = %d, want 16000", got)
	}
	if got := binary.LittleEndian.Uint16(wav[22:24]); got != 1 {
		t.Errorf("channels = %d, want 1", got)
	}
	if got := binary.LittleEndian.Uint32(wav[40:44]); got != uint32(len(pcm)) {
		t.Errorf("data size = %d, want %d", got, len(pcm))
	}
}

func TestEncodeWAV_ByteRate(t *testing.T) {
	wav := encodeWAV(nil, 48000, 2)
	if got := binary.LittleEndian.Uint32(wav[28:32]); got != 48000*2*2 {
		t.Errorf("byte rate = %d, want %d", got, 48000*2*2)
	}
	if got := binary.LittleEndian.Uint16(wav[32:34]); got != 4 {
		t.Errorf("block align = %d, want 4", got)
	}
}

func TestKeywordPrompt(t *testing.T) {
	s := &session{}
	if got := s.keywordPrompt(); got != "" {
		t.Errorf("empty keywords produced prompt %q", got)
	}

	if err := s.SetKeywords([]asr.KeywordBoost{
		{Keyword: "Kubernetes", Boost: 5},
		{Keyword: "PyTorch", Boost: 3},
	}); err != nil {
		t.Fatalf("SetKeywords: %v", err)
	}
	want := "Vocabulary: Kubernetes, PyTorch"
	if got := s.keywordPrompt(); got != want {
		t.Errorf("prompt = %q, want %q", got, want)
	}
}
