// ABOUTME: Tests for audio types
// ABOUTME: Tests format sizes, config validation and float32 packing
package audio

import (
	"testing"
	"time"
)

func TestBytesPerSample(t *testing.T) {
	tests := []struct {
		format   SampleFormat
		expected int
	}{
		{FormatUnknown, 0},
		{FormatU8, 1},
		{FormatS16, 2},
		{FormatS24, 3},
		{FormatS32, 4},
		{FormatF32, 4},
	}

	for _, tt := range tests {
		t.Run(tt.format.String(), func(t *testing.T) {
			if got := tt.format.BytesPerSample(); got != tt.expected {
				t.Errorf("expected %d, got %d", tt.expected, got)
			}
		})
	}
}

func TestStreamConfigValidate(t *testing.T) {
	tests := []struct {
		name      string
		config    StreamConfig
		expectErr bool
	}{
		{"valid stereo", StreamConfig{FormatF32, 2, 48000}, false},
		{"valid mono s16", StreamConfig{FormatS16, 1, 44100}, false},
		{"zero channels", StreamConfig{FormatF32, 0, 48000}, true},
		{"zero rate", StreamConfig{FormatF32, 2, 0}, true},
		{"unknown format", StreamConfig{FormatUnknown, 2, 48000}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if tt.expectErr && err == nil {
				t.Error("expected error, got nil")
			}
			if !tt.expectErr && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}

func TestFramesAndDuration(t *testing.T) {
	cfg := StreamConfig{Format: FormatF32, Channels: 2, SampleRate: 48000}

	if got := cfg.FramesFor(10 * time.Millisecond); got != 480 {
		t.Errorf("expected 480 frames, got %d", got)
	}
	if got := cfg.DurationOf(48000); got != time.Second {
		t.Errorf("expected 1s, got %v", got)
	}
	if got := cfg.BytesPerFrame(); got != 8 {
		t.Errorf("expected 8 bytes per frame, got %d", got)
	}
	if got := cfg.String(); got != "48000Hz/2ch/f32" {
		t.Errorf("unexpected string: %q", got)
	}
}

func TestPutFloat32LE(t *testing.T) {
	samples := []float32{0, 1, -1, 0.5}
	buf := make([]byte, 14) // room for 3 samples plus a partial slot

	n := PutFloat32LE(buf, samples)
	if n != 3 {
		t.Fatalf("expected 3 samples written, got %d", n)
	}
	for i := 0; i < n; i++ {
		if got := Float32LE(buf[i*4:]); got != samples[i] {
			t.Errorf("sample %d: expected %v, got %v", i, samples[i], got)
		}
	}
	// 1.0 is 0x3F800000
	if buf[4] != 0x00 || buf[5] != 0x00 || buf[6] != 0x80 || buf[7] != 0x3F {
		t.Errorf("unexpected byte layout for 1.0: % x", buf[4:8])
	}
}
