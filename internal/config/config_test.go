// ABOUTME: Tests for command-line configuration
// ABOUTME: Covers defaults, flag parsing, env fallbacks and validation
package config

import (
	"io"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("TONE_BACKEND", "")
	t.Setenv("TONE_METRICS_ADDR", "")

	cfg, err := load(nil, io.Discard)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Frequency != 440 {
		t.Errorf("expected 440Hz, got %v", cfg.Frequency)
	}
	if cfg.SampleRate != 44100 {
		t.Errorf("expected 44100, got %d", cfg.SampleRate)
	}
	if cfg.Duration != 5*time.Second {
		t.Errorf("expected 5s, got %v", cfg.Duration)
	}
	if cfg.Backend != "malgo" {
		t.Errorf("expected malgo backend, got %q", cfg.Backend)
	}
	if cfg.Volume != 100 {
		t.Errorf("expected volume 100, got %d", cfg.Volume)
	}
	if cfg.MetricsAddr != "" {
		t.Errorf("expected metrics disabled, got %q", cfg.MetricsAddr)
	}
}

func TestLoadFlags(t *testing.T) {
	cfg, err := load([]string{
		"-frequency", "261.63",
		"-sample-rate", "48000",
		"-duration", "1500ms",
		"-backend", "null",
		"-volume", "30",
		"-debug",
	}, io.Discard)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Frequency != 261.63 || cfg.SampleRate != 48000 || cfg.Duration != 1500*time.Millisecond {
		t.Errorf("unexpected config: %+v", cfg)
	}
	if cfg.Backend != "null" || cfg.Volume != 30 || !cfg.Debug {
		t.Errorf("unexpected config: %+v", cfg)
	}
}

func TestLoadEnvFallback(t *testing.T) {
	t.Setenv("TONE_BACKEND", "oto")
	t.Setenv("TONE_METRICS_ADDR", ":9464")

	cfg, err := load(nil, io.Discard)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Backend != "oto" {
		t.Errorf("expected backend from env, got %q", cfg.Backend)
	}
	if cfg.MetricsAddr != ":9464" {
		t.Errorf("expected metrics addr from env, got %q", cfg.MetricsAddr)
	}

	// flags win over env
	cfg, err = load([]string{"-backend", "null"}, io.Discard)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Backend != "null" {
		t.Errorf("expected flag to override env, got %q", cfg.Backend)
	}
}

func TestLoadInvalid(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"zero frequency", []string{"-frequency", "0"}},
		{"negative frequency", []string{"-frequency", "-10"}},
		{"zero sample rate", []string{"-sample-rate", "0"}},
		{"negative duration", []string{"-duration", "-1s"}},
		{"volume too high", []string{"-volume", "150"}},
		{"volume zero", []string{"-volume", "0"}},
		{"unknown flag", []string{"-loud"}},
		{"stray argument", []string{"extra"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := load(tt.args, io.Discard); err == nil {
				t.Error("expected error, got nil")
			}
		})
	}
}
