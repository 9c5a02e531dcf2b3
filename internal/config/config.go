// ABOUTME: Command-line configuration for the tone player
// ABOUTME: Parses flags with environment fallbacks for backend and metrics address
package config

import (
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/Sendspin/sendspin-tone/pkg/audio/output"
	"github.com/Sendspin/sendspin-tone/pkg/tone"
)

// Config holds the player's runtime configuration
type Config struct {
	Frequency   float64
	SampleRate  int
	Duration    time.Duration
	Backend     string
	Volume      int
	LogFile     string
	Debug       bool
	MetricsAddr string
}

// Load parses args (without the program name). Output from -h goes to stderr.
func Load(args []string) (*Config, error) {
	return load(args, os.Stderr)
}

func load(args []string, usage io.Writer) (*Config, error) {
	cfg := &Config{}

	fs := flag.NewFlagSet("sendspin-tone", flag.ContinueOnError)
	fs.SetOutput(usage)
	fs.Float64Var(&cfg.Frequency, "frequency", tone.DefaultFrequency, "Tone frequency in Hz")
	fs.IntVar(&cfg.SampleRate, "sample-rate", tone.DefaultSampleRate, "Sample rate in Hz")
	fs.DurationVar(&cfg.Duration, "duration", 5*time.Second, "How long to play (0 = until interrupted)")
	fs.StringVar(&cfg.Backend, "backend", getEnv("TONE_BACKEND", output.DefaultHost),
		fmt.Sprintf("Audio backend %v", output.HostNames()))
	fs.IntVar(&cfg.Volume, "volume", tone.DefaultVolume, "Volume (1-100)")
	fs.StringVar(&cfg.LogFile, "log-file", "sendspin-tone.log", "Log file path (empty = stdout only)")
	fs.BoolVar(&cfg.Debug, "debug", false, "Enable debug logging")
	fs.StringVar(&cfg.MetricsAddr, "metrics-addr", getEnv("TONE_METRICS_ADDR", ""),
		"Serve Prometheus metrics on this address (empty = disabled)")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if fs.NArg() > 0 {
		return nil, fmt.Errorf("unexpected arguments: %v", fs.Args())
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects values the engine would refuse anyway, before any device is touched
func (c *Config) Validate() error {
	if !(c.Frequency > 0) {
		return fmt.Errorf("frequency must be positive, got %v", c.Frequency)
	}
	if c.SampleRate <= 0 {
		return fmt.Errorf("sample rate must be positive, got %d", c.SampleRate)
	}
	if c.Duration < 0 {
		return fmt.Errorf("duration must not be negative, got %v", c.Duration)
	}
	if c.Volume < 1 || c.Volume > 100 {
		return fmt.Errorf("volume must be 1-100, got %d", c.Volume)
	}
	return nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
