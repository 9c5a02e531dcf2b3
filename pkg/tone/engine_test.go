// ABOUTME: Tests for the playback engine
// ABOUTME: Covers buffer continuity, channel layout, setup failures and teardown
package tone

import (
	"context"
	"errors"
	"runtime"
	"sync"
	"testing"
	"time"

	"github.com/Sendspin/sendspin-tone/internal/testutil"
	"github.com/Sendspin/sendspin-tone/pkg/audio"
	"github.com/Sendspin/sendspin-tone/pkg/audio/output"
	"github.com/Sendspin/sendspin-tone/pkg/oscillator"
)

func monoHost() *output.NullHost {
	return output.NewNull(output.NullConfig{
		Manual: true,
		Config: audio.StreamConfig{Format: audio.FormatF32, Channels: 1, SampleRate: 44100},
	})
}

func TestBufferFillContinuity(t *testing.T) {
	tests := []struct {
		name     string
		channels int
	}{
		{"mono", 1},
		{"stereo", 2},
		{"quad", 4},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			host := output.NewNull(output.NullConfig{
				Manual: true,
				Config: audio.StreamConfig{Format: audio.FormatF32, Channels: tt.channels, SampleRate: 44100},
			})
			engine, err := NewEngine(Config{Frequency: 440, SampleRate: 44100, Host: host})
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			defer engine.Close()

			// three callbacks of 256 sample slots each
			stream := host.LastStream()
			var got []float32
			for i := 0; i < 3; i++ {
				buf, err := stream.Pull(256 / tt.channels)
				if err != nil {
					t.Fatalf("pull %d: %v", i, err)
				}
				if len(buf) != 256 {
					t.Fatalf("pull %d: expected 256 slots, got %d", i, len(buf))
				}
				got = append(got, buf...)
			}

			osc, _ := oscillator.New(440, 44100)
			for i, s := range got {
				if expected := float32(osc.NextSample()); s != expected {
					t.Fatalf("slot %d: expected %v, got %v", i, expected, s)
				}
			}

			stats := engine.Stats()
			if stats.Buffers != 3 || stats.Samples != 768 {
				t.Errorf("expected 3 buffers / 768 samples, got %d / %d", stats.Buffers, stats.Samples)
			}
		})
	}
}

func TestDefaultDeviceFillsSlotBySlot(t *testing.T) {
	// the zero NullConfig is a stereo device
	host := output.NewNull(output.NullConfig{Manual: true})
	engine, err := NewEngine(Config{Frequency: 1000, SampleRate: 48000, Host: host})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer engine.Close()

	if cfg := engine.StreamConfig(); cfg.Channels != 2 || cfg.SampleRate != 48000 {
		t.Fatalf("unexpected stream config %s", cfg)
	}

	buf, err := host.LastStream().Pull(100)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	osc, _ := oscillator.New(1000, 48000)
	for i, s := range buf {
		if expected := float32(osc.NextSample()); s != expected {
			t.Fatalf("slot %d: expected %v, got %v", i, expected, s)
		}
	}
	if buf[0] == buf[1] {
		t.Errorf("adjacent slots of a frame should hold consecutive samples, both %v", buf[0])
	}
}

func TestSharedOscillatorFillsEverySlot(t *testing.T) {
	osc, _ := oscillator.New(440, 44100)
	shared := &sharedOscillator{osc: osc}

	// odd lengths have no partial-frame handling
	out := []float32{9, 9, 9, 9, 9}
	shared.fill(out, 1)

	ref, _ := oscillator.New(440, 44100)
	for i, s := range out {
		if expected := float32(ref.NextSample()); s != expected {
			t.Errorf("slot %d: expected %v, got %v", i, expected, s)
		}
	}
	if osc.Phase() != ref.Phase() {
		t.Errorf("expected %v after 5 slots, got %v", ref.Phase(), osc.Phase())
	}
}

func TestVolume(t *testing.T) {
	host := monoHost()
	engine, err := NewEngine(Config{Frequency: 440, SampleRate: 44100, Volume: 50, Host: host})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer engine.Close()

	buf, _ := host.LastStream().Pull(64)
	osc, _ := oscillator.New(440, 44100)
	for i, s := range buf {
		if expected := float32(osc.NextSample() * 0.5); s != expected {
			t.Fatalf("sample %d: expected %v, got %v", i, expected, s)
		}
	}
}

func TestNewEngineDefaults(t *testing.T) {
	host := monoHost()
	engine, err := NewEngine(Config{Host: host})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer engine.Close()

	if engine.config.Frequency != DefaultFrequency {
		t.Errorf("expected default frequency, got %v", engine.config.Frequency)
	}
	if engine.config.SampleRate != DefaultSampleRate {
		t.Errorf("expected default sample rate, got %v", engine.config.SampleRate)
	}
	if engine.config.Volume != DefaultVolume {
		t.Errorf("expected default volume, got %v", engine.config.Volume)
	}
	if engine.ID() == "" {
		t.Error("expected a stream ID")
	}
	if engine.DeviceName() == "" {
		t.Error("expected a device name")
	}
}

func TestSampleRateOverridesDevice(t *testing.T) {
	host := output.NewNull(output.NullConfig{
		Manual: true,
		Config: audio.StreamConfig{Format: audio.FormatF32, Channels: 2, SampleRate: 48000},
	})
	engine, err := NewEngine(Config{SampleRate: 44100, Host: host})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer engine.Close()

	if rate := host.LastStream().Config().SampleRate; rate != 44100 {
		t.Errorf("expected stream opened at 44100, got %d", rate)
	}
}

func TestNewEngineFailures(t *testing.T) {
	boom := errors.New("boom")

	tests := []struct {
		name         string
		config       Config
		host         output.NullConfig
		expectErr    error
		expectStream bool
	}{
		{
			name:      "no output device",
			host:      output.NullConfig{NoDevice: true},
			expectErr: ErrNoOutputDevice,
		},
		{
			name:      "config query fails",
			host:      output.NullConfig{ConfigErr: boom},
			expectErr: boom,
		},
		{
			name: "unsupported format",
			host: output.NullConfig{
				Config: audio.StreamConfig{Format: audio.FormatS16, Channels: 2, SampleRate: 44100},
			},
			expectErr: ErrUnsupportedFormat,
		},
		{
			name:      "build fails",
			host:      output.NullConfig{BuildErr: boom},
			expectErr: boom,
		},
		{
			name:         "play fails",
			host:         output.NullConfig{PlayErr: boom},
			expectErr:    boom,
			expectStream: true,
		},
		{
			name:      "invalid frequency",
			config:    Config{Frequency: -1},
			expectErr: oscillator.ErrInvalidFrequency,
		},
		{
			name:      "invalid sample rate",
			config:    Config{SampleRate: -44100},
			expectErr: oscillator.ErrInvalidSampleRate,
		},
		{
			name:   "invalid volume",
			config: Config{Volume: 101},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			host := output.NewNull(tt.host)
			tt.config.Host = host

			engine, err := NewEngine(tt.config)
			if err == nil {
				engine.Close()
				t.Fatal("expected error, got nil")
			}
			if tt.expectErr != nil && !errors.Is(err, tt.expectErr) {
				t.Fatalf("expected %v, got %v", tt.expectErr, err)
			}

			streams := host.Streams()
			if !tt.expectStream {
				if len(streams) != 0 {
					t.Fatalf("expected no stream to be built, got %d", len(streams))
				}
				return
			}
			for _, s := range streams {
				if !s.Closed() {
					t.Error("expected stream to be closed after setup failure")
				}
				if s.Callbacks() != 0 {
					t.Error("expected no samples to be produced")
				}
			}
		})
	}
}

func TestStateAndClose(t *testing.T) {
	host := monoHost()
	engine, err := NewEngine(Config{Host: host})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if engine.State() != StateStreaming {
		t.Fatalf("expected streaming, got %s", engine.State())
	}

	stream := host.LastStream()
	if !stream.Playing() {
		t.Fatal("expected stream to be playing after construction")
	}

	if err := engine.Close(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := engine.Close(); err != nil {
		t.Fatalf("second Close should be a no-op, got %v", err)
	}
	if engine.State() != StateStopped {
		t.Errorf("expected stopped, got %s", engine.State())
	}
	if !stream.Closed() {
		t.Error("expected stream to be closed")
	}
	if _, err := stream.Pull(16); !errors.Is(err, output.ErrStreamClosed) {
		t.Errorf("expected ErrStreamClosed, got %v", err)
	}
}

func TestStreamErrorsAreNotFatal(t *testing.T) {
	host := monoHost()

	var mu sync.Mutex
	var reported []error
	got := make(chan struct{}, 4)

	engine, err := NewEngine(Config{
		Host: host,
		OnError: func(err error) {
			mu.Lock()
			reported = append(reported, err)
			mu.Unlock()
			got <- struct{}{}
		},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer engine.Close()

	stream := host.LastStream()
	want := errors.New("device glitch")
	stream.InjectError(want)

	select {
	case <-got:
	case <-time.After(2 * time.Second):
		t.Fatal("error was not reported")
	}

	mu.Lock()
	if len(reported) != 1 || reported[0] != want {
		t.Errorf("expected [%v], got %v", want, reported)
	}
	mu.Unlock()

	if engine.State() != StateStreaming {
		t.Errorf("expected engine to keep streaming, got %s", engine.State())
	}
	if _, err := stream.Pull(32); err != nil {
		t.Errorf("expected stream to keep playing, got %v", err)
	}
	if engine.Stats().StreamErrors != 1 {
		t.Errorf("expected 1 stream error, got %d", engine.Stats().StreamErrors)
	}
}

func TestErrorSinkNeverBlocks(t *testing.T) {
	host := monoHost()
	release := make(chan struct{})

	engine, err := NewEngine(Config{
		Host:       host,
		ErrorQueue: 1,
		OnError:    func(error) { <-release },
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	done := make(chan struct{})
	go func() {
		for i := 0; i < 50; i++ {
			host.LastStream().InjectError(errors.New("flood"))
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("error sink blocked the reporting goroutine")
	}

	close(release)
	if err := engine.Close(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestPlayForDuration(t *testing.T) {
	baseline := runtime.NumGoroutine()

	host := output.NewNull(output.NullConfig{Period: 2 * time.Millisecond})
	engine, err := NewEngine(Config{Host: host})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	start := time.Now()
	if err := engine.PlayFor(context.Background(), 50*time.Millisecond); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if elapsed := time.Since(start); elapsed < 50*time.Millisecond {
		t.Errorf("returned after %v, before the duration elapsed", elapsed)
	}
	if engine.State() != StateStopped {
		t.Errorf("expected stopped, got %s", engine.State())
	}
	if engine.Stats().Buffers == 0 {
		t.Error("expected paced callbacks while playing")
	}

	testutil.AssertNoGoroutineLeaks(t, baseline, 0)
}

func TestPlayForCancelled(t *testing.T) {
	host := monoHost()
	engine, err := NewEngine(Config{Host: host})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := engine.PlayFor(ctx, time.Hour); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if engine.State() != StateStopped {
		t.Errorf("expected stopped, got %s", engine.State())
	}
}

func TestConcurrentPacedPlayback(t *testing.T) {
	host := output.NewNull(output.NullConfig{Period: time.Millisecond})
	engine, err := NewEngine(Config{Host: host})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// controller reads stats while the callback goroutine fills buffers
	deadline := time.Now().Add(30 * time.Millisecond)
	for time.Now().Before(deadline) {
		_ = engine.Stats()
		time.Sleep(time.Millisecond)
	}
	if err := engine.Close(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	stream := host.LastStream()
	stats := engine.Stats()
	slots := uint64(stream.Frames() * stream.Config().Channels)
	if slots != stats.Samples {
		t.Errorf("host saw %d slots, engine generated %d samples", slots, stats.Samples)
	}

	// the shared phase carried across every callback
	osc, _ := oscillator.New(DefaultFrequency, DefaultSampleRate)
	for i := uint64(0); i < stats.Samples; i++ {
		osc.NextSample()
	}
	if engine.osc.osc.Phase() != osc.Phase() {
		t.Errorf("phase %v after %d samples, expected %v", engine.osc.osc.Phase(), stats.Samples, osc.Phase())
	}
}

func TestStateString(t *testing.T) {
	tests := []struct {
		state    State
		expected string
	}{
		{StateUninitialized, "uninitialized"},
		{StateStreaming, "streaming"},
		{StateStopped, "stopped"},
		{State(9), "State(9)"},
	}
	for _, tt := range tests {
		if got := tt.state.String(); got != tt.expected {
			t.Errorf("expected %q, got %q", tt.expected, got)
		}
	}
}
