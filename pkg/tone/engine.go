// ABOUTME: Playback engine bridging the oscillator to an output device
// ABOUTME: Negotiates a float32 stream, fills device buffers and owns stream teardown
package tone

import (
	"context"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Sendspin/sendspin-tone/internal/metrics"
	"github.com/Sendspin/sendspin-tone/pkg/audio"
	"github.com/Sendspin/sendspin-tone/pkg/audio/output"
	"github.com/Sendspin/sendspin-tone/pkg/oscillator"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	DefaultFrequency  = 440.0
	DefaultSampleRate = 44100
	DefaultVolume     = 100

	defaultErrorQueue = 16
)

var (
	// ErrNoOutputDevice is returned when the host has no output device
	ErrNoOutputDevice = output.ErrNoOutputDevice

	// ErrUnsupportedFormat is returned when the device negotiates anything but f32
	ErrUnsupportedFormat = output.ErrUnsupportedFormat
)

// Config holds engine configuration
type Config struct {
	// Frequency is the tone frequency in Hz (default: 440)
	Frequency float64

	// SampleRate is the rate the oscillator runs at and the stream is opened with (default: 44100)
	SampleRate int

	// Volume is a static gain 1-100 (default: 100)
	Volume int

	// Host is the audio subsystem (default: output.NewHost(output.DefaultHost))
	Host output.Host

	// Logger receives engine logs (default: no-op)
	Logger *zap.Logger

	// OnError is called for asynchronous stream errors, off the audio callback
	OnError func(error)

	// ErrorQueue bounds pending asynchronous errors (default: 16)
	ErrorQueue int
}

// State is the engine lifecycle state
type State int32

const (
	StateUninitialized State = iota
	StateStreaming
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateStreaming:
		return "streaming"
	case StateStopped:
		return "stopped"
	default:
		return fmt.Sprintf("State(%d)", int32(s))
	}
}

// Stats contains playback statistics
type Stats struct {
	State        State
	Buffers      uint64
	Samples      uint64
	StreamErrors uint64
}

// sharedOscillator is the oscillator handle shared by the controlling
// goroutine and the audio callback
type sharedOscillator struct {
	mu  sync.Mutex
	osc *oscillator.Oscillator
}

// fill writes the next oscillator sample into every slot of out in device
// order, with no per-channel distinction
func (s *sharedOscillator) fill(out []float32, gain float64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range out {
		out[i] = float32(s.osc.NextSample() * gain)
	}
}

// Engine streams a sine tone to an output device from construction until Close
type Engine struct {
	id     string
	config Config
	logger *zap.Logger

	osc          *sharedOscillator
	gain         float64
	device       output.Device
	stream       output.Stream
	streamConfig audio.StreamConfig

	state     atomic.Int32
	closeOnce sync.Once
	closeErr  error

	errs         chan error
	done         chan struct{}
	reporterDone chan struct{}

	buffers      atomic.Uint64
	samples      atomic.Uint64
	streamErrors atomic.Uint64
}

// NewEngine creates the oscillator, opens the host's default output device
// and starts streaming before returning. Any setup failure is returned and
// leaves no stream running.
func NewEngine(config Config) (*Engine, error) {
	if config.Frequency == 0 {
		config.Frequency = DefaultFrequency
	}
	if config.SampleRate == 0 {
		config.SampleRate = DefaultSampleRate
	}
	if config.Volume == 0 {
		config.Volume = DefaultVolume
	}
	if config.Volume < 0 || config.Volume > 100 {
		return nil, fmt.Errorf("invalid volume %d (expected 1-100)", config.Volume)
	}
	if config.ErrorQueue <= 0 {
		config.ErrorQueue = defaultErrorQueue
	}
	if config.Logger == nil {
		config.Logger = zap.NewNop()
	}

	id := uuid.New().String()
	e := &Engine{
		id:           id,
		config:       config,
		logger:       config.Logger.With(zap.String("stream_id", id)),
		gain:         float64(config.Volume) / 100.0,
		errs:         make(chan error, config.ErrorQueue),
		done:         make(chan struct{}),
		reporterDone: make(chan struct{}),
	}

	osc, err := oscillator.New(config.Frequency, float64(config.SampleRate))
	if err != nil {
		metrics.SetupFailuresTotal.WithLabelValues("oscillator").Inc()
		return nil, fmt.Errorf("failed to create oscillator: %w", err)
	}
	e.osc = &sharedOscillator{osc: osc}

	if config.Host == nil {
		host, err := output.NewHost(output.DefaultHost, config.Logger)
		if err != nil {
			metrics.SetupFailuresTotal.WithLabelValues("host").Inc()
			return nil, fmt.Errorf("failed to create audio host: %w", err)
		}
		e.config.Host = host
	}

	go e.reportErrors()

	if err := e.open(); err != nil {
		close(e.done)
		<-e.reporterDone
		return nil, err
	}

	e.state.Store(int32(StateStreaming))
	metrics.StreamsStartedTotal.Inc()
	metrics.ActiveStreams.Inc()

	e.logger.Info("output stream started",
		zap.String("host", e.config.Host.Name()),
		zap.String("device", e.device.Name()),
		zap.Stringer("config", e.streamConfig),
		zap.Float64("frequency", config.Frequency),
		zap.Int("volume", config.Volume))

	return e, nil
}

// open runs the device setup steps, releasing whatever was acquired on failure
func (e *Engine) open() error {
	host := e.config.Host

	device, err := host.DefaultOutputDevice()
	if err != nil {
		metrics.SetupFailuresTotal.WithLabelValues("device").Inc()
		return fmt.Errorf("failed to find output device on %s: %w", host.Name(), err)
	}
	e.device = device

	cfg, err := device.DefaultOutputConfig()
	if err != nil {
		metrics.SetupFailuresTotal.WithLabelValues("config").Inc()
		closeDevice(device, e.logger)
		return fmt.Errorf("failed to query default output config of %q: %w", device.Name(), err)
	}

	if cfg.Format != audio.FormatF32 {
		metrics.SetupFailuresTotal.WithLabelValues("format").Inc()
		closeDevice(device, e.logger)
		return fmt.Errorf("device %q: %w: %s (only f32 is supported)", device.Name(), ErrUnsupportedFormat, cfg.Format)
	}

	if cfg.SampleRate != e.config.SampleRate {
		e.logger.Debug("overriding device sample rate",
			zap.Int("device_rate", cfg.SampleRate),
			zap.Int("requested_rate", e.config.SampleRate))
		cfg.SampleRate = e.config.SampleRate
	}
	e.streamConfig = cfg

	stream, err := device.BuildOutputStream(cfg, e.fill, e.reportError)
	if err != nil {
		metrics.SetupFailuresTotal.WithLabelValues("build").Inc()
		closeDevice(device, e.logger)
		return fmt.Errorf("failed to build output stream: %w", err)
	}

	if err := stream.Play(); err != nil {
		metrics.SetupFailuresTotal.WithLabelValues("play").Inc()
		if cerr := stream.Close(); cerr != nil {
			e.logger.Warn("failed to close stream after play error", zap.Error(cerr))
		}
		return fmt.Errorf("failed to start output stream: %w", err)
	}
	e.stream = stream
	return nil
}

// fill is the audio callback. It holds the oscillator lock for one buffer
// and does nothing that can block.
func (e *Engine) fill(out []float32) {
	start := time.Now()
	e.osc.fill(out, e.gain)

	e.buffers.Add(1)
	e.samples.Add(uint64(len(out)))
	metrics.BuffersFilledTotal.Inc()
	metrics.SamplesGeneratedTotal.Add(float64(len(out)))
	metrics.FillDuration.Observe(float64(time.Since(start).Microseconds()))
}

// reportError is the stream's error sink; it never blocks the caller
func (e *Engine) reportError(err error) {
	select {
	case e.errs <- err:
	default:
		metrics.StreamErrorsDroppedTotal.Inc()
	}
}

// reportErrors logs and forwards stream errors until the engine is closed
func (e *Engine) reportErrors() {
	defer close(e.reporterDone)

	for {
		select {
		case err := <-e.errs:
			e.handleStreamError(err)
		case <-e.done:
			for {
				select {
				case err := <-e.errs:
					e.handleStreamError(err)
				default:
					return
				}
			}
		}
	}
}

func (e *Engine) handleStreamError(err error) {
	e.streamErrors.Add(1)
	metrics.StreamErrorsTotal.Inc()
	e.logger.Error("an error occurred on the output audio stream", zap.Error(err))
	if e.config.OnError != nil {
		e.config.OnError(err)
	}
}

// Close stops the stream and releases the device. Only the first call does
// any work; later calls return the first call's result.
func (e *Engine) Close() error {
	e.closeOnce.Do(func() {
		if err := e.stream.Close(); err != nil {
			e.closeErr = fmt.Errorf("failed to close output stream: %w", err)
		}
		e.state.Store(int32(StateStopped))
		metrics.ActiveStreams.Dec()

		close(e.done)
		<-e.reporterDone

		stats := e.Stats()
		e.logger.Info("output stream stopped",
			zap.Uint64("buffers", stats.Buffers),
			zap.Uint64("samples", stats.Samples),
			zap.Uint64("stream_errors", stats.StreamErrors))
	})
	return e.closeErr
}

// PlayFor keeps the engine streaming for d (or until ctx is done when d <= 0)
// and then closes it.
func (e *Engine) PlayFor(ctx context.Context, d time.Duration) error {
	var timeout <-chan time.Time
	if d > 0 {
		timer := time.NewTimer(d)
		defer timer.Stop()
		timeout = timer.C
	}

	select {
	case <-timeout:
		e.logger.Debug("playback duration elapsed", zap.Duration("duration", d))
	case <-ctx.Done():
		e.logger.Info("playback interrupted", zap.Error(ctx.Err()))
	}
	return e.Close()
}

// ID returns the stream ID attached to the engine's logs
func (e *Engine) ID() string { return e.id }

// State returns the current lifecycle state
func (e *Engine) State() State { return State(e.state.Load()) }

// StreamConfig returns the negotiated stream config
func (e *Engine) StreamConfig() audio.StreamConfig { return e.streamConfig }

// DeviceName returns the name of the device being played to
func (e *Engine) DeviceName() string { return e.device.Name() }

// Stats returns a snapshot of playback statistics
func (e *Engine) Stats() Stats {
	return Stats{
		State:        e.State(),
		Buffers:      e.buffers.Load(),
		Samples:      e.samples.Load(),
		StreamErrors: e.streamErrors.Load(),
	}
}

// closeDevice releases devices that hold resources before a stream exists
func closeDevice(device output.Device, logger *zap.Logger) {
	c, ok := device.(io.Closer)
	if !ok {
		return
	}
	if err := c.Close(); err != nil {
		logger.Warn("failed to release output device", zap.Error(err))
	}
}
