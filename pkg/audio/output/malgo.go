// ABOUTME: Malgo-based audio host implementation
// ABOUTME: Enumerates miniaudio playback devices and drives a float32 data callback
package output

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/Sendspin/sendspin-tone/pkg/audio"
	"github.com/gen2brain/malgo"
	"go.uber.org/zap"
)

const (
	fallbackChannels   = 2
	fallbackSampleRate = 48000
)

// malgoHost resolves devices through miniaudio
type malgoHost struct {
	logger *zap.Logger
}

// NewMalgo creates a miniaudio host
func NewMalgo(logger *zap.Logger) (Host, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &malgoHost{logger: logger}, nil
}

func (h *malgoHost) Name() string { return "malgo" }

// DefaultOutputDevice opens a miniaudio context and picks the device flagged
// as default, falling back to the first playback device.
func (h *malgoHost) DefaultOutputDevice() (Device, error) {
	ctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, func(message string) {
		h.logger.Debug("miniaudio", zap.String("message", message))
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize malgo context: %w", err)
	}

	infos, err := ctx.Devices(malgo.Playback)
	if err != nil {
		freeMalgoContext(ctx, h.logger)
		return nil, fmt.Errorf("failed to enumerate playback devices: %w", err)
	}
	if len(infos) == 0 {
		freeMalgoContext(ctx, h.logger)
		return nil, ErrNoOutputDevice
	}

	chosen := infos[0]
	for _, info := range infos {
		if info.IsDefault != 0 {
			chosen = info
			break
		}
	}

	return &malgoDevice{
		ctx:    ctx,
		id:     chosen.ID,
		name:   chosen.Name(),
		logger: h.logger,
	}, nil
}

// malgoDevice owns its miniaudio context until a stream takes it over
type malgoDevice struct {
	mu     sync.Mutex
	ctx    *malgo.AllocatedContext
	id     malgo.DeviceID
	name   string
	logger *zap.Logger
}

func (d *malgoDevice) Name() string { return d.name }

// DefaultOutputConfig reports the device's first native channel count and
// rate. The format is always f32: miniaudio converts to the native format in
// shared mode.
func (d *malgoDevice) DefaultOutputConfig() (audio.StreamConfig, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.ctx == nil {
		return audio.StreamConfig{}, ErrStreamClosed
	}

	info, err := d.ctx.DeviceInfo(malgo.Playback, d.id, malgo.Shared)
	if err != nil {
		return audio.StreamConfig{}, fmt.Errorf("failed to query device %q: %w", d.name, err)
	}

	cfg := audio.StreamConfig{
		Format:     audio.FormatF32,
		Channels:   fallbackChannels,
		SampleRate: fallbackSampleRate,
	}
	if info.FormatCount > 0 {
		native := info.Formats[0]
		if native.Channels > 0 {
			cfg.Channels = int(native.Channels)
		}
		if native.SampleRate > 0 {
			cfg.SampleRate = int(native.SampleRate)
		}
		d.logger.Debug("native device format",
			zap.String("device", d.name),
			zap.String("format", formatFromMalgo(native.Format).String()),
			zap.Uint32("channels", uint32(native.Channels)),
			zap.Uint32("sample_rate", uint32(native.SampleRate)))
	}
	return cfg, nil
}

// BuildOutputStream initializes a stopped playback device
func (d *malgoDevice) BuildOutputStream(cfg audio.StreamConfig, fill FillFunc, onError ErrorFunc) (Stream, error) {
	if err := requireF32(cfg); err != nil {
		return nil, err
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if d.ctx == nil {
		return nil, ErrStreamClosed
	}

	s := &malgoStream{
		ctx:      d.ctx,
		channels: cfg.Channels,
		fill:     fill,
		onError:  onError,
		logger:   d.logger,
	}

	deviceConfig := malgo.DefaultDeviceConfig(malgo.Playback)
	deviceConfig.Playback.DeviceID = d.id.Pointer()
	deviceConfig.Playback.Format = malgo.FormatF32
	deviceConfig.Playback.Channels = uint32(cfg.Channels)
	deviceConfig.SampleRate = uint32(cfg.SampleRate)
	deviceConfig.Alsa.NoMMap = 1

	callbacks := malgo.DeviceCallbacks{
		Data: s.dataCallback,
		Stop: s.stopCallback,
	}

	device, err := malgo.InitDevice(d.ctx.Context, deviceConfig, callbacks)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize playback device %q: %w", d.name, err)
	}
	s.device = device

	// the stream frees the context from here on
	d.ctx = nil
	return s, nil
}

// Close releases the context if no stream was built
func (d *malgoDevice) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.ctx != nil {
		freeMalgoContext(d.ctx, d.logger)
		d.ctx = nil
	}
	return nil
}

type malgoStream struct {
	ctx      *malgo.AllocatedContext
	device   *malgo.Device
	channels int
	fill     FillFunc
	onError  ErrorFunc
	logger   *zap.Logger

	mu      sync.Mutex
	closing atomic.Bool
	closed  bool
}

func (s *malgoStream) Play() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrStreamClosed
	}
	if err := s.device.Start(); err != nil {
		return fmt.Errorf("failed to start device: %w", err)
	}
	return nil
}

func (s *malgoStream) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	s.closing.Store(true)

	var errs []error
	if err := s.device.Stop(); err != nil {
		errs = append(errs, fmt.Errorf("failed to stop device: %w", err))
	}
	// Uninit waits for an in-flight data callback to return
	s.device.Uninit()
	freeMalgoContext(s.ctx, s.logger)
	return errors.Join(errs...)
}

// dataCallback runs on miniaudio's real-time thread
func (s *malgoStream) dataCallback(pOutput, _ []byte, frameCount uint32) {
	renderF32(pOutput, int(frameCount)*s.channels, s.closing.Load(), s.fill)
}

// stopCallback fires for every device stop; only unrequested stops are errors
func (s *malgoStream) stopCallback() {
	if s.closing.Load() || s.onError == nil {
		return
	}
	s.onError(errors.New("playback device stopped unexpectedly"))
}

func freeMalgoContext(ctx *malgo.AllocatedContext, logger *zap.Logger) {
	if err := ctx.Uninit(); err != nil {
		logger.Warn("malgo context uninit error", zap.Error(err))
	}
	ctx.Free()
}

func formatFromMalgo(f malgo.FormatType) audio.SampleFormat {
	switch f {
	case malgo.FormatU8:
		return audio.FormatU8
	case malgo.FormatS16:
		return audio.FormatS16
	case malgo.FormatS24:
		return audio.FormatS24
	case malgo.FormatS32:
		return audio.FormatS32
	case malgo.FormatF32:
		return audio.FormatF32
	default:
		return audio.FormatUnknown
	}
}
