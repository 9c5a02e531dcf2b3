//go:build portaudio

// ABOUTME: PortAudio host implementation
// ABOUTME: Cross-platform float32 callback streams using PortAudio
package output

import (
	"errors"
	"fmt"
	"sync"

	"github.com/Sendspin/sendspin-tone/pkg/audio"
	"github.com/gordonklaus/portaudio"
	"go.uber.org/zap"
)

type portAudioHost struct {
	logger *zap.Logger
}

// NewPortAudio creates a PortAudio host
func NewPortAudio(logger *zap.Logger) (Host, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &portAudioHost{logger: logger}, nil
}

func (h *portAudioHost) Name() string { return "portaudio" }

// DefaultOutputDevice initializes PortAudio; the returned device (or the
// stream built from it) holds the matching Terminate.
func (h *portAudioHost) DefaultOutputDevice() (Device, error) {
	if err := portaudio.Initialize(); err != nil {
		return nil, fmt.Errorf("failed to initialize portaudio: %w", err)
	}
	info, err := portaudio.DefaultOutputDevice()
	if err != nil || info == nil {
		portaudio.Terminate()
		return nil, noDeviceError(err)
	}
	return &portAudioDevice{info: info, logger: h.logger, initialized: true}, nil
}

type portAudioDevice struct {
	mu          sync.Mutex
	info        *portaudio.DeviceInfo
	logger      *zap.Logger
	initialized bool
}

func (d *portAudioDevice) Name() string { return d.info.Name }

func (d *portAudioDevice) DefaultOutputConfig() (audio.StreamConfig, error) {
	channels := d.info.MaxOutputChannels
	if channels > fallbackChannels {
		channels = fallbackChannels
	}
	if channels <= 0 {
		return audio.StreamConfig{}, fmt.Errorf("device %q has no output channels", d.info.Name)
	}
	// PortAudio converts to the host format, so f32 is always negotiable
	return audio.StreamConfig{
		Format:     audio.FormatF32,
		Channels:   channels,
		SampleRate: int(d.info.DefaultSampleRate),
	}, nil
}

func (d *portAudioDevice) BuildOutputStream(cfg audio.StreamConfig, fill FillFunc, onError ErrorFunc) (Stream, error) {
	if err := requireF32(cfg); err != nil {
		return nil, err
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.initialized {
		return nil, ErrStreamClosed
	}

	params := portaudio.HighLatencyParameters(nil, d.info)
	params.Output.Channels = cfg.Channels
	params.SampleRate = float64(cfg.SampleRate)

	stream, err := portaudio.OpenStream(params, func(out []float32, _ portaudio.StreamCallbackTimeInfo, flags portaudio.StreamCallbackFlags) {
		if flags&portaudio.OutputUnderflow != 0 && onError != nil {
			onError(errors.New("output underflow"))
		}
		fill(out)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open stream: %w", err)
	}

	// the stream terminates PortAudio from here on
	d.initialized = false
	return &portAudioStream{stream: stream}, nil
}

// Close terminates PortAudio if no stream was built
func (d *portAudioDevice) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.initialized {
		return nil
	}
	d.initialized = false
	return portaudio.Terminate()
}

type portAudioStream struct {
	mu     sync.Mutex
	stream *portaudio.Stream
	closed bool
}

func (s *portAudioStream) Play() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrStreamClosed
	}
	return s.stream.Start()
}

func (s *portAudioStream) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true

	var errs []error
	if err := s.stream.Stop(); err != nil {
		errs = append(errs, err)
	}
	if err := s.stream.Close(); err != nil {
		errs = append(errs, err)
	}
	if err := portaudio.Terminate(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}
