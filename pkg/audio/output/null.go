// ABOUTME: Null audio host with no hardware behind it
// ABOUTME: Paces fill callbacks with a timer or lets callers pull buffers directly
package output

import (
	"fmt"
	"sync"
	"time"

	"github.com/Sendspin/sendspin-tone/pkg/audio"
	"go.uber.org/zap"
)

const defaultNullPeriod = 10 * time.Millisecond

// NullConfig configures a NullHost. The zero value is a stereo 44.1kHz f32
// device paced every 10ms.
type NullConfig struct {
	Logger *zap.Logger

	// Config is reported as the device's default output config
	Config audio.StreamConfig

	// Period is the interval between paced callbacks
	Period time.Duration

	// Manual disables the pacing goroutine; buffers are pulled with NullStream.Pull
	Manual bool

	// NoDevice makes DefaultOutputDevice fail with ErrNoOutputDevice
	NoDevice bool

	// ConfigErr, BuildErr and PlayErr fail the corresponding setup step
	ConfigErr error
	BuildErr  error
	PlayErr   error
}

// NullHost is a Host that needs no audio hardware
type NullHost struct {
	config NullConfig
	logger *zap.Logger

	mu      sync.Mutex
	streams []*NullStream
}

// NewNull creates a null host
func NewNull(config NullConfig) *NullHost {
	if config.Logger == nil {
		config.Logger = zap.NewNop()
	}
	if config.Config == (audio.StreamConfig{}) {
		config.Config = audio.StreamConfig{
			Format:     audio.FormatF32,
			Channels:   fallbackChannels,
			SampleRate: 44100,
		}
	}
	if config.Period <= 0 {
		config.Period = defaultNullPeriod
	}
	return &NullHost{config: config, logger: config.Logger}
}

func (h *NullHost) Name() string { return "null" }

func (h *NullHost) DefaultOutputDevice() (Device, error) {
	if h.config.NoDevice {
		return nil, ErrNoOutputDevice
	}
	return &nullDevice{host: h}, nil
}

// Streams returns every stream built so far, oldest first
func (h *NullHost) Streams() []*NullStream {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]*NullStream(nil), h.streams...)
}

// LastStream returns the most recently built stream, or nil
func (h *NullHost) LastStream() *NullStream {
	h.mu.Lock()
	defer h.mu.Unlock()
	if len(h.streams) == 0 {
		return nil
	}
	return h.streams[len(h.streams)-1]
}

type nullDevice struct {
	host *NullHost
}

func (d *nullDevice) Name() string { return "null output" }

func (d *nullDevice) DefaultOutputConfig() (audio.StreamConfig, error) {
	if d.host.config.ConfigErr != nil {
		return audio.StreamConfig{}, d.host.config.ConfigErr
	}
	return d.host.config.Config, nil
}

func (d *nullDevice) BuildOutputStream(cfg audio.StreamConfig, fill FillFunc, onError ErrorFunc) (Stream, error) {
	if d.host.config.BuildErr != nil {
		return nil, d.host.config.BuildErr
	}
	if err := requireF32(cfg); err != nil {
		return nil, err
	}

	s := &NullStream{
		config:  cfg,
		period:  d.host.config.Period,
		manual:  d.host.config.Manual,
		playErr: d.host.config.PlayErr,
		fill:    fill,
		onError: onError,
		logger:  d.host.logger,
		stop:    make(chan struct{}),
	}

	d.host.mu.Lock()
	d.host.streams = append(d.host.streams, s)
	d.host.mu.Unlock()
	return s, nil
}

// NullStream is the stream built by a NullHost
type NullStream struct {
	config  audio.StreamConfig
	period  time.Duration
	manual  bool
	playErr error
	fill    FillFunc
	onError ErrorFunc
	logger  *zap.Logger

	mu        sync.Mutex
	playing   bool
	closed    bool
	callbacks int
	frames    int
	stop      chan struct{}
	wg        sync.WaitGroup
}

// Config returns the config the stream was built with
func (s *NullStream) Config() audio.StreamConfig { return s.config }

func (s *NullStream) Play() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrStreamClosed
	}
	if s.playErr != nil {
		return s.playErr
	}
	if s.playing {
		return nil
	}
	s.playing = true

	if !s.manual {
		s.wg.Add(1)
		go s.loop()
	}
	return nil
}

// loop pulls one period of frames per tick, like a device clock would
func (s *NullStream) loop() {
	defer s.wg.Done()

	frames := s.config.FramesFor(s.period)
	if frames <= 0 {
		frames = 1
	}
	buf := make([]float32, frames*s.config.Channels)

	ticker := time.NewTicker(s.period)
	defer ticker.Stop()

	for {
		select {
		case <-s.stop:
			return
		case <-ticker.C:
			s.mu.Lock()
			if !s.closed {
				s.invoke(buf)
			}
			s.mu.Unlock()
		}
	}
}

// Pull synchronously invokes the fill callback for the given number of
// frames and returns the interleaved samples.
func (s *NullStream) Pull(frames int) ([]float32, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, ErrStreamClosed
	}
	if !s.playing {
		return nil, fmt.Errorf("stream not playing")
	}
	buf := make([]float32, frames*s.config.Channels)
	s.invoke(buf)
	return buf, nil
}

// invoke must be called with s.mu held
func (s *NullStream) invoke(buf []float32) {
	s.fill(buf)
	s.callbacks++
	s.frames += len(buf) / s.config.Channels
}

// InjectError delivers err to the stream's error callback as a device would
func (s *NullStream) InjectError(err error) {
	if s.onError != nil {
		s.onError(err)
	}
}

// Callbacks returns how many times the fill callback ran
func (s *NullStream) Callbacks() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.callbacks
}

// Frames returns the total number of frames filled
func (s *NullStream) Frames() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.frames
}

// Playing reports whether the stream has started and not been closed
func (s *NullStream) Playing() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.playing && !s.closed
}

// Closed reports whether Close has been called
func (s *NullStream) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

func (s *NullStream) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	close(s.stop)
	s.mu.Unlock()

	s.wg.Wait()
	s.logger.Debug("null stream closed", zap.Int("callbacks", s.callbacks), zap.Int("frames", s.frames))
	return nil
}
