// ABOUTME: Oto-based audio host implementation
// ABOUTME: Pulls float32 samples through an io.Reader adapter on oto's render goroutine
package output

import (
	"errors"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Sendspin/sendspin-tone/pkg/audio"
	"github.com/ebitengine/oto/v3"
	"go.uber.org/zap"
)

const otoErrorPollInterval = 250 * time.Millisecond

// oto allows one context per process, so it is shared by every stream
var otoShared struct {
	mu         sync.Mutex
	ctx        *oto.Context
	sampleRate int
	channels   int
	inUse      bool
}

type otoHost struct {
	logger *zap.Logger
}

// NewOto creates an oto host
func NewOto(logger *zap.Logger) (Host, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &otoHost{logger: logger}, nil
}

func (h *otoHost) Name() string { return "oto" }

// DefaultOutputDevice returns the system default device; oto exposes no
// enumeration, so device absence surfaces when the context is created.
func (h *otoHost) DefaultOutputDevice() (Device, error) {
	return &otoDevice{logger: h.logger}, nil
}

type otoDevice struct {
	logger *zap.Logger
}

func (d *otoDevice) Name() string { return "oto default" }

func (d *otoDevice) DefaultOutputConfig() (audio.StreamConfig, error) {
	otoShared.mu.Lock()
	defer otoShared.mu.Unlock()

	// an existing context pins the format for the rest of the process
	if otoShared.ctx != nil {
		return audio.StreamConfig{
			Format:     audio.FormatF32,
			Channels:   otoShared.channels,
			SampleRate: otoShared.sampleRate,
		}, nil
	}
	return audio.StreamConfig{
		Format:     audio.FormatF32,
		Channels:   fallbackChannels,
		SampleRate: fallbackSampleRate,
	}, nil
}

func (d *otoDevice) BuildOutputStream(cfg audio.StreamConfig, fill FillFunc, onError ErrorFunc) (Stream, error) {
	if err := requireF32(cfg); err != nil {
		return nil, err
	}

	otoShared.mu.Lock()
	defer otoShared.mu.Unlock()

	if otoShared.inUse {
		return nil, errors.New("oto context already has an active stream")
	}

	if otoShared.ctx == nil {
		op := &oto.NewContextOptions{
			SampleRate:   cfg.SampleRate,
			ChannelCount: cfg.Channels,
			Format:       oto.FormatFloat32LE,
		}
		ctx, readyChan, err := oto.NewContext(op)
		if err != nil {
			return nil, fmt.Errorf("%w: failed to create oto context: %v", ErrNoOutputDevice, err)
		}
		<-readyChan

		otoShared.ctx = ctx
		otoShared.sampleRate = cfg.SampleRate
		otoShared.channels = cfg.Channels
	} else {
		if otoShared.sampleRate != cfg.SampleRate || otoShared.channels != cfg.Channels {
			return nil, fmt.Errorf("oto context is fixed at %dHz/%dch, cannot open %s",
				otoShared.sampleRate, otoShared.channels, cfg)
		}
		if err := otoShared.ctx.Resume(); err != nil {
			return nil, fmt.Errorf("failed to resume oto context: %w", err)
		}
	}
	if err := otoShared.ctx.Err(); err != nil {
		return nil, fmt.Errorf("oto context failed: %w", err)
	}

	reader := &otoReader{fill: fill, channels: cfg.Channels}
	s := &otoStream{
		ctx:     otoShared.ctx,
		reader:  reader,
		player:  otoShared.ctx.NewPlayer(reader),
		onError: onError,
		logger:  d.logger,
		done:    make(chan struct{}),
	}
	otoShared.inUse = true
	return s, nil
}

// otoReader adapts a FillFunc to the byte stream oto pulls from
type otoReader struct {
	fill     FillFunc
	channels int
	buf      []float32
	closed   atomic.Bool
}

func (r *otoReader) Read(p []byte) (int, error) {
	if r.closed.Load() {
		return 0, io.EOF
	}

	frameBytes := 4 * r.channels
	frames := len(p) / frameBytes
	if frames == 0 {
		return 0, nil
	}

	n := frames * r.channels
	if cap(r.buf) < n {
		r.buf = make([]float32, n)
	}
	samples := r.buf[:n]
	r.fill(samples)
	audio.PutFloat32LE(p, samples)
	return n * 4, nil
}

type otoStream struct {
	ctx     *oto.Context
	reader  *otoReader
	player  *oto.Player
	onError ErrorFunc
	logger  *zap.Logger

	mu      sync.Mutex
	started bool
	closed  bool
	done    chan struct{}
	wg      sync.WaitGroup
}

func (s *otoStream) Play() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrStreamClosed
	}
	if s.started {
		return nil
	}
	s.player.Play()
	if err := s.player.Err(); err != nil {
		return fmt.Errorf("failed to start oto player: %w", err)
	}
	s.started = true

	s.wg.Add(1)
	go s.watchErrors()
	return nil
}

// watchErrors forwards context and player errors, each distinct one once
func (s *otoStream) watchErrors() {
	defer s.wg.Done()

	ticker := time.NewTicker(otoErrorPollInterval)
	defer ticker.Stop()

	var lastCtxErr, lastPlayerErr error
	for {
		select {
		case <-s.done:
			return
		case <-ticker.C:
			if err := s.ctx.Err(); err != nil && err != lastCtxErr {
				lastCtxErr = err
				s.report(fmt.Errorf("oto context: %w", err))
			}
			if err := s.player.Err(); err != nil && err != lastPlayerErr {
				lastPlayerErr = err
				s.report(fmt.Errorf("oto player: %w", err))
			}
		}
	}
}

func (s *otoStream) report(err error) {
	if s.onError != nil {
		s.onError(err)
	}
}

func (s *otoStream) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.reader.closed.Store(true)
	close(s.done)
	s.mu.Unlock()

	s.wg.Wait()

	var errs []error
	if err := s.player.Close(); err != nil {
		errs = append(errs, fmt.Errorf("failed to close oto player: %w", err))
	}

	otoShared.mu.Lock()
	if err := s.ctx.Suspend(); err != nil {
		errs = append(errs, fmt.Errorf("failed to suspend oto context: %w", err))
	}
	otoShared.inUse = false
	otoShared.mu.Unlock()

	return errors.Join(errs...)
}
