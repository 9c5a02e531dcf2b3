// ABOUTME: Audio host boundary definitions
// ABOUTME: Host, Device and Stream interfaces shared by all playback backends
package output

import (
	"errors"
	"fmt"
	"sort"
	"unsafe"

	"github.com/Sendspin/sendspin-tone/pkg/audio"
	"go.uber.org/zap"
)

var (
	// ErrNoOutputDevice is returned when the host has no default output device
	ErrNoOutputDevice = errors.New("no output device available")

	// ErrUnsupportedFormat is returned when a backend cannot open the requested sample format
	ErrUnsupportedFormat = errors.New("unsupported sample format")

	// ErrStreamClosed is returned by Play after Close
	ErrStreamClosed = errors.New("stream closed")
)

// FillFunc fills an interleaved float32 buffer on the host's callback goroutine.
// It must not block.
type FillFunc func(out []float32)

// ErrorFunc receives asynchronous stream errors
type ErrorFunc func(err error)

// Host represents a platform audio subsystem
type Host interface {
	// Name returns the backend name
	Name() string

	// DefaultOutputDevice resolves the default playback device
	DefaultOutputDevice() (Device, error)
}

// Device represents an output device
type Device interface {
	// Name returns a human-readable device name
	Name() string

	// DefaultOutputConfig returns the device's preferred stream config
	DefaultOutputConfig() (audio.StreamConfig, error)

	// BuildOutputStream opens a stream bound to fill and onError.
	// The stream is not started until Play is called.
	BuildOutputStream(cfg audio.StreamConfig, fill FillFunc, onError ErrorFunc) (Stream, error)
}

// Stream is a live output stream
type Stream interface {
	// Play starts pulling samples from the fill callback
	Play() error

	// Close stops the stream and releases device resources.
	// The fill callback is not invoked after Close returns. Safe to call twice.
	Close() error
}

// HostFactory constructs a Host
type HostFactory func(logger *zap.Logger) (Host, error)

var hosts = map[string]HostFactory{
	"malgo":     NewMalgo,
	"oto":       NewOto,
	"portaudio": NewPortAudio,
	"null": func(logger *zap.Logger) (Host, error) {
		return NewNull(NullConfig{Logger: logger}), nil
	},
}

// DefaultHost is the backend used when none is named
const DefaultHost = "malgo"

// NewHost constructs the named backend
func NewHost(name string, logger *zap.Logger) (Host, error) {
	if name == "" {
		name = DefaultHost
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	factory, ok := hosts[name]
	if !ok {
		return nil, fmt.Errorf("unknown audio backend %q (available: %v)", name, HostNames())
	}
	return factory(logger.Named(name))
}

// HostNames lists the registered backends
func HostNames() []string {
	names := make([]string, 0, len(hosts))
	for name := range hosts {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// requireF32 rejects configs the float32 callback cannot serve
func requireF32(cfg audio.StreamConfig) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	if cfg.Format != audio.FormatF32 {
		return fmt.Errorf("%w: %s", ErrUnsupportedFormat, cfg.Format)
	}
	return nil
}

// noDeviceError wraps a backend's lookup failure; a lookup that simply found
// nothing yields the bare sentinel.
func noDeviceError(err error) error {
	if err == nil {
		return ErrNoOutputDevice
	}
	return fmt.Errorf("%w: %v", ErrNoOutputDevice, err)
}

// renderF32 serves a native-endian float32 callback buffer of the given sample
// count. Short buffers and closing streams get silence instead of fill.
func renderF32(buf []byte, samples int, silent bool, fill FillFunc) {
	if samples == 0 || len(buf) < samples*4 || silent {
		clear(buf)
		return
	}
	fill(unsafe.Slice((*float32)(unsafe.Pointer(&buf[0])), samples))
}
