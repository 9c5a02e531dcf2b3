// ABOUTME: Audio type definitions
// ABOUTME: Defines sample formats, stream configuration and float32 PCM packing
package audio

import (
	"encoding/binary"
	"fmt"
	"math"
	"time"
)

// SampleFormat tags the sample representation a device expects
type SampleFormat int

const (
	FormatUnknown SampleFormat = iota
	FormatU8
	FormatS16
	FormatS24
	FormatS32
	FormatF32
)

func (f SampleFormat) String() string {
	switch f {
	case FormatU8:
		return "u8"
	case FormatS16:
		return "s16"
	case FormatS24:
		return "s24"
	case FormatS32:
		return "s32"
	case FormatF32:
		return "f32"
	default:
		return fmt.Sprintf("unknown(%d)", int(f))
	}
}

// BytesPerSample returns the size of one sample slot, or 0 for FormatUnknown
func (f SampleFormat) BytesPerSample() int {
	switch f {
	case FormatU8:
		return 1
	case FormatS16:
		return 2
	case FormatS24:
		return 3
	case FormatS32, FormatF32:
		return 4
	default:
		return 0
	}
}

// StreamConfig describes a negotiated output stream
type StreamConfig struct {
	Format     SampleFormat
	Channels   int
	SampleRate int
}

// Validate checks that the config can describe a playable stream
func (c StreamConfig) Validate() error {
	if c.Channels <= 0 {
		return fmt.Errorf("invalid channel count: %d", c.Channels)
	}
	if c.SampleRate <= 0 {
		return fmt.Errorf("invalid sample rate: %d", c.SampleRate)
	}
	if c.Format.BytesPerSample() == 0 {
		return fmt.Errorf("invalid sample format: %s", c.Format)
	}
	return nil
}

// BytesPerFrame returns the size of one interleaved frame
func (c StreamConfig) BytesPerFrame() int {
	return c.Format.BytesPerSample() * c.Channels
}

// FramesFor returns how many frames cover d at the config's sample rate
func (c StreamConfig) FramesFor(d time.Duration) int {
	return int(int64(d) * int64(c.SampleRate) / int64(time.Second))
}

// DurationOf returns the playback time of n frames
func (c StreamConfig) DurationOf(frames int) time.Duration {
	if c.SampleRate <= 0 {
		return 0
	}
	return time.Duration(int64(frames) * int64(time.Second) / int64(c.SampleRate))
}

func (c StreamConfig) String() string {
	return fmt.Sprintf("%dHz/%dch/%s", c.SampleRate, c.Channels, c.Format)
}

// PutFloat32LE packs samples into dst as little-endian IEEE-754 floats.
// Returns the number of samples written; a trailing partial sample slot in
// dst is left untouched.
func PutFloat32LE(dst []byte, samples []float32) int {
	n := len(dst) / 4
	if len(samples) < n {
		n = len(samples)
	}
	for i := 0; i < n; i++ {
		binary.LittleEndian.PutUint32(dst[i*4:], math.Float32bits(samples[i]))
	}
	return n
}

// Float32LE decodes the little-endian float at the start of b
func Float32LE(b []byte) float32 {
	return math.Float32frombits(binary.LittleEndian.Uint32(b))
}
