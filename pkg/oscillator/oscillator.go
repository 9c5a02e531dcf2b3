// ABOUTME: Stateful sine oscillator
// ABOUTME: Advances a wrapped phase accumulator and emits one sample per call
package oscillator

import (
	"errors"
	"fmt"
	"math"
)

const twoPi = 2 * math.Pi

var (
	// ErrInvalidFrequency is returned for non-positive or non-finite frequencies
	ErrInvalidFrequency = errors.New("invalid frequency")

	// ErrInvalidSampleRate is returned for non-positive or non-finite sample rates
	ErrInvalidSampleRate = errors.New("invalid sample rate")
)

// Oscillator generates a sine wave at a fixed frequency.
//
// An Oscillator is not safe for concurrent use; callers sharing one across
// goroutines must serialize access.
type Oscillator struct {
	frequency      float64
	sampleRate     float64
	phase          float64
	phaseIncrement float64
}

// New creates an oscillator starting at phase 0.
// Frequencies at or above Nyquist are accepted; aliasing is the caller's concern.
func New(frequency, sampleRate float64) (*Oscillator, error) {
	if !(sampleRate > 0) || math.IsInf(sampleRate, 0) {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSampleRate, sampleRate)
	}
	if !(frequency > 0) || math.IsInf(frequency, 0) {
		return nil, fmt.Errorf("%w: %v", ErrInvalidFrequency, frequency)
	}

	return &Oscillator{
		frequency:      frequency,
		sampleRate:     sampleRate,
		phaseIncrement: twoPi * frequency / sampleRate,
	}, nil
}

// NextSample returns sin(phase) and advances the phase by one sample period
func (o *Oscillator) NextSample() float64 {
	sample := math.Sin(o.phase)
	o.phase += o.phaseIncrement
	if o.phase >= twoPi {
		o.phase -= twoPi
		// increments of a full turn or more (frequency >= sampleRate)
		if o.phase >= twoPi {
			o.phase = math.Mod(o.phase, twoPi)
		}
	}
	return sample
}

// Frequency returns the tone frequency in Hz.
func (o *Oscillator) Frequency() float64 { return o.frequency }

// SampleRate returns the output sample rate in Hz.
func (o *Oscillator) SampleRate() float64 { return o.sampleRate }

// Phase returns the phase of the next sample, in [0, 2π).
func (o *Oscillator) Phase() float64 { return o.phase }

// PhaseIncrement returns 2π·frequency/sampleRate.
func (o *Oscillator) PhaseIncrement() float64 { return o.phaseIncrement }
