// ABOUTME: Sine oscillator package
// ABOUTME: Phase-accumulator sine generator with a wrapped phase
// Package oscillator provides a single-voice sine generator.
//
// Example:
//
//	osc, err := oscillator.New(440, 44100)
//	sample := osc.NextSample() // 0 on the first call
package oscillator
