// ABOUTME: Audio fundamentals package providing core types and utilities
// ABOUTME: Defines SampleFormat, StreamConfig and float32 packing helpers
// Package audio provides the types shared by the oscillator, the playback
// engine and the host backends.
//
// A StreamConfig is what a device reports as its default output
// configuration and what a backend is asked to open:
//
//	cfg := audio.StreamConfig{
//	    Format:     audio.FormatF32,
//	    Channels:   2,
//	    SampleRate: 48000,
//	}
//
//	frames := cfg.FramesFor(10 * time.Millisecond) // 480
package audio
