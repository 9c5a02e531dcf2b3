// ABOUTME: High-level tone playback API
// ABOUTME: Engine streams a sine tone to the default output device
// Package tone plays a continuous sine tone on an output device.
//
// NewEngine builds the oscillator, negotiates a float32 stream with the
// host's default output device and starts playback before returning. The
// host's audio callback pulls one oscillator sample per frame; Close is the
// only way to stop.
//
// Example:
//
//	engine, err := tone.NewEngine(tone.Config{
//	    Frequency:  440,
//	    SampleRate: 44100,
//	})
//	defer engine.Close()
//	time.Sleep(5 * time.Second)
package tone
