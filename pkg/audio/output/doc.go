// ABOUTME: Audio output package for real-time playback
// ABOUTME: Provides the Host boundary and malgo, oto, PortAudio and null backends
// Package output connects a pull-based fill callback to an audio device.
//
// Backends: malgo (miniaudio, default), oto, PortAudio (build with
// -tags portaudio) and null (no hardware, paced by a timer).
//
// Example:
//
//	host, err := output.NewHost("malgo", logger)
//	dev, err := host.DefaultOutputDevice()
//	cfg, err := dev.DefaultOutputConfig()
//	stream, err := dev.BuildOutputStream(cfg, fill, onError)
//	err = stream.Play()
//	defer stream.Close()
package output
