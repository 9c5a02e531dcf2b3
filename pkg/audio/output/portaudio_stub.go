//go:build !portaudio

// ABOUTME: PortAudio stub when library not available
// ABOUTME: Provides compile-time placeholder when PortAudio not installed
package output

import (
	"errors"

	"go.uber.org/zap"
)

// NewPortAudio reports that PortAudio support was not compiled in
func NewPortAudio(_ *zap.Logger) (Host, error) {
	return nil, errors.New("PortAudio support not enabled (build with -tags portaudio)")
}
