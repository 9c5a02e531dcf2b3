// ABOUTME: Logger construction for the tone player
// ABOUTME: Builds a zap logger writing to stdout and an optional log file
package logging

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New builds a logger that writes to stdout and, when logFile is set, appends
// to that file. Debug switches to the human-readable development encoder.
func New(logFile string, debug bool) (*zap.Logger, error) {
	var cfg zap.Config
	if debug {
		cfg = zap.NewDevelopmentConfig()
	} else {
		cfg = zap.NewProductionConfig()
		cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	}

	cfg.OutputPaths = []string{"stdout"}
	if logFile != "" {
		cfg.OutputPaths = append(cfg.OutputPaths, logFile)
	}
	cfg.ErrorOutputPaths = []string{"stderr"}

	return cfg.Build()
}
