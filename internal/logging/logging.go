package logging

import (
	"fmt"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Options selects where diagnostics go.
type Options struct {
	Level   string
	File    string
	Verbose bool
}

// New builds the diagnostic logger. With no level, file or verbose flag the
// logger discards everything so the terminal stays clean.
func New(opts Options) (*zap.Logger, error) {
	if opts.Level == "" && opts.File == "" && !opts.Verbose {
		return zap.NewNop(), nil
	}

	level := zapcore.WarnLevel
	if opts.Level != "" {
		if err := level.UnmarshalText([]byte(strings.ToLower(opts.Level))); err != nil {
			return nil, fmt.Errorf("invalid log level %q: %w", opts.Level, err)
		}
	}
	if opts.Verbose {
		level = zapcore.DebugLevel
	}

	config := zap.NewDevelopmentConfig()
	config.Level = zap.NewAtomicLevelAt(level)
	config.DisableStacktrace = true
	config.OutputPaths = []string{"stderr"}
	config.ErrorOutputPaths = []string{"stderr"}
	if opts.File != "" {
		config.Encoding = "json"
		config.EncoderConfig = zap.NewProductionEncoderConfig()
		config.OutputPaths = []string{opts.File}
	}

	logger, err := config.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	return logger, nil
}
