// Package logger owns zap construction for the server and the request-scoped
// logger carried through contexts.
package logger

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Options picks the encoding and threshold of the process logger.
type Options struct {
	Env   string // prod writes JSON; dev and local write console lines
	Level string // empty keeps the env default: info for prod, debug otherwise
}

// New builds the process logger. Errors and above carry a stack trace.
func New(opts Options) (*zap.Logger, error) {
	cfg, err := baseConfig(opts.Env)
	if err != nil {
		return nil, err
	}
	if opts.Level != "" {
		level, err := zapcore.ParseLevel(opts.Level)
		if err != nil {
			return nil, fmt.Errorf("invalid log level %q: %w", opts.Level, err)
		}
		cfg.Level.SetLevel(level)
	}

	l, err := cfg.Build(zap.AddStacktrace(zapcore.ErrorLevel))
	if err != nil {
		return nil, fmt.Errorf("build logger: %w", err)
	}
	return l, nil
}

func baseConfig(env string) (zap.Config, error) {
	switch env {
	case "prod":
		cfg := zap.NewProductionConfig()
		cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
		return cfg, nil
	case "local", "dev":
		cfg := zap.NewDevelopmentConfig()
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		return cfg, nil
	}
	return zap.Config{}, fmt.Errorf("unknown environment %q for logger", env)
}

// Component names l after a subsystem and repeats the name as a field, so JSON
// output can be filtered without parsing logger names.
func Component(l *zap.Logger, name string) *zap.Logger {
	return l.Named(name).With(zap.String("component", name))
}
