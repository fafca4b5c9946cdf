package logger

import (
	"fmt"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const service = "kindred"

// Logger is the process logger built by Init
var Logger *zap.Logger

// Options selects how the process logs
type Options struct {
	// Env "production" selects JSON output at info level; anything else is
	// colored console output at debug level.
	Env string
	// Level overrides the env default when set ("debug", "info", "warn", ...)
	Level string
}

// Init builds the process logger. Every entry carries the service name and
// environment.
func Init(opts Options) error {
	built, err := build(opts)
	if err != nil {
		return err
	}
	Logger = built
	return nil
}

func build(opts Options) (*zap.Logger, error) {
	config := configFor(opts.Env)

	if lvl := strings.TrimSpace(opts.Level); lvl != "" {
		parsed, err := zapcore.ParseLevel(lvl)
		if err != nil {
			return nil, fmt.Errorf("invalid log level %q: %w", lvl, err)
		}
		config.Level = zap.NewAtomicLevelAt(parsed)
	}

	env := opts.Env
	if env == "" {
		env = "development"
	}
	config.InitialFields = map[string]any{"service": service, "env": env}

	built, err := config.Build()
	if err != nil {
		return nil, err
	}
	return built.Named(service), nil
}

func configFor(env string) zap.Config {
	if env == "production" {
		config := zap.NewProductionConfig()
		config.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
		config.EncoderConfig.TimeKey = "timestamp"
		config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
		return config
	}

	config := zap.NewDevelopmentConfig()
	config.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	config.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	config.EncoderConfig.TimeKey = "timestamp"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	return config
}

// Sync flushes any buffered log entries
func Sync() {
	if Logger != nil {
		_ = Logger.Sync()
	}
}

// Get returns the process logger, falling back to a development logger
func Get() *zap.Logger {
	if Logger == nil {
		logger, _ := zap.NewDevelopment()
		return logger
	}
	return Logger
}
