// Package observability builds the structured logger shared by every component.
package observability

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/cory-johannsen/spelledmobs/internal/config"
)

// Logging bundles the root logger with its runtime-adjustable level.
type Logging struct {
	Logger *zap.Logger
	level  zap.AtomicLevel
	base   zapcore.Level
}

// NewLogger creates a structured logger from the given logging configuration.
//
// Precondition: cfg.Level must be one of "debug", "info", "warn", "error".
// Precondition: cfg.Format must be "json" or "console".
// Postcondition: Returns a configured Logging or a non-nil error.
func NewLogger(cfg config.LoggingConfig) (*Logging, error) {
	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return nil, fmt.Errorf("parsing log level %q: %w", cfg.Level, err)
	}

	var zapCfg zap.Config
	switch cfg.Format {
	case "json":
		zapCfg = zap.NewProductionConfig()
	case "console":
		zapCfg = zap.NewDevelopmentConfig()
	default:
		return nil, fmt.Errorf("unknown log format %q", cfg.Format)
	}

	atom := zap.NewAtomicLevelAt(level)
	zapCfg.Level = atom
	zapCfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	logger, err := zapCfg.Build()
	if err != nil {
		return nil, fmt.Errorf("building logger: %w", err)
	}
	return &Logging{Logger: logger, level: atom, base: level}, nil
}

// SetDebug lowers the level to Debug while on is true and restores the
// configured level otherwise.
func (l *Logging) SetDebug(on bool) {
	if on {
		l.level.SetLevel(zapcore.DebugLevel)
		return
	}
	l.level.SetLevel(l.base)
}

// Level returns the currently effective level.
func (l *Logging) Level() zapcore.Level {
	return l.level.Level()
}

// Component returns a child logger named for one subsystem.
func (l *Logging) Component(name string) *zap.Logger {
	return l.Logger.Named(name)
}
