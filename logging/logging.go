// Package logging builds the zap loggers used across tagfs, and the
// field helpers that keep log lines uniform between components.
package logging

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds logging configuration.
type Config struct {
	Level      string // debug, info, warn, error
	Format     string // json, console
	OutputPath string // stdout, stderr, or file path
}

// New builds a logger.  An unparseable level falls back to warn.
func New(cfg Config) (*zap.Logger, error) {
	var level zapcore.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		level = zapcore.WarnLevel
	}

	var config zap.Config
	if cfg.Format == "console" {
		config = zap.NewDevelopmentConfig()
	} else {
		config = zap.NewProductionConfig()
	}
	config.Level = zap.NewAtomicLevelAt(level)
	config.OutputPaths = []string{"stderr"}
	if cfg.OutputPath != "" {
		config.OutputPaths = []string{cfg.OutputPath}
	}

	return config.Build(
		zap.AddStacktrace(zapcore.ErrorLevel),
	)
}

// OrNop returns the logger, or a no-op logger if it's nil.
func OrNop(log *zap.Logger) *zap.Logger {
	if log == nil {
		return zap.NewNop()
	}
	return log
}

// Field helpers for common fields.

func Path(vpath string) zap.Field {
	return zap.String("path", vpath)
}

func Token(token uuid.UUID) zap.Field {
	return zap.Stringer("token", token)
}

func Filter(filter string) zap.Field {
	return zap.String("filter", filter)
}

func Offset(offset int64) zap.Field {
	return zap.Int64("offset", offset)
}

// Size renders a byte count for humans ("12 B", "3.4 MiB").
func Size(n int64) zap.Field {
	if n < 0 {
		return zap.Int64("size", n)
	}
	return zap.String("size", humanize.IBytes(uint64(n)))
}

func Err(err error) zap.Field {
	return zap.Error(err)
}

func Notification(n fmt.Stringer) zap.Field {
	return zap.Stringer("notification", n)
}

func IsDirectory(isDir bool) zap.Field {
	return zap.Bool("directory", isDir)
}
