// Package kisslog wires the two loggers of the daemon: a logrus logger for
// component lifecycle and request logging, and a global zap logger for
// hot-path code, matching the split in the teacher repo's core/storage.go.
// No package in this module currently logs through the zap logger.
package kisslog

import (
	"os"

	"github.com/sirupsen/logrus"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New builds the logrus logger used for component-level logging, writing to
// file if path is non-empty and stderr otherwise.
func New(level, file string) (*logrus.Logger, error) {
	lg := logrus.New()
	lg.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		lvl = logrus.InfoLevel
	}
	lg.SetLevel(lvl)

	if file != "" {
		f, err := os.OpenFile(file, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, err
		}
		lg.SetOutput(f)
	}
	return lg, nil
}

// InitHotPath installs a global zap logger (zap.L()) for hot-path code,
// where allocating a logrus *Entry per call would show up in profiles.
func InitHotPath(level string) error {
	zapLevel := zapcore.InfoLevel
	_ = zapLevel.UnmarshalText([]byte(level))

	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(zapLevel)
	logger, err := cfg.Build()
	if err != nil {
		return err
	}
	zap.ReplaceGlobals(logger)
	return nil
}
