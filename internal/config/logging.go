package config

import (
	"io"
	"os"

	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

// NewLogger builds a logrus logger from the Log settings. When File is set,
// entries go to a size-rotated file instead of stderr. The returned closer
// releases the file handle and is safe to call when no file is used.
func NewLogger(cfg Log) (*logrus.Logger, io.Closer) {
	logger := logrus.New()
	logger.SetLevel(cfg.Level)
	if cfg.Format == "json" {
		logger.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	if cfg.File == "" {
		logger.SetOutput(os.Stderr)
		return logger, io.NopCloser(nil)
	}
	rotator := &lumberjack.Logger{
		Filename:   cfg.File,
		MaxSize:    10, // megabytes
		MaxBackups: 5,
		MaxAge:     30, // days
		Compress:   true,
	}
	logger.SetOutput(rotator)
	return logger, rotator
}
