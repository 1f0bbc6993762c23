package main

import (
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Log file rotation settings.
const (
	logMaxSizeMB  = 100
	logMaxBackups = 5
	logMaxAgeDays = 30
)

// NewLogger builds a logger writing to the console and, when path is not
// empty, to a rotated JSON log file. Development mode logs at debug level
// with a coloured console encoder; otherwise info level and JSON.
func NewLogger(isDevelopment bool, path string) (*zap.Logger, error) {
	level := zapcore.InfoLevel
	if isDevelopment {
		level = zapcore.DebugLevel
	}

	var consoleEncoder zapcore.Encoder
	if isDevelopment {
		cfg := zap.NewDevelopmentEncoderConfig()
		cfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
		consoleEncoder = zapcore.NewConsoleEncoder(cfg)
	} else {
		consoleEncoder = zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig())
	}

	cores := []zapcore.Core{
		zapcore.NewCore(consoleEncoder, zapcore.Lock(os.Stdout), level),
	}

	if path != "" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("create log directory: %w", err)
		}
		file := zapcore.AddSync(&lumberjack.Logger{
			Filename:   path,
			MaxSize:    logMaxSizeMB,
			MaxBackups: logMaxBackups,
			MaxAge:     logMaxAgeDays,
			Compress:   true,
		})
		cores = append(cores, zapcore.NewCore(
			zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig()), file, level))
	}

	return zap.New(zapcore.NewTee(cores...), zap.AddCaller()), nil
}
