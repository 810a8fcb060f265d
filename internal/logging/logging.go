// Package logging builds the process wide zap logger.
package logging

import (
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/iliyamo/kinder-market/internal/config"
)

// New returns a development (console) or production (JSON) logger.  When
// cfg.File is set, JSON lines are also written to a rotating file.
func New(cfg config.LogConfig, dev bool) (*zap.Logger, error) {
	var zc zap.Config
	if dev {
		zc = zap.NewDevelopmentConfig()
	} else {
		zc = zap.NewProductionConfig()
	}
	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		level = zapcore.InfoLevel
	}
	zc.Level = zap.NewAtomicLevelAt(level)
	zc.OutputPaths = []string{"stdout"}

	if cfg.File == "" {
		return zc.Build(zap.AddCaller())
	}

	if err := os.MkdirAll(filepath.Dir(cfg.File), 0o755); err != nil {
		return nil, err
	}
	consoleEnc := zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig())
	if dev {
		consoleEnc = zapcore.NewConsoleEncoder(zap.NewDevelopmentEncoderConfig())
	}
	core := zapcore.NewTee(
		zapcore.NewCore(
			zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig()),
			zapcore.AddSync(Rotating(cfg.File)),
			zc.Level,
		),
		zapcore.NewCore(consoleEnc, zapcore.AddSync(os.Stdout), zc.Level),
	)
	return zap.New(core, zap.AddCaller()), nil
}

// Rotating returns a size rotated file writer: 64 MB per file, seven
// backups kept for seven days.
func Rotating(path string) *lumberjack.Logger {
	return &lumberjack.Logger{
		Filename:   path,
		MaxSize:    64,
		MaxBackups: 7,
		MaxAge:     7,
	}
}
