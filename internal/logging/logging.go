// Package logging builds the zap logger shared by every build step.
package logging

import (
	"io"
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Options configures New.
type Options struct {
	// Verbose lowers the level to debug.
	Verbose bool
	// File, when set, receives JSON entries through a rotating writer.
	File string
	// Console receives human readable entries. Defaults to os.Stderr.
	Console io.Writer
}

// New returns a logger and a function flushing and closing its outputs.
func New(opts Options) (*zap.Logger, func(), error) {
	level := zapcore.InfoLevel
	if opts.Verbose {
		level = zapcore.DebugLevel
	}
	console := opts.Console
	if console == nil {
		console = os.Stderr
	}

	consoleCfg := zapcore.EncoderConfig{
		MessageKey:       "msg",
		LevelKey:         "level",
		EncodeLevel:      zapcore.CapitalLevelEncoder,
		ConsoleSeparator: " ",
	}
	cores := []zapcore.Core{
		zapcore.NewCore(zapcore.NewConsoleEncoder(consoleCfg), zapcore.AddSync(console), level),
	}

	var fileWriter *lumberjack.Logger
	if opts.File != "" {
		if err := os.MkdirAll(filepath.Dir(opts.File), 0o755); err != nil {
			return nil, nil, err
		}
		fileWriter = &lumberjack.Logger{
			Filename:   opts.File,
			MaxSize:    10,
			MaxBackups: 5,
			MaxAge:     7,
			Compress:   true,
		}
		fileCfg := zap.NewProductionEncoderConfig()
		fileCfg.TimeKey = "ts"
		fileCfg.EncodeTime = zapcore.ISO8601TimeEncoder
		cores = append(cores, zapcore.NewCore(zapcore.NewJSONEncoder(fileCfg), zapcore.AddSync(fileWriter), zapcore.DebugLevel))
	}

	log := zap.New(zapcore.NewTee(cores...))
	closeFn := func() {
		_ = log.Sync()
		if fileWriter != nil {
			_ = fileWriter.Close()
		}
	}
	return log, closeFn, nil
}
