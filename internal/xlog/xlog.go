// Package xlog owns the process-wide zap logger. Until Init is called every
// helper writes nowhere.
package xlog

import (
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

var (
	base  = zap.NewNop()
	sugar = base.Sugar()
)

type Options struct {
	Name   string
	Path   string // empty means stdout only
	Debug  bool
	Stdout bool
}

// Init replaces the global logger. Log files are rotated by lumberjack.
func Init(opts Options) error {
	l, err := New(opts)
	if err != nil {
		return err
	}
	Set(l)
	return nil
}

func New(opts Options) (*zap.Logger, error) {
	if opts.Name == "" {
		opts.Name = "personifid"
	}

	encoderConfig := zapcore.EncoderConfig{
		MessageKey:     "msg",
		LevelKey:       "level",
		TimeKey:        "time",
		NameKey:        "logger",
		CallerKey:      "file",
		StacktraceKey:  "stacktrace",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    zapcore.LowercaseLevelEncoder,
		EncodeTime:     zapcore.TimeEncoderOfLayout("2006-01-02T15:04:05.000Z07:00"),
		EncodeDuration: zapcore.MillisDurationEncoder,
		EncodeCaller:   zapcore.ShortCallerEncoder,
		EncodeName:     zapcore.FullNameEncoder,
	}

	level := zap.NewAtomicLevelAt(zap.InfoLevel)
	if opts.Debug {
		level.SetLevel(zap.DebugLevel)
	}

	var writes []zapcore.WriteSyncer
	if opts.Path != "" {
		if err := os.MkdirAll(filepath.Dir(opts.Path), 0o755); err != nil {
			return nil, fmt.Errorf("create log directory: %w", err)
		}
		writes = append(writes, zapcore.AddSync(&lumberjack.Logger{
			Filename:   opts.Path,
			MaxSize:    128, // MB
			MaxAge:     30,  // days
			MaxBackups: 30,
		}))
	}
	if opts.Stdout || opts.Path == "" {
		writes = append(writes, zapcore.Lock(os.Stdout))
	}

	core := zapcore.NewCore(
		zapcore.NewJSONEncoder(encoderConfig),
		zapcore.NewMultiWriteSyncer(writes...),
		level,
	)

	zopts := []zap.Option{zap.AddCaller(), zap.Fields(zap.String("app", opts.Name))}
	if opts.Debug {
		zopts = append(zopts, zap.Development())
	}
	return zap.New(core, zopts...), nil
}

// Set installs l as the global logger; tests use it with zaptest/observer.
func Set(l *zap.Logger) {
	base = l
	sugar = l.WithOptions(zap.AddCallerSkip(1)).Sugar()
}

func L() *zap.Logger {
	return base
}

func Sync() {
	_ = base.Sync()
}

func Debugf(format string, args ...any) { sugar.Debugf(format, args...) }

func Infof(format string, args ...any) { sugar.Infof(format, args...) }

func Warnf(format string, args ...any) { sugar.Warnf(format, args...) }

func Errorf(format string, args ...any) { sugar.Errorf(format, args...) }

func Fatalf(format string, args ...any) { sugar.Fatalf(format, args...) }
