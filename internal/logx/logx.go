package logx

import (
	"sync/atomic"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config selects level and encoding for the process logger.
type Config struct {
	Level  string // debug, info, warn, error
	Format string // json, console
}

var current atomic.Pointer[zap.Logger]

func init() {
	l, err := New(Config{Level: "info", Format: "console"})
	if err != nil {
		l = zap.NewNop()
	}
	current.Store(l)
}

// New builds a zap logger from cfg. Unknown levels fall back to info.
func New(cfg Config) (*zap.Logger, error) {
	var level zapcore.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		level = zapcore.InfoLevel
	}

	zc := zap.NewProductionConfig()
	zc.Level = zap.NewAtomicLevelAt(level)
	zc.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	if cfg.Format == "console" {
		zc.Encoding = "console"
		zc.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}
	zc.DisableStacktrace = true

	return zc.Build()
}

// Init replaces the process logger according to cfg.
func Init(cfg Config) error {
	l, err := New(cfg)
	if err != nil {
		return err
	}
	SetLogger(l)
	return nil
}

// SetLogger swaps the process logger and returns the previous one.
func SetLogger(l *zap.Logger) *zap.Logger {
	if l == nil {
		l = zap.NewNop()
	}
	return current.Swap(l)
}

// L returns the process logger.
func L() *zap.Logger {
	return current.Load()
}

// Sync flushes buffered entries.
func Sync() {
	_ = current.Load().Sync()
}

// --- Public API ---

func Debug(comp, msg string, args ...any) {
	sugar(comp).Debugf(msg, args...)
}

func Info(comp, msg string, args ...any) {
	sugar(comp).Infof(msg, args...)
}

func Warn(comp, msg string, args ...any) {
	sugar(comp).Warnf(msg, args...)
}

func Error(comp, msg string, args ...any) {
	sugar(comp).Errorf(msg, args...)
}

func sugar(comp string) *zap.SugaredLogger {
	return current.Load().With(zap.String("component", comp)).Sugar()
}
