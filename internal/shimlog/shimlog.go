// Package shimlog provides structured logging for the shim, wrapping zap.
//
// The shim runs inside a foreign host process, so this logger writes only to
// stderr and is never allowed to touch stdout, which belongs to the host.
package shimlog

import (
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger wraps zap.Logger with shim-specific helpers.
type Logger struct {
	*zap.Logger
}

var (
	// L is the global logger instance, set by Init.
	L    *Logger
	once sync.Once
)

// Init initializes the global logger. Safe to call multiple times; only the
// first call takes effect.
func Init(debug bool) {
	once.Do(func() {
		L = New(debug)
	})
}

// New creates a standalone Logger instance.
func New(debug bool) *Logger {
	var cfg zap.Config
	if debug {
		cfg = zap.NewDevelopmentConfig()
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	} else {
		cfg = zap.NewProductionConfig()
		cfg.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	}

	cfg.OutputPaths = []string{"stderr"}
	cfg.ErrorOutputPaths = []string{"stderr"}
	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	logger, err := cfg.Build(zap.AddCallerSkip(1))
	if err != nil {
		logger = zap.NewNop()
	}

	return &Logger{Logger: logger}
}

// NewNop creates a no-op logger, used by tests that don't call Init.
func NewNop() *Logger {
	return &Logger{Logger: zap.NewNop()}
}

// Patch logs a successful trampoline installation at a symbol's entry.
func (l *Logger) Patch(symbol, object string, pc, target uint64) {
	l.Debug("patch",
		zap.String("sym", symbol),
		zap.String("obj", object),
		Addr(pc),
		zap.Uint64("target", target),
	)
}

// Rendezvous logs a rendezvous-hook invocation.
func (l *Logger) Rendezvous(id string, state int32, patched int) {
	l.Info("rendezvous",
		zap.String("id", id),
		zap.Int32("state", state),
		zap.Int("patched", patched),
	)
}

// Skip logs a link-map entry that was skipped (empty path or deny-listed).
func (l *Logger) Skip(path, reason string) {
	l.Debug("skip", zap.String("path", path), zap.String("reason", reason))
}

// ErrField wraps an error as a zap field, a small convenience for call
// sites that only need one field and would otherwise import zap solely for
// zap.Error.
func ErrField(err error) zap.Field {
	return zap.Error(err)
}

// Addr creates a hex-formatted address field.
func Addr(addr uint64) zap.Field {
	return zap.String("addr", Hex(addr))
}

// Hex formats a uint64 as a 0x-prefixed hex string.
func Hex(v uint64) string {
	return "0x" + hexString(v)
}

func hexString(v uint64) string {
	const digits = "0123456789abcdef"
	if v == 0 {
		return "0"
	}
	buf := make([]byte, 16)
	i := len(buf)
	for v > 0 {
		i--
		buf[i] = digits[v&0xf]
		v >>= 4
	}
	return string(buf[i:])
}
