package logger

import (
	"fmt"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var global *zap.SugaredLogger

// Init builds the process-wide logger at the given level ("debug", "info",
// "warn", "error"). Called once from main before any component runs.
func Init(level string) error {
	var lvl zapcore.Level
	if err := lvl.Set(level); err != nil {
		return fmt.Errorf("invalid log level %q: %w", level, err)
	}

	encCfg := zap.NewDevelopmentEncoderConfig()
	encCfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
	core := zapcore.NewCore(
		zapcore.NewConsoleEncoder(encCfg),
		zapcore.Lock(os.Stderr),
		lvl,
	)

	global = zap.New(core).Sugar()
	return nil
}

// Logger returns the shared sugared logger. It must never return nil, so
// callers that run before Init (tests, mostly) get a no-op logger.
func Logger() *zap.SugaredLogger {
	if global == nil {
		return zap.NewNop().Sugar()
	}
	return global
}

// Sync flushes buffered log entries. Safe to call on exit paths.
func Sync() {
	if global != nil {
		_ = global.Sync()
	}
}
