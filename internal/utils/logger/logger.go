package logger

import (
	"fmt"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const DefaultLevel = "info"

var global *zap.SugaredLogger

// Init sets the process-wide logger once.
func Init(z *zap.SugaredLogger) { global = z }

// Logger returns the process-wide logger. Before Init is called it returns a
// no-op logger so packages can log unconditionally.
func Logger() *zap.SugaredLogger {
	if global == nil {
		return zap.NewNop().Sugar()
	}
	return global
}

// Setup builds a console logger writing to stderr at the given level and
// installs it as the process-wide logger.
func Setup(level string) (*zap.SugaredLogger, error) {
	if strings.TrimSpace(level) == "" {
		level = DefaultLevel
	}
	lvl, err := zapcore.ParseLevel(strings.ToLower(level))
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}

	encoderCfg := zap.NewDevelopmentEncoderConfig()
	encoderCfg.EncodeLevel = zapcore.CapitalLevelEncoder
	encoderCfg.EncodeTime = zapcore.TimeEncoderOfLayout("2006-01-02 15:04:05")

	cfg := zap.Config{
		Level:             zap.NewAtomicLevelAt(lvl),
		Development:       false,
		DisableCaller:     lvl != zapcore.DebugLevel,
		DisableStacktrace: true,
		Encoding:          "console",
		EncoderConfig:     encoderCfg,
		OutputPaths:       []string{"stderr"},
		ErrorOutputPaths:  []string{"stderr"},
	}

	z, err := cfg.Build()
	if err != nil {
		return nil, fmt.Errorf("building logger: %w", err)
	}
	sugar := z.Sugar()
	Init(sugar)
	return sugar, nil
}

// Sync flushes the process-wide logger. Errors from syncing stderr are
// ignored since they are reported on some platforms for unbuffered files.
func Sync() {
	if global != nil {
		_ = global.Sync()
	}
}
