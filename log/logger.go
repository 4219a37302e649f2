// Package log wraps zap behind the small leveled Logger handle that the
// node passes to every component.
package log

import (
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Config controls where and how much the node logs.
type Config struct {
	Level      string `yaml:"level"`    // debug, info, warn, error
	Encoding   string `yaml:"encoding"` // console or json
	ToConsole  bool   `yaml:"toConsole"`
	FilePath   string `yaml:"filePath"` // empty disables file output
	MaxSizeMB  int    `yaml:"maxSizeMB"`
	MaxBackups int    `yaml:"maxBackups"`
	MaxAgeDays int    `yaml:"maxAgeDays"`
}

func DefaultConfig() Config {
	return Config{
		Level:      "info",
		Encoding:   "console",
		ToConsole:  true,
		MaxSizeMB:  100,
		MaxBackups: 5,
		MaxAgeDays: 30,
	}
}

type Logger struct {
	Level string
	zl    *zap.Logger
}

func New(cfg Config) (*Logger, error) {
	var lvl zapcore.Level
	if err := lvl.UnmarshalText([]byte(strings.ToLower(cfg.Level))); err != nil {
		return nil, fmt.Errorf("invalid log level %q", cfg.Level)
	}

	encCfg := zap.NewProductionEncoderConfig()
	encCfg.TimeKey = "time"
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder

	var enc zapcore.Encoder
	switch cfg.Encoding {
	case "json":
		enc = zapcore.NewJSONEncoder(encCfg)
	case "", "console":
		encCfg.EncodeLevel = zapcore.CapitalLevelEncoder
		enc = zapcore.NewConsoleEncoder(encCfg)
	default:
		return nil, fmt.Errorf("invalid log encoding %q", cfg.Encoding)
	}

	var cores []zapcore.Core
	if cfg.ToConsole {
		cores = append(cores, zapcore.NewCore(enc, zapcore.Lock(os.Stderr), lvl))
	}
	if cfg.FilePath != "" {
		rotator := &lumberjack.Logger{
			Filename:   cfg.FilePath,
			MaxSize:    cfg.MaxSizeMB,
			MaxBackups: cfg.MaxBackups,
			MaxAge:     cfg.MaxAgeDays,
		}
		cores = append(cores, zapcore.NewCore(enc, zapcore.AddSync(rotator), lvl))
	}
	if len(cores) == 0 {
		return Nop(), nil
	}

	return &Logger{
		Level: lvl.String(),
		zl:    zap.New(zapcore.NewTee(cores...)),
	}, nil
}

// NewWithCore is used by tests that want to observe entries.
func NewWithCore(core zapcore.Core) *Logger {
	return &Logger{Level: "debug", zl: zap.New(core)}
}

// Nop discards everything.
func Nop() *Logger {
	return &Logger{Level: "none", zl: zap.NewNop()}
}

// With returns a child logger that stamps fields on every entry.
func (l *Logger) With(fields ...zap.Field) *Logger {
	return &Logger{Level: l.Level, zl: l.zl.With(fields...)}
}

// Named tags entries with a module name, e.g. "chain" or "rpc".
func (l *Logger) Named(module string) *Logger {
	return l.With(zap.String("module", module))
}

func (l *Logger) Debug(msg string, fields ...zap.Field) { l.zl.Debug(msg, fields...) }
func (l *Logger) Info(msg string, fields ...zap.Field)  { l.zl.Info(msg, fields...) }
func (l *Logger) Warn(msg string, fields ...zap.Field)  { l.zl.Warn(msg, fields...) }
func (l *Logger) Error(msg string, fields ...zap.Field) { l.zl.Error(msg, fields...) }

// Sync flushes buffered entries.
func (l *Logger) Sync() error {
	return l.zl.Sync()
}
