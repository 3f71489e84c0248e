package logger

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var base *zap.Logger

// Init builds the process-wide logger. Development mode switches to the
// human-readable console encoder.
func Init(isDev bool) error {
	var cfg zap.Config
	if isDev {
		cfg = zap.NewDevelopmentConfig()
	} else {
		cfg = zap.NewProductionConfig()
		cfg.EncoderConfig.TimeKey = "timestamp"
		cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	}

	l, err := cfg.Build()
	if err != nil {
		return err
	}
	base = l
	return nil
}

// L returns the process logger; a nop logger before Init.
func L() *zap.Logger {
	if base == nil {
		return zap.NewNop()
	}
	return base
}

func Sync() {
	if base != nil {
		_ = base.Sync()
	}
}
