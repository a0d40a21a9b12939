package logger

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// NewLogger builds the process logger. Development mode keeps the console
// encoder, otherwise output is JSON at the given level.
func NewLogger(level string, development bool) (*zap.Logger, error) {
	loggerConfig := zap.NewProductionConfig()
	if development {
		loggerConfig = zap.NewDevelopmentConfig()
	}
	loggerConfig.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	if level != "" {
		lvl, err := zapcore.ParseLevel(level)
		if err != nil {
			return nil, err
		}
		loggerConfig.Level = zap.NewAtomicLevelAt(lvl)
	}

	return loggerConfig.Build()
}
