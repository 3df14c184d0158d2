package logger

import (
	"io"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// WithFile is an option that duplicates every entry accepted by the logger
// into w as JSON lines. The file core follows the shared level set by SetLevel.
//
//nolint:ireturn,nolintlint // Returning zap.Option is intended for zap integration.
func WithFile(w io.Writer) zap.Option {
	return zap.WrapCore(
		func(core zapcore.Core) zapcore.Core {
			return zapcore.NewTee(core, zapcore.NewCore(jsonEncoder(), zapcore.AddSync(w), defaultLevel))
		})
}

// WithMinLevel is an option that raises the minimum level of an existing logger.
// Entries below min are dropped even when the shared level would accept them.
//
//nolint:ireturn,nolintlint // Returning zap.Option is intended for zap integration.
func WithMinLevel(minLevel zapcore.Level) zap.Option {
	return zap.IncreaseLevel(minLevel)
}
