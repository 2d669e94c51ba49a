// Package obs holds the structured-logging plumbing shared by the ring,
// completion, wait, shm, reliable, and facade packages. It is internal
// because the logger is a construction-time option, not public API.
package obs

import "go.uber.org/zap"

// Logger wraps an optional *zap.Logger, defaulting to a no-op so that
// constructing a ring without a logger costs nothing on the hot path (the
// claim/publish/read/commit loop never logs regardless of which logger is
// configured).
type Logger struct {
	z *zap.Logger
}

// New wraps z, falling back to zap.NewNop() when z is nil.
func New(z *zap.Logger) Logger {
	if z == nil {
		z = zap.NewNop()
	}
	return Logger{z: z}
}

// Nop returns a Logger that discards everything.
func Nop() Logger { return Logger{z: zap.NewNop()} }

func (l Logger) Warn(msg string, fields ...zap.Field) {
	l.z.Warn(msg, fields...)
}

func (l Logger) Error(msg string, fields ...zap.Field) {
	l.z.Error(msg, fields...)
}

func (l Logger) Debug(msg string, fields ...zap.Field) {
	l.z.Debug(msg, fields...)
}
