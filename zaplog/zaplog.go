// Package zaplog logs forma signals with a zap logger.
package zaplog

import (
	"context"
	"os"

	"github.com/zoobzio/capitan"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/zoobzio/forma"
)

// route binds a signal to the level it is logged at.
type route struct {
	signal capitan.Signal
	level  zapcore.Level
}

var routes = []route{
	{forma.StoreCreated, zapcore.DebugLevel},
	{forma.PhaseChanged, zapcore.DebugLevel},
	{forma.FormReset, zapcore.DebugLevel},
	{forma.ValueSet, zapcore.DebugLevel},
	{forma.DirtyMarked, zapcore.DebugLevel},
	{forma.ErrorAdded, zapcore.InfoLevel},
	{forma.ValidationPassed, zapcore.DebugLevel},
	{forma.ValidationFailed, zapcore.InfoLevel},
	{forma.SubmitStarted, zapcore.InfoLevel},
	{forma.SubmitRejected, zapcore.InfoLevel},
	{forma.SubmitSucceeded, zapcore.InfoLevel},
	{forma.SubmitFailed, zapcore.WarnLevel},
	{forma.FollowStarted, zapcore.InfoLevel},
	{forma.FollowStopped, zapcore.InfoLevel},
	{forma.FollowReceived, zapcore.DebugLevel},
	{forma.FollowFailed, zapcore.WarnLevel},
	{forma.FollowApplied, zapcore.DebugLevel},
}

// stringKey is satisfied by capitan string keys.
type stringKey interface {
	Name() string
	From(e *capitan.Event) (string, bool)
}

var stringKeys = []stringKey{
	forma.KeyForm,
	forma.KeyField,
	forma.KeyPhase,
	forma.KeyOldPhase,
	forma.KeyNewPhase,
	forma.KeySubmission,
	forma.KeyContentType,
	forma.KeyError,
}

// Attach logs every forma signal with logger until detach is called.
// Failures are logged at warn, submissions and rejections at info and
// routine transitions at debug.
func Attach(logger *zap.Logger) (detach func()) {
	closers := make([]func(), 0, len(routes))
	for _, r := range routes {
		listener := capitan.Hook(r.signal, func(_ context.Context, e *capitan.Event) {
			if ce := logger.Check(r.level, r.signal.Name()); ce != nil {
				ce.Write(Fields(e)...)
			}
		})
		closers = append(closers, func() { listener.Close() })
	}
	return func() {
		for _, closeFn := range closers {
			closeFn()
		}
	}
}

// Fields converts the forma keys present on e to zap fields.
func Fields(e *capitan.Event) []zap.Field {
	fields := make([]zap.Field, 0, 6)
	for _, key := range stringKeys {
		if v, ok := key.From(e); ok {
			fields = append(fields, zap.String(key.Name(), v))
		}
	}
	if v, ok := forma.KeyErrorCount.From(e); ok {
		fields = append(fields, zap.Int(forma.KeyErrorCount.Name(), v))
	}
	if v, ok := forma.KeyDuration.From(e); ok {
		fields = append(fields, zap.Duration(forma.KeyDuration.Name(), v))
	}
	if v, ok := forma.KeyDebounce.From(e); ok {
		fields = append(fields, zap.Duration(forma.KeyDebounce.Name(), v))
	}
	return fields
}

// NewDevelopment builds a console logger at level with ISO8601 timestamps
// and colored levels.
func NewDevelopment(level zapcore.Level) *zap.Logger {
	cfg := zap.NewDevelopmentEncoderConfig()
	cfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
	cfg.EncodeTime = zapcore.ISO8601TimeEncoder
	core := zapcore.NewCore(
		zapcore.NewConsoleEncoder(cfg),
		zapcore.Lock(os.Stderr),
		level,
	)
	return zap.New(core)
}
