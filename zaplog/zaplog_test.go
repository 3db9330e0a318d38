package zaplog

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/zoobzio/forma"
	formatest "github.com/zoobzio/forma/testing"
)

func TestAttach_LogsSubmissionFailure(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	detach := Attach(zap.New(core))
	defer detach()

	s := forma.MustNew(formatest.LoginConfig()).Name("zaplog-failure")
	for name, v := range map[string]string{"username": "ada", "password": "s3cret"} {
		if _, err := s.SetValue(name, v); err != nil {
			t.Fatal(err)
		}
	}

	submit := s.HandleSubmit(func(context.Context, forma.Values) error {
		return errors.New("offline")
	})
	_ = submit(context.Background(), nil)

	ok := formatest.WaitFor(t, time.Second, func() bool {
		return logs.FilterMessage(forma.SubmitFailed.Name()).
			FilterField(zap.String("form", "zaplog-failure")).Len() == 1
	})
	if !ok {
		t.Fatal("timeout waiting for submit failure log")
	}

	entry := logs.FilterMessage(forma.SubmitFailed.Name()).
		FilterField(zap.String("form", "zaplog-failure")).All()[0]
	if entry.Level != zapcore.WarnLevel {
		t.Errorf("expected warn level, got %s", entry.Level)
	}
	fields := entry.ContextMap()
	if fields["error"] != "offline" {
		t.Errorf("expected error field 'offline', got %v", fields["error"])
	}
	if id, _ := fields["submission"].(string); id == "" {
		t.Error("expected submission id field")
	}
}

func TestAttach_RespectsLevel(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	detach := Attach(zap.New(core))
	defer detach()

	s := forma.MustNew(formatest.LoginConfig()).Name("zaplog-level")
	s.Validate()

	ok := formatest.WaitFor(t, time.Second, func() bool {
		return logs.FilterMessage(forma.ValidationFailed.Name()).
			FilterField(zap.String("form", "zaplog-level")).Len() == 1
	})
	if !ok {
		t.Fatal("timeout waiting for validation failure log")
	}

	entry := logs.FilterMessage(forma.ValidationFailed.Name()).
		FilterField(zap.String("form", "zaplog-level")).All()[0]
	if n, _ := entry.ContextMap()["error_count"].(int64); n != 2 {
		t.Errorf("expected error_count 2, got %v", entry.ContextMap()["error_count"])
	}
	if logs.FilterMessage(forma.PhaseChanged.Name()).FilterField(zap.String("form", "zaplog-level")).Len() != 0 {
		t.Error("debug signals must not be logged at info level")
	}
}

func TestAttach_Detach(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	detach := Attach(zap.New(core))
	detach()

	forma.MustNew(formatest.LoginConfig()).Name("zaplog-detached").MarkAsDirty()

	time.Sleep(50 * time.Millisecond)
	if n := logs.FilterField(zap.String("form", "zaplog-detached")).Len(); n != 0 {
		t.Errorf("expected no logs after detach, got %d", n)
	}
}

func TestNewDevelopment(t *testing.T) {
	logger := NewDevelopment(zapcore.WarnLevel)
	if logger.Core().Enabled(zapcore.InfoLevel) {
		t.Error("expected info to be disabled")
	}
	if !logger.Core().Enabled(zapcore.ErrorLevel) {
		t.Error("expected error to be enabled")
	}
}
