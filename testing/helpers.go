// Package testing provides test utilities and helpers for forma stores.
package testing

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/zoobzio/forma"
)

// LoginConfig returns a two-field form whose fields are required strings.
func LoginConfig() forma.Config {
	return forma.Config{
		"username": forma.NewField("", forma.Use(forma.MinLength(1, "Username is required"))),
		"password": forma.NewField("", forma.Use(forma.MinLength(1, "Password is required"))),
	}
}

// WaitFor polls a condition until it returns true or timeout is reached.
// Returns true if the condition was met, false if timeout occurred.
func WaitFor(t *testing.T, timeout time.Duration, condition func() bool) bool {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if condition() {
			return true
		}
		time.Sleep(10 * time.Millisecond)
	}
	return false
}

// WaitForPhase waits until the store reaches the expected phase or timeout occurs.
func WaitForPhase(t *testing.T, s *forma.Store, expected forma.Phase, timeout time.Duration) bool {
	t.Helper()
	return WaitFor(t, timeout, func() bool {
		return s.Current().Phase() == expected
	})
}

// RequirePhase fails the test immediately if the store is not in the expected phase.
func RequirePhase(t *testing.T, s *forma.Store, expected forma.Phase) {
	t.Helper()
	if got := s.Current().Phase(); got != expected {
		t.Fatalf("expected phase %s, got %s", expected, got)
	}
}

// RequireErrors fails the test if the stored errors differ from want.
func RequireErrors(t *testing.T, s *forma.Store, want forma.Errors) {
	t.Helper()
	if diff := cmp.Diff(want, s.Current().Errors); diff != "" {
		t.Fatalf("errors mismatch (-want +got):\n%s", diff)
	}
}

// RequireValues fails the test if the stored values differ from want.
func RequireValues(t *testing.T, s *forma.Store, want forma.Values) {
	t.Helper()
	if diff := cmp.Diff(want, s.Current().Value); diff != "" {
		t.Fatalf("values mismatch (-want +got):\n%s", diff)
	}
}

// Event is a forma.Event that counts PreventDefault calls.
type Event struct {
	mu        sync.Mutex
	prevented int
}

// PreventDefault implements forma.Event.
func (e *Event) PreventDefault() {
	e.mu.Lock()
	e.prevented++
	e.mu.Unlock()
}

// Prevented returns how many times PreventDefault was called.
func (e *Event) Prevented() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.prevented
}

// Recorder is a forma.Callback double that records every invocation and
// returns Err.
type Recorder struct {
	Err error

	mu    sync.Mutex
	calls []forma.Values
}

// Callback returns the recording callback.
func (r *Recorder) Callback() forma.Callback {
	return func(_ context.Context, values forma.Values) error {
		r.mu.Lock()
		r.calls = append(r.calls, values)
		r.mu.Unlock()
		return r.Err
	}
}

// Calls returns the values of every invocation, in order.
func (r *Recorder) Calls() []forma.Values {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]forma.Values(nil), r.calls...)
}

// NewTestStore creates a sync-mode store following a channel, for
// deterministic follow tests. Returns the store and the channel feeding it.
func NewTestStore(t *testing.T, cfg forma.Config) (*forma.Store, chan<- []byte, forma.Watcher) {
	t.Helper()
	ch := make(chan []byte, 10)
	s, err := forma.New(cfg)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	return s.SyncMode(), ch, forma.NewSyncChannelWatcher(ch)
}
