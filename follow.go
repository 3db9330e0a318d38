package forma

import (
	"context"
	"fmt"
	"time"

	"github.com/zoobzio/clockz"
)

// Watcher observes a source of form values and emits raw payloads on a
// channel. Implementations must emit the current payload immediately so the
// form starts from the source's values.
type Watcher interface {
	// Watch begins observing the source. The channel is closed when the
	// context is canceled or an unrecoverable error occurs.
	Watch(ctx context.Context) (<-chan []byte, error)
}

// Follow keeps the form in step with a source of values, such as the record
// being edited. Each payload is decoded with the store's codec into typed
// values; keys missing from a payload keep their reset target value.
//
// A pristine form is reset to the received values. A dirty form keeps the
// user's edits and only has its reset target rebound, so a later Reset
// returns to the latest values from the source.
//
// Follow blocks until the first payload is processed and returns its error,
// if any. It then keeps watching in the background until ctx is canceled
// or the watcher closes. In sync mode, later payloads are processed with
// Process. A store follows at most one watcher at a time.
func (s *Store) Follow(ctx context.Context, w Watcher) error {
	s.followMu.Lock()
	if s.following {
		s.followMu.Unlock()
		return ErrFollowing
	}
	s.following = true
	s.followMu.Unlock()

	s.emit(ctx, FollowStarted,
		KeyDebounce.Field(s.debounce),
		KeyContentType.Field(s.codec.ContentType()),
	)

	changes, err := w.Watch(ctx)
	if err != nil {
		s.stopFollowing(ctx)
		return fmt.Errorf("failed to start watcher: %w", err)
	}

	var initialErr error
	select {
	case <-ctx.Done():
		s.stopFollowing(ctx)
		return ctx.Err()
	case raw, ok := <-changes:
		if !ok {
			s.stopFollowing(ctx)
			return ErrWatcherClosed
		}
		s.received(ctx)
		initialErr = s.apply(ctx, raw)
	}

	if s.syncMode {
		s.changes = changes
		return initialErr
	}

	go s.watch(ctx, changes)

	return initialErr
}

// Process reads and applies the next payload from the followed watcher.
// This is only available in sync mode and is used for deterministic testing.
// Returns false if no payload is available or the channel is closed.
func (s *Store) Process(ctx context.Context) bool {
	if !s.syncMode || s.changes == nil {
		return false
	}

	select {
	case raw, ok := <-s.changes:
		if !ok {
			s.changes = nil
			s.stopFollowing(ctx)
			return false
		}
		s.received(ctx)
		_ = s.apply(ctx, raw) //nolint:errcheck // Errors stored via fail
		return true
	default:
		return false
	}
}

// apply decodes a payload and adopts the values.
func (s *Store) apply(ctx context.Context, raw []byte) error {
	start := s.clock.Now()

	values, err := DecodeValues(s.codec, s.fields, s.ResetTarget(), raw)
	if err != nil {
		s.fail(ctx, err)
		return fmt.Errorf("decode failed: %w", err)
	}

	_, next, reset := s.update(ctx, func(prev Snapshot, next *Snapshot) bool {
		s.target = values
		if prev.Dirty {
			return false
		}
		*next = Snapshot{Value: values, Errors: Errors{}, Loading: prev.Loading}
		return true
	})

	s.lastError.Store(nil)
	s.history.reset()
	if reset {
		s.emit(ctx, FormReset, KeyPhase.Field(next.Phase().String()))
	}
	s.emit(ctx, FollowApplied,
		KeyPhase.Field(next.Phase().String()),
		KeyDuration.Field(s.clock.Since(start)),
	)
	return nil
}

// received reports an incoming payload.
func (s *Store) received(ctx context.Context) {
	s.emit(ctx, FollowReceived)
	if s.metrics != nil {
		s.metrics.OnChangeReceived()
	}
}

// fail records an error from a payload that could not be applied.
func (s *Store) fail(ctx context.Context, err error) {
	e := err
	s.lastError.Store(&e)
	s.history.push(Failure{Err: err, At: s.clock.Now()})
	s.emit(ctx, FollowFailed, KeyError.Field(err.Error()))
}

func (s *Store) stopFollowing(ctx context.Context) {
	s.followMu.Lock()
	s.following = false
	s.followMu.Unlock()

	phase := s.current.Load().Phase()
	s.emit(ctx, FollowStopped, KeyPhase.Field(phase.String()))
	if s.onStop != nil {
		s.onStop(phase)
	}
}

// watch applies payloads from the watcher channel with debouncing.
func (s *Store) watch(ctx context.Context, changes <-chan []byte) {
	defer s.stopFollowing(ctx)

	var (
		timer      clockz.Timer
		pending    []byte
		hasPending bool
	)

	for {
		var timerC <-chan time.Time
		if timer != nil {
			timerC = timer.C()
		}

		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			return

		case raw, ok := <-changes:
			if !ok {
				if hasPending {
					_ = s.apply(ctx, pending) //nolint:errcheck // Errors stored via fail
				}
				return
			}

			s.received(ctx)
			pending = raw
			hasPending = true

			if timer == nil {
				timer = s.clock.NewTimer(s.debounce)
			} else {
				if !timer.Stop() {
					select {
					case <-timer.C():
					default:
					}
				}
				timer.Reset(s.debounce)
			}

		case <-timerC:
			if hasPending {
				_ = s.apply(ctx, pending) //nolint:errcheck // Errors stored via fail
				hasPending = false
			}
		}
	}
}
