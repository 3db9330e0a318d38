package forma

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/zoobzio/pipz"
)

// Callback receives the validated values of a submission. An error is
// returned untouched by the Handler.
type Callback func(ctx context.Context, values Values) error

// Handler handles one submit event.
type Handler func(ctx context.Context, ev Event) error

// Event is a submit event as delivered by the UI driver.
type Event interface {
	// PreventDefault suppresses the event's default action.
	PreventDefault()
}

// EventFunc adapts a function to the Event interface.
type EventFunc func()

// PreventDefault calls f.
func (f EventFunc) PreventDefault() {
	f()
}

// Submission carries one submit attempt through the submission pipeline.
// Pipeline stages may replace Values before the callback sees them.
type Submission struct {
	// ID uniquely identifies the attempt. It is attached to every
	// submission signal.
	ID string

	// Values holds a private copy of the validated form values.
	Values Values
}

// HandleSubmit returns a Handler that submits the form with cb.
//
// The handler prevents the event's default action and validates the whole
// form. When any field fails, the updated errors are the only effect and
// cb is not invoked. Otherwise loading is set, cb is invoked once with the
// validated values through the pipeline built from opts, and loading is
// released however cb returns, including by panic.
//
// An error from cb is returned to the caller unchanged and a panic in cb
// propagates to the caller after loading is released.
//
// Example:
//
//	submit := store.HandleSubmit(save, forma.WithRetry(3))
//	if err := submit(ctx, ev); err != nil {
//	    store.AddError("email", "Could not save, try again")
//	}
func (s *Store) HandleSubmit(cb Callback, opts ...Option) Handler {
	pipeline := buildPipeline(pipz.Effect(submitID, invoke(cb)), opts)

	return func(ctx context.Context, ev Event) error {
		if ev != nil {
			ev.PreventDefault()
		}

		values, ok := s.validate(ctx)
		if !ok {
			s.emit(ctx, SubmitRejected, KeyErrorCount.Field(s.current.Load().Errors.Count()))
			return nil
		}

		return s.submit(ctx, pipeline, &Submission{
			ID:     uuid.NewString(),
			Values: values,
		})
	}
}

// submit runs the pipeline with loading held for its whole duration. A
// failure of the callback is returned as the callback returned it, and a
// panic in the callback is re-raised once loading is released. Failures
// raised by the pipeline itself, such as a timeout or an open circuit,
// come back as *pipz.Error.
func (s *Store) submit(ctx context.Context, pipeline pipz.Chainable[*Submission], sub *Submission) error {
	s.acquire(ctx)
	defer s.release(ctx)

	start := s.clock.Now()
	s.emit(ctx, SubmitStarted, KeySubmission.Field(sub.ID))

	out := &outcome{}
	_, err := pipeline.Process(context.WithValue(ctx, outcomeKey{}, out), sub)
	if err != nil {
		cause, recovered, panicked := out.result()
		if cause != nil && errors.Is(err, cause) && !imposed(ctx, cause) {
			err = cause
		}
		elapsed := s.clock.Since(start)
		msg := err.Error()
		if panicked {
			msg = fmt.Sprintf("panic: %v", recovered)
		}
		s.emit(ctx, SubmitFailed,
			KeySubmission.Field(sub.ID),
			KeyError.Field(msg),
			KeyDuration.Field(elapsed),
		)
		if s.metrics != nil {
			s.metrics.OnSubmitFailure(elapsed)
		}
		if panicked {
			panic(recovered)
		}
		return err
	}

	elapsed := s.clock.Since(start)
	s.emit(ctx, SubmitSucceeded,
		KeySubmission.Field(sub.ID),
		KeyDuration.Field(elapsed),
	)
	if s.metrics != nil {
		s.metrics.OnSubmitSuccess(elapsed)
	}
	return nil
}

// imposed reports whether cause is a context error the pipeline imposed on
// the callback, such as the deadline of WithTimeout, rather than one of the
// caller's context.
func imposed(ctx context.Context, cause error) bool {
	if !errors.Is(cause, context.DeadlineExceeded) && !errors.Is(cause, context.Canceled) {
		return false
	}
	return ctx.Err() == nil
}

type outcomeKey struct{}

// outcome records how the most recent callback attempt of one submission
// ended. The pipeline wraps callback errors and recovers panics; outcome
// keeps the originals. Attempts may run on another goroutine under
// WithTimeout.
type outcome struct {
	mu        sync.Mutex
	err       error
	recovered any
	panicked  bool
}

func (o *outcome) returned(err error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.err, o.recovered, o.panicked = err, nil, false
}

func (o *outcome) raised(r any) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.err, o.recovered, o.panicked = nil, r, true
}

func (o *outcome) result() (error, any, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.err, o.recovered, o.panicked
}

// invoke adapts cb to a pipeline stage that records its outcome.
func invoke(cb Callback) func(context.Context, *Submission) error {
	return func(ctx context.Context, sub *Submission) error {
		out, _ := ctx.Value(outcomeKey{}).(*outcome)
		if out == nil {
			return cb(ctx, sub.Values)
		}
		defer func() {
			if r := recover(); r != nil {
				out.raised(r)
				panic(r)
			}
		}()
		err := cb(ctx, sub.Values)
		out.returned(err)
		return err
	}
}

// acquire marks one more submission in flight.
func (s *Store) acquire(ctx context.Context) {
	s.update(ctx, func(_ Snapshot, next *Snapshot) bool {
		s.inflight++
		next.Loading = true
		return true
	})
}

// release marks one submission finished. Loading stays set while others
// are still in flight.
func (s *Store) release(ctx context.Context) {
	s.update(ctx, func(_ Snapshot, next *Snapshot) bool {
		s.inflight--
		next.Loading = s.inflight > 0
		return true
	})
}
