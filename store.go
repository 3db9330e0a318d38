package forma

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/zoobzio/capitan"
	"github.com/zoobzio/clockz"
)

// DefaultDebounce is the default debounce duration for followed changes.
const DefaultDebounce = 100 * time.Millisecond

// Store owns the state of one form. All transitions replace the whole
// Snapshot under a single lock, so each one is atomic with respect to the
// others. Reads are lock-free.
type Store struct {
	fields   Config
	keys     []string
	name     string
	clock    clockz.Clock
	codec    Codec
	metrics  MetricsProvider
	debounce time.Duration
	syncMode bool
	onStop   func(Phase)
	history  *failureRing

	mu       sync.Mutex
	target   Values
	inflight int
	current  atomic.Pointer[Snapshot]

	lastError atomic.Pointer[error]

	subMu   sync.RWMutex
	subs    map[uint64]func(Snapshot)
	nextSub uint64

	followMu  sync.Mutex
	following bool

	// For sync mode: channel to receive followed changes
	changes <-chan []byte
}

// New creates a Store for cfg. The initial snapshot holds every field's
// initial value and is retained as the reset target.
//
// Example:
//
//	store, err := forma.New(forma.Config{
//	    "username": forma.NewField("", forma.Use(forma.MinLength(1, "Username is required"))),
//	    "remember": forma.NewField(false),
//	})
func New(cfg Config) (*Store, error) {
	keys := make([]string, 0, len(cfg))
	for name, f := range cfg {
		if name == "" {
			return nil, fmt.Errorf("%w: empty field name", ErrInvalidConfig)
		}
		if f == nil {
			return nil, fmt.Errorf("%w: field %q is nil", ErrInvalidConfig, name)
		}
		keys = append(keys, name)
	}
	sort.Strings(keys)

	fields := make(Config, len(cfg))
	for name, f := range cfg {
		fields[name] = f
	}

	initial := initialValues(fields)
	s := &Store{
		fields:   fields,
		keys:     keys,
		name:     "form",
		clock:    clockz.RealClock,
		codec:    JSONCodec{},
		debounce: DefaultDebounce,
		target:   initial,
		subs:     make(map[uint64]func(Snapshot)),
	}
	s.current.Store(&Snapshot{
		Value:  initial,
		Errors: Errors{},
	})

	s.emit(context.Background(), StoreCreated, KeyPhase.Field(PhasePristine.String()))
	return s, nil
}

// MustNew is like New but panics on an invalid configuration.
func MustNew(cfg Config) *Store {
	s, err := New(cfg)
	if err != nil {
		panic(err)
	}
	return s
}

// -----------------------------------------------------------------------------
// Chainable Instance Configuration
// -----------------------------------------------------------------------------

// Name sets the form name attached to every emitted signal. Default: "form".
func (s *Store) Name(name string) *Store {
	s.name = name
	return s
}

// Clock sets a custom clock for time operations.
// Use this with clockz.FakeClock for deterministic debounce testing.
func (s *Store) Clock(clock clockz.Clock) *Store {
	s.clock = clock
	return s
}

// Codec sets the codec used to decode followed values. Default: JSONCodec.
func (s *Store) Codec(codec Codec) *Store {
	s.codec = codec
	return s
}

// Metrics sets a metrics provider for observability integration.
func (s *Store) Metrics(provider MetricsProvider) *Store {
	s.metrics = provider
	return s
}

// Debounce sets the debounce duration for followed changes.
// Changes arriving within this duration are coalesced. Default: 100ms.
func (s *Store) Debounce(d time.Duration) *Store {
	s.debounce = d
	return s
}

// SyncMode makes Follow process only the initial value and leaves later
// values to Process, for deterministic tests.
func (s *Store) SyncMode() *Store {
	s.syncMode = true
	return s
}

// OnStop sets a callback invoked with the current phase when a follow loop
// ends.
func (s *Store) OnStop(fn func(Phase)) *Store {
	s.onStop = fn
	return s
}

// FailureHistorySize sets the number of recent follow failures to retain.
// Use 0 (default) to only retain the most recent error via LastError().
func (s *Store) FailureHistorySize(n int) *Store {
	s.history = newFailureRing(n)
	return s
}

// -----------------------------------------------------------------------------
// Observation
// -----------------------------------------------------------------------------

// Current returns a copy of the current snapshot.
func (s *Store) Current() Snapshot {
	return s.current.Load().clone()
}

// Keys returns the configured field names in sorted order.
func (s *Store) Keys() []string {
	return append([]string(nil), s.keys...)
}

// ResetTarget returns a copy of the values a no-argument Reset restores.
func (s *Store) ResetTarget() Values {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneValues(s.target)
}

// Subscribe registers fn to receive every snapshot committed after the
// call. Deliveries happen outside the store lock on the goroutine that made
// the transition, so fn may call back into the store; with concurrent
// writers, use Snapshot.Version to discard stale deliveries. The returned
// function removes the subscription.
func (s *Store) Subscribe(fn func(Snapshot)) (unsubscribe func()) {
	s.subMu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn
	s.subMu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.subMu.Lock()
			delete(s.subs, id)
			s.subMu.Unlock()
		})
	}
}

// LastError returns the last follow error, or nil if the last received
// payload was applied.
func (s *Store) LastError() error {
	ptr := s.lastError.Load()
	if ptr == nil {
		return nil
	}
	return *ptr
}

// FailureHistory returns recent follow failures, oldest first.
// Returns nil if history is not enabled (see FailureHistorySize).
func (s *Store) FailureHistory() []Failure {
	return s.history.all()
}

// -----------------------------------------------------------------------------
// Mutation
// -----------------------------------------------------------------------------

// SetValue replaces the value of name and marks the form dirty. Stored
// errors are left untouched.
//
// The returned messages are advisory: the field's validators are resolved
// against the values as they were before this call and run on value. nil
// means the value passed or the field has no validator. Nothing is written
// to the stored errors; only Validate does that.
func (s *Store) SetValue(name string, value any) ([]string, error) {
	f, ok := s.fields[name]
	if !ok {
		return nil, fmt.Errorf("set %q: %w", name, ErrUnknownField)
	}
	typed, err := f.accept(value)
	if err != nil {
		return nil, fmt.Errorf("set %q: %w", name, err)
	}

	ctx := context.Background()
	prev, next, _ := s.update(ctx, func(_ Snapshot, next *Snapshot) bool {
		next.Value = withValue(next.Value, name, typed)
		next.Dirty = true
		next.Validated = false
		return true
	})

	messages, _ := f.check(cloneValues(prev.Value), typed) //nolint:errcheck // typed already accepted
	s.emit(ctx, ValueSet,
		KeyField.Field(name),
		KeyErrorCount.Field(len(messages)),
		KeyPhase.Field(next.Phase().String()),
	)
	return messages, nil
}

// MarkAsDirty marks the form dirty without changing any value.
func (s *Store) MarkAsDirty() {
	ctx := context.Background()
	_, next, _ := s.update(ctx, func(_ Snapshot, next *Snapshot) bool {
		next.Dirty = true
		return true
	})
	s.emit(ctx, DirtyMarked, KeyPhase.Field(next.Phase().String()))
}

// AddError appends message to the errors of name, creating the entry if
// needed. Messages are not deduplicated. Use it for errors that come from
// outside the form's validators, such as a server response.
func (s *Store) AddError(name, message string) error {
	if _, ok := s.fields[name]; !ok {
		return fmt.Errorf("add error %q: %w", name, ErrUnknownField)
	}

	ctx := context.Background()
	_, next, _ := s.update(ctx, func(prev Snapshot, next *Snapshot) bool {
		errs := make(Errors, len(prev.Errors)+1)
		for k, v := range prev.Errors {
			errs[k] = v
		}
		errs[name] = append(append([]string(nil), prev.Errors[name]...), message)
		next.Errors = errs
		return true
	})
	s.emit(ctx, ErrorAdded,
		KeyField.Field(name),
		KeyError.Field(message),
		KeyPhase.Field(next.Phase().String()),
	)
	return nil
}

// Reset restores the reset target. Dirty, loading and errors are cleared.
func (s *Store) Reset() {
	ctx := context.Background()
	_, next, _ := s.update(ctx, func(_ Snapshot, next *Snapshot) bool {
		*next = Snapshot{Value: s.target, Errors: Errors{}}
		return true
	})
	s.emit(ctx, FormReset, KeyPhase.Field(next.Phase().String()))
}

// ResetTo replaces the values with values and makes them the reset target
// for later calls to Reset. Dirty, loading and errors are cleared. values
// must carry exactly the configured keys with values of the configured
// types.
func (s *Store) ResetTo(values Values) error {
	typed, err := s.conform(values)
	if err != nil {
		return fmt.Errorf("reset: %w", err)
	}

	ctx := context.Background()
	_, next, _ := s.update(ctx, func(_ Snapshot, next *Snapshot) bool {
		s.target = typed
		*next = Snapshot{Value: typed, Errors: Errors{}}
		return true
	})
	s.emit(ctx, FormReset, KeyPhase.Field(next.Phase().String()))
	return nil
}

// -----------------------------------------------------------------------------
// Validation
// -----------------------------------------------------------------------------

// Validate runs every field's validators against the current values and
// replaces the stored errors with the result. Fields that pass, or have no
// validator, have no entry afterwards. Values and the dirty flag are left
// unchanged. Returns true when no field failed.
func (s *Store) Validate() bool {
	_, ok := s.validate(context.Background())
	return ok
}

// validate checks the values of the current snapshot outside the lock and
// commits the errors only if no other transition happened meanwhile,
// retrying otherwise. It returns the values that were validated.
func (s *Store) validate(ctx context.Context) (Values, bool) {
	start := s.clock.Now()
	for {
		base := s.current.Load()
		errs := s.collect(cloneValues(base.Value))

		_, next, committed := s.update(ctx, func(prev Snapshot, next *Snapshot) bool {
			if prev.Version != base.Version {
				return false
			}
			next.Errors = errs
			next.Validated = true
			return true
		})
		if !committed {
			continue
		}

		if s.metrics != nil {
			s.metrics.OnValidation(len(errs), s.clock.Since(start))
		}
		if len(errs) > 0 {
			s.emit(ctx, ValidationFailed,
				KeyErrorCount.Field(errs.Count()),
				KeyDuration.Field(s.clock.Since(start)),
			)
			return cloneValues(next.Value), false
		}
		s.emit(ctx, ValidationPassed, KeyDuration.Field(s.clock.Since(start)))
		return cloneValues(next.Value), true
	}
}

// collect builds a fresh error map for values.
func (s *Store) collect(values Values) Errors {
	errs := Errors{}
	for _, name := range s.keys {
		f := s.fields[name]
		if !f.HasValidator() {
			continue
		}
		messages, err := f.check(values, values[name])
		if err != nil {
			messages = []string{err.Error()}
		}
		if len(messages) > 0 {
			errs[name] = messages
		}
	}
	return errs
}

// -----------------------------------------------------------------------------
// Internals
// -----------------------------------------------------------------------------

// update derives the next snapshot from a copy of the current one under the
// store lock. fn returns false to abort without committing. fn must replace,
// never modify, the maps it changes: they are shared with prev.
func (s *Store) update(ctx context.Context, fn func(prev Snapshot, next *Snapshot) bool) (Snapshot, Snapshot, bool) {
	s.mu.Lock()
	prev := *s.current.Load()
	next := prev
	if !fn(prev, &next) {
		s.mu.Unlock()
		return prev, prev, false
	}
	next.Version = prev.Version + 1
	s.current.Store(&next)
	s.mu.Unlock()

	s.publish(ctx, prev, next)
	return prev, next, true
}

// publish reports a committed transition to subscribers, metrics and signals.
func (s *Store) publish(ctx context.Context, prev, next Snapshot) {
	if from, to := prev.Phase(), next.Phase(); from != to {
		s.emit(ctx, PhaseChanged,
			KeyOldPhase.Field(from.String()),
			KeyNewPhase.Field(to.String()),
		)
		if s.metrics != nil {
			s.metrics.OnPhaseChange(from, to)
		}
	}

	s.subMu.RLock()
	subs := make([]func(Snapshot), 0, len(s.subs))
	for _, fn := range s.subs {
		subs = append(subs, fn)
	}
	s.subMu.RUnlock()

	for _, fn := range subs {
		fn(next.clone())
	}
}

// conform checks that values carries exactly the configured keys with
// values of the configured types and returns a private typed copy.
func (s *Store) conform(values Values) (Values, error) {
	if len(values) != len(s.fields) {
		return nil, fmt.Errorf("%w: got %d keys, want %d", ErrKeyMismatch, len(values), len(s.fields))
	}
	out := make(Values, len(values))
	for name, value := range values {
		f, ok := s.fields[name]
		if !ok {
			return nil, fmt.Errorf("%w: %q is not a field", ErrKeyMismatch, name)
		}
		typed, err := f.accept(deepCopy(value))
		if err != nil {
			return nil, fmt.Errorf("field %q: %w", name, err)
		}
		out[name] = typed
	}
	return out, nil
}

func (s *Store) emit(ctx context.Context, signal capitan.Signal, fields ...capitan.Field) {
	capitan.Emit(ctx, signal, append([]capitan.Field{KeyForm.Field(s.name)}, fields...)...)
}

// withValue returns a copy of values with name set to value.
func withValue(values Values, name string, value any) Values {
	out := make(Values, len(values))
	for k, v := range values {
		out[k] = v
	}
	out[name] = value
	return out
}
