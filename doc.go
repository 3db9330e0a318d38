// Package forma provides a state container for interactive forms.
//
// The core type is Store, which owns a form's current values, per-field
// validation errors, a dirty flag and an in-flight submission flag. Every
// operation replaces the whole Snapshot; nothing is patched in place.
//
//	Config → New → SetValue / MarkAsDirty / AddError → Validate → Submit → Reset
//
// # Fields
//
// A Config maps field names to fields. Each field carries its initial value
// and any number of validator resolvers:
//
//	store, err := forma.New(forma.Config{
//	    "username": forma.NewField("", forma.Use(forma.MinLength(1, "Username is required"))),
//	    "password": forma.NewField("", forma.Use(forma.MinLength(8, "Password is too short"))),
//	    "confirm": forma.NewField("", forma.Derive(func(form forma.Values) forma.Validator[string] {
//	        want, _ := forma.Get[string](form, "password")
//	        return forma.Predicate(func(v string) bool { return v == want }, "Passwords do not match")
//	    })),
//	})
//
// The key set is fixed at construction. Naming a field outside it, or
// passing a value of the wrong type, is a programmer error reported as
// ErrUnknownField or ErrInvalidValue.
//
// # Validation
//
// Validators implement a single method:
//
//	type Validator[V any] interface {
//	    Check(value V) []string
//	}
//
// An empty result means the value passed. Use wraps a Validator directly;
// Derive wraps a function that builds one from the form's current values,
// which is how cross-field rules are expressed.
//
// SetValue returns the messages for the new value as advice for inline
// display. The stored errors are only rebuilt by Validate, which runs every
// field's validators and replaces the error map wholesale.
//
// # Submission
//
// HandleSubmit wraps a Callback into a Handler:
//
//	submit := store.HandleSubmit(func(ctx context.Context, v forma.Values) error {
//	    return api.Login(ctx, v)
//	}, forma.WithRetry(3))
//
//	err := submit(ctx, event)
//
// The handler prevents the event's default action, validates the whole
// form and only invokes the callback when no field has errors. Loading is
// true while the callback runs and is released on every exit path.
//
// # Phases
//
// Snapshot.Phase reports one of:
//
//   - Pristine: untouched since construction or the last reset
//   - Dirty: a value was set or the form was marked dirty
//   - Invalid: at least one field has errors
//   - Valid: whole-form validation passed and nothing changed since
//   - Submitting: a submission callback is in flight
//
// # Following a source
//
// Follow keeps the form in step with the record being edited. A Watcher
// delivers raw payloads (ChannelWatcher, FileWatcher, or redis.Watcher in
// the redis package) which are decoded with the store's Codec:
//
//	store := forma.MustNew(cfg).Debounce(200 * time.Millisecond)
//	if err := store.Follow(ctx, forma.NewFileWatcher("draft.json")); err != nil {
//	    return err
//	}
//
// A pristine form takes the received values. A dirty form keeps the user's
// edits and only rebinds its reset target.
//
// # Observability
//
// Every transition emits a capitan signal (see signals.go). The zaplog
// package bridges those signals to a zap logger.
package forma
