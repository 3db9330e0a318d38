package forma

import "errors"

var (
	// ErrUnknownField is returned when an operation names a field that is
	// not part of the form's configuration.
	ErrUnknownField = errors.New("forma: unknown field")

	// ErrInvalidValue is returned when a value does not match the type the
	// field was configured with.
	ErrInvalidValue = errors.New("forma: invalid value")

	// ErrKeyMismatch is returned when a full set of values does not carry
	// exactly the configured keys.
	ErrKeyMismatch = errors.New("forma: key set mismatch")

	// ErrInvalidConfig is returned by New for an empty field name or a nil
	// field.
	ErrInvalidConfig = errors.New("forma: invalid config")

	// ErrFollowing is returned when Follow is called on a store that is
	// already following a source.
	ErrFollowing = errors.New("forma: already following")

	// ErrWatcherClosed is returned by Follow when the watcher closes its
	// channel before emitting the initial values.
	ErrWatcherClosed = errors.New("forma: watcher closed before emitting initial values")
)
