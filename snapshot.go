package forma

// Snapshot is the complete observable state of a form at one instant.
// The Store never modifies a Snapshot after handing it out; each one is a
// private copy.
type Snapshot struct {
	// Value holds the current value of every configured field.
	Value Values

	// Dirty is true once any field was set or the form was marked dirty.
	// Only Reset clears it.
	Dirty bool

	// Loading is true while a submission callback is in flight.
	Loading bool

	// Errors holds the active messages of failing fields.
	Errors Errors

	// Validated is true when whole-form validation ran and no value has
	// been set since.
	Validated bool

	// Version increases with every committed transition.
	Version uint64
}

// Phase derives the lifecycle phase from the snapshot's flags.
func (s Snapshot) Phase() Phase {
	switch {
	case s.Loading:
		return PhaseSubmitting
	case len(s.Errors) > 0:
		return PhaseInvalid
	case !s.Dirty:
		return PhasePristine
	case s.Validated:
		return PhaseValid
	default:
		return PhaseDirty
	}
}

// ErrorsFor returns the messages attached to name, or nil.
func (s Snapshot) ErrorsFor(name string) []string {
	if len(s.Errors) == 0 {
		return nil
	}
	return s.Errors[name]
}

// Valid reports whether no field currently carries errors. A field without
// an entry may simply not have been validated yet.
func (s Snapshot) Valid() bool {
	return len(s.Errors) == 0
}

func (s Snapshot) clone() Snapshot {
	out := s
	out.Value = cloneValues(s.Value)
	out.Errors = cloneErrors(s.Errors)
	return out
}
