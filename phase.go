package forma

// Phase is the position of a Snapshot in the form lifecycle.
type Phase int32

const (
	// PhasePristine indicates the form has not been touched since it was
	// created or last reset.
	PhasePristine Phase = iota

	// PhaseDirty indicates a value was set or the form was marked dirty and
	// the whole form has not been validated since.
	PhaseDirty

	// PhaseInvalid indicates at least one field carries errors.
	PhaseInvalid

	// PhaseValid indicates whole-form validation passed and no value has
	// changed since.
	PhaseValid

	// PhaseSubmitting indicates a submission callback is in flight.
	PhaseSubmitting
)

// String returns the string representation of the phase.
func (p Phase) String() string {
	switch p {
	case PhasePristine:
		return "pristine"
	case PhaseDirty:
		return "dirty"
	case PhaseInvalid:
		return "invalid"
	case PhaseValid:
		return "valid"
	case PhaseSubmitting:
		return "submitting"
	default:
		return "unknown"
	}
}
