package forma

import "github.com/zoobzio/capitan"

// Field keys for store events.
var (
	// KeyForm is the store name set with Store.Name.
	KeyForm = capitan.NewStringKey("form")

	// KeyField is the field an event refers to.
	KeyField = capitan.NewStringKey("field")

	// KeyError is the error message when an operation fails.
	KeyError = capitan.NewStringKey("error")

	// KeyPhase is the phase of the form after the event.
	KeyPhase = capitan.NewStringKey("phase")

	// KeyOldPhase is the phase before a transition.
	KeyOldPhase = capitan.NewStringKey("old_phase")

	// KeyNewPhase is the phase after a transition.
	KeyNewPhase = capitan.NewStringKey("new_phase")

	// KeySubmission is the unique ID of a submission attempt.
	KeySubmission = capitan.NewStringKey("submission")

	// KeyErrorCount is the number of validation messages.
	KeyErrorCount = capitan.NewIntKey("error_count")

	// KeyDuration is the time an operation took.
	KeyDuration = capitan.NewDurationKey("duration")

	// KeyDebounce is the configured debounce duration of a follow loop.
	KeyDebounce = capitan.NewDurationKey("debounce")

	// KeyContentType is the codec content type of a follow loop.
	KeyContentType = capitan.NewStringKey("content_type")
)
