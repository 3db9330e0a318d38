package forma

import "time"

// MetricsProvider allows integration with metrics systems like Prometheus, StatsD, etc.
// Implement this interface to receive callbacks on key store events.
type MetricsProvider interface {
	// OnPhaseChange is called when a transition moves the form to another phase.
	OnPhaseChange(from, to Phase)

	// OnValidation is called after whole-form validation with the number of
	// failing fields.
	OnValidation(failing int, duration time.Duration)

	// OnSubmitSuccess is called when a submission callback returns nil.
	OnSubmitSuccess(duration time.Duration)

	// OnSubmitFailure is called when a submission callback returns an error.
	OnSubmitFailure(duration time.Duration)

	// OnChangeReceived is called when a followed watcher emits data.
	OnChangeReceived()
}

// NoOpMetricsProvider is a no-op implementation of MetricsProvider.
// Use this as an embedded type to implement only the methods you need.
type NoOpMetricsProvider struct{}

func (NoOpMetricsProvider) OnPhaseChange(_, _ Phase)            {}
func (NoOpMetricsProvider) OnValidation(_ int, _ time.Duration) {}
func (NoOpMetricsProvider) OnSubmitSuccess(_ time.Duration)     {}
func (NoOpMetricsProvider) OnSubmitFailure(_ time.Duration)     {}
func (NoOpMetricsProvider) OnChangeReceived()                   {}
