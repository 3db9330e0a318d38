package forma

import "github.com/zoobzio/capitan"

// Store lifecycle signals.
var (
	// StoreCreated is emitted when New builds a store.
	StoreCreated = capitan.NewSignal(
		"forma.store.created",
		"Form store created",
	)

	// PhaseChanged is emitted when a transition moves the form to another phase.
	PhaseChanged = capitan.NewSignal(
		"forma.phase.changed",
		"Form phase transition",
	)

	// FormReset is emitted when the form is reset.
	FormReset = capitan.NewSignal(
		"forma.reset",
		"Form reset to its target values",
	)
)

// Mutation signals.
var (
	// ValueSet is emitted when a field value is replaced.
	ValueSet = capitan.NewSignal(
		"forma.value.set",
		"Field value set",
	)

	// DirtyMarked is emitted when the form is explicitly marked dirty.
	DirtyMarked = capitan.NewSignal(
		"forma.dirty.marked",
		"Form marked dirty",
	)

	// ErrorAdded is emitted when an external error is attached to a field.
	ErrorAdded = capitan.NewSignal(
		"forma.error.added",
		"External error added to field",
	)
)

// Validation signals.
var (
	// ValidationPassed is emitted when whole-form validation finds no errors.
	ValidationPassed = capitan.NewSignal(
		"forma.validation.passed",
		"Whole-form validation passed",
	)

	// ValidationFailed is emitted when whole-form validation finds errors.
	ValidationFailed = capitan.NewSignal(
		"forma.validation.failed",
		"Whole-form validation failed",
	)
)

// Submission signals.
var (
	// SubmitStarted is emitted before the submission callback is invoked.
	SubmitStarted = capitan.NewSignal(
		"forma.submit.started",
		"Submission started",
	)

	// SubmitRejected is emitted when validation blocks a submission.
	SubmitRejected = capitan.NewSignal(
		"forma.submit.rejected",
		"Submission rejected by validation",
	)

	// SubmitSucceeded is emitted when the submission callback returns nil.
	SubmitSucceeded = capitan.NewSignal(
		"forma.submit.succeeded",
		"Submission succeeded",
	)

	// SubmitFailed is emitted when the submission callback returns an error.
	SubmitFailed = capitan.NewSignal(
		"forma.submit.failed",
		"Submission failed",
	)
)

// Follow signals.
var (
	// FollowStarted is emitted when a store begins following a watcher.
	FollowStarted = capitan.NewSignal(
		"forma.follow.started",
		"Following source started",
	)

	// FollowStopped is emitted when a store stops following a watcher.
	FollowStopped = capitan.NewSignal(
		"forma.follow.stopped",
		"Following source stopped",
	)

	// FollowReceived is emitted when raw data arrives from the watcher.
	FollowReceived = capitan.NewSignal(
		"forma.follow.received",
		"Raw values received from watcher",
	)

	// FollowFailed is emitted when received data cannot be applied.
	FollowFailed = capitan.NewSignal(
		"forma.follow.failed",
		"Received values rejected",
	)

	// FollowApplied is emitted when received values are applied.
	FollowApplied = capitan.NewSignal(
		"forma.follow.applied",
		"Received values applied",
	)
)
