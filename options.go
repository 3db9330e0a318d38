package forma

import (
	"context"
	"time"

	"github.com/zoobzio/pipz"
)

// Identities of the processors forma adds to a submission pipeline.
var (
	submitID         = pipz.NewIdentity("forma:submit", "Invokes the submission callback")
	fallbackSubmitID = pipz.NewIdentity("forma:fallback-submit", "Invokes a fallback submission callback")
	retryID          = pipz.NewIdentity("forma:retry", "Retries a failed submission")
	backoffID        = pipz.NewIdentity("forma:backoff", "Retries a failed submission with exponential delays")
	timeoutID        = pipz.NewIdentity("forma:timeout", "Bounds the duration of a submission")
	fallbackID       = pipz.NewIdentity("forma:fallback", "Tries fallback callbacks after a failed submission")
	circuitBreakerID = pipz.NewIdentity("forma:circuit-breaker", "Stops submitting after repeated failures")
	rateLimitID      = pipz.NewIdentity("forma:rate-limit", "Limits the submission rate")
	errorHandlerID   = pipz.NewIdentity("forma:error-handler", "Observes submission errors")
	middlewareID     = pipz.NewIdentity("forma:middleware", "Runs middleware before the submission")
)

// Option configures the submission pipeline built by HandleSubmit.
// Options wrap the callback with middleware for retries and error
// observation. They apply in order, so later options wrap earlier ones.
type Option func(pipz.Chainable[*Submission]) pipz.Chainable[*Submission]

// buildPipeline wraps a terminal with pipeline options.
func buildPipeline(terminal pipz.Chainable[*Submission], opts []Option) pipz.Chainable[*Submission] {
	pipeline := terminal
	for _, opt := range opts {
		pipeline = opt(pipeline)
	}
	return pipeline
}

// -----------------------------------------------------------------------------
// Pipeline Options - Wrapping (With*)
// -----------------------------------------------------------------------------

// WithRetry retries a failed submission immediately, up to maxAttempts
// attempts in total. Loading stays set across attempts.
func WithRetry(maxAttempts int) Option {
	return func(p pipz.Chainable[*Submission]) pipz.Chainable[*Submission] {
		return pipz.NewRetry(retryID, p, maxAttempts)
	}
}

// WithBackoff retries a failed submission with exponential delays:
// baseDelay, 2*baseDelay, 4*baseDelay, etc.
func WithBackoff(maxAttempts int, baseDelay time.Duration) Option {
	return func(p pipz.Chainable[*Submission]) pipz.Chainable[*Submission] {
		return pipz.NewBackoff(backoffID, p, maxAttempts, baseDelay)
	}
}

// WithTimeout fails a submission that runs longer than d. The callback's
// context is canceled when the deadline passes.
func WithTimeout(d time.Duration) Option {
	return func(p pipz.Chainable[*Submission]) pipz.Chainable[*Submission] {
		return pipz.NewTimeout(timeoutID, p, d)
	}
}

// WithFallback tries each fallback callback in order when the submission
// fails, for example to queue the values locally when the server is
// unreachable. The first callback to return nil wins.
func WithFallback(fallbacks ...Callback) Option {
	return func(p pipz.Chainable[*Submission]) pipz.Chainable[*Submission] {
		all := make([]pipz.Chainable[*Submission], 0, len(fallbacks)+1)
		all = append(all, p)
		for _, cb := range fallbacks {
			all = append(all, pipz.Effect(fallbackSubmitID, invoke(cb)))
		}
		return pipz.NewFallback(fallbackID, all...)
	}
}

// WithCircuitBreaker stops invoking the callback after failures
// consecutive failed submissions. Submissions fail immediately until
// recovery has passed, then one is let through to test the backend again.
//
// The breaker is owned by the Handler, so every submit through the same
// Handler shares its state.
func WithCircuitBreaker(failures int, recovery time.Duration) Option {
	return func(p pipz.Chainable[*Submission]) pipz.Chainable[*Submission] {
		return pipz.NewCircuitBreaker(circuitBreakerID, p, failures, recovery)
	}
}

// WithRateLimit delays submissions beyond rate per second, allowing
// bursts of up to burst. Loading stays set while a submission waits.
func WithRateLimit(rate float64, burst int) Option {
	return func(p pipz.Chainable[*Submission]) pipz.Chainable[*Submission] {
		return pipz.NewRateLimiter(rateLimitID, rate, burst, p)
	}
}

// WithErrorHandler passes submission errors to handler for logging or
// alerting. The error still propagates to the caller of the Handler.
func WithErrorHandler(handler pipz.Chainable[*pipz.Error[*Submission]]) Option {
	return func(p pipz.Chainable[*Submission]) pipz.Chainable[*Submission] {
		return pipz.NewHandle(errorHandlerID, p, handler)
	}
}

// WithMiddleware runs processors in order before the pipeline. Processors
// may replace the submission's values; the callback sees the result.
//
// Example:
//
//	store.HandleSubmit(save,
//	    forma.WithMiddleware(
//	        forma.UseTransform(trimID, trimStrings),
//	        forma.UseEffect(auditID, audit),
//	    ),
//	)
func WithMiddleware(processors ...pipz.Chainable[*Submission]) Option {
	return func(p pipz.Chainable[*Submission]) pipz.Chainable[*Submission] {
		all := append(append([]pipz.Chainable[*Submission](nil), processors...), p)
		return pipz.NewSequence(middlewareID, all...)
	}
}

// -----------------------------------------------------------------------------
// Middleware Processors (Use*)
// -----------------------------------------------------------------------------

// UseTransform creates a processor that rewrites the submission.
func UseTransform(identity pipz.Identity, fn func(context.Context, *Submission) *Submission) pipz.Chainable[*Submission] {
	return pipz.Transform(identity, fn)
}

// UseApply creates a processor that may rewrite the submission or abort it
// with an error.
func UseApply(identity pipz.Identity, fn func(context.Context, *Submission) (*Submission, error)) pipz.Chainable[*Submission] {
	return pipz.Apply(identity, fn)
}

// UseMutate creates a processor that rewrites the submission only when
// condition returns true.
func UseMutate(identity pipz.Identity, transformer func(context.Context, *Submission) *Submission, condition func(context.Context, *Submission) bool) pipz.Chainable[*Submission] {
	return pipz.Mutate(identity, transformer, condition)
}

// UseEnrich creates a processor that attempts an optional rewrite. When fn
// fails, the submission continues unchanged.
func UseEnrich(identity pipz.Identity, fn func(context.Context, *Submission) (*Submission, error)) pipz.Chainable[*Submission] {
	return pipz.Enrich(identity, fn)
}

// UseFilter runs processor only when condition returns true. Otherwise the
// submission passes through unchanged.
func UseFilter(identity pipz.Identity, condition func(context.Context, *Submission) bool, processor pipz.Chainable[*Submission]) pipz.Chainable[*Submission] {
	return pipz.NewFilter(identity, condition, processor)
}

// UseRateLimit runs processor through a token bucket with the given rate
// per second and burst size. Submissions wait for a token.
func UseRateLimit(identity pipz.Identity, rate float64, burst int, processor pipz.Chainable[*Submission]) pipz.Chainable[*Submission] {
	return pipz.NewRateLimiter(identity, rate, burst, processor)
}

// UseEffect creates a processor that observes the submission. An error
// aborts the submission before the callback runs.
func UseEffect(identity pipz.Identity, fn func(context.Context, *Submission) error) pipz.Chainable[*Submission] {
	return pipz.Effect(identity, fn)
}
