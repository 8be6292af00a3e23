package httpclient

import (
	"context"
	"time"
)

// RetryKind tags the variant held by a RetryPolicy
type RetryKind int

const (
	// RetryNone performs exactly one attempt
	RetryNone RetryKind = iota
	// RetryFixed retries on transport errors and optionally on empty bodies
	RetryFixed
	// RetryCustom retries while a caller predicate says so
	RetryCustom
)

func (k RetryKind) String() string {
	switch k {
	case RetryFixed:
		return "fixed"
	case RetryCustom:
		return "custom"
	default:
		return "none"
	}
}

// RetryPredicate decides whether to retry given the state of the attempt just
// made and the number of attempts performed so far.
type RetryPredicate func(state ResponseState, attempts int) bool

// RetryPolicy controls how many attempts a request makes. MaxAttempts caps the
// total number of attempts; a value of 0 or 1 means a single attempt. Pause is
// slept after every attempt, including the last.
type RetryPolicy struct {
	Kind        RetryKind
	MaxAttempts int
	OnEmptyBody bool
	Predicate   RetryPredicate
	Pause       time.Duration
}

// NoRetry is the policy of a fresh client
func NoRetry() RetryPolicy {
	return RetryPolicy{Kind: RetryNone}
}

// FixedRetry retries while the transport reports an error, or the body is
// empty when onEmptyBody is set.
func FixedRetry(maxAttempts int, onEmptyBody bool, pause time.Duration) RetryPolicy {
	return RetryPolicy{Kind: RetryFixed, MaxAttempts: maxAttempts, OnEmptyBody: onEmptyBody, Pause: pause}
}

// CustomRetry retries while pred returns true. A nil pred never retries.
func CustomRetry(maxAttempts int, pred RetryPredicate, pause time.Duration) RetryPolicy {
	return RetryPolicy{Kind: RetryCustom, MaxAttempts: maxAttempts, Predicate: pred, Pause: pause}
}

// ShouldRetry reports whether another attempt is due after attempts attempts
// ending in state.
func (p RetryPolicy) ShouldRetry(state ResponseState, attempts int) bool {
	if attempts >= p.MaxAttempts {
		return false
	}
	switch p.Kind {
	case RetryFixed:
		return state.ErrorCode != 0 || (p.OnEmptyBody && state.Body == "")
	case RetryCustom:
		return p.Predicate != nil && p.Predicate(state, attempts)
	default:
		return false
	}
}

// pause blocks for d or until ctx is done
func pause(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
