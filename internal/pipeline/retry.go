package pipeline

import (
	"time"

	"github.com/cenkalti/backoff/v4"
)

// RetryPolicy governs whole-pipeline retries. A retry restarts the attempt
// from preprocessing; MaxAttempts counts the first attempt too.
type RetryPolicy struct {
	MaxAttempts int
	Transient   func(error) bool

	// NewBackOff builds the inter-attempt wait schedule. Tests swap in a
	// zero-wait schedule.
	NewBackOff func() backoff.BackOff
}

func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts: 3,
		Transient:   IsTransient,
		NewBackOff: func() backoff.BackOff {
			bo := backoff.NewExponentialBackOff()
			bo.InitialInterval = 2 * time.Second
			bo.MaxInterval = 30 * time.Second
			return bo
		},
	}
}

// ShouldRetry decides whether the given attempt may be followed by another.
func (p RetryPolicy) ShouldRetry(err error, attempt int) bool {
	if err == nil || attempt >= p.MaxAttempts {
		return false
	}
	if p.Transient == nil {
		return false
	}
	return p.Transient(err)
}
