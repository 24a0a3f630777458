package runner

import (
	"context"

	"github.com/mvkit/mvkit/internal/errors"
	"github.com/mvkit/mvkit/internal/logging"
)

// RetryPolicy bounds how often a failing operation is repeated.
//
// Attempts guarded tries are made; a failure for which Retryable reports true
// is logged and tried again. Once the guarded tries are spent one final
// unguarded try is made and its outcome returned as-is, so an operation that
// keeps failing runs Attempts+1 times in total.
type RetryPolicy struct {
	Attempts  int
	Retryable func(error) bool
	Logger    *logging.Logger
}

// RetryOn returns a predicate matching errors of the given kinds.
func RetryOn(kinds ...errors.ErrorKind) func(error) bool {
	return func(err error) bool {
		for _, k := range kinds {
			if errors.IsKind(err, k) {
				return true
			}
		}
		return false
	}
}

// TransientFailures matches timeouts and non-zero exits.
var TransientFailures = RetryOn(errors.KindTimeout, errors.KindExecution)

// Retry calls fn under policy p. Errors that are not retryable are returned
// immediately.
func Retry[T any](ctx context.Context, p RetryPolicy, name string, fn func(context.Context) (T, error)) (T, error) {
	retryable := p.Retryable
	if retryable == nil {
		retryable = TransientFailures
	}
	logger := p.Logger
	if logger == nil {
		logger = logging.Global()
	}

	for attempt := 1; attempt <= p.Attempts; attempt++ {
		v, err := fn(ctx)
		if err == nil {
			return v, nil
		}
		if !retryable(err) {
			return v, err
		}
		if ctx.Err() != nil {
			return v, err
		}
		logger.Warn("operation failed, retrying", "operation", name, "attempt", attempt, "of", p.Attempts, "error", err)
	}

	return fn(ctx)
}
