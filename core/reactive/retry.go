package reactive

import (
	"context"

	"github.com/cenkalti/backoff/v5"

	"github.com/konall/korhah/errs"
)

// CreateWithRetry calls Create repeatedly, backing off between attempts,
// until it succeeds, ctx is done, or the backoff policy in opts stops
// retrying. An aborted creation is not retried: its error is returned at
// once. It's meant for recipes that race a well-known, transient source of
// Cancel votes (a listener rate-limiting creation, for instance), not as a
// way to paper over a permanently cancelling listener — a recipe that
// always loses the vote keeps being retried until ctx is done or the
// backoff policy gives up.
func CreateWithRetry[T any](ctx context.Context, sys *System, recipe func(sys *System, prev T, ok bool) T, opts ...backoff.RetryOption) (Variable[T], error) {
	operation := func() (Variable[T], error) {
		v, err := Create(sys, recipe)
		if err != nil {
			if errs.IsAborted(err) {
				return Variable[T]{}, backoff.Permanent(err)
			}
			return Variable[T]{}, err
		}
		return v, nil
	}

	return backoff.Retry(ctx, operation, opts...)
}
