// Package retry runs an operation until it succeeds, a non-retryable error is
// returned, the attempt budget is spent, or the context is cancelled.
//
// Media persistence uses a fixed policy:
//
//	cfg := retry.Fixed(3, time.Second, log)
//	err := retry.Do(ctx, func(ctx context.Context, attempt int) error {
//		return saveNote(ctx)
//	}, cfg)
//
// DefaultRetryIf consults xhscrawler/pkg/errors.IsRetryable, so transport
// failures, 429 and 5xx responses are retried while credential and input
// errors are returned immediately.
package retry
