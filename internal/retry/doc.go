// Package retry runs an operation a bounded number of times with a delay
// between failed attempts.
//
//	cfg := &retry.Config{MaxAttempts: 3, Backoff: retry.NewLinearBackoff(100*time.Millisecond, 0)}
//	err := retry.Do(ctx, cfg, func(ctx context.Context, attempt int) error {
//	    return callUpstream(ctx)
//	}, nil)
//
// With the linear backoff above, failures wait 100ms and then 200ms; there
// is no wait after the last attempt.
package retry
