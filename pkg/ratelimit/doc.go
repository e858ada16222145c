// Package ratelimit keeps signed API traffic under the configured
// requests_per_minute so the account is not flagged.
//
// TokenBucket refills continuously. burst_size sets its capacity:
//
//	limiter := ratelimit.PerMinute(60, 10)
//	if err := limiter.Wait(ctx); err != nil {
//	    return err
//	}
package ratelimit
