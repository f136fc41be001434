// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package httputil

import (
	"context"
	"io"
	"net/http"
	"time"
)

// RetryBaseDelay is the wait before the first retry of a rate-limited read.
var RetryBaseDelay = 2 * time.Second

const defaultMaxRetries = 3

// DoWithRetry sends a read-only request such as GET /cache/info. When the
// service answers 429 it waits RetryBaseDelay, 2x, 4x... and asks again, up
// to maxRetries more times (3 when maxRetries is not positive). Any other
// status, or the last 429, goes through CheckResponse. Conversions must use
// Do instead: an upload is never sent twice.
func DoWithRetry(ctx context.Context, client *http.Client, op string, req *http.Request, maxRetries int) (*http.Response, error) {
	if maxRetries <= 0 {
		maxRetries = defaultMaxRetries
	}

	wait := RetryBaseDelay
	for retries := 0; ; retries++ {
		resp, err := client.Do(req.Clone(ctx))
		if err != nil {
			return nil, &TransportError{Op: op, Err: err}
		}
		if resp.StatusCode != http.StatusTooManyRequests || retries == maxRetries {
			return CheckResponse(op, resp)
		}
		discard(resp)

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
		wait *= 2
	}
}

// discard lets the connection be reused for the next attempt.
func discard(resp *http.Response) {
	_, _ = io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
}
