// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package httputil provides request execution helpers shared by every call
// to the conversion service.
package httputil

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
)

// maxErrorBody bounds how much of a failed response body is kept.
const maxErrorBody = 64 << 10

// TransportError is a failed exchange with the service: either a non-2xx
// response (StatusCode and Body set) or a request that could not complete
// (Err set).
type TransportError struct {
	// Op names the call, e.g. "convert" or "detect_segment_rank".
	Op string

	StatusCode int
	Body       string

	Err error
}

func (e *TransportError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: network failure: %s", e.Op, networkCause(e.Err))
	}
	msg := fmt.Sprintf("%s: HTTP error! status: %d", e.Op, e.StatusCode)
	if e.Body != "" {
		msg += ": " + e.Body
	}
	return msg
}

func (e *TransportError) Unwrap() error { return e.Err }

// networkCause describes a failed request without the URL or the dialed
// address. Error text is classified by substring, so a host or port such as
// 127.0.0.1:5000 must not appear in it.
func networkCause(err error) string {
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return "host lookup failed: " + dnsErr.Err
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) && opErr.Err != nil {
		return opErr.Err.Error()
	}
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		if urlErr.Timeout() {
			return "request timed out"
		}
		return urlErr.Err.Error()
	}
	return err.Error()
}

// NetworkFailure reports whether the request never produced a response.
func (e *TransportError) NetworkFailure() bool { return e.Err != nil }

// Do sends req exactly once. A transport failure or a non-2xx status is
// returned as a *TransportError; on success the caller owns resp.Body.
func Do(ctx context.Context, client *http.Client, op string, req *http.Request) (*http.Response, error) {
	resp, err := client.Do(req.WithContext(ctx))
	if err != nil {
		return nil, &TransportError{Op: op, Err: err}
	}
	return CheckResponse(op, resp)
}

// CheckResponse passes 2xx responses through. Any other status is drained,
// closed, and returned as a *TransportError carrying the trimmed body text.
func CheckResponse(op string, resp *http.Response) (*http.Response, error) {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return resp, nil
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	io.Copy(io.Discard, resp.Body)
	return nil, &TransportError{
		Op:         op,
		StatusCode: resp.StatusCode,
		Body:       strings.TrimSpace(string(body)),
	}
}
