// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package classify

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/pdiddy/ojamed/internal/httputil"
	"github.com/pdiddy/ojamed/pkg/types"
)

func TestMessage(t *testing.T) {
	tests := []struct {
		name string
		msg  string
		want types.ErrorCategory
		hint string
	}{
		{"payload too large", "convert: HTTP error! status: 413", types.CategoryPayloadTooLarge, HintPayloadTooLarge},
		{"cors", "blocked by CORS policy", types.CategoryCORS, HintCORS},
		{"server error", "convert: HTTP error! status: 500: boom", types.CategoryServerError, HintServerError},
		{"unknown", "connection refused", types.CategoryUnknown, HintUnknown},
		{"empty", "", types.CategoryUnknown, HintUnknown},
		{"case sensitive cors", "cors misconfigured", types.CategoryUnknown, HintUnknown},
		{"413 beats CORS", "CORS preflight returned 413", types.CategoryPayloadTooLarge, HintPayloadTooLarge},
		{"413 beats 500", "status 500 after 413 retry", types.CategoryPayloadTooLarge, HintPayloadTooLarge},
		{"CORS beats 500", "CORS error 500", types.CategoryCORS, HintCORS},
		{"500 inside a number", "uploaded 15000 bytes", types.CategoryServerError, HintServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Message(tt.msg)
			assert.Equal(t, tt.want, got.Category)
			assert.Equal(t, tt.hint, got.Hint)
			assert.Equal(t, tt.msg, got.RawMessage)
		})
	}
}

func TestClassify_Deterministic(t *testing.T) {
	err := &httputil.TransportError{Op: "convert", StatusCode: 413, Body: "Internal CORS 500"}
	first := Classify(err)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, Classify(err))
	}
	assert.Equal(t, types.CategoryPayloadTooLarge, first.Category)
}

func TestClassify_Errors(t *testing.T) {
	assert.Equal(t, types.CategoryUnknown, Classify(nil).Category)

	netErr := &httputil.TransportError{Op: "convert", Err: errors.New("dial tcp: connection refused")}
	report := Classify(netErr)
	assert.Equal(t, types.CategoryUnknown, report.Category)
	assert.Contains(t, report.RawMessage, "connection refused")
}
