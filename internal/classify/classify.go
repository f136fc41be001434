// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package classify maps submission failures to a category and a
// remediation hint.
//
// Classification matches case-sensitive markers in the error text, not a
// structured error code: the service does not return one. The match is a
// heuristic and can misfire, for example on a message that mentions "500"
// for an unrelated reason. Markers are checked in a fixed order so the
// result is deterministic; "413" wins over every other marker.
package classify

import (
	"strings"

	"github.com/pdiddy/ojamed/pkg/types"
)

// Hints shown for each category.
const (
	HintPayloadTooLarge = "The file is too large for the server. Reduce the file size (compress images, split the deck) or raise the server's upload limit."
	HintCORS            = "The server rejected the request origin. Add this client's origin to the server's allowed CORS origins."
	HintServerError     = "The server failed while processing the lecture. Check the server logs and try again."
	HintUnknown         = "Could not reach the conversion service. Check your network connection and the configured API URL, then try again."
)

type rule struct {
	marker   string
	category types.ErrorCategory
	hint     string
}

var rules = []rule{
	{"413", types.CategoryPayloadTooLarge, HintPayloadTooLarge},
	{"CORS", types.CategoryCORS, HintCORS},
	{"500", types.CategoryServerError, HintServerError},
}

// Classify builds an ErrorReport from err. A nil error yields an Unknown
// report with an empty message.
func Classify(err error) types.ErrorReport {
	if err == nil {
		return Message("")
	}
	return Message(err.Error())
}

// Message classifies a raw error message.
func Message(msg string) types.ErrorReport {
	for _, r := range rules {
		if strings.Contains(msg, r.marker) {
			return types.ErrorReport{RawMessage: msg, Category: r.category, Hint: r.hint}
		}
	}
	return types.ErrorReport{RawMessage: msg, Category: types.CategoryUnknown, Hint: HintUnknown}
}
