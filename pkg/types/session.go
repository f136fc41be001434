// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import (
	"fmt"
	"io"
	"os"
)

// SelectedFile references one user-chosen file.
type SelectedFile struct {
	// Name is the base file name (e.g. "lecture.pptx").
	Name string `json:"name" yaml:"name"`

	// Path is the location on disk used to read the contents.
	Path string `json:"path" yaml:"path"`

	// MediaType is the declared MIME type, possibly empty.
	MediaType string `json:"media_type" yaml:"media_type"`

	// Size is the file size in bytes.
	Size int64 `json:"size" yaml:"size"`
}

// Open returns a reader over the file contents.
func (f SelectedFile) Open() (io.ReadCloser, error) {
	if f.Path == "" {
		return nil, fmt.Errorf("file %q has no path", f.Name)
	}
	return os.Open(f.Path)
}

// Phase is the session's finite state.
type Phase string

const (
	PhaseIdle       Phase = "idle"
	PhaseValidating Phase = "validating"
	PhaseSubmitting Phase = "submitting"
	PhaseSucceeded  Phase = "succeeded"
	PhaseFailed     Phase = "failed"
)

// Terminal reports whether the phase ends an attempt.
func (p Phase) Terminal() bool {
	return p == PhaseSucceeded || p == PhaseFailed
}

// Progress is one (label, percentage) pair shown while a submission is in flight.
type Progress struct {
	Percent int    `json:"percent" yaml:"percent"`
	Label   string `json:"label" yaml:"label"`
}

// SubmissionState is a snapshot of the session state.
type SubmissionState struct {
	Phase Phase `json:"phase" yaml:"phase"`

	// AttemptID identifies the submission attempt that produced this state.
	AttemptID string `json:"attempt_id,omitempty" yaml:"attempt_id,omitempty"`

	Progress Progress `json:"progress" yaml:"progress"`

	// Message is the human-readable status line.
	Message string `json:"message,omitempty" yaml:"message,omitempty"`

	// DownloadPath is where the archive was saved (Succeeded only).
	DownloadPath string `json:"download_path,omitempty" yaml:"download_path,omitempty"`

	// Warning carries a non-fatal problem, such as a failed save after a
	// successful conversion.
	Warning string `json:"warning,omitempty" yaml:"warning,omitempty"`

	// Report is set in the Failed phase.
	Report *ErrorReport `json:"report,omitempty" yaml:"report,omitempty"`
}

// ErrorCategory groups submission failures by likely cause.
type ErrorCategory string

const (
	CategoryCORS            ErrorCategory = "CORS"
	CategoryPayloadTooLarge ErrorCategory = "PayloadTooLarge"
	CategoryServerError     ErrorCategory = "ServerError"
	CategoryUnknown         ErrorCategory = "Unknown"
)

// ErrorReport is a classified submission failure with a remediation hint.
type ErrorReport struct {
	RawMessage string        `json:"raw_message" yaml:"raw_message"`
	Category   ErrorCategory `json:"category" yaml:"category"`
	Hint       string        `json:"hint" yaml:"hint"`
}

// ValidationError is a local, pre-submission failure. No network call is
// made when one is returned.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

// NewValidationError returns a ValidationError with a formatted message.
func NewValidationError(format string, args ...any) *ValidationError {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}
