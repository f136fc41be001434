// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package selection decides whether a chosen file can be submitted for
// conversion. Decisions are pure: callers own any resulting state change.
package selection

import (
	"fmt"
	"io"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/pdiddy/ojamed/pkg/types"
)

// Accepted media types for lecture files.
const (
	MediaTypePPTX = "application/vnd.openxmlformats-officedocument.presentationml.presentation"
	MediaTypePPT  = "application/vnd.ms-powerpoint"
	MediaTypePDF  = "application/pdf"
)

var (
	lectureMediaTypes = []string{MediaTypePPTX, MediaTypePPT, MediaTypePDF}
	lectureExtensions = []string{".pptx", ".ppt", ".pdf"}

	audioExtensions = []string{".mp3", ".m4a", ".wav", ".webm", ".ogg"}
)

// Decision is the outcome of validating a candidate file.
type Decision struct {
	Accepted bool
	File     types.SelectedFile

	// Reason is the user-facing rejection message; empty when accepted.
	Reason string
}

// Err returns the rejection as a ValidationError, or nil when accepted.
func (d Decision) Err() error {
	if d.Accepted {
		return nil
	}
	return &types.ValidationError{Message: d.Reason}
}

// Validate accepts a lecture when its declared media type is a presentation
// or PDF type, or its name ends in one of the accepted extensions.
func Validate(candidate types.SelectedFile) Decision {
	if matches(candidate, lectureMediaTypes, lectureExtensions) {
		return Decision{Accepted: true, File: candidate}
	}
	return Decision{
		File:   candidate,
		Reason: fmt.Sprintf("Please select a PowerPoint presentation or PDF (%s)", strings.Join(lectureExtensions, ", ")),
	}
}

// ValidateAudio accepts a lecture recording by audio/* media type or by
// extension.
func ValidateAudio(candidate types.SelectedFile) Decision {
	if strings.HasPrefix(candidate.MediaType, "audio/") || hasExtension(candidate.Name, audioExtensions) {
		return Decision{Accepted: true, File: candidate}
	}
	return Decision{
		File:   candidate,
		Reason: fmt.Sprintf("Please attach an audio recording (%s)", strings.Join(audioExtensions, ", ")),
	}
}

func matches(f types.SelectedFile, mediaTypes, extensions []string) bool {
	declared := f.MediaType
	if i := strings.IndexByte(declared, ';'); i >= 0 {
		declared = declared[:i]
	}
	declared = strings.TrimSpace(declared)
	for _, mt := range mediaTypes {
		if declared == mt {
			return true
		}
	}
	return hasExtension(f.Name, extensions)
}

func hasExtension(name string, extensions []string) bool {
	lower := strings.ToLower(name)
	for _, ext := range extensions {
		if strings.HasSuffix(lower, ext) {
			return true
		}
	}
	return false
}

// FromPath describes the file at path. The media type comes from the
// extension, falling back to sniffing the first 512 bytes.
func FromPath(path string) (types.SelectedFile, error) {
	info, err := os.Stat(path)
	if err != nil {
		return types.SelectedFile{}, fmt.Errorf("reading %s: %w", path, err)
	}
	if info.IsDir() {
		return types.SelectedFile{}, fmt.Errorf("%s is a directory", path)
	}

	mediaType := mime.TypeByExtension(strings.ToLower(filepath.Ext(path)))
	if mediaType == "" {
		mediaType, err = sniff(path)
		if err != nil {
			return types.SelectedFile{}, err
		}
	}

	return types.SelectedFile{
		Name:      filepath.Base(path),
		Path:      path,
		MediaType: mediaType,
		Size:      info.Size(),
	}, nil
}

func sniff(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	buf := make([]byte, 512)
	n, err := f.Read(buf)
	if err != nil && err != io.EOF {
		return "", fmt.Errorf("reading %s: %w", path, err)
	}
	return http.DetectContentType(buf[:n]), nil
}
