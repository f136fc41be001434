// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// HTTPConfig holds shared HTTP settings used by every call to the conversion service.
type HTTPConfig struct {
	// Timeout is the HTTP request timeout. Conversions of large decks are slow,
	// so the default is generous (10m).
	Timeout time.Duration `json:"timeout" yaml:"timeout"`

	// UserAgent is the User-Agent header sent with HTTP requests (e.g. "ojamed/0.1").
	UserAgent string `json:"user_agent" yaml:"user_agent"`
}

// ClientConfig holds the settings for one client session.
type ClientConfig struct {
	HTTPConfig `yaml:",inline"`

	// BaseURL is the origin of the conversion service (e.g. "http://localhost:8000").
	// An empty value means the client is not configured and refuses to submit.
	BaseURL string `json:"api_url" yaml:"api_url"`

	// OutputDir is the directory received archives are saved into.
	OutputDir string `json:"output_dir" yaml:"output_dir"`

	// HistoryDB is the path of the SQLite attempt log. Empty disables history.
	HistoryDB string `json:"history_db" yaml:"history_db"`

	// ResetDelay is how long a terminal status stays visible before the
	// session returns to idle (default 3s).
	ResetDelay time.Duration `json:"reset_delay" yaml:"reset_delay"`
}

// StubServerConfig holds settings for the local stand-in conversion service.
type StubServerConfig struct {
	// Addr is the listen address (e.g. ":8000").
	Addr string `json:"addr" yaml:"addr"`

	// MaxUploadBytes caps request bodies; larger uploads receive HTTP 413.
	MaxUploadBytes int64 `json:"max_upload_bytes" yaml:"max_upload_bytes"`

	// FailStatus, when non-zero, makes every conversion respond with that status.
	FailStatus int `json:"fail_status" yaml:"fail_status"`

	// Latency is an artificial delay applied to conversion requests.
	Latency time.Duration `json:"latency" yaml:"latency"`

	// AllowedOrigins lists browser origins accepted by the CORS middleware.
	AllowedOrigins []string `json:"allowed_origins" yaml:"allowed_origins"`
}
