// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package client talks to the remote conversion service. Each method is one
// request/response exchange; nothing here retries a submission.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/pdiddy/ojamed/internal/httputil"
	"github.com/pdiddy/ojamed/pkg/types"
)

// Service endpoints, relative to the base URL.
const (
	EndpointConvert             = "/convert"
	EndpointCompletePackage     = "/generate_complete_package"
	EndpointExtractSlides       = "/extract_slides"
	EndpointDetectSegmentRank   = "/detect_segment_rank"
	EndpointBuildOcclusionItems = "/build_occlusion_items"
	EndpointExportApkg          = "/export_apkg"
	EndpointCacheInfo           = "/cache/info"
	EndpointCacheClear          = "/cache/clear"
)

// ErrNotConfigured is returned when no base URL is set.
var ErrNotConfigured = errors.New("API base URL is not configured: set OJAMED_API_URL or api_url in ojamed.yaml")

// ErrEmptyArchive is returned when a successful response has no body.
var ErrEmptyArchive = errors.New("service returned an empty archive")

// Client is a conversion service client.
type Client struct {
	baseURL   string
	userAgent string
	http      *http.Client
	logger    *zap.Logger
}

// New returns a Client for cfg.BaseURL. httpClient may be nil, in which case
// one is built with cfg.Timeout. logger may be nil.
func New(cfg types.ClientConfig, httpClient *http.Client, logger *zap.Logger) (*Client, error) {
	base := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if base == "" {
		return nil, ErrNotConfigured
	}
	u, err := url.Parse(base)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("invalid API base URL %q: want http(s)://host[:port]", cfg.BaseURL)
	}

	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		baseURL:   base,
		userAgent: cfg.UserAgent,
		http:      httpClient,
		logger:    logger,
	}, nil
}

// BaseURL returns the normalized service origin.
func (c *Client) BaseURL() string { return c.baseURL }

// EndpointFor returns the conversion endpoint for cfg.
func EndpointFor(cfg types.ProcessingConfiguration) string {
	if cfg.Comprehensive {
		return EndpointCompletePackage
	}
	return EndpointConvert
}

// Submit uploads the lecture with its configuration and returns the archive
// bytes. The request carries a "file" part, a "config" part holding the
// configuration as JSON, and an "audio" part when audio is attached.
func (c *Client) Submit(ctx context.Context, file types.SelectedFile, cfg types.ProcessingConfiguration) ([]byte, error) {
	configJSON, err := json.Marshal(cfg)
	if err != nil {
		return nil, fmt.Errorf("encoding configuration: %w", err)
	}

	form := newForm()
	form.file("file", file)
	form.field("config", string(configJSON))
	if cfg.Audio != nil {
		form.file("audio", cfg.Audio.File)
	}

	return c.postBlob(ctx, EndpointFor(cfg), form)
}

// postBlob sends a multipart POST and returns the binary response body.
func (c *Client) postBlob(ctx context.Context, endpoint string, form *formBuilder) ([]byte, error) {
	resp, err := c.postForm(ctx, endpoint, form)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &httputil.TransportError{Op: opName(endpoint), Err: fmt.Errorf("reading response: %w", err)}
	}
	if len(payload) == 0 {
		return nil, fmt.Errorf("%s: %w", opName(endpoint), ErrEmptyArchive)
	}
	return payload, nil
}

// postJSON sends a multipart POST (or an empty POST when form is nil) and
// decodes the JSON response into out.
func (c *Client) postJSON(ctx context.Context, endpoint string, form *formBuilder, out any) error {
	resp, err := c.postForm(ctx, endpoint, form)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%s: parsing response: %w", opName(endpoint), err)
	}
	return nil
}

func (c *Client) postForm(ctx context.Context, endpoint string, form *formBuilder) (*http.Response, error) {
	var (
		body        io.Reader = http.NoBody
		contentType string
	)
	if form != nil {
		buf, ct, err := form.encode()
		if err != nil {
			return nil, err
		}
		body, contentType = buf, ct
	}

	req, err := http.NewRequest(http.MethodPost, c.baseURL+endpoint, body)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	c.setHeaders(req)

	start := time.Now()
	resp, err := httputil.Do(ctx, c.http, opName(endpoint), req)
	c.logExchange(endpoint, start, resp, err)
	return resp, err
}

func (c *Client) setHeaders(req *http.Request) {
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}
}

func (c *Client) logExchange(endpoint string, start time.Time, resp *http.Response, err error) {
	fields := []zap.Field{
		zap.String("endpoint", endpoint),
		zap.Duration("elapsed", time.Since(start)),
	}
	if err != nil {
		c.logger.Warn("request failed", append(fields, zap.Error(err))...)
		return
	}
	c.logger.Debug("request completed", append(fields, zap.Int("status", resp.StatusCode))...)
}

func opName(endpoint string) string {
	return strings.TrimPrefix(endpoint, "/")
}

// formBuilder accumulates multipart parts in order. The first error (for
// example an unreadable file) is reported by encode.
type formBuilder struct {
	buf bytes.Buffer
	w   *multipart.Writer
	err error
}

func newForm() *formBuilder {
	f := &formBuilder{}
	f.w = multipart.NewWriter(&f.buf)
	return f
}

func (f *formBuilder) field(name, value string) {
	if f.err != nil {
		return
	}
	f.err = f.w.WriteField(name, value)
}

func (f *formBuilder) file(name string, file types.SelectedFile) {
	if f.err != nil {
		return
	}
	src, err := file.Open()
	if err != nil {
		f.err = fmt.Errorf("opening %s: %w", file.Name, err)
		return
	}
	defer src.Close()

	dst, err := f.w.CreateFormFile(name, file.Name)
	if err != nil {
		f.err = err
		return
	}
	if _, err := io.Copy(dst, src); err != nil {
		f.err = fmt.Errorf("reading %s: %w", file.Name, err)
	}
}

func (f *formBuilder) encode() (*bytes.Buffer, string, error) {
	if f.err != nil {
		return nil, "", f.err
	}
	if err := f.w.Close(); err != nil {
		return nil, "", fmt.Errorf("encoding form: %w", err)
	}
	return &f.buf, f.w.FormDataContentType(), nil
}
