// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package client

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/pdiddy/ojamed/internal/httputil"
	"github.com/pdiddy/ojamed/pkg/types"
)

// DefaultDeckName is used by ExportApkg when no deck name is given.
const DefaultDeckName = "Image Occlusion Deck"

// DetectOptions tune region detection. Zero values fall back to the
// service defaults.
type DetectOptions struct {
	SlideText          string
	TranscriptText     string
	MaxMasksPerImage   int
	MinMaskAreaPx      int
	DetectionThreshold float64
	NMSIoUThreshold    float64
}

func (o DetectOptions) withDefaults() DetectOptions {
	if o.MaxMasksPerImage == 0 {
		o.MaxMasksPerImage = 6
	}
	if o.MinMaskAreaPx == 0 {
		o.MinMaskAreaPx = 900
	}
	if o.DetectionThreshold == 0 {
		o.DetectionThreshold = 0.25
	}
	if o.NMSIoUThreshold == 0 {
		o.NMSIoUThreshold = 0.5
	}
	return o
}

// OcclusionOptions control how occlusion items are rendered.
type OcclusionOptions struct {
	MaxMasksPerImage    int
	OverlapIoUThreshold float64
	MaskStyle           types.MaskStyle
}

func (o OcclusionOptions) withDefaults() OcclusionOptions {
	if o.MaxMasksPerImage == 0 {
		o.MaxMasksPerImage = 6
	}
	if o.OverlapIoUThreshold == 0 {
		o.OverlapIoUThreshold = 0.4
	}
	if o.MaskStyle == "" {
		o.MaskStyle = types.MaskFill
	}
	return o
}

// ExtractSlides uploads a lecture and returns the service's slide metadata.
func (c *Client) ExtractSlides(ctx context.Context, file types.SelectedFile) (json.RawMessage, error) {
	form := newForm()
	form.file("file", file)

	var out json.RawMessage
	if err := c.postJSON(ctx, EndpointExtractSlides, form, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// DetectSegments detects, segments, and ranks maskable regions in an image.
// The returned JSON holds the regions accepted by BuildOcclusionItems and
// ExportApkg.
func (c *Client) DetectSegments(ctx context.Context, image types.SelectedFile, opts DetectOptions) (json.RawMessage, error) {
	opts = opts.withDefaults()

	form := newForm()
	form.file("image", image)
	form.field("slide_text", opts.SlideText)
	form.field("transcript_text", opts.TranscriptText)
	form.field("max_masks_per_image", strconv.Itoa(opts.MaxMasksPerImage))
	form.field("min_mask_area_px", strconv.Itoa(opts.MinMaskAreaPx))
	form.field("detection_threshold", formatFloat(opts.DetectionThreshold))
	form.field("nms_iou_threshold", formatFloat(opts.NMSIoUThreshold))

	var out json.RawMessage
	if err := c.postJSON(ctx, EndpointDetectSegmentRank, form, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// BuildOcclusionItems renders occlusion card images for the given regions
// and returns the resulting archive.
func (c *Client) BuildOcclusionItems(ctx context.Context, image types.SelectedFile, regions json.RawMessage, opts OcclusionOptions) ([]byte, error) {
	opts = opts.withDefaults()

	form := newForm()
	form.file("image", image)
	form.field("regions", string(regions))
	form.field("max_masks_per_image", strconv.Itoa(opts.MaxMasksPerImage))
	form.field("overlap_iou_threshold", formatFloat(opts.OverlapIoUThreshold))
	form.field("mask_style", string(opts.MaskStyle))

	return c.postBlob(ctx, EndpointBuildOcclusionItems, form)
}

// ExportApkg packages occlusion regions into an Anki deck.
func (c *Client) ExportApkg(ctx context.Context, image types.SelectedFile, regions json.RawMessage, deckName string) ([]byte, error) {
	if deckName == "" {
		deckName = DefaultDeckName
	}

	form := newForm()
	form.file("image", image)
	form.field("regions", string(regions))
	form.field("deck_name", deckName)

	return c.postBlob(ctx, EndpointExportApkg, form)
}

// CacheInfo returns the service's cache statistics. The call is a read and
// is retried on HTTP 429.
func (c *Client) CacheInfo(ctx context.Context) (map[string]any, error) {
	req, err := http.NewRequest(http.MethodGet, c.baseURL+EndpointCacheInfo, nil)
	if err != nil {
		return nil, err
	}
	c.setHeaders(req)

	start := time.Now()
	resp, err := httputil.DoWithRetry(ctx, c.http, opName(EndpointCacheInfo), req, 0)
	c.logExchange(EndpointCacheInfo, start, resp, err)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	out := map[string]any{}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, err
	}
	return out, nil
}

// ClearCache empties the service's cache.
func (c *Client) ClearCache(ctx context.Context) (map[string]any, error) {
	out := map[string]any{}
	if err := c.postJSON(ctx, EndpointCacheClear, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
