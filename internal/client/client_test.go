// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package client

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/ojamed/internal/httputil"
	"github.com/pdiddy/ojamed/pkg/types"
)

// writeFile creates a file under t.TempDir and returns it as a SelectedFile.
func writeFile(t *testing.T, name, content string) types.SelectedFile {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return types.SelectedFile{Name: name, Path: path, Size: int64(len(content))}
}

func newTestClient(t *testing.T, ts *httptest.Server) *Client {
	t.Helper()
	c, err := New(types.ClientConfig{
		BaseURL:    ts.URL + "/",
		HTTPConfig: types.HTTPConfig{UserAgent: "ojamed-test"},
	}, ts.Client(), nil)
	require.NoError(t, err)
	return c
}

func TestNew_NotConfigured(t *testing.T) {
	_, err := New(types.ClientConfig{BaseURL: "  "}, nil, nil)
	assert.ErrorIs(t, err, ErrNotConfigured)
}

func TestNew_InvalidURL(t *testing.T) {
	for _, u := range []string{"localhost:8000", "ftp://example.com", "http://"} {
		_, err := New(types.ClientConfig{BaseURL: u}, nil, nil)
		assert.Error(t, err, u)
	}
}

func TestNew_TrimsTrailingSlash(t *testing.T) {
	c, err := New(types.ClientConfig{BaseURL: "http://localhost:8000/"}, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:8000", c.BaseURL())
}

func TestSubmit_Multipart(t *testing.T) {
	var (
		gotPath   string
		gotUA     string
		gotFile   string
		gotName   string
		gotConfig types.ProcessingConfiguration
		gotAudio  string
	)
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotUA = r.UserAgent()
		require.NoError(t, r.ParseMultipartForm(1<<20))

		f, hdr, err := r.FormFile("file")
		require.NoError(t, err)
		data, _ := io.ReadAll(f)
		gotFile, gotName = string(data), hdr.Filename

		require.NoError(t, json.Unmarshal([]byte(r.FormValue("config")), &gotConfig))

		if a, _, err := r.FormFile("audio"); err == nil {
			data, _ := io.ReadAll(a)
			gotAudio = string(data)
		}
		w.Header().Set("Content-Type", "application/zip")
		w.Write([]byte("PK-archive"))
	}))
	defer ts.Close()

	c := newTestClient(t, ts)
	lecture := writeFile(t, "lecture.pptx", "slides")
	audio := writeFile(t, "talk.mp3", "sound")

	cfg := types.ProcessingConfiguration{
		CardTypes:  []types.CardType{types.CardBasic, types.CardImageOcclusion},
		CardLevels: []types.CardLevel{types.Level1},
		Occlusion:  &types.OcclusionSettings{MaxMasksPerImage: 6, ConfidenceThreshold: 0.4, MaskStyle: types.MaskFill},
		Audio:      &types.AudioSettings{File: audio, FileName: audio.Name, AlignmentMode: types.AlignKeyword},
	}

	payload, err := c.Submit(context.Background(), lecture, cfg)
	require.NoError(t, err)

	assert.Equal(t, []byte("PK-archive"), payload)
	assert.Equal(t, EndpointConvert, gotPath)
	assert.Equal(t, "ojamed-test", gotUA)
	assert.Equal(t, "slides", gotFile)
	assert.Equal(t, "lecture.pptx", gotName)
	assert.Equal(t, "sound", gotAudio)
	assert.Equal(t, cfg.CardTypes, gotConfig.CardTypes)
	require.NotNil(t, gotConfig.Occlusion)
	assert.Equal(t, 6, gotConfig.Occlusion.MaxMasksPerImage)
	require.NotNil(t, gotConfig.Audio)
	assert.Equal(t, "talk.mp3", gotConfig.Audio.FileName)
	assert.Empty(t, gotConfig.Audio.File.Path, "local paths are not sent")
}

func TestSubmit_ComprehensiveEndpoint(t *testing.T) {
	var gotPath string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		w.Write([]byte("zip"))
	}))
	defer ts.Close()

	c := newTestClient(t, ts)
	cfg := types.ProcessingConfiguration{
		CardTypes:     []types.CardType{types.CardBasic},
		CardLevels:    []types.CardLevel{types.Level1},
		Comprehensive: true,
	}
	_, err := c.Submit(context.Background(), writeFile(t, "lecture.pdf", "%PDF"), cfg)
	require.NoError(t, err)
	assert.Equal(t, EndpointCompletePackage, gotPath)
}

func TestSubmit_StatusErrorNotRetried(t *testing.T) {
	var calls int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		http.Error(w, "internal error", http.StatusInternalServerError)
	}))
	defer ts.Close()

	c := newTestClient(t, ts)
	_, err := c.Submit(context.Background(), writeFile(t, "lecture.pptx", "x"), types.ProcessingConfiguration{})

	var terr *httputil.TransportError
	require.ErrorAs(t, err, &terr)
	assert.Equal(t, http.StatusInternalServerError, terr.StatusCode)
	assert.Equal(t, "internal error", terr.Body)
	assert.Contains(t, err.Error(), "500")
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestSubmit_EmptyArchive(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer ts.Close()

	c := newTestClient(t, ts)
	_, err := c.Submit(context.Background(), writeFile(t, "lecture.pptx", "x"), types.ProcessingConfiguration{})
	assert.ErrorIs(t, err, ErrEmptyArchive)
}

func TestSubmit_MissingFile(t *testing.T) {
	var calls int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
	}))
	defer ts.Close()

	c := newTestClient(t, ts)
	missing := types.SelectedFile{Name: "gone.pptx", Path: filepath.Join(t.TempDir(), "gone.pptx")}
	_, err := c.Submit(context.Background(), missing, types.ProcessingConfiguration{})
	assert.Error(t, err)
	assert.Zero(t, atomic.LoadInt32(&calls), "no request when the file cannot be read")
}

func TestSubmit_NetworkFailure(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	c := newTestClient(t, ts)
	ts.Close()

	_, err := c.Submit(context.Background(), writeFile(t, "lecture.pptx", "x"), types.ProcessingConfiguration{})
	var terr *httputil.TransportError
	require.ErrorAs(t, err, &terr)
	assert.True(t, terr.NetworkFailure())
}

func TestDetectSegments_Defaults(t *testing.T) {
	fields := map[string]string{}
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, EndpointDetectSegmentRank, r.URL.Path)
		require.NoError(t, r.ParseMultipartForm(1<<20))
		for k, v := range r.MultipartForm.Value {
			fields[k] = v[0]
		}
		_, _, err := r.FormFile("image")
		assert.NoError(t, err)
		w.Write([]byte(`{"regions":[{"bbox":[1,2,3,4],"score":0.9}]}`))
	}))
	defer ts.Close()

	c := newTestClient(t, ts)
	out, err := c.DetectSegments(context.Background(), writeFile(t, "slide.png", "img"), DetectOptions{SlideText: "heart"})
	require.NoError(t, err)

	assert.JSONEq(t, `{"regions":[{"bbox":[1,2,3,4],"score":0.9}]}`, string(out))
	assert.Equal(t, "heart", fields["slide_text"])
	assert.Equal(t, "", fields["transcript_text"])
	assert.Equal(t, "6", fields["max_masks_per_image"])
	assert.Equal(t, "900", fields["min_mask_area_px"])
	assert.Equal(t, "0.25", fields["detection_threshold"])
	assert.Equal(t, "0.5", fields["nms_iou_threshold"])
}

func TestDetectSegments_Error(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model offline", http.StatusServiceUnavailable)
	}))
	defer ts.Close()

	c := newTestClient(t, ts)
	_, err := c.DetectSegments(context.Background(), writeFile(t, "slide.png", "img"), DetectOptions{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "detect_segment_rank")
	assert.Contains(t, err.Error(), "model offline")
}

func TestBuildOcclusionItems(t *testing.T) {
	fields := map[string]string{}
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, EndpointBuildOcclusionItems, r.URL.Path)
		require.NoError(t, r.ParseMultipartForm(1<<20))
		for k, v := range r.MultipartForm.Value {
			fields[k] = v[0]
		}
		w.Write([]byte("items.zip"))
	}))
	defer ts.Close()

	c := newTestClient(t, ts)
	regions := json.RawMessage(`[{"id":1}]`)
	out, err := c.BuildOcclusionItems(context.Background(), writeFile(t, "slide.png", "img"), regions, OcclusionOptions{MaskStyle: types.MaskOutline})
	require.NoError(t, err)

	assert.Equal(t, []byte("items.zip"), out)
	assert.Equal(t, `[{"id":1}]`, fields["regions"])
	assert.Equal(t, "6", fields["max_masks_per_image"])
	assert.Equal(t, "0.4", fields["overlap_iou_threshold"])
	assert.Equal(t, "outline", fields["mask_style"])
}

func TestExportApkg_DefaultDeckName(t *testing.T) {
	var deck string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, EndpointExportApkg, r.URL.Path)
		require.NoError(t, r.ParseMultipartForm(1<<20))
		deck = r.FormValue("deck_name")
		w.Write([]byte("apkg"))
	}))
	defer ts.Close()

	c := newTestClient(t, ts)
	_, err := c.ExportApkg(context.Background(), writeFile(t, "slide.png", "img"), json.RawMessage(`[]`), "")
	require.NoError(t, err)
	assert.Equal(t, DefaultDeckName, deck)
}

func TestExtractSlides(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, EndpointExtractSlides, r.URL.Path)
		w.Write([]byte(`{"slides":[{"index":1,"text":"Cardiac cycle"}]}`))
	}))
	defer ts.Close()

	c := newTestClient(t, ts)
	out, err := c.ExtractSlides(context.Background(), writeFile(t, "lecture.pptx", "x"))
	require.NoError(t, err)
	assert.Contains(t, string(out), "Cardiac cycle")
}

func TestCacheInfoAndClear(t *testing.T) {
	var cleared int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodGet && r.URL.Path == EndpointCacheInfo:
			w.Write([]byte(`{"entries":3,"size_bytes":1024}`))
		case r.Method == http.MethodPost && r.URL.Path == EndpointCacheClear:
			atomic.AddInt32(&cleared, 1)
			w.Write([]byte(`{"cleared":true}`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer ts.Close()

	c := newTestClient(t, ts)
	info, err := c.CacheInfo(context.Background())
	require.NoError(t, err)
	assert.Equal(t, float64(3), info["entries"])

	res, err := c.ClearCache(context.Background())
	require.NoError(t, err)
	assert.Equal(t, true, res["cleared"])
	assert.Equal(t, int32(1), atomic.LoadInt32(&cleared))
}

func TestCacheInfo_Failure(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusForbidden)
	}))
	defer ts.Close()

	c := newTestClient(t, ts)
	_, err := c.CacheInfo(context.Background())
	var terr *httputil.TransportError
	require.ErrorAs(t, err, &terr)
	assert.Equal(t, http.StatusForbidden, terr.StatusCode)
}
