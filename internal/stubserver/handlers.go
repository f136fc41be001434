// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package stubserver

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/pdiddy/ojamed/pkg/types"
)

const multipartMemory = 8 << 20

func (s *Server) registerRoutes(r *gin.Engine) {
	r.GET("/health", s.handleHealth)

	r.POST("/convert", s.handleConvert)
	r.POST("/generate_complete_package", s.handleConvert)
	r.POST("/extract_slides", s.handleExtractSlides)
	r.POST("/detect_segment_rank", s.handleDetect)
	r.POST("/build_occlusion_items", s.handleOcclusionArchive)
	r.POST("/export_apkg", s.handleOcclusionArchive)

	r.GET("/cache/info", s.handleCacheInfo)
	r.POST("/cache/clear", s.handleCacheClear)
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

func (s *Server) handleConvert(c *gin.Context) {
	if !s.simulate(c) {
		return
	}

	lecture, ok := s.readUpload(c, "file")
	if !ok {
		return
	}

	var cfg types.ProcessingConfiguration
	if raw := c.PostForm("config"); raw != "" {
		if err := json.Unmarshal([]byte(raw), &cfg); err != nil {
			respondError(c, http.StatusBadRequest, fmt.Errorf("invalid config: %w", err))
			return
		}
	}
	if len(cfg.CardTypes) == 0 {
		cfg.CardTypes = []types.CardType{types.CardBasic}
	}
	if len(cfg.CardLevels) == 0 {
		cfg.CardLevels = []types.CardLevel{types.Level1}
	}

	var audio *upload
	if cfg.Audio != nil {
		if a, ok := s.readUpload(c, "audio"); ok {
			audio = &a
		} else {
			return
		}
	}

	comprehensive := c.FullPath() == "/generate_complete_package"
	data, err := buildDeckArchive(lecture, audio, cfg, comprehensive)
	if err != nil {
		respondError(c, http.StatusInternalServerError, err)
		return
	}

	name := "ojamed_deck.zip"
	if comprehensive {
		name = "ojamed_complete_package.zip"
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	c.Data(http.StatusOK, "application/zip", data)
}

func (s *Server) handleExtractSlides(c *gin.Context) {
	u, ok := s.readUpload(c, "file")
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"filename":   u.name,
		"size_bytes": u.size,
		"slides":     []any{},
	})
}

func (s *Server) handleDetect(c *gin.Context) {
	u, ok := s.readUpload(c, "image")
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"image":   u.name,
		"regions": []any{},
	})
}

func (s *Server) handleOcclusionArchive(c *gin.Context) {
	u, ok := s.readUpload(c, "image")
	if !ok {
		return
	}

	regions := json.RawMessage("[]")
	if raw := c.PostForm("regions"); raw != "" {
		if !json.Valid([]byte(raw)) {
			respondError(c, http.StatusBadRequest, errors.New("regions must be JSON"))
			return
		}
		regions = json.RawMessage(raw)
	}

	data, err := buildOcclusionArchive(u, regions, c.PostForm("deck_name"))
	if err != nil {
		respondError(c, http.StatusInternalServerError, err)
		return
	}
	c.Data(http.StatusOK, "application/zip", data)
}

func (s *Server) handleCacheInfo(c *gin.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var total int64
	for _, n := range s.cache {
		total += n
	}
	c.JSON(http.StatusOK, gin.H{
		"entries":    len(s.cache),
		"size_bytes": total,
	})
}

func (s *Server) handleCacheClear(c *gin.Context) {
	s.mu.Lock()
	n := len(s.cache)
	s.cache = map[string]int64{}
	s.mu.Unlock()

	s.logger.Info("cache cleared", zap.Int("entries", n))
	c.JSON(http.StatusOK, gin.H{"cleared": n})
}

// simulate applies the configured latency and scripted failure. It returns
// false when the response has already been written.
func (s *Server) simulate(c *gin.Context) bool {
	if s.cfg.Latency > 0 {
		select {
		case <-time.After(s.cfg.Latency):
		case <-c.Request.Context().Done():
			c.Abort()
			return false
		}
	}
	if s.cfg.FailStatus != 0 {
		c.String(s.cfg.FailStatus, http.StatusText(s.cfg.FailStatus))
		return false
	}
	return true
}

// upload is one received multipart file.
type upload struct {
	name string
	size int64
	data []byte
}

// readUpload reads the named file part. Bodies over the upload limit answer
// 413; a missing part answers 400. It returns false when the response has
// already been written.
func (s *Server) readUpload(c *gin.Context, field string) (upload, bool) {
	if err := c.Request.ParseMultipartForm(multipartMemory); err != nil {
		respondError(c, statusFor(err), err)
		return upload{}, false
	}

	f, hdr, err := c.Request.FormFile(field)
	if err != nil {
		respondError(c, http.StatusBadRequest, fmt.Errorf("missing %q file: %w", field, err))
		return upload{}, false
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		respondError(c, statusFor(err), err)
		return upload{}, false
	}

	u := upload{name: hdr.Filename, size: int64(len(data)), data: data}
	s.remember(u)
	return u, true
}

func (s *Server) remember(u upload) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cache[fmt.Sprintf("%s:%d", u.name, u.size)] = u.size
}

func statusFor(err error) int {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return http.StatusRequestEntityTooLarge
	}
	if errors.Is(err, multipart.ErrMessageTooLarge) || strings.Contains(err.Error(), "request body too large") {
		return http.StatusRequestEntityTooLarge
	}
	return http.StatusBadRequest
}

func respondError(c *gin.Context, status int, err error) {
	c.JSON(status, gin.H{"detail": err.Error()})
}
