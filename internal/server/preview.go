package server

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/http"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/gin-gonic/gin"
	lru "github.com/hashicorp/golang-lru/v2"
	"go.opentelemetry.io/otel"

	"thumbcode/internal/logging"
	"thumbcode/internal/observability"
	"thumbcode/internal/sanitize"
)

const (
	previewCacheSize = 128
	maxPreviewBytes  = 1 << 20

	tracerName = "thumbcode/server"
)

// previewHandler sanitizes user HTML/CSS and wraps it for a sandboxed
// iframe. Sanitization is pure, so results are cached by content hash;
// the mobile client re-requests the same document on every editor keystroke
// debounce.
type previewHandler struct {
	cache  *lru.Cache[string, previewResponse]
	logger logging.Logger
}

func newPreviewHandler(logger logging.Logger) (*previewHandler, error) {
	cache, err := lru.New[string, previewResponse](previewCacheSize)
	if err != nil {
		return nil, fmt.Errorf("create preview cache: %w", err)
	}
	return &previewHandler{cache: cache, logger: logging.OrNop(logger)}, nil
}

type previewRequest struct {
	HTML string `json:"html"`
	CSS  string `json:"css"`
}

type previewResponse struct {
	Srcdoc string `json:"srcdoc"`
	Title  string `json:"title"`
	Cached bool   `json:"cached"`
}

func (p *previewHandler) render(c *gin.Context) {
	var req previewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, err)
		return
	}
	if len(req.HTML)+len(req.CSS) > maxPreviewBytes {
		respondError(c, http.StatusRequestEntityTooLarge, fmt.Errorf("preview content exceeds %d bytes", maxPreviewBytes))
		return
	}

	key := previewKey(req.HTML, req.CSS)
	if cached, ok := p.cache.Get(key); ok {
		cached.Cached = true
		c.JSON(http.StatusOK, cached)
		return
	}

	_, span := otel.Tracer(tracerName).Start(c.Request.Context(), observability.SpanPreview)
	doc := sanitize.SanitizeDocument(req.HTML, req.CSS)
	resp := previewResponse{
		Srcdoc: sanitize.SrcdocWrapper(doc),
		Title:  extractTitle(doc.HTML),
	}
	span.End()
	p.cache.Add(key, resp)
	c.JSON(http.StatusOK, resp)
}

func previewKey(html, css string) string {
	h := sha256.New()
	h.Write([]byte(html))
	h.Write([]byte{0})
	h.Write([]byte(css))
	return hex.EncodeToString(h.Sum(nil))
}

// extractTitle pulls a display name for the preview tab out of the sanitized
// markup: <title> if present, else the first heading.
func extractTitle(sanitizedHTML string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(sanitizedHTML))
	if err != nil {
		return ""
	}
	if title := strings.TrimSpace(doc.Find("title").First().Text()); title != "" {
		return title
	}
	return strings.TrimSpace(doc.Find("h1, h2, h3").First().Text())
}
