package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/pslima001/govy-function-current-sub002/items"
	"github.com/pslima001/govy-function-current-sub002/middleware"
	"github.com/pslima001/govy-function-current-sub002/model"
	"github.com/pslima001/govy-function-current-sub002/pkg/logger"
	"github.com/pslima001/govy-function-current-sub002/service"
)

// Extractor runs parameter and item extraction over a stored document.
type Extractor interface {
	Extract(ctx context.Context, doc model.Document, params []string) ([]model.Result, error)
	ExtractItems(ctx context.Context, doc model.Document) (items.Result, error)
}

var _ Extractor = (*service.Extraction)(nil)

type ExtractHandler struct {
	extraction Extractor
	store      *service.EditalStore
}

func NewExtractHandler(extraction Extractor) *ExtractHandler {
	return &ExtractHandler{
		extraction: extraction,
		store:      service.GetEditalStore(),
	}
}

// ExtractRequest names the document either by its object ref or by the id
// returned from upload.
type ExtractRequest struct {
	DocumentRef string   `json:"document_ref"`
	EditalID    string   `json:"edital_id"`
	Parameters  []string `json:"parameters"`
}

type ExtractResponse struct {
	DocumentRef string         `json:"document_ref"`
	Results     []model.Result `json:"results"`
}

type ItemsResponse struct {
	DocumentRef string                `json:"document_ref"`
	Status      items.Status          `json:"status"`
	Items       []model.ConsensusItem `json:"items"`
	Layers      []items.LayerReport   `json:"layers"`
	Dropped     int                   `json:"dropped"`
}

// Extract handles POST /api/extract
func (h *ExtractHandler) Extract(c *gin.Context) {
	var req ExtractRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}
	doc, ok := h.resolve(c, req)
	if !ok {
		return
	}

	ctx := logger.WithDocument(c.Request.Context(), doc.Ref)
	results, err := h.extraction.Extract(ctx, doc, req.Parameters)
	if err != nil {
		h.fail(c, ctx, err)
		return
	}

	found := 0
	for _, r := range results {
		if r.Found() {
			found++
		}
	}
	logger.Info(ctx, "parameters extracted", "parameters", len(results), "found", found)

	c.JSON(http.StatusOK, ExtractResponse{DocumentRef: doc.Ref, Results: results})
}

// ExtractItems handles POST /api/extract/items
func (h *ExtractHandler) ExtractItems(c *gin.Context) {
	var req ExtractRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}
	doc, ok := h.resolve(c, req)
	if !ok {
		return
	}

	ctx := logger.WithDocument(c.Request.Context(), doc.Ref)
	res, err := h.extraction.ExtractItems(ctx, doc)
	if err != nil {
		h.fail(c, ctx, err)
		return
	}

	if res.Items == nil {
		res.Items = []model.ConsensusItem{}
	}
	c.JSON(http.StatusOK, ItemsResponse{
		DocumentRef: doc.Ref,
		Status:      res.Status,
		Items:       res.Items,
		Layers:      res.Layers,
		Dropped:     res.Dropped,
	})
}

// resolve turns the request into a document of the caller's tenant. It
// writes the error response itself when it returns false.
func (h *ExtractHandler) resolve(c *gin.Context, req ExtractRequest) (model.Document, bool) {
	tenant := middleware.GetTenant(c)

	if req.DocumentRef == "" && req.EditalID != "" {
		e := h.store.Get(req.EditalID)
		if e == nil || e.Tenant != tenant {
			c.JSON(http.StatusNotFound, gin.H{"error": "Edital not found"})
			return model.Document{}, false
		}
		return e.Document(), true
	}

	ref := strings.TrimSpace(req.DocumentRef)
	if ref == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "document_ref is required"})
		return model.Document{}, false
	}
	if hasDotSegment(ref) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid document_ref"})
		return model.Document{}, false
	}
	if tenant != "" && !strings.HasPrefix(ref, tenant+"/") {
		c.JSON(http.StatusNotFound, gin.H{"error": "Document not found"})
		return model.Document{}, false
	}
	return model.Document{Ref: ref, Tenant: tenant}, true
}

// hasDotSegment reports whether ref has a "." or ".." path segment.
func hasDotSegment(ref string) bool {
	for _, seg := range strings.FieldsFunc(ref, func(r rune) bool { return r == '/' || r == '\\' }) {
		if seg == "." || seg == ".." {
			return true
		}
	}
	return false
}

func (h *ExtractHandler) fail(c *gin.Context, ctx context.Context, err error) {
	switch {
	case errors.Is(err, model.ErrInvalidInput), errors.Is(err, model.ErrUnknownParameter):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, model.ErrProviderUnavailable):
		logger.Warn(ctx, "document content unavailable", "error", err)
		c.JSON(http.StatusNotFound, gin.H{"error": "Document content not available"})
	default:
		logger.Error(ctx, "extraction failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Extraction failed"})
	}
}
