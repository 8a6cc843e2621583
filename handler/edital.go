package handler

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/pslima001/govy-function-current-sub002/middleware"
	"github.com/pslima001/govy-function-current-sub002/model"
	"github.com/pslima001/govy-function-current-sub002/pkg/logger"
	"github.com/pslima001/govy-function-current-sub002/service"
)

const docxContentType = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"

// Blobs is the object storage the edital pipeline writes to.
type Blobs interface {
	UploadFile(ctx context.Context, objectName string, reader io.Reader, size int64, contentType string) error
	GetPresignedURL(ctx context.Context, objectName string) (string, error)
	DeleteFile(ctx context.Context, objectName string) error
}

// Parser runs MinerU parsing tasks.
type Parser interface {
	CreateTask(ctx context.Context, documentURL, dataID string) (*service.MineruTaskResponse, error)
	GetTaskStatus(ctx context.Context, taskID string) (*service.MineruTaskStatusResponse, error)
	FetchZipContentList(ctx context.Context, zipURL string) ([]byte, error)
	FetchContentList(ctx context.Context, jsonURL string) ([]byte, error)
	VerifyCallback(checksum, content, uid string) bool
}

var (
	_ Blobs  = (*service.MinioService)(nil)
	_ Parser = (*service.MineruService)(nil)
)

type EditalHandler struct {
	blobs  Blobs
	parser Parser
	store  *service.EditalStore

	pollInterval time.Duration
	maxPolls     int
}

func NewEditalHandler(blobs Blobs, parser Parser) *EditalHandler {
	return &EditalHandler{
		blobs:        blobs,
		parser:       parser,
		store:        service.GetEditalStore(),
		pollInterval: 5 * time.Second,
		maxPolls:     60,
	}
}

// Upload stores an edital and starts parsing it
func (h *EditalHandler) Upload(c *gin.Context) {
	tenant := middleware.GetTenant(c)

	file, header, err := c.Request.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No file provided"})
		return
	}
	defer file.Close()

	filename := path.Base(strings.ReplaceAll(header.Filename, "\\", "/"))
	ext := strings.ToLower(path.Ext(filename))
	if ext != ".pdf" && ext != ".docx" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Only PDF and DOCX files are allowed"})
		return
	}

	contentType := docxContentType
	if ext == ".pdf" {
		head := make([]byte, 512)
		n, _ := io.ReadFull(file, head)
		if _, err := file.Seek(0, io.SeekStart); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to read file"})
			return
		}
		if !bytes.HasPrefix(head[:n], []byte("%PDF")) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid file type"})
			return
		}
		contentType = "application/pdf"
	}

	ctx := c.Request.Context()
	id := uuid.NewString()
	objectName := fmt.Sprintf("%s/%s/%s", tenant, id, filename)

	if err := h.blobs.UploadFile(ctx, objectName, file, header.Size, contentType); err != nil {
		logger.Error(ctx, "edital upload failed", "object", objectName, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to upload file: " + err.Error()})
		return
	}

	documentURL, err := h.blobs.GetPresignedURL(ctx, objectName)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate URL: " + err.Error()})
		return
	}

	now := time.Now()
	edital := &model.Edital{
		ID:          id,
		Filename:    filename,
		Tenant:      tenant,
		ObjectName:  objectName,
		DocumentURL: documentURL,
		Status:      model.StatusPending,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	h.store.Save(edital)
	logger.Info(ctx, "edital uploaded", "edital_id", id, "document_ref", objectName, "bytes", header.Size)

	// the parse outlives the request but keeps its log fields
	go h.process(logger.WithDocument(context.WithoutCancel(ctx), objectName), edital)

	c.JSON(http.StatusOK, gin.H{
		"id":           id,
		"filename":     filename,
		"document_ref": objectName,
		"document_url": documentURL,
		"status":       model.StatusPending,
	})
}

// process creates the MinerU task and waits for its content list.
func (h *EditalHandler) process(ctx context.Context, edital *model.Edital) {
	h.store.UpdateStatus(edital.ID, model.StatusProcessing, "")

	resp, err := h.parser.CreateTask(ctx, edital.DocumentURL, edital.ID)
	if err != nil {
		logger.Error(ctx, "mineru task not created", "edital_id", edital.ID, "error", err)
		h.store.UpdateStatus(edital.ID, model.StatusFailed, err.Error())
		return
	}
	h.store.UpdateTaskID(edital.ID, resp.Data.TaskID)

	h.poll(ctx, edital.ID, resp.Data.TaskID)
}

func (h *EditalHandler) poll(ctx context.Context, id, taskID string) {
	ticker := time.NewTicker(h.pollInterval)
	defer ticker.Stop()

	for attempt := 1; attempt <= h.maxPolls; attempt++ {
		select {
		case <-ctx.Done():
			h.store.UpdateStatus(id, model.StatusFailed, ctx.Err().Error())
			return
		case <-ticker.C:
		}

		status, err := h.parser.GetTaskStatus(ctx, taskID)
		if err != nil {
			logger.Warn(ctx, "mineru poll failed", "task_id", taskID, "attempt", attempt, "error", err)
			continue
		}

		switch status.Data.State {
		case "done":
			if status.Data.FullZipURL == "" {
				h.store.UpdateStatus(id, model.StatusFailed, "MinerU returned no result archive")
				return
			}
			content, err := h.parser.FetchZipContentList(ctx, status.Data.FullZipURL)
			if err != nil {
				logger.Error(ctx, "mineru result unreadable", "task_id", taskID, "error", err)
				h.store.UpdateStatus(id, model.StatusFailed, "Failed to fetch content list: "+err.Error())
				return
			}
			h.saveContentList(ctx, id, content)
			return
		case "failed":
			logger.Warn(ctx, "mineru task failed", "task_id", taskID, "error", status.Data.ErrorMsg)
			h.store.UpdateStatus(id, model.StatusFailed, status.Data.ErrorMsg)
			return
		case "running":
			p := status.Data.ExtractProgress
			logger.Debug(ctx, "mineru progress", "task_id", taskID, "pages", p.ExtractedPages, "total_pages", p.TotalPages)
		}
	}

	logger.Warn(ctx, "mineru polling timed out", "task_id", taskID, "attempts", h.maxPolls)
	h.store.UpdateStatus(id, model.StatusFailed, "Task polling timeout")
}

// saveContentList stores the content list next to the document, where the
// extraction providers look for it.
func (h *EditalHandler) saveContentList(ctx context.Context, id string, content []byte) {
	edital := h.store.Get(id)
	if edital == nil {
		return
	}
	key := service.ContentListKey(edital.ObjectName)
	if err := h.blobs.UploadFile(ctx, key, bytes.NewReader(content), int64(len(content)), "application/json"); err != nil {
		logger.Error(ctx, "content list not stored", "object", key, "error", err)
		h.store.UpdateStatus(id, model.StatusFailed, "Failed to store content list: "+err.Error())
		return
	}
	h.store.UpdateContent(id, key)
	logger.Info(ctx, "edital parsed", "edital_id", id, "content_key", key, "bytes", len(content))
}

func editalSummary(e *model.Edital) gin.H {
	return gin.H{
		"id":           e.ID,
		"filename":     e.Filename,
		"status":       e.Status,
		"document_ref": e.ObjectName,
		"document_url": e.DocumentURL,
		"created_at":   e.CreatedAt.Format(time.RFC3339),
		"updated_at":   e.UpdatedAt.Format(time.RFC3339),
	}
}

// List returns the tenant's editais, newest first
func (h *EditalHandler) List(c *gin.Context) {
	editais := h.store.GetByTenant(middleware.GetTenant(c))

	result := make([]gin.H, len(editais))
	for i, e := range editais {
		result[i] = editalSummary(e)
	}
	c.JSON(http.StatusOK, gin.H{"editais": result})
}

// owned returns the edital when it belongs to the caller's tenant.
func (h *EditalHandler) owned(c *gin.Context) *model.Edital {
	e := h.store.Get(c.Param("id"))
	if e == nil || e.Tenant != middleware.GetTenant(c) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Edital not found"})
		return nil
	}
	return e
}

func (h *EditalHandler) Get(c *gin.Context) {
	if e := h.owned(c); e != nil {
		c.JSON(http.StatusOK, e)
	}
}

func (h *EditalHandler) GetStatus(c *gin.Context) {
	e := h.owned(c)
	if e == nil {
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"id":        e.ID,
		"status":    e.Status,
		"error_msg": e.ErrorMsg,
	})
}

// Delete removes the edital record and its stored objects
func (h *EditalHandler) Delete(c *gin.Context) {
	e := h.owned(c)
	if e == nil {
		return
	}

	ctx := c.Request.Context()
	for _, key := range []string{e.ObjectName, e.ContentKey} {
		if key == "" {
			continue
		}
		if err := h.blobs.DeleteFile(ctx, key); err != nil {
			logger.Warn(ctx, "object not deleted", "object", key, "error", err)
		}
	}
	h.store.Delete(e.ID)

	c.JSON(http.StatusOK, gin.H{"message": "Edital deleted"})
}
