package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/pslima001/govy-function-current-sub002/model"
	"github.com/pslima001/govy-function-current-sub002/pkg/logger"
)

// CallbackHandler receives MinerU task notifications. It shares the edital
// pipeline so callback results land where polling would put them.
type CallbackHandler struct {
	editais *EditalHandler
	uid     string
	seed    string
}

func NewCallbackHandler(editais *EditalHandler, uid, seed string) *CallbackHandler {
	return &CallbackHandler{editais: editais, uid: uid, seed: seed}
}

type CallbackRequest struct {
	Checksum string `json:"checksum"`
	Content  string `json:"content"`
}

type CallbackContent struct {
	TaskID     string `json:"task_id"`
	DataID     string `json:"data_id"`
	State      string `json:"state"`
	FullZipURL string `json:"full_zip_url"`
	FullPages  []struct {
		PageNo  int    `json:"page_no"`
		MDURL   string `json:"md_url"`
		JsonURL string `json:"json_url"`
	} `json:"full_pages"`
	ErrorMsg string `json:"err_msg"`
}

// HandleCallback receives callback from MinerU
func (h *CallbackHandler) HandleCallback(c *gin.Context) {
	var req CallbackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	if h.uid != "" && h.seed != "" && !h.editais.parser.VerifyCallback(req.Checksum, req.Content, h.uid) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid checksum"})
		return
	}

	var content CallbackContent
	if err := json.Unmarshal([]byte(req.Content), &content); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid content format"})
		return
	}

	// DataID is the edital id sent with the task
	store := h.editais.store
	edital := store.Get(content.DataID)
	if edital == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Edital not found"})
		return
	}

	ctx := logger.WithDocument(c.Request.Context(), edital.ObjectName)
	logger.Info(ctx, "mineru callback", "edital_id", edital.ID, "task_id", content.TaskID, "state", content.State)

	switch content.State {
	case "done":
		data, err := h.fetch(ctx, content)
		switch {
		case err != nil:
			store.UpdateStatus(edital.ID, model.StatusFailed, "Failed to fetch content list: "+err.Error())
		case data == nil:
			store.UpdateStatus(edital.ID, model.StatusFailed, "MinerU returned no result")
		default:
			h.editais.saveContentList(ctx, edital.ID, data)
		}
	case "failed":
		store.UpdateStatus(edital.ID, model.StatusFailed, content.ErrorMsg)
	}

	c.JSON(http.StatusOK, gin.H{"message": "Callback received"})
}

func (h *CallbackHandler) fetch(ctx context.Context, content CallbackContent) ([]byte, error) {
	parser := h.editais.parser
	if content.FullZipURL != "" {
		return parser.FetchZipContentList(ctx, content.FullZipURL)
	}
	if len(content.FullPages) > 0 && content.FullPages[0].JsonURL != "" {
		return parser.FetchContentList(ctx, content.FullPages[0].JsonURL)
	}
	return nil, nil
}
