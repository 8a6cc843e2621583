package model

import (
	"time"
)

// Edital represents an uploaded procurement document
type Edital struct {
	ID           string    `json:"id"`
	Filename     string    `json:"filename"`
	Tenant       string    `json:"tenant"`
	ObjectName   string    `json:"object_name"`
	DocumentURL  string    `json:"document_url"`
	Status       string    `json:"status"` // pending, processing, completed, failed
	MineruTaskID string    `json:"mineru_task_id,omitempty"`
	ContentKey   string    `json:"content_key,omitempty"`
	ErrorMsg     string    `json:"error_msg,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Edital status constants
const (
	StatusPending    = "pending"
	StatusProcessing = "processing"
	StatusCompleted  = "completed"
	StatusFailed     = "failed"
)

// Document returns the reference extractors resolve against.
func (e *Edital) Document() Document {
	return Document{Ref: e.ObjectName, Tenant: e.Tenant}
}
