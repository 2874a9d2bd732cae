package model

import (
	"strings"
	"time"
)

// Contract represents a contract document
type Contract struct {
	ID        string            `json:"id"`
	Title     string            `json:"title"`
	Body      string            `json:"body"`
	File      *FileRef          `json:"file,omitempty"`
	Fields    []FieldDefinition `json:"fields"`
	Values    map[string]string `json:"values"`
	Status    Status            `json:"status"`
	OrgID     string            `json:"org_id"`
	CreatedBy string            `json:"created_by,omitempty"`
	CreatedAt time.Time         `json:"created_at"`
	UpdatedAt time.Time         `json:"updated_at"`
}

// FileRef points at the uploaded artifact currently bound to a contract.
// Path is the blob store key; URL is what clients download.
type FileRef struct {
	URL      string `json:"url"`
	Path     string `json:"path"`
	Name     string `json:"name"`
	MimeType string `json:"mime_type"`
}

const MimePDF = "application/pdf"

// IsPDF reports whether the file is a PDF and therefore the fillable artifact.
func (f *FileRef) IsPDF() bool {
	if f == nil {
		return false
	}
	if strings.EqualFold(f.MimeType, MimePDF) {
		return true
	}
	return strings.HasSuffix(strings.ToLower(f.Name), ".pdf")
}

// Status is the contract lifecycle state
type Status string

// Status constants
const (
	StatusDraft     Status = "draft"
	StatusPending   Status = "pending"
	StatusSent      Status = "sent"
	StatusSigned    Status = "signed"
	StatusExpired   Status = "expired"
	StatusCancelled Status = "cancelled"
)

// Valid reports whether s is one of the known statuses.
func (s Status) Valid() bool {
	switch s {
	case StatusDraft, StatusPending, StatusSent, StatusSigned, StatusExpired, StatusCancelled:
		return true
	}
	return false
}
