package documents

import (
	"io"
	"time"
)

// Status of a knowledge document.
type Status string

const (
	StatusProcessing Status = "processing"
	StatusSuccess    Status = "success"
	StatusError      Status = "error"
	// StatusDuplicate marks the conflict view returned for re-uploaded
	// content. The stored row keeps its real status.
	StatusDuplicate Status = "duplicate"
)

// Document is one ingested knowledge file: the local metadata row plus the
// handle of its copy in the provider file store.
type Document struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	ContentHash  string    `json:"content_hash"`
	ProviderName string    `json:"provider_name"`
	ProviderURI  string    `json:"provider_uri"`
	MimeType     string    `json:"mime_type"`
	SizeBytes    int64     `json:"size_bytes"`
	Status       Status    `json:"status"`
	UsageCount   int64     `json:"usage_count"`
	CreatedAt    time.Time `json:"created_at"`
}

// IngestInput describes one upload from the console.
type IngestInput struct {
	Name     string
	Mime     string
	Reader   io.Reader
	MaxBytes int64
}
