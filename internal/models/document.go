package models

import "time"

// DocumentType is the binary format of an uploaded document.
type DocumentType string

const (
	DocumentTypePDF  DocumentType = "pdf"
	DocumentTypeDOCX DocumentType = "docx"
)

// DocumentClass tells which side of the comparison a text belongs to.
type DocumentClass string

const (
	DocumentClassCV  DocumentClass = "cv"
	DocumentClassJob DocumentClass = "job_description"
)

// UploadedDocument is the raw upload. It lives only for the request that produced it.
type UploadedDocument struct {
	Filename  string
	MediaType string
	Data      []byte
	Size      int64
}

// ExtractionMeta describes the structure of an extracted document.
type ExtractionMeta struct {
	Pages      int           `json:"pages,omitempty"`
	Paragraphs int           `json:"paragraphs,omitempty"`
	Duration   time.Duration `json:"-"`
	DurationMs int64         `json:"duration_ms"`
}

// ExtractedText is normalized text derived once per request.
type ExtractedText struct {
	Class     DocumentClass  `json:"class"`
	Source    DocumentType   `json:"source,omitempty"`
	Text      string         `json:"-"`
	CharCount int            `json:"char_count"`
	Truncated bool           `json:"truncated"`
	Meta      ExtractionMeta `json:"meta"`
	Warnings  []string       `json:"warnings"`
}
