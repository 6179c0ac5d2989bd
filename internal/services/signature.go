package services

import (
	"bytes"
	"mime"
	"strings"

	"alfredoptarigan/cv-analyzer/internal/models"
)

var documentSignatures = []struct {
	docType models.DocumentType
	magic   []byte
}{
	{docType: models.DocumentTypePDF, magic: []byte("%PDF-")},
	{docType: models.DocumentTypeDOCX, magic: []byte("PK\x03\x04")},
}

var mediaTypes = map[string]models.DocumentType{
	"application/pdf": models.DocumentTypePDF,
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document": models.DocumentTypeDOCX,
	"application/vnd.ms-word.document.macroenabled.12":                        models.DocumentTypeDOCX,
}

// DocumentTypeFromMediaType maps a declared Content-Type to a supported format.
// Parameters such as "; charset=binary" are ignored.
func DocumentTypeFromMediaType(mediaType string) (models.DocumentType, bool) {
	if parsed, _, err := mime.ParseMediaType(mediaType); err == nil {
		mediaType = parsed
	}
	docType, ok := mediaTypes[strings.ToLower(strings.TrimSpace(mediaType))]
	return docType, ok
}

// DetectDocumentType identifies a format from its leading bytes only.
func DetectDocumentType(data []byte) (models.DocumentType, bool) {
	for _, sig := range documentSignatures {
		if bytes.HasPrefix(data, sig.magic) {
			return sig.docType, true
		}
	}
	return "", false
}

// MediaTypeForExtension is used by the CLI, which has no Content-Type to go on.
func MediaTypeForExtension(name string) string {
	lower := strings.ToLower(name)
	switch {
	case strings.HasSuffix(lower, ".pdf"):
		return "application/pdf"
	case strings.HasSuffix(lower, ".docx"):
		return "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	}
	return "application/octet-stream"
}
