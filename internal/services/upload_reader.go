package services

import (
	"fmt"
	"io"
	"mime/multipart"

	"alfredoptarigan/cv-analyzer/internal/models"
)

// ReadUpload loads an uploaded file into memory. Nothing touches disk; the
// bytes live only as long as the request. At most maxBytes+1 bytes are read so
// an oversized upload is reported without buffering all of it.
func ReadUpload(file *multipart.FileHeader, maxBytes int64) (models.UploadedDocument, error) {
	doc := models.UploadedDocument{
		Filename:  file.Filename,
		MediaType: file.Header.Get("Content-Type"),
		Size:      file.Size,
	}
	if file.Size > maxBytes {
		return doc, nil
	}

	src, err := file.Open()
	if err != nil {
		return doc, fmt.Errorf("failed to open uploaded file: %w", err)
	}
	defer src.Close()

	data, err := io.ReadAll(io.LimitReader(src, maxBytes+1))
	if err != nil {
		return doc, fmt.Errorf("failed to read uploaded file: %w", err)
	}

	doc.Data = data
	doc.Size = int64(len(data))
	return doc, nil
}
