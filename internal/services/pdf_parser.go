package services

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"
)

type PDFParserService interface {
	ExtractText(ctx context.Context, data []byte, maxPages int) (*PDFContent, error)
}

type PDFContent struct {
	Text      string
	PageCount int
}

type pdfParserService struct{}

func NewPDFParserService() PDFParserService {
	return &pdfParserService{}
}

// ExtractText checks the page count against maxPages before reading any page
// content, then extracts plain text page by page. ctx is checked between pages.
func (p *pdfParserService) ExtractText(ctx context.Context, data []byte, maxPages int) (*PDFContent, error) {
	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, NewValidationError(CodeCorruptDocument, "Failed to open PDF.", map[string]any{"reason": err.Error()})
	}

	totalPage := r.NumPage()
	if totalPage > maxPages {
		return nil, NewValidationError(CodeTooComplex,
			fmt.Sprintf("PDF has too many pages (%d). Maximum allowed: %d.", totalPage, maxPages),
			map[string]any{"pages": totalPage, "max_pages": maxPages})
	}

	var textBuilder strings.Builder
	for pageIndex := 1; pageIndex <= totalPage; pageIndex++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		page := r.Page(pageIndex)
		if page.V.IsNull() {
			continue
		}

		text, err := page.GetPlainText(nil)
		if err != nil {
			// Unreadable pages are skipped, the rest of the document still counts.
			continue
		}

		textBuilder.WriteString(text)
		textBuilder.WriteString("\n\n")
	}

	return &PDFContent{
		Text:      textBuilder.String(),
		PageCount: totalPage,
	}, nil
}
