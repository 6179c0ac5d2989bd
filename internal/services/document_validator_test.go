package services

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"alfredoptarigan/cv-analyzer/internal/models"
)

const (
	mediaPDF  = "application/pdf"
	mediaDOCX = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
)

func testLimits() ExtractionLimits {
	return ExtractionLimits{
		MaxUploadBytes:    1024 * 1024,
		MaxPDFPages:       5,
		MaxDOCXParagraphs: 50,
		Archive:           ArchiveLimits{MaxCompressionRatio: 100, MaxUncompressedBytes: 1024 * 1024},
		Timeout:           2 * time.Second,
		MaxCVChars:        50000,
		MaxJobChars:       10000,
		MinCVChars:        20,
		MinJobChars:       10,
	}
}

func newTestExtractor(t *testing.T, limits ExtractionLimits) DocumentExtractor {
	t.Helper()
	pool := NewWorker(2, zap.NewNop())
	pool.Start(context.Background())
	t.Cleanup(pool.Stop)
	return NewDocumentExtractor(limits, NewPDFParserService(), NewDOCXParserService(), pool, zap.NewNop())
}

func upload(data []byte, mediaType string) models.UploadedDocument {
	return models.UploadedDocument{Filename: "cv", MediaType: mediaType, Data: data, Size: int64(len(data))}
}

func requireValidationCode(t *testing.T, err error, code string) {
	t.Helper()
	require.Error(t, err)
	appErr, ok := AsAppError(err)
	require.True(t, ok, "expected AppError, got %v", err)
	assert.Equal(t, KindValidation, appErr.Kind)
	assert.Equal(t, code, appErr.Code)
}

// pdfParserFunc counts calls so tests can assert extraction never ran.
type pdfParserFunc func(ctx context.Context, data []byte, maxPages int) (*PDFContent, error)

func (f pdfParserFunc) ExtractText(ctx context.Context, data []byte, maxPages int) (*PDFContent, error) {
	return f(ctx, data, maxPages)
}

func TestExtractCV_PDF(t *testing.T) {
	e := newTestExtractor(t, testLimits())

	out, err := e.ExtractCV(context.Background(), upload(buildPDF(t, "Hello   from   Jane Doe, Go engineer"), mediaPDF))
	require.NoError(t, err)

	assert.Equal(t, models.DocumentClassCV, out.Class)
	assert.Equal(t, models.DocumentTypePDF, out.Source)
	assert.Equal(t, 1, out.Meta.Pages)
	assert.Contains(t, out.Text, "Hello from Jane Doe")
	assert.Equal(t, len([]rune(out.Text)), out.CharCount)
	assert.False(t, out.Truncated)
	assert.Empty(t, out.Warnings)
}

func TestExtractCV_DOCX(t *testing.T) {
	e := newTestExtractor(t, testLimits())

	out, err := e.ExtractCV(context.Background(), upload(buildDOCX(t, "Jane Doe", "", "Senior Go Engineer at Acme"), mediaDOCX))
	require.NoError(t, err)

	assert.Equal(t, models.DocumentTypeDOCX, out.Source)
	assert.Equal(t, 2, out.Meta.Paragraphs)
	assert.Contains(t, out.Text, "Jane Doe")
	assert.Contains(t, out.Text, "Senior Go Engineer at Acme")
}

func TestExtractCV_RejectsBeforeExtraction(t *testing.T) {
	pdfBytes := buildPDF(t, "Hello")
	docxBytes := buildDOCX(t, "Hello")

	tests := []struct {
		name   string
		doc    models.UploadedDocument
		limits func(*ExtractionLimits)
		code   string
	}{
		{
			name: "empty upload",
			doc:  upload(nil, mediaPDF),
			code: CodeEmptyFile,
		},
		{
			name:   "too large",
			doc:    upload(pdfBytes, mediaPDF),
			limits: func(l *ExtractionLimits) { l.MaxUploadBytes = 16 },
			code:   CodeFileTooLarge,
		},
		{
			name: "unknown signature declared as pdf",
			doc:  upload([]byte("\x89PNG\r\n\x1a\nnot a document"), mediaPDF),
			code: CodeInvalidSignature,
		},
		{
			name: "docx bytes declared as pdf",
			doc:  upload(docxBytes, mediaPDF),
			code: CodeSignatureMismatch,
		},
		{
			name: "pdf bytes declared as docx",
			doc:  upload(pdfBytes, mediaDOCX),
			code: CodeSignatureMismatch,
		},
		{
			name: "unsupported declared type",
			doc:  upload(pdfBytes, "image/png"),
			code: CodeUnsupportedFileType,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			limits := testLimits()
			if tt.limits != nil {
				tt.limits(&limits)
			}

			calls := 0
			pool := NewWorker(1, zap.NewNop())
			pool.Start(context.Background())
			t.Cleanup(pool.Stop)
			parser := pdfParserFunc(func(ctx context.Context, data []byte, maxPages int) (*PDFContent, error) {
				calls++
				return &PDFContent{}, nil
			})
			e := NewDocumentExtractor(limits, parser, NewDOCXParserService(), pool, zap.NewNop())

			_, err := e.ExtractCV(context.Background(), tt.doc)
			requireValidationCode(t, err, tt.code)
			assert.Zero(t, calls)
		})
	}
}

func TestExtractCV_TooManyPages(t *testing.T) {
	limits := testLimits()
	limits.MaxPDFPages = 1
	e := newTestExtractor(t, limits)

	_, err := e.ExtractCV(context.Background(), upload(buildPDF(t, "one", "two"), mediaPDF))
	requireValidationCode(t, err, CodeTooComplex)
}

func TestExtractCV_TooManyParagraphs(t *testing.T) {
	limits := testLimits()
	limits.MaxDOCXParagraphs = 3
	e := newTestExtractor(t, limits)

	_, err := e.ExtractCV(context.Background(), upload(buildDOCX(t, "a", "b", "c", "d"), mediaDOCX))
	requireValidationCode(t, err, CodeTooComplex)
}

func TestExtractCV_ZipBombRejectedFromHeaders(t *testing.T) {
	limits := testLimits()
	e := newTestExtractor(t, limits)

	bomb := zipFiles(t, map[string][]byte{
		"word/document.xml": []byte(strings.Repeat("A", 4*1024*1024)),
	})
	_, err := e.ExtractCV(context.Background(), upload(bomb, mediaDOCX))
	requireValidationCode(t, err, CodeArchiveUnsafe)
}

func TestExtractCV_CorruptPDF(t *testing.T) {
	e := newTestExtractor(t, testLimits())

	_, err := e.ExtractCV(context.Background(), upload([]byte("%PDF-1.4\n"+strings.Repeat("x", 200)), mediaPDF))
	requireValidationCode(t, err, CodeCorruptDocument)
}

func TestExtractCV_Timeout(t *testing.T) {
	limits := testLimits()
	limits.Timeout = 30 * time.Millisecond

	pool := NewWorker(1, zap.NewNop())
	pool.Start(context.Background())
	t.Cleanup(pool.Stop)
	slow := pdfParserFunc(func(ctx context.Context, data []byte, maxPages int) (*PDFContent, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	})
	e := NewDocumentExtractor(limits, slow, NewDOCXParserService(), pool, zap.NewNop())

	start := time.Now()
	_, err := e.ExtractCV(context.Background(), upload(buildPDF(t, "Hello"), mediaPDF))
	requireValidationCode(t, err, CodeExtractionTimeout)
	assert.Less(t, time.Since(start), time.Second)
}

func TestExtractCV_TruncatesAndWarns(t *testing.T) {
	limits := testLimits()
	limits.MaxCVChars = 40
	limits.MinCVChars = 5
	e := newTestExtractor(t, limits)

	out, err := e.ExtractCV(context.Background(), upload(buildDOCX(t, strings.Repeat("word ", 40)), mediaDOCX))
	require.NoError(t, err)
	assert.True(t, out.Truncated)
	assert.LessOrEqual(t, out.CharCount, 40)
	assert.Contains(t, out.Warnings, warnCVTruncated)
}

func TestExtractCV_LowTextWarns(t *testing.T) {
	limits := testLimits()
	limits.MinCVChars = 100
	e := newTestExtractor(t, limits)

	out, err := e.ExtractCV(context.Background(), upload(buildDOCX(t, "short"), mediaDOCX))
	require.NoError(t, err)
	assert.Contains(t, out.Warnings, warnLowText)
}

func TestPrepareJobDescription(t *testing.T) {
	limits := testLimits()
	limits.MaxJobChars = 12
	e := newTestExtractor(t, limits)

	out := e.PrepareJobDescription("  Backend\r\n\r\n\r\nEngineer   wanted  ")
	assert.Equal(t, models.DocumentClassJob, out.Class)
	assert.Equal(t, "Backend\n\nEng", out.Text)
	assert.True(t, out.Truncated)
	assert.Equal(t, []string{warnJobTruncated}, out.Warnings)
}

func TestEnsureAnalyzable(t *testing.T) {
	e := newTestExtractor(t, testLimits())

	cv := &models.ExtractedText{CharCount: 100}
	job := &models.ExtractedText{CharCount: 100}
	assert.NoError(t, e.EnsureAnalyzable(cv, job))

	requireValidationCode(t, e.EnsureAnalyzable(&models.ExtractedText{CharCount: 3}, job), CodeCVTooShort)
	requireValidationCode(t, e.EnsureAnalyzable(cv, &models.ExtractedText{CharCount: 3}), CodeJobTooShort)
}
