package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"alfredoptarigan/cv-analyzer/internal/models"
)

const (
	warnLowText      = "Very little text extracted. PDF may be image-based (OCR is not supported)."
	warnCVTruncated  = "CV text was truncated to fit model limits."
	warnJobTruncated = "Job description was truncated to fit model limits."
)

// ExtractionLimits bound the cost of turning one upload into text.
type ExtractionLimits struct {
	MaxUploadBytes    int64
	MaxPDFPages       int
	MaxDOCXParagraphs int
	Archive           ArchiveLimits
	Timeout           time.Duration
	MaxCVChars        int
	MaxJobChars       int
	MinCVChars        int
	MinJobChars       int
}

// DocumentExtractor validates uploads and derives normalized text from them.
type DocumentExtractor interface {
	// ExtractCV runs every hard check on doc and returns clipped, normalized text.
	// Failures are *AppError of KindValidation.
	ExtractCV(ctx context.Context, doc models.UploadedDocument) (*models.ExtractedText, error)
	// PrepareJobDescription normalizes and clips free text.
	PrepareJobDescription(text string) *models.ExtractedText
	// EnsureAnalyzable rejects texts too short to analyze meaningfully.
	EnsureAnalyzable(cv, job *models.ExtractedText) error
}

type documentExtractor struct {
	limits ExtractionLimits
	pdf    PDFParserService
	docx   DOCXParserService
	pool   Worker
	log    *zap.Logger
}

func NewDocumentExtractor(limits ExtractionLimits, pdf PDFParserService, docx DOCXParserService, pool Worker, log *zap.Logger) DocumentExtractor {
	return &documentExtractor{
		limits: limits,
		pdf:    pdf,
		docx:   docx,
		pool:   pool,
		log:    log,
	}
}

type rawExtraction struct {
	text string
	meta models.ExtractionMeta
}

func (e *documentExtractor) ExtractCV(ctx context.Context, doc models.UploadedDocument) (*models.ExtractedText, error) {
	size := doc.Size
	if size < int64(len(doc.Data)) {
		size = int64(len(doc.Data))
	}
	if size == 0 {
		return nil, NewValidationError(CodeEmptyFile, "Uploaded file is empty.", nil)
	}
	if size > e.limits.MaxUploadBytes {
		return nil, NewValidationError(CodeFileTooLarge,
			fmt.Sprintf("File exceeds maximum size of %.1fMB.", float64(e.limits.MaxUploadBytes)/(1024*1024)),
			map[string]any{"size_bytes": size, "max_bytes": e.limits.MaxUploadBytes})
	}

	// The signature decides, the declared type only has to agree with it.
	detected, ok := DetectDocumentType(doc.Data)
	if !ok {
		return nil, NewValidationError(CodeInvalidSignature,
			"File content does not match any supported format (PDF or DOCX).", nil)
	}
	declared, ok := DocumentTypeFromMediaType(doc.MediaType)
	if !ok {
		return nil, NewValidationError(CodeUnsupportedFileType,
			"Unsupported file type. Upload a PDF or DOCX file.",
			map[string]any{"media_type": doc.MediaType})
	}
	if declared != detected {
		return nil, NewValidationError(CodeSignatureMismatch,
			fmt.Sprintf("File content is %s but was declared as %s.", detected, declared),
			map[string]any{"declared": declared, "detected": detected})
	}

	if detected == models.DocumentTypeDOCX {
		stats, err := CheckArchiveExpansion(doc.Data, e.limits.Archive)
		if err != nil {
			return nil, err
		}
		e.log.Debug("extraction.archive_checked",
			zap.Int("entries", stats.Entries),
			zap.Uint64("uncompressed_bytes", stats.UncompressedBytes),
			zap.Float64("ratio", stats.Ratio))
	}

	raw, err := e.extract(ctx, detected, doc.Data)
	if err != nil {
		return nil, err
	}

	text := NormalizeText(raw.text)
	var warnings []string
	if CharCount(text) < e.limits.MinCVChars {
		warnings = append(warnings, warnLowText)
	}
	text, truncated := ClipText(text, e.limits.MaxCVChars)
	if truncated {
		warnings = append(warnings, warnCVTruncated)
	}

	e.log.Debug("extraction.completed",
		zap.String("file_type", string(detected)),
		zap.Int("pages", raw.meta.Pages),
		zap.Int("paragraphs", raw.meta.Paragraphs),
		zap.Duration("duration", raw.meta.Duration),
		zap.Bool("truncated", truncated))

	return &models.ExtractedText{
		Class:     models.DocumentClassCV,
		Source:    detected,
		Text:      text,
		CharCount: CharCount(text),
		Truncated: truncated,
		Meta:      raw.meta,
		Warnings:  warnings,
	}, nil
}

// extract runs the parser on the worker pool under the extraction deadline.
func (e *documentExtractor) extract(ctx context.Context, docType models.DocumentType, data []byte) (*rawExtraction, error) {
	ctx, cancel := context.WithTimeout(ctx, e.limits.Timeout)
	defer cancel()

	start := time.Now()
	value, err := e.pool.Run(ctx, func(jobCtx context.Context) (any, error) {
		switch docType {
		case models.DocumentTypePDF:
			content, err := e.pdf.ExtractText(jobCtx, data, e.limits.MaxPDFPages)
			if err != nil {
				return nil, err
			}
			return &rawExtraction{text: content.Text, meta: models.ExtractionMeta{Pages: content.PageCount}}, nil
		default:
			content, err := e.docx.ExtractText(jobCtx, data, e.limits.MaxDOCXParagraphs, e.limits.Archive.MaxUncompressedBytes)
			if err != nil {
				return nil, err
			}
			return &rawExtraction{text: content.Text, meta: models.ExtractionMeta{Paragraphs: content.Paragraphs}}, nil
		}
	})
	elapsed := time.Since(start)

	if err != nil {
		if _, ok := AsAppError(err); ok {
			return nil, err
		}
		if errors.Is(err, context.DeadlineExceeded) && ctx.Err() != nil {
			e.log.Warn("extraction.timeout",
				zap.String("file_type", string(docType)),
				zap.Duration("timeout", e.limits.Timeout))
			return nil, NewValidationError(CodeExtractionTimeout,
				fmt.Sprintf("Document extraction did not finish within %s.", e.limits.Timeout),
				map[string]any{"timeout_seconds": e.limits.Timeout.Seconds()})
		}
		if errors.Is(err, context.Canceled) {
			return nil, err
		}
		return nil, NewValidationError(CodeCorruptDocument, "Failed to extract text from document.",
			map[string]any{"reason": err.Error()})
	}

	raw := value.(*rawExtraction)
	raw.meta.Duration = elapsed
	raw.meta.DurationMs = elapsed.Milliseconds()
	return raw, nil
}

func (e *documentExtractor) PrepareJobDescription(text string) *models.ExtractedText {
	normalized := NormalizeText(text)
	normalized, truncated := ClipText(normalized, e.limits.MaxJobChars)

	var warnings []string
	if truncated {
		warnings = append(warnings, warnJobTruncated)
	}
	return &models.ExtractedText{
		Class:     models.DocumentClassJob,
		Text:      normalized,
		CharCount: CharCount(normalized),
		Truncated: truncated,
		Warnings:  warnings,
	}
}

func (e *documentExtractor) EnsureAnalyzable(cv, job *models.ExtractedText) error {
	if cv.CharCount < e.limits.MinCVChars {
		return NewValidationError(CodeCVTooShort,
			"CV text is too short. PDF may be image-based (OCR is not supported).",
			map[string]any{"min_chars": e.limits.MinCVChars, "actual": cv.CharCount})
	}
	if job.CharCount < e.limits.MinJobChars {
		return NewValidationError(CodeJobTooShort,
			fmt.Sprintf("Job description is too short (minimum %d characters).", e.limits.MinJobChars),
			map[string]any{"min_chars": e.limits.MinJobChars, "actual": job.CharCount})
	}
	return nil
}
