package services

import (
	"errors"
	"fmt"
	"time"

	"alfredoptarigan/cv-analyzer/internal/models"
)

// ErrorKind tags a terminal failure so the boundary layer can map it.
type ErrorKind string

const (
	KindValidation  ErrorKind = "validation"
	KindRateLimited ErrorKind = "rate_limited"
	KindLLM         ErrorKind = "llm"
)

// Validation codes.
const (
	CodeEmptyFile           = "empty_file"
	CodeFileTooLarge        = "file_too_large"
	CodeUnsupportedFileType = "unsupported_file_type"
	CodeInvalidSignature    = "invalid_signature"
	CodeSignatureMismatch   = "signature_mismatch"
	CodeArchiveUnsafe       = "archive_unsafe"
	CodeTooComplex          = "document_too_complex"
	CodeCorruptDocument     = "corrupt_document"
	CodeExtractionTimeout   = "extraction_timeout"
	CodeCVTooShort          = "cv_text_too_short"
	CodeJobTooShort         = "job_text_too_short"
	CodeInvalidCVContent    = "invalid_cv_content"
	CodeInvalidJobContent   = "invalid_job_content"

	CodeRateLimited = "rate_limit_exceeded"

	CodeLLMExhausted     = "llm_retries_exhausted"
	CodeLLMInputRejected = "llm_input_rejected"
	CodeLLMCancelled     = "llm_cancelled"
	CodeLLMAuth          = "llm_auth_failed"
)

// AppError is the typed result of every failed pipeline run. Message is safe to
// show to callers; Cause is for server-side logs only.
type AppError struct {
	Kind       ErrorKind
	Code       string
	Message    string
	Details    map[string]any
	RetryAfter time.Duration
	State      models.PipelineState
	Cause      error
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

func NewValidationError(code, message string, details map[string]any) *AppError {
	return &AppError{Kind: KindValidation, Code: code, Message: message, Details: details}
}

func NewRateLimitedError(retryAfter time.Duration) *AppError {
	return &AppError{
		Kind:       KindRateLimited,
		Code:       CodeRateLimited,
		Message:    "Rate limit exceeded. Try again later.",
		RetryAfter: retryAfter,
	}
}

func NewLLMError(code, message string, cause error) *AppError {
	return &AppError{Kind: KindLLM, Code: code, Message: message, Cause: cause}
}

// AsAppError extracts an *AppError from err's chain.
func AsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// IsKind reports whether err carries an AppError of the given kind.
func IsKind(err error, kind ErrorKind) bool {
	appErr, ok := AsAppError(err)
	return ok && appErr.Kind == kind
}
