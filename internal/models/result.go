package models

import "time"

// AnalysisResponse is the body of POST /cv/analyze.
type AnalysisResponse struct {
	AnalysisResult
	Warnings  []string `json:"warnings"`
	Cached    bool     `json:"cached"`
	RequestID string   `json:"request_id,omitempty"`
}

// NewAnalysisResponse flattens an outcome into the wire shape.
func NewAnalysisResponse(outcome *AnalysisOutcome) AnalysisResponse {
	warnings := outcome.Warnings
	if warnings == nil {
		warnings = []string{}
	}
	return AnalysisResponse{
		AnalysisResult: *outcome.Result,
		Warnings:       warnings,
		Cached:         outcome.Cached,
		RequestID:      outcome.RequestID,
	}
}

// ParseResponse is the body of POST /cv/parse.
type ParseResponse struct {
	FileName  string         `json:"file_name"`
	FileType  DocumentType   `json:"file_type"`
	CharCount int            `json:"char_count"`
	Preview   string         `json:"preview"`
	Truncated bool           `json:"truncated"`
	Meta      ExtractionMeta `json:"meta"`
	Warnings  []string       `json:"warnings"`
}

// CacheStats is a point-in-time view of the analysis cache.
type CacheStats struct {
	Entries    int    `json:"entries"`
	Capacity   int    `json:"capacity"`
	Hits       uint64 `json:"hits"`
	Misses     uint64 `json:"misses"`
	Evictions  uint64 `json:"evictions"`
	TTLSeconds int64  `json:"ttl_seconds"`
}

type HealthResponse struct {
	Status string     `json:"status"`
	Time   time.Time  `json:"time"`
	Cache  CacheStats `json:"cache"`
}

type ErrorResponse struct {
	Error     string         `json:"error"`
	Code      string         `json:"code"`
	Kind      string         `json:"kind"`
	Details   map[string]any `json:"details,omitempty"`
	RequestID string         `json:"request_id,omitempty"`
}
