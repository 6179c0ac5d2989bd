package models

// PipelineState is a state of the analysis request state machine.
type PipelineState string

const (
	StateReceived    PipelineState = "received"
	StateAdmitted    PipelineState = "admitted"
	StateRateLimited PipelineState = "rate_limited"
	StateValidated   PipelineState = "validated"
	StateRejected    PipelineState = "rejected"
	StateCacheHit    PipelineState = "cache_hit"
	StateCacheMiss   PipelineState = "cache_miss"
	StateAnalyzed    PipelineState = "analyzed"
	StateLLMFailed   PipelineState = "llm_failed"
	StateCached      PipelineState = "cached"
	StateCompleted   PipelineState = "completed"
)

// IsTerminal reports whether no further transition can follow s.
func (s PipelineState) IsTerminal() bool {
	switch s {
	case StateRateLimited, StateRejected, StateCacheHit, StateLLMFailed, StateCompleted:
		return true
	}
	return false
}

// AnalysisRequest is the inbound request handed over by the boundary layer.
type AnalysisRequest struct {
	RequestID      string
	CallerIdentity string
	Document       UploadedDocument
	JobDescription string
}

// AnalysisOutcome is the successful end of the pipeline.
type AnalysisOutcome struct {
	RequestID string
	State     PipelineState
	Result    *AnalysisResult
	Cached    bool
	Warnings  []string
}
