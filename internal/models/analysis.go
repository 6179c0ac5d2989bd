package models

// Confidence is the provider-assigned confidence band of an analysis.
type Confidence string

const (
	ConfidenceLow    Confidence = "low"
	ConfidenceMedium Confidence = "medium"
	ConfidenceHigh   Confidence = "high"
)

// EvidenceItem links a claim to a verbatim quote from the CV text.
type EvidenceItem struct {
	Claim   string `json:"claim"`
	CVQuote string `json:"cv_quote"`
}

// AnalysisResult is the structured compatibility analysis returned by the model.
type AnalysisResult struct {
	Summary            string         `json:"summary"`
	FitScore           int            `json:"fit_score"`
	FitScoreRationale  string         `json:"fit_score_rationale"`
	Strengths          []string       `json:"strengths"`
	Gaps               []string       `json:"gaps"`
	MissingKeywords    []string       `json:"missing_keywords"`
	RewriteSuggestions []string       `json:"rewrite_suggestions"`
	ATSNotes           []string       `json:"ats_notes"`
	RedFlags           []string       `json:"red_flags"`
	NextSteps          []string       `json:"next_steps"`
	Evidence           []EvidenceItem `json:"evidence"`
	Confidence         Confidence     `json:"confidence"`
}

// Clone returns a deep copy so cached results cannot be mutated by callers.
func (r *AnalysisResult) Clone() *AnalysisResult {
	if r == nil {
		return nil
	}
	out := *r
	out.Strengths = cloneStrings(r.Strengths)
	out.Gaps = cloneStrings(r.Gaps)
	out.MissingKeywords = cloneStrings(r.MissingKeywords)
	out.RewriteSuggestions = cloneStrings(r.RewriteSuggestions)
	out.ATSNotes = cloneStrings(r.ATSNotes)
	out.RedFlags = cloneStrings(r.RedFlags)
	out.NextSteps = cloneStrings(r.NextSteps)
	if r.Evidence != nil {
		out.Evidence = make([]EvidenceItem, len(r.Evidence))
		copy(out.Evidence, r.Evidence)
	}
	return &out
}

// cloneStrings keeps nil and empty distinct so a clone encodes identically.
func cloneStrings(in []string) []string {
	if in == nil {
		return nil
	}
	out := make([]string, len(in))
	copy(out, in)
	return out
}

// PlausibilityVerdict is the lightweight check telling whether a text looks like
// the document class it claims to be.
type PlausibilityVerdict struct {
	IsValid          bool     `json:"is_valid"`
	Confidence       float64  `json:"confidence"`
	Reason           string   `json:"reason"`
	DetectedElements []string `json:"detected_elements"`
}
