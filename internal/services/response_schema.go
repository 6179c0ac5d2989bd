package services

import (
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/xeipuuv/gojsonschema"

	"alfredoptarigan/cv-analyzer/internal/models"
)

//go:embed schemas/*.json
var schemaFS embed.FS

var (
	analysisSchema     = mustLoadSchema("schemas/analysis.schema.json")
	plausibilitySchema = mustLoadSchema("schemas/plausibility.schema.json")
)

// ErrInvalidResponse marks a provider answer that is not usable as returned.
// The adapter treats it as transient and retries.
var ErrInvalidResponse = errors.New("invalid provider response")

// FieldError is one schema violation.
type FieldError struct {
	Field   string
	Message string
}

// SchemaViolationError lists every field that failed validation.
type SchemaViolationError struct {
	Errors []FieldError
}

func (e *SchemaViolationError) Error() string {
	parts := make([]string, 0, len(e.Errors))
	for _, fe := range e.Errors {
		parts = append(parts, fe.Field+": "+fe.Message)
	}
	return "schema violation: " + strings.Join(parts, "; ")
}

func (e *SchemaViolationError) Unwrap() error {
	return ErrInvalidResponse
}

func mustLoadSchema(path string) *gojsonschema.Schema {
	raw, err := schemaFS.ReadFile(path)
	if err != nil {
		panic(fmt.Sprintf("read schema %s: %v", path, err))
	}
	schema, err := gojsonschema.NewSchema(gojsonschema.NewBytesLoader(raw))
	if err != nil {
		panic(fmt.Sprintf("compile schema %s: %v", path, err))
	}
	return schema
}

func validateAgainst(schema *gojsonschema.Schema, doc []byte) error {
	result, err := schema.Validate(gojsonschema.NewBytesLoader(doc))
	if err != nil {
		return fmt.Errorf("%w: not valid JSON: %v", ErrInvalidResponse, err)
	}
	if result.Valid() {
		return nil
	}

	violation := &SchemaViolationError{Errors: make([]FieldError, 0, len(result.Errors()))}
	for _, desc := range result.Errors() {
		field := desc.Field()
		if field == "" {
			field = "(root)"
		}
		violation.Errors = append(violation.Errors, FieldError{Field: field, Message: desc.Description()})
	}
	return violation
}

// EvidencePolicy controls how strictly evidence is enforced.
type EvidencePolicy struct {
	Required bool
	MinItems int
}

// analysisWire shadows fit_score so providers that print 82.0 still decode.
type analysisWire struct {
	models.AnalysisResult
	FitScore json.Number `json:"fit_score"`
}

func wholeNumber(n json.Number) (int, error) {
	f, err := n.Float64()
	if err != nil {
		return 0, err
	}
	if f != math.Trunc(f) {
		return 0, fmt.Errorf("%s is not a whole number", n)
	}
	return int(f), nil
}

// ParseAnalysis turns raw provider output into a validated AnalysisResult.
// Any missing field, type mismatch or out-of-range score is a failure, never
// a partial result. With evidence required, every quote must appear in cvText.
func ParseAnalysis(raw, cvText string, policy EvidencePolicy) (*models.AnalysisResult, error) {
	doc := []byte(extractJSON(raw))
	if err := validateAgainst(analysisSchema, doc); err != nil {
		return nil, err
	}

	var wire analysisWire
	if err := json.Unmarshal(doc, &wire); err != nil {
		return nil, fmt.Errorf("%w: decode analysis: %v", ErrInvalidResponse, err)
	}
	score, err := wholeNumber(wire.FitScore)
	if err != nil {
		return nil, fmt.Errorf("%w: fit_score: %v", ErrInvalidResponse, err)
	}
	result := wire.AnalysisResult
	result.FitScore = score

	if policy.Required {
		if err := verifyEvidence(result.Evidence, cvText, policy.MinItems); err != nil {
			return nil, err
		}
	}

	return &result, nil
}

// ParseVerdict validates a plausibility check answer.
func ParseVerdict(raw string) (*models.PlausibilityVerdict, error) {
	doc := []byte(extractJSON(raw))
	if err := validateAgainst(plausibilitySchema, doc); err != nil {
		return nil, err
	}

	var verdict models.PlausibilityVerdict
	if err := json.Unmarshal(doc, &verdict); err != nil {
		return nil, fmt.Errorf("%w: decode verdict: %v", ErrInvalidResponse, err)
	}
	return &verdict, nil
}

func verifyEvidence(items []models.EvidenceItem, cvText string, minItems int) error {
	if minItems < 1 {
		minItems = 1
	}
	if len(items) < minItems {
		return fmt.Errorf("%w: %d evidence items, at least %d required", ErrInvalidResponse, len(items), minItems)
	}

	haystack := foldForMatch(cvText)
	for i, item := range items {
		quote := foldForMatch(trimQuote(item.CVQuote))
		if quote == "" {
			return fmt.Errorf("%w: evidence[%d] has an empty quote", ErrInvalidResponse, i)
		}
		if !strings.Contains(haystack, quote) {
			return fmt.Errorf("%w: evidence[%d] quote not found in CV text", ErrInvalidResponse, i)
		}
	}
	return nil
}

// foldForMatch lowercases and collapses whitespace so line wrapping in the
// extracted text does not defeat an otherwise verbatim quote.
func foldForMatch(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}

func trimQuote(s string) string {
	s = strings.TrimSpace(s)
	s = strings.Trim(s, "\"'\u201c\u201d\u2018\u2019")
	s = strings.TrimSuffix(s, "...")
	s = strings.TrimSuffix(s, "\u2026")
	s = strings.TrimPrefix(s, "...")
	s = strings.TrimPrefix(s, "\u2026")
	return strings.TrimSpace(s)
}

// extractJSON strips markdown fences and anything around the outermost object.
func extractJSON(text string) string {
	text = strings.ReplaceAll(text, "```json", "")
	text = strings.ReplaceAll(text, "```", "")

	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start != -1 && end > start {
		return text[start : end+1]
	}
	return strings.TrimSpace(text)
}
