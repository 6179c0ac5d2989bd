package services

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"alfredoptarigan/cv-analyzer/internal/models"
)

type providerReply struct {
	text string
	err  error
	// block waits for ctx to end before replying with its error.
	block bool
}

// scriptedProvider replays replies in order; the last reply repeats.
type scriptedProvider struct {
	mu       sync.Mutex
	replies  []providerReply
	calls    int
	requests []CompletionRequest
}

func (p *scriptedProvider) Name() string  { return "scripted" }
func (p *scriptedProvider) Model() string { return "scripted-1" }

func (p *scriptedProvider) GenerateJSON(ctx context.Context, req CompletionRequest) (string, error) {
	p.mu.Lock()
	idx := p.calls
	if idx >= len(p.replies) {
		idx = len(p.replies) - 1
	}
	reply := p.replies[idx]
	p.calls++
	p.requests = append(p.requests, req)
	p.mu.Unlock()

	if reply.block {
		<-ctx.Done()
		return "", ctx.Err()
	}
	return reply.text, reply.err
}

func (p *scriptedProvider) Calls() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls
}

// routingProvider answers plausibility prompts and analysis prompts separately.
type routingProvider struct {
	mu           sync.Mutex
	analysis     string
	verdicts     map[models.DocumentClass]string
	verdictErr   error
	analysisHits int
	checkHits    int
}

func (p *routingProvider) Name() string  { return "routing" }
func (p *routingProvider) Model() string { return "routing-1" }

func (p *routingProvider) GenerateJSON(ctx context.Context, req CompletionRequest) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if req.System == plausibilitySystemPrompt {
		p.checkHits++
		if p.verdictErr != nil {
			return "", p.verdictErr
		}
		if strings.Contains(req.Prompt, "job description or job posting") {
			return p.verdicts[models.DocumentClassJob], nil
		}
		return p.verdicts[models.DocumentClassCV], nil
	}
	p.analysisHits++
	return p.analysis, nil
}

func (p *routingProvider) counts() (analysis, checks int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.analysisHits, p.checkHits
}

// validAnalysisJSON quotes a phrase that exists in sampleCV.
func validAnalysisJSON(t *testing.T) string {
	t.Helper()
	return analysisJSON(t, map[string]any{})
}

func analysisJSON(t *testing.T, overrides map[string]any) string {
	t.Helper()
	doc := map[string]any{
		"summary":             "Strong backend candidate with relevant Go experience.",
		"fit_score":           82,
		"fit_score_rationale": "Six years of Go services match the core requirement.",
		"strengths":           []string{"Go services", "Kubernetes"},
		"gaps":                []string{"No explicit distributed systems leadership"},
		"missing_keywords":    []string{"gRPC streaming"},
		"rewrite_suggestions": []string{"Quantify the impact of the event pipelines"},
		"ats_notes":           []string{"Use a dedicated skills section"},
		"red_flags":           []string{},
		"next_steps":          []string{"Add metrics to recent roles"},
		"evidence": []map[string]string{
			{"claim": "Go experience", "cv_quote": "six years building Go services"},
		},
		"confidence": "high",
	}
	for k, v := range overrides {
		if v == nil {
			delete(doc, k)
			continue
		}
		doc[k] = v
	}
	raw, err := json.Marshal(doc)
	require.NoError(t, err)
	return string(raw)
}

func verdictJSON(valid bool, confidence float64) string {
	raw, _ := json.Marshal(map[string]any{
		"is_valid":          valid,
		"confidence":        confidence,
		"reason":            "test verdict",
		"detected_elements": []string{},
	})
	return string(raw)
}
