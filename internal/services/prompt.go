package services

import (
	"fmt"
	"strings"
)

const analysisSystemPrompt = "You are an expert career advisor and ATS specialist. Output JSON only. No extra text or markdown formatting."

const plausibilitySystemPrompt = "You classify documents. Output JSON only. No extra text or markdown formatting."

type PromptBuilder struct {
	minEvidence int
}

func NewPromptBuilder(minEvidence int) *PromptBuilder {
	return &PromptBuilder{minEvidence: minEvidence}
}

// BuildAnalysisPrompt creates the prompt comparing a CV with a job description.
// Every claim must be backed by a verbatim CV quote in the evidence array.
func (pb *PromptBuilder) BuildAnalysisPrompt(cvText, jobText string) string {
	evidenceCount := "3-5"
	if pb.minEvidence > 3 {
		evidenceCount = fmt.Sprintf("at least %d", pb.minEvidence)
	}

	return fmt.Sprintf(`Analyze the provided CV against the job description and return a structured JSON response.

CRITICAL RULES:
- Return ONLY valid JSON matching the exact structure below
- Do NOT invent experience that is not present in the CV
- Every substantive claim MUST be supported by a short verbatim quote copied exactly from the CV TEXT into the evidence array
- The fit_score_rationale must only reference facts that appear in the evidence array
- Be specific and actionable in all recommendations

REQUIRED JSON STRUCTURE:
{
  "summary": "Brief narrative summary of the candidate's fit (2-3 sentences)",
  "fit_score": <integer 0-100>,
  "fit_score_rationale": "Explanation for the score citing key strengths and gaps",
  "strengths": ["..."],
  "gaps": ["..."],
  "missing_keywords": ["..."],
  "rewrite_suggestions": ["..."],
  "ats_notes": ["..."],
  "red_flags": ["..."],
  "next_steps": ["..."],
  "evidence": [{"claim": "Has Go experience", "cv_quote": "Built REST APIs in Go"}],
  "confidence": "low" | "medium" | "high"
}

FIELD GUIDANCE:
- fit_score: 0-30 poor fit, 31-60 partial fit, 61-85 good fit, 86-100 excellent fit
- missing_keywords: important terms from the job description absent or weak in the CV
- ats_notes: formatting, section organization and keyword density tips
- red_flags: date gaps, vague claims, inconsistencies (empty array if none)
- evidence: link %s key claims to direct CV quotes
- confidence: low = poor CV quality, medium = good analysis, high = excellent match

CV TEXT:
%s

JOB DESCRIPTION:
%s

Return only the JSON object, no additional text.`, evidenceCount, cvText, jobText)
}

// BuildCVPlausibilityPrompt asks whether sample reads like a CV.
func (pb *PromptBuilder) BuildCVPlausibilityPrompt(sample string) string {
	return buildPlausibilityPrompt("a CV or resume",
		"professional experience, education, skills, contact information, certifications or projects",
		"lorem ipsum, source code, random text, recipes, articles or other non-resume documents",
		sample)
}

// BuildJobPlausibilityPrompt asks whether sample reads like a job description.
func (pb *PromptBuilder) BuildJobPlausibilityPrompt(sample string) string {
	return buildPlausibilityPrompt("a job description or job posting",
		"role title, responsibilities, requirements, qualifications, required skills or company information",
		"lorem ipsum, random text, scripts or code, spam or content unrelated to hiring",
		sample)
}

func buildPlausibilityPrompt(kind, signals, rejects, sample string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Decide whether the following text is %s.\n\n", kind)
	fmt.Fprintf(&b, "A valid document contains at least one of: %s.\n", signals)
	fmt.Fprintf(&b, "Reject: %s.\n\n", rejects)
	b.WriteString(`Return ONLY this JSON object:
{"is_valid": true|false, "confidence": <number 0.0-1.0>, "reason": "short explanation", "detected_elements": ["..."]}

TEXT:
`)
	b.WriteString(sample)
	return b.String()
}
