package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"alfredoptarigan/cv-analyzer/internal/logger"
	"alfredoptarigan/cv-analyzer/internal/models"
)

// Schema violations list every failing field, so failure logs are capped.
const maxLoggedErrorChars = 300

type AdapterConfig struct {
	MaxAttempts     int
	AttemptTimeout  time.Duration
	RetryBackoff    time.Duration
	Temperature     float32
	MaxOutputTokens int
	Evidence        EvidencePolicy
	// CheckTimeout bounds the single plausibility call.
	CheckTimeout time.Duration
}

// ModelAdapter wraps an LLMProvider with schema enforcement and retries.
type ModelAdapter interface {
	Analyze(ctx context.Context, cvText, jobText string) (*models.AnalysisResult, error)
	CheckPlausibility(ctx context.Context, class models.DocumentClass, sample string) (*models.PlausibilityVerdict, error)
	Provider() string
	Model() string
}

type modelAdapter struct {
	provider LLMProvider
	prompts  *PromptBuilder
	cfg      AdapterConfig
	log      *zap.Logger
}

func NewModelAdapter(provider LLMProvider, cfg AdapterConfig, log *zap.Logger) ModelAdapter {
	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = 1
	}
	if cfg.MaxOutputTokens == 0 {
		cfg.MaxOutputTokens = 4096
	}
	return &modelAdapter{
		provider: provider,
		prompts:  NewPromptBuilder(cfg.Evidence.MinItems),
		cfg:      cfg,
		log:      log,
	}
}

func (a *modelAdapter) Provider() string { return a.provider.Name() }
func (a *modelAdapter) Model() string    { return a.provider.Model() }

// Analyze retries provider faults and unusable answers up to MaxAttempts,
// each attempt under its own timeout. Input rejections and auth failures end
// the loop at once. Confidence is passed through untouched.
func (a *modelAdapter) Analyze(ctx context.Context, cvText, jobText string) (*models.AnalysisResult, error) {
	req := CompletionRequest{
		System:          analysisSystemPrompt,
		Prompt:          a.prompts.BuildAnalysisPrompt(cvText, jobText),
		Temperature:     a.cfg.Temperature,
		MaxOutputTokens: a.cfg.MaxOutputTokens,
	}

	var lastErr error
	for attempt := 1; attempt <= a.cfg.MaxAttempts; attempt++ {
		result, err := a.attempt(ctx, req, attempt, cvText)
		if err == nil {
			return result, nil
		}
		lastErr = err

		if ctx.Err() != nil {
			return nil, NewLLMError(CodeLLMCancelled, "Analysis was cancelled.", ctx.Err())
		}
		if errors.Is(err, ErrProviderInputRejected) {
			return nil, NewLLMError(CodeLLMInputRejected, "The analysis service rejected the input.", err)
		}
		if errors.Is(err, ErrProviderAuth) {
			return nil, NewLLMError(CodeLLMAuth, "The analysis service is unavailable.", err)
		}

		if attempt < a.cfg.MaxAttempts {
			if err := a.backoff(ctx, attempt); err != nil {
				return nil, NewLLMError(CodeLLMCancelled, "Analysis was cancelled.", err)
			}
		}
	}

	appErr := NewLLMError(CodeLLMExhausted,
		fmt.Sprintf("Analysis failed after %d attempts.", a.cfg.MaxAttempts), lastErr)
	appErr.Details = map[string]any{"attempts": a.cfg.MaxAttempts}
	return nil, appErr
}

func (a *modelAdapter) attempt(ctx context.Context, req CompletionRequest, attempt int, cvText string) (*models.AnalysisResult, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, a.cfg.AttemptTimeout)
	defer cancel()

	fields := []zap.Field{
		zap.String("operation", "analysis"),
		zap.String("provider", a.provider.Name()),
		zap.String("model", a.provider.Model()),
		zap.Int("attempt", attempt),
		zap.Int("max_attempts", a.cfg.MaxAttempts),
	}
	a.log.Info("llm.call.start", fields...)

	start := time.Now()
	raw, err := a.provider.GenerateJSON(attemptCtx, req)
	if err == nil {
		var result *models.AnalysisResult
		result, err = ParseAnalysis(raw, cvText, a.cfg.Evidence)
		if err == nil {
			a.log.Info("llm.call.success", append(fields,
				zap.Duration("latency", time.Since(start)),
				zap.Int("fit_score", result.FitScore),
				zap.String("confidence", string(result.Confidence)))...)
			return result, nil
		}
	}

	a.log.Warn("llm.call.failure", append(fields,
		zap.Duration("latency", time.Since(start)),
		zap.Bool("timeout", errors.Is(attemptCtx.Err(), context.DeadlineExceeded)),
		zap.String("error", logger.TruncateForLog(err.Error(), maxLoggedErrorChars)))...)
	return nil, err
}

// backoff waits RetryBackoff times the attempt number, or until ctx ends.
func (a *modelAdapter) backoff(ctx context.Context, attempt int) error {
	delay := a.cfg.RetryBackoff * time.Duration(attempt)
	if delay <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// CheckPlausibility makes one lightweight call asking whether sample reads
// like the given document class. Errors are returned as-is; callers decide
// whether to fail open.
func (a *modelAdapter) CheckPlausibility(ctx context.Context, class models.DocumentClass, sample string) (*models.PlausibilityVerdict, error) {
	prompt := a.prompts.BuildCVPlausibilityPrompt(sample)
	if class == models.DocumentClassJob {
		prompt = a.prompts.BuildJobPlausibilityPrompt(sample)
	}

	timeout := a.cfg.CheckTimeout
	if timeout <= 0 {
		timeout = a.cfg.AttemptTimeout
	}
	checkCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	fields := []zap.Field{
		zap.String("operation", "plausibility"),
		zap.String("class", string(class)),
		zap.String("provider", a.provider.Name()),
		zap.String("model", a.provider.Model()),
	}
	a.log.Info("llm.call.start", fields...)

	start := time.Now()
	raw, err := a.provider.GenerateJSON(checkCtx, CompletionRequest{
		System:          plausibilitySystemPrompt,
		Prompt:          prompt,
		Temperature:     0,
		MaxOutputTokens: 512,
	})
	var verdict *models.PlausibilityVerdict
	if err == nil {
		verdict, err = ParseVerdict(raw)
	}
	if err != nil {
		a.log.Warn("llm.call.failure", append(fields, zap.Duration("latency", time.Since(start)), zap.Error(err))...)
		return nil, err
	}

	a.log.Info("llm.call.success", append(fields,
		zap.Duration("latency", time.Since(start)),
		zap.Bool("is_valid", verdict.IsValid),
		zap.Float64("confidence", verdict.Confidence))...)
	return verdict, nil
}
