package services

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"alfredoptarigan/cv-analyzer/internal/logger"
	"alfredoptarigan/cv-analyzer/internal/models"
)

// SemanticCheckConfig controls the fail-open plausibility check.
type SemanticCheckConfig struct {
	Enabled             bool
	ConfidenceThreshold float64
	SampleChars         int
}

// AnalysisService drives one request through
// received → admitted → validated → cache probe → analyzed → cached → completed.
// Cheap rejections happen before any model call.
type AnalysisService interface {
	Analyze(ctx context.Context, req models.AnalysisRequest) (*models.AnalysisOutcome, error)
	Parse(ctx context.Context, requestID, identity string, doc models.UploadedDocument) (*models.ExtractedText, error)
	CacheStats() models.CacheStats
}

type analysisService struct {
	limiter   RateLimiter
	extractor DocumentExtractor
	cache     AnalysisCache
	adapter   ModelAdapter
	semantic  SemanticCheckConfig
	log       *zap.Logger
}

func NewAnalysisService(
	limiter RateLimiter,
	extractor DocumentExtractor,
	cache AnalysisCache,
	adapter ModelAdapter,
	semantic SemanticCheckConfig,
	log *zap.Logger,
) AnalysisService {
	return &analysisService{
		limiter:   limiter,
		extractor: extractor,
		cache:     cache,
		adapter:   adapter,
		semantic:  semantic,
		log:       log,
	}
}

func (s *analysisService) Analyze(ctx context.Context, req models.AnalysisRequest) (*models.AnalysisOutcome, error) {
	start := time.Now()
	log := s.log.With(zap.String("request_id", req.RequestID))
	transition(log, models.StateReceived, zap.String("caller", logger.HashForLog(req.CallerIdentity)))

	if err := s.admit(log, req.CallerIdentity); err != nil {
		return nil, err
	}

	cv, job, err := s.validate(ctx, log, req.Document, req.JobDescription)
	if err != nil {
		return nil, err
	}
	transition(log, models.StateValidated)
	warnings := append(append([]string{}, cv.Warnings...), job.Warnings...)

	key := BuildAnalysisKey(cv.Text, job.Text, s.adapter.Provider()+"/"+s.adapter.Model(), PromptVersion)
	if cached, ok := s.cache.Get(key); ok {
		transition(log, models.StateCacheHit)
		log.Info("pipeline.completed",
			zap.String("state", string(models.StateCacheHit)),
			zap.Bool("cached", true),
			zap.Duration("duration", time.Since(start)))
		return &models.AnalysisOutcome{
			RequestID: req.RequestID,
			State:     models.StateCacheHit,
			Result:    cached,
			Cached:    true,
			Warnings:  warnings,
		}, nil
	}

	transition(log, models.StateCacheMiss)

	// Plausibility checks cost provider calls, so they only run on a miss.
	if err := s.checkPlausibility(ctx, log, cv, job); err != nil {
		return nil, err
	}

	result, err := s.adapter.Analyze(ctx, cv.Text, job.Text)
	if err != nil {
		return nil, s.llmFailed(log, err)
	}

	transition(log, models.StateAnalyzed)
	// Work finished after the caller went away is not cached.
	if ctx.Err() == nil {
		s.cache.Put(key, result)
		transition(log, models.StateCached)
	}
	transition(log, models.StateCompleted)

	log.Info("pipeline.completed",
		zap.String("state", string(models.StateCompleted)),
		zap.Bool("cached", false),
		zap.Int("fit_score", result.FitScore),
		zap.Duration("duration", time.Since(start)))

	return &models.AnalysisOutcome{
		RequestID: req.RequestID,
		State:     models.StateCompleted,
		Result:    result,
		Cached:    false,
		Warnings:  warnings,
	}, nil
}

// Parse runs admission and extraction only. No model call is made.
func (s *analysisService) Parse(ctx context.Context, requestID, identity string, doc models.UploadedDocument) (*models.ExtractedText, error) {
	log := s.log.With(zap.String("request_id", requestID))
	transition(log, models.StateReceived, zap.String("caller", logger.HashForLog(identity)), zap.String("operation", "parse"))

	if err := s.admit(log, identity); err != nil {
		return nil, err
	}

	log.Info("validation.start", zap.String("operation", "parse"), zap.Int64("size_bytes", doc.Size))
	cv, err := s.extractor.ExtractCV(ctx, doc)
	if err != nil {
		return nil, s.rejected(log, err)
	}
	log.Info("validation.success",
		zap.String("operation", "parse"),
		zap.String("file_type", string(cv.Source)),
		zap.Int("char_count", cv.CharCount),
		zap.Duration("duration", cv.Meta.Duration))
	transition(log, models.StateValidated, zap.String("operation", "parse"))
	return cv, nil
}

func (s *analysisService) CacheStats() models.CacheStats {
	return s.cache.Stats()
}

func (s *analysisService) admit(log *zap.Logger, identity string) error {
	decision := s.limiter.Allow(identity)
	caller := logger.HashForLog(identity)

	if decision.Allowed {
		log.Info("rate_limit.allowed",
			zap.String("caller", caller),
			zap.Int("limit", decision.Limit),
			zap.Int("remaining", decision.Remaining))
		transition(log, models.StateAdmitted)
		return nil
	}

	log.Warn("rate_limit.denied",
		zap.String("caller", caller),
		zap.Int("limit", decision.Limit),
		zap.Int("retry_after_s", decision.RetryAfterSeconds()))

	appErr := NewRateLimitedError(decision.RetryAfter)
	appErr.State = models.StateRateLimited
	transition(log, appErr.State)
	appErr.Details = map[string]any{
		"limit":    decision.Limit,
		"reset_at": decision.ResetAt.Unix(),
	}
	return appErr
}

func (s *analysisService) validate(ctx context.Context, log *zap.Logger, doc models.UploadedDocument, jobText string) (*models.ExtractedText, *models.ExtractedText, error) {
	log.Info("validation.start",
		zap.String("operation", "analyze"),
		zap.Int64("size_bytes", doc.Size),
		zap.String("media_type", doc.MediaType))

	cv, err := s.extractor.ExtractCV(ctx, doc)
	if err != nil {
		return nil, nil, s.rejected(log, err)
	}
	job := s.extractor.PrepareJobDescription(jobText)
	if err := s.extractor.EnsureAnalyzable(cv, job); err != nil {
		return nil, nil, s.rejected(log, err)
	}

	log.Info("validation.success",
		zap.String("file_type", string(cv.Source)),
		zap.Int("cv_chars", cv.CharCount),
		zap.Int("job_chars", job.CharCount),
		zap.Bool("truncated", cv.Truncated || job.Truncated),
		zap.Duration("extraction", cv.Meta.Duration))
	return cv, job, nil
}

func (s *analysisService) rejected(log *zap.Logger, err error) error {
	appErr, ok := AsAppError(err)
	if !ok {
		// Only caller cancellation reaches here without a typed error.
		log.Warn("validation.failure", zap.String("code", "cancelled"), zap.Error(err))
		return fmt.Errorf("failed to validate document: %w", err)
	}
	appErr.State = models.StateRejected
	transition(log, appErr.State)
	log.Warn("validation.failure", zap.String("code", appErr.Code), zap.String("kind", string(appErr.Kind)))
	return appErr
}

func (s *analysisService) llmFailed(log *zap.Logger, err error) error {
	appErr, ok := AsAppError(err)
	if !ok {
		appErr = NewLLMError(CodeLLMExhausted, "Analysis failed.", err)
	}
	appErr.State = models.StateLLMFailed
	transition(log, appErr.State)
	log.Error("pipeline.llm_failed", zap.String("code", appErr.Code), zap.Error(appErr.Cause))
	return appErr
}

// checkPlausibility runs the CV and job checks concurrently. Only a confident
// "invalid" verdict rejects; everything else fails open.
func (s *analysisService) checkPlausibility(ctx context.Context, log *zap.Logger, cv, job *models.ExtractedText) error {
	if !s.semantic.Enabled {
		return nil
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, doc := range []*models.ExtractedText{cv, job} {
		g.Go(func() error {
			return s.checkOne(gctx, log, doc)
		})
	}

	if err := g.Wait(); err != nil {
		if _, ok := AsAppError(err); !ok {
			return fmt.Errorf("plausibility check cancelled: %w", err)
		}
		return s.rejected(log, err)
	}
	return nil
}

func (s *analysisService) checkOne(ctx context.Context, log *zap.Logger, doc *models.ExtractedText) error {
	sample, _ := ClipText(doc.Text, s.semantic.SampleChars)

	verdict, err := s.adapter.CheckPlausibility(ctx, doc.Class, sample)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		log.Warn("validation.semantic_skipped", zap.String("class", string(doc.Class)), zap.Error(err))
		return nil
	}

	if verdict.IsValid {
		return nil
	}
	if verdict.Confidence < s.semantic.ConfidenceThreshold {
		log.Warn("validation.semantic_low_confidence",
			zap.String("class", string(doc.Class)),
			zap.Float64("confidence", verdict.Confidence),
			zap.Float64("threshold", s.semantic.ConfidenceThreshold))
		return nil
	}

	details := map[string]any{"confidence": verdict.Confidence, "reason": verdict.Reason}
	if doc.Class == models.DocumentClassJob {
		return NewValidationError(CodeInvalidJobContent,
			"The job description doesn't appear to be a valid job posting.", details)
	}
	return NewValidationError(CodeInvalidCVContent,
		"The uploaded document doesn't appear to be a valid CV.", details)
}

// transition records a state change of the request state machine.
func transition(log *zap.Logger, state models.PipelineState, fields ...zap.Field) {
	log.Debug("pipeline.transition", append([]zap.Field{
		zap.String("state", string(state)),
		zap.Bool("terminal", state.IsTerminal()),
	}, fields...)...)
}
