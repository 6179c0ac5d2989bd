package main

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"alfredoptarigan/cv-analyzer/internal/config"
	"alfredoptarigan/cv-analyzer/internal/logger"
	"alfredoptarigan/cv-analyzer/internal/services"
)

// application holds the long-lived collaborators built once at start.
type application struct {
	cfg  *config.Config
	log  *zap.Logger
	pool services.Worker
	svc  services.AnalysisService
}

func buildApplication(ctx context.Context, cfg *config.Config) (*application, error) {
	log, err := logger.New(cfg.Log.JSON, cfg.Log.Debug)
	if err != nil {
		return nil, fmt.Errorf("failed to build logger: %w", err)
	}

	provider, err := services.DefaultProviderRegistry().New(ctx, cfg.LLM.Provider, services.ProviderConfig{
		APIKey:  cfg.LLM.APIKey,
		Model:   cfg.LLM.Model,
		BaseURL: cfg.LLM.BaseURL,
		Timeout: cfg.LLM.AttemptTimeout,
		Log:     log,
	})
	if err != nil {
		_ = log.Sync()
		return nil, fmt.Errorf("failed to initialize llm provider: %w", err)
	}
	log.Info("llm.provider_ready", zap.String("provider", provider.Name()), zap.String("model", provider.Model()))

	adapter := services.NewModelAdapter(provider, services.AdapterConfig{
		MaxAttempts:    cfg.LLM.MaxAttempts,
		AttemptTimeout: cfg.LLM.AttemptTimeout,
		RetryBackoff:   cfg.LLM.RetryBackoff,
		Temperature:    cfg.LLM.Temperature,
		Evidence: services.EvidencePolicy{
			Required: cfg.LLM.RequireEvidence,
			MinItems: cfg.LLM.MinEvidence,
		},
		CheckTimeout: cfg.Semantic.Timeout,
	}, log)

	pool := services.NewWorker(cfg.Upload.ExtractionWorkers, log)
	pool.Start(ctx)

	extractor := services.NewDocumentExtractor(services.ExtractionLimits{
		MaxUploadBytes:    cfg.Upload.MaxUploadBytes,
		MaxPDFPages:       cfg.Upload.MaxPDFPages,
		MaxDOCXParagraphs: cfg.Upload.MaxDOCXParagraphs,
		Archive: services.ArchiveLimits{
			MaxCompressionRatio:  cfg.Upload.MaxCompressionRatio,
			MaxUncompressedBytes: cfg.Upload.MaxUncompressedBytes,
		},
		Timeout:     cfg.Upload.ExtractionTimeout,
		MaxCVChars:  cfg.Upload.MaxCVChars,
		MaxJobChars: cfg.Upload.MaxJobChars,
		MinCVChars:  cfg.Upload.MinCVChars,
		MinJobChars: cfg.Upload.MinJobChars,
	}, services.NewPDFParserService(), services.NewDOCXParserService(), pool, log)

	limiter := services.NewUnlimitedRateLimiter()
	if cfg.RateLimit.Enabled {
		limiter = services.NewRateLimiter(cfg.RateLimit.Requests, cfg.RateLimit.Window)
	}

	svc := services.NewAnalysisService(
		limiter,
		extractor,
		services.NewAnalysisCache(cfg.Cache.TTL, cfg.Cache.Capacity, log),
		adapter,
		services.SemanticCheckConfig{
			Enabled:             cfg.Semantic.Enabled,
			ConfidenceThreshold: cfg.Semantic.ConfidenceThreshold,
			SampleChars:         cfg.Semantic.SampleChars,
		},
		log,
	)

	return &application{cfg: cfg, log: log, pool: pool, svc: svc}, nil
}

func (a *application) close() {
	a.pool.Stop()
	_ = a.log.Sync()
}
