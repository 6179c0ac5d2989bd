package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"google.golang.org/genai"
)

type geminiProvider struct {
	client    *genai.Client
	modelName string
	log       *zap.Logger
}

// NewGeminiProvider implements ProviderConstructor.
func NewGeminiProvider(ctx context.Context, cfg ProviderConfig) (LLMProvider, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("gemini provider requires an api key")
	}

	clientCfg := &genai.ClientConfig{
		APIKey:     cfg.APIKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: cfg.HTTPClient,
	}
	if cfg.BaseURL != "" {
		clientCfg.HTTPOptions.BaseURL = cfg.BaseURL
	}
	if cfg.Timeout > 0 {
		clientCfg.HTTPOptions.Timeout = &cfg.Timeout
	}

	client, err := genai.NewClient(ctx, clientCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}

	model := cfg.Model
	if model == "" {
		model = "gemini-2.5-flash"
	}

	return &geminiProvider{
		client:    client,
		modelName: model,
		log:       cfg.Log,
	}, nil
}

func (g *geminiProvider) Name() string  { return "gemini" }
func (g *geminiProvider) Model() string { return g.modelName }

// GenerateJSON implements LLMProvider.
func (g *geminiProvider) GenerateJSON(ctx context.Context, req CompletionRequest) (string, error) {
	temperature := req.Temperature
	config := &genai.GenerateContentConfig{
		Temperature:      &temperature,
		MaxOutputTokens:  int32(req.MaxOutputTokens),
		ResponseMIMEType: "application/json",
	}
	if req.System != "" {
		config.SystemInstruction = genai.NewContentFromText(req.System, genai.RoleUser)
	}

	resp, err := g.client.Models.GenerateContent(ctx, g.modelName, genai.Text(req.Prompt), config)
	if err != nil {
		var apiErr genai.APIError
		if errors.As(err, &apiErr) {
			if sentinel := classifyStatus(apiErr.Code); sentinel != nil {
				return "", fmt.Errorf("%w: gemini status %d: %s", sentinel, apiErr.Code, apiErr.Status)
			}
		}
		return "", fmt.Errorf("failed to generate content: %w", err)
	}

	if resp == nil {
		return "", fmt.Errorf("%w: nil response", ErrEmptyCompletion)
	}

	text := strings.TrimSpace(resp.Text())
	if text == "" {
		finish := ""
		if len(resp.Candidates) > 0 {
			finish = string(resp.Candidates[0].FinishReason)
		}
		g.log.Warn("llm.empty_completion", zap.String("provider", "gemini"), zap.String("finish_reason", finish))
		return "", fmt.Errorf("%w: finish reason %q", ErrEmptyCompletion, finish)
	}

	return text, nil
}
