package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"
)

var (
	// ErrProviderInputRejected marks a failure caused by the request content
	// itself, such as input over the provider's limits. It is never retried.
	ErrProviderInputRejected = errors.New("provider rejected input")
	// ErrProviderAuth marks missing or invalid credentials. It is never retried.
	ErrProviderAuth = errors.New("provider authentication failed")
	// ErrEmptyCompletion is returned when a provider answers with no content.
	ErrEmptyCompletion = errors.New("provider returned empty completion")
)

// CompletionRequest is one structured completion call.
type CompletionRequest struct {
	System          string
	Prompt          string
	Temperature     float32
	MaxOutputTokens int
}

// LLMProvider issues completion requests that are expected to return a JSON
// object. Implementations return raw text; shape checks happen in the adapter.
type LLMProvider interface {
	Name() string
	Model() string
	GenerateJSON(ctx context.Context, req CompletionRequest) (string, error)
}

type ProviderConfig struct {
	APIKey     string
	Model      string
	BaseURL    string
	Timeout    time.Duration
	HTTPClient *http.Client
	Log        *zap.Logger
}

type ProviderConstructor func(ctx context.Context, cfg ProviderConfig) (LLMProvider, error)

// ProviderRegistry maps a provider identifier to its constructor. A provider
// is chosen once at startup.
type ProviderRegistry map[string]ProviderConstructor

func DefaultProviderRegistry() ProviderRegistry {
	return ProviderRegistry{
		"gemini": NewGeminiProvider,
		"openai": NewOpenAIProvider,
	}
}

// New builds the provider registered under name.
func (r ProviderRegistry) New(ctx context.Context, name string, cfg ProviderConfig) (LLMProvider, error) {
	ctor, ok := r[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return nil, fmt.Errorf("unknown llm provider %q (supported: %s)", name, strings.Join(r.Names(), ", "))
	}
	if cfg.Log == nil {
		cfg.Log = zap.NewNop()
	}
	return ctor(ctx, cfg)
}

func (r ProviderRegistry) Names() []string {
	names := make([]string, 0, len(r))
	for name := range r {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// classifyStatus maps provider HTTP statuses that must not be retried.
func classifyStatus(code int) error {
	switch code {
	case http.StatusUnauthorized, http.StatusForbidden:
		return ErrProviderAuth
	case http.StatusBadRequest, http.StatusRequestEntityTooLarge, http.StatusUnprocessableEntity:
		return ErrProviderInputRejected
	}
	return nil
}
