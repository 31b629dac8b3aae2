package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/googleai"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/llms/openai"
	"github.com/tmc/langchaingo/schema"

	"github.com/RichardoC/textwriter/internal/config"
)

var (
	ErrEmptyCompletion = errors.New("empty completion")
	ErrCircuitOpen     = errors.New("circuit open")
)

// ProviderError is returned for every failed generation: transport,
// quota, timeout or a response that carries no text.
type ProviderError struct {
	Provider string
	Err      error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("provider %s: %v", e.Provider, e.Err)
}

func (e *ProviderError) Unwrap() error { return e.Err }

// Service turns a single prompt into a single reply.
type Service struct {
	llm          llms.Model
	provider     string
	systemPrompt string
	timeout      time.Duration
}

func New(ctx context.Context, cfg config.LLMConfig) (*Service, error) {
	var (
		model llms.Model
		err   error
	)

	switch cfg.Provider {
	case config.ProviderGoogleAI:
		if cfg.APIKey == "" {
			return nil, errors.New("google api key required")
		}
		model, err = googleai.New(ctx,
			googleai.WithAPIKey(cfg.APIKey),
			googleai.WithDefaultModel(cfg.Model),
		)
	case config.ProviderOpenAI:
		opts := []openai.Option{
			openai.WithToken(cfg.APIKey),
			openai.WithModel(cfg.Model),
		}
		if cfg.BaseURL != "" {
			opts = append(opts, openai.WithBaseURL(cfg.BaseURL))
		}
		model, err = openai.New(opts...)
	case config.ProviderOllama:
		opts := []ollama.Option{ollama.WithModel(cfg.Model)}
		if cfg.BaseURL != "" {
			opts = append(opts, ollama.WithServerURL(cfg.BaseURL))
		}
		model, err = ollama.New(opts...)
	default:
		return nil, fmt.Errorf("unsupported llm provider: %s", cfg.Provider)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create %s client: %w", cfg.Provider, err)
	}

	return NewWithModel(model, cfg), nil
}

// NewWithModel wraps an already constructed langchaingo model.
func NewWithModel(model llms.Model, cfg config.LLMConfig) *Service {
	return &Service{
		llm:          model,
		provider:     cfg.Provider,
		systemPrompt: cfg.SystemPrompt,
		timeout:      cfg.Timeout,
	}
}

func (s *Service) Generate(ctx context.Context, prompt string) (string, error) {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	var messages []llms.MessageContent
	if s.systemPrompt != "" {
		messages = append(messages, llms.TextParts(schema.ChatMessageTypeSystem, s.systemPrompt))
	}
	messages = append(messages, llms.TextParts(schema.ChatMessageTypeHuman, prompt))

	resp, err := s.llm.GenerateContent(ctx, messages)
	if err != nil {
		return "", &ProviderError{Provider: s.provider, Err: fmt.Errorf("failed to generate completion: %w", err)}
	}
	if len(resp.Choices) == 0 {
		return "", &ProviderError{Provider: s.provider, Err: ErrEmptyCompletion}
	}

	text := strings.TrimSpace(resp.Choices[0].Content)
	if text == "" {
		return "", &ProviderError{Provider: s.provider, Err: ErrEmptyCompletion}
	}
	return text, nil
}

func (s *Service) Provider() string { return s.provider }
