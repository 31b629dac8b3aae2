package llm

import (
	"context"
	"errors"
	"time"

	"github.com/sony/gobreaker/v2"
	"go.uber.org/zap"

	"github.com/RichardoC/textwriter/internal/chat"
	"github.com/RichardoC/textwriter/internal/config"
)

const (
	defaultBreakerMaxFailures uint32 = 5
	defaultBreakerTimeout            = 30 * time.Second
)

// Breaker fails fast once the wrapped generator has failed MaxFailures
// times in a row, until the open timeout elapses and one probe succeeds.
type Breaker struct {
	inner    chat.Generator
	provider string
	cb       *gobreaker.CircuitBreaker[string]
}

func NewBreaker(inner chat.Generator, provider string, cfg config.BreakerConfig, logger *zap.Logger) *Breaker {
	maxFailures := cfg.MaxFailures
	if maxFailures == 0 {
		maxFailures = defaultBreakerMaxFailures
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = defaultBreakerTimeout
	}

	cb := gobreaker.NewCircuitBreaker[string](gobreaker.Settings{
		Name:        "llm:" + provider,
		MaxRequests: 1,
		Timeout:     timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= maxFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state change",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
	})

	return &Breaker{inner: inner, provider: provider, cb: cb}
}

func (b *Breaker) Generate(ctx context.Context, prompt string) (string, error) {
	text, err := b.cb.Execute(func() (string, error) {
		return b.inner.Generate(ctx, prompt)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return "", &ProviderError{Provider: b.provider, Err: errors.Join(ErrCircuitOpen, err)}
	}
	return text, err
}

func (b *Breaker) State() gobreaker.State {
	return b.cb.State()
}

// NewGenerator builds the configured service, behind a breaker when enabled.
func NewGenerator(ctx context.Context, cfg config.LLMConfig, logger *zap.Logger) (chat.Generator, error) {
	svc, err := New(ctx, cfg)
	if err != nil {
		return nil, err
	}
	if !cfg.Breaker.Enabled {
		return svc, nil
	}
	return NewBreaker(svc, cfg.Provider, cfg.Breaker, logger), nil
}
