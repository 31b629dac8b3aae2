package chat

import (
	"go.uber.org/zap"

	"github.com/RichardoC/textwriter/internal/config"
)

// ManagerOptions translates the chat section of the config into options.
func ManagerOptions(cfg config.ChatConfig, logger *zap.Logger) []Option {
	opts := []Option{WithLogger(logger)}
	if cfg.Greeting != "" {
		opts = append(opts, WithGreeting(cfg.Greeting))
	}
	if cfg.Placeholder != "" {
		opts = append(opts, WithPlaceholder(cfg.Placeholder))
	}
	if cfg.ErrorText != "" {
		opts = append(opts, WithErrorText(cfg.ErrorText))
	}
	return opts
}
