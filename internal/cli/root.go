// Package cli provides the command-line interface for textwriter.
package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/RichardoC/textwriter/internal/chat"
	"github.com/RichardoC/textwriter/internal/config"
	"github.com/RichardoC/textwriter/internal/llm"
)

var (
	// Version is set at build time.
	Version = "0.1.0"

	// Global flags
	configPath string
	verbose    bool

	cfg *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "textwriter",
	Short: "Chat with a hosted language model from the terminal",
	Long: `Textwriter is a small chat screen for healthy eating tips.

Each message is sent to the configured generative-language provider
(Google AI, OpenAI or a local Ollama) and the reply is shown as a chat
bubble. Conversations live only for the session.`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Name() == "version" || cmd.Name() == "help" {
			return nil
		}

		var err error
		cfg, err = config.Load(configPath)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		if verbose {
			cfg.Log.Level = "debug"
		}
		return nil
	},
	RunE: runChat,
}

// newManager wires the configured generator into a fresh conversation.
func newManager(ctx context.Context, logger *zap.Logger) (*chat.Manager, error) {
	gen, err := llm.NewGenerator(ctx, cfg.LLM, logger)
	if err != nil {
		return nil, fmt.Errorf("init generator: %w", err)
	}
	return chat.NewManager(gen, chat.ManagerOptions(cfg.Chat, logger)...), nil
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "textwriter.yaml", "path to the YAML config file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")

	rootCmd.AddCommand(chatCmd)
	rootCmd.AddCommand(askCmd)
}
