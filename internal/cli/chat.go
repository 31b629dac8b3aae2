package cli

import (
	"context"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/RichardoC/textwriter/internal/config"
	"github.com/RichardoC/textwriter/internal/tui"
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Open the chat screen (default)",
	Args:  cobra.NoArgs,
	RunE:  runChat,
}

func runChat(cmd *cobra.Command, args []string) error {
	// The screen owns the terminal, so logs always go to a file.
	logCfg := cfg.Log
	if logCfg.File == "" {
		logCfg.File = filepath.Join(os.TempDir(), "textwriter.log")
	}
	logger, err := config.NewLogger(logCfg)
	if err != nil {
		return err
	}
	defer logger.Sync()

	ctx := context.Background()
	manager, err := newManager(ctx, logger)
	if err != nil {
		return err
	}

	logger.Info("chat screen started",
		zap.String("provider", cfg.LLM.Provider),
		zap.String("model", cfg.LLM.Model))
	return tui.Run(ctx, manager)
}
