package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/RichardoC/textwriter/internal/config"
	"github.com/RichardoC/textwriter/internal/models"
)

var askCmd = &cobra.Command{
	Use:   "ask <message>",
	Short: "Send one message and print the reply",
	Long: `Send one message through a fresh conversation and print the reply.

Examples:
  textwriter ask "Dame un consejo para desayunar"
  textwriter ask --config ./textwriter.yaml "What is a balanced lunch?"`,
	Args: cobra.MinimumNArgs(1),
	RunE: runAsk,
}

func runAsk(cmd *cobra.Command, args []string) error {
	logger, err := config.NewLogger(cfg.Log)
	if err != nil {
		return err
	}
	defer logger.Sync()

	ctx := context.Background()
	manager, err := newManager(ctx, logger)
	if err != nil {
		return err
	}

	reply, err := manager.Submit(ctx, strings.Join(args, " "))
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "[%s] %s\n", reply.Clock(), reply.Text)
	if reply.Status == models.StatusError {
		return fmt.Errorf("no reply from %s", cfg.LLM.Provider)
	}
	return nil
}
