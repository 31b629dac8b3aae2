package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"

	"go.uber.org/zap"

	"github.com/RichardoC/textwriter/internal/api"
	"github.com/RichardoC/textwriter/internal/chat"
	"github.com/RichardoC/textwriter/internal/config"
	"github.com/RichardoC/textwriter/internal/llm"
)

func main() {
	configPath := flag.String("config", "textwriter.yaml", "path to the YAML config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger, err := config.NewLogger(cfg.Log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	gen, err := llm.NewGenerator(context.Background(), cfg.LLM, logger)
	if err != nil {
		logger.Fatal("failed to initialize LLM service",
			zap.Error(err),
			zap.String("provider", cfg.LLM.Provider),
			zap.String("model", cfg.LLM.Model))
	}

	handler := api.NewHandler(func() *chat.Manager {
		return chat.NewManager(gen, chat.ManagerOptions(cfg.Chat, logger)...)
	}, logger)

	mux := http.NewServeMux()
	handler.Routes(mux)

	logger.Info("Starting server", zap.String("addr", cfg.Server.Addr))
	if err := http.ListenAndServe(cfg.Server.Addr, mux); err != nil {
		logger.Fatal("failed to start server", zap.Error(err))
	}
}
