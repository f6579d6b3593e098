package main

import (
	"context"
	"log/slog"
	"os"

	mcpadapter "github.com/kirillkom/complaints-api/internal/adapters/mcp"
	"github.com/kirillkom/complaints-api/internal/bootstrap"
	"github.com/kirillkom/complaints-api/internal/config"
	"github.com/kirillkom/complaints-api/internal/observability/logging"
)

const serviceName = "complaints-mcp"

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("config_load_failed", "error", err)
		os.Exit(1)
	}
	// stdout carries the protocol stream.
	slog.SetDefault(logging.NewJSONLoggerTo(os.Stderr, serviceName, cfg.LogLevel))

	ctx := context.Background()
	app, err := bootstrap.New(ctx, cfg, serviceName)
	if err != nil {
		slog.Error("bootstrap_failed", "error", err)
		os.Exit(1)
	}
	defer app.Close(ctx)

	s := mcpadapter.NewServer(mcpadapter.NewTools(app.IntakeUC, app.TriageUC))
	if err := mcpadapter.ServeStdio(s); err != nil {
		slog.Error("mcp_server_failed", "error", err)
	}
}
