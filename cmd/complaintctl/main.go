package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/kirillkom/complaints-api/internal/config"
	"github.com/kirillkom/complaints-api/internal/observability/logging"
)

const serviceName = "complaintctl"

func main() {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}
	slog.SetDefault(logging.NewJSONLoggerTo(os.Stderr, serviceName, cfg.LogLevel))

	app := &cli.Command{
		Name:  serviceName,
		Usage: "Operate the complaint store from the command line",
	}
	for _, register := range []func(*cli.Command) *cli.Command{
		newMigrateCmd(cfg).Register,
		newListCmd(cfg).Register,
		newCloseCmd(cfg).Register,
		newExportCmd(cfg).Register,
		newSentimentCmd(cfg).Register,
	} {
		app = register(app)
	}

	if err := app.Run(ctx, os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
