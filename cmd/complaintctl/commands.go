package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/kirillkom/complaints-api/internal/bootstrap"
	"github.com/kirillkom/complaints-api/internal/config"
	"github.com/kirillkom/complaints-api/internal/core/domain"
	"github.com/kirillkom/complaints-api/internal/core/usecase"
	"github.com/kirillkom/complaints-api/internal/infrastructure/export/xlsx"
)

// withTriage opens the configured store for the duration of fn.
func withTriage(ctx context.Context, cfg config.Config, fn func(bootstrap.Store, *usecase.TriageUseCase) error) error {
	store, closeStore, err := bootstrap.OpenStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeStore()
	return fn(store, usecase.NewTriageUseCase(store, xlsx.NewWriter()))
}

// parseStatus maps "all" to no filter.
func parseStatus(raw string) (*domain.Status, error) {
	raw = strings.ToLower(strings.TrimSpace(raw))
	if raw == "" || raw == "all" {
		return nil, nil
	}
	status := domain.Status(raw)
	if !status.Valid() {
		return nil, fmt.Errorf("unknown status %q: want open, closed or all", raw)
	}
	return &status, nil
}

type migrateCmd struct {
	cfg config.Config
}

func newMigrateCmd(cfg config.Config) *migrateCmd {
	return &migrateCmd{cfg: cfg}
}

func (cmd *migrateCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:   "migrate",
		Usage:  "Create the complaints schema if it does not exist",
		Action: cmd.run,
	})
	return app
}

func (cmd *migrateCmd) run(ctx context.Context, c *cli.Command) error {
	return withTriage(ctx, cmd.cfg, func(bootstrap.Store, *usecase.TriageUseCase) error {
		_, err := fmt.Fprintf(c.Root().Writer, "schema ready (%s)\n", cmd.cfg.StoreDriver)
		return err
	})
}

type listCmd struct {
	cfg config.Config

	lastID     int64
	status     string
	limit      int64
	jsonOutput bool
}

func newListCmd(cfg config.Config) *listCmd {
	return &listCmd{cfg: cfg}
}

func (cmd *listCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:      "list",
		Usage:     "List complaints in ascending id order",
		UsageText: "complaintctl list [--last-id N] [--status open|closed|all] [--json]",
		Flags: []cli.Flag{
			&cli.Int64Flag{Name: "last-id", Usage: "only complaints with a greater id", Destination: &cmd.lastID},
			&cli.StringFlag{Name: "status", Value: "open", Usage: "open, closed or all", Destination: &cmd.status},
			&cli.Int64Flag{Name: "limit", Usage: "maximum rows, 0 for no limit", Destination: &cmd.limit},
			&cli.BoolFlag{Name: "json", Usage: "output as JSON lines", Destination: &cmd.jsonOutput},
		},
		Action: cmd.run,
	})
	return app
}

func (cmd *listCmd) run(ctx context.Context, c *cli.Command) error {
	status, err := parseStatus(cmd.status)
	if err != nil {
		return err
	}
	filter := domain.ListFilter{Status: status, Limit: int(cmd.limit)}
	if c.IsSet("last-id") {
		filter.AfterID = &cmd.lastID
	}

	return withTriage(ctx, cmd.cfg, func(store bootstrap.Store, _ *usecase.TriageUseCase) error {
		complaints, err := store.List(ctx, filter)
		if err != nil {
			return fmt.Errorf("list complaints: %w", err)
		}
		return printComplaints(c.Root().Writer, complaints, cmd.jsonOutput)
	})
}

func printComplaints(out io.Writer, complaints []domain.Complaint, asJSON bool) error {
	if asJSON {
		enc := json.NewEncoder(out)
		for _, complaint := range complaints {
			if err := enc.Encode(complaint); err != nil {
				return fmt.Errorf("encode complaint: %w", err)
			}
		}
		return nil
	}

	if len(complaints) == 0 {
		fmt.Fprintln(os.Stderr, "No complaints found")
		return nil
	}
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ID\tSTATUS\tSENTIMENT\tCATEGORY\tCREATED\tTEXT")
	for _, complaint := range complaints {
		_, _ = fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\t%s\n",
			complaint.ID, complaint.Status, complaint.Sentiment, complaint.Category,
			complaint.CreatedAt.Format(time.RFC3339), truncate(complaint.Text, 60))
	}
	return w.Flush()
}

func truncate(s string, n int) string {
	s = strings.ReplaceAll(s, "\n", " ")
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n-1]) + "…"
}

type closeCmd struct {
	cfg config.Config
}

func newCloseCmd(cfg config.Config) *closeCmd {
	return &closeCmd{cfg: cfg}
}

func (cmd *closeCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:      "close",
		Usage:     "Mark a complaint as closed",
		UsageText: "complaintctl close <id>",
		Action:    cmd.run,
	})
	return app
}

func (cmd *closeCmd) run(ctx context.Context, c *cli.Command) error {
	id, err := strconv.ParseInt(c.Args().First(), 10, 64)
	if err != nil || id <= 0 {
		return fmt.Errorf("close: expected a positive complaint id, got %q", c.Args().First())
	}

	return withTriage(ctx, cmd.cfg, func(_ bootstrap.Store, triage *usecase.TriageUseCase) error {
		complaint, err := triage.Close(ctx, id)
		switch {
		case errors.Is(err, domain.ErrComplaintNotFound):
			return fmt.Errorf("complaint %d not found", id)
		case errors.Is(err, domain.ErrAlreadyClosed):
			return fmt.Errorf("complaint %d is already closed", id)
		case err != nil:
			return fmt.Errorf("close complaint: %w", err)
		}
		_, err = fmt.Fprintf(c.Root().Writer, "complaint %d closed\n", complaint.ID)
		return err
	})
}

type exportCmd struct {
	cfg config.Config

	status string
	out    string
}

func newExportCmd(cfg config.Config) *exportCmd {
	return &exportCmd{cfg: cfg}
}

func (cmd *exportCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:      "export",
		Usage:     "Write complaints to an XLSX workbook",
		UsageText: "complaintctl export [--status open|closed|all] --out complaints.xlsx",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "status", Value: "open", Usage: "open, closed or all", Destination: &cmd.status},
			&cli.StringFlag{Name: "out", Aliases: []string{"o"}, Value: "complaints.xlsx", Usage: "output path", Destination: &cmd.out},
		},
		Action: cmd.run,
	})
	return app
}

func (cmd *exportCmd) run(ctx context.Context, c *cli.Command) error {
	status, err := parseStatus(cmd.status)
	if err != nil {
		return err
	}

	return withTriage(ctx, cmd.cfg, func(_ bootstrap.Store, triage *usecase.TriageUseCase) error {
		f, err := os.Create(cmd.out)
		if err != nil {
			return fmt.Errorf("create %s: %w", cmd.out, err)
		}
		n, err := triage.Export(ctx, f, status)
		if closeErr := f.Close(); err == nil {
			err = closeErr
		}
		if err != nil {
			return fmt.Errorf("export complaints: %w", err)
		}
		_, err = fmt.Fprintf(c.Root().Writer, "wrote %d complaints to %s\n", n, cmd.out)
		return err
	})
}

type sentimentCmd struct {
	cfg config.Config
}

func newSentimentCmd(cfg config.Config) *sentimentCmd {
	return &sentimentCmd{cfg: cfg}
}

func (cmd *sentimentCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:      "sentiment",
		Usage:     "Score text with the configured sentiment lexicon",
		UsageText: "complaintctl sentiment <text...>",
		Action:    cmd.run,
	})
	return app
}

func (cmd *sentimentCmd) run(_ context.Context, c *cli.Command) error {
	text := strings.Join(c.Args().Slice(), " ")
	if strings.TrimSpace(text) == "" {
		return errors.New("sentiment: text is required")
	}
	analyzer, err := bootstrap.NewSentimentAnalyzer(cmd.cfg)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(c.Root().Writer, "%.3f\t%s\n", analyzer.Polarity(text), analyzer.Classify(text))
	return err
}
