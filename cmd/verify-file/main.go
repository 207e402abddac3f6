// Command verify-file scores every address in a CSV or XLSX file with the
// same pipeline the server uses, backed by in-memory stores, and writes
// <input>_verified.csv next to the input.
package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/dig"

	"emailscore/internal/bulk/job"
	"emailscore/internal/bulk/models"
	creditsvc "emailscore/internal/credits/service"
	"emailscore/internal/di"
	"emailscore/internal/heuristic/disposable"
	"emailscore/internal/platform/config"
	"emailscore/internal/platform/logger"
	"emailscore/pkg/domain"
)

type options struct {
	configPath  string
	emailColumn string
	chunkSize   int
	delay       time.Duration
	offline     bool
	logLevel    string
}

type pipeline struct {
	dig.In

	Job        *job.Job
	Credits    *creditsvc.Service
	Lists      di.BulkStore
	Disposable *disposable.Set
	Infra      *di.Infra
}

func main() {
	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	opts := &options{}
	cmd := &cobra.Command{
		Use:          "verify-file <input.csv|input.xlsx>",
		Short:        "Score every email address in a spreadsheet",
		Args:         cobra.ExactArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()
			return run(ctx, args[0], opts)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&opts.configPath, "config", "", "path to a config file")
	flags.StringVarP(&opts.emailColumn, "column", "c", "email", "header of the column holding addresses")
	flags.IntVar(&opts.chunkSize, "chunk-size", 0, "records per chunk (default from config)")
	flags.DurationVar(&opts.delay, "lookup-delay", -1, "pause before each uncached lookup (default from config)")
	flags.BoolVar(&opts.offline, "offline", false, "skip fetching the disposable domain list")
	flags.StringVar(&opts.logLevel, "log-level", "info", "debug, info, warn or error")
	return cmd
}

func run(ctx context.Context, input string, opts *options) error {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("load .env: %w", err)
	}
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return err
	}
	applyOverrides(cfg, opts)
	log := logger.NewWithWriter(os.Stderr, opts.logLevel, "text")

	header, rows, err := readRows(input)
	if err != nil {
		return err
	}
	column, err := resolveColumn(header, opts.emailColumn)
	if err != nil {
		return err
	}
	if len(rows) == 0 {
		return errors.New("file has a header but no rows")
	}

	container, err := di.BuildContainer(ctx, cfg, log)
	if err != nil {
		return err
	}
	return container.Invoke(func(p pipeline) error {
		defer p.Infra.Close()
		return verify(ctx, p, log, input, header, column, rows)
	})
}

// applyOverrides forces the in-memory, inline configuration the CLI runs with.
func applyOverrides(cfg *config.Config, opts *options) {
	cfg.Database.URL = ""
	cfg.Redis.URL = ""
	cfg.Cache.Backend = "memory"
	cfg.Cache.RefreshInterval = 0
	cfg.Bulk.Dispatcher = "inline"
	cfg.Bulk.Worker = false
	cfg.SMTP.Addr = ""
	cfg.Seed = config.Seed{}
	if opts.chunkSize > 0 {
		cfg.Bulk.ChunkSize = opts.chunkSize
	}
	if opts.delay >= 0 {
		cfg.Bulk.LiveLookupDelay = opts.delay
	}
	if opts.offline {
		cfg.Disposable.ListURL = ""
	}
}

func verify(ctx context.Context, p pipeline, log *slog.Logger, input string, header []string, column string, rows []map[string]any) error {
	start := time.Now()
	p.Disposable.Load(ctx)

	workspaceID := domain.WorkspaceID(uuid.New())
	if _, err := p.Credits.Grant(ctx, workspaceID, int64(len(rows))); err != nil {
		return err
	}

	list, err := models.NewList(domain.NewListID(), workspaceID, domain.UserID{}, len(rows), start)
	if err != nil {
		return err
	}
	if err := list.MarkProcessing("cli:"+list.ID.String(), start); err != nil {
		return err
	}
	if err := p.Lists.CreateList(ctx, list); err != nil {
		return err
	}

	log.InfoContext(ctx, "verifying file", "input", input, "records", len(rows), "column", column)
	summary, err := p.Job.Run(ctx, models.Task{
		ListID:      list.ID,
		WorkspaceID: workspaceID,
		EmailColumn: column,
		Data:        rows,
	})
	if err != nil {
		return err
	}

	records, err := p.Lists.ListRecords(ctx, workspaceID, list.ID, len(rows), 0)
	if err != nil {
		return err
	}

	out := outputPath(input)
	f, err := os.Create(out)
	if err != nil {
		return err
	}
	w := bufio.NewWriter(f)
	if err := writeResults(w, header, records); err != nil {
		_ = f.Close()
		return fmt.Errorf("write %s: %w", out, err)
	}
	if err := w.Flush(); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}

	log.InfoContext(ctx, "verification finished",
		"output", out,
		"duration", time.Since(start).Round(time.Millisecond).String(),
		"deliverable", summary.Deliverable,
		"risky", summary.Risky,
		"undeliverable", summary.Undeliverable,
		"unknown", summary.Unknown,
	)
	return nil
}
