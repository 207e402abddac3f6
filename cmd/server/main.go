package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"emailscore/internal/di"
	"emailscore/internal/platform/config"
	"emailscore/internal/platform/logger"
)

// main wires dependencies through the container, starts the HTTP server and
// background workers, and drains them on SIGINT/SIGTERM.
func main() {
	configPath := flag.String("config", "", "path to a config file (default ./config.yaml when present)")
	flag.Parse()

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "load .env: %v\n", err)
		os.Exit(1)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}
	log := logger.New(cfg.Log.Level, cfg.Log.Format)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Error("server exited with error", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, log *slog.Logger) error {
	container, err := di.BuildContainer(ctx, cfg, log)
	if err != nil {
		return err
	}
	return container.Invoke(func(app di.App) error {
		defer app.Infra.Close()
		return serve(ctx, app)
	})
}

func serve(ctx context.Context, app di.App) error {
	log := app.Logger

	app.Disposable.Load(ctx)
	if err := app.Disposable.Err(); err != nil {
		log.WarnContext(ctx, "disposable domain list unavailable, continuing without it", "error", err)
	}

	if err := seedWorkspace(ctx, app); err != nil {
		return fmt.Errorf("seed workspace: %w", err)
	}

	g, gctx := errgroup.WithContext(ctx)

	if app.Refresher != nil {
		g.Go(func() error {
			app.Refresher.Run(gctx)
			return nil
		})
	}
	if app.Worker != nil {
		g.Go(func() error {
			defer app.Worker.Close()
			return app.Worker.Run(gctx)
		})
	}

	g.Go(func() error {
		log.InfoContext(gctx, "starting emailscore",
			"addr", app.Config.Server.Addr,
			"cache_backend", app.Config.Cache.Backend,
			"dispatcher", app.Dispatcher.Name(),
		)
		if err := app.Server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(gctx), app.Config.Server.ShutdownTimeout)
		defer cancel()

		log.InfoContext(shutdownCtx, "shutting down")
		if err := app.Server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		if waiter, ok := app.Dispatcher.(interface{ Wait() }); ok {
			waiter.Wait()
		}
		return nil
	})

	return g.Wait()
}

func seedWorkspace(ctx context.Context, app di.App) error {
	seed := app.Config.Seed
	if seed.WorkspaceName == "" {
		return nil
	}

	ws, err := app.Workspaces.CreateWorkspace(ctx, seed.WorkspaceName, seed.Credits)
	if err != nil {
		return err
	}
	user, err := app.Workspaces.AddUser(ctx, ws.ID, seed.UserEmail)
	if err != nil {
		return err
	}
	key, err := app.Workspaces.IssueAPIKey(ctx, ws.ID, user.ID)
	if err != nil {
		return err
	}
	app.Logger.InfoContext(ctx, "seeded workspace",
		"workspace_id", ws.ID,
		"user_id", user.ID,
		"credits", seed.Credits,
		"api_key", key,
	)
	return nil
}
