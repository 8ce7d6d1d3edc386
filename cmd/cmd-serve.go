package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/Prem-080/cgpa-fetcher/internal/app"
	"github.com/Prem-080/cgpa-fetcher/internal/browser"
	"github.com/Prem-080/cgpa-fetcher/internal/fetcher"
	"github.com/Prem-080/cgpa-fetcher/internal/server"
)

// serveCommand returns the "serve" CLI subcommand.
func serveCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Run the HTTP API",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			cfg, err := app.ConfigFrom(cmd)
			if err != nil {
				return err
			}

			launch, err := browser.ChromeLauncher(cfg.Portal.LoginURL)
			if err != nil {
				return err
			}

			pool := browser.NewPool(cfg.Browser, cfg.Pool, launch)
			pool.Start()
			defer pool.Close()

			coordinator := fetcher.New(pool, cfg.Portal)
			srv := server.New(cfg.Server, coordinator)

			errCh := make(chan error, 1)
			go func() {
				slog.Info("HTTP API listening", "addr", cfg.Server.Addr)
				errCh <- srv.ListenAndServe()
			}()

			select {
			case err := <-errCh:
				if err != nil && !errors.Is(err, http.ErrServerClosed) {
					return fmt.Errorf("serving: %w", err)
				}
				return nil
			case <-ctx.Done():
			}

			slog.Info("shutting down", "cause", context.Cause(ctx))
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				slog.Warn("shutdown incomplete", "error", err)
			}
			return nil
		},
	}
}
