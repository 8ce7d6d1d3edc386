package cmd

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/urfave/cli/v3"

	"github.com/Prem-080/cgpa-fetcher/internal/app"
	"github.com/Prem-080/cgpa-fetcher/internal/browser"
	"github.com/Prem-080/cgpa-fetcher/internal/fetcher"
)

// fetchCommand returns the "fetch" CLI subcommand: a one-shot fetch that
// prints the result as JSON, useful for smoke-testing the portal flow without
// the HTTP layer.
func fetchCommand() *cli.Command {
	var roll, term, screenshotDir string

	return &cli.Command{
		Name:  "fetch",
		Usage: "Fetch one student's result and print it as JSON",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "roll",
				Usage:       "Student roll number",
				Required:    true,
				Destination: &roll,
			},
			&cli.StringFlag{
				Name:        "term",
				Usage:       "Term code (I_I .. IV_II)",
				Required:    true,
				Destination: &term,
			},
			&cli.StringFlag{
				Name:        "screenshot-dir",
				Usage:       "Write captured screenshots to this directory instead of inlining them",
				Destination: &screenshotDir,
			},
		},
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
			defer pool.Close()

			result, err := fetcher.New(pool, cfg.Portal).Fetch(ctx, roll, term)
			if err != nil {
				return fmt.Errorf("fetching result: %w", err)
			}

			if screenshotDir != "" {
				if err := writeScreenshots(result, screenshotDir); err != nil {
					return err
				}
			}

			out, err := json.MarshalIndent(result, "", "  ")
			if err != nil {
				return fmt.Errorf("encoding result: %w", err)
			}
			fmt.Println(string(out))
			return nil
		},
	}
}

// writeScreenshots decodes the captured screenshots to PNG files and strips
// the inline payloads from the printed result.
func writeScreenshots(result *fetcher.Result, dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating screenshot directory: %w", err)
	}

	for _, shot := range result.Screenshots {
		data, err := base64.StdEncoding.DecodeString(shot.Data)
		if err != nil {
			return fmt.Errorf("decoding screenshot %s: %w", shot.Name, err)
		}
		path := filepath.Join(dir, shot.Name+".png")
		if err := os.WriteFile(path, data, 0o644); err != nil {
			return fmt.Errorf("writing screenshot %s: %w", path, err)
		}
		slog.Info("screenshot saved", "path", path)
	}

	result.Screenshots = nil
	return nil
}
