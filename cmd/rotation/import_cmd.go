package main

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/zapponejosh/organ-rotation/internal/database"
	"github.com/zapponejosh/organ-rotation/internal/seed"
)

type importOutput struct {
	Command    string     `json:"command"`
	File       string     `json:"file"`
	DurationMS int64      `json:"duration_ms"`
	Result     seed.Stats `json:"result"`
}

// newImportCmd loads a YAML seed file into the database.
//
// The import is idempotent: ids are derived from natural keys, so running
// it twice updates rows in place and rewrites cycle membership.
func newImportCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "import <seed.yaml>",
		Short: "Import a church's organists, cycles and services from YAML",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			start := time.Now()
			path := args[0]

			// =================================================================
			// Step 1: Read and validate the seed
			// =================================================================
			a.logger.Info("reading seed file", slog.String("path", path))

			f, err := seed.Load(path)
			if err != nil {
				return err
			}

			a.logger.Info("parsed seed",
				slog.String("church", f.Church.Name),
				slog.Int("organists", len(f.Organists)),
				slog.Int("cycles", len(f.Cycles)),
				slog.Int("services", len(f.Services)),
			)

			// =================================================================
			// Step 2: Open database and run migrations
			// =================================================================
			db, applied, err := a.openDB(cmd)
			if err != nil {
				return err
			}
			defer db.Close()
			a.logger.Info("migrations complete", slog.Int("applied", applied))

			// =================================================================
			// Step 3: Import in a single transaction
			// =================================================================
			var stats seed.Stats
			err = db.WithTx(ctx, func(tx *database.Tx) error {
				var err error
				stats, err = seed.Import(ctx, tx, f, a.logger)
				return err
			})
			if err != nil {
				return fmt.Errorf("import seed: %w", err)
			}

			return writeJSON(cmd.OutOrStdout(), importOutput{
				Command:    "import",
				File:       path,
				DurationMS: time.Since(start).Milliseconds(),
				Result:     stats,
			})
		},
	}
}
