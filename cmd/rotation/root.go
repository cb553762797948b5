// Command rotation manages church rotation data and generates schedules
// from the command line.
//
// Usage:
//
//	rotation migrate
//	rotation import seeds/central.yaml
//	rotation generate --church central --months 3 --start-date 2025-01-05
//	rotation regenerate --church central --months 3 --start-date 2025-02-02 --start-organist Bia
//
// Settings come from the same environment (and .env file) as the API
// server; --db overrides DATABASE_PATH.
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/zapponejosh/organ-rotation/internal/config"
	"github.com/zapponejosh/organ-rotation/internal/database"
	"github.com/zapponejosh/organ-rotation/internal/logger"
)

// app carries what every subcommand needs once flags are parsed.
type app struct {
	cfg    *config.Config
	logger *slog.Logger
	dbPath string
	debug  bool
}

func newRootCmd() *cobra.Command {
	a := &app{}

	cmd := &cobra.Command{
		Use:           "rotation",
		Short:         "Organist rotation scheduling tools",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if a.dbPath != "" {
				cfg.DatabasePath = a.dbPath
			}
			if a.debug {
				cfg.LogLevel = "debug"
			}
			a.cfg = cfg
			// Logs go to stderr so stdout stays machine readable.
			a.logger = logger.New(os.Stderr, cfg.LogLevel, cfg.LogFormat)
			return nil
		},
	}

	cmd.PersistentFlags().StringVar(&a.dbPath, "db", "", "Path to SQLite database (default $DATABASE_PATH)")
	cmd.PersistentFlags().BoolVarP(&a.debug, "verbose", "v", false, "Verbose output")

	cmd.AddCommand(
		newMigrateCmd(a),
		newImportCmd(a),
		newGenerateCmd(a, false),
		newGenerateCmd(a, true),
	)
	return cmd
}

// openDB opens the configured database and applies pending migrations.
func (a *app) openDB(cmd *cobra.Command) (*database.DB, int, error) {
	db, err := database.Open(database.DefaultConfig(a.cfg.DatabasePath), a.logger)
	if err != nil {
		return nil, 0, fmt.Errorf("open database: %w", err)
	}

	applied, err := db.Migrate(cmd.Context())
	if err != nil {
		db.Close()
		return nil, 0, fmt.Errorf("run migrations: %w", err)
	}
	return db, applied, nil
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
