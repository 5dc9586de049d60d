package cli

import (
	"errors"
	"fmt"
	"io"

	"github.com/golang-migrate/migrate/v4"
	"github.com/spf13/cobra"

	"github.com/HammerMeetNail/solutionbase/internal/config"
	"github.com/HammerMeetNail/solutionbase/internal/database"
)

func newMigrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the database schema",
		Long:  "Apply, roll back, or inspect migrations from MIGRATIONS_PATH against the configured database.",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withMigrator(func(m *database.Migrator) error {
				if err := m.Up(); err != nil {
					return err
				}
				return printVersion(cmd.OutOrStdout(), m)
			})
		},
	})

	var steps int
	down := &cobra.Command{
		Use:   "down",
		Short: "Roll back migrations",
		Example: `  solutionctl migrate down --steps 1
  solutionctl migrate down --all`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			all, _ := cmd.Flags().GetBool("all")
			if !all && steps < 1 {
				return fmt.Errorf("pass --steps N or --all")
			}
			return withMigrator(func(m *database.Migrator) error {
				var err error
				if all {
					err = m.Down()
				} else {
					err = m.Steps(-steps)
				}
				if err != nil {
					return err
				}
				return printVersion(cmd.OutOrStdout(), m)
			})
		},
	}
	down.Flags().IntVar(&steps, "steps", 0, "Number of migrations to roll back")
	down.Flags().Bool("all", false, "Roll back every migration")
	cmd.AddCommand(down)

	cmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the current schema version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withMigrator(func(m *database.Migrator) error {
				return printVersion(cmd.OutOrStdout(), m)
			})
		},
	})

	return cmd
}

func withMigrator(fn func(m *database.Migrator) error) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	m, err := database.NewMigrator(cfg.Database.DSN(), cfg.Server.MigrationsPath)
	if err != nil {
		return err
	}
	defer func() { _ = m.Close() }()

	return fn(m)
}

type versioner interface {
	Version() (uint, bool, error)
}

func printVersion(out io.Writer, m versioner) error {
	version, dirty, err := m.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		fmt.Fprintln(out, "Schema version: none")
		return nil
	}
	if err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}

	if dirty {
		fmt.Fprintf(out, "Schema version: %d (dirty)\n", version)
		return nil
	}
	fmt.Fprintf(out, "Schema version: %d\n", version)
	return nil
}
