// Package cli implements the solutionctl administration commands.
package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/HammerMeetNail/solutionbase/internal/config"
	"github.com/HammerMeetNail/solutionbase/internal/database"
	"github.com/HammerMeetNail/solutionbase/internal/services"
)

// Execute creates the root command tree and runs it.
func Execute(version string) error {
	return newRootCmd(version).Execute()
}

func newRootCmd(version string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "solutionctl",
		Short: "Administer a solutionbase deployment",
		Long: `solutionctl manages a solutionbase deployment from the command line.

It issues and revokes MCP access tokens on behalf of existing users and runs
database migrations. Connection settings are read from the same environment
variables as the server.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.AddCommand(newTokenCmd())
	cmd.AddCommand(newMigrateCmd())

	return cmd
}

// env holds the services a command needs once connected.
type env struct {
	cfg    *config.Config
	db     *database.PostgresDB
	users  services.UserServiceInterface
	tokens services.AccessTokenServiceInterface
}

func (e *env) Close() {
	e.db.Close()
}

func openEnv() (*env, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	db, err := database.NewPostgresDB(cfg.Database.DSN())
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}

	adapter := services.NewPoolAdapter(db.Pool)
	return &env{
		cfg:    cfg,
		db:     db,
		users:  services.NewUserService(adapter),
		tokens: services.NewAccessTokenService(adapter, cfg.MCP.DefaultTokenTTL),
	}, nil
}
