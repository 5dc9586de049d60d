package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/HammerMeetNail/solutionbase/internal/mcp"
	"github.com/HammerMeetNail/solutionbase/internal/models"
	"github.com/HammerMeetNail/solutionbase/internal/services"
)

const (
	dateLayout      = "2006-01-02"
	maxTokenTTLDays = 3650
)

func newTokenCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "token",
		Aliases: []string{"tokens"},
		Short:   "Manage MCP access tokens",
		Long:    "Create, list, and revoke the bearer tokens users present to the MCP endpoint.",
	}

	cmd.AddCommand(newTokenCreateCmd())
	cmd.AddCommand(newTokenListCmd())
	cmd.AddCommand(newTokenRevokeCmd())

	return cmd
}

// ---------- token create ----------

func newTokenCreateCmd() *cobra.Command {
	var (
		name string
		days int
	)

	cmd := &cobra.Command{
		Use:   "create <username>",
		Short: "Issue an access token for a user",
		Long:  "Issue a new MCP access token for an existing user. The secret is shown once and cannot be retrieved again.",
		Example: `  solutionctl token create alice
  solutionctl token create alice --name "CI pipeline" --days 30
  solutionctl token create alice --days 0   # never expires`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var ttl *int
			if cmd.Flags().Changed("days") {
				if days > maxTokenTTLDays {
					return fmt.Errorf("--days must be at most %d", maxTokenTTLDays)
				}
				ttl = &days
			}
			return runTokenCreate(cmd.Context(), cmd.OutOrStdout(), args[0], name, ttl)
		},
	}

	cmd.Flags().StringVar(&name, "name", "API Access", "Label for the token")
	cmd.Flags().IntVar(&days, "days", 0, "Days until the token expires; 0 or less never expires (default from MCP_TOKEN_TTL_DAYS)")

	return cmd
}

func runTokenCreate(ctx context.Context, out io.Writer, username, name string, ttl *int) error {
	e, err := openEnv()
	if err != nil {
		return err
	}
	defer e.Close()

	user, err := lookupUser(ctx, e.users, username)
	if err != nil {
		return err
	}

	token, secret, err := e.tokens.Issue(ctx, user.ID, name, ttl)
	if err != nil {
		return fmt.Errorf("issue token: %w", err)
	}

	return printTokenCreated(out, user, token, secret, e.cfg.Server.MCPEndpoint())
}

func printTokenCreated(out io.Writer, user *models.User, token *models.AccessToken, secret, endpoint string) error {
	fmt.Fprintf(out, "Access token created for %s:\n", user.Username)
	fmt.Fprintln(out)
	fmt.Fprintf(out, "  Token:   %s\n", secret)
	fmt.Fprintf(out, "  Name:    %s\n", token.Name)
	fmt.Fprintf(out, "  Expires: %s\n", formatExpiry(token))
	fmt.Fprintln(out)
	fmt.Fprintln(out, "  Save this token now - it cannot be retrieved again.")
	fmt.Fprintln(out)
	fmt.Fprintln(out, "MCP client configuration:")

	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(mcp.NewClientConfig(endpoint, secret))
}

// ---------- token list ----------

func newTokenListCmd() *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:     "list <username>",
		Aliases: []string{"ls"},
		Short:   "List a user's access tokens",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTokenList(cmd.Context(), cmd.OutOrStdout(), args[0], jsonOutput)
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")

	return cmd
}

func runTokenList(ctx context.Context, out io.Writer, username string, jsonOutput bool) error {
	e, err := openEnv()
	if err != nil {
		return err
	}
	defer e.Close()

	user, err := lookupUser(ctx, e.users, username)
	if err != nil {
		return err
	}

	tokens, err := e.tokens.List(ctx, user.ID)
	if err != nil {
		return fmt.Errorf("list tokens: %w", err)
	}

	return printTokenList(out, username, tokens, jsonOutput)
}

func printTokenList(out io.Writer, username string, tokens []models.AccessToken, jsonOutput bool) error {
	if jsonOutput {
		if tokens == nil {
			tokens = []models.AccessToken{}
		}
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(tokens)
	}

	if len(tokens) == 0 {
		fmt.Fprintf(out, "No access tokens for %s. Use 'solutionctl token create %s' to issue one.\n", username, username)
		return nil
	}

	fmt.Fprintf(out, "%-36s  %-12s  %-24s  %-10s  %-6s\n", "ID", "PREFIX", "NAME", "EXPIRES", "ACTIVE")
	for _, t := range tokens {
		active := "yes"
		if !t.IsActive {
			active = "no"
		}
		fmt.Fprintf(out, "%-36s  %-12s  %-24s  %-10s  %-6s\n", t.ID, t.TokenPrefix, t.Name, formatExpiry(&t), active)
	}
	return nil
}

// ---------- token revoke ----------

func newTokenRevokeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "revoke <username> <token-id>",
		Short: "Revoke one of a user's access tokens",
		Long:  "Deactivate an access token. Requests presenting it are rejected from then on.",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			tokenID, err := uuid.Parse(args[1])
			if err != nil {
				return fmt.Errorf("invalid token id %q", args[1])
			}
			return runTokenRevoke(cmd.Context(), cmd.OutOrStdout(), args[0], tokenID)
		},
	}
}

func runTokenRevoke(ctx context.Context, out io.Writer, username string, tokenID uuid.UUID) error {
	e, err := openEnv()
	if err != nil {
		return err
	}
	defer e.Close()

	user, err := lookupUser(ctx, e.users, username)
	if err != nil {
		return err
	}

	if err := e.tokens.Revoke(ctx, user.ID, tokenID); err != nil {
		if errors.Is(err, services.ErrTokenNotFound) {
			return fmt.Errorf("no token %s belongs to %s", tokenID, username)
		}
		return fmt.Errorf("revoke token: %w", err)
	}

	fmt.Fprintf(out, "Revoked token %s\n", tokenID)
	return nil
}

func lookupUser(ctx context.Context, users services.UserServiceInterface, username string) (*models.User, error) {
	user, err := users.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, services.ErrUserNotFound) {
			return nil, fmt.Errorf("user %q not found", username)
		}
		return nil, fmt.Errorf("look up user: %w", err)
	}
	return user, nil
}

func formatExpiry(t *models.AccessToken) string {
	if t.ExpiresAt == nil {
		return "never"
	}
	return t.ExpiresAt.Format(dateLayout)
}
