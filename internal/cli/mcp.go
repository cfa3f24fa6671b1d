package cli

import (
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/erdenaykaratas/barcin.ai.chatbot/internal/dispatch"
	"github.com/erdenaykaratas/barcin.ai.chatbot/internal/mcp"
)

// NewMCPCmd creates the 'mcp' command serving the assistant over stdio.
func NewMCPCmd(o *options) *cobra.Command {
	var userID string

	cmd := &cobra.Command{
		Use:   "mcp",
		Short: "Serve the assistant as MCP tools over stdio",
		Long: `Run an MCP server on stdin/stdout so AI clients can call barcin as tools:
barcin_ask, barcin_datasets, barcin_analyze, barcin_feedback and
barcin_learning_report.

Every call runs as --user; the role comes from the configuration.
Logs go to stderr.`,
		Example: `  # Client configuration
  {"mcpServers": {"barcin": {"command": "barcin", "args": ["mcp", "--user", "admin"]}}}`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(contextOf(cmd), os.Interrupt, syscall.SIGTERM)
			defer stop()

			rt, err := newRuntime(ctx, o.cfg, runtimeOptions{async: o.cfg.Settings.AsyncLearning})
			if err != nil {
				return err
			}
			defer rt.Close()

			user := dispatch.User{ID: userID, Role: o.cfg.RoleOf(userID)}
			slog.Info("mcp server ready", "user", user.ID, "role", user.Role)
			return mcp.NewServer(rt.assistant, user).Run(ctx, cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringVarP(&userID, "user", "u", "user", "User id the tools act as")
	return cmd
}
