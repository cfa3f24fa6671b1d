package cli

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/erdenaykaratas/barcin.ai.chatbot/internal/assistant"
	"github.com/erdenaykaratas/barcin.ai.chatbot/internal/compute"
	"github.com/erdenaykaratas/barcin.ai.chatbot/internal/dispatch"
)

// NewAskCmd creates the 'ask' command for one-shot queries.
func NewAskCmd(o *options) *cobra.Command {
	var (
		userID     string
		role       string
		sessionID  string
		jsonOutput bool
	)

	cmd := &cobra.Command{
		Use:   "ask <query>",
		Short: "Answer a single query",
		Long: `Answer one query and print the response.

The user's role comes from the configuration unless --role is given.
Salary information is only available to admins.`,
		Example: `  barcin ask "500 * 12 kaç eder?"
  barcin ask --user admin "ortalama maaş"
  barcin ask --json "Kadıköy mağazası bilgileri"`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := newRuntime(contextOf(cmd), o.cfg, runtimeOptions{})
			if err != nil {
				return err
			}
			defer rt.Close()

			if role == "" {
				role = o.cfg.RoleOf(userID)
			}
			req := assistant.Request{
				Query:     strings.Join(args, " "),
				User:      dispatch.User{ID: userID, Role: role},
				SessionID: sessionID,
			}
			return runAsk(contextOf(cmd), rt.assistant, req, jsonOutput, cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringVarP(&userID, "user", "u", "user", "User id")
	cmd.Flags().StringVarP(&role, "role", "r", "", "Role override: admin or user")
	cmd.Flags().StringVarP(&sessionID, "session", "s", "", "Session id")
	cmd.Flags().BoolVarP(&jsonOutput, "json", "j", false, "Output as JSON")
	return cmd
}

func runAsk(ctx context.Context, a *assistant.Assistant, req assistant.Request, jsonOutput bool, w io.Writer) error {
	ans := a.Ask(ctx, req)
	if jsonOutput {
		out, err := formatJSON(ans)
		if err != nil {
			return err
		}
		fmt.Fprintln(w, out)
		return nil
	}
	printAnswer(w, ans)
	return nil
}

func printAnswer(w io.Writer, ans assistant.Answer) {
	fmt.Fprintln(w, ans.Text)
	if c := ans.Chart; c != nil {
		fmt.Fprintf(w, "\n[%s chart] %s\n", c.Type, c.Title)
		for _, s := range c.Series {
			for i, v := range s.Data {
				label := ""
				if i < len(c.Labels) {
					label = c.Labels[i]
				}
				fmt.Fprintf(w, "  %s %s: %s\n", s.Name, label, compute.FormatNumber(v))
			}
		}
	}
	if len(ans.Suggestions) > 0 {
		fmt.Fprintf(w, "\nBenzer sorular: %s\n", strings.Join(ans.Suggestions, "; "))
	}
	fmt.Fprintf(w, "\n-- intent=%s confidence=%.2f route=%s elapsed=%s\n",
		ans.Intent, ans.Confidence, ans.Route, ans.Elapsed.Round(time.Microsecond))
}

// contextOf returns the command's context, or Background when run outside
// Execute (tests).
func contextOf(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
