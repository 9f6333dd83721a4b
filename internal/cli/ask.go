package cli

import (
	"context"
	"fmt"
	"io"
	"os/signal"
	"strings"
	"syscall"

	"github.com/malbeclabs/finagent/pkg/chat"
	"github.com/malbeclabs/finagent/pkg/pipeline"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
)

type AskCmd struct{}

func NewAskCmd() *AskCmd {
	return &AskCmd{}
}

func (c *AskCmd) Command() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ask <message>",
		Short: "Answer a single message on behalf of a user",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			userID, err := cmd.Flags().GetInt64("user-id")
			if err != nil {
				return fmt.Errorf("failed to get user-id flag: %w", err)
			}
			if userID <= 0 {
				return fmt.Errorf("user-id must be positive, got: %d", userID)
			}
			trace, err := cmd.Flags().GetBool("trace")
			if err != nil {
				return fmt.Errorf("failed to get trace flag: %w", err)
			}

			cfg, err := loadConfig(cmd, true)
			if err != nil {
				return err
			}
			log := newLogger(cfg.Verbose)

			ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()

			st, err := openStore(ctx, log, cfg)
			if err != nil {
				return err
			}
			defer st.Close()

			router, err := newRouter(log, cfg, st)
			if err != nil {
				return err
			}

			reply, err := router.Reply(ctx, userID, chat.NewConversation(), strings.Join(args, " "))
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, strings.TrimRight(reply.Text, "\n"))
			if trace && len(reply.Attempts) > 0 {
				fmt.Fprintln(out)
				printAttempts(out, reply.Attempts)
			}
			return nil
		},
	}

	cmd.Flags().Int64("user-id", 7, "user whose records are queried")
	cmd.Flags().Bool("trace", false, "print every query attempt")

	return cmd
}

func printAttempts(w io.Writer, attempts []pipeline.Attempt) {
	table := tablewriter.NewWriter(w)
	table.SetAutoWrapText(false)
	table.SetAutoFormatHeaders(false)
	table.SetBorder(true)
	table.SetRowLine(true)
	table.SetHeader([]string{"#", "Query", "Verdict", "Feedback", "Rows"})
	for _, a := range attempts {
		verdict := "rejected"
		if a.Verdict.IsCorrect {
			verdict = "accepted"
		}
		if a.Executed && a.ExecutionError != "" {
			verdict = "failed"
		}
		rows := ""
		if a.Succeeded() {
			rows = fmt.Sprintf("%d", a.RowCount)
		}
		table.Append([]string{
			fmt.Sprintf("%d", a.Seq),
			a.Candidate.SQL,
			verdict,
			a.Feedback(),
			rows,
		})
	}
	table.Render()
}
