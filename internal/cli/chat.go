package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os/signal"
	"strings"
	"syscall"

	"github.com/chzyer/readline"
	"github.com/malbeclabs/finagent/pkg/chat"
	"github.com/malbeclabs/finagent/pkg/server"
	"github.com/spf13/cobra"
)

const replPrompt = "User: "

type ChatCmd struct{}

func NewChatCmd() *ChatCmd {
	return &ChatCmd{}
}

func (c *ChatCmd) Command() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Start an interactive chat session for a user",
		RunE: func(cmd *cobra.Command, args []string) error {
			userID, err := cmd.Flags().GetInt64("user-id")
			if err != nil {
				return fmt.Errorf("failed to get user-id flag: %w", err)
			}
			if userID <= 0 {
				return fmt.Errorf("user-id must be positive, got: %d", userID)
			}
			history, err := cmd.Flags().GetString("history-file")
			if err != nil {
				return fmt.Errorf("failed to get history-file flag: %w", err)
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

			rl, err := readline.NewEx(&readline.Config{
				Prompt:          replPrompt,
				HistoryFile:     history,
				InterruptPrompt: "^C",
				EOFPrompt:       "quit",
				Stdout:          cmd.OutOrStdout(),
			})
			if err != nil {
				return fmt.Errorf("failed to initialize REPL: %w", err)
			}
			defer rl.Close()

			return runREPL(ctx, log, cmd.OutOrStdout(), rl, router, userID)
		},
	}

	cmd.Flags().Int64("user-id", 7, "user whose records are queried")
	cmd.Flags().String("history-file", "", "file to persist input history (disabled when empty)")

	return cmd
}

type lineReader interface {
	Readline() (string, error)
}

func isQuit(line string) bool {
	switch strings.ToLower(line) {
	case "quit", "exit", "q":
		return true
	}
	return false
}

// runREPL answers lines from in until a quit word, EOF or cancellation. Errors answering
// one message are reported and the session continues.
func runREPL(ctx context.Context, log *slog.Logger, out io.Writer, in lineReader, replier server.Replier, userID int64) error {
	conv := chat.NewConversation()
	for {
		if ctx.Err() != nil {
			return nil
		}

		line, err := in.Readline()
		if errors.Is(err, readline.ErrInterrupt) {
			continue
		}
		if errors.Is(err, io.EOF) {
			fmt.Fprintln(out, "Goodbye!")
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to read input: %w", err)
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if isQuit(line) {
			fmt.Fprintln(out, "Goodbye!")
			return nil
		}

		reply, err := replier.Reply(ctx, userID, conv, line)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			log.Error("chat: failed to answer message", "error", err)
			fmt.Fprintf(out, "Error: %v\n", err)
			continue
		}
		fmt.Fprintf(out, "Assistant: %s\n", strings.TrimRight(reply.Text, "\n"))
	}
}
