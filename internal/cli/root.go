package cli

import (
	"fmt"

	"github.com/malbeclabs/finagent/pkg/config"
	"github.com/malbeclabs/finagent/pkg/pipeline"
	"github.com/spf13/cobra"
)

type ExitCode int

const (
	exitCodeSuccess = 0
	exitCodeError   = 1
)

func Run(version string) ExitCode {
	if err := NewRootCmd(version).Execute(); err != nil {
		return exitCodeError
	}
	return exitCodeSuccess
}

func NewRootCmd(version string) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:          "finagent",
		Short:        "Chat agent that answers finance questions from the user's own records.",
		Version:      version,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := config.LoadDotEnv(); err != nil {
				return err
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			err := cmd.Help()
			if err != nil {
				return fmt.Errorf("failed to show help: %w", err)
			}
			return nil
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.BoolP("verbose", "v", false, "set debug logging level")
	flags.String("db-driver", "sqlite", "database driver (sqlite, duckdb, postgres)")
	flags.String("db-dsn", "", "database DSN (defaults to finance.db or finance.duckdb)")
	flags.String("model", "", "model used for generation (defaults to the client default)")
	flags.Int("max-retries", pipeline.DefaultMaxRetries, "query attempts per question")

	rootCmd.AddCommand(
		NewInitDBCmd().Command(),
		NewSchemaCmd().Command(),
		NewAskCmd().Command(),
		NewChatCmd().Command(),
		NewServeCmd().Command(),
	)

	return rootCmd
}
