package cli

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"os"
	"os/signal"
	"syscall"

	"github.com/malbeclabs/finagent/pkg/store"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
)

type InitDBCmd struct{}

func NewInitDBCmd() *InitDBCmd {
	return &InitDBCmd{}
}

func (c *InitDBCmd) Command() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init-db",
		Short: "Create and load the finance tables if they do not exist",
		RunE: func(cmd *cobra.Command, args []string) error {
			seedDir, err := cmd.Flags().GetString("seed-dir")
			if err != nil {
				return fmt.Errorf("failed to get seed-dir flag: %w", err)
			}

			cfg, err := loadConfig(cmd, false)
			if err != nil {
				return err
			}
			log := newLogger(cfg.Verbose)

			ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()

			var seed fs.FS = store.DefaultSeed
			if seedDir != "" {
				seed = os.DirFS(seedDir)
			}

			report, err := store.Bootstrap(ctx, storeConfig(log, cfg), seed)
			if err != nil {
				return err
			}
			printBootstrapReport(cmd.OutOrStdout(), report)
			return nil
		},
	}

	cmd.Flags().String("seed-dir", "", "directory with users.csv, symbols.csv and deals.csv (defaults to the built-in data set)")

	return cmd
}

func printBootstrapReport(w io.Writer, report store.BootstrapReport) {
	if report.Created {
		fmt.Fprintln(w, "Database initialized.")
	} else {
		fmt.Fprintln(w, "Database already initialized.")
	}

	table := tablewriter.NewWriter(w)
	table.SetAutoFormatHeaders(false)
	table.SetBorder(true)
	table.SetHeader([]string{"Table", "Rows"})
	for _, c := range report.Counts {
		table.Append([]string{c.Table, fmt.Sprintf("%d", c.Rows)})
	}
	table.Render()
}
