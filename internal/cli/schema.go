package cli

import (
	"context"
	"fmt"
	"io"
	"os/signal"
	"syscall"

	"github.com/malbeclabs/finagent/pkg/store"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
)

type SchemaCmd struct{}

func NewSchemaCmd() *SchemaCmd {
	return &SchemaCmd{}
}

func (c *SchemaCmd) Command() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "schema",
		Short: "Show the tables and columns available to queries",
		RunE: func(cmd *cobra.Command, args []string) error {
			catalog, err := cmd.Flags().GetBool("catalog")
			if err != nil {
				return fmt.Errorf("failed to get catalog flag: %w", err)
			}

			cfg, err := loadConfig(cmd, false)
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

			tables, err := st.Tables(ctx)
			if err != nil {
				return err
			}
			printTables(cmd.OutOrStdout(), tables)

			if catalog {
				fmt.Fprintln(cmd.OutOrStdout())
				fmt.Fprintln(cmd.OutOrStdout(), store.FieldCatalog())
			}
			return nil
		},
	}

	cmd.Flags().Bool("catalog", false, "also print the column semantics given to query generation")

	return cmd
}

func printTables(w io.Writer, tables []store.Table) {
	table := tablewriter.NewWriter(w)
	table.SetAutoWrapText(false)
	table.SetAutoFormatHeaders(false)
	table.SetBorder(true)
	table.SetRowLine(true)
	table.SetHeader([]string{"Table", "Column", "Type", "Key"})
	for _, t := range tables {
		for _, col := range t.Columns {
			key := ""
			if col.PrimaryKey {
				key = "PK"
			}
			table.Append([]string{t.Name, col.Name, col.Type, key})
		}
	}
	table.Render()
}
