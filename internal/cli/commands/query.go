package commands

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

// QueryOptions holds options for the query command.
type QueryOptions struct {
	Format string
	Input  string
}

// NewQueryCommand creates the query command.
func NewQueryCommand() *cobra.Command {
	opts := &QueryOptions{}

	cmd := &cobra.Command{
		Use:   "query [SQL]",
		Short: "Run a single SQL query against the configured connection",
		Example: `  # Execute SQL directly
  datapyn query "SELECT 42 AS answer"

  # Read SQL from a file
  datapyn query --input report.sql

  # Read SQL from stdin
  echo "SELECT 1" | datapyn query

  # Output as CSV
  datapyn query "SELECT * FROM sales" --format csv`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runQuery(cmd, args, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.Format, "format", "f", "", "Output format: table, json, csv, md")
	cmd.Flags().StringVarP(&opts.Input, "input", "i", "", "Read SQL from file")
	return cmd
}

func runQuery(cmd *cobra.Command, args []string, opts *QueryOptions) error {
	var sqlText string
	switch {
	case len(args) > 0:
		sqlText = args[0]
	case opts.Input != "":
		data, err := os.ReadFile(opts.Input)
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", opts.Input, err)
		}
		sqlText = string(data)
	default:
		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return fmt.Errorf("failed to read stdin: %w", err)
		}
		sqlText = string(data)
	}

	sqlText = strings.TrimSpace(sqlText)
	if sqlText == "" {
		return fmt.Errorf("no SQL to execute")
	}

	cmdCtx, cleanup, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	conn := cmdCtx.Session.Connector()
	if conn == nil || !conn.IsConnected() {
		return fmt.Errorf("no active database connection")
	}

	t, err := conn.ExecuteQuery(cmd.Context(), sqlText)
	if err != nil {
		return err
	}
	return renderTable(cmd.OutOrStdout(), t, resolveFormat(opts.Format, cmdCtx.Cfg))
}
