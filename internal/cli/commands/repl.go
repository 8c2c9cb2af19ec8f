package commands

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/chzyer/readline"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/datapyn/datapyn/internal/table"
)

const (
	replPrompt     = "datapyn> "
	continuePrompt = "    ...> "
)

// ReplOptions holds options for the repl command.
type ReplOptions struct {
	Format string
}

// NewReplCommand creates the repl command.
func NewReplCommand() *cobra.Command {
	opts := &ReplOptions{}

	cmd := &cobra.Command{
		Use:     "repl",
		Short:   "Start an interactive session",
		Aliases: []string{"shell"},
		Long: `Start an interactive DataPyn session.

Mix script code with embedded SQL fragments; bindings persist across
inputs. A line with an unclosed {{ continues onto the next line, as does
a line ending in a colon (until an empty line).

When stdin is not a terminal, the whole input is executed as one block.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runRepl(cmd, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.Format, "format", "f", "", "Output format: table, json, csv, md")
	return cmd
}

func runRepl(cmd *cobra.Command, opts *ReplOptions) error {
	cmdCtx, cleanup, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	format := resolveFormat(opts.Format, cmdCtx.Cfg)

	// Piped input: run everything as a single block, like run would.
	interactive := false
	if f, ok := cmd.InOrStdin().(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		interactive = true
	}
	if !interactive {
		source, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return fmt.Errorf("failed to read stdin: %w", err)
		}
		res := cmdCtx.Session.Execute(cmd.Context(), string(source))
		if err := renderResult(cmd.OutOrStdout(), res, format); err != nil {
			return err
		}
		if !res.Success {
			_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "Error: %s\n", res.ErrorMessage)
			return fmt.Errorf("execution failed")
		}
		return nil
	}

	historyFile := ""
	if cmdCtx.Cfg.HistoryPath != "" {
		historyFile = filepath.Join(filepath.Dir(cmdCtx.Cfg.HistoryPath), "repl_history")
	}

	rl, err := readline.NewEx(&readline.Config{
		Prompt:          replPrompt,
		HistoryFile:     historyFile,
		AutoComplete:    newReplCompleter(cmd, cmdCtx),
		InterruptPrompt: "^C",
		EOFPrompt:       ".quit",
	})
	if err != nil {
		return fmt.Errorf("failed to initialize repl: %w", err)
	}
	defer func() { _ = rl.Close() }()

	out := cmd.OutOrStdout()
	_, _ = fmt.Fprintf(out, "DataPyn %s\n", cmd.Root().Version)
	if conn := cmdCtx.Session.Connector(); conn != nil && conn.IsConnected() {
		_, _ = fmt.Fprintf(out, "Connected to %s (%s)\n", conn.Database(), conn.DialectName())
	} else {
		_, _ = fmt.Fprintln(out, "No database connection; script only")
	}
	_, _ = fmt.Fprintln(out, "Type .help for commands, .quit to exit")
	_, _ = fmt.Fprintln(out)

	var buffer []string
	inBlock := false
	for {
		line, err := rl.Readline()
		if errors.Is(err, readline.ErrInterrupt) {
			buffer = nil
			inBlock = false
			rl.SetPrompt(replPrompt)
			continue
		}
		if errors.Is(err, io.EOF) {
			break
		}

		if len(buffer) == 0 {
			trimmed := strings.TrimSpace(line)
			if trimmed == "" {
				continue
			}
			if strings.HasPrefix(trimmed, ".") {
				if quit := handleDotCommand(cmd, cmdCtx, trimmed, format); quit {
					break
				}
				continue
			}
		}

		buffer = append(buffer, line)
		source := strings.Join(buffer, "\n")

		// Keep reading while a {{ fragment is open or a block
		// statement is being typed (until an empty line).
		if !crosslangComplete(source) {
			rl.SetPrompt(continuePrompt)
			continue
		}
		if strings.HasSuffix(strings.TrimSpace(line), ":") {
			inBlock = true
		}
		if inBlock && strings.TrimSpace(line) != "" {
			rl.SetPrompt(continuePrompt)
			continue
		}

		buffer = nil
		inBlock = false
		rl.SetPrompt(replPrompt)

		res := cmdCtx.Session.Execute(cmd.Context(), source)
		if err := renderResult(out, res, format); err != nil {
			_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "Error: %v\n", err)
		}
		if !res.Success {
			_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "Error: %s\n", res.ErrorMessage)
		}
	}

	return nil
}

// crosslangComplete reports whether every {{ has a matching }}.
func crosslangComplete(source string) bool {
	return strings.Count(source, "{{") <= strings.Count(source, "}}")
}

// handleDotCommand executes one meta command and reports whether the
// repl should exit.
func handleDotCommand(cmd *cobra.Command, cmdCtx *CommandContext, line, format string) bool {
	out := cmd.OutOrStdout()
	errOut := cmd.ErrOrStderr()
	parts := strings.Fields(line)

	switch strings.ToLower(parts[0]) {
	case ".quit", ".exit":
		return true

	case ".help":
		printReplHelp(out)

	case ".vars":
		printVars(out, cmdCtx)

	case ".tables":
		names, err := listSessionTables(cmd, cmdCtx)
		if err != nil {
			_, _ = fmt.Fprintf(errOut, "Error: %v\n", err)
			break
		}
		if len(names) == 0 {
			_, _ = fmt.Fprintln(out, "(no tables)")
			break
		}
		for _, name := range names {
			_, _ = fmt.Fprintln(out, name)
		}

	case ".schema":
		if len(parts) < 2 {
			_, _ = fmt.Fprintln(errOut, "Usage: .schema <table>")
			break
		}
		if err := printSchema(cmd, cmdCtx, parts[1], format); err != nil {
			_, _ = fmt.Fprintf(errOut, "Error: %v\n", err)
		}

	case ".history":
		if err := printHistory(cmd, cmdCtx); err != nil {
			_, _ = fmt.Fprintf(errOut, "Error: %v\n", err)
		}

	case ".reset":
		if err := cmdCtx.Session.Reset(); err != nil {
			_, _ = fmt.Fprintf(errOut, "Error: %v\n", err)
			break
		}
		_, _ = fmt.Fprintln(out, "Session reset")

	case ".clear":
		_, _ = fmt.Fprint(out, "\033[H\033[2J")

	default:
		_, _ = fmt.Fprintf(errOut, "Unknown command: %s (type .help for commands)\n", parts[0])
	}
	return false
}

func printVars(out io.Writer, cmdCtx *CommandContext) {
	vars := cmdCtx.Session.Vars()
	if len(vars) == 0 {
		_, _ = fmt.Fprintln(out, "(no variables)")
		return
	}
	t := table.New("name", "type", "value")
	for _, v := range vars {
		_ = t.AppendRow(v.Name, v.Type, v.Preview)
	}
	_ = renderTable(out, t, "table")
}

func listSessionTables(cmd *cobra.Command, cmdCtx *CommandContext) ([]string, error) {
	conn := cmdCtx.Session.Connector()
	if conn == nil || !conn.IsConnected() {
		return nil, fmt.Errorf("no active database connection")
	}
	return conn.ListTables(cmd.Context())
}

func printSchema(cmd *cobra.Command, cmdCtx *CommandContext, name, format string) error {
	conn := cmdCtx.Session.Connector()
	if conn == nil || !conn.IsConnected() {
		return fmt.Errorf("no active database connection")
	}

	meta, err := conn.TableMetadata(cmd.Context(), name)
	if err != nil {
		return err
	}

	t := table.New("column", "type", "nullable")
	for _, col := range meta.Columns {
		_ = t.AppendRow(col.Name, col.Type, col.Nullable)
	}
	return renderTable(cmd.OutOrStdout(), t, format)
}

func printHistory(cmd *cobra.Command, cmdCtx *CommandContext) error {
	if cmdCtx.History == nil {
		return fmt.Errorf("history is disabled")
	}

	entries, err := cmdCtx.History.Recent(cmd.Context(), 20)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		_, _ = fmt.Fprintln(cmd.OutOrStdout(), "(no history)")
		return nil
	}

	t := table.New("when", "ok", "queries", "source")
	for _, e := range entries {
		source := strings.ReplaceAll(e.Source, "\n", " ")
		if len(source) > 60 {
			source = source[:57] + "..."
		}
		_ = t.AppendRow(e.StartedAt.Local().Format("15:04:05"), e.Success, e.QueriesExecuted, source)
	}
	return renderTable(cmd.OutOrStdout(), t, "table")
}

func printReplHelp(w io.Writer) {
	help := `
Commands:
  .help           Show this help message
  .vars           List session variables
  .tables         List tables in the connected database
  .schema <name>  Show columns for a table
  .history        Show recent executions
  .reset          Clear all session variables
  .clear          Clear the screen
  .quit / .exit   Exit

Tips:
  - name = {{ SELECT ... }} binds a query result to a variable
  - A line with an unclosed {{ continues on the next line
  - query("SELECT ...") and execute("...") run SQL from script code
`
	_, _ = fmt.Fprintln(w, help)
}

// newReplCompleter offers table names and dot-commands.
func newReplCompleter(cmd *cobra.Command, cmdCtx *CommandContext) *readline.PrefixCompleter {
	var items []readline.PrefixCompleterInterface

	if names, err := listSessionTables(cmd, cmdCtx); err == nil {
		for _, name := range names {
			items = append(items, readline.PcItem(name))
		}
	}

	items = append(items,
		readline.PcItem(".help"),
		readline.PcItem(".vars"),
		readline.PcItem(".tables"),
		readline.PcItem(".schema"),
		readline.PcItem(".history"),
		readline.PcItem(".reset"),
		readline.PcItem(".clear"),
		readline.PcItem(".quit"),
		readline.PcItem(".exit"),
	)
	return readline.NewPrefixCompleter(items...)
}
