package commands

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/datapyn/datapyn/internal/crosslang"
)

// RunOptions holds options for the run command.
type RunOptions struct {
	Format string
	Watch  bool
}

// NewRunCommand creates the run command.
func NewRunCommand() *cobra.Command {
	opts := &RunOptions{}

	cmd := &cobra.Command{
		Use:   "run <file>",
		Short: "Run a script file with embedded SQL",
		Long: `Execute a file of mixed script and embedded SQL fragments.

Each name = {{ SELECT ... }} fragment runs against the configured
connection and binds its result table before the remaining script
executes. The process exits non-zero when execution fails.`,
		Example: `  # Run a script
  datapyn run report.dpy

  # Re-run automatically on change
  datapyn run report.dpy --watch

  # Emit the final table as JSON
  datapyn run report.dpy --format json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRun(cmd, args[0], opts)
		},
	}

	cmd.Flags().StringVarP(&opts.Format, "format", "f", "", "Output format: table, json, csv, md")
	cmd.Flags().BoolVarP(&opts.Watch, "watch", "w", false, "Re-run when the file changes")
	return cmd
}

func runRun(cmd *cobra.Command, path string, opts *RunOptions) error {
	cmdCtx, cleanup, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	format := resolveFormat(opts.Format, cmdCtx.Cfg)

	if opts.Watch {
		return watchAndRun(cmd, cmdCtx, path, format)
	}

	res, err := executeFile(cmd, cmdCtx, path, format)
	if err != nil {
		return err
	}
	if !res.Success {
		return fmt.Errorf("execution failed")
	}
	return nil
}

// executeFile reads and executes one script file, rendering the outcome.
func executeFile(cmd *cobra.Command, cmdCtx *CommandContext, path, format string) (*crosslang.Result, error) {
	source, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	res := cmdCtx.Session.Execute(cmd.Context(), string(source))
	if err := renderResult(cmd.OutOrStdout(), res, format); err != nil {
		return nil, err
	}
	if !res.Success {
		_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "Error: %s\n", res.ErrorMessage)
	}
	return res, nil
}

// watchAndRun re-executes the file on every write, debounced. The watch
// loop only ends when the command context is cancelled.
func watchAndRun(cmd *cobra.Command, cmdCtx *CommandContext, path, format string) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to start watcher: %w", err)
	}
	defer func() { _ = watcher.Close() }()

	// Watch the directory, not the file: editors often replace files
	// on save, which drops a direct file watch.
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		return fmt.Errorf("failed to watch %s: %w", path, err)
	}

	if _, err := executeFile(cmd, cmdCtx, path, format); err != nil {
		return err
	}
	_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "Watching %s for changes...\n", path)

	target, err := filepath.Abs(path)
	if err != nil {
		target = path
	}

	var debounceTimer *time.Timer
	for {
		select {
		case <-cmd.Context().Done():
			return nil

		case event := <-watcher.Events:
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			name, err := filepath.Abs(event.Name)
			if err != nil || name != target {
				continue
			}

			if debounceTimer != nil {
				debounceTimer.Stop()
			}
			debounceTimer = time.AfterFunc(100*time.Millisecond, func() {
				_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "\n--- %s changed, re-running ---\n", path)
				if _, err := executeFile(cmd, cmdCtx, path, format); err != nil {
					_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "Error: %v\n", err)
				}
			})

		case err := <-watcher.Errors:
			cmdCtx.Logger.Error("watcher error", "error", err)
		}
	}
}
