package commands

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/datapyn/datapyn/internal/cli/config"
)

// sampleLibrary ships with new projects to show the library mechanism.
const sampleLibrary = `# Helper functions available in every session as stats.<name>.

def mean(values):
    total = 0.0
    for v in values:
        total += v
    return total / len(values) if values else 0.0

def minmax(values):
    lo = values[0]
    hi = values[0]
    for v in values:
        if v < lo:
            lo = v
        if v > hi:
            hi = v
    return (lo, hi)
`

// NewInitCommand creates the init command.
func NewInitCommand() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init [directory]",
		Short: "Initialize a new DataPyn project",
		Long: `Initialize a new DataPyn project.

This creates:
  - datapyn.yaml configuration file with an in-memory DuckDB connection
  - libs/ directory with a sample helper library`,
		Example: `  # Initialize in current directory
  datapyn init

  # Initialize in a new directory
  datapyn init my-project

  # Force overwrite existing config
  datapyn init --force`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := "."
			if len(args) > 0 {
				dir = args[0]
			}
			return runInit(cmd, dir, force)
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Overwrite existing configuration")
	return cmd
}

func runInit(cmd *cobra.Command, dir string, force bool) error {
	if dir != "." {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	configPath := filepath.Join(dir, config.ConfigFileName)
	if _, err := os.Stat(configPath); err == nil && !force {
		return fmt.Errorf("%s already exists. Use --force to overwrite", config.ConfigFileName)
	}

	starter := map[string]any{
		"connection": map[string]any{
			"type": "duckdb",
			"path": ":memory:",
		},
		"libs_dir":     config.DefaultLibsDir,
		"history_path": config.DefaultHistoryPath,
		"output":       config.DefaultOutput,
	}
	data, err := yaml.Marshal(starter)
	if err != nil {
		return fmt.Errorf("failed to render config: %w", err)
	}
	if err := os.WriteFile(configPath, data, 0600); err != nil {
		return fmt.Errorf("failed to write %s: %w", configPath, err)
	}

	libsDir := filepath.Join(dir, config.DefaultLibsDir)
	if err := os.MkdirAll(libsDir, 0750); err != nil {
		return fmt.Errorf("failed to create libs directory: %w", err)
	}
	libPath := filepath.Join(libsDir, "stats.star")
	if _, err := os.Stat(libPath); os.IsNotExist(err) || force {
		if err := os.WriteFile(libPath, []byte(sampleLibrary), 0644); err != nil {
			return fmt.Errorf("failed to write sample library: %w", err)
		}
	}

	out := cmd.OutOrStdout()
	_, _ = fmt.Fprintln(out, "DataPyn project initialized!")
	_, _ = fmt.Fprintln(out, "")
	_, _ = fmt.Fprintln(out, "Next steps:")
	_, _ = fmt.Fprintln(out, "  1. Point the connection in datapyn.yaml at your database")
	_, _ = fmt.Fprintln(out, "  2. Start an interactive session with 'datapyn repl'")
	_, _ = fmt.Fprintln(out, "  3. Or run a script file with 'datapyn run script.dpy'")
	return nil
}
