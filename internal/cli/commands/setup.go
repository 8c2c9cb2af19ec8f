// Package commands implements the datapyn subcommands.
package commands

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/datapyn/datapyn/internal/cli/config"
	"github.com/datapyn/datapyn/internal/connector"
	"github.com/datapyn/datapyn/internal/history"
	"github.com/datapyn/datapyn/internal/session"
)

// CommandContext holds common dependencies for CLI commands.
type CommandContext struct {
	Cfg     *config.Config
	Logger  *slog.Logger
	Session *session.Session
	History *history.Store
}

// NewCommandContext opens the configured connection, history store, and
// session. The returned cleanup function must be called (typically via
// defer).
func NewCommandContext(cmd *cobra.Command) (*CommandContext, func(), error) {
	cfg := config.FromContext(cmd.Context())
	logger := config.GetLogger(cmd.Context())

	var conn *connector.Connector
	if connCfg, err := cfg.ActiveConnection(); err == nil {
		conn, err = connector.Connect(cmd.Context(), connCfg.ToAdapterConfig(), logger)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to connect: %w", err)
		}
	}

	var store *history.Store
	if cfg.HistoryPath != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.HistoryPath), 0750); err != nil {
			logger.Warn("cannot create history directory", slog.String("error", err.Error()))
		} else if s, err := history.Open(cfg.HistoryPath, logger); err != nil {
			// History is best effort; a broken store must not block work.
			logger.Warn("history disabled", slog.String("error", err.Error()))
		} else {
			store = s
		}
	}

	opts := session.Options{
		LibsDir: cfg.LibsDir,
		Logger:  logger,
	}
	if store != nil {
		opts.Recorder = store
	}

	sess, err := session.New(conn, opts)
	if err != nil {
		if conn != nil {
			_ = conn.Close()
		}
		if store != nil {
			_ = store.Close()
		}
		return nil, nil, err
	}

	cleanup := func() {
		_ = sess.Close()
		if store != nil {
			_ = store.Close()
		}
	}

	return &CommandContext{
		Cfg:     cfg,
		Logger:  logger,
		Session: sess,
		History: store,
	}, cleanup, nil
}

// resolveFormat picks the output format: the command-local flag wins,
// then the configured default.
func resolveFormat(flagValue string, cfg *config.Config) string {
	if flagValue != "" {
		return flagValue
	}
	if cfg.Output != "" {
		return cfg.Output
	}
	return config.DefaultOutput
}
