// Package connector wraps a database adapter behind the small collaborator
// surface the cross-syntax executor and script builtins depend on:
// execute a query into a table, execute a statement, report connectivity.
package connector

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/datapyn/datapyn/internal/adapter"
	"github.com/datapyn/datapyn/internal/table"
)

// Connector owns one live database connection for a session.
type Connector struct {
	adapter adapter.Adapter
	cfg     adapter.Config
	logger  *slog.Logger
}

// New creates a connector around an adapter. The adapter may be nil or
// not yet connected; IsConnected reports the live state.
// If logger is nil, a discard logger is used.
func New(a adapter.Adapter, logger *slog.Logger) *Connector {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Connector{adapter: a, logger: logger}
}

// Connect creates an adapter for the config and opens the connection.
func Connect(ctx context.Context, cfg adapter.Config, logger *slog.Logger) (*Connector, error) {
	a, err := adapter.New(cfg, logger)
	if err != nil {
		return nil, err
	}
	if err := a.Connect(ctx, cfg); err != nil {
		return nil, err
	}
	c := New(a, logger)
	c.cfg = cfg
	return c, nil
}

// IsConnected reports whether a live database connection exists.
func (c *Connector) IsConnected() bool {
	return c.adapter != nil && c.adapter.IsConnected()
}

// ExecuteQuery runs a SELECT-style statement and materializes the result.
func (c *Connector) ExecuteQuery(ctx context.Context, sqlText string) (*table.Table, error) {
	if !c.IsConnected() {
		return nil, fmt.Errorf("no active database connection")
	}

	c.logger.Debug("executing query", slog.Int("sql_len", len(sqlText)))

	rows, err := c.adapter.Query(ctx, sqlText)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	t, err := table.FromRows(rows.Rows)
	if err != nil {
		return nil, err
	}

	c.logger.Debug("query complete",
		slog.Int("rows", t.NumRows()),
		slog.Int("cols", t.NumCols()))
	return t, nil
}

// ExecuteStatement runs an INSERT/UPDATE/DELETE/DDL statement and returns
// the number of rows affected.
func (c *Connector) ExecuteStatement(ctx context.Context, sqlText string) (int64, error) {
	if !c.IsConnected() {
		return 0, fmt.Errorf("no active database connection")
	}
	return c.adapter.Exec(ctx, sqlText)
}

// ListTables returns the names of all user tables and views.
func (c *Connector) ListTables(ctx context.Context) ([]string, error) {
	if !c.IsConnected() {
		return nil, fmt.Errorf("no active database connection")
	}
	return c.adapter.ListTables(ctx)
}

// TableMetadata returns schema information for one table.
func (c *Connector) TableMetadata(ctx context.Context, name string) (*adapter.Metadata, error) {
	if !c.IsConnected() {
		return nil, fmt.Errorf("no active database connection")
	}
	return c.adapter.GetTableMetadata(ctx, name)
}

// DialectName returns the dialect of the underlying adapter, or "" when
// no adapter is attached.
func (c *Connector) DialectName() string {
	if c.adapter == nil {
		return ""
	}
	return c.adapter.DialectName()
}

// Database returns the connected database name. File-based databases
// report their path instead.
func (c *Connector) Database() string {
	if c.cfg.Database != "" {
		return c.cfg.Database
	}
	return c.cfg.Path
}

// Schema returns the default schema from the connection config.
func (c *Connector) Schema() string {
	return c.cfg.Schema
}

// Close releases the underlying connection.
func (c *Connector) Close() error {
	if c.adapter == nil {
		return nil
	}
	return c.adapter.Close()
}
