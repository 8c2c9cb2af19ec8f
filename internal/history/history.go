// Package history persists execution records in a local SQLite database
// so past session activity survives restarts.
package history

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite"

	"github.com/datapyn/datapyn/internal/session"
)

//go:embed migrations/*.sql
var migrations embed.FS

// Execution is one stored history record.
type Execution struct {
	ID              string
	Source          string
	Success         bool
	ErrorMessage    string
	QueriesExecuted int
	BoundNames      []string
	StdoutLen       int
	Duration        time.Duration
	StartedAt       time.Time
}

// Store persists executions. It implements session.Recorder.
type Store struct {
	db     *sql.DB
	logger *slog.Logger
}

// Open opens (or creates) the history database at path and runs any
// pending migrations. Use ":memory:" for a throwaway store.
func Open(path string, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open history database: %w", err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping history database: %w", err)
	}

	s := &Store{db: db, logger: logger}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// migrate runs all pending schema migrations from the embedded FS.
func (s *Store) migrate() error {
	goose.SetBaseFS(migrations)
	goose.SetLogger(goose.NopLogger())

	if err := goose.SetDialect("sqlite"); err != nil {
		return fmt.Errorf("failed to set dialect: %w", err)
	}
	if err := goose.Up(s.db, "migrations"); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	return nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Record stores one session entry. It satisfies session.Recorder.
func (s *Store) Record(ctx context.Context, entry session.Entry) error {
	id := uuid.New().String()

	names := entry.BoundNames
	if names == nil {
		names = []string{}
	}
	boundNames, err := json.Marshal(names)
	if err != nil {
		return fmt.Errorf("failed to encode bound names: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO executions (id, source, success, error_message, queries_executed, bound_names, stdout_len, duration_ms, started_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id,
		entry.Source,
		boolToInt(entry.Success),
		entry.ErrorMessage,
		entry.QueriesExecuted,
		string(boundNames),
		entry.StdoutLen,
		entry.Duration.Milliseconds(),
		entry.StartedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to record execution: %w", err)
	}

	s.logger.Debug("recorded execution",
		slog.String("id", id),
		slog.Bool("success", entry.Success))
	return nil
}

// Recent returns up to n executions, newest first.
func (s *Store) Recent(ctx context.Context, n int) ([]Execution, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, source, success, error_message, queries_executed, bound_names, stdout_len, duration_ms, started_at
		FROM executions
		ORDER BY started_at DESC, id DESC
		LIMIT ?`, n)
	if err != nil {
		return nil, fmt.Errorf("failed to query history: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []Execution
	for rows.Next() {
		var (
			e          Execution
			success    int
			boundNames string
			durationMs int64
		)
		if err := rows.Scan(&e.ID, &e.Source, &success, &e.ErrorMessage, &e.QueriesExecuted, &boundNames, &e.StdoutLen, &durationMs, &e.StartedAt); err != nil {
			return nil, fmt.Errorf("failed to scan history row: %w", err)
		}
		e.Success = success != 0
		e.Duration = time.Duration(durationMs) * time.Millisecond
		if err := json.Unmarshal([]byte(boundNames), &e.BoundNames); err != nil {
			return nil, fmt.Errorf("failed to decode bound names: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// Clear deletes all stored executions.
func (s *Store) Clear(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM executions`)
	if err != nil {
		return fmt.Errorf("failed to clear history: %w", err)
	}
	return nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
