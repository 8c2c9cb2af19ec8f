// Package session owns the long-lived state of an interactive DataPyn
// session: the script namespace, the executor bound to the active
// connection, and the record of what ran.
package session

import (
	"context"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"go.starlark.net/starlark"

	"github.com/datapyn/datapyn/internal/connector"
	"github.com/datapyn/datapyn/internal/crosslang"
	"github.com/datapyn/datapyn/internal/script"
)

// Recorder receives one entry per execution. The history store
// implements it; a nil recorder disables recording.
type Recorder interface {
	Record(ctx context.Context, entry Entry) error
}

// Entry is what the session hands to its recorder after each run.
type Entry struct {
	Source          string
	Success         bool
	ErrorMessage    string
	QueriesExecuted int
	BoundNames      []string
	StdoutLen       int
	Duration        time.Duration
	StartedAt       time.Time
}

// Var describes one user-visible namespace binding for inspection.
type Var struct {
	Name    string
	Type    string
	Preview string
}

// Options configures session construction.
type Options struct {
	// LibsDir is scanned for .star helper files loaded under their
	// filename namespace. Empty or missing directories are fine.
	LibsDir string

	// Recorder, when set, is notified after every execution.
	Recorder Recorder

	Logger *slog.Logger
}

// Session serializes executions against one shared namespace. All
// methods are safe for concurrent use.
type Session struct {
	mu        sync.Mutex
	conn      *connector.Connector
	executor  *crosslang.Executor
	namespace starlark.StringDict
	seeded    map[string]bool
	recorder  Recorder
	libsDir   string
	logger    *slog.Logger
}

// New builds a session around an established connection. The connection
// may be nil for script-only sessions; embedded queries will then fail
// with a no-connection error.
func New(conn *connector.Connector, opts Options) (*Session, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	s := &Session{
		conn:     conn,
		executor: crosslang.NewExecutor(connOrNil(conn), logger),
		recorder: opts.Recorder,
		libsDir:  opts.LibsDir,
		logger:   logger,
	}
	if err := s.seed(); err != nil {
		return nil, err
	}
	return s, nil
}

// connOrNil avoids storing a typed nil inside the Connection interface.
func connOrNil(c *connector.Connector) crosslang.Connection {
	if c == nil {
		return nil
	}
	return c
}

// seed populates the namespace with builtins and helper libraries and
// remembers which names it planted so Vars can skip them.
func (s *Session) seed() error {
	var info *script.DBInfo
	var querier script.Querier
	if s.conn != nil {
		querier = s.conn
		info = &script.DBInfo{
			Type:     s.conn.DialectName(),
			Database: s.conn.Database(),
			Schema:   s.conn.Schema(),
		}
	}

	ns := script.Builtins(querier, info)

	if s.libsDir != "" {
		libs, err := script.LoadLibraries(s.libsDir)
		if err != nil {
			return err
		}
		for _, lib := range libs {
			ns[lib.Namespace] = lib.Module
			s.logger.Debug("loaded library",
				slog.String("namespace", lib.Namespace),
				slog.String("path", lib.Path))
		}
	}

	s.namespace = ns
	s.seeded = make(map[string]bool, len(ns))
	for name := range ns {
		s.seeded[name] = true
	}
	return nil
}

// Execute runs one block of mixed source against the session namespace.
func (s *Session) Execute(ctx context.Context, source string) *crosslang.Result {
	s.mu.Lock()
	defer s.mu.Unlock()

	start := time.Now()
	result := s.executor.Execute(ctx, "session", source, s.namespace)

	if s.recorder != nil {
		entry := Entry{
			Source:          source,
			Success:         result.Success,
			ErrorMessage:    result.ErrorMessage,
			QueriesExecuted: result.QueriesExecuted,
			BoundNames:      result.BoundNames,
			StdoutLen:       len(result.Stdout),
			Duration:        time.Since(start),
			StartedAt:       start,
		}
		if err := s.recorder.Record(ctx, entry); err != nil {
			s.logger.Warn("failed to record history", slog.String("error", err.Error()))
		}
	}
	return result
}

// Reset discards all user bindings and reseeds builtins and libraries.
func (s *Session) Reset() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.seed()
}

// Vars lists user-created bindings sorted by name. Seeded builtins,
// loaded libraries, and underscore-prefixed names are hidden.
func (s *Session) Vars() []Var {
	s.mu.Lock()
	defer s.mu.Unlock()

	vars := make([]Var, 0, len(s.namespace))
	for name, value := range s.namespace {
		if s.seeded[name] || strings.HasPrefix(name, "_") {
			continue
		}
		vars = append(vars, Var{
			Name:    name,
			Type:    value.Type(),
			Preview: script.Preview(value, 60),
		})
	}
	sort.Slice(vars, func(i, j int) bool { return vars[i].Name < vars[j].Name })
	return vars
}

// Lookup returns a single namespace binding by name.
func (s *Session) Lookup(name string) (starlark.Value, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.namespace[name]
	return v, ok
}

// Connector exposes the underlying connection for catalog inspection.
func (s *Session) Connector() *connector.Connector {
	return s.conn
}

// Close releases the underlying connection, if any.
func (s *Session) Close() error {
	if s.conn == nil {
		return nil
	}
	return s.conn.Close()
}
