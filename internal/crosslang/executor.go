package crosslang

import (
	"context"
	"log/slog"

	"go.starlark.net/starlark"

	"github.com/datapyn/datapyn/internal/script"
	"github.com/datapyn/datapyn/internal/table"
)

// Connection is the database collaborator the executor depends on.
type Connection interface {
	ExecuteQuery(ctx context.Context, sql string) (*table.Table, error)
	IsConnected() bool
}

// FailureKind classifies why an execution failed.
type FailureKind string

const (
	// FailureNone marks a successful execution.
	FailureNone FailureKind = ""

	// FailureNoConnection: fragments present but no live connection.
	// Nothing was executed.
	FailureNoConnection FailureKind = "no_connection"

	// FailureQuery: a fragment's SQL failed. The whole run aborted;
	// bindings from earlier successful fragments remain.
	FailureQuery FailureKind = "query"

	// FailureScript: the rewritten script failed to parse or raised.
	// Bindings committed before the failure remain.
	FailureScript FailureKind = "script"
)

// Result describes one cross-syntax execution. It is created once per
// Execute call and not mutated afterwards.
type Result struct {
	// Success is false when any phase failed.
	Success bool

	// Stdout is everything the script printed, verbatim, never
	// interleaved with error text.
	Stdout string

	// LastValue is the value of the final expression statement, or nil
	// when the script did not end in an expression (None counts as no
	// value, matching the behavior of trailing calls like print).
	LastValue starlark.Value

	// ErrorMessage is populated only when Success is false. Query
	// failures are prefixed with the failing fragment's variable name.
	ErrorMessage string

	// Failure classifies the error; FailureNone on success.
	Failure FailureKind

	// QueriesExecuted counts fragments whose query phase completed
	// before any abort.
	QueriesExecuted int

	// BoundNames lists the variables newly populated by query
	// extraction in this run, in source order.
	BoundNames []string
}

// HasLastValue reports whether the run produced a final expression value.
func (r *Result) HasLastValue() bool {
	return r.LastValue != nil
}

// Executor runs cross-syntax source: embedded queries first, then the
// residual script. One executor may serve many calls; the namespace is
// owned by the caller and mutated in place, so callers must not run two
// executions against the same namespace concurrently.
type Executor struct {
	conn   Connection
	runner *script.Runner
	logger *slog.Logger
}

// NewExecutor creates an executor bound to a connection collaborator.
// If logger is nil, a discard logger is used.
func NewExecutor(conn Connection, logger *slog.Logger) *Executor {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Executor{
		conn:   conn,
		runner: script.NewRunner(),
		logger: logger,
	}
}

// Execute runs one mixed block against the namespace. Failures are
// always reported through the Result, never returned as an error: the
// query phase is fail-fast (a bad query aborts everything that follows),
// while the script phase retains bindings already committed.
func (e *Executor) Execute(ctx context.Context, name, source string, namespace starlark.StringDict) *Result {
	result := &Result{}

	// A nil namespace gets a throwaway dict; bindings are then only
	// observable through the Result.
	if namespace == nil {
		namespace = make(starlark.StringDict)
	}

	fragments := Extract(source)

	// The only validation gate: embedded queries demand a live
	// connection. Plain script blocks pass through untouched.
	if len(fragments) > 0 && (e.conn == nil || !e.conn.IsConnected()) {
		result.Failure = FailureNoConnection
		result.ErrorMessage = "no active database connection"
		return result
	}

	for _, f := range fragments {
		tbl, err := e.conn.ExecuteQuery(ctx, f.SQL)
		if err != nil {
			e.logger.Debug("fragment query failed",
				slog.String("variable", f.Variable),
				slog.String("error", err.Error()))
			result.Failure = FailureQuery
			result.ErrorMessage = f.Variable + ": " + err.Error()
			return result
		}

		// Bind immediately so later phases see earlier results.
		namespace[f.Variable] = tbl
		result.QueriesExecuted++
		result.BoundNames = append(result.BoundNames, f.Variable)
	}

	rewritten := Rewrite(source, fragments)

	out, err := e.runner.Run(ctx, name, rewritten, namespace)
	result.Stdout = out.Stdout
	if err != nil {
		result.Failure = FailureScript
		result.ErrorMessage = err.Error()
		return result
	}

	if out.Value != nil && out.Value != starlark.None {
		result.LastValue = out.Value
	}
	result.Success = true
	return result
}
