// Package script executes Python-dialect (Starlark) source against a
// persistent session namespace, capturing printed output and the value of
// a trailing expression statement.
package script

import (
	"context"
	"strings"

	"go.starlark.net/starlark"
	"go.starlark.net/syntax"
)

// contextKey is the thread-local key under which the caller's context is
// stored for builtins that reach the database.
const contextKey = "datapyn.context"

// Runner executes source chunks with REPL semantics: top-level bindings
// land in the shared globals dict and remain visible to later chunks.
type Runner struct {
	opts *syntax.FileOptions
}

// NewRunner creates a runner with REPL-style language options
// (global reassignment, top-level control flow, set, while, recursion).
func NewRunner() *Runner {
	return &Runner{
		opts: &syntax.FileOptions{
			Set:             true,
			While:           true,
			TopLevelControl: true,
			GlobalReassign:  true,
			Recursion:       true,
		},
	}
}

// Outcome describes one chunk execution. Stdout is populated even when
// execution fails partway.
type Outcome struct {
	// Value is the evaluated trailing expression, or nil when the chunk
	// does not end in an expression statement.
	Value starlark.Value

	// Stdout is everything print() produced, in order, one line per call.
	Stdout string
}

// Run parses and executes source against globals, mutating globals in
// place. If the final top-level statement is an expression, it is
// evaluated after the rest of the chunk and its value returned in the
// Outcome. The context is exposed to database builtins via a thread
// local; the script itself is not interruptible.
func (r *Runner) Run(ctx context.Context, name, source string, globals starlark.StringDict) (*Outcome, error) {
	outcome := &Outcome{}

	f, err := r.opts.Parse(name, source, 0)
	if err != nil {
		return outcome, err
	}

	// Separate a trailing expression statement so its value can be
	// captured. Executing it after the remaining statements preserves
	// evaluation order.
	var lastExpr syntax.Expr
	if n := len(f.Stmts); n > 0 {
		if es, ok := f.Stmts[n-1].(*syntax.ExprStmt); ok {
			lastExpr = es.X
			f.Stmts = f.Stmts[:n-1]
		}
	}

	var stdout strings.Builder
	thread := &starlark.Thread{
		Name: name,
		Print: func(_ *starlark.Thread, msg string) {
			stdout.WriteString(msg)
			stdout.WriteString("\n")
		},
	}
	thread.SetLocal(contextKey, ctx)

	if err := starlark.ExecREPLChunk(f, thread, globals); err != nil {
		outcome.Stdout = stdout.String()
		return outcome, err
	}

	if lastExpr != nil {
		value, err := starlark.EvalExprOptions(r.opts, thread, lastExpr, globals)
		if err != nil {
			outcome.Stdout = stdout.String()
			return outcome, err
		}
		outcome.Value = value
	}

	outcome.Stdout = stdout.String()
	return outcome, nil
}

// threadContext returns the context stored on the thread, or Background.
func threadContext(thread *starlark.Thread) context.Context {
	if ctx, ok := thread.Local(contextKey).(context.Context); ok && ctx != nil {
		return ctx
	}
	return context.Background()
}
