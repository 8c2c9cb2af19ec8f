package script

import (
	"context"
	"fmt"

	"go.starlark.net/lib/json"
	"go.starlark.net/lib/math"
	startime "go.starlark.net/lib/time"
	"go.starlark.net/starlark"
	"go.starlark.net/starlarkstruct"

	"github.com/datapyn/datapyn/internal/table"
)

// Querier is the database surface exposed to scripts through the query()
// and execute() builtins.
type Querier interface {
	ExecuteQuery(ctx context.Context, sql string) (*table.Table, error)
	ExecuteStatement(ctx context.Context, sql string) (int64, error)
	IsConnected() bool
	DialectName() string
}

// DBInfo describes the active connection for the "db" script global.
type DBInfo struct {
	Type     string
	Database string
	Schema   string
}

// ToStarlark converts DBInfo to a Starlark struct value.
func (i *DBInfo) ToStarlark() starlark.Value {
	return starlarkstruct.FromStringDict(starlark.String("db"), starlark.StringDict{
		"type":     starlark.String(i.Type),
		"database": starlark.String(i.Database),
		"schema":   starlark.String(i.Schema),
	})
}

// Builtins returns the names seeded into a fresh session namespace:
// the query/execute database helpers, the db info struct, and the stock
// json/math/time modules.
func Builtins(q Querier, info *DBInfo) starlark.StringDict {
	globals := starlark.StringDict{
		"query":   starlark.NewBuiltin("query", makeQuery(q)),
		"execute": starlark.NewBuiltin("execute", makeExecute(q)),
		"json":    json.Module,
		"math":    math.Module,
		"time":    startime.Module,
	}
	if info != nil {
		globals["db"] = info.ToStarlark()
	}
	return globals
}

// makeQuery builds the query(sql) builtin: run SQL, return a table.
func makeQuery(q Querier) func(*starlark.Thread, *starlark.Builtin, starlark.Tuple, []starlark.Tuple) (starlark.Value, error) {
	return func(thread *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
		var sqlText string
		if err := starlark.UnpackArgs(b.Name(), args, kwargs, "sql", &sqlText); err != nil {
			return nil, err
		}
		if q == nil || !q.IsConnected() {
			return nil, fmt.Errorf("%s: no active database connection", b.Name())
		}
		t, err := q.ExecuteQuery(threadContext(thread), sqlText)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", b.Name(), err)
		}
		return GoToStarlark(t)
	}
}

// makeExecute builds the execute(sql) builtin: run a statement, return
// the number of rows affected.
func makeExecute(q Querier) func(*starlark.Thread, *starlark.Builtin, starlark.Tuple, []starlark.Tuple) (starlark.Value, error) {
	return func(thread *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
		var sqlText string
		if err := starlark.UnpackArgs(b.Name(), args, kwargs, "sql", &sqlText); err != nil {
			return nil, err
		}
		if q == nil || !q.IsConnected() {
			return nil, fmt.Errorf("%s: no active database connection", b.Name())
		}
		affected, err := q.ExecuteStatement(threadContext(thread), sqlText)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", b.Name(), err)
		}
		return GoToStarlark(affected)
	}
}
