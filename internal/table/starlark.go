package table

import (
	"fmt"
	"strings"

	"go.starlark.net/starlark"
)

// Starlark protocol implementation for *Table. A table behaves as a
// sequence of row dicts: len(t) is the row count, t[0] is the first row,
// and iteration yields one dict per row. Attribute access exposes the
// column names and a few convenience methods.

var (
	_ starlark.Value     = (*Table)(nil)
	_ starlark.Sequence  = (*Table)(nil)
	_ starlark.Indexable = (*Table)(nil)
	_ starlark.HasAttrs  = (*Table)(nil)
)

// String renders a short summary, e.g. "<table 3 cols x 120 rows>".
func (t *Table) String() string {
	return fmt.Sprintf("<table %d cols x %d rows>", t.NumCols(), t.NumRows())
}

// Type returns the Starlark type name.
func (t *Table) Type() string { return "table" }

// Freeze is a no-op; tables are treated as immutable once bound.
func (t *Table) Freeze() {}

// Truth reports whether the table has any rows.
func (t *Table) Truth() starlark.Bool { return t.NumRows() > 0 }

// Hash reports tables as unhashable, like Python lists.
func (t *Table) Hash() (uint32, error) {
	return 0, fmt.Errorf("unhashable type: table")
}

// Len returns the number of rows.
func (t *Table) Len() int { return t.NumRows() }

// Index returns row i as a dict of column name to value.
func (t *Table) Index(i int) starlark.Value {
	return t.rowDict(i)
}

// Iterate yields one dict per row.
func (t *Table) Iterate() starlark.Iterator {
	return &tableIterator{t: t}
}

type tableIterator struct {
	t *Table
	i int
}

func (it *tableIterator) Next(p *starlark.Value) bool {
	if it.i >= it.t.NumRows() {
		return false
	}
	*p = it.t.rowDict(it.i)
	it.i++
	return true
}

func (it *tableIterator) Done() {}

// Attr returns table attributes and methods.
func (t *Table) Attr(name string) (starlark.Value, error) {
	switch name {
	case "columns":
		cols := make([]starlark.Value, len(t.Columns))
		for i, c := range t.Columns {
			cols[i] = starlark.String(c)
		}
		return starlark.NewList(cols), nil

	case "num_rows":
		return starlark.MakeInt(t.NumRows()), nil

	case "rows":
		rows := make([]starlark.Value, t.NumRows())
		for i := range t.Rows {
			rows[i] = t.rowDict(i)
		}
		return starlark.NewList(rows), nil

	case "head":
		return starlark.NewBuiltin("head", t.headMethod), nil

	case "column":
		return starlark.NewBuiltin("column", t.columnMethod), nil
	}
	return nil, nil // no such attr; starlark reports the error
}

// AttrNames lists the available attributes, sorted.
func (t *Table) AttrNames() []string {
	return []string{"column", "columns", "head", "num_rows", "rows"}
}

func (t *Table) headMethod(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	n := 5
	if err := starlark.UnpackArgs(b.Name(), args, kwargs, "n?", &n); err != nil {
		return nil, err
	}
	return t.Head(n), nil
}

func (t *Table) columnMethod(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var name string
	if err := starlark.UnpackArgs(b.Name(), args, kwargs, "name", &name); err != nil {
		return nil, err
	}
	values, err := t.Column(name)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", b.Name(), err)
	}
	list := make([]starlark.Value, len(values))
	for i, v := range values {
		list[i] = toStarlarkScalar(v)
	}
	return starlark.NewList(list), nil
}

// rowDict converts row i into a Starlark dict keyed by column name.
func (t *Table) rowDict(i int) *starlark.Dict {
	d := starlark.NewDict(len(t.Columns))
	for c, col := range t.Columns {
		_ = d.SetKey(starlark.String(col), toStarlarkScalar(t.Rows[i][c]))
	}
	return d
}

// toStarlarkScalar converts a scanned database value to a Starlark value.
// Unknown driver types fall back to their string representation.
func toStarlarkScalar(v any) starlark.Value {
	switch val := v.(type) {
	case nil:
		return starlark.None
	case string:
		return starlark.String(val)
	case []byte:
		return starlark.String(string(val))
	case bool:
		return starlark.Bool(val)
	case int:
		return starlark.MakeInt(val)
	case int32:
		return starlark.MakeInt64(int64(val))
	case int64:
		return starlark.MakeInt64(val)
	case float32:
		return starlark.Float(float64(val))
	case float64:
		return starlark.Float(val)
	default:
		s := fmt.Sprintf("%v", val)
		return starlark.String(strings.TrimSpace(s))
	}
}
