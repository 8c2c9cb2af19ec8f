package connector

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/datapyn/datapyn/internal/adapter"
)

// openTestConnector connects to an in-memory SQLite database with sample data.
func openTestConnector(t *testing.T) *Connector {
	t.Helper()

	ctx := context.Background()
	c, err := Connect(ctx, adapter.Config{Type: "sqlite", Path: ":memory:"}, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })

	_, err = c.ExecuteStatement(ctx, `CREATE TABLE sales (product TEXT, amount REAL)`)
	require.NoError(t, err)
	_, err = c.ExecuteStatement(ctx, `INSERT INTO sales VALUES ('widget', 10.5), ('gadget', 20.0)`)
	require.NoError(t, err)

	return c
}

func TestConnectUnknownType(t *testing.T) {
	_, err := Connect(context.Background(), adapter.Config{Type: "mongodb"}, nil)
	require.Error(t, err)

	var unknownErr *adapter.UnknownAdapterError
	assert.ErrorAs(t, err, &unknownErr)
}

func TestExecuteQuery(t *testing.T) {
	c := openTestConnector(t)

	tbl, err := c.ExecuteQuery(context.Background(), "SELECT product, amount FROM sales ORDER BY product")
	require.NoError(t, err)

	assert.Equal(t, []string{"product", "amount"}, tbl.Columns)
	require.Equal(t, 2, tbl.NumRows())
	assert.Equal(t, "gadget", tbl.Rows[0][0])
}

func TestExecuteQueryError(t *testing.T) {
	c := openTestConnector(t)

	_, err := c.ExecuteQuery(context.Background(), "SELECT * FROM nothere")
	assert.Error(t, err)
}

func TestExecuteStatementRowsAffected(t *testing.T) {
	c := openTestConnector(t)

	affected, err := c.ExecuteStatement(context.Background(), "DELETE FROM sales")
	require.NoError(t, err)
	assert.Equal(t, int64(2), affected)
}

func TestNotConnected(t *testing.T) {
	c := New(nil, nil)
	ctx := context.Background()

	assert.False(t, c.IsConnected())
	assert.Equal(t, "", c.DialectName())
	assert.NoError(t, c.Close())

	_, err := c.ExecuteQuery(ctx, "SELECT 1")
	assert.ErrorContains(t, err, "no active database connection")

	_, err = c.ExecuteStatement(ctx, "DELETE FROM t")
	assert.ErrorContains(t, err, "no active database connection")

	_, err = c.ListTables(ctx)
	assert.ErrorContains(t, err, "no active database connection")
}

func TestListTablesAndMetadata(t *testing.T) {
	c := openTestConnector(t)
	ctx := context.Background()

	names, err := c.ListTables(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"sales"}, names)

	meta, err := c.TableMetadata(ctx, "sales")
	require.NoError(t, err)
	assert.Equal(t, int64(2), meta.RowCount)

	assert.Equal(t, "sqlite", c.DialectName())
}
