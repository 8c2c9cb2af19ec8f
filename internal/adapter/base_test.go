package adapter

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBaseClose(t *testing.T) {
	tests := []struct {
		name    string
		setupDB bool
	}{
		{name: "close with nil DB", setupDB: false},
		{name: "close with open DB", setupDB: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			base := &Base{}

			if tt.setupDB {
				db, mock, err := sqlmock.New()
				require.NoError(t, err)
				mock.ExpectClose()
				base.DB = db
			}

			assert.NoError(t, base.Close())
		})
	}
}

func TestBaseExec(t *testing.T) {
	t.Run("not connected", func(t *testing.T) {
		base := &Base{}
		_, err := base.Exec(context.Background(), "DELETE FROM t")
		assert.ErrorContains(t, err, "not established")
	})

	t.Run("rows affected", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer func() { _ = db.Close() }()

		mock.ExpectExec("DELETE FROM t").WillReturnResult(sqlmock.NewResult(0, 3))

		base := &Base{DB: db}
		affected, err := base.Exec(context.Background(), "DELETE FROM t")
		require.NoError(t, err)
		assert.Equal(t, int64(3), affected)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("exec error", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer func() { _ = db.Close() }()

		mock.ExpectExec("DROP TABLE").WillReturnError(assert.AnError)

		base := &Base{DB: db}
		_, err = base.Exec(context.Background(), "DROP TABLE t")
		assert.ErrorContains(t, err, "failed to execute SQL")
	})
}

func TestBaseQuery(t *testing.T) {
	t.Run("not connected", func(t *testing.T) {
		base := &Base{}
		_, err := base.Query(context.Background(), "SELECT 1")
		assert.ErrorContains(t, err, "not established")
	})

	t.Run("query ok", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer func() { _ = db.Close() }()

		mock.ExpectQuery("SELECT 1").WillReturnRows(sqlmock.NewRows([]string{"n"}).AddRow(1))

		base := &Base{DB: db}
		rows, err := base.Query(context.Background(), "SELECT 1")
		require.NoError(t, err)
		defer func() { _ = rows.Close() }()

		assert.True(t, rows.Next())
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestBaseIsConnected(t *testing.T) {
	base := &Base{}
	assert.False(t, base.IsConnected())

	db, _, err := sqlmock.New()
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	base.DB = db
	assert.True(t, base.IsConnected())
}

func TestParseQualifiedName(t *testing.T) {
	tests := []struct {
		input      string
		wantSchema string
		wantName   string
	}{
		{"users", "main", "users"},
		{"analytics.users", "analytics", "users"},
	}

	for _, tt := range tests {
		schema, name := parseQualifiedName(tt.input, "main")
		assert.Equal(t, tt.wantSchema, schema)
		assert.Equal(t, tt.wantName, name)
	}
}
