package adapter

import (
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuiltinAdaptersRegistered(t *testing.T) {
	assert.True(t, IsRegistered("duckdb"), "duckdb adapter should be auto-registered")
	assert.True(t, IsRegistered("sqlite"), "sqlite adapter should be auto-registered")
	assert.True(t, IsRegistered("postgres"), "postgres adapter should be auto-registered")
	assert.False(t, IsRegistered("oracle"))
}

func TestNewAdapter(t *testing.T) {
	tests := []struct {
		name        string
		cfg         Config
		expectErr   bool
		wantDialect string
	}{
		{name: "duckdb", cfg: Config{Type: "duckdb"}, wantDialect: "duckdb"},
		{name: "sqlite", cfg: Config{Type: "sqlite"}, wantDialect: "sqlite"},
		{name: "postgres", cfg: Config{Type: "postgres"}, wantDialect: "postgres"},
		{name: "empty type", cfg: Config{}, expectErr: true},
		{name: "unknown type", cfg: Config{Type: "mongodb"}, expectErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a, err := New(tt.cfg, nil)
			if tt.expectErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantDialect, a.DialectName())
		})
	}
}

func TestUnknownAdapterErrorListsAvailable(t *testing.T) {
	_, err := New(Config{Type: "mongodb"}, slog.New(slog.DiscardHandler))
	require.Error(t, err)

	var unknownErr *UnknownAdapterError
	require.ErrorAs(t, err, &unknownErr)
	assert.Equal(t, "mongodb", unknownErr.Type)
	assert.Contains(t, unknownErr.Available, "duckdb")
	assert.Contains(t, unknownErr.Available, "sqlite")
}

func TestList(t *testing.T) {
	names := List()
	assert.Contains(t, names, "duckdb")
	assert.Contains(t, names, "postgres")
	assert.Contains(t, names, "sqlite")
	assert.IsIncreasing(t, names)
}
