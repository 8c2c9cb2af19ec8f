package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/datapyn/datapyn/internal/adapter"
)

// chdirTemp runs the test from an empty directory so no stray
// datapyn.yaml in the working tree leaks into the load.
func chdirTemp(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	oldWd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(oldWd) })
	return dir
}

func writeConfig(t *testing.T, dir, content string) string {
	t.Helper()
	path := filepath.Join(dir, ConfigFileName)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadDefaults(t *testing.T) {
	chdirTemp(t)

	cfg, err := Load("", nil)
	require.NoError(t, err)

	assert.Equal(t, DefaultLibsDir, cfg.LibsDir)
	assert.Equal(t, DefaultHistoryPath, cfg.HistoryPath)
	assert.Equal(t, DefaultOutput, cfg.Output)
	assert.False(t, cfg.Verbose)
	assert.Nil(t, cfg.Connection)
}

func TestLoadFromFile(t *testing.T) {
	dir := chdirTemp(t)
	writeConfig(t, dir, `
connection:
  type: duckdb
  path: warehouse.db
  schema: main
connections:
  prod:
    type: postgres
    host: db.example.com
    port: 5433
    database: analytics
    user: datapyn
libs_dir: helpers
output: json
`)

	cfg, err := Load("", nil)
	require.NoError(t, err)

	require.NotNil(t, cfg.Connection)
	assert.Equal(t, "duckdb", cfg.Connection.Type)
	assert.Equal(t, "warehouse.db", cfg.Connection.Path)
	assert.Equal(t, "helpers", cfg.LibsDir)
	assert.Equal(t, "json", cfg.Output)

	prod, ok := cfg.Connections["prod"]
	require.True(t, ok)
	assert.Equal(t, "postgres", prod.Type)
	assert.Equal(t, 5433, prod.Port)
}

func TestLoadExplicitFileMissing(t *testing.T) {
	chdirTemp(t)
	_, err := Load("nope.yaml", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "nope.yaml")
}

func TestEnvOverridesFile(t *testing.T) {
	dir := chdirTemp(t)
	writeConfig(t, dir, "output: json\n")
	t.Setenv("DATAPYN_OUTPUT", "csv")

	cfg, err := Load("", nil)
	require.NoError(t, err)
	assert.Equal(t, "csv", cfg.Output)
}

func TestEnvConfiguresConnection(t *testing.T) {
	chdirTemp(t)
	t.Setenv("DATAPYN_CONNECTION_TYPE", "sqlite")
	t.Setenv("DATAPYN_CONNECTION_PATH", ":memory:")

	cfg, err := Load("", nil)
	require.NoError(t, err)
	require.NotNil(t, cfg.Connection)
	assert.Equal(t, "sqlite", cfg.Connection.Type)
	assert.Equal(t, ":memory:", cfg.Connection.Path)
}

func TestFlagsOverrideEverything(t *testing.T) {
	dir := chdirTemp(t)
	writeConfig(t, dir, "output: json\n")
	t.Setenv("DATAPYN_OUTPUT", "csv")

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.String("output", DefaultOutput, "")
	flags.String("db-type", "", "")
	flags.String("db-path", "", "")
	require.NoError(t, flags.Parse([]string{"--output", "md", "--db-type", "duckdb", "--db-path", ":memory:"}))

	cfg, err := Load("", flags)
	require.NoError(t, err)
	assert.Equal(t, "md", cfg.Output)
	require.NotNil(t, cfg.Connection)
	assert.Equal(t, "duckdb", cfg.Connection.Type)
	assert.Equal(t, ":memory:", cfg.Connection.Path)
}

func TestUnchangedFlagsIgnored(t *testing.T) {
	dir := chdirTemp(t)
	writeConfig(t, dir, "output: json\n")

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.String("output", DefaultOutput, "")
	require.NoError(t, flags.Parse(nil))

	cfg, err := Load("", flags)
	require.NoError(t, err)
	assert.Equal(t, "json", cfg.Output, "unset flag must not shadow config file")
}

func TestCredentialExpansion(t *testing.T) {
	dir := chdirTemp(t)
	writeConfig(t, dir, `
connection:
  type: postgres
  host: db.example.com
  database: analytics
  user: datapyn
  password: ${TEST_DB_PASSWORD}
`)
	t.Setenv("TEST_DB_PASSWORD", "s3cret")

	cfg, err := Load("", nil)
	require.NoError(t, err)
	assert.Equal(t, "s3cret", cfg.Connection.Password)
}

func TestUnsetCredentialLeftVerbatim(t *testing.T) {
	dir := chdirTemp(t)
	writeConfig(t, dir, `
connection:
  type: sqlite
  path: ${TEST_UNSET_DATAPYN_PATH}
`)

	cfg, err := Load("", nil)
	require.NoError(t, err)
	assert.Equal(t, "${TEST_UNSET_DATAPYN_PATH}", cfg.Connection.Path)
}

func TestValidateRejectsUnknownType(t *testing.T) {
	dir := chdirTemp(t)
	writeConfig(t, dir, "connection:\n  type: mongodb\n")

	_, err := Load("", nil)
	require.Error(t, err)

	var unknownErr *adapter.UnknownAdapterError
	assert.ErrorAs(t, err, &unknownErr)
}

func TestValidateRejectsUnknownProfile(t *testing.T) {
	dir := chdirTemp(t)
	writeConfig(t, dir, `
profile: staging
connections:
  prod:
    type: duckdb
`)

	_, err := Load("", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "staging")
}

func TestActiveConnection(t *testing.T) {
	cfg := &Config{
		Connection: &ConnectionConfig{Type: "duckdb"},
		Connections: map[string]*ConnectionConfig{
			"prod": {Type: "postgres"},
		},
	}

	conn, err := cfg.ActiveConnection()
	require.NoError(t, err)
	assert.Equal(t, "duckdb", conn.Type)

	cfg.Profile = "prod"
	conn, err = cfg.ActiveConnection()
	require.NoError(t, err)
	assert.Equal(t, "postgres", conn.Type)

	cfg.Profile = "missing"
	_, err = cfg.ActiveConnection()
	require.Error(t, err)
}

func TestToAdapterConfig(t *testing.T) {
	conn := &ConnectionConfig{
		Type:     "Postgres",
		Host:     "db.example.com",
		Port:     5433,
		Database: "analytics",
		User:     "datapyn",
		Password: "pw",
		Schema:   "public",
		Options:  map[string]string{"sslmode": "require"},
	}

	cfg := conn.ToAdapterConfig()
	assert.Equal(t, "postgres", cfg.Type)
	assert.Equal(t, "datapyn", cfg.Username)
	assert.Equal(t, "require", cfg.Options["sslmode"])
}
