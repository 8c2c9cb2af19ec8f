package commands

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCrosslangComplete(t *testing.T) {
	tests := []struct {
		name     string
		source   string
		complete bool
	}{
		{"plain script", "x = 1", true},
		{"closed fragment", "x = {{ SELECT 1 }}", true},
		{"open fragment", "x = {{ SELECT 1", false},
		{"multiline still open", "x = {{\n  SELECT *", false},
		{"two fragments one open", "a = {{ SELECT 1 }}\nb = {{ SELECT", false},
		{"empty", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.complete, crosslangComplete(tt.source))
		})
	}
}

// Piped stdin executes as one block without readline.
func TestReplBatchMode(t *testing.T) {
	cmd := NewReplCommand()
	cmd.SetIn(bytes.NewBufferString(`total = {{ SELECT 2 AS n }}
print("rows: %d" % len(total))
len(total) * 42`))

	out, _, err := execCommand(t, cmd, testConfig())
	require.NoError(t, err)
	assert.Contains(t, out, "rows: 1")
	assert.Contains(t, out, "42")
}

func TestReplBatchModeFailure(t *testing.T) {
	cmd := NewReplCommand()
	cmd.SetIn(bytes.NewBufferString(`fail("nope")`))

	_, errOut, err := execCommand(t, cmd, testConfig())
	require.Error(t, err)
	assert.Contains(t, errOut, "nope")
}
