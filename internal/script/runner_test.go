package script

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.starlark.net/starlark"
)

func runChunk(t *testing.T, globals starlark.StringDict, source string) *Outcome {
	t.Helper()
	out, err := NewRunner().Run(context.Background(), "test.dpy", source, globals)
	require.NoError(t, err)
	return out
}

func TestRunTrailingExpression(t *testing.T) {
	globals := starlark.StringDict{}
	out := runChunk(t, globals, "x = 2\nx + 3")

	require.NotNil(t, out.Value)
	assert.Equal(t, "5", out.Value.String())
	assert.Empty(t, out.Stdout)
}

func TestRunTrailingAssignmentHasNoValue(t *testing.T) {
	globals := starlark.StringDict{}
	out := runChunk(t, globals, "x = 2\ny = x * 2")

	assert.Nil(t, out.Value)
	assert.Equal(t, "4", globals["y"].String())
}

func TestRunPrintCapture(t *testing.T) {
	globals := starlark.StringDict{}
	out := runChunk(t, globals, `print("hello")
print("world")`)

	assert.Equal(t, "hello\nworld\n", out.Stdout)
	assert.Equal(t, starlark.None, out.Value, "print returns None")
}

func TestRunTrailingPrintCallEvaluatesToNone(t *testing.T) {
	globals := starlark.StringDict{}
	out := runChunk(t, globals, `print("only")`)

	// The trailing statement is an expression (a call), but its value is None.
	assert.Equal(t, starlark.None, out.Value)
	assert.Equal(t, "only\n", out.Stdout)
}

func TestRunPersistsGlobalsAcrossChunks(t *testing.T) {
	globals := starlark.StringDict{}
	runner := NewRunner()
	ctx := context.Background()

	_, err := runner.Run(ctx, "a", "total = 1", globals)
	require.NoError(t, err)

	// REPL semantics: a later chunk may read and reassign a global.
	out, err := runner.Run(ctx, "b", "total = total + 10\ntotal", globals)
	require.NoError(t, err)
	assert.Equal(t, "11", out.Value.String())
}

func TestRunParseError(t *testing.T) {
	_, err := NewRunner().Run(context.Background(), "bad.dpy", "def (", starlark.StringDict{})
	assert.Error(t, err)
}

func TestRunRuntimeErrorKeepsStdout(t *testing.T) {
	globals := starlark.StringDict{}
	out, err := NewRunner().Run(context.Background(), "boom.dpy", `print("before")
fail("boom")`, globals)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "boom")
	assert.Equal(t, "before\n", out.Stdout)
}

func TestRunRetainsEarlierBindingsOnError(t *testing.T) {
	globals := starlark.StringDict{}
	_, err := NewRunner().Run(context.Background(), "partial.dpy", `kept = 42
undefined_name`, globals)

	require.Error(t, err)
	// Bindings made before the failing statement survive.
	require.Contains(t, globals, "kept")
	assert.Equal(t, "42", globals["kept"].String())
}

func TestRunTopLevelControlFlow(t *testing.T) {
	globals := starlark.StringDict{}
	out := runChunk(t, globals, `total = 0
for i in range(5):
    total += i
total`)

	assert.Equal(t, "10", out.Value.String())
}
