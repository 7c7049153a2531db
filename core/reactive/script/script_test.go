package script_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/konall/korhah/core/reactive/script"
)

func TestRunComputesFromInputs(t *testing.T) {
	prog, err := script.Compile("sum.js", "recipe", `
		function recipe(inputs) {
			return inputs.a + inputs.b;
		}
	`)
	require.NoError(t, err)

	out, err := script.Run[float64](prog, map[string]any{"a": 2, "b": 3})
	require.NoError(t, err)
	require.Equal(t, 5.0, out)
}

func TestRunIsStatelessAcrossInvocations(t *testing.T) {
	prog, err := script.Compile("counter.js", "recipe", `
		var calls = 0;
		function recipe(inputs) {
			calls += 1;
			return calls;
		}
	`)
	require.NoError(t, err)

	first, err := script.Run[int64](prog, nil)
	require.NoError(t, err)
	second, err := script.Run[int64](prog, nil)
	require.NoError(t, err)

	require.Equal(t, int64(1), first)
	require.Equal(t, int64(1), second, "each Run gets a fresh runtime, so module-level state never survives a call")
}

func TestCompileRejectsSyntaxErrors(t *testing.T) {
	_, err := script.Compile("broken.js", "recipe", `function recipe( {`)
	require.Error(t, err)
}

func TestRunRejectsMissingEntry(t *testing.T) {
	prog, err := script.Compile("empty.js", "recipe", `var x = 1;`)
	require.NoError(t, err)

	_, err = script.Run[int64](prog, nil)
	require.Error(t, err)
}
