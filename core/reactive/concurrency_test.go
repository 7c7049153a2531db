package reactive_test

import (
	"testing"

	"github.com/sourcegraph/conc/pool"
	"github.com/stretchr/testify/require"

	"github.com/konall/korhah/core/reactive"
)

// TestShareableModeConcurrentUpdates drives many goroutines updating
// independent variables on a single Shareable-mode System, verifying the
// guard serializes access without lost updates or panics.
func TestShareableModeConcurrentUpdates(t *testing.T) {
	sys := reactive.NewSystem(reactive.WithMode(reactive.ModeShareable))

	const n = 64
	vars := make([]reactive.Variable[int], n)
	for i := range vars {
		v, err := reactive.Create(sys, func(_ *reactive.System, _ int, _ bool) int { return 0 })
		require.NoError(t, err)
		vars[i] = v
	}

	p := pool.New()
	for i := range vars {
		v := vars[i]
		for j := 0; j < 100; j++ {
			p.Go(func() {
				_, ok, err := reactive.Update(sys, v, func(c int) (int, struct{}) { return c + 1, struct{}{} })
				require.True(t, ok)
				require.NoError(t, err)
			})
		}
	}
	p.Wait()

	for _, v := range vars {
		val, ok, err := reactive.Read(sys, v, func(c int) int { return c })
		require.NoError(t, err)
		require.True(t, ok)
		require.Equal(t, 100, val)
	}
}

// TestSingleThreadModeAllowsReentrantHandlers confirms the guard-release
// discipline around user code: a handler calling back into the system
// while single-thread mode is active must not deadlock or panic, since the
// guard is always released before recipes, callbacks, and handlers run.
func TestSingleThreadModeAllowsReentrantHandlers(t *testing.T) {
	sys := reactive.NewSystem(reactive.WithMode(reactive.ModeSingleThread))

	v, err := reactive.Create(sys, func(_ *reactive.System, _ int, _ bool) int { return 0 })
	require.NoError(t, err)
	untyped := v.Untyped()

	reactive.Listen[reactive.Updating](sys, &untyped, func(*reactive.System, *reactive.Updating, *reactive.Vote, *bool) {
		_, ok, err := reactive.Read(sys, v, func(c int) int { return c })
		require.NoError(t, err)
		require.True(t, ok)
	})

	_, ok, err := reactive.Update(sys, v, func(c int) (int, struct{}) { return c + 1, struct{}{} })
	require.NoError(t, err)
	require.True(t, ok)
}
