package reactive_test

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/konall/korhah/core/reactive"
	"github.com/konall/korhah/errs"
)

func identity[T any](v T) T { return v }

func TestCounterCascade(t *testing.T) {
	sys := reactive.NewSystem()

	a, err := reactive.Create(sys, func(_ *reactive.System, _ int, _ bool) int { return 0 })
	require.NoError(t, err)

	b, err := reactive.Create(sys, func(s *reactive.System, _ int, _ bool) int {
		v, ok, err := reactive.Read(sys, a, identity[int])
		require.NoError(t, err)
		require.True(t, ok)
		return v + 1
	})
	require.NoError(t, err)

	v, ok, err := reactive.Read(sys, b, identity[int])
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, 1, v)

	_, ok, err = reactive.Update(sys, a, func(v int) (int, int) { return v + 1, v + 1 })
	require.NoError(t, err)
	require.True(t, ok)

	v, ok, err = reactive.Read(sys, b, identity[int])
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, 2, v)
}

func TestCascadeRecomputeSeesPreviousValue(t *testing.T) {
	sys := reactive.NewSystem()

	a, err := reactive.Create(sys, func(_ *reactive.System, _ int, _ bool) int { return 1 })
	require.NoError(t, err)

	// accumulator adds each new value of a onto whatever it previously held,
	// which is only expressible if its recipe is handed its own prior value
	// on recomputation.
	accumulator, err := reactive.Create(sys, func(s *reactive.System, prev int, ok bool) int {
		v, _, _ := reactive.Read(s, a, identity[int])
		if !ok {
			return v
		}
		return prev + v
	})
	require.NoError(t, err)

	got, ok, err := reactive.Read(sys, accumulator, identity[int])
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, 1, got)

	_, ok, err = reactive.Update(sys, a, func(v int) (int, int) { return v + 1, v + 1 })
	require.NoError(t, err)
	require.True(t, ok)

	got, ok, err = reactive.Read(sys, accumulator, identity[int])
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, 3, got, "recomputation should have added the new value of a (2) onto the accumulator's previous value (1)")
}

func TestDanglingDependentGuard(t *testing.T) {
	sys := reactive.NewSystem()

	a, err := reactive.Create(sys, func(_ *reactive.System, _ int, _ bool) int { return 0 })
	require.NoError(t, err)
	b, err := reactive.Create(sys, func(s *reactive.System, _ int, _ bool) int {
		v, _, _ := reactive.Read(sys, a, identity[int])
		return v + 1
	})
	require.NoError(t, err)

	_, ok, err := reactive.Delete(sys, a)
	require.False(t, ok)
	require.Error(t, err)

	val, ok, err := reactive.Delete(sys, b)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, 1, val)

	val, ok, err = reactive.Delete(sys, a)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, 0, val)

	_, ok, err = reactive.Delete(sys, a)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestCancellingListenerRejectsCreate(t *testing.T) {
	sys := reactive.NewSystem()

	reactive.Listen[reactive.Creating[int]](sys, nil, func(_ *reactive.System, _ *reactive.Creating[int], vote *reactive.Vote, _ *bool) {
		*vote = reactive.VoteCancel
	})

	_, err := reactive.Create(sys, func(_ *reactive.System, _ int, _ bool) int { return 0 })
	require.Error(t, err)
	require.True(t, errs.IsCancelled(err))
}

func TestAbortPath(t *testing.T) {
	type customEvent struct{ n int }

	sys := reactive.NewSystem()
	fired := 0
	reactive.Listen[customEvent](sys, nil, func(_ *reactive.System, e *customEvent, _ *reactive.Vote, abort *bool) {
		fired++
		if e.n == 2 {
			*abort = true
		}
	})

	_, aborted := reactive.Emit(sys, nil, customEvent{n: 1})
	require.False(t, aborted)

	_, aborted = reactive.Emit(sys, nil, customEvent{n: 2})
	require.True(t, aborted)
}

func TestListenerLocality(t *testing.T) {
	type customEvent struct{}

	sys := reactive.NewSystem()
	v, err := reactive.Create(sys, func(_ *reactive.System, _ int, _ bool) int { return 0 })
	require.NoError(t, err)
	untyped := v.Untyped()

	var globalFired, scopedFired int
	reactive.Listen[customEvent](sys, nil, func(*reactive.System, *customEvent, *reactive.Vote, *bool) {
		globalFired++
	})
	reactive.Listen[customEvent](sys, &untyped, func(*reactive.System, *customEvent, *reactive.Vote, *bool) {
		scopedFired++
	})

	reactive.Emit(sys, &untyped, customEvent{})
	require.Equal(t, 0, globalFired)
	require.Equal(t, 1, scopedFired)

	reactive.Emit[customEvent](sys, nil, customEvent{})
	require.Equal(t, 1, globalFired)
	require.Equal(t, 1, scopedFired)
}

func TestSilenceStopsHandlerFromFiring(t *testing.T) {
	type customEvent struct{}

	sys := reactive.NewSystem()
	fired := 0
	l, _ := reactive.Listen[customEvent](sys, nil, func(*reactive.System, *customEvent, *reactive.Vote, *bool) {
		fired++
	})

	reactive.Emit(sys, (*reactive.VariableID)(nil), customEvent{})
	require.Equal(t, 1, fired)

	ok := reactive.Silence(sys, l)
	require.True(t, ok)

	reactive.Emit(sys, (*reactive.VariableID)(nil), customEvent{})
	require.Equal(t, 1, fired)
}

func TestCleanupOnDeleteRemovesScopedListeners(t *testing.T) {
	type customEvent struct{}

	sys := reactive.NewSystem()
	v, err := reactive.Create(sys, func(_ *reactive.System, _ int, _ bool) int { return 0 })
	require.NoError(t, err)
	untyped := v.Untyped()

	fired := 0
	reactive.Listen[customEvent](sys, &untyped, func(*reactive.System, *customEvent, *reactive.Vote, *bool) {
		fired++
	})

	_, ok, err := reactive.Delete(sys, v)
	require.NoError(t, err)
	require.True(t, ok)

	v2, err := reactive.Create(sys, func(_ *reactive.System, _ int, _ bool) int { return 1 })
	require.NoError(t, err)
	require.Equal(t, v.ID(), v2.ID(), "id pool should have recycled the freed id for this scenario to be meaningful")

	untyped2 := v2.Untyped()
	reactive.Emit(sys, &untyped2, customEvent{})
	require.Equal(t, 0, fired)
}

func TestReadSoftMissOnUnknownVariable(t *testing.T) {
	sys := reactive.NewSystem()
	v, err := reactive.Create(sys, func(_ *reactive.System, _ int, _ bool) int { return 0 })
	require.NoError(t, err)
	_, _, err = reactive.Delete(sys, v)
	require.NoError(t, err)

	_, ok, err := reactive.Read(sys, v, identity[int])
	require.NoError(t, err)
	require.False(t, ok)
}

func TestListenSoftMissOnDeletedTarget(t *testing.T) {
	type customEvent struct{}

	sys := reactive.NewSystem()
	v, err := reactive.Create(sys, func(_ *reactive.System, _ int, _ bool) int { return 0 })
	require.NoError(t, err)
	untyped := v.Untyped()

	_, ok, err := reactive.Delete(sys, v)
	require.NoError(t, err)
	require.True(t, ok)

	_, listened := reactive.Listen[customEvent](sys, &untyped, func(*reactive.System, *customEvent, *reactive.Vote, *bool) {
		t.Fatal("handler should never be registered against a deleted target")
	})
	require.False(t, listened)
}

func TestListenerLocalityHasNoBubbling(t *testing.T) {
	type customEvent struct{}

	sys := reactive.NewSystem()
	v, err := reactive.Create(sys, func(_ *reactive.System, _ int, _ bool) int { return 0 })
	require.NoError(t, err)
	untyped := v.Untyped()

	var globalFired, scopedFired int
	reactive.Listen[customEvent](sys, nil, func(*reactive.System, *customEvent, *reactive.Vote, *bool) {
		globalFired++
	})
	reactive.Listen[customEvent](sys, &untyped, func(*reactive.System, *customEvent, *reactive.Vote, *bool) {
		scopedFired++
	})

	reactive.Emit(sys, &untyped, customEvent{})
	require.Equal(t, 0, globalFired, "a variable-targeted emission must not also fire global-scope listeners")
	require.Equal(t, 1, scopedFired)

	reactive.Emit[customEvent](sys, nil, customEvent{})
	require.Equal(t, 1, globalFired)
	require.Equal(t, 1, scopedFired, "a global emission must not also fire variable-scoped listeners")
}

func TestCorrelationIDStampedDuringDispatchOnly(t *testing.T) {
	type customEvent struct{}

	sys := reactive.NewSystem()
	require.Equal(t, uuid.Nil, sys.CorrelationID())

	var seen uuid.UUID
	reactive.Listen[customEvent](sys, nil, func(s *reactive.System, _ *customEvent, _ *reactive.Vote, _ *bool) {
		seen = s.CorrelationID()
	})

	reactive.Emit(sys, nil, customEvent{})
	require.NotEqual(t, uuid.Nil, seen, "a handler invoked mid-dispatch should observe a stamped correlation id")
}

type recordingLogger struct {
	errors []string
}

func (l *recordingLogger) Debug(string, ...any) {}
func (l *recordingLogger) Error(msg string, _ ...any) {
	l.errors = append(l.errors, msg)
}

func TestLoggerObservesCancelledCreate(t *testing.T) {
	logger := &recordingLogger{}
	sys := reactive.NewSystem(reactive.WithLogger(logger))

	reactive.Listen[reactive.Creating[int]](sys, nil, func(_ *reactive.System, _ *reactive.Creating[int], vote *reactive.Vote, _ *bool) {
		*vote = reactive.VoteCancel
	})

	_, err := reactive.Create(sys, func(_ *reactive.System, _ int, _ bool) int { return 0 })
	require.Error(t, err)
	require.Contains(t, logger.errors, "create cancelled")
}
