package reactive

import (
	"reflect"

	"github.com/konall/korhah/errs"
)

// Create allocates a new variable, computing its initial value by invoking
// recipe. recipe is handed the variable's previous value each time it is
// re-run: on this first invocation there is none, so prev is T's zero
// value and ok is false. The recipe runs outside the System's lock, so it
// may freely call Read on other variables (calling Create from inside a
// recipe is not supported, since it overwrites the single read-tracking
// slot); any variable it
// reads is recorded as a dependency, and the recipe is retained so the new
// variable can be recomputed when a direct dependency changes — on a
// later recomputation prev/ok carry the value the recipe is about to
// replace, moved out of the store for the duration of the call.
//
// Creation can be rejected by a Creating listener casting a strict
// majority of Cancel votes, or by any listener setting the abort flag; in
// either case the reserved ID is released back to the pool and no
// variable is created.
func Create[T any](sys *System, recipe func(sys *System, prev T, ok bool) T) (Variable[T], error) {
	sys.mu.Lock()
	id := sys.ids.allocate()
	sys.trackingID = &id
	sys.mu.Unlock()

	var zero T
	value := recipe(sys, zero, false)

	sys.mu.Lock()
	sys.trackingID = nil
	sys.mu.Unlock()

	creating := Creating[T]{Value: value}
	votes, aborted := dispatchEvent(sys, reflect.TypeFor[Creating[T]](), globalTarget(), &creating)

	if aborted {
		sys.releaseID(id)
		sys.cfg.logger.Error("create aborted", "id", id)
		return Variable[T]{}, errs.New("reactive.Create", errs.CodeAborted, errs.WithMessage("creation aborted by a listener"))
	}
	if votes.cancelled() {
		sys.releaseID(id)
		sys.cfg.logger.Error("create cancelled", "id", id, "votes", votes)
		return Variable[T]{}, errs.New("reactive.Create", errs.CodeCancelled, errs.WithMessage("creation cancelled by listener vote"))
	}

	wrapped := recipe
	sys.mu.Lock()
	sys.values.insert(id, creating.Value)
	sys.recipes.set(id, func(s *System) any {
		s.mu.Lock()
		raw, existed := s.values.take(id)
		s.mu.Unlock()

		if !existed {
			var zero T
			return wrapped(s, zero, false)
		}
		prev, _ := raw.(T)
		return wrapped(s, prev, true)
	})
	sys.mu.Unlock()

	v := Variable[T]{id: id}
	created := Created[T]{Source: v}
	dispatchEvent(sys, reflect.TypeFor[Created[T]](), globalTarget(), &created)

	sys.mu.Lock()
	sys.cfg.metrics.IncCounter("reactive_creates_total", 1, sys.metricLabels(nil))
	sys.cfg.metrics.SetGauge("reactive_live_variables", float64(len(sys.values.values)), sys.metricLabels(nil))
	sys.mu.Unlock()

	return v, nil
}

func (s *System) releaseID(id ID) {
	s.mu.Lock()
	s.ids.release(id)
	s.mu.Unlock()
}

// Read projects a variable's current value through f, returning f's
// result. ok is false, with a nil error, when the variable does not exist
// (including when its ID has been recycled for a different type); a
// non-nil error means a Reading listener cancelled or aborted the read.
func Read[T, S any](sys *System, v Variable[T], f func(T) S) (S, bool, error) {
	var zero S

	sys.mu.Lock()
	_, ok := typed[T](sys.values, v.id)
	sys.mu.Unlock()
	if !ok {
		return zero, false, nil
	}

	reading := Reading{}
	votes, aborted := dispatchEvent(sys, reflect.TypeFor[Reading](), variableTarget(v.id), &reading)
	if aborted {
		sys.cfg.logger.Error("read aborted", "id", v.id)
		return zero, false, errs.New("reactive.Read", errs.CodeAborted, errs.WithMessage("read aborted by a listener"))
	}
	if votes.cancelled() {
		sys.cfg.logger.Error("read cancelled", "id", v.id, "votes", votes)
		return zero, false, errs.New("reactive.Read", errs.CodeCancelled, errs.WithMessage("read cancelled by listener vote"))
	}

	sys.mu.Lock()
	value, ok := typed[T](sys.values, v.id)
	if !ok {
		sys.mu.Unlock()
		return zero, false, nil
	}
	sys.recordRead(v.id)
	sys.mu.Unlock()

	result := f(value)

	read := Read{}
	dispatchEvent(sys, reflect.TypeFor[Read](), variableTarget(v.id), &read)

	sys.mu.Lock()
	sys.cfg.metrics.IncCounter("reactive_reads_total", 1, sys.metricLabels(nil))
	sys.mu.Unlock()

	return result, true, nil
}

// Update replaces a variable's value with the result of applying f to its
// current value, returning f's second result alongside success. Like
// Read, ok is false with a nil error when the variable doesn't exist; a
// non-nil error means an Updating listener cancelled or aborted the
// update. On success, every variable directly dependent on v (recorded
// when it was created) is recomputed from its retained recipe; that
// recomputation does not itself cascade further.
func Update[T, S any](sys *System, v Variable[T], f func(T) (T, S)) (S, bool, error) {
	var zero S

	sys.mu.Lock()
	old, ok := typed[T](sys.values, v.id)
	sys.mu.Unlock()
	if !ok {
		return zero, false, nil
	}

	updating := Updating{}
	votes, aborted := dispatchEvent(sys, reflect.TypeFor[Updating](), variableTarget(v.id), &updating)
	if aborted {
		sys.cfg.logger.Error("update aborted", "id", v.id)
		return zero, false, errs.New("reactive.Update", errs.CodeAborted, errs.WithMessage("update aborted by a listener"))
	}
	if votes.cancelled() {
		sys.cfg.logger.Error("update cancelled", "id", v.id, "votes", votes)
		return zero, false, errs.New("reactive.Update", errs.CodeCancelled, errs.WithMessage("update cancelled by listener vote"))
	}

	next, out := f(old)

	sys.mu.Lock()
	sys.values.insert(v.id, next)
	deps := sys.graph.dependents(v.id)
	sys.mu.Unlock()

	// Dependents cascade before the primary variable's own Updated fires,
	// matching the reference order: a host reacting to the primary
	// Updated event sees dependents already settled at their new values.
	if len(deps) > 0 {
		sys.cfg.logger.Debug("cascading update", "source", v.id, "dependents", len(deps))
	}
	for _, dep := range deps {
		sys.cascadeRecompute(dep)
	}

	updated := Updated{}
	dispatchEvent(sys, reflect.TypeFor[Updated](), variableTarget(v.id), &updated)

	sys.mu.Lock()
	sys.cfg.metrics.IncCounter("reactive_updates_total", 1, sys.metricLabels(nil))
	sys.mu.Unlock()

	return out, true, nil
}

// cascadeRecompute re-runs dep's retained recipe and installs the result,
// dispatching Updating/Updated around the replacement exactly as a direct
// Update would, except it never recurses into dep's own dependents — only
// variables created directly on top of the changed source are recomputed.
func (s *System) cascadeRecompute(dep ID) {
	s.mu.Lock()
	r, ok := s.recipes.get(dep)
	s.mu.Unlock()
	if !ok {
		return
	}

	updating := Updating{}
	votes, aborted := dispatchEvent(s, reflect.TypeFor[Updating](), variableTarget(dep), &updating)
	if aborted || votes.cancelled() {
		s.cfg.logger.Debug("cascade skipped", "dependent", dep, "aborted", aborted)
		return
	}

	next := r(s)

	s.mu.Lock()
	s.values.insert(dep, next)
	s.mu.Unlock()

	updated := Updated{}
	dispatchEvent(s, reflect.TypeFor[Updated](), variableTarget(dep), &updated)
}

// Delete removes a variable from the System. ok is false, with a nil
// error, when the variable doesn't exist. A non-nil error means either a
// Deleting listener cancelled or aborted the deletion, or the variable
// still has dependents — the reference kernel never allows a dangling
// dependency edge, so deletion with live dependents is rejected with
// CodeCancelled rather than silently orphaning them.
func Delete[T any](sys *System, v Variable[T]) (T, bool, error) {
	var zero T

	sys.mu.Lock()
	_, ok := typed[T](sys.values, v.id)
	if !ok {
		sys.mu.Unlock()
		return zero, false, nil
	}
	if sys.graph.hasDependents(v.id) {
		sys.mu.Unlock()
		sys.cfg.logger.Error("delete rejected: dangling dependents", "id", v.id)
		return zero, false, errs.New("reactive.Delete", errs.CodeCancelled, errs.WithMessage("variable still has dependents"))
	}
	sys.mu.Unlock()

	deleting := Deleting{}
	votes, aborted := dispatchEvent(sys, reflect.TypeFor[Deleting](), variableTarget(v.id), &deleting)
	if aborted {
		sys.cfg.logger.Error("delete aborted", "id", v.id)
		return zero, false, errs.New("reactive.Delete", errs.CodeAborted, errs.WithMessage("deletion aborted by a listener"))
	}
	if votes.cancelled() {
		sys.cfg.logger.Error("delete cancelled", "id", v.id, "votes", votes)
		return zero, false, errs.New("reactive.Delete", errs.CodeCancelled, errs.WithMessage("deletion cancelled by listener vote"))
	}

	sys.mu.Lock()
	value, ok := typed[T](sys.values, v.id)
	if !ok {
		sys.mu.Unlock()
		return zero, false, nil
	}
	sys.values.remove(v.id)
	sys.recipes.remove(v.id)
	sys.graph.removeVariable(v.id)
	sys.listeners.removeTarget(v.id)
	sys.ids.release(v.id)
	sys.mu.Unlock()

	deleted := Deleted[T]{Source: v}
	dispatchEvent(sys, reflect.TypeFor[Deleted[T]](), globalTarget(), &deleted)

	sys.mu.Lock()
	sys.cfg.metrics.IncCounter("reactive_deletes_total", 1, sys.metricLabels(nil))
	sys.cfg.metrics.SetGauge("reactive_live_variables", float64(len(sys.values.values)), sys.metricLabels(nil))
	sys.mu.Unlock()

	return value, true, nil
}
