package reactive

import "reflect"

// Handler is the signature user code registers via Listen. event is a
// pointer to the concrete event value for the duration of the call only;
// mutating *vote casts this handler's preference, and setting *abort true
// terminates the whole dispatch immediately regardless of outstanding
// votes.
type Handler[E any] func(sys *System, event *E, vote *Vote, abort *bool)

// Listen registers a handler for events of type E. A nil target registers
// a global-scope listener, invoked only for emissions made with a nil
// target. A non-nil target scopes the listener to that variable: it fires
// only for emissions targeted at exactly that variable — there is no
// bubbling between the two scopes in either direction. ok is false, with a
// zero Listener, when t names a variable that does not currently exist in
// the value store, mirroring Read/Update/Delete's soft-miss handling.
func Listen[E any](sys *System, t *VariableID, h Handler[E]) (Listener[E], bool) {
	sys.mu.Lock()
	defer sys.mu.Unlock()

	eventType := reflect.TypeFor[E]()

	var scope target
	var tid *ID
	if t != nil {
		v := t.ID()
		if !sys.values.contains(v) {
			return Listener[E]{}, false
		}
		tid = &v
		scope = variableTarget(v)
	} else {
		scope = globalTarget()
	}

	id := sys.ids.allocate()
	wrapped := func(s *System, event any, vote *Vote, abort *bool) {
		e, ok := event.(*E)
		if !ok {
			return
		}
		h(s, e, vote, abort)
	}

	sys.listeners.insert(eventType, scope, id, wrapped)
	return Listener[E]{id: id, target: tid}, true
}

// Silence removes a previously registered listener. It reports whether the
// listener was found and removed; silencing an already-silenced or unknown
// listener is a harmless no-op (false, not an error), consistent with the
// kernel's soft-miss discipline elsewhere.
func Silence[E any](sys *System, l Listener[E]) bool {
	sys.mu.Lock()
	defer sys.mu.Unlock()

	eventType := reflect.TypeFor[E]()
	scope := globalTarget()
	if l.target != nil {
		scope = variableTarget(*l.target)
	}
	return sys.listeners.remove(eventType, scope, l.id)
}

// Emit dispatches a custom, host-defined event of type E. A nil target
// reaches only global-scope listeners for E; a non-nil target reaches only
// listeners scoped to that exact variable. Emit never inspects or acts on
// the resulting Votes itself — unlike the built-in lifecycle events, what
// a cancelled custom event means (if anything) is entirely up to the host.
func Emit[E any](sys *System, t *VariableID, event E) (Votes, bool) {
	eventType := reflect.TypeFor[E]()
	scope := globalTarget()
	if t != nil {
		scope = variableTarget(t.ID())
	}

	votes, aborted := dispatchEvent(sys, eventType, scope, &event)

	sys.mu.Lock()
	sys.cfg.metrics.ObserveVotes(eventType.String(), votes, false)
	sys.cfg.metrics.IncCounter("reactive_emits_total", 1, sys.metricLabels(map[string]string{"event_type": eventType.String()}))
	sys.mu.Unlock()

	return votes, aborted
}
