package reactive

import "reflect"

// handler is the uniform, type-erased signature every registered listener
// is wrapped to. The wrapper attempts to downcast the event to its
// concrete type and silently no-ops on mismatch, so a handler registered
// against the wrong concrete event type is safe, if pointless.
type handler func(sys *System, event any, vote *Vote, abort *bool)

// target identifies the scope a listener was registered for, or an
// emission is dispatched to: the zero value (has == false) is the global
// scope; has == true with a populated id is a variable-local scope. A
// plain struct (rather than *ID) keeps this usable as a map key.
type target struct {
	has bool
	id  ID
}

func globalTarget() target           { return target{} }
func variableTarget(id ID) target    { return target{has: true, id: id} }
func (t target) variable() (ID, bool) { return t.id, t.has }

// handlerBucket is an insertion-ordered collection of handlers keyed by
// listener ID, snapshotted before dispatch so handlers may register or
// silence listeners during their own execution without disturbing the
// in-flight iteration.
type handlerBucket struct {
	order []ID
	byID  map[ID]handler
}

func newHandlerBucket() *handlerBucket {
	return &handlerBucket{byID: make(map[ID]handler)}
}

func (b *handlerBucket) insert(id ID, h handler) {
	if _, exists := b.byID[id]; !exists {
		b.order = append(b.order, id)
	}
	b.byID[id] = h
}

// remove deletes id from the bucket, preserving the relative order of the
// remaining handlers (IndexMap's shift_remove semantics in the reference).
func (b *handlerBucket) remove(id ID) bool {
	if _, ok := b.byID[id]; !ok {
		return false
	}
	delete(b.byID, id)
	for i, v := range b.order {
		if v == id {
			b.order = append(b.order[:i], b.order[i+1:]...)
			break
		}
	}
	return true
}

func (b *handlerBucket) snapshot() []handler {
	if b == nil {
		return nil
	}
	out := make([]handler, 0, len(b.order))
	for _, id := range b.order {
		if h, ok := b.byID[id]; ok {
			out = append(out, h)
		}
	}
	return out
}

// listenerRegistry is the three-level index: event type -> target scope ->
// insertion-ordered handlers.
type listenerRegistry struct {
	byEventType map[reflect.Type]map[target]*handlerBucket
}

func newListenerRegistry() *listenerRegistry {
	return &listenerRegistry{byEventType: make(map[reflect.Type]map[target]*handlerBucket)}
}

func (r *listenerRegistry) insert(eventType reflect.Type, t target, id ID, h handler) {
	byTarget, ok := r.byEventType[eventType]
	if !ok {
		byTarget = make(map[target]*handlerBucket)
		r.byEventType[eventType] = byTarget
	}
	bucket, ok := byTarget[t]
	if !ok {
		bucket = newHandlerBucket()
		byTarget[t] = bucket
	}
	bucket.insert(id, h)
}

func (r *listenerRegistry) remove(eventType reflect.Type, t target, id ID) bool {
	byTarget, ok := r.byEventType[eventType]
	if !ok {
		return false
	}
	bucket, ok := byTarget[t]
	if !ok {
		return false
	}
	return bucket.remove(id)
}

func (r *listenerRegistry) snapshot(eventType reflect.Type, t target) []handler {
	byTarget, ok := r.byEventType[eventType]
	if !ok {
		return nil
	}
	return byTarget[t].snapshot()
}

// removeTarget drops every listener (across all event types) registered
// against the given variable-local target. Called when that variable is
// deleted.
func (r *listenerRegistry) removeTarget(id ID) {
	t := variableTarget(id)
	for _, byTarget := range r.byEventType {
		delete(byTarget, t)
	}
}
