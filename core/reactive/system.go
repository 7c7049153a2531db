package reactive

import (
	"reflect"

	"github.com/google/uuid"
)

// System is the kernel's single embeddable instance: a store of typed
// reactive variables, their dependency graph, their registered listeners,
// and the configuration governing concurrency and instrumentation.
//
// A System is always used through a pointer. Its zero value is not usable;
// construct one with NewSystem.
type System struct {
	cfg config
	mu  guard

	ids       idAllocator
	values    *valueStore
	recipes   *recipeTable
	graph     *dependencyGraph
	listeners *listenerRegistry

	// trackingID holds the ID of the variable currently being created via
	// recipe, so that reads performed inside the recipe closure can record
	// a dependency edge back to it. It is nil outside of Create's recipe
	// invocation. Because it's a single slot rather than a stack, nested
	// recipe evaluation (a recipe that itself triggers another Create) is
	// not supported — the inner Create's tracking would clobber the
	// outer's.
	trackingID *ID

	// correlationID is stamped fresh at the start of every dispatch, so
	// handlers invoked from the same emission share one id for the
	// duration of log/metric correlation. A handler that re-enters the
	// system (e.g. Read from inside an Updating listener) triggers a
	// nested dispatch with its own fresh id; CorrelationID always reflects
	// the most recently started dispatch, not a caller's own.
	correlationID uuid.UUID
}

// CorrelationID returns the id stamped on the dispatch currently in
// progress, for handlers that want to tag their own logging or metrics
// with it. Before the first dispatch it returns the zero UUID; the id is
// not cleared when a dispatch finishes, so between dispatches it returns
// the id of the most recently started one.
func (s *System) CorrelationID() uuid.UUID {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.correlationID
}

// NewSystem constructs an empty System configured by opts.
func NewSystem(opts ...Option) *System {
	cfg := defaultConfig()
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	return &System{
		cfg:       cfg,
		mu:        newGuard(cfg.mode),
		values:    newValueStore(),
		recipes:   newRecipeTable(),
		graph:     newDependencyGraph(),
		listeners: newListenerRegistry(),
	}
}

// metricLabels builds the namespace label map shared by every metric
// emission, when a namespace was configured.
func (s *System) metricLabels(extra map[string]string) map[string]string {
	if s.cfg.namespace == "" {
		return extra
	}
	labels := map[string]string{"namespace": s.cfg.namespace}
	for k, v := range extra {
		labels[k] = v
	}
	return labels
}

// recordRead registers, under the caller's lock, that the variable being
// tracked (if any) depends on source. Called by Read under the lock, after
// Reading has passed and before Read is dispatched.
func (s *System) recordRead(source ID) {
	if s.trackingID == nil || *s.trackingID == source {
		return
	}
	s.graph.addEdge(source, *s.trackingID)
}

// dispatch runs every handler registered for exactly (eventType, t), in
// insertion order, honoring abort short-circuit, and returns the resulting
// Votes and whether a handler set the abort flag. A listener scoped to a
// variable fires only for emissions targeted at exactly that variable;
// there is no bubbling from a variable-local emission up to global-scope
// listeners, and no bubbling the other way either — global and per-variable
// scopes are disjoint buckets. Handler snapshots are taken under lock;
// handlers themselves run without it held, since they may call back into
// the System.
func dispatchEvent(s *System, eventType reflect.Type, t target, event any) (Votes, bool) {
	s.mu.Lock()
	s.correlationID = uuid.New()
	handlers := s.listeners.snapshot(eventType, t)
	s.mu.Unlock()

	var votes Votes
	aborted := false

	for _, h := range handlers {
		if aborted {
			break
		}
		vote := VoteAbstain
		abort := false
		h(s, event, &vote, &abort)
		votes.tally(vote)
		if abort {
			aborted = true
		}
	}

	return votes, aborted
}
