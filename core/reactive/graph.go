package reactive

// orderedIDSet is an insertion-ordered set of IDs. The dependency graph and
// cascade traversal need a deterministic iteration order — an unordered Go
// map would make recomputation order (and therefore test behavior)
// nondeterministic across runs.
type orderedIDSet struct {
	order []ID
	has   map[ID]struct{}
}

func newOrderedIDSet() *orderedIDSet {
	return &orderedIDSet{has: make(map[ID]struct{})}
}

func (s *orderedIDSet) add(id ID) {
	if _, ok := s.has[id]; ok {
		return
	}
	s.has[id] = struct{}{}
	s.order = append(s.order, id)
}

func (s *orderedIDSet) remove(id ID) {
	if _, ok := s.has[id]; !ok {
		return
	}
	delete(s.has, id)
	for i, v := range s.order {
		if v == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
}

func (s *orderedIDSet) empty() bool {
	return s == nil || len(s.order) == 0
}

// snapshot returns a copy of the set's members in insertion order, safe to
// iterate after the caller releases the system guard.
func (s *orderedIDSet) snapshot() []ID {
	if s == nil {
		return nil
	}
	out := make([]ID, len(s.order))
	copy(out, s.order)
	return out
}

// dependencyGraph maps a source variable ID to the set of dependent
// variable IDs whose recipes read it. Populated solely by read-tracking
// during create (see system.go); never re-derived on recomputation.
type dependencyGraph struct {
	bySource map[ID]*orderedIDSet
}

func newDependencyGraph() *dependencyGraph {
	return &dependencyGraph{bySource: make(map[ID]*orderedIDSet)}
}

func (g *dependencyGraph) addEdge(source, dependent ID) {
	set, ok := g.bySource[source]
	if !ok {
		set = newOrderedIDSet()
		g.bySource[source] = set
	}
	set.add(dependent)
}

func (g *dependencyGraph) dependents(source ID) []ID {
	return g.bySource[source].snapshot()
}

func (g *dependencyGraph) hasDependents(source ID) bool {
	return !g.bySource[source].empty()
}

// removeVariable drops source as an outgoing edge and scrubs it from every
// other variable's dependent set (it can no longer be anyone's dependent
// either, since it's being deleted).
func (g *dependencyGraph) removeVariable(id ID) {
	delete(g.bySource, id)
	for _, set := range g.bySource {
		set.remove(id)
	}
}
