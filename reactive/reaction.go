package reactive

// Reaction is a tracked callback. It records the atoms read during each run
// and is rescheduled whenever one of them reports a change. Reactions are
// created through Runtime.Autorun.
type Reaction struct {
	rt        *Runtime
	name      string
	fn        func()
	observing map[*Atom]struct{}
	running   map[*Atom]struct{}
	scheduled bool
	disposed  bool
}

// dispose detaches the reaction from every atom it observes and prevents
// further reruns. Atoms dropping to zero observers fire their
// last-observer-gone hooks.
func (r *Reaction) dispose() {
	rt := r.rt
	rt.mu.Lock()
	if r.disposed {
		rt.mu.Unlock()
		return
	}
	r.disposed = true
	var released []*Atom
	for a := range r.observing {
		delete(a.observers, r)
		if len(a.observers) == 0 {
			released = append(released, a)
		}
	}
	r.observing = nil
	rt.mu.Unlock()

	for _, a := range released {
		a.fireUnobserved()
	}
}
