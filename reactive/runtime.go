package reactive

import "sync"

// Runtime owns the dependency graph between atoms and reactions and
// schedules reaction reruns. A process typically has one runtime per
// reactive "world"; passing it explicitly keeps tests isolated.
type Runtime struct {
	mu       sync.Mutex
	current  *Reaction
	pending  []*Reaction
	flushing bool
}

// NewRuntime creates an empty runtime with no tracked dependencies.
func NewRuntime() *Runtime {
	return &Runtime{}
}

// Autorun creates a reaction around fn and runs it immediately, tracking
// every atom observed during the run. Whenever one of those atoms reports a
// change the reaction reruns, re-deriving its dependency set each time.
// The returned function disposes the reaction and releases its
// subscriptions; calling it more than once is a no-op.
func (rt *Runtime) Autorun(name string, fn func()) func() {
	r := &Reaction{
		rt:        rt,
		name:      name,
		fn:        fn,
		observing: make(map[*Atom]struct{}),
	}
	rt.runReaction(r)
	return r.dispose
}

// runReaction executes a reaction's callback with tracking enabled and
// reconciles its dependency set afterwards. Reactions may nest: an atom
// lifecycle hook fired during one reaction may start another.
func (rt *Runtime) runReaction(r *Reaction) {
	rt.mu.Lock()
	if r.disposed {
		rt.mu.Unlock()
		return
	}
	prev := rt.current
	rt.current = r
	r.running = make(map[*Atom]struct{})
	rt.mu.Unlock()

	r.fn()

	rt.mu.Lock()
	rt.current = prev
	var released []*Atom
	for a := range r.observing {
		if _, still := r.running[a]; !still {
			delete(a.observers, r)
			if len(a.observers) == 0 {
				released = append(released, a)
			}
		}
	}
	r.observing = r.running
	r.running = nil
	startFlush := prev == nil && !rt.flushing && len(rt.pending) > 0
	if startFlush {
		rt.flushing = true
	}
	rt.mu.Unlock()

	for _, a := range released {
		a.fireUnobserved()
	}
	if startFlush {
		rt.drain()
	}
}

// schedule queues a reaction for rerun. Caller must hold rt.mu. Returns
// true when the caller owns the flush and must call drain after releasing
// the lock. Changes reported mid-track are drained when the outermost
// tracked run completes, so a caller chaining work after a mutation always
// observes post-change state.
func (rt *Runtime) schedule(r *Reaction) bool {
	if r.disposed || r.scheduled {
		return false
	}
	r.scheduled = true
	rt.pending = append(rt.pending, r)
	if rt.flushing || rt.current != nil {
		return false
	}
	rt.flushing = true
	return true
}

// drain runs queued reactions until the queue is empty. Caller must have
// won rt.flushing.
func (rt *Runtime) drain() {
	for {
		rt.mu.Lock()
		if len(rt.pending) == 0 {
			rt.flushing = false
			rt.mu.Unlock()
			return
		}
		r := rt.pending[0]
		rt.pending = rt.pending[1:]
		r.scheduled = false
		disposed := r.disposed
		rt.mu.Unlock()
		if !disposed {
			rt.runReaction(r)
		}
	}
}
