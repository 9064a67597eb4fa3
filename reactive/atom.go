package reactive

// Atom is a trackable unit of state identity. The component owning the
// underlying value calls ReportObserved on every read and ReportChanged on
// every replacement; reactions that read through the atom rerun after each
// change.
type Atom struct {
	rt           *Runtime
	name         string
	observers    map[*Reaction]struct{}
	onObserved   func()
	onUnobserved func()
}

// AtomOption configures optional atom behavior.
type AtomOption func(*Atom)

// WithOnBecomeObserved registers a hook fired when the atom gains its first
// observer. Used to lazily acquire external subscriptions.
func WithOnBecomeObserved(fn func()) AtomOption {
	return func(a *Atom) { a.onObserved = fn }
}

// WithOnBecomeUnobserved registers a hook fired when the atom loses its
// last observer. Used to release subscriptions acquired on first observe.
func WithOnBecomeUnobserved(fn func()) AtomOption {
	return func(a *Atom) { a.onUnobserved = fn }
}

// NewAtom creates an atom bound to this runtime. The name is used for
// debugging only and does not need to be unique.
func (rt *Runtime) NewAtom(name string, opts ...AtomOption) *Atom {
	a := &Atom{
		rt:        rt,
		name:      name,
		observers: make(map[*Reaction]struct{}),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Name returns the debug name the atom was created with.
func (a *Atom) Name() string { return a.name }

// ReportObserved registers the currently running reaction, if any, as a
// dependent of this atom. Outside a tracked run it is a no-op, so read
// paths may call it unconditionally.
func (a *Atom) ReportObserved() {
	rt := a.rt
	rt.mu.Lock()
	r := rt.current
	if r == nil {
		rt.mu.Unlock()
		return
	}
	r.running[a] = struct{}{}
	first := false
	if _, ok := a.observers[r]; !ok {
		a.observers[r] = struct{}{}
		first = len(a.observers) == 1
	}
	rt.mu.Unlock()

	if first && a.onObserved != nil {
		a.onObserved()
	}
}

// ReportChanged schedules every reaction currently observing this atom.
// Safe to call from any goroutine, including fetch-completion goroutines.
func (a *Atom) ReportChanged() {
	rt := a.rt
	rt.mu.Lock()
	run := false
	for r := range a.observers {
		if rt.schedule(r) {
			run = true
		}
	}
	rt.mu.Unlock()
	if run {
		rt.drain()
	}
}

// Observed reports whether at least one reaction currently depends on the
// atom.
func (a *Atom) Observed() bool {
	a.rt.mu.Lock()
	defer a.rt.mu.Unlock()
	return len(a.observers) > 0
}

// fireUnobserved invokes the last-observer-gone hook. Called with rt.mu
// released.
func (a *Atom) fireUnobserved() {
	if a.onUnobserved != nil {
		a.onUnobserved()
	}
}
