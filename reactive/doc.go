// Package reactive provides a small dependency-tracking reactivity primitive.
//
// # Overview
//
// The package exports three building blocks:
//
//   - Runtime: owns dependency bookkeeping and reaction scheduling
//   - Atom: a trackable unit of state identity with observed/changed reporting
//   - Reaction: a callback that reruns whenever an atom it read is changed
//
// Atoms hold no data themselves. A value-owning component calls
// ReportObserved whenever its value is read and ReportChanged whenever the
// value it guards is replaced; the runtime takes care of wiring readers to
// writers.
//
// # Basic Usage
//
//	rt := reactive.NewRuntime()
//	atom := rt.NewAtom("selection")
//
//	stop := rt.Autorun("render", func() {
//		atom.ReportObserved()
//		render(current())
//	})
//	defer stop()
//
//	// later, after replacing the value guarded by the atom:
//	atom.ReportChanged() // reruns the autorun above
//
// # Lifecycle Hooks
//
// Atoms accept OnBecomeObserved and OnBecomeUnobserved hooks fired on the
// 0->1 and 1->0 observer transitions. Components use these to acquire and
// release external subscriptions lazily, so an atom nobody observes costs
// nothing.
//
// # Concurrency
//
// ReportChanged is safe to call from any goroutine; the runtime serializes
// reaction execution. Tracked reads (code running inside Autorun callbacks)
// are expected to run from one goroutine at a time, matching a cooperative
// event-loop execution model.
package reactive
