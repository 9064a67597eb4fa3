package reactive

import (
	"sync"
	"testing"
)

func TestAutorun_RunsImmediately(t *testing.T) {
	rt := NewRuntime()

	runs := 0
	dispose := rt.Autorun("immediate", func() { runs++ })
	defer dispose()

	if runs != 1 {
		t.Errorf("runs = %d, want 1 after Autorun", runs)
	}
}

func TestAutorun_RerunsOnChange(t *testing.T) {
	rt := NewRuntime()
	atom := rt.NewAtom("value")

	runs := 0
	dispose := rt.Autorun("observer", func() {
		atom.ReportObserved()
		runs++
	})
	defer dispose()

	atom.ReportChanged()
	atom.ReportChanged()

	if runs != 3 {
		t.Errorf("runs = %d, want 3 (initial plus two changes)", runs)
	}
}

func TestAutorun_DependencySetRecomputed(t *testing.T) {
	rt := NewRuntime()
	left := rt.NewAtom("left")
	right := rt.NewAtom("right")

	useLeft := true
	runs := 0
	dispose := rt.Autorun("switcher", func() {
		runs++
		if useLeft {
			left.ReportObserved()
		} else {
			right.ReportObserved()
		}
	})
	defer dispose()

	// Switch the dependency from left to right.
	useLeft = false
	left.ReportChanged()
	if runs != 2 {
		t.Fatalf("runs = %d, want 2 after left change", runs)
	}

	// Left is no longer observed; changing it does nothing.
	left.ReportChanged()
	if runs != 2 {
		t.Errorf("runs = %d, want 2 after stale dependency change", runs)
	}

	right.ReportChanged()
	if runs != 3 {
		t.Errorf("runs = %d, want 3 after right change", runs)
	}
}

func TestAtom_LifecycleHooks(t *testing.T) {
	rt := NewRuntime()

	var observed, unobserved int
	atom := rt.NewAtom("lifecycle",
		WithOnBecomeObserved(func() { observed++ }),
		WithOnBecomeUnobserved(func() { unobserved++ }),
	)

	if atom.Observed() {
		t.Fatal("new atom should not be observed")
	}

	disposeA := rt.Autorun("a", func() { atom.ReportObserved() })
	if observed != 1 {
		t.Errorf("observed hook fired %d times, want 1", observed)
	}

	// A second observer does not re-fire the hook.
	disposeB := rt.Autorun("b", func() { atom.ReportObserved() })
	if observed != 1 {
		t.Errorf("observed hook fired %d times after second observer, want 1", observed)
	}
	if !atom.Observed() {
		t.Error("atom should be observed")
	}

	disposeA()
	if unobserved != 0 {
		t.Errorf("unobserved hook fired %d times with one observer left, want 0", unobserved)
	}

	disposeB()
	if unobserved != 1 {
		t.Errorf("unobserved hook fired %d times, want 1", unobserved)
	}
	if atom.Observed() {
		t.Error("atom should not be observed after all disposals")
	}

	// Re-observation fires the hook again.
	disposeC := rt.Autorun("c", func() { atom.ReportObserved() })
	defer disposeC()
	if observed != 2 {
		t.Errorf("observed hook fired %d times after re-observation, want 2", observed)
	}
}

func TestAutorun_DisposeStopsReruns(t *testing.T) {
	rt := NewRuntime()
	atom := rt.NewAtom("value")

	runs := 0
	dispose := rt.Autorun("observer", func() {
		atom.ReportObserved()
		runs++
	})

	dispose()
	dispose() // second call is a no-op

	atom.ReportChanged()
	if runs != 1 {
		t.Errorf("runs = %d, want 1 after dispose", runs)
	}
}

func TestReportObserved_OutsideReactionIsNoop(t *testing.T) {
	rt := NewRuntime()
	atom := rt.NewAtom("value")

	atom.ReportObserved()
	if atom.Observed() {
		t.Error("ReportObserved outside a tracked run must not register anything")
	}

	// Changing an unobserved atom is equally harmless.
	atom.ReportChanged()
}

func TestReportChanged_DuringReactionDefersFlush(t *testing.T) {
	rt := NewRuntime()
	source := rt.NewAtom("source")
	derived := rt.NewAtom("derived")

	var order []string
	disposeB := rt.Autorun("derived-observer", func() {
		derived.ReportObserved()
		order = append(order, "derived")
	})
	defer disposeB()

	disposeA := rt.Autorun("source-observer", func() {
		source.ReportObserved()
		order = append(order, "source")
		// Reporting a change mid-run queues the dependent rerun until
		// this run completes.
		derived.ReportChanged()
	})
	defer disposeA()

	want := []string{"derived", "source", "derived"}
	if len(order) != len(want) {
		t.Fatalf("order = %v, want %v", order, want)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("order = %v, want %v", order, want)
		}
	}
}

func TestReportChanged_FromOtherGoroutine(t *testing.T) {
	rt := NewRuntime()
	atom := rt.NewAtom("value")

	var mu sync.Mutex
	runs := 0
	dispose := rt.Autorun("observer", func() {
		atom.ReportObserved()
		mu.Lock()
		runs++
		mu.Unlock()
	})
	defer dispose()

	done := make(chan struct{})
	go func() {
		atom.ReportChanged()
		close(done)
	}()
	<-done

	mu.Lock()
	defer mu.Unlock()
	if runs != 2 {
		t.Errorf("runs = %d, want 2", runs)
	}
}
