package cache

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestFlight_ResolveOnce(t *testing.T) {
	f := NewFlight()

	if f.Settled() {
		t.Fatal("new flight should not be settled")
	}

	f.Resolve("first", nil)
	f.Resolve("second", errors.New("ignored"))

	data, err := f.Wait(context.Background())
	if err != nil {
		t.Fatalf("Wait() error = %v", err)
	}
	if data != "first" {
		t.Errorf("Wait() = %v, want %q", data, "first")
	}
	if !f.Settled() {
		t.Error("resolved flight should be settled")
	}
}

func TestFlight_WaitBlocksUntilResolved(t *testing.T) {
	f := NewFlight()

	go func() {
		time.Sleep(10 * time.Millisecond)
		f.Resolve(42, nil)
	}()

	data, err := f.Wait(context.Background())
	if err != nil {
		t.Fatalf("Wait() error = %v", err)
	}
	if data != 42 {
		t.Errorf("Wait() = %v, want 42", data)
	}
}

func TestFlight_WaitHonorsContext(t *testing.T) {
	f := NewFlight()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := f.Wait(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("Wait() error = %v, want context.Canceled", err)
	}

	// The flight itself is unaffected by an abandoned wait.
	f.Resolve("late", nil)
	data, err := f.Wait(context.Background())
	if err != nil || data != "late" {
		t.Errorf("Wait() after resolve = (%v, %v), want (late, nil)", data, err)
	}
}

func TestFlight_PreResolved(t *testing.T) {
	wantErr := errors.New("fetch failed")

	resolved := ResolvedFlight("data")
	if data, err := resolved.Wait(context.Background()); err != nil || data != "data" {
		t.Errorf("ResolvedFlight Wait() = (%v, %v), want (data, nil)", data, err)
	}

	failed := FailedFlight(wantErr)
	if _, err := failed.Wait(context.Background()); !errors.Is(err, wantErr) {
		t.Errorf("FailedFlight Wait() error = %v, want %v", err, wantErr)
	}
}
