package observer

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestGateWaitReturnsWhenOpen(t *testing.T) {
	t.Parallel()

	g := NewGate(true)
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := g.Wait(ctx); err != nil {
		t.Fatalf("Wait on open gate: %v", err)
	}
}

func TestGateWaitUnblocksOnEnable(t *testing.T) {
	t.Parallel()

	g := NewGate(false)
	done := make(chan error, 1)
	go func() { done <- g.Wait(context.Background()) }()

	select {
	case err := <-done:
		t.Fatalf("Wait returned early: %v", err)
	case <-time.After(20 * time.Millisecond):
	}

	g.Enable()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Wait after Enable: %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Wait did not unblock after Enable")
	}
}

func TestGateWaitCancellable(t *testing.T) {
	t.Parallel()

	g := NewGate(false)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- g.Wait(ctx) }()

	cancel()
	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("Wait returned %v, want context.Canceled", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Wait did not observe cancellation")
	}
}

func TestGateToggle(t *testing.T) {
	t.Parallel()

	g := NewGate(false)
	if g.Enabled() {
		t.Fatal("gate should start closed")
	}
	g.Enable()
	g.Enable() // idempotent
	if !g.Enabled() {
		t.Fatal("gate should be open")
	}
	g.Disable()
	g.Disable() // idempotent
	if g.Enabled() {
		t.Fatal("gate should be closed again")
	}

	// Reopening after a disable must still wake waiters.
	done := make(chan error, 1)
	go func() { done <- g.Wait(context.Background()) }()
	g.Enable()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Wait after re-enable: %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Wait did not unblock after re-enable")
	}
}
