package observer

import (
	"context"
	"sync"
)

// Gate is the observer's run/pause signal. Wait blocks while the gate is
// closed and returns immediately when it is open. The open channel is closed
// on Enable so any number of waiters wake at once.
type Gate struct {
	mu   sync.Mutex
	open bool
	ch   chan struct{} // closed while gate is open
}

func NewGate(open bool) *Gate {
	g := &Gate{open: open, ch: make(chan struct{})}
	if open {
		close(g.ch)
	}
	return g
}

func (g *Gate) Enable() {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.open {
		return
	}
	g.open = true
	close(g.ch)
}

func (g *Gate) Disable() {
	g.mu.Lock()
	defer g.mu.Unlock()
	if !g.open {
		return
	}
	g.open = false
	g.ch = make(chan struct{})
}

func (g *Gate) Enabled() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.open
}

// Wait blocks until the gate is open or ctx is done.
func (g *Gate) Wait(ctx context.Context) error {
	for {
		g.mu.Lock()
		if g.open {
			g.mu.Unlock()
			return nil
		}
		ch := g.ch
		g.mu.Unlock()

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ch:
			// Re-check: the gate may have been toggled again before we ran.
		}
	}
}
