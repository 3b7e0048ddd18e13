package session

import "sync/atomic"

// Action is the workflow an accepted advance trigger resolves to.
type Action int

const (
	ActionNone Action = iota
	ActionLoadQuestion
	ActionFinalize
)

func (a Action) String() string {
	switch a {
	case ActionLoadQuestion:
		return "load-question"
	case ActionFinalize:
		return "finalize"
	}
	return "none"
}

// Gate admits one workflow at a time. Acquire is a compare-and-swap, so two
// triggers racing from different goroutines still admit exactly one.
type Gate struct {
	closed atomic.Bool
}

// Acquire closes the gate and reports whether the caller may proceed.
func (g *Gate) Acquire() bool {
	return g.closed.CompareAndSwap(false, true)
}

// Release re-opens the gate.
func (g *Gate) Release() {
	g.closed.Store(false)
}

// Close shuts the gate without acquiring it.
func (g *Gate) Close() {
	g.closed.Store(true)
}

// Open reports whether the next Acquire would succeed.
func (g *Gate) Open() bool {
	return !g.closed.Load()
}
