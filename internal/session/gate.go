package session

import (
	"sync"

	"github.com/inkflow/inkflow/internal/core"
)

// Gate is the outline approval checkpoint. The session arms it when an
// outline_ready event arrives and the pipeline stays suspended until the
// user's decision is delivered through it.
//
// The gate is not re-entrant: each checkpoint accepts exactly one decision,
// and only a fresh outline_ready re-arms it.
type Gate struct {
	mu       sync.Mutex
	outline  core.Outline
	armed    bool
	surfaced bool
	ch       chan core.OutlineDecision
}

func newGate() *Gate {
	return &Gate{ch: make(chan core.OutlineDecision, 1)}
}

// arm loads a pending outline. Called by the session loop only.
func (g *Gate) arm(o core.Outline) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.outline = o
	g.armed = true
	g.surfaced = false
}

// disarm clears the checkpoint without a decision (cancellation, transport
// failure). Called by the session loop only.
func (g *Gate) disarm() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.armed = false
}

// TakeOutline surfaces the pending outline. Each checkpoint exposes its
// outline exactly once; further calls fail until the gate is re-armed.
func (g *Gate) TakeOutline() (core.Outline, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if !g.armed || g.surfaced {
		return core.Outline{}, core.ErrProtocol(core.CodeGateNotArmed, "no outline pending approval")
	}
	g.surfaced = true
	return g.outline, nil
}

// Decide submits the user's verdict for the pending outline. It is valid
// only while a checkpoint is armed; at any other time it fails without
// touching session state.
func (g *Gate) Decide(d core.OutlineDecision) error {
	if err := d.Validate(); err != nil {
		return err
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	if !g.armed {
		return core.ErrProtocol(core.CodeGateNotArmed, "no outline awaiting a decision")
	}
	g.armed = false
	g.ch <- d
	return nil
}

// decisions is the channel the session loop waits on while suspended.
func (g *Gate) decisions() <-chan core.OutlineDecision {
	return g.ch
}
