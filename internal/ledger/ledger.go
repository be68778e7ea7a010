// Package ledger keeps the ordered, append-only record of progress events
// for one generation session, together with the status derived from them.
//
// The ledger is an explicit reducer: every status change is the result of
// appending an event, so the state machine can be tested without any
// transport or UI attached. Items are never removed or reordered after
// append; a rendered log view never jumps backward.
package ledger

import (
	"sync"

	"github.com/inkflow/inkflow/internal/core"
)

// Ledger is the progress record for one session. One goroutine appends;
// any number may read snapshots.
type Ledger struct {
	mu           sync.RWMutex
	items        []core.ProgressEvent
	status       core.SessionStatus
	currentStage core.Stage
}

// Snapshot is a point-in-time copy of the ledger for observers.
type Snapshot struct {
	Items        []core.ProgressEvent
	Status       core.SessionStatus
	CurrentStage core.Stage
}

// New creates an empty ledger in the idle state.
func New() *Ledger {
	return &Ledger{status: core.StatusIdle}
}

// Begin moves the ledger from idle to generating. It is the only
// transition not driven by an event append: it corresponds to the caller
// opening the stream.
func (l *Ledger) Begin() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.status != core.StatusIdle {
		return core.ErrState(core.CodeInvalidState, "generation already started").
			WithDetail("status", l.status.String())
	}
	l.status = core.StatusGenerating
	return nil
}

// Append adds an event to the record and advances the derived status.
// It returns the status after the transition.
//
// Appends after a terminal status still land in the record for audit
// completeness but never change the status: cancellation and failure are
// absolute, even against a done event already in flight.
func (l *Ledger) Append(ev core.ProgressEvent) core.SessionStatus {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.items = append(l.items, ev)
	if ev.Kind != core.KindLog && ev.Stage != "" {
		l.currentStage = ev.Stage
	}
	l.status = nextStatus(l.status, ev)
	return l.status
}

// nextStatus is the pure transition function over (status, event).
func nextStatus(cur core.SessionStatus, ev core.ProgressEvent) core.SessionStatus {
	if cur.Terminal() {
		return cur
	}

	switch ev.Kind {
	case core.KindOutlineReady:
		return core.StatusAwaitingApproval
	case core.KindDecision:
		if cur == core.StatusAwaitingApproval {
			return core.StatusGenerating
		}
		return cur
	case core.KindError:
		return core.StatusError
	case core.KindCancelled:
		return core.StatusCancelled
	case core.KindStageComplete, core.KindDone:
		return core.StatusCompleted
	default:
		// stage_start, stage_progress, log, and any unknown forward-
		// compatible kind keep the pipeline moving.
		return cur
	}
}

// Status returns the current derived status.
func (l *Ledger) Status() core.SessionStatus {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.status
}

// CurrentStage returns the last non-log stage seen.
func (l *Ledger) CurrentStage() core.Stage {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.currentStage
}

// Len returns the number of recorded items.
func (l *Ledger) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.items)
}

// Items returns a copy of the recorded items in arrival order.
func (l *Ledger) Items() []core.ProgressEvent {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]core.ProgressEvent, len(l.items))
	copy(out, l.items)
	return out
}

// Snapshot returns a consistent copy of items, status, and current stage.
func (l *Ledger) Snapshot() Snapshot {
	l.mu.RLock()
	defer l.mu.RUnlock()
	items := make([]core.ProgressEvent, len(l.items))
	copy(items, l.items)
	return Snapshot{
		Items:        items,
		Status:       l.status,
		CurrentStage: l.currentStage,
	}
}

// Reset clears the ledger for reuse by a new session. It must only be
// called between sessions, never mid-stream.
func (l *Ledger) Reset() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.items = nil
	l.status = core.StatusIdle
	l.currentStage = ""
}
