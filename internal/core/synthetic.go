package core

import "encoding/json"

// Client-synthesized event kinds. These never arrive on the wire; the
// session appends them so the ledger remains a complete audit record and
// so status stays a pure function of the event sequence.
const (
	// KindDecision records the user's verdict at the outline checkpoint.
	KindDecision EventKind = "outline_decision"

	// KindCancelled marks a user-initiated abort.
	KindCancelled EventKind = "cancelled"
)

// NewDecisionEvent builds the ledger item recording an outline decision.
func NewDecisionEvent(d OutlineDecision) ProgressEvent {
	msg := "outline accepted"
	if d.Action == DecisionEdit {
		msg = "outline edit requested"
	}
	payload, _ := json.Marshal(d)
	return NewProgressEvent(KindDecision, "", msg).WithPayload(payload)
}

// NewCancelledEvent builds the ledger item recording a cancellation.
func NewCancelledEvent() ProgressEvent {
	return NewProgressEvent(KindCancelled, "", "generation cancelled by user")
}

// NewTransportErrorEvent builds the ledger item recording a transport
// failure. It reuses the wire error kind so audit consumers see a single
// error shape.
func NewTransportErrorEvent(err error) ProgressEvent {
	msg := "connection to generation service lost"
	if err != nil {
		msg = err.Error()
	}
	return NewProgressEvent(KindError, "", msg)
}
