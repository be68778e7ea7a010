package core

import (
	"encoding/json"
	"time"
)

// EventKind classifies a progress event. Like Stage the set is open:
// unknown kinds are carried through unchanged rather than rejected.
type EventKind string

const (
	KindStageStart    EventKind = "stage_start"
	KindStageProgress EventKind = "stage_progress"
	KindLog           EventKind = "log"
	KindOutlineReady  EventKind = "outline_ready"
	KindStageComplete EventKind = "stage_complete"
	KindError         EventKind = "error"
	KindDone          EventKind = "done"
)

// Known reports whether the kind is part of the wire vocabulary this
// client understands. Synthesized kinds are deliberately excluded.
func (k EventKind) Known() bool {
	switch k {
	case KindStageStart, KindStageProgress, KindLog,
		KindOutlineReady, KindStageComplete, KindError, KindDone:
		return true
	default:
		return false
	}
}

// String returns the wire value of the kind.
func (k EventKind) String() string {
	return string(k)
}

// ProgressEvent is one decoded frame of the progress stream. Payload is
// kept raw; only the kinds that carry structured data get decoded, and
// only when the consumer asks.
type ProgressEvent struct {
	Kind    EventKind       `json:"kind"`
	Stage   Stage           `json:"stage,omitempty"`
	Message string          `json:"message,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty"`

	// ReceivedAt is stamped client-side on arrival; it never crosses the
	// wire.
	ReceivedAt time.Time `json:"-"`
}

// NewProgressEvent builds an event stamped with the current time.
func NewProgressEvent(kind EventKind, stage Stage, message string) ProgressEvent {
	return ProgressEvent{
		Kind:       kind,
		Stage:      stage,
		Message:    message,
		ReceivedAt: time.Now(),
	}
}

// WithPayload attaches a raw payload.
func (e ProgressEvent) WithPayload(payload json.RawMessage) ProgressEvent {
	e.Payload = payload
	return e
}

// Outline is the planner's proposed article structure, surfaced for
// approval at the checkpoint.
type Outline struct {
	Title         string   `json:"title"`
	SectionTitles []string `json:"sections_titles"`
}

// Artifact is the finished article carried on the done event.
type Artifact struct {
	ArtifactID string `json:"artifact_id"`
	Markdown   string `json:"markdown"`
}

// DecodeOutline extracts the outline from an outline_ready event.
func (e ProgressEvent) DecodeOutline() (Outline, error) {
	if e.Kind != KindOutlineReady {
		return Outline{}, ErrProtocol(CodeUnexpectedPayload,
			"outline requested from a non-outline event").WithDetail("kind", e.Kind.String())
	}
	var o Outline
	if err := json.Unmarshal(e.Payload, &o); err != nil {
		return Outline{}, ErrProtocol(CodeMalformedPayload, "decoding outline payload").WithCause(err)
	}
	return o, nil
}

// DecodeArtifact extracts the artifact from a done event. A done event
// without a payload is legal; it yields a zero artifact.
func (e ProgressEvent) DecodeArtifact() (Artifact, error) {
	if e.Kind != KindDone {
		return Artifact{}, ErrProtocol(CodeUnexpectedPayload,
			"artifact requested from a non-done event").WithDetail("kind", e.Kind.String())
	}
	if len(e.Payload) == 0 {
		return Artifact{}, nil
	}
	var a Artifact
	if err := json.Unmarshal(e.Payload, &a); err != nil {
		return Artifact{}, ErrProtocol(CodeMalformedPayload, "decoding artifact payload").WithCause(err)
	}
	return a, nil
}
