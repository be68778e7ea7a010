package core

import "fmt"

// DecisionAction is the user's verdict on a proposed outline.
type DecisionAction string

const (
	// DecisionAccept approves the outline as proposed.
	DecisionAccept DecisionAction = "accept"

	// DecisionEdit approves a modified set of section titles.
	DecisionEdit DecisionAction = "edit"
)

// Valid checks if the action is defined.
func (a DecisionAction) Valid() bool {
	return a == DecisionAccept || a == DecisionEdit
}

// String returns the string representation of the action.
func (a DecisionAction) String() string {
	return string(a)
}

// ParseDecisionAction converts a string to a DecisionAction with
// validation.
func ParseDecisionAction(s string) (DecisionAction, error) {
	a := DecisionAction(s)
	if !a.Valid() {
		return "", fmt.Errorf("invalid decision action: %s", s)
	}
	return a, nil
}

// OutlineDecision is the user's response at the outline checkpoint.
// SectionTitles is only meaningful for edits.
type OutlineDecision struct {
	Action        DecisionAction `json:"action"`
	SectionTitles []string       `json:"sections_titles,omitempty"`
}

// AcceptOutline builds an accept decision.
func AcceptOutline() OutlineDecision {
	return OutlineDecision{Action: DecisionAccept}
}

// EditOutline builds an edit decision carrying the revised section titles.
func EditOutline(sections []string) OutlineDecision {
	return OutlineDecision{Action: DecisionEdit, SectionTitles: sections}
}

// Validate checks internal consistency of the decision.
func (d OutlineDecision) Validate() error {
	if !d.Action.Valid() {
		return ErrValidation(CodeInvalidDecision,
			"decision action must be accept or edit")
	}
	if d.Action == DecisionAccept && len(d.SectionTitles) > 0 {
		return ErrValidation(CodeInvalidDecision,
			"accept decision must not carry edited sections")
	}
	if d.Action == DecisionEdit && len(d.SectionTitles) == 0 {
		return ErrValidation(CodeInvalidDecision,
			"edit decision requires at least one section title")
	}
	return nil
}
