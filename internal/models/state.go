// Package models defines session state structures for PartsLine call flows.
package models

import "time"

// CallState represents the stage a call session is currently in. The stage
// is tracked explicitly rather than inferred from which session fields
// happen to be populated.
type CallState string

const (
	// StateGreeting indicates the call was just answered or restarted.
	StateGreeting CallState = "greeting"
	// StateAwaitingSpeech indicates the platform is capturing caller speech.
	StateAwaitingSpeech CallState = "awaiting_speech"
	// StateAwaitingChoice indicates results were presented and a digit is expected.
	StateAwaitingChoice CallState = "awaiting_choice"
	// StateTerminated indicates the call ended and the session is being removed.
	StateTerminated CallState = "terminated"
)

// CallSession is the per-call mutable state, keyed by the opaque call SID
// assigned by the telephony platform. It lives from the first turn that
// needs it until the call terminates; it is never shared across calls.
type CallSession struct {
	CallSID     string       `json:"call_sid"`
	State       CallState    `json:"state"`
	Cart        []Item       `json:"cart"`
	LastResults []Item       `json:"last_results"` // at most the top 5 of the latest search
	LastQuery   *ParsedQuery `json:"last_query,omitempty"`
	CreatedAt   time.Time    `json:"created_at"`
	UpdatedAt   time.Time    `json:"updated_at"`
}

// NewCallSession creates a fresh session for a call in the greeting stage.
func NewCallSession(callSID string) *CallSession {
	now := time.Now()
	return &CallSession{
		CallSID:   callSID,
		State:     StateGreeting,
		Cart:      []Item{},
		CreatedAt: now,
		UpdatedAt: now,
	}
}
