// Package audit records what pollbook did and on whose behalf. Services emit
// events after a transaction commits; stores and sinks fan them out.
package audit

import (
	"time"

	id "pollbook/pkg/domain"
)

type EventType string

const (
	EventLedgerInitialized   EventType = "ledger_initialized"
	EventSurveyCreated       EventType = "survey_created"
	EventVoteCast            EventType = "vote_cast"
	EventCandidateRegistered EventType = "candidate_registered"
	EventUserRegistered      EventType = "user_registered"
)

// Event is transport-agnostic so stores and sinks can fan out.
type Event struct {
	ID        string      `json:"id"`
	Timestamp time.Time   `json:"timestamp"`
	Action    EventType   `json:"action"`
	Actor     id.Address  `json:"actor"`
	SurveyID  id.SurveyID `json:"survey_id,omitempty"`
	// Subject is the candidate voted for or the wallet registered.
	Subject   string `json:"subject,omitempty"`
	RequestID string `json:"request_id,omitempty"`
	ClientIP  string `json:"client_ip,omitempty"`
	Device    string `json:"device,omitempty"`
}
