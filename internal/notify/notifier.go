// Package notify is the outbound notification collaborator contract. The
// engine informs it of state transitions; it never gates them. Publish has no
// error return on purpose: a failed notification is the publisher's problem
// to log, never the caller's problem to handle (a committed transition must
// not roll back because a broker was down).
package notify

import (
	"context"
	"time"
)

// EventType names a state transition worth telling the outside world about.
type EventType string

const (
	EventWitnessRecorded   EventType = "witness_recorded"
	EventQuorumReached     EventType = "quorum_reached"
	EventClaimEndorsed     EventType = "claim_endorsed"
	EventClaimRejected     EventType = "claim_rejected"
	EventDisputeOpened     EventType = "dispute_opened"
	EventEvidenceSubmitted EventType = "evidence_submitted"
	EventDisputeAssigned   EventType = "dispute_assigned"
	EventDisputeResolved   EventType = "dispute_resolved"
	EventDisputeClosed     EventType = "dispute_closed"
	EventValidationOutcome EventType = "validation_outcome"
)

// Event is the transport-agnostic notification payload.
type Event struct {
	Type      EventType         `json:"type"`
	ClaimID   string            `json:"claim_id,omitempty"`
	DisputeID string            `json:"dispute_id,omitempty"`
	ActorID   string            `json:"actor_id,omitempty"`
	Subject   string            `json:"subject,omitempty"`
	Detail    map[string]string `json:"detail,omitempty"`
	At        time.Time         `json:"at"`
}

// Notifier is implemented by outbound sinks. Implementations must be
// non-blocking from the caller's point of view and swallow their own errors.
type Notifier interface {
	Publish(ctx context.Context, event Event)
}

// Noop discards every event. Default wiring when no broker is configured,
// and the test double when a test doesn't care about notifications.
type Noop struct{}

func (Noop) Publish(context.Context, Event) {}
