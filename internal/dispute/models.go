// Package dispute implements the challenge workflow that runs beside the
// claim lifecycle: any party may open a dispute against a claim, parties
// submit evidence, and an adjudicator produces a write-once resolution that
// feeds back into both the claim's validation state and the disputer's trust
// score.
package dispute

import (
	"time"

	"shamba/internal/claim"
	id "shamba/pkg/domain"
	dErrors "shamba/pkg/domain-errors"
)

// Type categorizes what is being contested.
type Type string

const (
	TypeBoundary      Type = "boundary"
	TypeOwnership     Type = "ownership"
	TypeDocumentation Type = "documentation"
	TypeSurvey        Type = "survey"
	TypeOther         Type = "other"
)

var validTypes = map[Type]bool{
	TypeBoundary:      true,
	TypeOwnership:     true,
	TypeDocumentation: true,
	TypeSurvey:        true,
	TypeOther:         true,
}

func ParseType(s string) (Type, error) {
	t := Type(s)
	if !validTypes[t] {
		return "", dErrors.Newf(dErrors.CodeInvalidInput, "unknown dispute type %q", s)
	}
	return t, nil
}

// Status is the dispute's own state machine. resolved and closed are both
// terminal; there is no reopening path.
type Status string

const (
	StatusOpen          Status = "open"
	StatusInvestigating Status = "investigating"
	StatusResolved      Status = "resolved"
	StatusClosed        Status = "closed"
)

// Terminal reports whether no further evidence or transitions are accepted.
func (s Status) Terminal() bool {
	return s == StatusResolved || s == StatusClosed
}

type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
	PriorityUrgent Priority = "urgent"
)

var validPriorities = map[Priority]bool{
	PriorityLow:    true,
	PriorityMedium: true,
	PriorityHigh:   true,
	PriorityUrgent: true,
}

// ParsePriority defaults empty input to medium.
func ParsePriority(s string) (Priority, error) {
	if s == "" {
		return PriorityMedium, nil
	}
	p := Priority(s)
	if !validPriorities[p] {
		return "", dErrors.Newf(dErrors.CodeInvalidInput, "unknown priority %q", s)
	}
	return p, nil
}

// PartyRole is a participant's role within the dispute, distinct from their
// platform role.
type PartyRole string

const (
	PartyClaimant PartyRole = "claimant"
	PartyDisputer PartyRole = "disputer"
	PartyWitness  PartyRole = "witness"
)

type Party struct {
	UserID  id.UserID `json:"user_id"`
	Role    PartyRole `json:"role"`
	AddedAt time.Time `json:"added_at"`
}

type EvidenceType string

const (
	EvidenceDocument  EvidenceType = "document"
	EvidencePhoto     EvidenceType = "photo"
	EvidenceTestimony EvidenceType = "testimony"
	EvidenceSurvey    EvidenceType = "survey"
)

var validEvidenceTypes = map[EvidenceType]bool{
	EvidenceDocument:  true,
	EvidencePhoto:     true,
	EvidenceTestimony: true,
	EvidenceSurvey:    true,
}

func ParseEvidenceType(s string) (EvidenceType, error) {
	t := EvidenceType(s)
	if !validEvidenceTypes[t] {
		return "", dErrors.Newf(dErrors.CodeInvalidInput, "unknown evidence type %q", s)
	}
	return t, nil
}

// Evidence is append-only; rows are never edited or removed.
type Evidence struct {
	DisputeID   id.DisputeID `json:"dispute_id"`
	SubmitterID id.UserID    `json:"submitter_id"`
	Type        EvidenceType `json:"type"`
	Description string       `json:"description"`
	FileRef     string       `json:"file_ref,omitempty"`
	SubmittedAt time.Time    `json:"submitted_at"`
}

// Decision is the adjudicator's verdict. upheld means the dispute succeeded
// and the claim is overturned; dismissed restores the pre-dispute state.
type Decision string

const (
	DecisionUpheld    Decision = "upheld"
	DecisionDismissed Decision = "dismissed"
	DecisionMediated  Decision = "mediated"
	DecisionReferred  Decision = "referred"
)

var validDecisions = map[Decision]bool{
	DecisionUpheld:    true,
	DecisionDismissed: true,
	DecisionMediated:  true,
	DecisionReferred:  true,
}

func ParseDecision(s string) (Decision, error) {
	d := Decision(s)
	if !validDecisions[d] {
		return "", dErrors.Newf(dErrors.CodeInvalidInput, "unknown decision %q", s)
	}
	return d, nil
}

// claimOutcome maps a verdict onto the claim lifecycle transition.
func (d Decision) claimOutcome() claim.DisputeOutcome {
	switch d {
	case DecisionUpheld:
		return claim.OutcomeOverturn
	case DecisionDismissed:
		return claim.OutcomeRestore
	default:
		return claim.OutcomePinPartial
	}
}

// Resolution is immutable once written.
type Resolution struct {
	DisputeID  id.DisputeID `json:"dispute_id"`
	Decision   Decision     `json:"decision"`
	Summary    string       `json:"summary"`
	Notes      string       `json:"notes,omitempty"`
	ResolvedBy id.UserID    `json:"resolved_by"`
	ResolvedAt time.Time    `json:"resolved_at"`
}

// Dispute is the aggregate. PriorStatus and PriorValidationStatus snapshot
// the claim at filing time so a dismissal or closure can restore it.
type Dispute struct {
	ID          id.DisputeID `json:"id"`
	ClaimID     id.ClaimID   `json:"claim_id"`
	Type        Type         `json:"type"`
	Status      Status       `json:"status"`
	Priority    Priority     `json:"priority"`
	Description string       `json:"description"`
	CreatedBy   id.UserID    `json:"created_by"`
	AssignedTo  id.UserID    `json:"assigned_to,omitempty"`
	FiledAt     time.Time    `json:"filed_at"`
	UpdatedAt   time.Time    `json:"updated_at"`

	Parties    []Party     `json:"parties"`
	Evidence   []Evidence  `json:"evidence"`
	Resolution *Resolution `json:"resolution,omitempty"`

	PriorStatus           claim.Status           `json:"prior_status"`
	PriorValidationStatus claim.ValidationStatus `json:"prior_validation_status"`
}

func (d *Dispute) snapshot() claim.Snapshot {
	return claim.Snapshot{Status: d.PriorStatus, ValidationStatus: d.PriorValidationStatus}
}
