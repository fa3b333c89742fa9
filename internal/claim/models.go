// Package claim owns the claim lifecycle: the state machine that turns a
// stream of weighted attestations, a leader decision, and dispute history
// into a claim's validation status. The status is always computed from those
// inputs; nothing in this package lets a caller write it directly.
package claim

import (
	"time"

	"shamba/internal/attestation"
	"shamba/internal/geo"
	id "shamba/pkg/domain"
	dErrors "shamba/pkg/domain-errors"
)

// Status is the administrative state of a claim.
type Status string

const (
	StatusPending   Status = "pending"
	StatusValidated Status = "validated" // community quorum reached, awaiting leader
	StatusApproved  Status = "approved"  // leader endorsed
	StatusRejected  Status = "rejected"  // terminal: leader rejection or upheld dispute
	StatusDisputed  Status = "disputed"  // an open dispute freezes validation
)

var validStatuses = map[Status]bool{
	StatusPending:   true,
	StatusValidated: true,
	StatusApproved:  true,
	StatusRejected:  true,
	StatusDisputed:  true,
}

// ParseStatus validates a status name. Empty input means no status filter.
func ParseStatus(s string) (Status, error) {
	if s == "" {
		return "", nil
	}
	st := Status(s)
	if !validStatuses[st] {
		return "", dErrors.Newf(dErrors.CodeInvalidInput, "unknown claim status %q", s)
	}
	return st, nil
}

// ValidationStatus is the consensus state derived from attestations and the
// leader endorsement.
type ValidationStatus string

const (
	ValidationPending  ValidationStatus = "pending"
	PartiallyValidated ValidationStatus = "partially_validated"
	FullyValidated     ValidationStatus = "fully_validated"
)

// Claim is the engine's view of a land claim. Identity and CRUD belong to the
// claims collaborator; the engine reads geometry and writes the derived
// state fields.
type Claim struct {
	ID               id.ClaimID       `json:"id"`
	OwnerID          id.UserID        `json:"owner_id"`
	Jurisdiction     string           `json:"jurisdiction"`
	Location         geo.Point        `json:"location"`
	Boundary         []geo.Point      `json:"boundary,omitempty"`
	PlotAreaHectares float64          `json:"plot_area_hectares,omitempty"`
	Status           Status           `json:"status"`
	ValidationStatus ValidationStatus `json:"validation_status"`
	WitnessCount     int              `json:"witness_count"`
	EndorsedByLeader bool             `json:"endorsed_by_leader"`
	Rejected         bool             `json:"rejected"`
	DisputeOpen      bool             `json:"dispute_open"`
	CreatedAt        time.Time        `json:"created_at"`
	UpdatedAt        time.Time        `json:"updated_at"`
}

// Closed reports whether the claim no longer accepts effective attestations:
// fully validated with the leader's endorsement, or terminally rejected.
func (c *Claim) Closed() bool {
	if c.Rejected {
		return true
	}
	return c.ValidationStatus == FullyValidated && c.EndorsedByLeader
}

// Snapshot is the pre-dispute state a dismissed or withdrawn dispute restores.
type Snapshot struct {
	Status           Status           `json:"status"`
	ValidationStatus ValidationStatus `json:"validation_status"`
}

// EndorsementRecord is one entry in a claim's immutable endorsement log.
type EndorsementRecord struct {
	ClaimID   id.ClaimID `json:"claim_id"`
	LeaderID  id.UserID  `json:"leader_id"`
	Comment   string     `json:"comment,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}

// Confidence grades the weighted vouch share for display. Never thresholded
// against; promotion rules live in lifecycle.go.
type Confidence string

const (
	ConfidenceVeryHigh Confidence = "very_high"
	ConfidenceHigh     Confidence = "high"
	ConfidenceMedium   Confidence = "medium"
	ConfidenceLow      Confidence = "low"
)

// ConfidenceFor grades a weighted vouch percentage.
func ConfidenceFor(vouchPercent float64) Confidence {
	switch {
	case vouchPercent >= 95:
		return ConfidenceVeryHigh
	case vouchPercent >= 85:
		return ConfidenceHigh
	case vouchPercent >= 75:
		return ConfidenceMedium
	default:
		return ConfidenceLow
	}
}

// ValidationState is the read model for GET /claims/{id}/validation-state.
type ValidationState struct {
	ClaimID          id.ClaimID        `json:"claim_id"`
	Status           Status            `json:"status"`
	ValidationStatus ValidationStatus  `json:"validation_status"`
	WitnessCount     int               `json:"witness_count"`
	EndorsedByLeader bool              `json:"endorsed_by_leader"`
	DisputeOpen      bool              `json:"dispute_open"`
	Tally            attestation.Tally `json:"tally"`
	VouchPercent     float64           `json:"vouch_percent"`
	DisputePercent   float64           `json:"dispute_percent"`
	UnsurePercent    float64           `json:"unsure_percent"`
	Confidence       Confidence        `json:"confidence"`
}

func validateBoundary(boundary []geo.Point) error {
	for _, p := range boundary {
		if err := p.Validate(); err != nil {
			return err
		}
	}
	if len(boundary) > 0 && len(boundary) < 3 {
		return dErrors.New(dErrors.CodeInvalidInput, "boundary needs at least 3 vertices")
	}
	return nil
}
