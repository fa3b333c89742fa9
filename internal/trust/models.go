// Package trust is the validator reputation ledger. Trust moves on dispute
// outcomes, not on vote volume: casting attestations only earns a small fixed
// participation credit, while raising a dispute that is later upheld pays a
// bonus and a dismissed one costs a penalty.
package trust

import (
	"math"
	"time"

	id "shamba/pkg/domain"
)

// Trust score adjustments. The score is clamped to [MinScore, MaxScore].
const (
	MinScore = 0.0
	MaxScore = 100.0

	// InitialScore is the neutral starting reputation for a profile created
	// lazily on first attestation.
	InitialScore = 50.0

	// ParticipationCredit is granted once per (claim, validator), on the first
	// vote only. Re-votes replace the row and earn nothing.
	ParticipationCredit = 0.5

	// UpheldBonus / DismissedPenalty apply to the validator who raised a
	// dispute, when the resolution lands.
	UpheldBonus      = 5.0
	DismissedPenalty = 3.0
)

// Profile is a validator's reputation state. Created lazily on first
// attestation, never deleted; the row is part of the audit trail.
type Profile struct {
	ValidatorID     id.ValidatorID `json:"validator_id"`
	TrustScore      float64        `json:"trust_score"`
	Vouches         int            `json:"vouches"`
	Disputes        int            `json:"disputes"`
	Unsures         int            `json:"unsures"`
	DisputesRaised  int            `json:"disputes_raised"`
	DisputesUpheld  int            `json:"disputes_upheld"`
	ClaimsValidated int            `json:"claims_validated"`
	Streak          int            `json:"streak"`
	UpdatedAt       time.Time      `json:"updated_at"`
}

// Accuracy is successful disputes over disputes raised; 0 before the first
// dispute.
func (p Profile) Accuracy() float64 {
	if p.DisputesRaised == 0 {
		return 0
	}
	return float64(p.DisputesUpheld) / float64(p.DisputesRaised)
}

func clampScore(score float64) float64 {
	return math.Min(MaxScore, math.Max(MinScore, score))
}
