// Package attestation owns the append-only, per-claim record of witness
// votes: one row per (claim, validator), last write wins, every row weighted
// by the validator's distance to the claim.
package attestation

import (
	"time"

	"shamba/internal/geo"
	id "shamba/pkg/domain"
	dErrors "shamba/pkg/domain-errors"
)

// Action is a validator's verdict on a claim.
type Action string

const (
	ActionVouch   Action = "vouch"
	ActionDispute Action = "dispute"
	ActionUnsure  Action = "unsure"
)

var validActions = map[Action]bool{
	ActionVouch:   true,
	ActionDispute: true,
	ActionUnsure:  true,
}

// ParseAction constructs an Action from external input.
func ParseAction(s string) (Action, error) {
	if s == "" {
		return "", dErrors.New(dErrors.CodeInvalidInput, "action cannot be empty")
	}
	a := Action(s)
	if !validActions[a] {
		return "", dErrors.Newf(dErrors.CodeInvalidInput, "unsupported action %q", s)
	}
	return a, nil
}

// Sign is the attestation's contribution direction to the endorsement score:
// vouch +1, dispute -1, unsure 0.
func (a Action) Sign() float64 {
	switch a {
	case ActionVouch:
		return 1
	case ActionDispute:
		return -1
	default:
		return 0
	}
}

// Attestation is one validator's current vote on one claim. A later vote by
// the same validator replaces this row; it never adds a second one.
type Attestation struct {
	ClaimID     id.ClaimID     `json:"claim_id"`
	ValidatorID id.ValidatorID `json:"validator_id"`
	Action      Action         `json:"action"`
	Comment     string         `json:"comment,omitempty"`
	DistanceKm  float64        `json:"distance_km"`
	Tier        geo.Tier       `json:"tier"`
	Weight      float64        `json:"weight"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
}

// Tally is the weighted aggregate of a claim's attestations. EndorsementScore
// is the signed, distance-weighted sum the lifecycle thresholds against; raw
// counts are display and audit only.
type Tally struct {
	Vouches          int     `json:"vouches"`
	Disputes         int     `json:"disputes"`
	Unsures          int     `json:"unsures"`
	DistinctVouchers int     `json:"distinct_vouchers"`
	VouchWeight      float64 `json:"vouch_weight"`
	DisputeWeight    float64 `json:"dispute_weight"`
	UnsureWeight     float64 `json:"unsure_weight"`
	TotalWeight      float64 `json:"total_weight"`
	EndorsementScore float64 `json:"endorsement_score"`
}

// TallyOf folds a claim's attestations into the weighted aggregate.
func TallyOf(atts []Attestation) Tally {
	var t Tally
	for _, a := range atts {
		switch a.Action {
		case ActionVouch:
			t.Vouches++
			t.DistinctVouchers++
			t.VouchWeight += a.Weight
		case ActionDispute:
			t.Disputes++
			t.DisputeWeight += a.Weight
		case ActionUnsure:
			t.Unsures++
			t.UnsureWeight += a.Weight
		}
		t.TotalWeight += a.Weight
		t.EndorsementScore += a.Action.Sign() * a.Weight
	}
	return t
}
