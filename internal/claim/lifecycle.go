package claim

import (
	"math"

	"shamba/internal/attestation"
)

// Rules holds the tunable consensus thresholds.
type Rules struct {
	// MinWitnesses is the number of distinct vouching validators required
	// before a claim can leave the pending stage.
	MinWitnesses int
}

// DefaultRules matches the standard community deployment.
func DefaultRules() Rules {
	return Rules{MinWitnesses: 2}
}

// Evaluate derives the validation status from the current tally and the
// leader endorsement flag. The community stage requires quorum of distinct
// vouchers and a positive weighted endorsement score; only the leader's
// endorsement reaches fully_validated.
func (r Rules) Evaluate(t attestation.Tally, endorsed bool) ValidationStatus {
	quorum := t.DistinctVouchers >= r.MinWitnesses && t.EndorsementScore > 0
	if !quorum {
		return ValidationPending
	}
	if endorsed {
		return FullyValidated
	}
	return PartiallyValidated
}

// QuorumReached reports whether the community stage threshold is met.
func (r Rules) QuorumReached(t attestation.Tally) bool {
	return t.DistinctVouchers >= r.MinWitnesses && t.EndorsementScore > 0
}

// StatusFor maps the derived validation status and the claim's flags onto
// the administrative status. Rejection and open disputes dominate.
func StatusFor(vs ValidationStatus, rejected, disputeOpen bool) Status {
	if rejected {
		return StatusRejected
	}
	if disputeOpen {
		return StatusDisputed
	}
	switch vs {
	case FullyValidated:
		return StatusApproved
	case PartiallyValidated:
		return StatusValidated
	default:
		return StatusPending
	}
}

// applyTally recomputes the derived state on c from the tally. The caller
// holds the claim lock.
func (r Rules) applyTally(c *Claim, t attestation.Tally) {
	c.WitnessCount = t.DistinctVouchers
	c.ValidationStatus = r.Evaluate(t, c.EndorsedByLeader)
	c.Status = StatusFor(c.ValidationStatus, c.Rejected, c.DisputeOpen)
}

// buildValidationState assembles the read model from a claim and its tally.
func buildValidationState(c *Claim, t attestation.Tally) ValidationState {
	st := ValidationState{
		ClaimID:          c.ID,
		Status:           c.Status,
		ValidationStatus: c.ValidationStatus,
		WitnessCount:     c.WitnessCount,
		EndorsedByLeader: c.EndorsedByLeader,
		DisputeOpen:      c.DisputeOpen,
		Tally:            t,
		Confidence:       ConfidenceLow,
	}
	if t.TotalWeight > 0 {
		st.VouchPercent = round2(t.VouchWeight / t.TotalWeight * 100)
		st.DisputePercent = round2(t.DisputeWeight / t.TotalWeight * 100)
		st.UnsurePercent = round2(t.UnsureWeight / t.TotalWeight * 100)
		st.Confidence = ConfidenceFor(st.VouchPercent)
	}
	return st
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
