package attestation

import (
	"context"

	id "shamba/pkg/domain"
)

// Store holds attestations keyed by (claim, validator).
//
// Upsert is compare-and-swap on the key: a second vote from the same
// validator on the same claim replaces the first atomically and reports
// replaced=true so the caller can adjust counters without double-counting.
type Store interface {
	Upsert(ctx context.Context, att Attestation) (replaced bool, err error)
	ListByClaim(ctx context.Context, claimID id.ClaimID) ([]Attestation, error)
	Get(ctx context.Context, claimID id.ClaimID, validatorID id.ValidatorID) (Attestation, error)
}
