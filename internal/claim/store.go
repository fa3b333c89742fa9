package claim

import (
	"context"

	id "shamba/pkg/domain"
)

// Store persists claims and their immutable endorsement log.
type Store interface {
	Create(ctx context.Context, c *Claim) error
	Get(ctx context.Context, claimID id.ClaimID) (*Claim, error)
	// Update overwrites the derived state fields. Returns
	// sentinel.ErrNotFound when the claim does not exist.
	Update(ctx context.Context, c *Claim) error
	List(ctx context.Context) ([]Claim, error)

	AppendEndorsement(ctx context.Context, rec EndorsementRecord) error
	ListEndorsements(ctx context.Context, claimID id.ClaimID) ([]EndorsementRecord, error)
}
