package dispute

import (
	"context"

	id "shamba/pkg/domain"
)

// Store persists disputes with their parties, evidence and resolution.
type Store interface {
	Create(ctx context.Context, d *Dispute) error
	Get(ctx context.Context, disputeID id.DisputeID) (*Dispute, error)
	// Update persists status, assignee and resolution changes. Parties and
	// evidence are append-only and written through their own methods.
	Update(ctx context.Context, d *Dispute) error
	ListByClaim(ctx context.Context, claimID id.ClaimID) ([]Dispute, error)
	AppendEvidence(ctx context.Context, ev Evidence) error
}
