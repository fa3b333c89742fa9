// Package endorsement gates the leader decision step. The gate owns the
// who-may-endorse question; the claim lifecycle owns what endorsement does to
// the claim.
package endorsement

import (
	"context"
	"log/slog"

	"shamba/internal/claim"
	id "shamba/pkg/domain"
	dErrors "shamba/pkg/domain-errors"
	"shamba/pkg/requestcontext"
)

type Gate struct {
	claims *claim.Service
	logger *slog.Logger
}

func NewGate(claims *claim.Service, logger *slog.Logger) *Gate {
	return &Gate{claims: claims, logger: logger}
}

// authorize checks that the caller is a leader with authority over the
// claim's jurisdiction.
func (g *Gate) authorize(ctx context.Context, claimID id.ClaimID, caller requestcontext.CallerIdentity) error {
	if caller.IsZero() {
		return dErrors.New(dErrors.CodeUnauthorized, "authentication required")
	}
	if !caller.Role.CanEndorse() {
		return dErrors.New(dErrors.CodeForbidden, "only local leaders may endorse or reject claims")
	}
	c, err := g.claims.Get(ctx, claimID)
	if err != nil {
		return err
	}
	if c.Jurisdiction != caller.Jurisdiction {
		g.logger.WarnContext(ctx, "endorsement outside jurisdiction denied",
			"claim_id", claimID.String(),
			"claim_jurisdiction", c.Jurisdiction,
			"leader_jurisdiction", caller.Jurisdiction,
			"request_id", requestcontext.RequestID(ctx),
		)
		return dErrors.New(dErrors.CodeForbidden, "leader has no authority over this jurisdiction")
	}
	return nil
}

// Endorse applies the caller's endorsement to a quorum-reached claim.
func (g *Gate) Endorse(ctx context.Context, claimID id.ClaimID, caller requestcontext.CallerIdentity, comment string) (*claim.Claim, error) {
	if err := g.authorize(ctx, claimID, caller); err != nil {
		return nil, err
	}
	return g.claims.Endorse(ctx, claimID, caller.UserID, comment)
}

// Reject terminally rejects a claim. A reason is mandatory so the rejection
// is explicable to the claimant.
func (g *Gate) Reject(ctx context.Context, claimID id.ClaimID, caller requestcontext.CallerIdentity, reason string) (*claim.Claim, error) {
	if reason == "" {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "a rejection reason is required")
	}
	if err := g.authorize(ctx, claimID, caller); err != nil {
		return nil, err
	}
	return g.claims.Reject(ctx, claimID, caller.UserID, reason)
}
