package claim

import (
	"context"
	"errors"
	"log/slog"

	"github.com/google/uuid"

	"shamba/internal/attestation"
	"shamba/internal/geo"
	"shamba/internal/notify"
	"shamba/internal/trust"
	id "shamba/pkg/domain"
	dErrors "shamba/pkg/domain-errors"
	"shamba/pkg/platform/keymutex"
	"shamba/pkg/platform/sentinel"
	"shamba/pkg/requestcontext"
)

// Service orchestrates the claim lifecycle. All writes to a claim's derived
// state run under a per-claim lock so concurrent attestations, endorsements
// and dispute transitions serialize on the claim, never on the whole engine.
type Service struct {
	claims   Store
	atts     attestation.Store
	trust    *trust.Service
	notifier notify.Notifier
	locks    *keymutex.KeyMutex
	rules    Rules
	scheme   geo.Scheme
	logger   *slog.Logger
}

func NewService(
	claims Store,
	atts attestation.Store,
	trustSvc *trust.Service,
	notifier notify.Notifier,
	rules Rules,
	scheme geo.Scheme,
	logger *slog.Logger,
) *Service {
	if notifier == nil {
		notifier = notify.Noop{}
	}
	return &Service{
		claims:   claims,
		atts:     atts,
		trust:    trustSvc,
		notifier: notifier,
		locks:    keymutex.New(),
		rules:    rules,
		scheme:   scheme,
		logger:   logger,
	}
}

// CreateInput carries the caller-supplied fields of a new claim. Status and
// validation state are never accepted from the caller.
type CreateInput struct {
	OwnerID      id.UserID
	Jurisdiction string
	Location     geo.Point
	Boundary     []geo.Point
}

func (s *Service) Create(ctx context.Context, in CreateInput) (*Claim, error) {
	if in.OwnerID.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "owner_id is required")
	}
	if in.Jurisdiction == "" {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "jurisdiction is required")
	}
	if err := in.Location.Validate(); err != nil {
		return nil, err
	}
	if err := validateBoundary(in.Boundary); err != nil {
		return nil, err
	}

	now := requestcontext.Now(ctx)
	c := &Claim{
		ID:               id.NewClaimID(),
		OwnerID:          in.OwnerID,
		Jurisdiction:     in.Jurisdiction,
		Location:         in.Location,
		Boundary:         in.Boundary,
		Status:           StatusPending,
		ValidationStatus: ValidationPending,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if len(in.Boundary) >= 3 {
		c.PlotAreaHectares = geo.PolygonAreaHectares(in.Boundary)
	}
	if err := s.claims.Create(ctx, c); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "create claim")
	}

	s.logger.InfoContext(ctx, "claim registered",
		"claim_id", c.ID.String(),
		"jurisdiction", c.Jurisdiction,
		"request_id", requestcontext.RequestID(ctx),
	)
	return c, nil
}

func (s *Service) Get(ctx context.Context, claimID id.ClaimID) (*Claim, error) {
	c, err := s.claims.Get(ctx, claimID)
	if errors.Is(err, sentinel.ErrNotFound) {
		return nil, dErrors.New(dErrors.CodeNotFound, "claim not found")
	}
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "load claim")
	}
	return c, nil
}

func (s *Service) List(ctx context.Context) ([]Claim, error) {
	claims, err := s.claims.List(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "list claims")
	}
	return claims, nil
}

// AttestationInput carries one validator's vote on a claim.
type AttestationInput struct {
	ValidatorID id.ValidatorID
	Location    geo.Point
	Action      attestation.Action
	Comment     string
}

// RecordAttestation upserts the validator's vote, recomputes consensus unless
// a dispute has frozen the claim, and settles the trust outcome. Re-voting
// replaces the previous vote without earning participation credit twice.
func (s *Service) RecordAttestation(ctx context.Context, claimID id.ClaimID, in AttestationInput) (attestation.Attestation, *Claim, error) {
	if err := in.Location.Validate(); err != nil {
		return attestation.Attestation{}, nil, err
	}

	now := requestcontext.Now(ctx)

	unlock := s.locks.Lock(claimID.String())
	c, err := s.claims.Get(ctx, claimID)
	if err != nil {
		unlock()
		if errors.Is(err, sentinel.ErrNotFound) {
			return attestation.Attestation{}, nil, dErrors.New(dErrors.CodeNotFound, "claim not found")
		}
		return attestation.Attestation{}, nil, dErrors.Wrap(err, dErrors.CodeInternal, "load claim")
	}
	if c.Closed() {
		unlock()
		return attestation.Attestation{}, nil, dErrors.New(dErrors.CodeClaimClosed, "claim no longer accepts attestations")
	}
	if uuid.UUID(in.ValidatorID) == uuid.UUID(c.OwnerID) {
		unlock()
		return attestation.Attestation{}, nil, dErrors.New(dErrors.CodeForbidden, "claim owner cannot attest their own claim")
	}

	distance, err := geo.Distance(in.Location, c.Location)
	if err != nil {
		unlock()
		return attestation.Attestation{}, nil, err
	}
	weight, err := geo.Weight(distance, s.scheme)
	if err != nil {
		unlock()
		return attestation.Attestation{}, nil, err
	}

	var priorAction *attestation.Action
	if prior, err := s.atts.Get(ctx, claimID, in.ValidatorID); err == nil {
		priorAction = &prior.Action
	} else if !errors.Is(err, sentinel.ErrNotFound) {
		unlock()
		return attestation.Attestation{}, nil, dErrors.Wrap(err, dErrors.CodeInternal, "load prior attestation")
	}

	att := attestation.Attestation{
		ClaimID:     claimID,
		ValidatorID: in.ValidatorID,
		Action:      in.Action,
		Comment:     in.Comment,
		DistanceKm:  distance,
		Tier:        geo.TierFor(distance),
		Weight:      weight,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if _, err := s.atts.Upsert(ctx, att); err != nil {
		unlock()
		return attestation.Attestation{}, nil, dErrors.Wrap(err, dErrors.CodeInternal, "store attestation")
	}

	quorumCrossed := false
	if !c.DisputeOpen {
		atts, err := s.atts.ListByClaim(ctx, claimID)
		if err != nil {
			unlock()
			return attestation.Attestation{}, nil, dErrors.Wrap(err, dErrors.CodeInternal, "list attestations")
		}
		wasPending := c.ValidationStatus == ValidationPending
		s.rules.applyTally(c, attestation.TallyOf(atts))
		quorumCrossed = wasPending && c.ValidationStatus != ValidationPending
	}
	c.UpdatedAt = now
	if err := s.claims.Update(ctx, c); err != nil {
		unlock()
		return attestation.Attestation{}, nil, dErrors.Wrap(err, dErrors.CodeInternal, "update claim")
	}
	unlock()

	if err := s.trust.ApplyAttestationOutcome(ctx, in.ValidatorID, in.Action, priorAction); err != nil {
		// Trust is derived state. The vote is already durable, so log and move on.
		s.logger.WarnContext(ctx, "trust outcome failed",
			"claim_id", claimID.String(),
			"validator_id", in.ValidatorID.String(),
			"error", err,
		)
	}

	s.notifier.Publish(ctx, notify.Event{
		Type:    notify.EventWitnessRecorded,
		ClaimID: claimID.String(),
		ActorID: in.ValidatorID.String(),
		Detail: map[string]string{
			"action":   string(in.Action),
			"tier":     string(att.Tier),
			"distance": geo.FormatDistance(distance),
		},
		At: now,
	})
	if quorumCrossed {
		s.notifier.Publish(ctx, notify.Event{
			Type:    notify.EventQuorumReached,
			ClaimID: claimID.String(),
			Detail:  map[string]string{"validation_status": string(c.ValidationStatus)},
			At:      now,
		})
	}

	s.logger.InfoContext(ctx, "attestation recorded",
		"claim_id", claimID.String(),
		"validator_id", in.ValidatorID.String(),
		"action", string(in.Action),
		"tier", string(att.Tier),
		"weight", weight,
		"request_id", requestcontext.RequestID(ctx),
	)
	return att, c, nil
}

// ValidationState builds the consensus read model. Reads are lock-free; a
// concurrent vote may land between the claim read and the tally, which only
// skews the percentages for that one response.
func (s *Service) ValidationState(ctx context.Context, claimID id.ClaimID) (ValidationState, error) {
	c, err := s.Get(ctx, claimID)
	if err != nil {
		return ValidationState{}, err
	}
	atts, err := s.atts.ListByClaim(ctx, claimID)
	if err != nil {
		return ValidationState{}, dErrors.Wrap(err, dErrors.CodeInternal, "list attestations")
	}
	return buildValidationState(c, attestation.TallyOf(atts)), nil
}

func (s *Service) Attestations(ctx context.Context, claimID id.ClaimID) ([]attestation.Attestation, error) {
	if _, err := s.Get(ctx, claimID); err != nil {
		return nil, err
	}
	atts, err := s.atts.ListByClaim(ctx, claimID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "list attestations")
	}
	return atts, nil
}

func (s *Service) Endorsements(ctx context.Context, claimID id.ClaimID) ([]EndorsementRecord, error) {
	if _, err := s.Get(ctx, claimID); err != nil {
		return nil, err
	}
	recs, err := s.claims.ListEndorsements(ctx, claimID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "list endorsements")
	}
	return recs, nil
}

// Endorse applies a leader's endorsement. Authorization (role, jurisdiction)
// is the endorsement gate's job; this method enforces the state machine under
// the claim lock.
func (s *Service) Endorse(ctx context.Context, claimID id.ClaimID, leaderID id.UserID, comment string) (*Claim, error) {
	now := requestcontext.Now(ctx)

	unlock := s.locks.Lock(claimID.String())
	c, err := s.claims.Get(ctx, claimID)
	if err != nil {
		unlock()
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "claim not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "load claim")
	}
	switch {
	case c.DisputeOpen:
		unlock()
		return nil, dErrors.New(dErrors.CodeClaimDisputed, "claim has an open dispute")
	case c.Rejected:
		unlock()
		return nil, dErrors.New(dErrors.CodeClaimClosed, "claim is rejected")
	case c.EndorsedByLeader:
		unlock()
		return nil, dErrors.New(dErrors.CodeConflict, "claim is already endorsed")
	case c.ValidationStatus == ValidationPending:
		unlock()
		return nil, dErrors.New(dErrors.CodeQuorumNotMet, "claim has not reached community quorum")
	}

	c.EndorsedByLeader = true
	c.ValidationStatus = FullyValidated
	c.Status = StatusFor(c.ValidationStatus, c.Rejected, c.DisputeOpen)
	c.UpdatedAt = now
	if err := s.claims.Update(ctx, c); err != nil {
		unlock()
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "update claim")
	}
	rec := EndorsementRecord{ClaimID: claimID, LeaderID: leaderID, Comment: comment, CreatedAt: now}
	if err := s.claims.AppendEndorsement(ctx, rec); err != nil {
		unlock()
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "record endorsement")
	}
	unlock()

	s.creditVouchers(ctx, claimID)
	s.notifier.Publish(ctx, notify.Event{
		Type:    notify.EventClaimEndorsed,
		ClaimID: claimID.String(),
		ActorID: leaderID.String(),
		At:      now,
	})
	s.logger.InfoContext(ctx, "claim endorsed",
		"claim_id", claimID.String(),
		"leader_id", leaderID.String(),
		"request_id", requestcontext.RequestID(ctx),
	)
	return c, nil
}

// Reject terminally rejects a claim on a leader's decision.
func (s *Service) Reject(ctx context.Context, claimID id.ClaimID, leaderID id.UserID, reason string) (*Claim, error) {
	now := requestcontext.Now(ctx)

	unlock := s.locks.Lock(claimID.String())
	c, err := s.claims.Get(ctx, claimID)
	if err != nil {
		unlock()
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "claim not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "load claim")
	}
	if c.DisputeOpen {
		unlock()
		return nil, dErrors.New(dErrors.CodeClaimDisputed, "claim has an open dispute")
	}
	if c.Closed() {
		unlock()
		return nil, dErrors.New(dErrors.CodeClaimClosed, "claim is already closed")
	}

	c.Rejected = true
	c.Status = StatusRejected
	c.UpdatedAt = now
	if err := s.claims.Update(ctx, c); err != nil {
		unlock()
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "update claim")
	}
	unlock()

	s.notifier.Publish(ctx, notify.Event{
		Type:    notify.EventClaimRejected,
		ClaimID: claimID.String(),
		ActorID: leaderID.String(),
		Detail:  map[string]string{"reason": reason},
		At:      now,
	})
	s.logger.InfoContext(ctx, "claim rejected",
		"claim_id", claimID.String(),
		"leader_id", leaderID.String(),
		"request_id", requestcontext.RequestID(ctx),
	)
	return c, nil
}

// MarkDisputed freezes the claim for an opening dispute and returns the
// pre-dispute state so a dismissal can restore it.
func (s *Service) MarkDisputed(ctx context.Context, claimID id.ClaimID) (Snapshot, error) {
	now := requestcontext.Now(ctx)

	unlock := s.locks.Lock(claimID.String())
	defer unlock()

	c, err := s.claims.Get(ctx, claimID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return Snapshot{}, dErrors.New(dErrors.CodeNotFound, "claim not found")
		}
		return Snapshot{}, dErrors.Wrap(err, dErrors.CodeInternal, "load claim")
	}
	if c.DisputeOpen {
		return Snapshot{}, dErrors.New(dErrors.CodeDuplicateDispute, "claim already has an open dispute")
	}
	if c.Rejected {
		return Snapshot{}, dErrors.New(dErrors.CodeClaimClosed, "claim is rejected")
	}

	snap := Snapshot{Status: c.Status, ValidationStatus: c.ValidationStatus}
	c.DisputeOpen = true
	c.Status = StatusDisputed
	c.UpdatedAt = now
	if err := s.claims.Update(ctx, c); err != nil {
		return Snapshot{}, dErrors.Wrap(err, dErrors.CodeInternal, "update claim")
	}
	return snap, nil
}

// DisputeOutcome tells the lifecycle what a resolved or closed dispute means
// for the claim.
type DisputeOutcome string

const (
	// OutcomeOverturn: the dispute succeeded, the claim is terminally rejected.
	OutcomeOverturn DisputeOutcome = "overturn"
	// OutcomeRestore: the dispute failed or was closed, the pre-dispute state
	// comes back and votes cast during the freeze take effect.
	OutcomeRestore DisputeOutcome = "restore"
	// OutcomePinPartial: a mediated or referred outcome parks the claim at
	// partial validation pending manual follow-up.
	OutcomePinPartial DisputeOutcome = "pin_partial"
)

// ApplyDisputeResolution unfreezes the claim and applies the outcome.
func (s *Service) ApplyDisputeResolution(ctx context.Context, claimID id.ClaimID, outcome DisputeOutcome, prior Snapshot) (*Claim, error) {
	now := requestcontext.Now(ctx)

	unlock := s.locks.Lock(claimID.String())
	defer unlock()

	c, err := s.claims.Get(ctx, claimID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "claim not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "load claim")
	}
	if !c.DisputeOpen {
		return nil, dErrors.New(dErrors.CodeConflict, "claim has no open dispute")
	}
	c.DisputeOpen = false

	switch outcome {
	case OutcomeOverturn:
		c.Rejected = true
		c.EndorsedByLeader = false
		c.ValidationStatus = ValidationPending
		c.Status = StatusRejected
	case OutcomeRestore:
		c.Status = prior.Status
		c.ValidationStatus = prior.ValidationStatus
		if !c.Closed() {
			atts, err := s.atts.ListByClaim(ctx, claimID)
			if err != nil {
				return nil, dErrors.Wrap(err, dErrors.CodeInternal, "list attestations")
			}
			s.rules.applyTally(c, attestation.TallyOf(atts))
		}
	case OutcomePinPartial:
		c.ValidationStatus = PartiallyValidated
		c.Status = StatusFor(c.ValidationStatus, c.Rejected, c.DisputeOpen)
	default:
		return nil, dErrors.Newf(dErrors.CodeInvalidInput, "unknown dispute outcome %q", outcome)
	}

	c.UpdatedAt = now
	if err := s.claims.Update(ctx, c); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "update claim")
	}
	return c, nil
}

// creditVouchers grants claims_validated credit to every validator who
// vouched for the claim. Called once, at endorsement.
func (s *Service) creditVouchers(ctx context.Context, claimID id.ClaimID) {
	atts, err := s.atts.ListByClaim(ctx, claimID)
	if err != nil {
		s.logger.WarnContext(ctx, "crediting vouchers failed", "claim_id", claimID.String(), "error", err)
		return
	}
	var vouchers []id.ValidatorID
	for _, att := range atts {
		if att.Action == attestation.ActionVouch {
			vouchers = append(vouchers, att.ValidatorID)
		}
	}
	if len(vouchers) > 0 {
		s.trust.CreditClaimsValidated(ctx, vouchers)
	}
}
