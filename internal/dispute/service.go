package dispute

import (
	"context"
	"errors"
	"log/slog"
	"strconv"

	"shamba/internal/claim"
	"shamba/internal/notify"
	"shamba/internal/trust"
	id "shamba/pkg/domain"
	dErrors "shamba/pkg/domain-errors"
	"shamba/pkg/platform/keymutex"
	"shamba/pkg/platform/sentinel"
	"shamba/pkg/requestcontext"
)

// Service runs the dispute state machine. Opening and resolving serialize on
// the claim through the claim service's own lock; dispute-local transitions
// serialize on the dispute id.
type Service struct {
	disputes Store
	claims   *claim.Service
	trust    *trust.Service
	notifier notify.Notifier
	locks    *keymutex.KeyMutex
	logger   *slog.Logger
}

func NewService(
	disputes Store,
	claims *claim.Service,
	trustSvc *trust.Service,
	notifier notify.Notifier,
	logger *slog.Logger,
) *Service {
	if notifier == nil {
		notifier = notify.Noop{}
	}
	return &Service{
		disputes: disputes,
		claims:   claims,
		trust:    trustSvc,
		notifier: notifier,
		locks:    keymutex.New(),
		logger:   logger,
	}
}

// OpenInput carries the filing request.
type OpenInput struct {
	ClaimID     id.ClaimID
	Type        Type
	Description string
	Priority    Priority
}

// Open files a dispute against a claim. The claim freezes and its current
// state is snapshotted into the dispute so a dismissal can restore it.
func (s *Service) Open(ctx context.Context, in OpenInput, caller requestcontext.CallerIdentity) (*Dispute, error) {
	if caller.IsZero() {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "authentication required")
	}
	if in.Description == "" {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "a description of the dispute is required")
	}

	c, err := s.claims.Get(ctx, in.ClaimID)
	if err != nil {
		return nil, err
	}

	// MarkDisputed is the atomic one-open-dispute guard: it fails under the
	// claim lock if a dispute is already open.
	snap, err := s.claims.MarkDisputed(ctx, in.ClaimID)
	if err != nil {
		return nil, err
	}

	now := requestcontext.Now(ctx)
	d := &Dispute{
		ID:          id.NewDisputeID(),
		ClaimID:     in.ClaimID,
		Type:        in.Type,
		Status:      StatusOpen,
		Priority:    in.Priority,
		Description: in.Description,
		CreatedBy:   caller.UserID,
		FiledAt:     now,
		UpdatedAt:   now,
		Parties: []Party{
			{UserID: caller.UserID, Role: PartyDisputer, AddedAt: now},
			{UserID: c.OwnerID, Role: PartyClaimant, AddedAt: now},
		},
		PriorStatus:           snap.Status,
		PriorValidationStatus: snap.ValidationStatus,
	}
	if d.Priority == "" {
		d.Priority = PriorityMedium
	}
	if err := s.disputes.Create(ctx, d); err != nil {
		// Unfreeze the claim rather than leave it disputed with no dispute row.
		if _, rerr := s.claims.ApplyDisputeResolution(ctx, in.ClaimID, claim.OutcomeRestore, snap); rerr != nil {
			s.logger.ErrorContext(ctx, "failed to unfreeze claim after dispute create error",
				"claim_id", in.ClaimID.String(),
				"error", rerr,
			)
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "create dispute")
	}

	s.notifier.Publish(ctx, notify.Event{
		Type:      notify.EventDisputeOpened,
		ClaimID:   in.ClaimID.String(),
		DisputeID: d.ID.String(),
		ActorID:   caller.UserID.String(),
		Detail:    map[string]string{"dispute_type": string(d.Type), "priority": string(d.Priority)},
		At:        now,
	})
	s.logger.InfoContext(ctx, "dispute opened",
		"dispute_id", d.ID.String(),
		"claim_id", in.ClaimID.String(),
		"dispute_type", string(d.Type),
		"request_id", requestcontext.RequestID(ctx),
	)
	return d, nil
}

func (s *Service) Get(ctx context.Context, disputeID id.DisputeID) (*Dispute, error) {
	d, err := s.disputes.Get(ctx, disputeID)
	if errors.Is(err, sentinel.ErrNotFound) {
		return nil, dErrors.New(dErrors.CodeNotFound, "dispute not found")
	}
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "load dispute")
	}
	return d, nil
}

func (s *Service) ListByClaim(ctx context.Context, claimID id.ClaimID) ([]Dispute, error) {
	disputes, err := s.disputes.ListByClaim(ctx, claimID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "list disputes")
	}
	return disputes, nil
}

// EvidenceInput carries one evidence submission.
type EvidenceInput struct {
	Type        EvidenceType
	Description string
	FileRef     string
}

// SubmitEvidence appends to the dispute's evidence log. Submitters who are
// not yet parties join as witnesses.
func (s *Service) SubmitEvidence(ctx context.Context, disputeID id.DisputeID, in EvidenceInput, caller requestcontext.CallerIdentity) (*Dispute, error) {
	if caller.IsZero() {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "authentication required")
	}
	if in.Description == "" {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "evidence description is required")
	}

	unlock := s.locks.Lock(disputeID.String())
	defer unlock()

	d, err := s.Get(ctx, disputeID)
	if err != nil {
		return nil, err
	}
	if d.Status.Terminal() {
		return nil, dErrors.New(dErrors.CodeDisputeClosed, "dispute no longer accepts evidence")
	}

	now := requestcontext.Now(ctx)
	ev := Evidence{
		DisputeID:   disputeID,
		SubmitterID: caller.UserID,
		Type:        in.Type,
		Description: in.Description,
		FileRef:     in.FileRef,
		SubmittedAt: now,
	}
	if err := s.disputes.AppendEvidence(ctx, ev); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "store evidence")
	}
	d.Evidence = append(d.Evidence, ev)

	if !d.hasParty(caller.UserID) {
		d.Parties = append(d.Parties, Party{UserID: caller.UserID, Role: PartyWitness, AddedAt: now})
		d.UpdatedAt = now
		if err := s.disputes.Update(ctx, d); err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "update dispute parties")
		}
	}

	s.notifier.Publish(ctx, notify.Event{
		Type:      notify.EventEvidenceSubmitted,
		ClaimID:   d.ClaimID.String(),
		DisputeID: disputeID.String(),
		ActorID:   caller.UserID.String(),
		Detail:    map[string]string{"evidence_type": string(in.Type)},
		At:        now,
	})
	return d, nil
}

// Assign hands the dispute to an investigator and moves it to investigating.
func (s *Service) Assign(ctx context.Context, disputeID id.DisputeID, assigneeID id.UserID, caller requestcontext.CallerIdentity) (*Dispute, error) {
	if err := requireAdjudicator(caller); err != nil {
		return nil, err
	}
	if assigneeID.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "assignee id is required")
	}

	unlock := s.locks.Lock(disputeID.String())
	defer unlock()

	d, err := s.Get(ctx, disputeID)
	if err != nil {
		return nil, err
	}
	if d.Status.Terminal() {
		return nil, dErrors.New(dErrors.CodeDisputeClosed, "dispute is closed")
	}

	now := requestcontext.Now(ctx)
	d.AssignedTo = assigneeID
	d.Status = StatusInvestigating
	d.UpdatedAt = now
	if err := s.disputes.Update(ctx, d); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "update dispute")
	}

	s.notifier.Publish(ctx, notify.Event{
		Type:      notify.EventDisputeAssigned,
		ClaimID:   d.ClaimID.String(),
		DisputeID: disputeID.String(),
		ActorID:   caller.UserID.String(),
		Subject:   assigneeID.String(),
		At:        now,
	})
	return d, nil
}

// ResolveInput carries the adjudicator's verdict.
type ResolveInput struct {
	Decision Decision
	Summary  string
	Notes    string
}

// Resolve writes the verdict once, settles the disputer's trust outcome, and
// unfreezes the claim per the decision.
func (s *Service) Resolve(ctx context.Context, disputeID id.DisputeID, in ResolveInput, caller requestcontext.CallerIdentity) (*Dispute, error) {
	if err := requireAdjudicator(caller); err != nil {
		return nil, err
	}
	if in.Summary == "" {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "a resolution summary is required")
	}

	unlock := s.locks.Lock(disputeID.String())
	d, err := s.Get(ctx, disputeID)
	if err != nil {
		unlock()
		return nil, err
	}
	if d.Resolution != nil || d.Status == StatusResolved {
		unlock()
		return nil, dErrors.New(dErrors.CodeAlreadyResolved, "dispute is already resolved")
	}
	if d.Status == StatusClosed {
		unlock()
		return nil, dErrors.New(dErrors.CodeDisputeClosed, "dispute is closed")
	}

	now := requestcontext.Now(ctx)
	d.Resolution = &Resolution{
		DisputeID:  disputeID,
		Decision:   in.Decision,
		Summary:    in.Summary,
		Notes:      in.Notes,
		ResolvedBy: caller.UserID,
		ResolvedAt: now,
	}
	d.Status = StatusResolved
	d.UpdatedAt = now
	if err := s.disputes.Update(ctx, d); err != nil {
		unlock()
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "store resolution")
	}
	unlock()

	if _, err := s.claims.ApplyDisputeResolution(ctx, d.ClaimID, in.Decision.claimOutcome(), d.snapshot()); err != nil {
		// The resolution is durable; the claim transition failing is an
		// operational problem, not grounds to unwind the verdict.
		s.logger.ErrorContext(ctx, "claim transition after resolution failed",
			"dispute_id", disputeID.String(),
			"claim_id", d.ClaimID.String(),
			"decision", string(in.Decision),
			"error", err,
		)
	}

	wasUpheld := in.Decision == DecisionUpheld
	profile, err := s.trust.ApplyDisputeOutcome(ctx, id.ValidatorID(d.CreatedBy), wasUpheld)
	if err != nil {
		s.logger.WarnContext(ctx, "trust outcome after resolution failed",
			"dispute_id", disputeID.String(),
			"validator_id", d.CreatedBy.String(),
			"error", err,
		)
	} else {
		s.notifier.Publish(ctx, notify.Event{
			Type:      notify.EventValidationOutcome,
			ClaimID:   d.ClaimID.String(),
			DisputeID: disputeID.String(),
			Subject:   d.CreatedBy.String(),
			Detail: map[string]string{
				"decision":    string(in.Decision),
				"trust_score": strconv.FormatFloat(profile.TrustScore, 'f', -1, 64),
			},
			At: now,
		})
	}

	s.notifier.Publish(ctx, notify.Event{
		Type:      notify.EventDisputeResolved,
		ClaimID:   d.ClaimID.String(),
		DisputeID: disputeID.String(),
		ActorID:   caller.UserID.String(),
		Detail:    map[string]string{"decision": string(in.Decision)},
		At:        now,
	})
	s.logger.InfoContext(ctx, "dispute resolved",
		"dispute_id", disputeID.String(),
		"claim_id", d.ClaimID.String(),
		"decision", string(in.Decision),
		"request_id", requestcontext.RequestID(ctx),
	)
	return d, nil
}

// Close administratively withdraws a dispute before resolution. The claim's
// pre-dispute state comes back and no trust outcome is settled. Terminal.
func (s *Service) Close(ctx context.Context, disputeID id.DisputeID, caller requestcontext.CallerIdentity) (*Dispute, error) {
	if err := requireAdjudicator(caller); err != nil {
		return nil, err
	}

	unlock := s.locks.Lock(disputeID.String())
	d, err := s.Get(ctx, disputeID)
	if err != nil {
		unlock()
		return nil, err
	}
	if d.Status.Terminal() {
		unlock()
		return nil, dErrors.New(dErrors.CodeDisputeClosed, "dispute is already closed")
	}

	now := requestcontext.Now(ctx)
	d.Status = StatusClosed
	d.UpdatedAt = now
	if err := s.disputes.Update(ctx, d); err != nil {
		unlock()
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "update dispute")
	}
	unlock()

	if _, err := s.claims.ApplyDisputeResolution(ctx, d.ClaimID, claim.OutcomeRestore, d.snapshot()); err != nil {
		s.logger.ErrorContext(ctx, "claim transition after close failed",
			"dispute_id", disputeID.String(),
			"claim_id", d.ClaimID.String(),
			"error", err,
		)
	}

	s.notifier.Publish(ctx, notify.Event{
		Type:      notify.EventDisputeClosed,
		ClaimID:   d.ClaimID.String(),
		DisputeID: disputeID.String(),
		ActorID:   caller.UserID.String(),
		At:        now,
	})
	return d, nil
}

func (d *Dispute) hasParty(userID id.UserID) bool {
	for _, p := range d.Parties {
		if p.UserID == userID {
			return true
		}
	}
	return false
}

func requireAdjudicator(caller requestcontext.CallerIdentity) error {
	if caller.IsZero() {
		return dErrors.New(dErrors.CodeUnauthorized, "authentication required")
	}
	if !caller.Role.CanAdjudicate() {
		return dErrors.New(dErrors.CodeForbidden, "only leaders or admins may manage disputes")
	}
	return nil
}
