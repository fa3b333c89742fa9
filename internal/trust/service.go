package trust

import (
	"context"
	"errors"
	"log/slog"
	"sort"

	"shamba/internal/attestation"
	id "shamba/pkg/domain"
	"shamba/pkg/platform/keymutex"
	"shamba/pkg/platform/sentinel"
	"shamba/pkg/requestcontext"
)

// Service owns every mutation rule for validator reputation. Stores only
// persist; all arithmetic lives here. Profile writes are read-modify-write,
// so they serialize on a per-validator lock; the per-claim lock upstream
// does not cover two claims touching the same validator at once.
type Service struct {
	store  Store
	locks  *keymutex.KeyMutex
	logger *slog.Logger
}

func NewService(store Store, logger *slog.Logger) *Service {
	return &Service{store: store, locks: keymutex.New(), logger: logger}
}

func (s *Service) getOrCreate(ctx context.Context, validatorID id.ValidatorID) (Profile, error) {
	p, err := s.store.Get(ctx, validatorID)
	if errors.Is(err, sentinel.ErrNotFound) {
		return Profile{ValidatorID: validatorID, TrustScore: InitialScore}, nil
	}
	return p, err
}

// ApplyAttestationOutcome records a vote on the validator's profile. prior is
// the action being replaced when the vote is a re-vote; nil for a first vote.
// Only first votes earn the participation credit.
func (s *Service) ApplyAttestationOutcome(ctx context.Context, validatorID id.ValidatorID, action attestation.Action, prior *attestation.Action) error {
	unlock := s.locks.Lock(validatorID.String())
	defer unlock()

	p, err := s.getOrCreate(ctx, validatorID)
	if err != nil {
		return err
	}

	if prior != nil {
		bumpActionCount(&p, *prior, -1)
	} else {
		p.TrustScore = clampScore(p.TrustScore + ParticipationCredit)
	}
	bumpActionCount(&p, action, +1)
	p.UpdatedAt = requestcontext.Now(ctx)

	return s.store.Save(ctx, p)
}

// ApplyDisputeOutcome settles a resolved dispute against the validator who
// raised it: upheld pays the bonus and extends the streak, dismissed costs
// the penalty and resets it.
func (s *Service) ApplyDisputeOutcome(ctx context.Context, validatorID id.ValidatorID, wasUpheld bool) (Profile, error) {
	unlock := s.locks.Lock(validatorID.String())
	defer unlock()

	p, err := s.getOrCreate(ctx, validatorID)
	if err != nil {
		return Profile{}, err
	}

	p.DisputesRaised++
	if wasUpheld {
		p.DisputesUpheld++
		p.Streak++
		p.TrustScore = clampScore(p.TrustScore + UpheldBonus)
	} else {
		p.Streak = 0
		p.TrustScore = clampScore(p.TrustScore - DismissedPenalty)
	}
	p.UpdatedAt = requestcontext.Now(ctx)

	if err := s.store.Save(ctx, p); err != nil {
		return Profile{}, err
	}
	return p, nil
}

// CreditClaimsValidated bumps claims_validated for every validator who
// vouched on a claim that reached full validation. Leaderboard tie-break
// input only.
func (s *Service) CreditClaimsValidated(ctx context.Context, validatorIDs []id.ValidatorID) {
	for _, validatorID := range validatorIDs {
		s.creditOne(ctx, validatorID)
	}
}

func (s *Service) creditOne(ctx context.Context, validatorID id.ValidatorID) {
	unlock := s.locks.Lock(validatorID.String())
	defer unlock()

	p, err := s.getOrCreate(ctx, validatorID)
	if err != nil {
		s.logger.WarnContext(ctx, "skipping claims_validated credit",
			"validator_id", validatorID.String(),
			"error", err,
		)
		return
	}
	p.ClaimsValidated++
	p.UpdatedAt = requestcontext.Now(ctx)
	if err := s.store.Save(ctx, p); err != nil {
		s.logger.WarnContext(ctx, "failed to save claims_validated credit",
			"validator_id", validatorID.String(),
			"error", err,
		)
	}
}

// Get returns a validator's profile.
func (s *Service) Get(ctx context.Context, validatorID id.ValidatorID) (Profile, error) {
	return s.store.Get(ctx, validatorID)
}

// Rank returns profiles in leaderboard order: trust score descending, ties
// broken by accuracy then claims_validated. Display only; no validation
// decision reads this.
func (s *Service) Rank(ctx context.Context, limit int) ([]Profile, error) {
	profiles, err := s.store.List(ctx)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(profiles, func(i, j int) bool {
		if profiles[i].TrustScore != profiles[j].TrustScore {
			return profiles[i].TrustScore > profiles[j].TrustScore
		}
		if profiles[i].Accuracy() != profiles[j].Accuracy() {
			return profiles[i].Accuracy() > profiles[j].Accuracy()
		}
		return profiles[i].ClaimsValidated > profiles[j].ClaimsValidated
	})
	if limit > 0 && len(profiles) > limit {
		profiles = profiles[:limit]
	}
	return profiles, nil
}

func bumpActionCount(p *Profile, action attestation.Action, delta int) {
	switch action {
	case attestation.ActionVouch:
		p.Vouches += delta
	case attestation.ActionDispute:
		p.Disputes += delta
	case attestation.ActionUnsure:
		p.Unsures += delta
	}
}
