package claim

import (
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/suite"

	"shamba/internal/attestation"
	"shamba/internal/geo"
	"shamba/internal/notify"
	"shamba/internal/trust"
	id "shamba/pkg/domain"
	dErrors "shamba/pkg/domain-errors"
)

var (
	nairobi     = geo.Point{Lat: -1.2921, Lon: 36.8219}
	nearNairobi = geo.Point{Lat: -1.2561, Lon: 36.8219} // roughly 4 km north
)

type ServiceSuite struct {
	suite.Suite
	claims     *InMemoryStore
	atts       *attestation.InMemoryStore
	trustStore *trust.InMemoryStore
	rec        *notify.Recorder
	svc        *Service
	ctx        context.Context
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func (s *ServiceSuite) SetupTest() {
	s.claims = NewInMemoryStore()
	s.atts = attestation.NewInMemoryStore()
	s.trustStore = trust.NewInMemoryStore()
	s.rec = notify.NewRecorder()
	trustSvc := trust.NewService(s.trustStore, slog.Default())
	s.svc = NewService(s.claims, s.atts, trustSvc, s.rec, DefaultRules(), geo.SchemeStandard, slog.Default())
	s.ctx = context.Background()
}

func (s *ServiceSuite) createClaim() *Claim {
	c, err := s.svc.Create(s.ctx, CreateInput{
		OwnerID:      id.NewUserID(),
		Jurisdiction: "nairobi-west",
		Location:     nairobi,
	})
	s.Require().NoError(err)
	return c
}

func (s *ServiceSuite) vouch(claimID id.ClaimID, loc geo.Point) (attestation.Attestation, *Claim) {
	att, c, err := s.svc.RecordAttestation(s.ctx, claimID, AttestationInput{
		ValidatorID: id.NewValidatorID(),
		Location:    loc,
		Action:      attestation.ActionVouch,
	})
	s.Require().NoError(err)
	return att, c
}

func (s *ServiceSuite) TestCreateValidation() {
	s.Run("missing owner", func() {
		_, err := s.svc.Create(s.ctx, CreateInput{Jurisdiction: "x", Location: nairobi})
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})
	s.Run("missing jurisdiction", func() {
		_, err := s.svc.Create(s.ctx, CreateInput{OwnerID: id.NewUserID(), Location: nairobi})
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})
	s.Run("latitude out of range", func() {
		_, err := s.svc.Create(s.ctx, CreateInput{
			OwnerID:      id.NewUserID(),
			Jurisdiction: "x",
			Location:     geo.Point{Lat: 91, Lon: 0},
		})
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidCoordinate))
	})
	s.Run("degenerate boundary", func() {
		_, err := s.svc.Create(s.ctx, CreateInput{
			OwnerID:      id.NewUserID(),
			Jurisdiction: "x",
			Location:     nairobi,
			Boundary:     []geo.Point{nairobi, nearNairobi},
		})
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})
}

func (s *ServiceSuite) TestCreateComputesPlotArea() {
	// A square roughly 100m on a side.
	d := 0.0009
	c, err := s.svc.Create(s.ctx, CreateInput{
		OwnerID:      id.NewUserID(),
		Jurisdiction: "nairobi-west",
		Location:     nairobi,
		Boundary: []geo.Point{
			{Lat: nairobi.Lat, Lon: nairobi.Lon},
			{Lat: nairobi.Lat + d, Lon: nairobi.Lon},
			{Lat: nairobi.Lat + d, Lon: nairobi.Lon + d},
			{Lat: nairobi.Lat, Lon: nairobi.Lon + d},
		},
	})
	s.Require().NoError(err)
	s.InDelta(1.0, c.PlotAreaHectares, 0.1)
	s.Equal(StatusPending, c.Status)
	s.Equal(ValidationPending, c.ValidationStatus)
}

func (s *ServiceSuite) TestAttestUnknownClaim() {
	_, _, err := s.svc.RecordAttestation(s.ctx, id.NewClaimID(), AttestationInput{
		ValidatorID: id.NewValidatorID(),
		Location:    nairobi,
		Action:      attestation.ActionVouch,
	})
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
}

func (s *ServiceSuite) TestOwnerCannotAttest() {
	c := s.createClaim()

	_, _, err := s.svc.RecordAttestation(s.ctx, c.ID, AttestationInput{
		ValidatorID: id.ValidatorID(c.OwnerID),
		Location:    nairobi,
		Action:      attestation.ActionVouch,
	})
	s.True(dErrors.HasCode(err, dErrors.CodeForbidden))
}

func (s *ServiceSuite) TestQuorumPromotion() {
	c := s.createClaim()

	att1, c1 := s.vouch(c.ID, nairobi)
	s.InDelta(1.0, att1.Weight, 0.001)
	s.Equal(geo.TierVeryClose, att1.Tier)
	s.Equal(ValidationPending, c1.ValidationStatus)
	s.Equal(1, c1.WitnessCount)

	att2, c2 := s.vouch(c.ID, nearNairobi)
	s.InDelta(0.92, att2.Weight, 0.005)
	s.Equal(geo.TierVeryClose, att2.Tier)
	s.Equal(PartiallyValidated, c2.ValidationStatus)
	s.Equal(StatusValidated, c2.Status)
	s.Equal(2, c2.WitnessCount)

	s.Equal([]notify.EventType{
		notify.EventWitnessRecorded,
		notify.EventWitnessRecorded,
		notify.EventQuorumReached,
	}, s.rec.Types())
}

func (s *ServiceSuite) TestRevoteReplacesWithoutDoubleCredit() {
	c := s.createClaim()
	v := id.NewValidatorID()

	for range 2 {
		_, _, err := s.svc.RecordAttestation(s.ctx, c.ID, AttestationInput{
			ValidatorID: v,
			Location:    nairobi,
			Action:      attestation.ActionVouch,
		})
		s.Require().NoError(err)
	}

	got, err := s.svc.Get(s.ctx, c.ID)
	s.Require().NoError(err)
	s.Equal(1, got.WitnessCount)

	p, err := s.trustStore.Get(s.ctx, v)
	s.Require().NoError(err)
	s.Equal(1, p.Vouches)
	s.InDelta(trust.InitialScore+trust.ParticipationCredit, p.TrustScore, 0.001)
}

func (s *ServiceSuite) TestDisputeVotesBlockQuorum() {
	c := s.createClaim()

	s.vouch(c.ID, nairobi)
	_, c2, err := s.svc.RecordAttestation(s.ctx, c.ID, AttestationInput{
		ValidatorID: id.NewValidatorID(),
		Location:    nairobi,
		Action:      attestation.ActionDispute,
	})
	s.Require().NoError(err)

	// One distinct voucher is below quorum no matter the score.
	s.Equal(ValidationPending, c2.ValidationStatus)
	s.Equal(1, c2.WitnessCount)
}

func (s *ServiceSuite) TestEndorseRequiresQuorum() {
	c := s.createClaim()

	_, err := s.svc.Endorse(s.ctx, c.ID, id.NewUserID(), "")
	s.True(dErrors.HasCode(err, dErrors.CodeQuorumNotMet))
}

func (s *ServiceSuite) TestEndorse() {
	c := s.createClaim()
	s.vouch(c.ID, nairobi)
	_, partial := s.vouch(c.ID, nearNairobi)
	s.Require().Equal(PartiallyValidated, partial.ValidationStatus)

	leader := id.NewUserID()
	endorsed, err := s.svc.Endorse(s.ctx, c.ID, leader, "boundary walked")
	s.Require().NoError(err)

	s.Equal(FullyValidated, endorsed.ValidationStatus)
	s.Equal(StatusApproved, endorsed.Status)
	s.True(endorsed.EndorsedByLeader)
	s.True(endorsed.Closed())

	recs, err := s.svc.Endorsements(s.ctx, c.ID)
	s.Require().NoError(err)
	s.Require().Len(recs, 1)
	s.Equal(leader, recs[0].LeaderID)
	s.Equal("boundary walked", recs[0].Comment)

	types := s.rec.Types()
	s.Equal(notify.EventClaimEndorsed, types[len(types)-1])
}

func (s *ServiceSuite) TestEndorseCreditsVouchers() {
	c := s.createClaim()
	att1, _ := s.vouch(c.ID, nairobi)
	att2, _ := s.vouch(c.ID, nearNairobi)

	_, err := s.svc.Endorse(s.ctx, c.ID, id.NewUserID(), "")
	s.Require().NoError(err)

	for _, v := range []id.ValidatorID{att1.ValidatorID, att2.ValidatorID} {
		p, err := s.trustStore.Get(s.ctx, v)
		s.Require().NoError(err)
		s.Equal(1, p.ClaimsValidated)
	}
}

func (s *ServiceSuite) TestEndorseTwiceConflicts() {
	c := s.createClaim()
	s.vouch(c.ID, nairobi)
	s.vouch(c.ID, nearNairobi)

	_, err := s.svc.Endorse(s.ctx, c.ID, id.NewUserID(), "")
	s.Require().NoError(err)

	_, err = s.svc.Endorse(s.ctx, c.ID, id.NewUserID(), "")
	s.True(dErrors.HasCode(err, dErrors.CodeConflict))
}

func (s *ServiceSuite) TestClosedClaimRejectsVotes() {
	c := s.createClaim()
	s.vouch(c.ID, nairobi)
	s.vouch(c.ID, nearNairobi)
	_, err := s.svc.Endorse(s.ctx, c.ID, id.NewUserID(), "")
	s.Require().NoError(err)

	_, _, err = s.svc.RecordAttestation(s.ctx, c.ID, AttestationInput{
		ValidatorID: id.NewValidatorID(),
		Location:    nairobi,
		Action:      attestation.ActionVouch,
	})
	s.True(dErrors.HasCode(err, dErrors.CodeClaimClosed))
}

func (s *ServiceSuite) TestRejectIsTerminal() {
	c := s.createClaim()

	rejected, err := s.svc.Reject(s.ctx, c.ID, id.NewUserID(), "overlaps surveyed parcel")
	s.Require().NoError(err)
	s.Equal(StatusRejected, rejected.Status)

	_, _, err = s.svc.RecordAttestation(s.ctx, c.ID, AttestationInput{
		ValidatorID: id.NewValidatorID(),
		Location:    nairobi,
		Action:      attestation.ActionVouch,
	})
	s.True(dErrors.HasCode(err, dErrors.CodeClaimClosed))

	_, err = s.svc.Endorse(s.ctx, c.ID, id.NewUserID(), "")
	s.True(dErrors.HasCode(err, dErrors.CodeClaimClosed))
}

func (s *ServiceSuite) TestDisputeFreezesLifecycle() {
	c := s.createClaim()
	s.vouch(c.ID, nairobi)

	snap, err := s.svc.MarkDisputed(s.ctx, c.ID)
	s.Require().NoError(err)
	s.Equal(StatusPending, snap.Status)
	s.Equal(ValidationPending, snap.ValidationStatus)

	// Votes during the freeze are stored but do not move the lifecycle.
	_, frozen, err := s.svc.RecordAttestation(s.ctx, c.ID, AttestationInput{
		ValidatorID: id.NewValidatorID(),
		Location:    nearNairobi,
		Action:      attestation.ActionVouch,
	})
	s.Require().NoError(err)
	s.Equal(StatusDisputed, frozen.Status)
	s.Equal(ValidationPending, frozen.ValidationStatus)

	atts, err := s.svc.Attestations(s.ctx, c.ID)
	s.Require().NoError(err)
	s.Len(atts, 2)

	_, err = s.svc.Endorse(s.ctx, c.ID, id.NewUserID(), "")
	s.True(dErrors.HasCode(err, dErrors.CodeClaimDisputed))

	_, err = s.svc.MarkDisputed(s.ctx, c.ID)
	s.True(dErrors.HasCode(err, dErrors.CodeDuplicateDispute))
}

func (s *ServiceSuite) TestDisputeResolutionOverturn() {
	c := s.createClaim()
	s.vouch(c.ID, nairobi)
	s.vouch(c.ID, nearNairobi)
	_, err := s.svc.Endorse(s.ctx, c.ID, id.NewUserID(), "")
	s.Require().NoError(err)

	snap, err := s.svc.MarkDisputed(s.ctx, c.ID)
	s.Require().NoError(err)

	got, err := s.svc.ApplyDisputeResolution(s.ctx, c.ID, OutcomeOverturn, snap)
	s.Require().NoError(err)
	s.Equal(StatusRejected, got.Status)
	s.Equal(ValidationPending, got.ValidationStatus)
	s.False(got.EndorsedByLeader)
	s.False(got.DisputeOpen)
	s.True(got.Closed())
}

func (s *ServiceSuite) TestDisputeResolutionRestoresEndorsedClaim() {
	c := s.createClaim()
	s.vouch(c.ID, nairobi)
	s.vouch(c.ID, nearNairobi)
	_, err := s.svc.Endorse(s.ctx, c.ID, id.NewUserID(), "")
	s.Require().NoError(err)

	snap, err := s.svc.MarkDisputed(s.ctx, c.ID)
	s.Require().NoError(err)
	s.Equal(StatusApproved, snap.Status)
	s.Equal(FullyValidated, snap.ValidationStatus)

	got, err := s.svc.ApplyDisputeResolution(s.ctx, c.ID, OutcomeRestore, snap)
	s.Require().NoError(err)
	s.Equal(StatusApproved, got.Status)
	s.Equal(FullyValidated, got.ValidationStatus)
	s.True(got.EndorsedByLeader)
}

func (s *ServiceSuite) TestDisputeResolutionRestoreRecountsFrozenVotes() {
	c := s.createClaim()
	s.vouch(c.ID, nairobi)

	snap, err := s.svc.MarkDisputed(s.ctx, c.ID)
	s.Require().NoError(err)

	// Second voucher arrives while the claim is frozen.
	_, _, err = s.svc.RecordAttestation(s.ctx, c.ID, AttestationInput{
		ValidatorID: id.NewValidatorID(),
		Location:    nearNairobi,
		Action:      attestation.ActionVouch,
	})
	s.Require().NoError(err)

	got, err := s.svc.ApplyDisputeResolution(s.ctx, c.ID, OutcomeRestore, snap)
	s.Require().NoError(err)
	s.Equal(PartiallyValidated, got.ValidationStatus)
	s.Equal(StatusValidated, got.Status)
	s.Equal(2, got.WitnessCount)
}

func (s *ServiceSuite) TestDisputeResolutionPinPartial() {
	c := s.createClaim()
	s.vouch(c.ID, nairobi)

	snap, err := s.svc.MarkDisputed(s.ctx, c.ID)
	s.Require().NoError(err)

	got, err := s.svc.ApplyDisputeResolution(s.ctx, c.ID, OutcomePinPartial, snap)
	s.Require().NoError(err)
	s.Equal(PartiallyValidated, got.ValidationStatus)
	s.Equal(StatusValidated, got.Status)
}

func (s *ServiceSuite) TestResolveWithoutOpenDispute() {
	c := s.createClaim()

	_, err := s.svc.ApplyDisputeResolution(s.ctx, c.ID, OutcomeRestore, Snapshot{})
	s.True(dErrors.HasCode(err, dErrors.CodeConflict))
}

func (s *ServiceSuite) TestValidationStateReadModel() {
	c := s.createClaim()
	s.vouch(c.ID, nairobi)
	s.vouch(c.ID, nearNairobi)

	st, err := s.svc.ValidationState(s.ctx, c.ID)
	s.Require().NoError(err)

	s.Equal(c.ID, st.ClaimID)
	s.Equal(PartiallyValidated, st.ValidationStatus)
	s.Equal(2, st.WitnessCount)
	s.Equal(2, st.Tally.Vouches)
	s.InDelta(100.0, st.VouchPercent, 0.01)
	s.Equal(ConfidenceVeryHigh, st.Confidence)
}
