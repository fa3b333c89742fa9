package dispute

import (
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/suite"

	"shamba/internal/attestation"
	"shamba/internal/claim"
	"shamba/internal/geo"
	"shamba/internal/notify"
	"shamba/internal/trust"
	id "shamba/pkg/domain"
	dErrors "shamba/pkg/domain-errors"
	"shamba/pkg/requestcontext"
)

var (
	claimSite    = geo.Point{Lat: -1.2921, Lon: 36.8219}
	witnessSite  = geo.Point{Lat: -1.2561, Lon: 36.8219}
	jurisdiction = "nairobi-west"
)

type ServiceSuite struct {
	suite.Suite
	claims     *claim.Service
	trustStore *trust.InMemoryStore
	rec        *notify.Recorder
	svc        *Service
	ctx        context.Context
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func (s *ServiceSuite) SetupTest() {
	logger := slog.Default()
	s.trustStore = trust.NewInMemoryStore()
	s.rec = notify.NewRecorder()
	trustSvc := trust.NewService(s.trustStore, logger)
	s.claims = claim.NewService(
		claim.NewInMemoryStore(),
		attestation.NewInMemoryStore(),
		trustSvc,
		s.rec,
		claim.DefaultRules(),
		geo.SchemeStandard,
		logger,
	)
	s.svc = NewService(NewInMemoryStore(), s.claims, trustSvc, s.rec, logger)
	s.ctx = context.Background()
}

func (s *ServiceSuite) member() requestcontext.CallerIdentity {
	return requestcontext.CallerIdentity{
		UserID:       id.NewUserID(),
		Role:         id.RoleCommunityMember,
		Jurisdiction: jurisdiction,
	}
}

func (s *ServiceSuite) adjudicator() requestcontext.CallerIdentity {
	return requestcontext.CallerIdentity{
		UserID:       id.NewUserID(),
		Role:         id.RoleAdmin,
		Jurisdiction: jurisdiction,
	}
}

func (s *ServiceSuite) newClaim() *claim.Claim {
	c, err := s.claims.Create(s.ctx, claim.CreateInput{
		OwnerID:      id.NewUserID(),
		Jurisdiction: jurisdiction,
		Location:     claimSite,
	})
	s.Require().NoError(err)
	return c
}

// endorsedClaim drives a claim all the way to approved.
func (s *ServiceSuite) endorsedClaim() *claim.Claim {
	c := s.newClaim()
	for _, loc := range []geo.Point{claimSite, witnessSite} {
		_, _, err := s.claims.RecordAttestation(s.ctx, c.ID, claim.AttestationInput{
			ValidatorID: id.NewValidatorID(),
			Location:    loc,
			Action:      attestation.ActionVouch,
		})
		s.Require().NoError(err)
	}
	endorsed, err := s.claims.Endorse(s.ctx, c.ID, id.NewUserID(), "")
	s.Require().NoError(err)
	return endorsed
}

func (s *ServiceSuite) openDispute(claimID id.ClaimID, by requestcontext.CallerIdentity) *Dispute {
	d, err := s.svc.Open(s.ctx, OpenInput{
		ClaimID:     claimID,
		Type:        TypeBoundary,
		Description: "fence crosses the riverbed marker",
		Priority:    PriorityHigh,
	}, by)
	s.Require().NoError(err)
	return d
}

func (s *ServiceSuite) TestOpen() {
	c := s.newClaim()
	disputer := s.member()

	d := s.openDispute(c.ID, disputer)

	s.Equal(StatusOpen, d.Status)
	s.Equal(c.ID, d.ClaimID)
	s.Equal(disputer.UserID, d.CreatedBy)
	s.Equal(claim.StatusPending, d.PriorStatus)

	s.Require().Len(d.Parties, 2)
	s.Equal(PartyDisputer, d.Parties[0].Role)
	s.Equal(disputer.UserID, d.Parties[0].UserID)
	s.Equal(PartyClaimant, d.Parties[1].Role)
	s.Equal(c.OwnerID, d.Parties[1].UserID)

	got, err := s.claims.Get(s.ctx, c.ID)
	s.Require().NoError(err)
	s.Equal(claim.StatusDisputed, got.Status)
	s.True(got.DisputeOpen)
}

func (s *ServiceSuite) TestOpenValidation() {
	c := s.newClaim()

	_, err := s.svc.Open(s.ctx, OpenInput{ClaimID: c.ID, Type: TypeOther, Description: "x"}, requestcontext.CallerIdentity{})
	s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))

	_, err = s.svc.Open(s.ctx, OpenInput{ClaimID: c.ID, Type: TypeOther}, s.member())
	s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))

	_, err = s.svc.Open(s.ctx, OpenInput{ClaimID: id.NewClaimID(), Type: TypeOther, Description: "x"}, s.member())
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
}

func (s *ServiceSuite) TestSecondOpenDisputeRejected() {
	c := s.newClaim()
	first := s.openDispute(c.ID, s.member())

	_, err := s.svc.Open(s.ctx, OpenInput{
		ClaimID:     c.ID,
		Type:        TypeOwnership,
		Description: "different grievance",
	}, s.member())
	s.True(dErrors.HasCode(err, dErrors.CodeDuplicateDispute))

	// The original dispute is untouched.
	got, err := s.svc.Get(s.ctx, first.ID)
	s.Require().NoError(err)
	s.Equal(StatusOpen, got.Status)
	s.Equal(TypeBoundary, got.Type)
}

func (s *ServiceSuite) TestSubmitEvidence() {
	c := s.newClaim()
	d := s.openDispute(c.ID, s.member())
	witness := s.member()

	got, err := s.svc.SubmitEvidence(s.ctx, d.ID, EvidenceInput{
		Type:        EvidencePhoto,
		Description: "photo of the old boundary stone",
		FileRef:     "uploads/stone.jpg",
	}, witness)
	s.Require().NoError(err)

	s.Require().Len(got.Evidence, 1)
	s.Equal(EvidencePhoto, got.Evidence[0].Type)
	s.Equal(witness.UserID, got.Evidence[0].SubmitterID)

	// A new submitter joins the dispute as a witness party.
	s.Require().Len(got.Parties, 3)
	s.Equal(PartyWitness, got.Parties[2].Role)
}

func (s *ServiceSuite) TestEvidenceRequiresDescription() {
	c := s.newClaim()
	d := s.openDispute(c.ID, s.member())

	_, err := s.svc.SubmitEvidence(s.ctx, d.ID, EvidenceInput{Type: EvidenceDocument}, s.member())
	s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))
}

func (s *ServiceSuite) TestAssign() {
	c := s.newClaim()
	d := s.openDispute(c.ID, s.member())
	investigator := id.NewUserID()

	_, err := s.svc.Assign(s.ctx, d.ID, investigator, s.member())
	s.True(dErrors.HasCode(err, dErrors.CodeForbidden))

	got, err := s.svc.Assign(s.ctx, d.ID, investigator, s.adjudicator())
	s.Require().NoError(err)
	s.Equal(StatusInvestigating, got.Status)
	s.Equal(investigator, got.AssignedTo)
}

func (s *ServiceSuite) TestResolveDismissedRestoresClaim() {
	c := s.endorsedClaim()
	disputer := s.member()
	d := s.openDispute(c.ID, disputer)

	got, err := s.svc.Resolve(s.ctx, d.ID, ResolveInput{
		Decision: DecisionDismissed,
		Summary:  "no evidence of boundary conflict",
	}, s.adjudicator())
	s.Require().NoError(err)
	s.Equal(StatusResolved, got.Status)
	s.Require().NotNil(got.Resolution)
	s.Equal(DecisionDismissed, got.Resolution.Decision)

	// The claim comes back exactly as it was before the dispute.
	restored, err := s.claims.Get(s.ctx, c.ID)
	s.Require().NoError(err)
	s.Equal(claim.StatusApproved, restored.Status)
	s.Equal(claim.FullyValidated, restored.ValidationStatus)
	s.False(restored.DisputeOpen)

	// The disputer pays the dismissal penalty.
	p, err := s.trustStore.Get(s.ctx, id.ValidatorID(disputer.UserID))
	s.Require().NoError(err)
	s.InDelta(trust.InitialScore-trust.DismissedPenalty, p.TrustScore, 0.001)
	s.Equal(1, p.DisputesRaised)
	s.Equal(0, p.DisputesUpheld)
}

func (s *ServiceSuite) TestResolvePublishesTrustOutcome() {
	c := s.endorsedClaim()
	disputer := s.member()
	d := s.openDispute(c.ID, disputer)

	_, err := s.svc.Resolve(s.ctx, d.ID, ResolveInput{
		Decision: DecisionDismissed,
		Summary:  "no evidence of boundary conflict",
	}, s.adjudicator())
	s.Require().NoError(err)

	var got *notify.Event
	for _, e := range s.rec.Events() {
		if e.Type == notify.EventValidationOutcome {
			got = &e
		}
	}
	s.Require().NotNil(got, "expected a validation_outcome event")
	s.Equal(c.ID.String(), got.ClaimID)
	s.Equal(d.ID.String(), got.DisputeID)
	s.Equal(disputer.UserID.String(), got.Subject)
	s.Equal(string(DecisionDismissed), got.Detail["decision"])
	s.Equal("47", got.Detail["trust_score"])
}

func (s *ServiceSuite) TestResolveUpheldOverturnsClaim() {
	c := s.endorsedClaim()
	disputer := s.member()
	d := s.openDispute(c.ID, disputer)

	_, err := s.svc.Resolve(s.ctx, d.ID, ResolveInput{
		Decision: DecisionUpheld,
		Summary:  "surveyed boundary contradicts the claim",
	}, s.adjudicator())
	s.Require().NoError(err)

	overturned, err := s.claims.Get(s.ctx, c.ID)
	s.Require().NoError(err)
	s.Equal(claim.StatusRejected, overturned.Status)
	s.False(overturned.EndorsedByLeader)

	p, err := s.trustStore.Get(s.ctx, id.ValidatorID(disputer.UserID))
	s.Require().NoError(err)
	s.InDelta(trust.InitialScore+trust.UpheldBonus, p.TrustScore, 0.001)
	s.Equal(1, p.DisputesUpheld)
	s.Equal(1, p.Streak)
}

func (s *ServiceSuite) TestResolveMediatedPinsPartial() {
	c := s.endorsedClaim()
	d := s.openDispute(c.ID, s.member())

	_, err := s.svc.Resolve(s.ctx, d.ID, ResolveInput{
		Decision: DecisionMediated,
		Summary:  "parties agreed on a shared access path",
	}, s.adjudicator())
	s.Require().NoError(err)

	got, err := s.claims.Get(s.ctx, c.ID)
	s.Require().NoError(err)
	s.Equal(claim.PartiallyValidated, got.ValidationStatus)
	s.Equal(claim.StatusValidated, got.Status)
}

func (s *ServiceSuite) TestResolveIsWriteOnce() {
	c := s.newClaim()
	d := s.openDispute(c.ID, s.member())

	first, err := s.svc.Resolve(s.ctx, d.ID, ResolveInput{
		Decision: DecisionDismissed,
		Summary:  "first verdict",
	}, s.adjudicator())
	s.Require().NoError(err)

	_, err = s.svc.Resolve(s.ctx, d.ID, ResolveInput{
		Decision: DecisionUpheld,
		Summary:  "second verdict",
	}, s.adjudicator())
	s.True(dErrors.HasCode(err, dErrors.CodeAlreadyResolved))

	got, err := s.svc.Get(s.ctx, d.ID)
	s.Require().NoError(err)
	s.Equal(first.Resolution.Summary, got.Resolution.Summary)
}

func (s *ServiceSuite) TestResolveRequiresSummary() {
	c := s.newClaim()
	d := s.openDispute(c.ID, s.member())

	_, err := s.svc.Resolve(s.ctx, d.ID, ResolveInput{Decision: DecisionDismissed}, s.adjudicator())
	s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))
}

func (s *ServiceSuite) TestEvidenceAfterResolutionRejected() {
	c := s.newClaim()
	d := s.openDispute(c.ID, s.member())

	_, err := s.svc.Resolve(s.ctx, d.ID, ResolveInput{
		Decision: DecisionDismissed,
		Summary:  "done",
	}, s.adjudicator())
	s.Require().NoError(err)

	_, err = s.svc.SubmitEvidence(s.ctx, d.ID, EvidenceInput{
		Type:        EvidenceTestimony,
		Description: "late statement",
	}, s.member())
	s.True(dErrors.HasCode(err, dErrors.CodeDisputeClosed))
}

func (s *ServiceSuite) TestCloseRestoresWithoutTrustOutcome() {
	c := s.newClaim()
	disputer := s.member()
	d := s.openDispute(c.ID, disputer)

	got, err := s.svc.Close(s.ctx, d.ID, s.adjudicator())
	s.Require().NoError(err)
	s.Equal(StatusClosed, got.Status)

	restored, err := s.claims.Get(s.ctx, c.ID)
	s.Require().NoError(err)
	s.Equal(claim.StatusPending, restored.Status)
	s.False(restored.DisputeOpen)

	// Withdrawal settles no trust outcome for the disputer.
	_, err = s.trustStore.Get(s.ctx, id.ValidatorID(disputer.UserID))
	s.Error(err)

	_, err = s.svc.Close(s.ctx, d.ID, s.adjudicator())
	s.True(dErrors.HasCode(err, dErrors.CodeDisputeClosed))
}

func (s *ServiceSuite) TestReopenAfterResolutionAllowsNewDispute() {
	c := s.newClaim()
	d := s.openDispute(c.ID, s.member())

	_, err := s.svc.Resolve(s.ctx, d.ID, ResolveInput{
		Decision: DecisionDismissed,
		Summary:  "insufficient evidence",
	}, s.adjudicator())
	s.Require().NoError(err)

	// The first dispute is terminal, so a fresh one may be filed.
	second := s.openDispute(c.ID, s.member())
	s.NotEqual(d.ID, second.ID)

	disputes, err := s.svc.ListByClaim(s.ctx, c.ID)
	s.Require().NoError(err)
	s.Len(disputes, 2)
}
