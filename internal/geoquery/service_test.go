package geoquery

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
)

var (
	nairobi = geo.Point{Lat: -1.2921, Lon: 36.8219}
	thika   = geo.Point{Lat: -1.0333, Lon: 37.0693} // ~40 km northeast
	mombasa = geo.Point{Lat: -4.0435, Lon: 39.6682} // ~440 km southeast
)

type ServiceSuite struct {
	suite.Suite
	claims *claim.Service
	svc    *Service
	ctx    context.Context
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func (s *ServiceSuite) SetupTest() {
	logger := slog.Default()
	s.claims = claim.NewService(
		claim.NewInMemoryStore(),
		attestation.NewInMemoryStore(),
		trust.NewService(trust.NewInMemoryStore(), logger),
		notify.Noop{},
		claim.DefaultRules(),
		geo.SchemeStandard,
		logger,
	)
	s.svc = NewService(s.claims, geo.SchemeStandard, logger)
	s.ctx = context.Background()
}

func (s *ServiceSuite) addClaim(loc geo.Point) *claim.Claim {
	c, err := s.claims.Create(s.ctx, claim.CreateInput{
		OwnerID:      id.NewUserID(),
		Jurisdiction: "nairobi-west",
		Location:     loc,
	})
	s.Require().NoError(err)
	return c
}

func (s *ServiceSuite) TestNearbyClaimsSortedByDistance() {
	far := s.addClaim(thika)
	near := s.addClaim(geo.Point{Lat: nairobi.Lat + 0.01, Lon: nairobi.Lon})
	s.addClaim(mombasa) // outside any reasonable radius

	got, err := s.svc.NearbyClaims(s.ctx, NearbyInput{Origin: nairobi, RadiusKm: 50})
	s.Require().NoError(err)

	s.Require().Len(got, 2)
	s.Equal(near.ID, got[0].ClaimID)
	s.Equal(far.ID, got[1].ClaimID)
	s.Less(got[0].DistanceKm, got[1].DistanceKm)
	s.Equal(geo.TierVeryClose, got[0].Tier)
	s.Equal(geo.TierRegional, got[1].Tier)
	s.Equal("NE", got[1].Direction)
	s.Contains(got[1].Context, "northeast")
}

func (s *ServiceSuite) TestNearbyRadiusClamped() {
	s.addClaim(mombasa)

	// A 10000 km request clamps to the 100 km ceiling, excluding Mombasa.
	got, err := s.svc.NearbyClaims(s.ctx, NearbyInput{Origin: nairobi, RadiusKm: 10000})
	s.Require().NoError(err)
	s.Empty(got)
}

func (s *ServiceSuite) TestNearbyStatusAndTierFilters() {
	s.addClaim(geo.Point{Lat: nairobi.Lat + 0.01, Lon: nairobi.Lon})
	s.addClaim(thika)

	got, err := s.svc.NearbyClaims(s.ctx, NearbyInput{Origin: nairobi, Tier: geo.TierVeryClose})
	s.Require().NoError(err)
	s.Require().Len(got, 1)
	s.Equal(geo.TierVeryClose, got[0].Tier)

	got, err = s.svc.NearbyClaims(s.ctx, NearbyInput{Origin: nairobi, Status: claim.StatusApproved})
	s.Require().NoError(err)
	s.Empty(got)
}

func (s *ServiceSuite) TestNearbyInvalidOrigin() {
	_, err := s.svc.NearbyClaims(s.ctx, NearbyInput{Origin: geo.Point{Lat: 123, Lon: 0}})
	s.True(dErrors.HasCode(err, dErrors.CodeInvalidCoordinate))
}

func (s *ServiceSuite) TestNearbyCacheServesRepeatedQuery() {
	s.addClaim(thika)

	first, err := s.svc.NearbyClaims(s.ctx, NearbyInput{Origin: nairobi, RadiusKm: 50})
	s.Require().NoError(err)
	s.Len(first, 1)

	// A claim registered after the first query is invisible until the cache
	// entry expires.
	s.addClaim(geo.Point{Lat: nairobi.Lat + 0.01, Lon: nairobi.Lon})
	second, err := s.svc.NearbyClaims(s.ctx, NearbyInput{Origin: nairobi, RadiusKm: 50})
	s.Require().NoError(err)
	s.Len(second, 1)
}

func (s *ServiceSuite) TestDistanceWeight() {
	got, err := s.svc.DistanceWeight(nairobi, thika, "")
	s.Require().NoError(err)

	s.InDelta(40, got.DistanceKm, 5)
	s.Equal(geo.SchemeStandard, got.Scheme)
	s.Equal(geo.TierRegional, got.Tier)
	s.Greater(got.Weight, 0.0)
	s.Less(got.Weight, 1.0)
	s.Equal("NE", got.Direction)
}

func (s *ServiceSuite) TestVerifyValidatorLocation() {
	c := s.addClaim(nairobi)

	check, err := s.svc.VerifyValidatorLocation(s.ctx, c.ID, thika, 0)
	s.Require().NoError(err)
	s.True(check.WithinRange)
	s.Equal(MaxAttestRadiusKm, check.MaxDistanceKm)
	s.Equal(geo.TierRegional, check.Tier)

	check, err = s.svc.VerifyValidatorLocation(s.ctx, c.ID, mombasa, 0)
	s.Require().NoError(err)
	s.False(check.WithinRange)
	s.Equal(geo.TierFar, check.Tier)
}

func (s *ServiceSuite) TestVerifyLocationCustomMaxDistance() {
	c := s.addClaim(nairobi)

	// Thika sits ~40 km out: inside the default radius, outside a 25 km one.
	check, err := s.svc.VerifyValidatorLocation(s.ctx, c.ID, thika, 25)
	s.Require().NoError(err)
	s.False(check.WithinRange)
	s.Equal(25.0, check.MaxDistanceKm)

	check, err = s.svc.VerifyValidatorLocation(s.ctx, c.ID, mombasa, 500)
	s.Require().NoError(err)
	s.True(check.WithinRange)

	_, err = s.svc.VerifyValidatorLocation(s.ctx, c.ID, thika, -1)
	s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))
}

func (s *ServiceSuite) TestVerifyLocationUnknownClaim() {
	_, err := s.svc.VerifyValidatorLocation(s.ctx, id.NewClaimID(), nairobi, 0)
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
}

func (s *ServiceSuite) TestStatistics() {
	s.addClaim(geo.Point{Lat: nairobi.Lat + 0.01, Lon: nairobi.Lon})
	s.addClaim(thika)
	s.addClaim(mombasa)

	stats, err := s.svc.Statistics(s.ctx, nairobi)
	s.Require().NoError(err)

	s.Equal(3, stats.Total)
	s.Equal(1, stats.ByTier[geo.TierVeryClose])
	s.Equal(1, stats.ByTier[geo.TierRegional])
	s.Equal(1, stats.ByTier[geo.TierFar])
	s.Equal(3, stats.ByStatus[claim.StatusPending])
	s.Greater(stats.FarthestKm, 400.0)
	s.Less(stats.NearestKm, 2.0)
}

func (s *ServiceSuite) TestStatisticsEmpty() {
	stats, err := s.svc.Statistics(s.ctx, nairobi)
	s.Require().NoError(err)
	s.Zero(stats.Total)
	s.Zero(stats.AvgDistanceKm)
}
