// Package geoquery serves the read-side geography queries: nearby claims,
// ad-hoc distance weighting, validator location verification and tier
// statistics. Everything here is derived and cacheable; nothing mutates
// engine state.
package geoquery

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"shamba/internal/claim"
	"shamba/internal/geo"
	id "shamba/pkg/domain"
	dErrors "shamba/pkg/domain-errors"
)

const (
	// MaxRadiusKm caps nearby searches; larger requests are clamped, not
	// rejected.
	MaxRadiusKm = 100.0

	// MaxAttestRadiusKm is the default attestation radius, used when the
	// caller does not supply a maximum distance.
	MaxAttestRadiusKm = 50.0

	cacheTTL     = 30 * time.Second
	cacheCleanup = time.Minute
)

type Service struct {
	claims *claim.Service
	cache  *gocache.Cache
	scheme geo.Scheme
	logger *slog.Logger
}

func NewService(claims *claim.Service, scheme geo.Scheme, logger *slog.Logger) *Service {
	return &Service{
		claims: claims,
		cache:  gocache.New(cacheTTL, cacheCleanup),
		scheme: scheme,
		logger: logger,
	}
}

// NearbyClaim is one search hit, positioned relative to the query origin.
type NearbyClaim struct {
	ClaimID          id.ClaimID             `json:"claim_id"`
	Status           claim.Status           `json:"status"`
	ValidationStatus claim.ValidationStatus `json:"validation_status"`
	Location         geo.Point              `json:"location"`
	DistanceKm       float64                `json:"distance_km"`
	Tier             geo.Tier               `json:"tier"`
	Bearing          float64                `json:"bearing"`
	Direction        string                 `json:"direction"`
	Context          string                 `json:"context"`
}

// NearbyInput narrows a nearby search. Zero values mean no filter.
type NearbyInput struct {
	Origin   geo.Point
	RadiusKm float64
	Status   claim.Status
	Tier     geo.Tier
}

// NearbyClaims returns claims within the radius, nearest first. Results are
// cached briefly; a claim registered in the last thirty seconds may be
// missing from a repeated identical query.
func (s *Service) NearbyClaims(ctx context.Context, in NearbyInput) ([]NearbyClaim, error) {
	if err := in.Origin.Validate(); err != nil {
		return nil, err
	}
	radius := in.RadiusKm
	if radius <= 0 || radius > MaxRadiusKm {
		radius = MaxRadiusKm
	}
	if in.Tier != "" {
		radius = min(radius, geo.RadiusForTier(in.Tier, MaxRadiusKm))
	}

	key := fmt.Sprintf("nearby:%.4f:%.4f:%.1f:%s:%s", in.Origin.Lat, in.Origin.Lon, radius, in.Status, in.Tier)
	if hit, ok := s.cache.Get(key); ok {
		return hit.([]NearbyClaim), nil
	}

	claims, err := s.claims.List(ctx)
	if err != nil {
		return nil, err
	}

	results := make([]NearbyClaim, 0, len(claims))
	for _, c := range claims {
		if in.Status != "" && c.Status != in.Status {
			continue
		}
		hit, ok, err := s.position(in.Origin, &c)
		if err != nil {
			return nil, err
		}
		if !ok || hit.DistanceKm > radius {
			continue
		}
		if in.Tier != "" && hit.Tier != in.Tier {
			continue
		}
		results = append(results, hit)
	}
	sort.Slice(results, func(i, j int) bool {
		return results[i].DistanceKm < results[j].DistanceKm
	})

	s.cache.Set(key, results, gocache.DefaultExpiration)
	return results, nil
}

func (s *Service) position(origin geo.Point, c *claim.Claim) (NearbyClaim, bool, error) {
	distance, err := geo.Distance(origin, c.Location)
	if err != nil {
		return NearbyClaim{}, false, err
	}
	bearing, err := geo.Bearing(origin, c.Location)
	if err != nil {
		return NearbyClaim{}, false, err
	}
	direction := geo.CardinalDirection(bearing)
	return NearbyClaim{
		ClaimID:          c.ID,
		Status:           c.Status,
		ValidationStatus: c.ValidationStatus,
		Location:         c.Location,
		DistanceKm:       distance,
		Tier:             geo.TierFor(distance),
		Bearing:          bearing,
		Direction:        direction,
		Context:          geo.LocationContext(distance, direction),
	}, true, nil
}

// WeightReport is the ad-hoc weighting answer for a pair of points.
type WeightReport struct {
	DistanceKm float64    `json:"distance_km"`
	Tier       geo.Tier   `json:"tier"`
	Weight     float64    `json:"weight"`
	Scheme     geo.Scheme `json:"scheme"`
	Bearing    float64    `json:"bearing"`
	Direction  string     `json:"direction"`
}

// DistanceWeight computes the attestation weight between two points under a
// scheme, defaulting to the engine's configured one.
func (s *Service) DistanceWeight(origin, target geo.Point, scheme geo.Scheme) (WeightReport, error) {
	if scheme == "" {
		scheme = s.scheme
	}
	distance, err := geo.Distance(origin, target)
	if err != nil {
		return WeightReport{}, err
	}
	weight, err := geo.Weight(distance, scheme)
	if err != nil {
		return WeightReport{}, err
	}
	bearing, err := geo.Bearing(origin, target)
	if err != nil {
		return WeightReport{}, err
	}
	return WeightReport{
		DistanceKm: distance,
		Tier:       geo.TierFor(distance),
		Weight:     weight,
		Scheme:     scheme,
		Bearing:    bearing,
		Direction:  geo.CardinalDirection(bearing),
	}, nil
}

// LocationCheck answers whether a validator standing at a point may attest
// to a claim, and with what weight if so.
type LocationCheck struct {
	ClaimID       id.ClaimID `json:"claim_id"`
	DistanceKm    float64    `json:"distance_km"`
	Tier          geo.Tier   `json:"tier"`
	Weight        float64    `json:"weight"`
	MaxDistanceKm float64    `json:"max_distance_km"`
	WithinRange   bool       `json:"within_range"`
	Context       string     `json:"context"`
}

// VerifyValidatorLocation checks a validator's standing position against a
// claim. maxDistanceKm overrides the attestation radius; zero means the
// default.
func (s *Service) VerifyValidatorLocation(ctx context.Context, claimID id.ClaimID, validatorLoc geo.Point, maxDistanceKm float64) (LocationCheck, error) {
	if maxDistanceKm < 0 {
		return LocationCheck{}, dErrors.New(dErrors.CodeInvalidInput, "max distance cannot be negative")
	}
	if maxDistanceKm == 0 {
		maxDistanceKm = MaxAttestRadiusKm
	}
	if err := validatorLoc.Validate(); err != nil {
		return LocationCheck{}, err
	}
	c, err := s.claims.Get(ctx, claimID)
	if err != nil {
		return LocationCheck{}, err
	}
	distance, err := geo.Distance(validatorLoc, c.Location)
	if err != nil {
		return LocationCheck{}, err
	}
	weight, err := geo.Weight(distance, s.scheme)
	if err != nil {
		return LocationCheck{}, err
	}
	bearing, err := geo.Bearing(c.Location, validatorLoc)
	if err != nil {
		return LocationCheck{}, err
	}
	return LocationCheck{
		ClaimID:       claimID,
		DistanceKm:    distance,
		Tier:          geo.TierFor(distance),
		Weight:        weight,
		MaxDistanceKm: maxDistanceKm,
		WithinRange:   distance <= maxDistanceKm,
		Context:       geo.LocationContext(distance, geo.CardinalDirection(bearing)),
	}, nil
}

// Statistics summarizes the claim landscape around a point.
type Statistics struct {
	Total         int                  `json:"total"`
	ByTier        map[geo.Tier]int     `json:"by_tier"`
	ByStatus      map[claim.Status]int `json:"by_status"`
	AvgDistanceKm float64              `json:"avg_distance_km"`
	NearestKm     float64              `json:"nearest_km"`
	FarthestKm    float64              `json:"farthest_km"`
}

func (s *Service) Statistics(ctx context.Context, origin geo.Point) (Statistics, error) {
	if err := origin.Validate(); err != nil {
		return Statistics{}, err
	}

	key := fmt.Sprintf("stats:%.4f:%.4f", origin.Lat, origin.Lon)
	if hit, ok := s.cache.Get(key); ok {
		return hit.(Statistics), nil
	}

	claims, err := s.claims.List(ctx)
	if err != nil {
		return Statistics{}, err
	}

	stats := Statistics{
		ByTier:   make(map[geo.Tier]int),
		ByStatus: make(map[claim.Status]int),
	}
	var sum float64
	for i, c := range claims {
		distance, err := geo.Distance(origin, c.Location)
		if err != nil {
			return Statistics{}, dErrors.Wrap(err, dErrors.CodeInternal, "stored claim has invalid coordinates")
		}
		stats.Total++
		stats.ByTier[geo.TierFor(distance)]++
		stats.ByStatus[c.Status]++
		sum += distance
		if i == 0 || distance < stats.NearestKm {
			stats.NearestKm = distance
		}
		if distance > stats.FarthestKm {
			stats.FarthestKm = distance
		}
	}
	if stats.Total > 0 {
		stats.AvgDistanceKm = round2(sum / float64(stats.Total))
	}

	s.cache.Set(key, stats, gocache.DefaultExpiration)
	return stats, nil
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
