package geo

import dErrors "shamba/pkg/domain-errors"

// Tier buckets a distance for filtering and display. Tiers are ordered:
// very_close < close < nearby < regional < far.
type Tier string

const (
	TierVeryClose Tier = "very_close"
	TierClose     Tier = "close"
	TierNearby    Tier = "nearby"
	TierRegional  Tier = "regional"
	TierFar       Tier = "far"
)

// Tier boundaries in kilometers.
const (
	tierVeryCloseKm = 5.0
	tierCloseKm     = 10.0
	tierNearbyKm    = 25.0
	tierRegionalKm  = 50.0
)

var validTiers = map[Tier]bool{
	TierVeryClose: true,
	TierClose:     true,
	TierNearby:    true,
	TierRegional:  true,
	TierFar:       true,
}

// ParseTier validates a tier name. Empty input means no tier filter.
func ParseTier(s string) (Tier, error) {
	if s == "" {
		return "", nil
	}
	t := Tier(s)
	if !validTiers[t] {
		return "", dErrors.Newf(dErrors.CodeInvalidInput, "unknown distance tier %q", s)
	}
	return t, nil
}

// TierFor buckets a distance into its tier.
func TierFor(distanceKm float64) Tier {
	switch {
	case distanceKm <= tierVeryCloseKm:
		return TierVeryClose
	case distanceKm <= tierCloseKm:
		return TierClose
	case distanceKm <= tierNearbyKm:
		return TierNearby
	case distanceKm <= tierRegionalKm:
		return TierRegional
	default:
		return TierFar
	}
}

// RadiusForTier returns the outer radius of a tier, used when a caller asks
// for "claims in tier X" instead of an explicit radius. far maps to the
// maximum search radius.
func RadiusForTier(t Tier, maxRadiusKm float64) float64 {
	switch t {
	case TierVeryClose:
		return tierVeryCloseKm
	case TierClose:
		return tierCloseKm
	case TierNearby:
		return tierNearbyKm
	case TierRegional:
		return tierRegionalKm
	default:
		return maxRadiusKm
	}
}
