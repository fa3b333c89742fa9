package geo

import (
	dErrors "shamba/pkg/domain-errors"
)

// Scheme names a distance-decay curve. The curve itself is a breakpoint
// table, not code, so operators can tune trust falloff without touching
// callers.
type Scheme string

const (
	SchemeStandard Scheme = "standard"
	SchemeStrict   Scheme = "strict"
	SchemeLenient  Scheme = "lenient"
)

// breakpoint pins the weight at a given distance. Between breakpoints the
// weight is linearly interpolated; past the last breakpoint it stays at the
// floor. Weights must be in (0,1] and non-increasing with distance.
type breakpoint struct {
	distanceKm float64
	weight     float64
}

var schemes = map[Scheme][]breakpoint{
	// standard decays gently: full trust on-site, 0.9 at the very_close
	// boundary, floor 0.2 past 50 km.
	SchemeStandard: {
		{0, 1.0},
		{tierVeryCloseKm, 0.9},
		{tierCloseKm, 0.75},
		{tierNearbyKm, 0.5},
		{tierRegionalKm, 0.35},
		{100, 0.2},
	},
	// strict favors immediate neighbors heavily.
	SchemeStrict: {
		{0, 1.0},
		{2, 0.9},
		{tierVeryCloseKm, 0.7},
		{tierCloseKm, 0.45},
		{tierNearbyKm, 0.2},
		{tierRegionalKm, 0.1},
	},
	// lenient accepts regional validators at meaningful weight.
	SchemeLenient: {
		{0, 1.0},
		{tierCloseKm, 0.95},
		{tierNearbyKm, 0.8},
		{tierRegionalKm, 0.6},
		{100, 0.4},
	},
}

// ParseScheme validates a scheme name, defaulting empty input to standard.
func ParseScheme(s string) (Scheme, error) {
	if s == "" {
		return SchemeStandard, nil
	}
	sc := Scheme(s)
	if _, ok := schemes[sc]; !ok {
		return "", dErrors.Newf(dErrors.CodeInvalidInput, "unknown weight scheme %q", s)
	}
	return sc, nil
}

// Weight maps a distance to a trust-contribution multiplier in (0,1] under
// the given scheme. Monotonically non-increasing in distance.
func Weight(distanceKm float64, scheme Scheme) (float64, error) {
	if distanceKm < 0 {
		return 0, dErrors.New(dErrors.CodeInvalidInput, "distance cannot be negative")
	}
	table, ok := schemes[scheme]
	if !ok {
		return 0, dErrors.Newf(dErrors.CodeInvalidInput, "unknown weight scheme %q", scheme)
	}

	if distanceKm >= table[len(table)-1].distanceKm {
		return table[len(table)-1].weight, nil
	}
	for i := 1; i < len(table); i++ {
		if distanceKm <= table[i].distanceKm {
			lo, hi := table[i-1], table[i]
			frac := (distanceKm - lo.distanceKm) / (hi.distanceKm - lo.distanceKm)
			return round2(lo.weight + frac*(hi.weight-lo.weight)), nil
		}
	}
	return table[len(table)-1].weight, nil
}
