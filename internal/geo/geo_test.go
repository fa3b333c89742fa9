package geo

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "shamba/pkg/domain-errors"
)

var nairobi = Point{Lat: -1.2921, Lon: 36.8219}

func TestDistance(t *testing.T) {
	t.Run("zero for identical points", func(t *testing.T) {
		d, err := Distance(nairobi, nairobi)
		require.NoError(t, err)
		assert.Equal(t, 0.0, d)
	})

	t.Run("known city pair", func(t *testing.T) {
		mombasa := Point{Lat: -4.0435, Lon: 39.6682}
		d, err := Distance(nairobi, mombasa)
		require.NoError(t, err)
		// Great-circle Nairobi-Mombasa is roughly 440 km.
		assert.InDelta(t, 440, d, 10)
	})

	t.Run("symmetric", func(t *testing.T) {
		a := Point{Lat: -1.30, Lon: 36.83}
		d1, err := Distance(nairobi, a)
		require.NoError(t, err)
		d2, err := Distance(a, nairobi)
		require.NoError(t, err)
		assert.Equal(t, d1, d2)
	})

	t.Run("rejects NaN", func(t *testing.T) {
		_, err := Distance(Point{Lat: math.NaN(), Lon: 0}, nairobi)
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidCoordinate))
	})

	t.Run("rejects out of range latitude", func(t *testing.T) {
		_, err := Distance(Point{Lat: 91, Lon: 0}, nairobi)
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidCoordinate))
	})

	t.Run("rejects out of range longitude", func(t *testing.T) {
		_, err := Distance(nairobi, Point{Lat: 0, Lon: -181})
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidCoordinate))
	})
}

func TestBearing(t *testing.T) {
	t.Run("due north", func(t *testing.T) {
		b, err := Bearing(Point{Lat: 0, Lon: 36}, Point{Lat: 1, Lon: 36})
		require.NoError(t, err)
		assert.Equal(t, 0.0, b)
	})

	t.Run("due east", func(t *testing.T) {
		b, err := Bearing(Point{Lat: 0, Lon: 36}, Point{Lat: 0, Lon: 37})
		require.NoError(t, err)
		assert.Equal(t, 90.0, b)
	})

	t.Run("range is 0 to 360", func(t *testing.T) {
		b, err := Bearing(Point{Lat: 0, Lon: 37}, Point{Lat: 0, Lon: 36})
		require.NoError(t, err)
		assert.Equal(t, 270.0, b)
	})
}

func TestCardinalDirection(t *testing.T) {
	cases := map[float64]string{
		0: "N", 44: "NE", 90: "E", 135: "SE",
		180: "S", 225: "SW", 270: "W", 315: "NW", 359: "N",
	}
	for bearing, want := range cases {
		assert.Equal(t, want, CardinalDirection(bearing), "bearing %v", bearing)
	}
}

func TestTierFor(t *testing.T) {
	cases := []struct {
		distance float64
		want     Tier
	}{
		{0, TierVeryClose},
		{5, TierVeryClose},
		{5.01, TierClose},
		{10, TierClose},
		{25, TierNearby},
		{50, TierRegional},
		{50.01, TierFar},
		{500, TierFar},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, TierFor(tc.distance), "distance %v", tc.distance)
	}
}

func TestWeight(t *testing.T) {
	t.Run("full weight on site", func(t *testing.T) {
		w, err := Weight(0, SchemeStandard)
		require.NoError(t, err)
		assert.Equal(t, 1.0, w)
	})

	t.Run("four km is roughly point nine", func(t *testing.T) {
		w, err := Weight(4, SchemeStandard)
		require.NoError(t, err)
		assert.InDelta(t, 0.9, w, 0.03)
	})

	t.Run("floor past the last breakpoint", func(t *testing.T) {
		w, err := Weight(400, SchemeStandard)
		require.NoError(t, err)
		assert.Equal(t, 0.2, w)
	})

	t.Run("monotonically non-increasing", func(t *testing.T) {
		for _, scheme := range []Scheme{SchemeStandard, SchemeStrict, SchemeLenient} {
			prev := math.Inf(1)
			for d := 0.0; d <= 200; d += 0.5 {
				w, err := Weight(d, scheme)
				require.NoError(t, err)
				assert.LessOrEqual(t, w, prev, "scheme %s distance %v", scheme, d)
				assert.Greater(t, w, 0.0)
				assert.LessOrEqual(t, w, 1.0)
				prev = w
			}
		}
	})

	t.Run("strict decays faster than lenient", func(t *testing.T) {
		strict, err := Weight(25, SchemeStrict)
		require.NoError(t, err)
		lenient, err := Weight(25, SchemeLenient)
		require.NoError(t, err)
		assert.Less(t, strict, lenient)
	})

	t.Run("rejects negative distance", func(t *testing.T) {
		_, err := Weight(-1, SchemeStandard)
		require.Error(t, err)
	})

	t.Run("rejects unknown scheme", func(t *testing.T) {
		_, err := Weight(1, Scheme("aggressive"))
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})
}

func TestParseScheme(t *testing.T) {
	s, err := ParseScheme("")
	require.NoError(t, err)
	assert.Equal(t, SchemeStandard, s)

	s, err = ParseScheme("lenient")
	require.NoError(t, err)
	assert.Equal(t, SchemeLenient, s)

	_, err = ParseScheme("nope")
	require.Error(t, err)
}

func TestPolygonAreaHectares(t *testing.T) {
	t.Run("degenerate ring", func(t *testing.T) {
		assert.Equal(t, 0.0, PolygonAreaHectares([]Point{nairobi, nairobi}))
	})

	t.Run("roughly one hectare square", func(t *testing.T) {
		// 100m x 100m square near the equator: ~0.0009 degrees per 100m.
		d := 0.0009
		ring := []Point{
			{Lat: -1.2921, Lon: 36.8219},
			{Lat: -1.2921 + d, Lon: 36.8219},
			{Lat: -1.2921 + d, Lon: 36.8219 + d},
			{Lat: -1.2921, Lon: 36.8219 + d},
			{Lat: -1.2921, Lon: 36.8219}, // closed ring
		}
		area := PolygonAreaHectares(ring)
		assert.InDelta(t, 1.0, area, 0.1)
	})
}

func TestFormatDistance(t *testing.T) {
	assert.Equal(t, "250 m", FormatDistance(0.25))
	assert.Equal(t, "1.2 km", FormatDistance(1.2))
}

func TestLocationContext(t *testing.T) {
	assert.Equal(t, "1.2 km to the north", LocationContext(1.2, "N"))
}
