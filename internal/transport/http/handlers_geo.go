package httptransport

import (
	"net/http"
	"strconv"
	"time"

	"shamba/internal/claim"
	"shamba/internal/geo"
	"shamba/internal/geoquery"
	id "shamba/pkg/domain"
	dErrors "shamba/pkg/domain-errors"
)

func queryFloat(r *http.Request, name string, required bool) (float64, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		if required {
			return 0, dErrors.Newf(dErrors.CodeInvalidInput, "query parameter %q is required", name)
		}
		return 0, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, dErrors.Newf(dErrors.CodeInvalidInput, "query parameter %q is not a number", name)
	}
	return v, nil
}

func (h *handler) handleNearbyClaims(w http.ResponseWriter, r *http.Request) {
	lat, err := queryFloat(r, "lat", true)
	if err != nil {
		writeError(w, err)
		return
	}
	lon, err := queryFloat(r, "lon", true)
	if err != nil {
		writeError(w, err)
		return
	}
	radius, err := queryFloat(r, "radius_km", false)
	if err != nil {
		writeError(w, err)
		return
	}
	status, err := claim.ParseStatus(r.URL.Query().Get("status"))
	if err != nil {
		writeError(w, err)
		return
	}
	tier, err := geo.ParseTier(r.URL.Query().Get("tier"))
	if err != nil {
		writeError(w, err)
		return
	}

	start := time.Now()
	results, err := h.geo.NearbyClaims(r.Context(), geoquery.NearbyInput{
		Origin:   geo.Point{Lat: lat, Lon: lon},
		RadiusKm: radius,
		Status:   status,
		Tier:     tier,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	h.metrics.ObserveNearbyQuery(time.Since(start))
	writeJSON(w, http.StatusOK, map[string]any{
		"count":  len(results),
		"claims": results,
	})
}

func (h *handler) handleDistanceWeight(w http.ResponseWriter, r *http.Request) {
	originLat, err := queryFloat(r, "origin_lat", true)
	if err != nil {
		writeError(w, err)
		return
	}
	originLon, err := queryFloat(r, "origin_lon", true)
	if err != nil {
		writeError(w, err)
		return
	}
	targetLat, err := queryFloat(r, "target_lat", true)
	if err != nil {
		writeError(w, err)
		return
	}
	targetLon, err := queryFloat(r, "target_lon", true)
	if err != nil {
		writeError(w, err)
		return
	}
	scheme, err := geo.ParseScheme(r.URL.Query().Get("scheme"))
	if err != nil {
		writeError(w, err)
		return
	}

	report, err := h.geo.DistanceWeight(
		geo.Point{Lat: originLat, Lon: originLon},
		geo.Point{Lat: targetLat, Lon: targetLon},
		scheme,
	)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

type verifyLocationRequest struct {
	ClaimID       string  `json:"claim_id"`
	Lat           float64 `json:"lat"`
	Lon           float64 `json:"lon"`
	MaxDistanceKm float64 `json:"max_distance_km,omitempty"`
}

func (h *handler) handleVerifyLocation(w http.ResponseWriter, r *http.Request) {
	var req verifyLocationRequest
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	claimID, err := id.ParseClaimID(req.ClaimID)
	if err != nil {
		writeError(w, err)
		return
	}

	check, err := h.geo.VerifyValidatorLocation(r.Context(), claimID, geo.Point{Lat: req.Lat, Lon: req.Lon}, req.MaxDistanceKm)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, check)
}

func (h *handler) handleGeoStatistics(w http.ResponseWriter, r *http.Request) {
	lat, err := queryFloat(r, "lat", true)
	if err != nil {
		writeError(w, err)
		return
	}
	lon, err := queryFloat(r, "lon", true)
	if err != nil {
		writeError(w, err)
		return
	}

	stats, err := h.geo.Statistics(r.Context(), geo.Point{Lat: lat, Lon: lon})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}
