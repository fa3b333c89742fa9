// Package httptransport is the thin HTTP layer over the engine services. It
// decodes requests, resolves the caller identity, delegates, and encodes the
// result; no business logic lives here.
package httptransport

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"shamba/internal/claim"
	"shamba/internal/dispute"
	"shamba/internal/endorsement"
	"shamba/internal/geoquery"
	"shamba/internal/platform/metrics"
	"shamba/internal/platform/middleware"
	"shamba/internal/trust"
)

// Deps bundles everything the router needs.
type Deps struct {
	Claims    *claim.Service
	Gate      *endorsement.Gate
	Disputes  *dispute.Service
	Geo       *geoquery.Service
	Trust     *trust.Service
	Validator middleware.TokenValidator
	Metrics   *metrics.Metrics
	Logger    *slog.Logger
	RateRPS   float64
	RateBurst int
	Health    func() error
}

// NewRouter wires the full API surface behind the standard middleware chain.
func NewRouter(d Deps) http.Handler {
	h := &handler{
		claims:   d.Claims,
		gate:     d.Gate,
		disputes: d.Disputes,
		geo:      d.Geo,
		trust:    d.Trust,
		metrics:  d.Metrics,
		logger:   d.Logger,
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RequestTime)
	r.Use(middleware.Recovery(d.Logger))
	r.Use(middleware.Logger(d.Logger, d.Metrics))
	r.Use(chimw.Timeout(30 * time.Second))
	r.Use(chimw.AllowContentType("application/json"))
	if d.RateRPS > 0 {
		r.Use(middleware.RateLimit(d.RateRPS, d.RateBurst))
	}

	r.Get("/healthz", h.handleHealth(d.Health))
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Group(func(r chi.Router) {
		if d.Validator != nil {
			r.Use(middleware.RequireAuth(d.Validator, d.Logger))
		}

		r.Route("/claims", func(r chi.Router) {
			r.Post("/", h.handleCreateClaim)
			r.Route("/{claimID}", func(r chi.Router) {
				r.Get("/", h.handleGetClaim)
				r.Get("/validation-state", h.handleValidationState)
				r.Post("/attestations", h.handleRecordAttestation)
				r.Get("/attestations", h.handleListAttestations)
				r.Post("/endorse", h.handleEndorse)
				r.Post("/reject", h.handleReject)
				r.Get("/endorsements", h.handleListEndorsements)
				r.Get("/disputes", h.handleListClaimDisputes)
			})
		})

		r.Route("/disputes", func(r chi.Router) {
			r.Post("/", h.handleOpenDispute)
			r.Route("/{disputeID}", func(r chi.Router) {
				r.Get("/", h.handleGetDispute)
				r.Post("/evidence", h.handleSubmitEvidence)
				r.Post("/assign", h.handleAssignDispute)
				r.Post("/resolve", h.handleResolveDispute)
				r.Post("/close", h.handleCloseDispute)
			})
		})

		r.Route("/geo", func(r chi.Router) {
			r.Get("/nearby-claims", h.handleNearbyClaims)
			r.Get("/distance-weight", h.handleDistanceWeight)
			r.Post("/verify-location", h.handleVerifyLocation)
			r.Get("/statistics", h.handleGeoStatistics)
		})

		r.Route("/validators", func(r chi.Router) {
			r.Get("/leaderboard", h.handleLeaderboard)
			r.Get("/{validatorID}", h.handleGetValidator)
		})
	})

	return r
}

type handler struct {
	claims   *claim.Service
	gate     *endorsement.Gate
	disputes *dispute.Service
	geo      *geoquery.Service
	trust    *trust.Service
	metrics  *metrics.Metrics
	logger   *slog.Logger
}

func (h *handler) handleHealth(check func() error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if check != nil {
			if err := check(); err != nil {
				writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "degraded"})
				return
			}
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}
