package httptransport

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"shamba/internal/attestation"
	"shamba/internal/claim"
	"shamba/internal/geo"
	id "shamba/pkg/domain"
	dErrors "shamba/pkg/domain-errors"
	"shamba/pkg/requestcontext"
)

type createClaimRequest struct {
	Jurisdiction string      `json:"jurisdiction"`
	Lat          float64     `json:"lat"`
	Lon          float64     `json:"lon"`
	Boundary     []geo.Point `json:"boundary,omitempty"`
}

func (h *handler) handleCreateClaim(w http.ResponseWriter, r *http.Request) {
	var req createClaimRequest
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	ident := requestcontext.Identity(r.Context())
	jurisdiction := req.Jurisdiction
	if jurisdiction == "" {
		jurisdiction = ident.Jurisdiction
	}

	c, err := h.claims.Create(r.Context(), claim.CreateInput{
		OwnerID:      ident.UserID,
		Jurisdiction: jurisdiction,
		Location:     geo.Point{Lat: req.Lat, Lon: req.Lon},
		Boundary:     req.Boundary,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	h.metrics.ClaimsRegistered.Inc()
	writeJSON(w, http.StatusCreated, c)
}

func (h *handler) handleGetClaim(w http.ResponseWriter, r *http.Request) {
	claimID, err := id.ParseClaimID(chi.URLParam(r, "claimID"))
	if err != nil {
		writeError(w, err)
		return
	}
	c, err := h.claims.Get(r.Context(), claimID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (h *handler) handleValidationState(w http.ResponseWriter, r *http.Request) {
	claimID, err := id.ParseClaimID(chi.URLParam(r, "claimID"))
	if err != nil {
		writeError(w, err)
		return
	}
	st, err := h.claims.ValidationState(r.Context(), claimID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

type attestationRequest struct {
	Action  string  `json:"action"`
	Comment string  `json:"comment,omitempty"`
	Lat     float64 `json:"lat"`
	Lon     float64 `json:"lon"`
}

type attestationResponse struct {
	Attestation attestation.Attestation `json:"attestation"`
	Claim       *claim.Claim            `json:"claim"`
}

func (h *handler) handleRecordAttestation(w http.ResponseWriter, r *http.Request) {
	claimID, err := id.ParseClaimID(chi.URLParam(r, "claimID"))
	if err != nil {
		writeError(w, err)
		return
	}
	var req attestationRequest
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	action, err := attestation.ParseAction(req.Action)
	if err != nil {
		writeError(w, err)
		return
	}
	ident := requestcontext.Identity(r.Context())
	if ident.IsZero() {
		writeError(w, dErrors.New(dErrors.CodeUnauthorized, "authentication required"))
		return
	}

	att, c, err := h.claims.RecordAttestation(r.Context(), claimID, claim.AttestationInput{
		ValidatorID: id.ValidatorID(ident.UserID),
		Location:    geo.Point{Lat: req.Lat, Lon: req.Lon},
		Action:      action,
		Comment:     req.Comment,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	h.metrics.Attestations.WithLabelValues(string(action)).Inc()
	writeJSON(w, http.StatusCreated, attestationResponse{Attestation: att, Claim: c})
}

func (h *handler) handleListAttestations(w http.ResponseWriter, r *http.Request) {
	claimID, err := id.ParseClaimID(chi.URLParam(r, "claimID"))
	if err != nil {
		writeError(w, err)
		return
	}
	atts, err := h.claims.Attestations(r.Context(), claimID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"attestations": atts,
		"tally":        attestation.TallyOf(atts),
	})
}

type endorseRequest struct {
	Comment string `json:"comment,omitempty"`
}

func (h *handler) handleEndorse(w http.ResponseWriter, r *http.Request) {
	claimID, err := id.ParseClaimID(chi.URLParam(r, "claimID"))
	if err != nil {
		writeError(w, err)
		return
	}
	var req endorseRequest
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	c, err := h.gate.Endorse(r.Context(), claimID, requestcontext.Identity(r.Context()), req.Comment)
	if err != nil {
		writeError(w, err)
		return
	}
	h.metrics.Endorsements.Inc()
	writeJSON(w, http.StatusOK, c)
}

type rejectRequest struct {
	Reason string `json:"reason"`
}

func (h *handler) handleReject(w http.ResponseWriter, r *http.Request) {
	claimID, err := id.ParseClaimID(chi.URLParam(r, "claimID"))
	if err != nil {
		writeError(w, err)
		return
	}
	var req rejectRequest
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	c, err := h.gate.Reject(r.Context(), claimID, requestcontext.Identity(r.Context()), req.Reason)
	if err != nil {
		writeError(w, err)
		return
	}
	h.metrics.Rejections.Inc()
	writeJSON(w, http.StatusOK, c)
}

func (h *handler) handleListEndorsements(w http.ResponseWriter, r *http.Request) {
	claimID, err := id.ParseClaimID(chi.URLParam(r, "claimID"))
	if err != nil {
		writeError(w, err)
		return
	}
	recs, err := h.claims.Endorsements(r.Context(), claimID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"endorsements": recs})
}
