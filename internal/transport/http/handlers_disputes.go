package httptransport

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"shamba/internal/dispute"
	id "shamba/pkg/domain"
	"shamba/pkg/requestcontext"
)

type openDisputeRequest struct {
	ClaimID     string `json:"claim_id"`
	Type        string `json:"type"`
	Description string `json:"description"`
	Priority    string `json:"priority,omitempty"`
}

func (h *handler) handleOpenDispute(w http.ResponseWriter, r *http.Request) {
	var req openDisputeRequest
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	claimID, err := id.ParseClaimID(req.ClaimID)
	if err != nil {
		writeError(w, err)
		return
	}
	typ, err := dispute.ParseType(req.Type)
	if err != nil {
		writeError(w, err)
		return
	}
	priority, err := dispute.ParsePriority(req.Priority)
	if err != nil {
		writeError(w, err)
		return
	}

	d, err := h.disputes.Open(r.Context(), dispute.OpenInput{
		ClaimID:     claimID,
		Type:        typ,
		Description: req.Description,
		Priority:    priority,
	}, requestcontext.Identity(r.Context()))
	if err != nil {
		writeError(w, err)
		return
	}
	h.metrics.DisputesOpened.Inc()
	writeJSON(w, http.StatusCreated, d)
}

func (h *handler) handleGetDispute(w http.ResponseWriter, r *http.Request) {
	disputeID, err := id.ParseDisputeID(chi.URLParam(r, "disputeID"))
	if err != nil {
		writeError(w, err)
		return
	}
	d, err := h.disputes.Get(r.Context(), disputeID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

func (h *handler) handleListClaimDisputes(w http.ResponseWriter, r *http.Request) {
	claimID, err := id.ParseClaimID(chi.URLParam(r, "claimID"))
	if err != nil {
		writeError(w, err)
		return
	}
	disputes, err := h.disputes.ListByClaim(r.Context(), claimID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"disputes": disputes})
}

type evidenceRequest struct {
	Type        string `json:"type"`
	Description string `json:"description"`
	FileRef     string `json:"file_ref,omitempty"`
}

func (h *handler) handleSubmitEvidence(w http.ResponseWriter, r *http.Request) {
	disputeID, err := id.ParseDisputeID(chi.URLParam(r, "disputeID"))
	if err != nil {
		writeError(w, err)
		return
	}
	var req evidenceRequest
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	typ, err := dispute.ParseEvidenceType(req.Type)
	if err != nil {
		writeError(w, err)
		return
	}

	d, err := h.disputes.SubmitEvidence(r.Context(), disputeID, dispute.EvidenceInput{
		Type:        typ,
		Description: req.Description,
		FileRef:     req.FileRef,
	}, requestcontext.Identity(r.Context()))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

type assignRequest struct {
	AssigneeID string `json:"assignee_id"`
}

func (h *handler) handleAssignDispute(w http.ResponseWriter, r *http.Request) {
	disputeID, err := id.ParseDisputeID(chi.URLParam(r, "disputeID"))
	if err != nil {
		writeError(w, err)
		return
	}
	var req assignRequest
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	assignee, err := id.ParseUserID(req.AssigneeID)
	if err != nil {
		writeError(w, err)
		return
	}

	d, err := h.disputes.Assign(r.Context(), disputeID, assignee, requestcontext.Identity(r.Context()))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

type resolveRequest struct {
	Decision string `json:"decision"`
	Summary  string `json:"summary"`
	Notes    string `json:"notes,omitempty"`
}

func (h *handler) handleResolveDispute(w http.ResponseWriter, r *http.Request) {
	disputeID, err := id.ParseDisputeID(chi.URLParam(r, "disputeID"))
	if err != nil {
		writeError(w, err)
		return
	}
	var req resolveRequest
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	decision, err := dispute.ParseDecision(req.Decision)
	if err != nil {
		writeError(w, err)
		return
	}

	d, err := h.disputes.Resolve(r.Context(), disputeID, dispute.ResolveInput{
		Decision: decision,
		Summary:  req.Summary,
		Notes:    req.Notes,
	}, requestcontext.Identity(r.Context()))
	if err != nil {
		writeError(w, err)
		return
	}
	h.metrics.DisputesResolved.WithLabelValues(string(decision)).Inc()
	writeJSON(w, http.StatusOK, d)
}

func (h *handler) handleCloseDispute(w http.ResponseWriter, r *http.Request) {
	disputeID, err := id.ParseDisputeID(chi.URLParam(r, "disputeID"))
	if err != nil {
		writeError(w, err)
		return
	}
	d, err := h.disputes.Close(r.Context(), disputeID, requestcontext.Identity(r.Context()))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}
