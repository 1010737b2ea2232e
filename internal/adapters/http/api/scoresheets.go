// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"encoding/json"
	"net/http"

	"github.com/EMDC-Fall-2025/backend-sub000/internal/domain/model"
	"github.com/EMDC-Fall-2025/backend-sub000/internal/domain/sheet"
)

// ScoresheetHandler handles scoresheet requests.
type ScoresheetHandler struct {
	deps Dependencies
}

// NewScoresheetHandler creates a new scoresheet handler.
func NewScoresheetHandler(deps Dependencies) *ScoresheetHandler {
	return &ScoresheetHandler{deps: deps}
}

// scoresheetRequest mirrors the payload for PUT /api/v1/scoresheets/{id}.
// Exactly one payload field must be set and must match the sheet's kind;
// the kind itself is fixed at provisioning time and cannot be changed here.
type scoresheetRequest struct {
	Submitted bool `json:"submitted"`

	Rubric         *sheet.Rubric            `json:"rubric,omitempty"`
	RunPenalty     *sheet.RunPenaltySheet   `json:"run_penalty,omitempty"`
	OtherPenalty   *sheet.OtherPenaltySheet `json:"other_penalty,omitempty"`
	RedesignSheet  *sheet.RedesignSheet     `json:"redesign_sheet,omitempty"`
	ChampionshipSh *sheet.ChampionshipSheet `json:"championship_sheet,omitempty"`
}

// HandlePutScoresheet handles PUT /api/v1/scoresheets/{id} requests.
func (h *ScoresheetHandler) HandlePutScoresheet(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "bad_request", ErrBadRequest)
		return
	}

	var req scoresheetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", ErrBadRequest)
		return
	}

	updated, err := h.deps.SubmitScoresheet(r.Context(), model.Scoresheet{
		ID:             id,
		Submitted:      req.Submitted,
		Rubric:         req.Rubric,
		RunPenalty:     req.RunPenalty,
		OtherPenalty:   req.OtherPenalty,
		RedesignSheet:  req.RedesignSheet,
		ChampionshipSh: req.ChampionshipSh,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

// HandleGetScoresheet handles GET /api/v1/scoresheets/{id} requests.
func (h *ScoresheetHandler) HandleGetScoresheet(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "bad_request", ErrBadRequest)
		return
	}

	s, err := h.deps.GetScoresheet(r.Context(), id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s)
}
