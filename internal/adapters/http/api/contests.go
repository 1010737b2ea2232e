// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"encoding/json"
	"net/http"

	"github.com/EMDC-Fall-2025/backend-sub000/internal/domain/model"
)

// ContestHandler handles tabulation and advancement requests.
type ContestHandler struct {
	deps Dependencies
}

// NewContestHandler creates a new contest handler.
func NewContestHandler(deps Dependencies) *ContestHandler {
	return &ContestHandler{deps: deps}
}

// advanceRequest mirrors the payload for POST /api/v1/contests/{id}/advance.
type advanceRequest struct {
	OrganizerID string   `json:"organizer_id" validate:"required"`
	TeamIDs     []string `json:"team_ids" validate:"required"`
}

// undoRequest mirrors the payload for POST /api/v1/contests/{id}/advance/undo.
type undoRequest struct {
	OrganizerID string `json:"organizer_id" validate:"required"`
}

// tabulateRequest mirrors the payload for POST /api/v1/contests/{id}/tabulate.
type tabulateRequest struct {
	OrganizerID string `json:"organizer_id" validate:"required"`
}

type advancersResponse struct {
	Count int          `json:"count"`
	Teams []model.Team `json:"teams"`
}

// HandleTabulate handles POST /api/v1/contests/{id}/tabulate requests.
func (h *ContestHandler) HandleTabulate(w http.ResponseWriter, r *http.Request) {
	contestID := r.PathValue("id")
	if contestID == "" {
		writeError(w, http.StatusBadRequest, "bad_request", ErrBadRequest)
		return
	}

	var req tabulateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", ErrBadRequest)
		return
	}
	if err := validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", ErrBadRequest)
		return
	}

	if err := h.deps.Tabulate(r.Context(), req.OrganizerID, contestID); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, statusResponse{Status: "tabulated"})
}

// HandleAdvance handles POST /api/v1/contests/{id}/advance requests.
func (h *ContestHandler) HandleAdvance(w http.ResponseWriter, r *http.Request) {
	contestID := r.PathValue("id")
	if contestID == "" {
		writeError(w, http.StatusBadRequest, "bad_request", ErrBadRequest)
		return
	}

	var req advanceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", ErrBadRequest)
		return
	}
	if err := validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", ErrBadRequest)
		return
	}

	res, err := h.deps.Advance(r.Context(), req.OrganizerID, contestID, req.TeamIDs)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// HandleUndoAdvance handles POST /api/v1/contests/{id}/advance/undo requests.
func (h *ContestHandler) HandleUndoAdvance(w http.ResponseWriter, r *http.Request) {
	contestID := r.PathValue("id")
	if contestID == "" {
		writeError(w, http.StatusBadRequest, "bad_request", ErrBadRequest)
		return
	}

	var req undoRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", ErrBadRequest)
		return
	}
	if err := validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", ErrBadRequest)
		return
	}

	res, err := h.deps.UndoAdvance(r.Context(), req.OrganizerID, contestID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// HandleAdvancers handles GET /api/v1/contests/{id}/advancers requests.
func (h *ContestHandler) HandleAdvancers(w http.ResponseWriter, r *http.Request) {
	contestID := r.PathValue("id")
	if contestID == "" {
		writeError(w, http.StatusBadRequest, "bad_request", ErrBadRequest)
		return
	}

	teams, err := h.deps.ListAdvancers(r.Context(), contestID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, advancersResponse{Count: len(teams), Teams: teams})
}

// HandleStandings handles GET /api/v1/contests/{id}/standings requests.
func (h *ContestHandler) HandleStandings(w http.ResponseWriter, r *http.Request) {
	contestID := r.PathValue("id")
	if contestID == "" {
		writeError(w, http.StatusBadRequest, "bad_request", ErrBadRequest)
		return
	}

	teams, err := h.deps.Standings(r.Context(), contestID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, teams)
}

// HandleClusterStandings handles GET /api/v1/clusters/{id}/standings requests.
func (h *ContestHandler) HandleClusterStandings(w http.ResponseWriter, r *http.Request) {
	clusterID := r.PathValue("id")
	if clusterID == "" {
		writeError(w, http.StatusBadRequest, "bad_request", ErrBadRequest)
		return
	}

	teams, err := h.deps.ClusterStandings(r.Context(), clusterID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, teams)
}
