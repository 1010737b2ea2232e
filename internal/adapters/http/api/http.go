// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/EMDC-Fall-2025/backend-sub000/internal/domain/model"
	"github.com/EMDC-Fall-2025/backend-sub000/internal/domain/round"
	"github.com/EMDC-Fall-2025/backend-sub000/internal/domain/store"
)

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	// SubmitScoresheet records scores onto an existing sheet.
	SubmitScoresheet(ctx context.Context, s model.Scoresheet) (model.Scoresheet, error)
	GetScoresheet(ctx context.Context, id string) (model.Scoresheet, error)

	// Tabulate recomputes totals and ranks for a whole contest.
	Tabulate(ctx context.Context, organizerID, contestID string) error

	// Advancement operations.
	Advance(ctx context.Context, organizerID, contestID string, teamIDs []string) (round.Result, error)
	UndoAdvance(ctx context.Context, organizerID, contestID string) (round.UndoResult, error)
	ListAdvancers(ctx context.Context, contestID string) ([]model.Team, error)

	// Standings returns the contest's teams in rank order.
	Standings(ctx context.Context, contestID string) ([]model.Team, error)
	// ClusterStandings returns one cluster's teams in rank order.
	ClusterStandings(ctx context.Context, clusterID string) ([]model.Team, error)
}

// validate is the shared request validator.
var validate = validator.New()

// Server wires HTTP routes for the business API.
type Server struct {
	healthHandler     *HealthHandler
	statsHandler      *StatsHandler
	scoresheetHandler *ScoresheetHandler
	contestHandler    *ContestHandler
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, statsProvider StatsProvider) *Server {
	return &Server{
		healthHandler:     NewHealthHandler(),
		statsHandler:      NewStatsHandler(statsProvider),
		scoresheetHandler: NewScoresheetHandler(deps),
		contestHandler:    NewContestHandler(deps),
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(ctx context.Context, mux *http.ServeMux) {
	mux.HandleFunc("/healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("/stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))

	mux.HandleFunc("GET /api/v1/scoresheets/{id}", MetricsMiddleware(s.scoresheetHandler.HandleGetScoresheet, "scoresheets"))
	mux.HandleFunc("PUT /api/v1/scoresheets/{id}", MetricsMiddleware(s.scoresheetHandler.HandlePutScoresheet, "scoresheets"))

	mux.HandleFunc("POST /api/v1/contests/{id}/tabulate", MetricsMiddleware(s.contestHandler.HandleTabulate, "tabulate"))
	mux.HandleFunc("POST /api/v1/contests/{id}/advance", MetricsMiddleware(s.contestHandler.HandleAdvance, "advance"))
	mux.HandleFunc("POST /api/v1/contests/{id}/advance/undo", MetricsMiddleware(s.contestHandler.HandleUndoAdvance, "advance_undo"))
	mux.HandleFunc("GET /api/v1/contests/{id}/advancers", MetricsMiddleware(s.contestHandler.HandleAdvancers, "advancers"))
	mux.HandleFunc("GET /api/v1/contests/{id}/standings", MetricsMiddleware(s.contestHandler.HandleStandings, "standings"))
	mux.HandleFunc("GET /api/v1/clusters/{id}/standings", MetricsMiddleware(s.contestHandler.HandleClusterStandings, "cluster_standings"))
}

type statusResponse struct {
	Status string `json:"status"`
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

// writeDomainError maps domain error kinds onto the HTTP taxonomy: missing
// entities are 404, authorization failures 403, unmet advancement
// preconditions 409, malformed payloads 400, everything else 500.
func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, "not_found", err)
	case errors.Is(err, round.ErrNotOrganizer):
		writeError(w, http.StatusForbidden, "forbidden", err)
	case errors.Is(err, round.ErrMissingChampionshipCluster),
		errors.Is(err, round.ErrMissingRedesignCluster),
		errors.Is(err, round.ErrMissingPreliminaryCluster):
		writeError(w, http.StatusConflict, "missing_cluster", err)
	case errors.Is(err, model.ErrPayloadMismatch),
		errors.Is(err, model.ErrUnknownSheetKind):
		writeError(w, http.StatusBadRequest, "bad_request", err)
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", ErrInternal)
	}
}
