package api_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/EMDC-Fall-2025/backend-sub000/internal/adapters/http/api"
	"github.com/EMDC-Fall-2025/backend-sub000/internal/domain/model"
	"github.com/EMDC-Fall-2025/backend-sub000/internal/domain/round"
	"github.com/EMDC-Fall-2025/backend-sub000/internal/domain/store"
)

// stubDeps implements api.Dependencies with canned responses.
type stubDeps struct {
	sheet    model.Scoresheet
	sheetErr error

	tabulateErr error

	advanceRes round.Result
	advanceErr error

	undoRes round.UndoResult
	undoErr error

	advancers        []model.Team
	standings        []model.Team
	clusterStandings []model.Team
	listErr          error

	gotContestID string
	gotClusterID string
	gotTeamIDs   []string
	gotOrganizer string
}

func (d *stubDeps) SubmitScoresheet(_ context.Context, s model.Scoresheet) (model.Scoresheet, error) {
	if d.sheetErr != nil {
		return model.Scoresheet{}, d.sheetErr
	}
	d.sheet = s
	return s, nil
}

func (d *stubDeps) GetScoresheet(_ context.Context, id string) (model.Scoresheet, error) {
	if d.sheetErr != nil {
		return model.Scoresheet{}, d.sheetErr
	}
	s := d.sheet
	s.ID = id
	return s, nil
}

func (d *stubDeps) Tabulate(_ context.Context, organizerID, contestID string) error {
	d.gotOrganizer = organizerID
	d.gotContestID = contestID
	return d.tabulateErr
}

func (d *stubDeps) Advance(_ context.Context, organizerID, contestID string, teamIDs []string) (round.Result, error) {
	d.gotOrganizer = organizerID
	d.gotContestID = contestID
	d.gotTeamIDs = teamIDs
	return d.advanceRes, d.advanceErr
}

func (d *stubDeps) UndoAdvance(_ context.Context, organizerID, contestID string) (round.UndoResult, error) {
	d.gotOrganizer = organizerID
	d.gotContestID = contestID
	return d.undoRes, d.undoErr
}

func (d *stubDeps) ListAdvancers(_ context.Context, contestID string) ([]model.Team, error) {
	d.gotContestID = contestID
	return d.advancers, d.listErr
}

func (d *stubDeps) Standings(_ context.Context, contestID string) ([]model.Team, error) {
	d.gotContestID = contestID
	return d.standings, d.listErr
}

func (d *stubDeps) ClusterStandings(_ context.Context, clusterID string) ([]model.Team, error) {
	d.gotClusterID = clusterID
	return d.clusterStandings, d.listErr
}

type stubStats struct{}

func (stubStats) GetStats() map[string]interface{} {
	return map[string]interface{}{"started": true}
}

func newTestServer(deps *stubDeps) *httptest.Server {
	mux := http.NewServeMux()
	api.NewServer(deps, stubStats{}).Register(context.Background(), mux)
	return httptest.NewServer(mux)
}

func TestPutScoresheet(t *testing.T) {
	Convey("Given the API server", t, func() {
		deps := &stubDeps{}
		srv := newTestServer(deps)
		defer srv.Close()

		Convey("When submitting a rubric payload", func() {
			body := `{"submitted":true,"rubric":{"scores":[10,9,8,7,6,5,4,3],"comment":"solid"}}`
			req, _ := http.NewRequest(http.MethodPut, srv.URL+"/api/v1/scoresheets/sheet-1", strings.NewReader(body))
			resp, err := http.DefaultClient.Do(req)
			So(err, ShouldBeNil)
			defer resp.Body.Close()

			Convey("Then the sheet is updated and echoed back", func() {
				So(resp.StatusCode, ShouldEqual, http.StatusOK)
				So(deps.sheet.ID, ShouldEqual, "sheet-1")
				So(deps.sheet.Submitted, ShouldBeTrue)
				So(deps.sheet.Rubric, ShouldNotBeNil)
				So(deps.sheet.Rubric.Scores[0], ShouldEqual, 10)
			})
		})

		Convey("When the body is not JSON", func() {
			req, _ := http.NewRequest(http.MethodPut, srv.URL+"/api/v1/scoresheets/sheet-1", strings.NewReader("nope"))
			resp, err := http.DefaultClient.Do(req)
			So(err, ShouldBeNil)
			defer resp.Body.Close()

			Convey("Then the request is rejected with 400", func() {
				So(resp.StatusCode, ShouldEqual, http.StatusBadRequest)
			})
		})

		Convey("When the sheet does not exist", func() {
			deps.sheetErr = store.ErrNotFound
			req, _ := http.NewRequest(http.MethodPut, srv.URL+"/api/v1/scoresheets/missing", strings.NewReader(`{"submitted":true}`))
			resp, err := http.DefaultClient.Do(req)
			So(err, ShouldBeNil)
			defer resp.Body.Close()

			Convey("Then a 404 comes back", func() {
				So(resp.StatusCode, ShouldEqual, http.StatusNotFound)
			})
		})

		Convey("When the payload does not match the sheet's kind", func() {
			deps.sheetErr = model.ErrPayloadMismatch
			req, _ := http.NewRequest(http.MethodPut, srv.URL+"/api/v1/scoresheets/sheet-1", strings.NewReader(`{"submitted":true}`))
			resp, err := http.DefaultClient.Do(req)
			So(err, ShouldBeNil)
			defer resp.Body.Close()

			Convey("Then a 400 comes back", func() {
				So(resp.StatusCode, ShouldEqual, http.StatusBadRequest)
			})
		})
	})
}

func TestAdvanceEndpoints(t *testing.T) {
	Convey("Given the API server", t, func() {
		deps := &stubDeps{
			advanceRes: round.Result{
				ChampionshipClusterID: "cluster-b",
				RedesignClusterID:     "cluster-c",
				Advanced:              1,
				Redesigned:            2,
			},
		}
		srv := newTestServer(deps)
		defer srv.Close()

		Convey("When advancing with a valid payload", func() {
			body := `{"organizer_id":"org-1","team_ids":["team-1"]}`
			resp, err := http.Post(srv.URL+"/api/v1/contests/contest-1/advance", "application/json", strings.NewReader(body))
			So(err, ShouldBeNil)
			defer resp.Body.Close()

			Convey("Then the partition result is returned", func() {
				So(resp.StatusCode, ShouldEqual, http.StatusOK)
				So(deps.gotOrganizer, ShouldEqual, "org-1")
				So(deps.gotContestID, ShouldEqual, "contest-1")
				So(deps.gotTeamIDs, ShouldResemble, []string{"team-1"})

				var res round.Result
				So(json.NewDecoder(resp.Body).Decode(&res), ShouldBeNil)
				So(res.Advanced, ShouldEqual, 1)
				So(res.Redesigned, ShouldEqual, 2)
			})
		})

		Convey("When the organizer id is missing", func() {
			body := `{"team_ids":["team-1"]}`
			resp, err := http.Post(srv.URL+"/api/v1/contests/contest-1/advance", "application/json", strings.NewReader(body))
			So(err, ShouldBeNil)
			defer resp.Body.Close()

			Convey("Then validation rejects it with 400", func() {
				So(resp.StatusCode, ShouldEqual, http.StatusBadRequest)
			})
		})

		Convey("When the team id list is a scalar", func() {
			body := `{"organizer_id":"org-1","team_ids":"team-1"}`
			resp, err := http.Post(srv.URL+"/api/v1/contests/contest-1/advance", "application/json", strings.NewReader(body))
			So(err, ShouldBeNil)
			defer resp.Body.Close()

			Convey("Then decoding rejects it with 400", func() {
				So(resp.StatusCode, ShouldEqual, http.StatusBadRequest)
			})
		})

		Convey("When the caller is not an organizer", func() {
			deps.advanceErr = round.ErrNotOrganizer
			body := `{"organizer_id":"stranger","team_ids":["team-1"]}`
			resp, err := http.Post(srv.URL+"/api/v1/contests/contest-1/advance", "application/json", strings.NewReader(body))
			So(err, ShouldBeNil)
			defer resp.Body.Close()

			Convey("Then a 403 comes back", func() {
				So(resp.StatusCode, ShouldEqual, http.StatusForbidden)
			})
		})

		Convey("When the championship cluster is missing", func() {
			deps.advanceErr = round.ErrMissingChampionshipCluster
			body := `{"organizer_id":"org-1","team_ids":["team-1"]}`
			resp, err := http.Post(srv.URL+"/api/v1/contests/contest-1/advance", "application/json", strings.NewReader(body))
			So(err, ShouldBeNil)
			defer resp.Body.Close()

			Convey("Then a 409 comes back", func() {
				So(resp.StatusCode, ShouldEqual, http.StatusConflict)
			})
		})

		Convey("When undoing the advancement", func() {
			deps.undoRes = round.UndoResult{PreliminaryClusterID: "cluster-a", TeamsReset: 3}
			body := `{"organizer_id":"org-1"}`
			resp, err := http.Post(srv.URL+"/api/v1/contests/contest-1/advance/undo", "application/json", strings.NewReader(body))
			So(err, ShouldBeNil)
			defer resp.Body.Close()

			Convey("Then the reset count is returned", func() {
				So(resp.StatusCode, ShouldEqual, http.StatusOK)
				var res round.UndoResult
				So(json.NewDecoder(resp.Body).Decode(&res), ShouldBeNil)
				So(res.TeamsReset, ShouldEqual, 3)
			})
		})
	})
}

func TestReadEndpoints(t *testing.T) {
	Convey("Given the API server", t, func() {
		rank1, rank2 := 1, 2
		deps := &stubDeps{
			advancers: []model.Team{{ID: "team-1", AdvancedToChampionship: true}},
			standings: []model.Team{
				{ID: "team-1", Total: 270, TeamRank: &rank1},
				{ID: "team-2", Total: 255, TeamRank: &rank2},
			},
			clusterStandings: []model.Team{
				{ID: "team-2", Total: 255, ClusterRank: &rank1},
			},
		}
		srv := newTestServer(deps)
		defer srv.Close()

		Convey("When listing advancers", func() {
			resp, err := http.Get(srv.URL + "/api/v1/contests/contest-1/advancers")
			So(err, ShouldBeNil)
			defer resp.Body.Close()

			Convey("Then count and teams are returned", func() {
				So(resp.StatusCode, ShouldEqual, http.StatusOK)
				var body struct {
					Count int          `json:"count"`
					Teams []model.Team `json:"teams"`
				}
				So(json.NewDecoder(resp.Body).Decode(&body), ShouldBeNil)
				So(body.Count, ShouldEqual, 1)
				So(body.Teams[0].ID, ShouldEqual, "team-1")
			})
		})

		Convey("When fetching standings", func() {
			resp, err := http.Get(srv.URL + "/api/v1/contests/contest-1/standings")
			So(err, ShouldBeNil)
			defer resp.Body.Close()

			Convey("Then teams come back in rank order", func() {
				So(resp.StatusCode, ShouldEqual, http.StatusOK)
				var teams []model.Team
				So(json.NewDecoder(resp.Body).Decode(&teams), ShouldBeNil)
				So(len(teams), ShouldEqual, 2)
				So(teams[0].ID, ShouldEqual, "team-1")
			})
		})

		Convey("When fetching cluster standings", func() {
			resp, err := http.Get(srv.URL + "/api/v1/clusters/cluster-a/standings")
			So(err, ShouldBeNil)
			defer resp.Body.Close()

			Convey("Then the cluster's teams come back", func() {
				So(resp.StatusCode, ShouldEqual, http.StatusOK)
				So(deps.gotClusterID, ShouldEqual, "cluster-a")
				var teams []model.Team
				So(json.NewDecoder(resp.Body).Decode(&teams), ShouldBeNil)
				So(len(teams), ShouldEqual, 1)
				So(teams[0].ID, ShouldEqual, "team-2")
			})
		})

		Convey("When tabulating as an organizer", func() {
			body := `{"organizer_id":"org-1"}`
			resp, err := http.Post(srv.URL+"/api/v1/contests/contest-1/tabulate", "application/json", strings.NewReader(body))
			So(err, ShouldBeNil)
			defer resp.Body.Close()

			Convey("Then a status ack is returned", func() {
				So(resp.StatusCode, ShouldEqual, http.StatusOK)
				So(deps.gotOrganizer, ShouldEqual, "org-1")
				So(deps.gotContestID, ShouldEqual, "contest-1")
			})
		})

		Convey("When tabulating without an organizer id", func() {
			resp, err := http.Post(srv.URL+"/api/v1/contests/contest-1/tabulate", "application/json", strings.NewReader(`{}`))
			So(err, ShouldBeNil)
			defer resp.Body.Close()

			Convey("Then validation rejects it with 400", func() {
				So(resp.StatusCode, ShouldEqual, http.StatusBadRequest)
			})
		})

		Convey("When fetching stats", func() {
			resp, err := http.Get(srv.URL + "/stats")
			So(err, ShouldBeNil)
			defer resp.Body.Close()

			Convey("Then the stats payload is JSON", func() {
				So(resp.StatusCode, ShouldEqual, http.StatusOK)
				var stats map[string]interface{}
				So(json.NewDecoder(resp.Body).Decode(&stats), ShouldBeNil)
				So(stats["started"], ShouldEqual, true)
			})
		})

		Convey("When probing health", func() {
			resp, err := http.Get(srv.URL + "/healthz")
			So(err, ShouldBeNil)
			defer resp.Body.Close()

			Convey("Then the metrics registry is served", func() {
				So(resp.StatusCode, ShouldEqual, http.StatusOK)
			})
		})
	})
}
