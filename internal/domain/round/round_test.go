package round_test

import (
	"context"
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/EMDC-Fall-2025/backend-sub000/internal/adapters/repository"
	"github.com/EMDC-Fall-2025/backend-sub000/internal/domain/model"
	"github.com/EMDC-Fall-2025/backend-sub000/internal/domain/round"
	"github.com/EMDC-Fall-2025/backend-sub000/internal/domain/sheet"
	"github.com/EMDC-Fall-2025/backend-sub000/internal/domain/store"
	"github.com/EMDC-Fall-2025/backend-sub000/pkg/logger"
)

func init() {
	_ = logger.Init()
	_ = logger.SetLevelString("error")
}

// contestFixture builds a contest with preliminary, championship and redesign
// clusters, one organizer, one judge assigned everywhere, and the given
// teams mapped into the preliminary cluster.
func contestFixture(ctx context.Context, teams []model.Team) *repository.MemStore {
	s := repository.NewMemStore()
	must := func(err error) { So(err, ShouldBeNil) }

	_, err := s.PutContest(ctx, model.Contest{ID: "contest-1"})
	must(err)
	must(s.AddOrganizer(ctx, "org-1", "contest-1"))

	for _, c := range []model.Cluster{
		{ID: "cluster-a", ContestID: "contest-1", Name: "Prelim A", Type: model.ClusterPreliminary, Active: true},
		{ID: "cluster-b", ContestID: "contest-1", Name: "Championship", Type: model.ClusterChampionship},
		{ID: "cluster-c", ContestID: "contest-1", Name: "Redesign", Type: model.ClusterRedesign},
	} {
		_, err := s.PutCluster(ctx, c)
		must(err)
	}

	_, err = s.PutJudge(ctx, model.Judge{
		ID:           "judge-1",
		Presentation: true, Journal: true, MachineDesign: true,
		RunPenalties: true, OtherPenalties: true,
	})
	must(err)
	for _, clusterID := range []string{"cluster-a", "cluster-b", "cluster-c"} {
		must(s.MapJudgeToCluster(ctx, "judge-1", clusterID))
	}

	for _, t := range teams {
		t.ContestID = "contest-1"
		_, err := s.PutTeam(ctx, t)
		must(err)
		must(s.MapTeamToCluster(ctx, t.ID, "cluster-a"))
	}
	return s
}

// submitRubric creates and submits one rubric sheet whose first score slot
// carries the whole category value.
func submitRubric(ctx context.Context, s *repository.MemStore, kind sheet.Kind, teamID string, value float64) {
	sh := model.BlankScoresheet(kind, "judge-1", teamID)
	sh.Rubric.Scores[0] = value
	sh.Submitted = true
	_, err := s.CreateScoresheet(ctx, sh)
	So(err, ShouldBeNil)
}

func advance(ctx context.Context, s *repository.MemStore, a *round.Advancer, teamIDs []string) (round.Result, error) {
	var res round.Result
	err := s.Update(ctx, func(tx store.Tx) error {
		var err error
		res, err = a.AdvanceToChampionship(ctx, tx, "org-1", "contest-1", teamIDs)
		return err
	})
	return res, err
}

func undo(ctx context.Context, s *repository.MemStore, a *round.Advancer) (round.UndoResult, error) {
	var res round.UndoResult
	err := s.Update(ctx, func(tx store.Tx) error {
		var err error
		res, err = a.UndoAdvancement(ctx, tx, "org-1", "contest-1")
		return err
	})
	return res, err
}

func TestAdvanceToChampionship(t *testing.T) {
	ctx := context.Background()

	Convey("Given a contest with two teams", t, func() {
		s := contestFixture(ctx, []model.Team{
			{ID: "team-a"},
			{ID: "team-b"},
		})
		a := round.New()

		Convey("When team-a is advanced", func() {
			res, err := advance(ctx, s, a, []string{"team-a"})
			So(err, ShouldBeNil)

			Convey("Then exactly one team is in each pool", func() {
				So(res.Advanced, ShouldEqual, 1)
				So(res.Redesigned, ShouldEqual, 1)
				So(res.ChampionshipClusterID, ShouldEqual, "cluster-b")
				So(res.RedesignClusterID, ShouldEqual, "cluster-c")

				ta, err := s.Team(ctx, "team-a")
				So(err, ShouldBeNil)
				tb, err := s.Team(ctx, "team-b")
				So(err, ShouldBeNil)
				So(ta.AdvancedToChampionship, ShouldBeTrue)
				So(tb.AdvancedToChampionship, ShouldBeFalse)

				champ, err := s.TeamsInCluster(ctx, "cluster-b")
				So(err, ShouldBeNil)
				So(len(champ), ShouldEqual, 1)
				So(champ[0].ID, ShouldEqual, "team-a")

				redo, err := s.TeamsInCluster(ctx, "cluster-c")
				So(err, ShouldBeNil)
				So(len(redo), ShouldEqual, 1)
				So(redo[0].ID, ShouldEqual, "team-b")
			})

			Convey("Then both target clusters are active", func() {
				cb, err := s.Cluster(ctx, "cluster-b")
				So(err, ShouldBeNil)
				cc, err := s.Cluster(ctx, "cluster-c")
				So(err, ShouldBeNil)
				So(cb.Active, ShouldBeTrue)
				So(cc.Active, ShouldBeTrue)
			})

			Convey("Then the judge gained round flags and fresh blank sheets", func() {
				j, err := s.Judge(ctx, "judge-1")
				So(err, ShouldBeNil)
				So(j.Championship, ShouldBeTrue)
				So(j.Redesign, ShouldBeTrue)

				sa, err := s.SheetsForJudgeTeam(ctx, "judge-1", "team-a")
				So(err, ShouldBeNil)
				kinds := map[sheet.Kind]int{}
				for _, sh := range sa {
					kinds[sh.Kind]++
				}
				So(kinds[sheet.Championship], ShouldEqual, 1)
				So(kinds[sheet.Redesign], ShouldEqual, 0)

				sb, err := s.SheetsForJudgeTeam(ctx, "judge-1", "team-b")
				So(err, ShouldBeNil)
				kinds = map[sheet.Kind]int{}
				for _, sh := range sb {
					kinds[sh.Kind]++
				}
				So(kinds[sheet.Redesign], ShouldEqual, 1)
				So(kinds[sheet.Championship], ShouldEqual, 0)
			})

			Convey("And advancing again replaces the partition without duplicating sheets", func() {
				res, err := advance(ctx, s, a, []string{"team-b"})
				So(err, ShouldBeNil)
				So(res.Advanced, ShouldEqual, 1)

				champ, err := s.TeamsInCluster(ctx, "cluster-b")
				So(err, ShouldBeNil)
				So(len(champ), ShouldEqual, 1)
				So(champ[0].ID, ShouldEqual, "team-b")

				sb, err := s.SheetsForJudgeTeam(ctx, "judge-1", "team-b")
				So(err, ShouldBeNil)
				n := 0
				for _, sh := range sb {
					if sh.Kind == sheet.Championship {
						n++
					}
				}
				So(n, ShouldEqual, 1)
			})
		})

		Convey("When the supplied ids include teams from outside the contest", func() {
			res, err := advance(ctx, s, a, []string{"team-a", "intruder"})

			Convey("Then foreign ids are silently ignored", func() {
				So(err, ShouldBeNil)
				So(res.Advanced, ShouldEqual, 1)
				So(res.Redesigned, ShouldEqual, 1)
			})
		})

		Convey("When the caller is not an organizer", func() {
			err := s.Update(ctx, func(tx store.Tx) error {
				_, err := a.AdvanceToChampionship(ctx, tx, "stranger", "contest-1", []string{"team-a"})
				return err
			})

			Convey("Then the transition is rejected", func() {
				So(err, ShouldEqual, round.ErrNotOrganizer)
			})
		})
	})
}

func TestAdvanceRequiresTargetClusters(t *testing.T) {
	ctx := context.Background()

	Convey("Given a contest without a championship cluster", t, func() {
		s := repository.NewMemStore()
		_, err := s.PutContest(ctx, model.Contest{ID: "contest-1"})
		So(err, ShouldBeNil)
		So(s.AddOrganizer(ctx, "org-1", "contest-1"), ShouldBeNil)
		_, err = s.PutCluster(ctx, model.Cluster{ID: "cluster-c", ContestID: "contest-1", Type: model.ClusterRedesign})
		So(err, ShouldBeNil)
		_, err = s.PutTeam(ctx, model.Team{ID: "team-a", ContestID: "contest-1", Total: 100})
		So(err, ShouldBeNil)

		a := round.New()

		Convey("When advancement is attempted", func() {
			_, err := advance(ctx, s, a, []string{"team-a"})

			Convey("Then it fails with the precondition error and nothing is mutated", func() {
				So(err, ShouldEqual, round.ErrMissingChampionshipCluster)

				tm, err := s.Team(ctx, "team-a")
				So(err, ShouldBeNil)
				So(tm.AdvancedToChampionship, ShouldBeFalse)
				So(tm.Total, ShouldEqual, 100)
			})
		})
	})
}

func TestSnapshotRestoreRoundTrip(t *testing.T) {
	ctx := context.Background()

	Convey("Given a team with tabulated preliminary scores", t, func() {
		s := contestFixture(ctx, []model.Team{
			{ID: "team-a", Presentation: 85, Journal: 90, MachineDesign: 80, Penalties: 0, Total: 255},
			{ID: "team-b", Total: 100},
		})
		// Matching submitted sheets so the post-transition recompute derives
		// the same category values the snapshot holds.
		submitRubric(ctx, s, sheet.Presentation, "team-a", 85)
		submitRubric(ctx, s, sheet.Journal, "team-a", 90)
		submitRubric(ctx, s, sheet.MachineDesign, "team-a", 80)

		a := round.New()

		Convey("When the team advances and the advancement is undone", func() {
			_, err := advance(ctx, s, a, []string{"team-a"})
			So(err, ShouldBeNil)

			mid, err := s.Team(ctx, "team-a")
			So(err, ShouldBeNil)

			Convey("Then the snapshot holds the preliminary values", func() {
				So(mid.Preliminary.Presentation, ShouldEqual, 85)
				So(mid.Preliminary.Journal, ShouldEqual, 90)
				So(mid.Preliminary.MachineDesign, ShouldEqual, 80)
				So(mid.Preliminary.Penalties, ShouldEqual, 0)
				So(mid.Preliminary.Total, ShouldEqual, 255)
			})

			Convey("Then the championship total is zeroed pending new sheets", func() {
				So(mid.Championship.Total, ShouldEqual, 0)
				So(mid.Total, ShouldEqual, 0)
			})

			res, err := undo(ctx, s, a)
			So(err, ShouldBeNil)

			Convey("Then undo restores all five fields exactly", func() {
				So(res.TeamsReset, ShouldEqual, 2)
				So(res.PreliminaryClusterID, ShouldEqual, "cluster-a")

				got, err := s.Team(ctx, "team-a")
				So(err, ShouldBeNil)
				So(got.Presentation, ShouldEqual, 85)
				So(got.Journal, ShouldEqual, 90)
				So(got.MachineDesign, ShouldEqual, 80)
				So(got.Penalties, ShouldEqual, 0)
				So(got.Total, ShouldEqual, 255)
				So(got.AdvancedToChampionship, ShouldBeFalse)
				So(got.ChampionshipRank, ShouldBeNil)
			})

			Convey("Then the round clusters are deactivated and emptied", func() {
				cb, err := s.Cluster(ctx, "cluster-b")
				So(err, ShouldBeNil)
				So(cb.Active, ShouldBeFalse)

				members, err := s.TeamsInCluster(ctx, "cluster-b")
				So(err, ShouldBeNil)
				So(members, ShouldBeEmpty)

				all, err := s.TeamsInCluster(ctx, "cluster-a")
				So(err, ShouldBeNil)
				So(len(all), ShouldEqual, 2)
			})

			Convey("And undoing again is a no-op that still succeeds", func() {
				again, err := undo(ctx, s, a)
				So(err, ShouldBeNil)
				So(again.TeamsReset, ShouldEqual, 2)

				got, err := s.Team(ctx, "team-a")
				So(err, ShouldBeNil)
				So(got.Total, ShouldEqual, 255)
			})
		})
	})
}

func TestRankedAdvancementExample(t *testing.T) {
	ctx := context.Background()

	Convey("Given three ranked teams in one preliminary cluster", t, func() {
		s := contestFixture(ctx, []model.Team{
			{ID: "team-1", Presentation: 270, Total: 270},
			{ID: "team-2", Presentation: 255, Total: 255},
			{ID: "team-3", Presentation: 240, Total: 240},
		})
		submitRubric(ctx, s, sheet.Presentation, "team-1", 270)
		submitRubric(ctx, s, sheet.Presentation, "team-2", 255)
		submitRubric(ctx, s, sheet.Presentation, "team-3", 240)

		a := round.New()

		Convey("When the top team advances", func() {
			res, err := advance(ctx, s, a, []string{"team-1"})
			So(err, ShouldBeNil)

			Convey("Then the pools split one against two", func() {
				So(res.Advanced, ShouldEqual, 1)
				So(res.Redesigned, ShouldEqual, 2)
			})

			Convey("Then each redesign team keeps its snapshotted total", func() {
				t2, err := s.Team(ctx, "team-2")
				So(err, ShouldBeNil)
				t3, err := s.Team(ctx, "team-3")
				So(err, ShouldBeNil)
				So(t2.Preliminary.Total, ShouldEqual, 255)
				So(t3.Preliminary.Total, ShouldEqual, 240)
			})
		})
	})
}

func TestAdvancers(t *testing.T) {
	ctx := context.Background()

	Convey("Given a contest after advancement", t, func() {
		s := contestFixture(ctx, []model.Team{
			{ID: "team-a"},
			{ID: "team-b"},
			{ID: "team-c"},
		})
		a := round.New()
		_, err := advance(ctx, s, a, []string{"team-c", "team-a"})
		So(err, ShouldBeNil)

		Convey("When listing advancers", func() {
			teams, err := a.Advancers(ctx, s, "contest-1")
			So(err, ShouldBeNil)

			Convey("Then exactly the advanced teams come back, sorted by id", func() {
				So(len(teams), ShouldEqual, 2)
				So(teams[0].ID, ShouldEqual, "team-a")
				So(teams[1].ID, ShouldEqual, "team-c")
			})
		})
	})
}

// twoPrelimFixture builds a contest with two preliminary clusters plus the
// championship and redesign clusters, one team in each preliminary cluster.
func twoPrelimFixture(ctx context.Context) *repository.MemStore {
	s := repository.NewMemStore()
	must := func(err error) { So(err, ShouldBeNil) }

	_, err := s.PutContest(ctx, model.Contest{ID: "contest-1"})
	must(err)
	must(s.AddOrganizer(ctx, "org-1", "contest-1"))

	for _, c := range []model.Cluster{
		{ID: "cluster-a1", ContestID: "contest-1", Name: "Prelim A", Type: model.ClusterPreliminary, Active: true},
		{ID: "cluster-a2", ContestID: "contest-1", Name: "Prelim B", Type: model.ClusterPreliminary, Active: true},
		{ID: "cluster-b", ContestID: "contest-1", Name: "Championship", Type: model.ClusterChampionship},
		{ID: "cluster-c", ContestID: "contest-1", Name: "Redesign", Type: model.ClusterRedesign},
	} {
		_, err := s.PutCluster(ctx, c)
		must(err)
	}

	_, err = s.PutJudge(ctx, model.Judge{ID: "judge-1", Presentation: true})
	must(err)
	for _, clusterID := range []string{"cluster-a1", "cluster-a2", "cluster-b", "cluster-c"} {
		must(s.MapJudgeToCluster(ctx, "judge-1", clusterID))
	}

	for teamID, clusterID := range map[string]string{
		"team-a": "cluster-a1",
		"team-b": "cluster-a2",
	} {
		_, err := s.PutTeam(ctx, model.Team{ID: teamID, ContestID: "contest-1"})
		must(err)
		must(s.MapTeamToCluster(ctx, teamID, clusterID))
	}
	return s
}

func TestMembershipFollowsRoundChange(t *testing.T) {
	ctx := context.Background()

	Convey("Given teams spread over two preliminary clusters", t, func() {
		s := twoPrelimFixture(ctx)
		a := round.New()

		Convey("When team-a is advanced", func() {
			_, err := advance(ctx, s, a, []string{"team-a"})
			So(err, ShouldBeNil)

			Convey("Then each team belongs to its round cluster and nothing else", func() {
				ca, err := s.ClustersForTeam(ctx, "team-a")
				So(err, ShouldBeNil)
				So(len(ca), ShouldEqual, 1)
				So(ca[0].ID, ShouldEqual, "cluster-b")

				cb, err := s.ClustersForTeam(ctx, "team-b")
				So(err, ShouldBeNil)
				So(len(cb), ShouldEqual, 1)
				So(cb[0].ID, ShouldEqual, "cluster-c")
			})

			Convey("Then both preliminary clusters are empty", func() {
				for _, clusterID := range []string{"cluster-a1", "cluster-a2"} {
					members, err := s.TeamsInCluster(ctx, clusterID)
					So(err, ShouldBeNil)
					So(members, ShouldBeEmpty)
				}
			})

			Convey("And undoing gathers every team into the lowest-id preliminary cluster only", func() {
				_, err := undo(ctx, s, a)
				So(err, ShouldBeNil)

				for _, teamID := range []string{"team-a", "team-b"} {
					clusters, err := s.ClustersForTeam(ctx, teamID)
					So(err, ShouldBeNil)
					So(len(clusters), ShouldEqual, 1)
					So(clusters[0].ID, ShouldEqual, "cluster-a1")
				}

				members, err := s.TeamsInCluster(ctx, "cluster-a2")
				So(err, ShouldBeNil)
				So(members, ShouldBeEmpty)
			})
		})
	})
}

func TestReadvanceKeepsPreliminarySnapshot(t *testing.T) {
	ctx := context.Background()

	Convey("Given a tabulated team that advanced once already", t, func() {
		s := contestFixture(ctx, []model.Team{
			{ID: "team-a", Presentation: 85, Journal: 90, MachineDesign: 80, Total: 255},
			{ID: "team-b"},
		})
		submitRubric(ctx, s, sheet.Presentation, "team-a", 85)
		submitRubric(ctx, s, sheet.Journal, "team-a", 90)
		submitRubric(ctx, s, sheet.MachineDesign, "team-a", 80)

		a := round.New()
		_, err := advance(ctx, s, a, []string{"team-a"})
		So(err, ShouldBeNil)

		Convey("When the partition is revised without an undo in between", func() {
			_, err := advance(ctx, s, a, []string{"team-b"})
			So(err, ShouldBeNil)

			Convey("Then the snapshot still holds the preliminary total", func() {
				tm, err := s.Team(ctx, "team-a")
				So(err, ShouldBeNil)
				So(tm.Preliminary.Total, ShouldEqual, 255)
			})

			Convey("And a later undo restores the preliminary total exactly", func() {
				_, err := undo(ctx, s, a)
				So(err, ShouldBeNil)

				tm, err := s.Team(ctx, "team-a")
				So(err, ShouldBeNil)
				So(tm.Total, ShouldEqual, 255)
				So(tm.Presentation, ShouldEqual, 85)
			})
		})
	})
}
