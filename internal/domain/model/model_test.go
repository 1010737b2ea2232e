package model_test

import (
	"testing"

	"github.com/EMDC-Fall-2025/backend-sub000/internal/domain/model"
	"github.com/EMDC-Fall-2025/backend-sub000/internal/domain/sheet"
	. "github.com/smartystreets/goconvey/convey"
)

func TestBlankScoresheet(t *testing.T) {
	Convey("Given blank sheets of each kind", t, func() {
		kinds := []sheet.Kind{
			sheet.Presentation, sheet.Journal, sheet.MachineDesign,
			sheet.RunPenalties, sheet.OtherPenalties,
			sheet.Redesign, sheet.Championship,
		}

		Convey("Then each should validate and be unsubmitted", func() {
			for _, k := range kinds {
				s := model.BlankScoresheet(k, "judge-1", "team-1")
				So(s.Validate(), ShouldBeNil)
				So(s.Submitted, ShouldBeFalse)
				So(s.JudgeID, ShouldEqual, "judge-1")
				So(s.TeamID, ShouldEqual, "team-1")
			}
		})
	})
}

func TestScoresheetValidate(t *testing.T) {
	Convey("Given malformed scoresheets", t, func() {
		Convey("An unknown kind is rejected", func() {
			s := model.Scoresheet{Kind: "bonus", Rubric: &sheet.Rubric{}}
			So(s.Validate(), ShouldWrap, model.ErrUnknownSheetKind)
		})

		Convey("A sheet with no payload is rejected", func() {
			s := model.Scoresheet{Kind: sheet.Presentation}
			So(s.Validate(), ShouldWrap, model.ErrPayloadMismatch)
		})

		Convey("A sheet with two payloads is rejected", func() {
			s := model.Scoresheet{
				Kind:         sheet.Presentation,
				Rubric:       &sheet.Rubric{},
				OtherPenalty: &sheet.OtherPenaltySheet{},
			}
			So(s.Validate(), ShouldWrap, model.ErrPayloadMismatch)
		})

		Convey("A sheet whose payload does not match its kind is rejected", func() {
			s := model.Scoresheet{Kind: sheet.Championship, Rubric: &sheet.Rubric{}}
			So(s.Validate(), ShouldWrap, model.ErrPayloadMismatch)
		})
	})
}

func TestJudgeKindEnabled(t *testing.T) {
	Convey("Given a judge with a mix of kind flags", t, func() {
		j := model.Judge{Presentation: true, RunPenalties: true, Championship: true}

		So(j.KindEnabled(sheet.Presentation), ShouldBeTrue)
		So(j.KindEnabled(sheet.RunPenalties), ShouldBeTrue)
		So(j.KindEnabled(sheet.Championship), ShouldBeTrue)
		So(j.KindEnabled(sheet.Journal), ShouldBeFalse)
		So(j.KindEnabled(sheet.Redesign), ShouldBeFalse)
		So(j.KindEnabled(sheet.Kind("bonus")), ShouldBeFalse)
	})
}

func TestRoundOf(t *testing.T) {
	Convey("Given teams in different pools", t, func() {
		redesign := model.Cluster{ID: "c-r", Type: model.ClusterRedesign, Active: true}
		prelim := model.Cluster{ID: "c-p", Type: model.ClusterPreliminary, Active: true}

		Convey("An advanced team is in the championship pool", func() {
			team := model.Team{AdvancedToChampionship: true}
			So(team.RoundOf([]model.Cluster{redesign}), ShouldEqual, model.RoundChampionship)
		})

		Convey("A non-advanced team in an active redesign cluster is in redesign", func() {
			team := model.Team{}
			So(team.RoundOf([]model.Cluster{prelim, redesign}), ShouldEqual, model.RoundRedesign)
		})

		Convey("Otherwise the team is preliminary", func() {
			team := model.Team{}
			So(team.RoundOf([]model.Cluster{prelim}), ShouldEqual, model.RoundPreliminary)

			inactive := redesign
			inactive.Active = false
			So(team.RoundOf([]model.Cluster{inactive}), ShouldEqual, model.RoundPreliminary)
		})
	})
}

func TestRecomputeTaskCoalesceKey(t *testing.T) {
	Convey("Given recompute tasks", t, func() {
		So(model.RecomputeTask{ContestID: "c1"}.CoalesceKey(), ShouldEqual, "c1")
		So(model.RecomputeTask{ContestID: "c1", TeamID: "t1"}.CoalesceKey(), ShouldEqual, "c1/t1")
	})
}
