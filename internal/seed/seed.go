// Package seed loads a demo contest fixture for local development.
//
// The fixture is a small but complete event: one contest with two preliminary
// clusters, designated championship and redesign clusters, judges with mixed
// kind flags, and provisioned scoresheets with randomized submitted scores,
// so every endpoint has data to serve right after startup.
package seed

import (
	"context"
	"fmt"
	"math/rand"

	"github.com/google/uuid"

	"github.com/EMDC-Fall-2025/backend-sub000/internal/domain/model"
	"github.com/EMDC-Fall-2025/backend-sub000/internal/domain/provision"
	"github.com/EMDC-Fall-2025/backend-sub000/internal/domain/store"
	"github.com/EMDC-Fall-2025/backend-sub000/pkg/logger"
)

// Fixture reports the identifiers of the seeded entities.
type Fixture struct {
	ContestID   string
	OrganizerID string
	ClusterIDs  []string
	TeamIDs     []string
	JudgeIDs    []string
	Scoresheets int
}

// Load seeds the demo contest into st and provisions preliminary
// scoresheets. It is not idempotent; call it once on an empty store.
func Load(ctx context.Context, st store.Store) (Fixture, error) {
	log := logger.Get().Named("seed")
	prov := provision.New()

	var fx Fixture
	err := st.Update(ctx, func(tx store.Tx) error {
		contest, err := tx.PutContest(ctx, model.Contest{ID: uuid.NewString(), Name: "Demo Regional"})
		if err != nil {
			return fmt.Errorf("seed contest: %w", err)
		}
		fx.ContestID = contest.ID

		fx.OrganizerID = uuid.NewString()
		if err := tx.AddOrganizer(ctx, fx.OrganizerID, contest.ID); err != nil {
			return fmt.Errorf("seed organizer: %w", err)
		}

		clusters := []model.Cluster{
			{Name: "Preliminary A", Type: model.ClusterPreliminary, Active: true},
			{Name: "Preliminary B", Type: model.ClusterPreliminary, Active: true},
			{Name: "Championship", Type: model.ClusterChampionship},
			{Name: "Redesign", Type: model.ClusterRedesign},
		}
		prelim := make([]model.Cluster, 0, 2)
		for _, c := range clusters {
			c.ID = uuid.NewString()
			c.ContestID = contest.ID
			stored, err := tx.PutCluster(ctx, c)
			if err != nil {
				return fmt.Errorf("seed cluster %s: %w", c.Name, err)
			}
			fx.ClusterIDs = append(fx.ClusterIDs, stored.ID)
			if stored.Type == model.ClusterPreliminary {
				prelim = append(prelim, stored)
			}
		}

		judges := []model.Judge{
			{Name: "Avery", Presentation: true, Journal: true, MachineDesign: true},
			{Name: "Blake", RunPenalties: true, OtherPenalties: true},
			{Name: "Casey", Presentation: true, Journal: true, MachineDesign: true, RunPenalties: true, OtherPenalties: true},
		}
		for i, j := range judges {
			j.ID = uuid.NewString()
			stored, err := tx.PutJudge(ctx, j)
			if err != nil {
				return fmt.Errorf("seed judge %s: %w", j.Name, err)
			}
			fx.JudgeIDs = append(fx.JudgeIDs, stored.ID)
			// Spread judges over the preliminary clusters; the last one
			// covers both.
			targets := []model.Cluster{prelim[i%len(prelim)]}
			if i == len(judges)-1 {
				targets = prelim
			}
			for _, c := range targets {
				if err := tx.MapJudgeToCluster(ctx, stored.ID, c.ID); err != nil {
					return fmt.Errorf("assign judge %s: %w", j.Name, err)
				}
			}
		}

		teamNames := []string{"Torque", "Gearless", "Flywheel", "Ratchet", "Camshaft", "Pinion"}
		for i, name := range teamNames {
			team, err := tx.PutTeam(ctx, model.Team{ID: uuid.NewString(), ContestID: contest.ID, Name: name})
			if err != nil {
				return fmt.Errorf("seed team %s: %w", name, err)
			}
			fx.TeamIDs = append(fx.TeamIDs, team.ID)
			if err := tx.MapTeamToCluster(ctx, team.ID, prelim[i%len(prelim)].ID); err != nil {
				return fmt.Errorf("place team %s: %w", name, err)
			}
		}

		for _, c := range prelim {
			created, err := prov.EnsureCluster(ctx, tx, c.ID)
			if err != nil {
				return fmt.Errorf("provision cluster %s: %w", c.Name, err)
			}
			fx.Scoresheets += created
		}

		// Submit randomized scores for all but the last judge, so the
		// fixture has both tabulated input and in-progress sheets.
		holdout := fx.JudgeIDs[len(fx.JudgeIDs)-1]
		for _, teamID := range fx.TeamIDs {
			sheets, err := tx.SheetsForTeam(ctx, teamID)
			if err != nil {
				return fmt.Errorf("list sheets for team %s: %w", teamID, err)
			}
			for _, sh := range sheets {
				if sh.JudgeID == holdout {
					continue
				}
				randomizeScores(&sh)
				sh.Submitted = true
				if err := tx.PutScoresheet(ctx, sh); err != nil {
					return fmt.Errorf("submit sheet %s: %w", sh.ID, err)
				}
			}
		}
		return nil
	})
	if err != nil {
		return Fixture{}, err
	}

	log.Info(ctx, "demo fixture loaded",
		logger.String("contestID", fx.ContestID),
		logger.Int("teams", len(fx.TeamIDs)),
		logger.Int("judges", len(fx.JudgeIDs)),
		logger.Int("scoresheets", fx.Scoresheets),
	)
	return fx, nil
}

// randomizeScores fills sh's payload with plausible demo values.
func randomizeScores(sh *model.Scoresheet) {
	switch {
	case sh.Rubric != nil:
		fillScores(sh.Rubric.Scores[:], 10)
	case sh.RunPenalty != nil:
		fillScores(sh.RunPenalty.RunOne[:], 2)
		fillScores(sh.RunPenalty.RunTwo[:], 2)
	case sh.OtherPenalty != nil:
		fillScores(sh.OtherPenalty.Scores[:], 2)
	case sh.RedesignSheet != nil:
		fillScores(sh.RedesignSheet.Scores[:], 10)
	case sh.ChampionshipSh != nil:
		fillScores(sh.ChampionshipSh.MachineDesign[:], 10)
		fillScores(sh.ChampionshipSh.Presentation[:], 10)
		fillScores(sh.ChampionshipSh.GeneralPenalties[:], 2)
		fillScores(sh.ChampionshipSh.RunOnePenalties[:], 2)
		fillScores(sh.ChampionshipSh.RunTwoPenalties[:], 2)
	}
}

// fillScores writes whole-point values in [0, max] into dst.
func fillScores(dst []float64, max int) {
	for i := range dst {
		dst[i] = float64(rand.Intn(max + 1))
	}
}

