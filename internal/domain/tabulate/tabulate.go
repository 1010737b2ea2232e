// Package tabulate aggregates submitted scoresheets into team totals.
package tabulate

import (
	"context"
	"fmt"
	"math"

	"github.com/EMDC-Fall-2025/backend-sub000/internal/domain/model"
	"github.com/EMDC-Fall-2025/backend-sub000/internal/domain/sheet"
	"github.com/EMDC-Fall-2025/backend-sub000/internal/domain/store"
	"github.com/EMDC-Fall-2025/backend-sub000/pkg/logger"
)

// Tabulator recomputes a team's category totals from its scoresheets.
type Tabulator struct {
	logger logger.Logger
}

// Option applies a configuration option to the Tabulator.
type Option func(*Tabulator)

// WithLogger sets a custom logger for the tabulator.
func WithLogger(l logger.Logger) Option {
	return func(t *Tabulator) {
		if l != nil {
			t.logger = l
		}
	}
}

// New constructs a Tabulator.
func New(opts ...Option) *Tabulator {
	t := &Tabulator{
		logger: logger.Get().Named("tabulate"),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// ComputeTotals recomputes and persists the team's score fields from every
// submitted scoresheet assigned to it. Unsubmitted sheets never contribute.
// The total formula follows the team's current round pool.
func (t *Tabulator) ComputeTotals(ctx context.Context, tx store.Tx, teamID string) (model.Team, error) {
	team, err := tx.Team(ctx, teamID)
	if err != nil {
		return model.Team{}, fmt.Errorf("load team: %w", err)
	}

	clusters, err := tx.ClustersForTeam(ctx, teamID)
	if err != nil {
		return model.Team{}, fmt.Errorf("load team clusters: %w", err)
	}

	sheets, err := tx.SheetsForTeam(ctx, teamID)
	if err != nil {
		return model.Team{}, fmt.Errorf("load team scoresheets: %w", err)
	}

	round := team.RoundOf(clusters)
	team = Totals(team, round, sheets)

	team, err = tx.PutTeam(ctx, team)
	if err != nil {
		return model.Team{}, fmt.Errorf("persist totals: %w", err)
	}

	t.logger.Debug(ctx, "recomputed totals",
		logger.String("teamID", team.ID),
		logger.String("round", string(round)),
		logger.Float64("total", team.Total),
		logger.Int("sheets", len(sheets)),
	)
	return team, nil
}

// accumulator tracks a running sum and the count of contributing sheets for
// one averaged category.
type accumulator struct {
	sum float64
	n   int
}

func (a *accumulator) add(x float64) {
	a.sum += x
	a.n++
}

// mean returns sum/n, or 0 when there are no contributing sheets or the
// operands are not finite. Aggregation never raises on empty categories.
func (a accumulator) mean() float64 {
	return quiet(a.sum, a.n)
}

func quiet(sum float64, n int) float64 {
	if n == 0 {
		return 0
	}
	q := sum / float64(n)
	if math.IsNaN(q) || math.IsInf(q, 0) {
		return 0
	}
	return q
}

// sanitize maps NaN/Inf to 0 so a malformed field can never poison a total.
func sanitize(x float64) float64 {
	if math.IsNaN(x) || math.IsInf(x, 0) {
		return 0
	}
	return x
}

// Totals folds the submitted sheets into the team's score fields and applies
// the round-appropriate total formula. Presentation, Journal, MachineDesign
// and both run-penalty groups average across judges; other-penalty sheets
// accumulate. Championship sheets feed the championship breakdown only.
func Totals(team model.Team, round model.Round, sheets []model.Scoresheet) model.Team {
	var (
		pres, jour, md   accumulator
		runOne, runTwo   accumulator
		otherSum         float64
		redesign         accumulator
		champMD, champPr accumulator
		champR1, champR2 accumulator
		champGenSum      float64
	)

	for _, s := range sheets {
		if !s.Submitted {
			continue
		}
		switch s.Kind {
		case sheet.Presentation:
			if s.Rubric != nil {
				pres.add(s.Rubric.Sum())
			}
		case sheet.Journal:
			if s.Rubric != nil {
				jour.add(s.Rubric.Sum())
			}
		case sheet.MachineDesign:
			if s.Rubric != nil {
				md.add(s.Rubric.Sum())
			}
		case sheet.RunPenalties:
			if s.RunPenalty != nil {
				runOne.add(s.RunPenalty.SumRunOne())
				runTwo.add(s.RunPenalty.SumRunTwo())
			}
		case sheet.OtherPenalties:
			if s.OtherPenalty != nil {
				otherSum += s.OtherPenalty.Sum()
			}
		case sheet.Redesign:
			if s.RedesignSheet != nil {
				redesign.add(s.RedesignSheet.Sum())
			}
		case sheet.Championship:
			if s.ChampionshipSh != nil {
				champMD.add(s.ChampionshipSh.SumMachineDesign())
				champPr.add(s.ChampionshipSh.SumPresentation())
				champR1.add(s.ChampionshipSh.SumRunOnePenalties())
				champR2.add(s.ChampionshipSh.SumRunTwoPenalties())
				champGenSum += s.ChampionshipSh.SumGeneralPenalties()
			}
		}
	}

	team.Presentation = pres.mean()
	team.Journal = jour.mean()
	team.MachineDesign = md.mean()
	team.Penalties = sanitize(runOne.mean() + runTwo.mean() + sanitize(otherSum))
	team.Redesign = redesign.mean()

	team.Championship.MachineDesign = champMD.mean()
	team.Championship.Presentation = champPr.mean()
	team.Championship.GeneralPenalties = sanitize(champGenSum)
	team.Championship.RunPenalties = sanitize(champR1.mean() + champR2.mean())
	team.Championship.Total = sanitize(team.Championship.MachineDesign +
		team.Championship.Presentation -
		team.Championship.GeneralPenalties -
		team.Championship.RunPenalties)

	switch round {
	case model.RoundChampionship:
		team.Total = team.Championship.Total
	case model.RoundRedesign:
		team.Total = team.Redesign
	default:
		team.Total = sanitize(team.Presentation + team.Journal + team.MachineDesign - team.Penalties)
	}
	return team
}
