// Package rank produces deterministic team orderings and assigns rank fields.
//
// Ordering rule: chosen score field descending, team id ascending on ties.
// The tie-break guarantees a total order, so identical inputs always produce
// identical ranks regardless of input order.
package rank

import (
	"context"
	"fmt"
	"sort"

	"github.com/EMDC-Fall-2025/backend-sub000/internal/domain/model"
	"github.com/EMDC-Fall-2025/backend-sub000/internal/domain/store"
	"github.com/EMDC-Fall-2025/backend-sub000/pkg/logger"
)

// Field selects the numeric team field an ordering is keyed on.
type Field string

// Rankable fields.
const (
	FieldTotal             Field = "total_score"
	FieldPresentation      Field = "presentation_score"
	FieldJournal           Field = "journal_score"
	FieldMachineDesign     Field = "machine_design_score"
	FieldPenalties         Field = "penalties"
	FieldRedesign          Field = "redesign_score"
	FieldChampionshipTotal Field = "championship_total"
)

// Value returns the team's value for the field, or 0 for an unknown field.
func (f Field) Value(t model.Team) float64 {
	switch f {
	case FieldTotal:
		return t.Total
	case FieldPresentation:
		return t.Presentation
	case FieldJournal:
		return t.Journal
	case FieldMachineDesign:
		return t.MachineDesign
	case FieldPenalties:
		return t.Penalties
	case FieldRedesign:
		return t.Redesign
	case FieldChampionshipTotal:
		return t.Championship.Total
	}
	return 0
}

// ByField returns a new slice with the teams ordered by the field descending,
// id ascending on ties. The input slice is not modified.
func ByField(teams []model.Team, f Field) []model.Team {
	ordered := make([]model.Team, len(teams))
	copy(ordered, teams)
	sort.SliceStable(ordered, func(i, j int) bool {
		a, b := f.Value(ordered[i]), f.Value(ordered[j])
		if a != b {
			return a > b // higher score ranks earlier
		}
		return ordered[i].ID < ordered[j].ID // tie-break by id asc
	})
	return ordered
}

// eligible filters out organizer-disqualified teams, which are excluded from
// ranking entirely (their rank fields become nil, not merely low).
func eligible(teams []model.Team) []model.Team {
	out := make([]model.Team, 0, len(teams))
	for _, t := range teams {
		if !t.OrganizerDisqualified {
			out = append(out, t)
		}
	}
	return out
}

// Ranker assigns rank fields to teams. The ranker is the only component that
// writes them.
type Ranker struct {
	logger logger.Logger
}

// Option applies a configuration option to the Ranker.
type Option func(*Ranker)

// WithLogger sets a custom logger for the ranker.
func WithLogger(l logger.Logger) Option {
	return func(r *Ranker) {
		if l != nil {
			r.logger = l
		}
	}
}

// New constructs a Ranker.
func New(opts ...Option) *Ranker {
	r := &Ranker{
		logger: logger.Get().Named("rank"),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// RankCluster assigns 1-based contiguous cluster ranks by total score to the
// cluster's eligible teams and clears the cluster rank of disqualified ones.
func (r *Ranker) RankCluster(ctx context.Context, tx store.Tx, clusterID string) error {
	if _, err := tx.Cluster(ctx, clusterID); err != nil {
		return fmt.Errorf("load cluster: %w", err)
	}
	teams, err := tx.TeamsInCluster(ctx, clusterID)
	if err != nil {
		return fmt.Errorf("load cluster teams: %w", err)
	}

	assigned := assign(teams, FieldTotal, func(t *model.Team, rank *int) {
		t.ClusterRank = rank
	})
	for _, t := range assigned {
		if _, err := tx.PutTeam(ctx, t); err != nil {
			return fmt.Errorf("persist cluster rank: %w", err)
		}
	}

	r.logger.Debug(ctx, "ranked cluster",
		logger.String("clusterID", clusterID),
		logger.Int("teams", len(teams)),
	)
	return nil
}

// RankContest assigns contest-wide team ranks by total score, and
// championship ranks by championship total among advanced teams.
// Disqualified teams get nil ranks.
func (r *Ranker) RankContest(ctx context.Context, tx store.Tx, contestID string) error {
	if _, err := tx.Contest(ctx, contestID); err != nil {
		return fmt.Errorf("load contest: %w", err)
	}
	teams, err := tx.TeamsInContest(ctx, contestID)
	if err != nil {
		return fmt.Errorf("load contest teams: %w", err)
	}

	assigned := assign(teams, FieldTotal, func(t *model.Team, rank *int) {
		t.TeamRank = rank
	})

	// Championship ranks only exist for advanced teams.
	advanced := make([]model.Team, 0, len(assigned))
	for i := range assigned {
		assigned[i].ChampionshipRank = nil
		if assigned[i].AdvancedToChampionship {
			advanced = append(advanced, assigned[i])
		}
	}
	champRanks := make(map[string]int, len(advanced))
	for pos, t := range ByField(eligible(advanced), FieldChampionshipTotal) {
		champRanks[t.ID] = pos + 1
	}
	for i := range assigned {
		if rank, ok := champRanks[assigned[i].ID]; ok {
			rank := rank
			assigned[i].ChampionshipRank = &rank
		}
	}

	for _, t := range assigned {
		if _, err := tx.PutTeam(ctx, t); err != nil {
			return fmt.Errorf("persist contest rank: %w", err)
		}
	}

	r.logger.Debug(ctx, "ranked contest",
		logger.String("contestID", contestID),
		logger.Int("teams", len(teams)),
		logger.Int("advanced", len(advanced)),
	)
	return nil
}

// assign orders the eligible subset by field and writes 1-based contiguous
// positions through set; disqualified teams get nil. Returns every input
// team with its rank field updated.
func assign(teams []model.Team, f Field, set func(*model.Team, *int)) []model.Team {
	positions := make(map[string]int, len(teams))
	for pos, t := range ByField(eligible(teams), f) {
		positions[t.ID] = pos + 1
	}

	out := make([]model.Team, len(teams))
	for i, t := range teams {
		if pos, ok := positions[t.ID]; ok {
			pos := pos
			set(&t, &pos)
		} else {
			set(&t, nil)
		}
		out[i] = t
	}
	return out
}
