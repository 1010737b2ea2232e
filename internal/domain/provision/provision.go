// Package provision creates and removes blank scoresheets for judge/team
// pairs.
//
// A judge assigned to a cluster receives one sheet per member team for every
// kind that is both legal for the cluster's round and enabled on the judge.
// Provisioning is idempotent: a (judge, team, kind) triple that already has a
// sheet is left alone, submitted or not.
package provision

import (
	"context"
	"fmt"

	"github.com/EMDC-Fall-2025/backend-sub000/internal/domain/model"
	"github.com/EMDC-Fall-2025/backend-sub000/internal/domain/sheet"
	"github.com/EMDC-Fall-2025/backend-sub000/internal/domain/store"
	"github.com/EMDC-Fall-2025/backend-sub000/pkg/logger"
	"github.com/EMDC-Fall-2025/backend-sub000/pkg/metrics"
)

// LegalKinds returns the sheet kinds a cluster of the given type may host.
func LegalKinds(t model.ClusterType) []sheet.Kind {
	switch t {
	case model.ClusterPreliminary:
		return sheet.PreliminaryKinds()
	case model.ClusterChampionship:
		return []sheet.Kind{sheet.Championship}
	case model.ClusterRedesign:
		return []sheet.Kind{sheet.Redesign}
	}
	return nil
}

// Provisioner manages the scoresheet population of clusters.
type Provisioner struct {
	logger logger.Logger
}

// Option applies a configuration option to the Provisioner.
type Option func(*Provisioner)

// WithLogger sets a custom logger for the provisioner.
func WithLogger(l logger.Logger) Option {
	return func(p *Provisioner) {
		if l != nil {
			p.logger = l
		}
	}
}

// New constructs a Provisioner.
func New(opts ...Option) *Provisioner {
	p := &Provisioner{
		logger: logger.Get().Named("provision"),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// EnsureCluster provisions sheets for every judge and team currently in the
// cluster. Kinds outside the cluster's round or disabled on a judge are
// skipped. Returns the number of sheets created.
func (p *Provisioner) EnsureCluster(ctx context.Context, tx store.Tx, clusterID string) (int, error) {
	cluster, err := tx.Cluster(ctx, clusterID)
	if err != nil {
		return 0, fmt.Errorf("load cluster: %w", err)
	}
	judges, err := tx.JudgesInCluster(ctx, clusterID)
	if err != nil {
		return 0, fmt.Errorf("load cluster judges: %w", err)
	}
	teams, err := tx.TeamsInCluster(ctx, clusterID)
	if err != nil {
		return 0, fmt.Errorf("load cluster teams: %w", err)
	}

	created := 0
	for _, j := range judges {
		for _, t := range teams {
			n, err := p.EnsureScoresheets(ctx, tx, j, t.ID, LegalKinds(cluster.Type))
			if err != nil {
				return created, err
			}
			created += n
		}
	}

	p.logger.Debug(ctx, "provisioned cluster",
		logger.String("clusterID", clusterID),
		logger.String("type", string(cluster.Type)),
		logger.Int("created", created),
	)
	return created, nil
}

// EnsureScoresheets creates blank sheets of the given kinds for one
// (judge, team) pair, honoring the judge's kind flags. Existing sheets of a
// kind are kept as they are. Returns the number of sheets created.
func (p *Provisioner) EnsureScoresheets(ctx context.Context, tx store.Tx, judge model.Judge, teamID string, kinds []sheet.Kind) (int, error) {
	existing, err := tx.SheetsForJudgeTeam(ctx, judge.ID, teamID)
	if err != nil {
		return 0, fmt.Errorf("load existing sheets: %w", err)
	}
	have := make(map[sheet.Kind]bool, len(existing))
	for _, s := range existing {
		have[s.Kind] = true
	}

	created := 0
	for _, k := range kinds {
		if !judge.KindEnabled(k) || have[k] {
			continue
		}
		if _, err := tx.CreateScoresheet(ctx, model.BlankScoresheet(k, judge.ID, teamID)); err != nil {
			return created, fmt.Errorf("create %s sheet: %w", k, err)
		}
		metrics.RecordScoresheetCreated()
		created++
	}
	return created, nil
}

// RemoveScoresheets deletes the judge's sheets of the given kinds for one
// team, submitted or not. Used when a judge or team leaves a round.
func (p *Provisioner) RemoveScoresheets(ctx context.Context, tx store.Tx, judgeID, teamID string, kinds []sheet.Kind) (int, error) {
	existing, err := tx.SheetsForJudgeTeam(ctx, judgeID, teamID)
	if err != nil {
		return 0, fmt.Errorf("load existing sheets: %w", err)
	}
	drop := make(map[sheet.Kind]bool, len(kinds))
	for _, k := range kinds {
		drop[k] = true
	}

	removed := 0
	for _, s := range existing {
		if !drop[s.Kind] {
			continue
		}
		if err := tx.DeleteScoresheet(ctx, s.ID); err != nil {
			return removed, fmt.Errorf("delete %s sheet: %w", s.Kind, err)
		}
		removed++
	}
	return removed, nil
}
