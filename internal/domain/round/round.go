// Package round implements the advancement state machine.
//
// A contest's teams live in exactly one of three pools: preliminary,
// championship or redesign. AdvanceToChampionship repartitions every team
// into championship or redesign; UndoAdvancement returns them all to
// preliminary. Both run against a single transaction, so a failing step
// leaves no partial transition observable. This package is the only writer
// of the advanced flag and of cluster membership during a transition.
package round

import (
	"context"
	"fmt"

	"github.com/EMDC-Fall-2025/backend-sub000/internal/domain/model"
	"github.com/EMDC-Fall-2025/backend-sub000/internal/domain/provision"
	"github.com/EMDC-Fall-2025/backend-sub000/internal/domain/rank"
	"github.com/EMDC-Fall-2025/backend-sub000/internal/domain/sheet"
	"github.com/EMDC-Fall-2025/backend-sub000/internal/domain/store"
	"github.com/EMDC-Fall-2025/backend-sub000/internal/domain/tabulate"
	"github.com/EMDC-Fall-2025/backend-sub000/pkg/logger"
)

// Result reports the outcome of an advancement.
type Result struct {
	ChampionshipClusterID string `json:"championship_cluster_id"`
	RedesignClusterID     string `json:"redesign_cluster_id"`
	Advanced              int    `json:"advanced"`
	Redesigned            int    `json:"redesigned"`
}

// UndoResult reports the outcome of an undo.
type UndoResult struct {
	PreliminaryClusterID string `json:"preliminary_cluster_id"`
	TeamsReset           int    `json:"teams_reset"`
}

// Advancer moves a contest's teams between round pools.
type Advancer struct {
	tabulator   *tabulate.Tabulator
	ranker      *rank.Ranker
	provisioner *provision.Provisioner
	logger      logger.Logger
}

// Option applies a configuration option to the Advancer.
type Option func(*Advancer)

// WithLogger sets a custom logger for the advancer.
func WithLogger(l logger.Logger) Option {
	return func(a *Advancer) {
		if l != nil {
			a.logger = l
		}
	}
}

// WithTabulator sets the tabulator used for the post-transition recompute.
func WithTabulator(t *tabulate.Tabulator) Option {
	return func(a *Advancer) {
		if t != nil {
			a.tabulator = t
		}
	}
}

// WithRanker sets the ranker used for the post-transition recompute.
func WithRanker(r *rank.Ranker) Option {
	return func(a *Advancer) {
		if r != nil {
			a.ranker = r
		}
	}
}

// WithProvisioner sets the provisioner used to regenerate scoresheets.
func WithProvisioner(p *provision.Provisioner) Option {
	return func(a *Advancer) {
		if p != nil {
			a.provisioner = p
		}
	}
}

// New constructs an Advancer.
func New(opts ...Option) *Advancer {
	a := &Advancer{
		logger: logger.Get().Named("round"),
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.tabulator == nil {
		a.tabulator = tabulate.New()
	}
	if a.ranker == nil {
		a.ranker = rank.New()
	}
	if a.provisioner == nil {
		a.provisioner = provision.New()
	}
	return a
}

// AdvanceToChampionship repartitions the contest's teams: the supplied ids
// move to the championship pool, every other team moves to redesign. Supplied
// ids outside the contest's team set are silently ignored. The transition
// snapshots each team's preliminary scores before zeroing the fields the new
// round will recompute, re-points cluster membership, regenerates
// scoresheets, and recomputes totals and ranks. It runs entirely within tx.
func (a *Advancer) AdvanceToChampionship(ctx context.Context, tx store.Tx, organizerID, contestID string, teamIDs []string) (Result, error) {
	if err := a.requireOrganizer(ctx, tx, organizerID, contestID); err != nil {
		return Result{}, err
	}

	champ, redesign, err := a.resolveTargets(ctx, tx, contestID)
	if err != nil {
		return Result{}, err
	}

	teams, err := tx.TeamsInContest(ctx, contestID)
	if err != nil {
		return Result{}, fmt.Errorf("load contest teams: %w", err)
	}
	chosen := make(map[string]bool, len(teamIDs))
	for _, id := range teamIDs {
		chosen[id] = true
	}

	res := Result{ChampionshipClusterID: champ.ID, RedesignClusterID: redesign.ID}
	for _, t := range teams {
		t.AdvancedToChampionship = chosen[t.ID]
		t.ChampionshipRank = nil
		// On a re-advance t.Total holds the current round's total, so the
		// preliminary total is rebuilt from the category fields instead.
		t.Preliminary = model.PreliminaryScores{
			Presentation:  t.Presentation,
			Journal:       t.Journal,
			MachineDesign: t.MachineDesign,
			Penalties:     t.Penalties,
			Total:         t.Presentation + t.Journal + t.MachineDesign - t.Penalties,
		}
		if t.AdvancedToChampionship {
			t.Championship = model.ChampionshipScores{}
			t.Total = 0
			res.Advanced++
		} else {
			t.Redesign = 0
			t.Total = 0
			res.Redesigned++
		}
		if _, err := tx.PutTeam(ctx, t); err != nil {
			return Result{}, fmt.Errorf("persist team %s: %w", t.ID, err)
		}
	}

	// Re-point membership wholesale rather than diffing against a possibly
	// partial prior advancement.
	for _, c := range []model.Cluster{champ, redesign} {
		if err := tx.ClearClusterTeams(ctx, c.ID); err != nil {
			return Result{}, fmt.Errorf("clear cluster %s: %w", c.ID, err)
		}
		c.Active = true
		if _, err := tx.PutCluster(ctx, c); err != nil {
			return Result{}, fmt.Errorf("activate cluster %s: %w", c.ID, err)
		}
	}
	for _, t := range teams {
		target := redesign.ID
		if chosen[t.ID] {
			target = champ.ID
		}
		if err := a.remapTeam(ctx, tx, t.ID, target); err != nil {
			return Result{}, err
		}
	}

	if err := a.refreshJudges(ctx, tx, champ.ID, sheet.Championship); err != nil {
		return Result{}, err
	}
	if err := a.refreshJudges(ctx, tx, redesign.ID, sheet.Redesign); err != nil {
		return Result{}, err
	}
	for _, id := range []string{champ.ID, redesign.ID} {
		if _, err := a.provisioner.EnsureCluster(ctx, tx, id); err != nil {
			return Result{}, fmt.Errorf("provision cluster %s: %w", id, err)
		}
	}

	if err := a.recompute(ctx, tx, contestID); err != nil {
		return Result{}, err
	}

	a.logger.Info(ctx, "advanced contest",
		logger.String("contestID", contestID),
		logger.Int("advanced", res.Advanced),
		logger.Int("redesigned", res.Redesigned),
	)
	return res, nil
}

// UndoAdvancement reverses a prior advancement: deactivates the championship
// and redesign clusters, drops their memberships and scoresheets, restores
// every team's preliminary snapshot and reassigns all teams to the lowest-id
// preliminary cluster. Safe to call when a prior advancement was partial.
func (a *Advancer) UndoAdvancement(ctx context.Context, tx store.Tx, organizerID, contestID string) (UndoResult, error) {
	if err := a.requireOrganizer(ctx, tx, organizerID, contestID); err != nil {
		return UndoResult{}, err
	}

	clusters, err := tx.ClustersInContest(ctx, contestID)
	if err != nil {
		return UndoResult{}, fmt.Errorf("load contest clusters: %w", err)
	}
	var prelim *model.Cluster
	for i, c := range clusters {
		switch c.Type {
		case model.ClusterPreliminary:
			// Listings are id-sorted, so the first hit is the lowest id.
			if prelim == nil {
				prelim = &clusters[i]
			}
		case model.ClusterChampionship, model.ClusterRedesign:
			if err := a.teardownCluster(ctx, tx, c); err != nil {
				return UndoResult{}, err
			}
		}
	}
	if prelim == nil {
		return UndoResult{}, ErrMissingPreliminaryCluster
	}

	teams, err := tx.TeamsInContest(ctx, contestID)
	if err != nil {
		return UndoResult{}, fmt.Errorf("load contest teams: %w", err)
	}
	for _, t := range teams {
		t.Presentation = t.Preliminary.Presentation
		t.Journal = t.Preliminary.Journal
		t.MachineDesign = t.Preliminary.MachineDesign
		t.Penalties = t.Preliminary.Penalties
		t.Total = t.Preliminary.Total
		t.Championship = model.ChampionshipScores{}
		t.Redesign = 0
		t.AdvancedToChampionship = false
		t.ChampionshipRank = nil
		if _, err := tx.PutTeam(ctx, t); err != nil {
			return UndoResult{}, fmt.Errorf("restore team %s: %w", t.ID, err)
		}
		if err := a.remapTeam(ctx, tx, t.ID, prelim.ID); err != nil {
			return UndoResult{}, err
		}
	}

	// Totals come straight from the restored snapshots; only the ranks are
	// re-derived.
	if err := a.rerank(ctx, tx, contestID); err != nil {
		return UndoResult{}, err
	}

	a.logger.Info(ctx, "undid advancement",
		logger.String("contestID", contestID),
		logger.Int("teamsReset", len(teams)),
	)
	return UndoResult{PreliminaryClusterID: prelim.ID, TeamsReset: len(teams)}, nil
}

// Advancers returns the contest's currently advanced teams, sorted by id.
func (a *Advancer) Advancers(ctx context.Context, r store.Reader, contestID string) ([]model.Team, error) {
	teams, err := r.TeamsInContest(ctx, contestID)
	if err != nil {
		return nil, fmt.Errorf("load contest teams: %w", err)
	}
	out := make([]model.Team, 0, len(teams))
	for _, t := range teams {
		if t.AdvancedToChampionship {
			out = append(out, t)
		}
	}
	return out, nil
}

func (a *Advancer) requireOrganizer(ctx context.Context, tx store.Tx, organizerID, contestID string) error {
	ok, err := tx.IsOrganizer(ctx, organizerID, contestID)
	if err != nil {
		return fmt.Errorf("organizer check: %w", err)
	}
	if !ok {
		return ErrNotOrganizer
	}
	return nil
}

// resolveTargets picks the contest's championship and redesign clusters.
// With multiple candidates of a type the lowest id wins; a missing type
// aborts the transition before any mutation.
func (a *Advancer) resolveTargets(ctx context.Context, tx store.Tx, contestID string) (champ, redesign model.Cluster, err error) {
	clusters, err := tx.ClustersInContest(ctx, contestID)
	if err != nil {
		return champ, redesign, fmt.Errorf("load contest clusters: %w", err)
	}
	var haveChamp, haveRedesign bool
	for _, c := range clusters {
		switch c.Type {
		case model.ClusterChampionship:
			if !haveChamp {
				champ, haveChamp = c, true
			}
		case model.ClusterRedesign:
			if !haveRedesign {
				redesign, haveRedesign = c, true
			}
		}
	}
	if !haveChamp {
		return champ, redesign, ErrMissingChampionshipCluster
	}
	if !haveRedesign {
		return champ, redesign, ErrMissingRedesignCluster
	}
	return champ, redesign, nil
}

// refreshJudges flips the round flag on the cluster's judges and drops their
// stale sheets of that kind, so provisioning never duplicates a sheet left
// over from a prior advancement.
func (a *Advancer) refreshJudges(ctx context.Context, tx store.Tx, clusterID string, kind sheet.Kind) error {
	judges, err := tx.JudgesInCluster(ctx, clusterID)
	if err != nil {
		return fmt.Errorf("load cluster judges: %w", err)
	}
	for _, j := range judges {
		switch kind {
		case sheet.Championship:
			j.Championship = true
		case sheet.Redesign:
			j.Redesign = true
		}
		if _, err := tx.PutJudge(ctx, j); err != nil {
			return fmt.Errorf("update judge %s: %w", j.ID, err)
		}
		if err := a.dropSheets(ctx, tx, j.ID, kind); err != nil {
			return err
		}
	}
	return nil
}

// teardownCluster deactivates one championship or redesign cluster, clears
// its team membership, drops its round's sheets and resets its judges' round
// flag. Already-torn-down clusters pass through unchanged.
func (a *Advancer) teardownCluster(ctx context.Context, tx store.Tx, c model.Cluster) error {
	kind := sheet.Championship
	if c.Type == model.ClusterRedesign {
		kind = sheet.Redesign
	}

	judges, err := tx.JudgesInCluster(ctx, c.ID)
	if err != nil {
		return fmt.Errorf("load cluster judges: %w", err)
	}
	for _, j := range judges {
		switch kind {
		case sheet.Championship:
			j.Championship = false
		case sheet.Redesign:
			j.Redesign = false
		}
		if _, err := tx.PutJudge(ctx, j); err != nil {
			return fmt.Errorf("update judge %s: %w", j.ID, err)
		}
		if err := a.dropSheets(ctx, tx, j.ID, kind); err != nil {
			return err
		}
	}

	if err := tx.ClearClusterTeams(ctx, c.ID); err != nil {
		return fmt.Errorf("clear cluster %s: %w", c.ID, err)
	}
	c.Active = false
	if _, err := tx.PutCluster(ctx, c); err != nil {
		return fmt.Errorf("deactivate cluster %s: %w", c.ID, err)
	}
	return nil
}

// remapTeam leaves the team a member of exactly the target cluster. The
// prior round's memberships are deleted with the round change, keeping the
// three pools mutually exclusive.
func (a *Advancer) remapTeam(ctx context.Context, tx store.Tx, teamID, targetID string) error {
	clusters, err := tx.ClustersForTeam(ctx, teamID)
	if err != nil {
		return fmt.Errorf("load team clusters: %w", err)
	}
	for _, c := range clusters {
		if c.ID == targetID {
			continue
		}
		if err := tx.UnmapTeamFromCluster(ctx, teamID, c.ID); err != nil {
			return fmt.Errorf("unmap team %s from cluster %s: %w", teamID, c.ID, err)
		}
	}
	if err := tx.MapTeamToCluster(ctx, teamID, targetID); err != nil {
		return fmt.Errorf("map team %s: %w", teamID, err)
	}
	return nil
}

func (a *Advancer) dropSheets(ctx context.Context, tx store.Tx, judgeID string, kind sheet.Kind) error {
	sheets, err := tx.SheetsForJudge(ctx, judgeID)
	if err != nil {
		return fmt.Errorf("load judge sheets: %w", err)
	}
	for _, s := range sheets {
		if s.Kind != kind {
			continue
		}
		if err := tx.DeleteScoresheet(ctx, s.ID); err != nil {
			return fmt.Errorf("delete sheet %s: %w", s.ID, err)
		}
	}
	return nil
}

// recompute re-derives every team's totals and all rank fields for the
// contest.
func (a *Advancer) recompute(ctx context.Context, tx store.Tx, contestID string) error {
	teams, err := tx.TeamsInContest(ctx, contestID)
	if err != nil {
		return fmt.Errorf("load contest teams: %w", err)
	}
	for _, t := range teams {
		if _, err := a.tabulator.ComputeTotals(ctx, tx, t.ID); err != nil {
			return fmt.Errorf("recompute team %s: %w", t.ID, err)
		}
	}
	return a.rerank(ctx, tx, contestID)
}

// rerank reassigns contest, championship and per-cluster ranks from the
// totals currently on the teams.
func (a *Advancer) rerank(ctx context.Context, tx store.Tx, contestID string) error {
	if err := a.ranker.RankContest(ctx, tx, contestID); err != nil {
		return fmt.Errorf("rank contest: %w", err)
	}
	clusters, err := tx.ClustersInContest(ctx, contestID)
	if err != nil {
		return fmt.Errorf("load contest clusters: %w", err)
	}
	for _, c := range clusters {
		if err := a.ranker.RankCluster(ctx, tx, c.ID); err != nil {
			return fmt.Errorf("rank cluster %s: %w", c.ID, err)
		}
	}
	return nil
}
