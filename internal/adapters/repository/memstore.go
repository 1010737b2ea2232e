// Package repository provides the in-memory transactional store backing the
// tabulation service.
//
// Transactions follow a clone-mutate-swap discipline: Update deep-copies the
// current state, runs the body against the copy, and installs the copy only
// when the body returns nil. A failing body therefore leaves no partial
// mutation observable, which the advancement transition relies on.
package repository

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/EMDC-Fall-2025/backend-sub000/internal/domain/model"
	"github.com/EMDC-Fall-2025/backend-sub000/internal/domain/store"
)

// state holds every table and join relation. Join relations are sets keyed
// parent -> child.
type state struct {
	contests map[string]model.Contest
	clusters map[string]model.Cluster
	teams    map[string]model.Team
	judges   map[string]model.Judge
	sheets   map[string]model.Scoresheet

	clusterTeams      map[string]map[string]struct{} // clusterID -> teamIDs
	clusterJudges     map[string]map[string]struct{} // clusterID -> judgeIDs
	contestOrganizers map[string]map[string]struct{} // contestID -> organizerIDs
}

func newState() *state {
	return &state{
		contests:          make(map[string]model.Contest),
		clusters:          make(map[string]model.Cluster),
		teams:             make(map[string]model.Team),
		judges:            make(map[string]model.Judge),
		sheets:            make(map[string]model.Scoresheet),
		clusterTeams:      make(map[string]map[string]struct{}),
		clusterJudges:     make(map[string]map[string]struct{}),
		contestOrganizers: make(map[string]map[string]struct{}),
	}
}

func (s *state) clone() *state {
	c := newState()
	for k, v := range s.contests {
		c.contests[k] = v
	}
	for k, v := range s.clusters {
		c.clusters[k] = v
	}
	for k, v := range s.teams {
		c.teams[k] = cloneTeam(v)
	}
	for k, v := range s.judges {
		c.judges[k] = v
	}
	for k, v := range s.sheets {
		c.sheets[k] = cloneSheet(v)
	}
	for k, v := range s.clusterTeams {
		c.clusterTeams[k] = cloneSet(v)
	}
	for k, v := range s.clusterJudges {
		c.clusterJudges[k] = cloneSet(v)
	}
	for k, v := range s.contestOrganizers {
		c.contestOrganizers[k] = cloneSet(v)
	}
	return c
}

func cloneSet(in map[string]struct{}) map[string]struct{} {
	out := make(map[string]struct{}, len(in))
	for k := range in {
		out[k] = struct{}{}
	}
	return out
}

// cloneTeam copies rank pointers so a transaction never aliases committed
// state.
func cloneTeam(t model.Team) model.Team {
	t.TeamRank = cloneInt(t.TeamRank)
	t.ClusterRank = cloneInt(t.ClusterRank)
	t.ChampionshipRank = cloneInt(t.ChampionshipRank)
	return t
}

func cloneInt(p *int) *int {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

// cloneSheet copies the payload pointer of the sheet's kind.
func cloneSheet(s model.Scoresheet) model.Scoresheet {
	if s.Rubric != nil {
		v := *s.Rubric
		s.Rubric = &v
	}
	if s.RunPenalty != nil {
		v := *s.RunPenalty
		s.RunPenalty = &v
	}
	if s.OtherPenalty != nil {
		v := *s.OtherPenalty
		s.OtherPenalty = &v
	}
	if s.RedesignSheet != nil {
		v := *s.RedesignSheet
		s.RedesignSheet = &v
	}
	if s.ChampionshipSh != nil {
		v := *s.ChampionshipSh
		s.ChampionshipSh = &v
	}
	return s
}

// MemStore is the in-memory store.Store implementation.
type MemStore struct {
	mu    sync.RWMutex
	st    *state
	newID func() string
}

var _ store.Store = (*MemStore)(nil)

// Option applies a configuration option to the MemStore.
type Option func(*MemStore)

// WithIDGenerator overrides id generation, mainly for deterministic tests.
func WithIDGenerator(gen func() string) Option {
	return func(m *MemStore) {
		if gen != nil {
			m.newID = gen
		}
	}
}

// NewMemStore creates an empty in-memory store.
func NewMemStore(opts ...Option) *MemStore {
	m := &MemStore{
		st:    newState(),
		newID: uuid.NewString,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Update runs fn against a transactional view and commits only on success.
func (m *MemStore) Update(ctx context.Context, fn func(tx store.Tx) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	work := m.st.clone()
	tx := &memTx{st: work, newID: m.newID}
	if err := fn(tx); err != nil {
		return err
	}
	m.st = work
	return nil
}

// Auto-commit single operations delegate to a one-shot transaction view.

func (m *MemStore) read() *memTx {
	return &memTx{st: m.st, newID: m.newID}
}

func (m *MemStore) Contest(ctx context.Context, id string) (model.Contest, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.read().Contest(ctx, id)
}

func (m *MemStore) Cluster(ctx context.Context, id string) (model.Cluster, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.read().Cluster(ctx, id)
}

func (m *MemStore) Team(ctx context.Context, id string) (model.Team, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.read().Team(ctx, id)
}

func (m *MemStore) Judge(ctx context.Context, id string) (model.Judge, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.read().Judge(ctx, id)
}

func (m *MemStore) Scoresheet(ctx context.Context, id string) (model.Scoresheet, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.read().Scoresheet(ctx, id)
}

func (m *MemStore) ClustersInContest(ctx context.Context, contestID string) ([]model.Cluster, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.read().ClustersInContest(ctx, contestID)
}

func (m *MemStore) TeamsInContest(ctx context.Context, contestID string) ([]model.Team, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.read().TeamsInContest(ctx, contestID)
}

func (m *MemStore) TeamsInCluster(ctx context.Context, clusterID string) ([]model.Team, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.read().TeamsInCluster(ctx, clusterID)
}

func (m *MemStore) JudgesInCluster(ctx context.Context, clusterID string) ([]model.Judge, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.read().JudgesInCluster(ctx, clusterID)
}

func (m *MemStore) ClustersForTeam(ctx context.Context, teamID string) ([]model.Cluster, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.read().ClustersForTeam(ctx, teamID)
}

func (m *MemStore) SheetsForTeam(ctx context.Context, teamID string) ([]model.Scoresheet, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.read().SheetsForTeam(ctx, teamID)
}

func (m *MemStore) SheetsForJudge(ctx context.Context, judgeID string) ([]model.Scoresheet, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.read().SheetsForJudge(ctx, judgeID)
}

func (m *MemStore) SheetsForJudgeTeam(ctx context.Context, judgeID, teamID string) ([]model.Scoresheet, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.read().SheetsForJudgeTeam(ctx, judgeID, teamID)
}

func (m *MemStore) IsOrganizer(ctx context.Context, organizerID, contestID string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.read().IsOrganizer(ctx, organizerID, contestID)
}

func (m *MemStore) CountTeams(ctx context.Context) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.st.teams)
}

func (m *MemStore) PutContest(ctx context.Context, c model.Contest) (model.Contest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.read().PutContest(ctx, c)
}

func (m *MemStore) PutCluster(ctx context.Context, c model.Cluster) (model.Cluster, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.read().PutCluster(ctx, c)
}

func (m *MemStore) PutTeam(ctx context.Context, t model.Team) (model.Team, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.read().PutTeam(ctx, t)
}

func (m *MemStore) PutJudge(ctx context.Context, j model.Judge) (model.Judge, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.read().PutJudge(ctx, j)
}

func (m *MemStore) CreateScoresheet(ctx context.Context, s model.Scoresheet) (model.Scoresheet, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.read().CreateScoresheet(ctx, s)
}

func (m *MemStore) PutScoresheet(ctx context.Context, s model.Scoresheet) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.read().PutScoresheet(ctx, s)
}

func (m *MemStore) DeleteScoresheet(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.read().DeleteScoresheet(ctx, id)
}

func (m *MemStore) MapTeamToCluster(ctx context.Context, teamID, clusterID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.read().MapTeamToCluster(ctx, teamID, clusterID)
}

func (m *MemStore) UnmapTeamFromCluster(ctx context.Context, teamID, clusterID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.read().UnmapTeamFromCluster(ctx, teamID, clusterID)
}

func (m *MemStore) ClearClusterTeams(ctx context.Context, clusterID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.read().ClearClusterTeams(ctx, clusterID)
}

func (m *MemStore) MapJudgeToCluster(ctx context.Context, judgeID, clusterID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.read().MapJudgeToCluster(ctx, judgeID, clusterID)
}

func (m *MemStore) UnmapJudgeFromCluster(ctx context.Context, judgeID, clusterID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.read().UnmapJudgeFromCluster(ctx, judgeID, clusterID)
}

func (m *MemStore) AddOrganizer(ctx context.Context, organizerID, contestID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.read().AddOrganizer(ctx, organizerID, contestID)
}

// memTx implements store.Tx over a state that is either the live state
// (auto-commit ops, caller holds the lock) or a transaction's working copy.
type memTx struct {
	st    *state
	newID func() string
}

var _ store.Tx = (*memTx)(nil)

func (t *memTx) Contest(_ context.Context, id string) (model.Contest, error) {
	c, ok := t.st.contests[id]
	if !ok {
		return model.Contest{}, notFound("contest", id)
	}
	return c, nil
}

func (t *memTx) Cluster(_ context.Context, id string) (model.Cluster, error) {
	c, ok := t.st.clusters[id]
	if !ok {
		return model.Cluster{}, notFound("cluster", id)
	}
	return c, nil
}

func (t *memTx) Team(_ context.Context, id string) (model.Team, error) {
	tm, ok := t.st.teams[id]
	if !ok {
		return model.Team{}, notFound("team", id)
	}
	return cloneTeam(tm), nil
}

func (t *memTx) Judge(_ context.Context, id string) (model.Judge, error) {
	j, ok := t.st.judges[id]
	if !ok {
		return model.Judge{}, notFound("judge", id)
	}
	return j, nil
}

func (t *memTx) Scoresheet(_ context.Context, id string) (model.Scoresheet, error) {
	s, ok := t.st.sheets[id]
	if !ok {
		return model.Scoresheet{}, notFound("scoresheet", id)
	}
	return cloneSheet(s), nil
}

func (t *memTx) ClustersInContest(_ context.Context, contestID string) ([]model.Cluster, error) {
	if _, ok := t.st.contests[contestID]; !ok {
		return nil, notFound("contest", contestID)
	}
	var out []model.Cluster
	for _, c := range t.st.clusters {
		if c.ContestID == contestID {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (t *memTx) TeamsInContest(_ context.Context, contestID string) ([]model.Team, error) {
	if _, ok := t.st.contests[contestID]; !ok {
		return nil, notFound("contest", contestID)
	}
	var out []model.Team
	for _, tm := range t.st.teams {
		if tm.ContestID == contestID {
			out = append(out, cloneTeam(tm))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (t *memTx) TeamsInCluster(_ context.Context, clusterID string) ([]model.Team, error) {
	if _, ok := t.st.clusters[clusterID]; !ok {
		return nil, notFound("cluster", clusterID)
	}
	var out []model.Team
	for id := range t.st.clusterTeams[clusterID] {
		if tm, ok := t.st.teams[id]; ok {
			out = append(out, cloneTeam(tm))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (t *memTx) JudgesInCluster(_ context.Context, clusterID string) ([]model.Judge, error) {
	if _, ok := t.st.clusters[clusterID]; !ok {
		return nil, notFound("cluster", clusterID)
	}
	var out []model.Judge
	for id := range t.st.clusterJudges[clusterID] {
		if j, ok := t.st.judges[id]; ok {
			out = append(out, j)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (t *memTx) ClustersForTeam(_ context.Context, teamID string) ([]model.Cluster, error) {
	if _, ok := t.st.teams[teamID]; !ok {
		return nil, notFound("team", teamID)
	}
	var out []model.Cluster
	for clusterID, members := range t.st.clusterTeams {
		if _, ok := members[teamID]; !ok {
			continue
		}
		if c, ok := t.st.clusters[clusterID]; ok {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (t *memTx) SheetsForTeam(_ context.Context, teamID string) ([]model.Scoresheet, error) {
	if _, ok := t.st.teams[teamID]; !ok {
		return nil, notFound("team", teamID)
	}
	var out []model.Scoresheet
	for _, s := range t.st.sheets {
		if s.TeamID == teamID {
			out = append(out, cloneSheet(s))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (t *memTx) SheetsForJudge(_ context.Context, judgeID string) ([]model.Scoresheet, error) {
	if _, ok := t.st.judges[judgeID]; !ok {
		return nil, notFound("judge", judgeID)
	}
	var out []model.Scoresheet
	for _, s := range t.st.sheets {
		if s.JudgeID == judgeID {
			out = append(out, cloneSheet(s))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (t *memTx) SheetsForJudgeTeam(ctx context.Context, judgeID, teamID string) ([]model.Scoresheet, error) {
	all, err := t.SheetsForJudge(ctx, judgeID)
	if err != nil {
		return nil, err
	}
	out := all[:0]
	for _, s := range all {
		if s.TeamID == teamID {
			out = append(out, s)
		}
	}
	return out, nil
}

func (t *memTx) IsOrganizer(_ context.Context, organizerID, contestID string) (bool, error) {
	if _, ok := t.st.contests[contestID]; !ok {
		return false, notFound("contest", contestID)
	}
	_, ok := t.st.contestOrganizers[contestID][organizerID]
	return ok, nil
}

func (t *memTx) CountTeams(_ context.Context) int {
	return len(t.st.teams)
}

func (t *memTx) PutContest(_ context.Context, c model.Contest) (model.Contest, error) {
	if c.ID == "" {
		c.ID = t.newID()
	}
	t.st.contests[c.ID] = c
	return c, nil
}

func (t *memTx) PutCluster(_ context.Context, c model.Cluster) (model.Cluster, error) {
	if c.ID == "" {
		c.ID = t.newID()
	}
	t.st.clusters[c.ID] = c
	return c, nil
}

func (t *memTx) PutTeam(_ context.Context, tm model.Team) (model.Team, error) {
	if tm.ID == "" {
		tm.ID = t.newID()
	}
	t.st.teams[tm.ID] = cloneTeam(tm)
	return tm, nil
}

func (t *memTx) PutJudge(_ context.Context, j model.Judge) (model.Judge, error) {
	if j.ID == "" {
		j.ID = t.newID()
	}
	t.st.judges[j.ID] = j
	return j, nil
}

func (t *memTx) CreateScoresheet(_ context.Context, s model.Scoresheet) (model.Scoresheet, error) {
	if err := s.Validate(); err != nil {
		return model.Scoresheet{}, err
	}
	if s.ID == "" {
		s.ID = t.newID()
	} else if _, exists := t.st.sheets[s.ID]; exists {
		return model.Scoresheet{}, conflict("scoresheet", s.ID)
	}
	t.st.sheets[s.ID] = cloneSheet(s)
	return s, nil
}

func (t *memTx) PutScoresheet(_ context.Context, s model.Scoresheet) error {
	if _, ok := t.st.sheets[s.ID]; !ok {
		return notFound("scoresheet", s.ID)
	}
	if err := s.Validate(); err != nil {
		return err
	}
	t.st.sheets[s.ID] = cloneSheet(s)
	return nil
}

func (t *memTx) DeleteScoresheet(_ context.Context, id string) error {
	if _, ok := t.st.sheets[id]; !ok {
		return notFound("scoresheet", id)
	}
	delete(t.st.sheets, id)
	return nil
}

func (t *memTx) MapTeamToCluster(_ context.Context, teamID, clusterID string) error {
	if _, ok := t.st.teams[teamID]; !ok {
		return notFound("team", teamID)
	}
	if _, ok := t.st.clusters[clusterID]; !ok {
		return notFound("cluster", clusterID)
	}
	if t.st.clusterTeams[clusterID] == nil {
		t.st.clusterTeams[clusterID] = make(map[string]struct{})
	}
	t.st.clusterTeams[clusterID][teamID] = struct{}{}
	return nil
}

func (t *memTx) UnmapTeamFromCluster(_ context.Context, teamID, clusterID string) error {
	delete(t.st.clusterTeams[clusterID], teamID)
	return nil
}

func (t *memTx) ClearClusterTeams(_ context.Context, clusterID string) error {
	if _, ok := t.st.clusters[clusterID]; !ok {
		return notFound("cluster", clusterID)
	}
	delete(t.st.clusterTeams, clusterID)
	return nil
}

func (t *memTx) MapJudgeToCluster(_ context.Context, judgeID, clusterID string) error {
	if _, ok := t.st.judges[judgeID]; !ok {
		return notFound("judge", judgeID)
	}
	if _, ok := t.st.clusters[clusterID]; !ok {
		return notFound("cluster", clusterID)
	}
	if t.st.clusterJudges[clusterID] == nil {
		t.st.clusterJudges[clusterID] = make(map[string]struct{})
	}
	t.st.clusterJudges[clusterID][judgeID] = struct{}{}
	return nil
}

func (t *memTx) UnmapJudgeFromCluster(_ context.Context, judgeID, clusterID string) error {
	delete(t.st.clusterJudges[clusterID], judgeID)
	return nil
}

func (t *memTx) AddOrganizer(_ context.Context, organizerID, contestID string) error {
	if _, ok := t.st.contests[contestID]; !ok {
		return notFound("contest", contestID)
	}
	if t.st.contestOrganizers[contestID] == nil {
		t.st.contestOrganizers[contestID] = make(map[string]struct{})
	}
	t.st.contestOrganizers[contestID][organizerID] = struct{}{}
	return nil
}
