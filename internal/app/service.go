// Package service provides the core business service that implements
// the dependencies required by the HTTP API.
package service

import (
	"context"
	"fmt"
	"runtime"
	"sync"

	"github.com/google/uuid"

	taskqueue "github.com/EMDC-Fall-2025/backend-sub000/internal/adapters/mq/queue"
	workerpool "github.com/EMDC-Fall-2025/backend-sub000/internal/adapters/mq/worker"
	"github.com/EMDC-Fall-2025/backend-sub000/internal/adapters/repository"
	"github.com/EMDC-Fall-2025/backend-sub000/internal/domain/model"
	"github.com/EMDC-Fall-2025/backend-sub000/internal/domain/pending"
	"github.com/EMDC-Fall-2025/backend-sub000/internal/domain/provision"
	"github.com/EMDC-Fall-2025/backend-sub000/internal/domain/rank"
	"github.com/EMDC-Fall-2025/backend-sub000/internal/domain/round"
	"github.com/EMDC-Fall-2025/backend-sub000/internal/domain/store"
	"github.com/EMDC-Fall-2025/backend-sub000/internal/domain/tabulate"
	"github.com/EMDC-Fall-2025/backend-sub000/pkg/logger"
	"github.com/EMDC-Fall-2025/backend-sub000/pkg/metrics"
)

// Service implements the API dependencies for the tabulation system.
type Service struct {
	mu sync.RWMutex

	// Core components
	store       store.Store
	tracker     pending.Tracker
	taskQueue   taskqueue.Queue
	tabulator   *tabulate.Tabulator
	ranker      *rank.Ranker
	provisioner *provision.Provisioner
	advancer    *round.Advancer
	workerPool  *workerpool.Pool

	// Configuration
	workerCount int
	queueSize   int

	// State
	started bool
	stopCh  chan struct{}

	// Logging
	logger logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithWorkerCount sets the number of recompute worker goroutines.
func WithWorkerCount(count int) Option {
	return func(s *Service) {
		if count > 0 {
			s.workerCount = count
		}
	}
}

// WithQueueSize sets the maximum size of the recompute task queue.
func WithQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.queueSize = size
		}
	}
}

// WithStore sets a custom store, mainly for tests that need a seeded one.
func WithStore(st store.Store) Option {
	return func(s *Service) {
		if st != nil {
			s.store = st
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// New constructs a new Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		workerCount: runtime.NumCPU() * 2,
		queueSize:   10000,
		stopCh:      make(chan struct{}),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Start initializes and starts the service components.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}

	if s.logger == nil {
		s.logger = logger.Get().Named("service")
	}

	s.logger.Info(ctx, "starting tabulation service...")

	if s.store == nil {
		s.store = repository.NewMemStore()
	}
	s.tracker = pending.NewInMemoryTracker()
	s.taskQueue = taskqueue.NewInMemoryQueue(
		taskqueue.WithCapacity(s.queueSize),
		taskqueue.WithBufferSize(s.queueSize),
	)
	s.tabulator = tabulate.New()
	s.ranker = rank.New()
	s.provisioner = provision.New()
	s.advancer = round.New(
		round.WithTabulator(s.tabulator),
		round.WithRanker(s.ranker),
		round.WithProvisioner(s.provisioner),
	)

	s.workerPool = workerpool.NewPool(s.workerCount, s.taskQueue, s, s.tracker)
	s.workerPool.Start(ctx)

	s.started = true
	s.logger.Info(ctx, "tabulation service started",
		logger.Int("workers", s.workerCount),
		logger.Int("queueSize", s.queueSize),
	)

	return nil
}

// Stop gracefully shuts down the service.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}

	ctx := context.Background()
	s.logger.Info(ctx, "stopping tabulation service...")

	if s.workerPool != nil {
		_ = s.workerPool.Shutdown(ctx)
	}

	select {
	case <-s.stopCh:
	default:
		close(s.stopCh)
	}

	s.started = false
	s.logger.Info(ctx, "tabulation service stopped")
}

// Store exposes the persistence layer for fixtures and handlers that read
// entities directly.
func (s *Service) Store() store.Store {
	return s.store
}

// SubmitScoresheet records a judge's scores onto an existing sheet and, when
// the sheet is submitted, schedules a background recompute of the team. The
// HTTP response does not wait for the recompute; submissions for a team
// already pending recompute coalesce into the queued task.
func (s *Service) SubmitScoresheet(ctx context.Context, sh model.Scoresheet) (model.Scoresheet, error) {
	var contestID string
	var wasSubmitted bool
	err := s.store.Update(ctx, func(tx store.Tx) error {
		existing, err := tx.Scoresheet(ctx, sh.ID)
		if err != nil {
			return err
		}
		wasSubmitted = existing.Submitted
		// Kind and assignment are fixed at provisioning time.
		sh.Kind = existing.Kind
		sh.JudgeID = existing.JudgeID
		sh.TeamID = existing.TeamID
		if err := tx.PutScoresheet(ctx, sh); err != nil {
			return err
		}
		team, err := tx.Team(ctx, sh.TeamID)
		if err != nil {
			return err
		}
		contestID = team.ContestID
		return nil
	})
	if err != nil {
		return model.Scoresheet{}, err
	}

	if sh.Submitted {
		metrics.RecordScoresheetSubmitted()
	}
	// Un-submitting a sheet changes the aggregate just like submitting one.
	if sh.Submitted || wasSubmitted {
		s.scheduleRecompute(ctx, contestID, sh.TeamID)
	}
	return sh, nil
}

// scheduleRecompute enqueues a team recompute unless one is already pending.
func (s *Service) scheduleRecompute(ctx context.Context, contestID, teamID string) {
	task := model.RecomputeTask{
		TaskID:    uuid.NewString(),
		ContestID: contestID,
		TeamID:    teamID,
	}
	if s.tracker.MarkPending(ctx, task.CoalesceKey()) {
		s.logger.Debug(ctx, "recompute already pending, coalescing",
			logger.String("teamID", teamID),
		)
		return
	}
	metrics.UpdatePendingRecomputes(s.tracker.Size())

	if !s.taskQueue.Enqueue(ctx, task) {
		// Queue full or closed; release the key so a later submission can
		// retry the enqueue.
		s.tracker.Clear(ctx, task.CoalesceKey())
		s.logger.Warn(ctx, "recompute task dropped",
			logger.String("contestID", contestID),
			logger.String("teamID", teamID),
		)
	}
}

// RecomputeTeam re-derives one team's totals, then the contest and cluster
// ranks. Implements the worker pool's Recomputer.
func (s *Service) RecomputeTeam(ctx context.Context, contestID, teamID string) error {
	return s.store.Update(ctx, func(tx store.Tx) error {
		if _, err := s.tabulator.ComputeTotals(ctx, tx, teamID); err != nil {
			return fmt.Errorf("recompute team %s: %w", teamID, err)
		}
		return s.rerank(ctx, tx, contestID)
	})
}

// RecomputeContest re-derives every team's totals and all ranks.
func (s *Service) RecomputeContest(ctx context.Context, contestID string) error {
	return s.store.Update(ctx, func(tx store.Tx) error {
		return s.tabulateContest(ctx, tx, contestID)
	})
}

// Tabulate synchronously recomputes totals and ranks for the whole contest
// and marks it tabulated. Only the contest's organizers may trigger it.
func (s *Service) Tabulate(ctx context.Context, organizerID, contestID string) error {
	err := s.store.Update(ctx, func(tx store.Tx) error {
		ok, err := tx.IsOrganizer(ctx, organizerID, contestID)
		if err != nil {
			return err
		}
		if !ok {
			return round.ErrNotOrganizer
		}
		if err := s.tabulateContest(ctx, tx, contestID); err != nil {
			return err
		}
		contest, err := tx.Contest(ctx, contestID)
		if err != nil {
			return err
		}
		contest.Tabulated = true
		_, err = tx.PutContest(ctx, contest)
		return err
	})
	if err != nil {
		return err
	}

	metrics.RecordTabulation()
	s.logger.Info(ctx, "tabulated contest", logger.String("contestID", contestID))
	return nil
}

func (s *Service) tabulateContest(ctx context.Context, tx store.Tx, contestID string) error {
	teams, err := tx.TeamsInContest(ctx, contestID)
	if err != nil {
		return err
	}
	for _, t := range teams {
		if _, err := s.tabulator.ComputeTotals(ctx, tx, t.ID); err != nil {
			return fmt.Errorf("recompute team %s: %w", t.ID, err)
		}
	}
	return s.rerank(ctx, tx, contestID)
}

func (s *Service) rerank(ctx context.Context, tx store.Tx, contestID string) error {
	if err := s.ranker.RankContest(ctx, tx, contestID); err != nil {
		return err
	}
	clusters, err := tx.ClustersInContest(ctx, contestID)
	if err != nil {
		return err
	}
	for _, c := range clusters {
		if err := s.ranker.RankCluster(ctx, tx, c.ID); err != nil {
			return fmt.Errorf("rank cluster %s: %w", c.ID, err)
		}
	}
	return nil
}

// Advance moves the supplied teams into the championship pool and the rest
// into redesign, in one transaction.
func (s *Service) Advance(ctx context.Context, organizerID, contestID string, teamIDs []string) (round.Result, error) {
	var res round.Result
	err := s.store.Update(ctx, func(tx store.Tx) error {
		var err error
		res, err = s.advancer.AdvanceToChampionship(ctx, tx, organizerID, contestID, teamIDs)
		return err
	})
	if err != nil {
		return round.Result{}, err
	}

	metrics.RecordAdvancement()
	return res, nil
}

// UndoAdvance reverses a prior advancement in one transaction.
func (s *Service) UndoAdvance(ctx context.Context, organizerID, contestID string) (round.UndoResult, error) {
	var res round.UndoResult
	err := s.store.Update(ctx, func(tx store.Tx) error {
		var err error
		res, err = s.advancer.UndoAdvancement(ctx, tx, organizerID, contestID)
		return err
	})
	if err != nil {
		return round.UndoResult{}, err
	}

	metrics.RecordAdvancementUndo()
	return res, nil
}

// ListAdvancers returns the contest's currently advanced teams.
func (s *Service) ListAdvancers(ctx context.Context, contestID string) ([]model.Team, error) {
	return s.advancer.Advancers(ctx, s.store, contestID)
}

// Standings returns the contest's teams ordered by contest-wide rank, with
// unranked teams trailing in id order.
func (s *Service) Standings(ctx context.Context, contestID string) ([]model.Team, error) {
	teams, err := s.store.TeamsInContest(ctx, contestID)
	if err != nil {
		return nil, err
	}
	ordered := rank.ByField(teams, rank.FieldTotal)
	ranked := make([]model.Team, 0, len(ordered))
	unranked := make([]model.Team, 0)
	for _, t := range ordered {
		if t.TeamRank != nil {
			ranked = append(ranked, t)
		} else {
			unranked = append(unranked, t)
		}
	}
	return append(ranked, unranked...), nil
}

// ClusterStandings returns one cluster's teams ordered by cluster rank, with
// unranked teams trailing in id order.
func (s *Service) ClusterStandings(ctx context.Context, clusterID string) ([]model.Team, error) {
	teams, err := s.store.TeamsInCluster(ctx, clusterID)
	if err != nil {
		return nil, err
	}
	ordered := rank.ByField(teams, rank.FieldTotal)
	ranked := make([]model.Team, 0, len(ordered))
	unranked := make([]model.Team, 0)
	for _, t := range ordered {
		if t.ClusterRank != nil {
			ranked = append(ranked, t)
		} else {
			unranked = append(unranked, t)
		}
	}
	return append(ranked, unranked...), nil
}

// GetScoresheet returns one scoresheet by id.
func (s *Service) GetScoresheet(ctx context.Context, id string) (model.Scoresheet, error) {
	return s.store.Scoresheet(ctx, id)
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ctx := context.Background()
	stats := map[string]interface{}{
		"started":     s.started,
		"workerCount": s.workerCount,
		"queueSize":   s.queueSize,
	}

	if s.started {
		queueLen := s.taskQueue.Len(ctx)
		totalTeams := s.store.CountTeams(ctx)

		stats["queueLength"] = queueLen
		stats["totalTeams"] = totalTeams
		stats["pendingRecomputes"] = s.tracker.Size()

		metrics.UpdateQueueSize(queueLen)
		metrics.UpdateTotalTeams(totalTeams)
		metrics.UpdateWorkerCount(s.workerCount)
	}

	return stats
}
