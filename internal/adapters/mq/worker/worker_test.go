package worker_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/EMDC-Fall-2025/backend-sub000/internal/adapters/mq/queue"
	"github.com/EMDC-Fall-2025/backend-sub000/internal/adapters/mq/worker"
	"github.com/EMDC-Fall-2025/backend-sub000/internal/domain/pending"
	"github.com/EMDC-Fall-2025/backend-sub000/pkg/logger"
)

func init() {
	_ = logger.Init()
	_ = logger.SetLevelString("error")
}

// recordingRecomputer captures the recompute calls it receives.
type recordingRecomputer struct {
	mu       sync.Mutex
	teams    []string
	contests []string
	err      error
	seen     chan struct{}
}

func newRecordingRecomputer(buffer int) *recordingRecomputer {
	return &recordingRecomputer{seen: make(chan struct{}, buffer)}
}

func (r *recordingRecomputer) RecomputeTeam(_ context.Context, contestID, teamID string) error {
	r.mu.Lock()
	r.teams = append(r.teams, contestID+"/"+teamID)
	r.mu.Unlock()
	r.seen <- struct{}{}
	return r.err
}

func (r *recordingRecomputer) RecomputeContest(_ context.Context, contestID string) error {
	r.mu.Lock()
	r.contests = append(r.contests, contestID)
	r.mu.Unlock()
	r.seen <- struct{}{}
	return r.err
}

func (r *recordingRecomputer) wait(n int) bool {
	for i := 0; i < n; i++ {
		select {
		case <-r.seen:
		case <-time.After(2 * time.Second):
			return false
		}
	}
	return true
}

func TestWorkerProcessesTasks(t *testing.T) {
	Convey("Given a running worker", t, func() {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		q := queue.NewInMemoryQueue(queue.WithCapacity(10), queue.WithBufferSize(10))
		rec := newRecordingRecomputer(10)
		tracker := pending.NewInMemoryTracker()

		w := worker.NewInMemoryWorker(q, rec, tracker, worker.WithName("test-worker"))
		go w.Run(ctx)

		Convey("When a team task is enqueued", func() {
			task := queue.Task{TaskID: "task-1", ContestID: "contest-1", TeamID: "team-1"}
			tracker.MarkPending(ctx, task.CoalesceKey())
			So(q.Enqueue(ctx, task), ShouldBeTrue)

			Convey("Then the team recompute runs and the pending key clears", func() {
				So(rec.wait(1), ShouldBeTrue)

				rec.mu.Lock()
				teams := append([]string(nil), rec.teams...)
				rec.mu.Unlock()
				So(teams, ShouldResemble, []string{"contest-1/team-1"})

				// Clearing happens after the recompute returns.
				So(func() bool {
					deadline := time.Now().Add(2 * time.Second)
					for time.Now().Before(deadline) {
						if tracker.Size() == 0 {
							return true
						}
						time.Sleep(5 * time.Millisecond)
					}
					return false
				}(), ShouldBeTrue)
			})
		})

		Convey("When a contest-wide task is enqueued", func() {
			So(q.Enqueue(ctx, queue.Task{TaskID: "task-2", ContestID: "contest-1"}), ShouldBeTrue)

			Convey("Then the whole contest recompute runs", func() {
				So(rec.wait(1), ShouldBeTrue)

				rec.mu.Lock()
				contests := append([]string(nil), rec.contests...)
				rec.mu.Unlock()
				So(contests, ShouldResemble, []string{"contest-1"})
			})
		})

		Convey("When the recompute fails", func() {
			rec.err = errors.New("boom")
			task := queue.Task{TaskID: "task-3", ContestID: "contest-1", TeamID: "team-9"}
			tracker.MarkPending(ctx, task.CoalesceKey())
			So(q.Enqueue(ctx, task), ShouldBeTrue)

			Convey("Then the failure is swallowed and the key still clears", func() {
				So(rec.wait(1), ShouldBeTrue)

				So(func() bool {
					deadline := time.Now().Add(2 * time.Second)
					for time.Now().Before(deadline) {
						if tracker.Size() == 0 {
							return true
						}
						time.Sleep(5 * time.Millisecond)
					}
					return false
				}(), ShouldBeTrue)
			})
		})
	})
}

func TestPoolDrainsQueueOnShutdown(t *testing.T) {
	Convey("Given a pool of workers", t, func() {
		ctx := context.Background()

		q := queue.NewInMemoryQueue(queue.WithCapacity(100), queue.WithBufferSize(100))
		rec := newRecordingRecomputer(100)
		tracker := pending.NewInMemoryTracker()

		p := worker.NewPool(4, q, rec, tracker)
		p.Start(ctx)

		Convey("When tasks are enqueued and the pool shuts down", func() {
			const n = 20
			for i := 0; i < n; i++ {
				So(q.Enqueue(ctx, queue.Task{
					TaskID:    "task",
					ContestID: "contest-1",
					TeamID:    "team",
				}), ShouldBeTrue)
			}

			So(rec.wait(n), ShouldBeTrue)
			So(p.Shutdown(ctx), ShouldBeNil)

			Convey("Then every task was processed exactly once", func() {
				rec.mu.Lock()
				processed := len(rec.teams)
				rec.mu.Unlock()
				So(processed, ShouldEqual, n)
				So(q.IsClosed(), ShouldBeTrue)
			})
		})
	})
}
