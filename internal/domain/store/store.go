// Package store defines the persistence contract the domain depends on.
//
// The dependency points one way: domain packages consume these interfaces,
// adapters implement them. Listing methods return results sorted by id so
// iteration order is deterministic across calls and implementations.
package store

import (
	"context"

	"github.com/EMDC-Fall-2025/backend-sub000/internal/domain/model"
)

// Reader provides read access to entities and relations.
type Reader interface {
	Contest(ctx context.Context, id string) (model.Contest, error)
	Cluster(ctx context.Context, id string) (model.Cluster, error)
	Team(ctx context.Context, id string) (model.Team, error)
	Judge(ctx context.Context, id string) (model.Judge, error)
	Scoresheet(ctx context.Context, id string) (model.Scoresheet, error)

	// ClustersInContest returns the contest's clusters sorted by id.
	ClustersInContest(ctx context.Context, contestID string) ([]model.Cluster, error)
	// TeamsInContest returns the contest's teams sorted by id.
	TeamsInContest(ctx context.Context, contestID string) ([]model.Team, error)
	// TeamsInCluster returns the cluster's member teams sorted by id.
	TeamsInCluster(ctx context.Context, clusterID string) ([]model.Team, error)
	// JudgesInCluster returns the cluster's assigned judges sorted by id.
	JudgesInCluster(ctx context.Context, clusterID string) ([]model.Judge, error)
	// ClustersForTeam returns the clusters a team belongs to, sorted by id.
	ClustersForTeam(ctx context.Context, teamID string) ([]model.Cluster, error)

	// SheetsForTeam returns every scoresheet assigned to the team.
	SheetsForTeam(ctx context.Context, teamID string) ([]model.Scoresheet, error)
	// SheetsForJudge returns every scoresheet owned by the judge.
	SheetsForJudge(ctx context.Context, judgeID string) ([]model.Scoresheet, error)
	// SheetsForJudgeTeam returns the sheets for one (judge, team) pair.
	SheetsForJudgeTeam(ctx context.Context, judgeID, teamID string) ([]model.Scoresheet, error)

	// IsOrganizer reports whether the organizer administers the contest.
	IsOrganizer(ctx context.Context, organizerID, contestID string) (bool, error)

	// CountTeams returns the number of teams tracked.
	CountTeams(ctx context.Context) int
}

// Writer provides mutation access. Put operations upsert by id; an empty id
// is assigned on create.
type Writer interface {
	PutContest(ctx context.Context, c model.Contest) (model.Contest, error)
	PutCluster(ctx context.Context, c model.Cluster) (model.Cluster, error)
	PutTeam(ctx context.Context, t model.Team) (model.Team, error)
	PutJudge(ctx context.Context, j model.Judge) (model.Judge, error)

	// CreateScoresheet stores a new sheet (and its judge/team assignment).
	CreateScoresheet(ctx context.Context, s model.Scoresheet) (model.Scoresheet, error)
	// PutScoresheet updates an existing sheet in place.
	PutScoresheet(ctx context.Context, s model.Scoresheet) error
	// DeleteScoresheet removes the sheet and its assignment together.
	DeleteScoresheet(ctx context.Context, id string) error

	MapTeamToCluster(ctx context.Context, teamID, clusterID string) error
	UnmapTeamFromCluster(ctx context.Context, teamID, clusterID string) error
	// ClearClusterTeams removes every team membership of the cluster.
	ClearClusterTeams(ctx context.Context, clusterID string) error

	MapJudgeToCluster(ctx context.Context, judgeID, clusterID string) error
	UnmapJudgeFromCluster(ctx context.Context, judgeID, clusterID string) error

	AddOrganizer(ctx context.Context, organizerID, contestID string) error
}

// Tx is the unit a transaction body works against.
type Tx interface {
	Reader
	Writer
}

// Store is the full persistence surface. Methods called directly on the
// store auto-commit; Update runs fn against a transactional view and commits
// only if fn returns nil, so a failing body leaves no partial mutation.
type Store interface {
	Tx

	Update(ctx context.Context, fn func(tx Tx) error) error
}
