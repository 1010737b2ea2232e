package round

import "errors"

// Sentinel errors for advancement preconditions.
var (
	// ErrNotOrganizer is returned when the acting user does not administer
	// the contest.
	ErrNotOrganizer = errors.New("round: caller is not an organizer of the contest")
	// ErrMissingChampionshipCluster is returned when the contest has no
	// championship cluster to advance into.
	ErrMissingChampionshipCluster = errors.New("round: contest has no championship cluster")
	// ErrMissingRedesignCluster is returned when the contest has no redesign
	// cluster to partition into.
	ErrMissingRedesignCluster = errors.New("round: contest has no redesign cluster")
	// ErrMissingPreliminaryCluster is returned when undo finds no preliminary
	// cluster to return teams to.
	ErrMissingPreliminaryCluster = errors.New("round: contest has no preliminary cluster")
)
