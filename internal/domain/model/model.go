// Package model contains domain records passed between layers.
package model

import (
	"fmt"

	"github.com/EMDC-Fall-2025/backend-sub000/internal/domain/sheet"
)

// ClusterType tags a cluster with the round it hosts.
type ClusterType string

// The three cluster types.
const (
	ClusterPreliminary  ClusterType = "preliminary"
	ClusterChampionship ClusterType = "championship"
	ClusterRedesign     ClusterType = "redesign"
)

// Round identifies the pool a team currently competes in. It is a property
// of a (contest, team) pair, derived from the advancement flag and cluster
// membership.
type Round string

// The three round pools.
const (
	RoundPreliminary  Round = "preliminary"
	RoundChampionship Round = "championship"
	RoundRedesign     Round = "redesign"
)

// Contest is the top-level competition a set of clusters belongs to.
type Contest struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Tabulated bool   `json:"tabulated"`
}

// Cluster is a named grouping of teams and judges scoped to one contest and
// one round. The Type tag is the sole source of truth for which round a
// cluster hosts.
type Cluster struct {
	ID        string      `json:"id"`
	ContestID string      `json:"contest_id"`
	Name      string      `json:"name"`
	Type      ClusterType `json:"type"`
	Active    bool        `json:"active"`
}

// Judge scores teams in the clusters they are assigned to. The kind flags
// gate which preliminary scoresheets the judge receives; the championship and
// redesign flags are flipped by the advancement transition.
type Judge struct {
	ID   string `json:"id"`
	Name string `json:"name"`

	Presentation   bool `json:"presentation"`
	Journal        bool `json:"journal"`
	MachineDesign  bool `json:"machine_design"`
	RunPenalties   bool `json:"run_penalties"`
	OtherPenalties bool `json:"other_penalties"`
	Championship   bool `json:"championship"`
	Redesign       bool `json:"redesign"`
}

// KindEnabled reports whether the judge's flags enable sheets of kind k.
func (j Judge) KindEnabled(k sheet.Kind) bool {
	switch k {
	case sheet.Presentation:
		return j.Presentation
	case sheet.Journal:
		return j.Journal
	case sheet.MachineDesign:
		return j.MachineDesign
	case sheet.RunPenalties:
		return j.RunPenalties
	case sheet.OtherPenalties:
		return j.OtherPenalties
	case sheet.Championship:
		return j.Championship
	case sheet.Redesign:
		return j.Redesign
	}
	return false
}

// PreliminaryScores is the snapshot of a team's preliminary-round results,
// captured at the moment of advancement and restored on undo.
type PreliminaryScores struct {
	Presentation  float64 `json:"presentation"`
	Journal       float64 `json:"journal"`
	MachineDesign float64 `json:"machine_design"`
	Penalties     float64 `json:"penalties"`
	Total         float64 `json:"total"`
}

// ChampionshipScores is the championship-specific score breakdown,
// recomputed entirely from championship sheets.
type ChampionshipScores struct {
	MachineDesign    float64 `json:"machine_design"`
	Presentation     float64 `json:"presentation"`
	GeneralPenalties float64 `json:"general_penalties"`
	RunPenalties     float64 `json:"run_penalties"`
	Total            float64 `json:"total"`
}

// Team carries identity, the five category scores, the championship
// breakdown, the preliminary snapshot, disqualification flags and ranks.
// Scores are never nil; ranks are nil exactly for disqualified or not yet
// ranked teams.
type Team struct {
	ID        string `json:"id"`
	ContestID string `json:"contest_id"`
	Name      string `json:"name"`

	Presentation  float64 `json:"presentation_score"`
	Journal       float64 `json:"journal_score"`
	MachineDesign float64 `json:"machine_design_score"`
	Penalties     float64 `json:"penalties"`
	Redesign      float64 `json:"redesign_score"`
	Total         float64 `json:"total_score"`

	Championship ChampionshipScores `json:"championship"`
	Preliminary  PreliminaryScores  `json:"preliminary"`

	JudgeDisqualified     bool `json:"judge_disqualified"`
	OrganizerDisqualified bool `json:"organizer_disqualified"`

	TeamRank         *int `json:"team_rank,omitempty"`
	ClusterRank      *int `json:"cluster_rank,omitempty"`
	ChampionshipRank *int `json:"championship_rank,omitempty"`

	AdvancedToChampionship bool `json:"advanced_to_championship"`
}

// RoundOf derives the team's round pool from its advancement flag and the
// clusters it belongs to.
func (t Team) RoundOf(clusters []Cluster) Round {
	if t.AdvancedToChampionship {
		return RoundChampionship
	}
	for _, c := range clusters {
		if c.Type == ClusterRedesign && c.Active {
			return RoundRedesign
		}
	}
	return RoundPreliminary
}

// Scoresheet is one judge's rubric record for one team. Exactly one payload
// pointer is set, selected by Kind; an unsubmitted sheet never contributes to
// aggregation.
type Scoresheet struct {
	ID        string     `json:"id"`
	Kind      sheet.Kind `json:"kind"`
	JudgeID   string     `json:"judge_id"`
	TeamID    string     `json:"team_id"`
	Submitted bool       `json:"submitted"`

	Rubric         *sheet.Rubric            `json:"rubric,omitempty"`
	RunPenalty     *sheet.RunPenaltySheet   `json:"run_penalty,omitempty"`
	OtherPenalty   *sheet.OtherPenaltySheet `json:"other_penalty,omitempty"`
	RedesignSheet  *sheet.RedesignSheet     `json:"redesign_sheet,omitempty"`
	ChampionshipSh *sheet.ChampionshipSheet `json:"championship_sheet,omitempty"`
}

// BlankScoresheet returns an unsubmitted sheet of the given kind for a
// (judge, team) pair, with the kind's payload allocated and zeroed.
func BlankScoresheet(kind sheet.Kind, judgeID, teamID string) Scoresheet {
	s := Scoresheet{Kind: kind, JudgeID: judgeID, TeamID: teamID}
	switch kind {
	case sheet.Presentation, sheet.Journal, sheet.MachineDesign:
		s.Rubric = &sheet.Rubric{}
	case sheet.RunPenalties:
		s.RunPenalty = &sheet.RunPenaltySheet{}
	case sheet.OtherPenalties:
		s.OtherPenalty = &sheet.OtherPenaltySheet{}
	case sheet.Redesign:
		s.RedesignSheet = &sheet.RedesignSheet{}
	case sheet.Championship:
		s.ChampionshipSh = &sheet.ChampionshipSheet{}
	}
	return s
}

// Validate checks that the sheet carries exactly the payload its kind calls
// for.
func (s Scoresheet) Validate() error {
	if !s.Kind.Valid() {
		return fmt.Errorf("%w: %q", ErrUnknownSheetKind, s.Kind)
	}

	set := 0
	if s.Rubric != nil {
		set++
	}
	if s.RunPenalty != nil {
		set++
	}
	if s.OtherPenalty != nil {
		set++
	}
	if s.RedesignSheet != nil {
		set++
	}
	if s.ChampionshipSh != nil {
		set++
	}
	if set != 1 {
		return fmt.Errorf("%w: %d payloads set for kind %q", ErrPayloadMismatch, set, s.Kind)
	}

	var ok bool
	switch s.Kind {
	case sheet.Presentation, sheet.Journal, sheet.MachineDesign:
		ok = s.Rubric != nil
	case sheet.RunPenalties:
		ok = s.RunPenalty != nil
	case sheet.OtherPenalties:
		ok = s.OtherPenalty != nil
	case sheet.Redesign:
		ok = s.RedesignSheet != nil
	case sheet.Championship:
		ok = s.ChampionshipSh != nil
	}
	if !ok {
		return fmt.Errorf("%w: payload does not match kind %q", ErrPayloadMismatch, s.Kind)
	}
	return nil
}

// RecomputeTask is the payload flowing through the recompute queue. An empty
// TeamID means the whole contest is recomputed.
type RecomputeTask struct {
	TaskID    string
	ContestID string
	TeamID    string
}

// CoalesceKey identifies the unit recomputes are coalesced on.
func (t RecomputeTask) CoalesceKey() string {
	if t.TeamID != "" {
		return t.ContestID + "/" + t.TeamID
	}
	return t.ContestID
}
