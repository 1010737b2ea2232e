// Package sheet defines the closed set of scoresheet kinds and the field
// layout each kind carries. A scoresheet only ever holds the payload struct
// matching its kind, so "which fields are valid here" is answered by the type
// system instead of a pile of nullable columns.
package sheet

// Kind tags a scoresheet with the rubric it represents.
type Kind string

// The seven scoresheet kinds.
const (
	Presentation   Kind = "presentation"
	Journal        Kind = "journal"
	MachineDesign  Kind = "machine_design"
	RunPenalties   Kind = "run_penalties"
	OtherPenalties Kind = "other_penalties"
	Redesign       Kind = "redesign"
	Championship   Kind = "championship"
)

// Rubric field counts per kind.
const (
	RubricFieldCount       = 8
	OtherPenaltyFieldCount = 7
	RedesignFieldCount     = 7
)

// PreliminaryKinds lists the kinds a preliminary cluster may provision.
func PreliminaryKinds() []Kind {
	return []Kind{Presentation, Journal, MachineDesign, RunPenalties, OtherPenalties}
}

// Valid reports whether k is one of the seven known kinds.
func (k Kind) Valid() bool {
	switch k {
	case Presentation, Journal, MachineDesign, RunPenalties, OtherPenalties, Redesign, Championship:
		return true
	}
	return false
}

// String returns the string representation of the kind.
func (k Kind) String() string { return string(k) }

// Rubric is the payload for Presentation, Journal and MachineDesign sheets:
// eight judge-entered scores plus a free-text comment.
type Rubric struct {
	Scores  [RubricFieldCount]float64 `json:"scores"`
	Comment string                    `json:"comment"`
}

// Sum returns the total of the eight rubric scores.
func (r Rubric) Sum() float64 { return sum(r.Scores[:]) }

// RunPenaltySheet is the payload for RunPenalties sheets: two independent
// eight-field penalty groups, one per machine run. Each group is averaged
// across judges separately.
type RunPenaltySheet struct {
	RunOne [RubricFieldCount]float64 `json:"run_one"`
	RunTwo [RubricFieldCount]float64 `json:"run_two"`
}

// SumRunOne returns the total of the first penalty group.
func (r RunPenaltySheet) SumRunOne() float64 { return sum(r.RunOne[:]) }

// SumRunTwo returns the total of the second penalty group.
func (r RunPenaltySheet) SumRunTwo() float64 { return sum(r.RunTwo[:]) }

// OtherPenaltySheet is the payload for OtherPenalties sheets: seven penalty
// fields that accumulate across judges rather than averaging.
type OtherPenaltySheet struct {
	Scores [OtherPenaltyFieldCount]float64 `json:"scores"`
}

// Sum returns the total of the penalty fields.
func (o OtherPenaltySheet) Sum() float64 { return sum(o.Scores[:]) }

// RedesignSheet is the payload for Redesign sheets: a single combined-category
// rubric of seven scores plus a comment.
type RedesignSheet struct {
	Scores  [RedesignFieldCount]float64 `json:"scores"`
	Comment string                      `json:"comment"`
}

// Sum returns the total of the redesign scores.
func (r RedesignSheet) Sum() float64 { return sum(r.Scores[:]) }

// ChampionshipSheet is the payload for Championship sheets: the full
// championship rubric on one sheet. Machine-design and presentation groups
// are averaged across judges; the general-penalty group accumulates; the two
// run-penalty groups are averaged, mirroring the preliminary round.
type ChampionshipSheet struct {
	MachineDesign        [RubricFieldCount]float64 `json:"machine_design"`
	MachineDesignComment string                    `json:"machine_design_comment"`
	Presentation         [RubricFieldCount]float64 `json:"presentation"`
	PresentationComment  string                    `json:"presentation_comment"`
	GeneralPenalties     [RubricFieldCount]float64 `json:"general_penalties"`
	RunOnePenalties      [RubricFieldCount]float64 `json:"run_one_penalties"`
	RunTwoPenalties      [RubricFieldCount]float64 `json:"run_two_penalties"`
}

// SumMachineDesign returns the total of the machine-design group.
func (c ChampionshipSheet) SumMachineDesign() float64 { return sum(c.MachineDesign[:]) }

// SumPresentation returns the total of the presentation group.
func (c ChampionshipSheet) SumPresentation() float64 { return sum(c.Presentation[:]) }

// SumGeneralPenalties returns the total of the general-penalty group.
func (c ChampionshipSheet) SumGeneralPenalties() float64 { return sum(c.GeneralPenalties[:]) }

// SumRunOnePenalties returns the total of the first run-penalty group.
func (c ChampionshipSheet) SumRunOnePenalties() float64 { return sum(c.RunOnePenalties[:]) }

// SumRunTwoPenalties returns the total of the second run-penalty group.
func (c ChampionshipSheet) SumRunTwoPenalties() float64 { return sum(c.RunTwoPenalties[:]) }

func sum(xs []float64) float64 {
	var total float64
	for _, x := range xs {
		total += x
	}
	return total
}
