package engine

import (
	"sort"

	"github.com/piwi3910/SubTrack/internal/model"
)

// StickComparison holds the plan and coverage estimate for one candidate stick.
type StickComparison struct {
	StickIndex int                  `json:"stickIndex"`
	Stick      model.InventoryStick `json:"stick"`
	Plan       model.YieldPlan      `json:"plan"`
	Estimate   model.StickEstimate  `json:"estimate"`
	Drop       model.Drop           `json:"drop"`
}

// CompareSticks lays out every candidate stick of a match side by side,
// sorted by waste percentage then by stick length descending. StickIndex
// keeps the position in Match.Sticks so a selection can still refer to it.
func CompareSticks(m Match) []StickComparison {
	out := make([]StickComparison, 0, len(m.Sticks))
	for i, s := range m.Sticks {
		var plan model.YieldPlan
		if i < len(m.Plans) {
			plan = m.Plans[i]
		} else {
			plan = ComputeYield(float64(s.LengthInches), m.Group.Pieces)
		}
		out = append(out, StickComparison{
			StickIndex: i,
			Stick:      s,
			Plan:       plan,
			Estimate:   model.EstimateSticks(plan, m.Group, s),
			Drop:       model.DropFor(plan),
		})
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Plan.WastePct != out[j].Plan.WastePct {
			return out[i].Plan.WastePct < out[j].Plan.WastePct
		}
		return out[i].Stick.LengthInches > out[j].Stick.LengthInches
	})
	return out
}

// Summary aggregates a set of matches for reporting.
type Summary struct {
	Groups          int `json:"groups"`
	GroupsMatched   int `json:"groupsMatched"`
	PiecesRequired  int `json:"piecesRequired"`
	CandidateSticks int `json:"candidateSticks"`
}

// Summarize counts groups, matched groups, required pieces and candidate sticks.
func Summarize(matches []Match) Summary {
	var s Summary
	for _, m := range matches {
		s.Groups++
		s.PiecesRequired += m.Group.TotalPieces
		if m.HasInventory {
			s.GroupsMatched++
		}
		for _, st := range m.Sticks {
			s.CandidateSticks += st.Count
		}
	}
	return s
}
