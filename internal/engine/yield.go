package engine

import (
	"math"
	"sort"

	"github.com/piwi3910/SubTrack/internal/model"
)

// ComputeYield fits a group's pieces onto one stick of the given length in a
// single longest-first greedy pass. Pieces are sorted by length descending
// (stable, so equal lengths keep their input order); each piece takes as many
// cuts as fit in what remains. The result is deliberately not an optimal
// packing: the cut list and the shop floor both rely on this exact pattern.
func ComputeYield(stickLength float64, pieces []model.RequiredPiece) model.YieldPlan {
	plan := model.YieldPlan{StickLength: stickLength, Yields: []model.YieldEntry{}}

	if stickLength <= 0 {
		plan.Waste = stickLength
		return plan
	}

	sorted := make([]model.RequiredPiece, len(pieces))
	copy(sorted, pieces)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].LengthInches > sorted[j].LengthInches
	})

	remaining := stickLength
	for _, p := range sorted {
		if p.LengthInches <= 0 {
			continue
		}
		fits := int(math.Floor(remaining / p.LengthInches))
		if fits <= 0 {
			continue
		}
		plan.Yields = append(plan.Yields, model.YieldEntry{
			Mark:          p.Mark,
			LengthInches:  p.LengthInches,
			LengthDisplay: p.LengthDisplay,
			Fits:          fits,
			MaxNeeded:     p.Quantity,
		})
		plan.TotalFits += fits
		remaining -= float64(fits) * p.LengthInches
	}

	plan.Waste = remaining
	plan.WastePct = int(math.Round(remaining / stickLength * 100))
	return plan
}

// YieldsFor computes a plan for every stick against the group's pieces,
// in stick order.
func YieldsFor(group model.PartGroup, sticks []model.InventoryStick) []model.YieldPlan {
	plans := make([]model.YieldPlan, len(sticks))
	for i, s := range sticks {
		plans[i] = ComputeYield(float64(s.LengthInches), group.Pieces)
	}
	return plans
}
