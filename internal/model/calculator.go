package model

import (
	"math"
	"strconv"
)

// StickEstimate holds the result of repeating one cut pattern until a part
// group is covered.
type StickEstimate struct {
	StickLength   float64  `json:"stickLength"`
	SticksNeeded  int      `json:"sticksNeeded"`  // 0 when the pattern cannot cover the group
	Covered       bool     `json:"covered"`       // every piece in the group appears in the pattern
	Available     int      `json:"available"`     // sticks of this length in stock
	Shortfall     int      `json:"shortfall"`     // sticks needed beyond what is in stock
	TotalWeight   *float64 `json:"totalWeight"`   // lbs for SticksNeeded sticks, nil when unknown
	WasteInches   float64  `json:"wasteInches"`   // waste across all sticks
	UncoveredMark []string `json:"uncoveredMarks,omitempty"`
}

// EstimateSticks computes how many sticks are needed if the greedy pattern in
// plan is cut repeatedly. Pieces sharing a mark and length are pooled; each
// pool needs ceil(quantity / fits) sticks and the estimate is the largest of
// those. Pieces that never fit are reported as uncovered.
func EstimateSticks(plan YieldPlan, group PartGroup, stick InventoryStick) StickEstimate {
	est := StickEstimate{
		StickLength: plan.StickLength,
		Available:   stick.Count,
	}

	fits := make(map[string]int, len(plan.Yields))
	for _, y := range plan.Yields {
		fits[pieceKey(y.Mark, y.LengthInches)] += y.Fits
	}

	var keys []string
	need := make(map[string]int, len(group.Pieces))
	marks := make(map[string]string, len(group.Pieces))
	for _, p := range group.Pieces {
		k := pieceKey(p.Mark, p.LengthInches)
		if _, seen := need[k]; !seen {
			keys = append(keys, k)
			marks[k] = p.Mark
		}
		need[k] += p.Quantity
	}

	covered := true
	for _, k := range keys {
		f := fits[k]
		if f <= 0 {
			covered = false
			est.UncoveredMark = append(est.UncoveredMark, marks[k])
			continue
		}
		n := int(math.Ceil(float64(need[k]) / float64(f)))
		if n > est.SticksNeeded {
			est.SticksNeeded = n
		}
	}
	est.Covered = covered && len(group.Pieces) > 0

	if est.SticksNeeded > stick.Count {
		est.Shortfall = est.SticksNeeded - stick.Count
	}
	est.WasteInches = plan.Waste * float64(est.SticksNeeded)
	if stick.WeightLbs != nil {
		est.TotalWeight = Float(*stick.WeightLbs * float64(est.SticksNeeded))
	}
	return est
}

func pieceKey(mark string, length float64) string {
	return mark + "@" + strconv.FormatFloat(length, 'f', -1, 64)
}
