package model

// MinUsableDrop is the shortest leftover (in inches) worth returning to
// stock. Anything shorter is scrap.
const MinUsableDrop = 24.0

// Drop is the leftover piece of a stick after a cut pattern is applied.
type Drop struct {
	StickLength   float64 `json:"stickLength"`
	LengthInches  float64 `json:"lengthInches"`
	LengthDisplay string  `json:"lengthDisplay"`
	Usable        bool    `json:"usable"`
}

// DropFor returns the leftover of a yield plan, classified as usable or scrap.
func DropFor(plan YieldPlan) Drop {
	length := plan.Waste
	if length < 0 {
		length = 0
	}
	return Drop{
		StickLength:   plan.StickLength,
		LengthInches:  length,
		LengthDisplay: FormatLength(length),
		Usable:        length >= MinUsableDrop,
	}
}

// UsableDrops returns the drops from plans that are long enough to restock,
// multiplied out by the number of sticks cut with each plan.
func UsableDrops(plans []YieldPlan, sticks []int) []Drop {
	var drops []Drop
	for i, p := range plans {
		d := DropFor(p)
		if !d.Usable {
			continue
		}
		n := 1
		if i < len(sticks) {
			n = sticks[i]
		}
		for j := 0; j < n; j++ {
			drops = append(drops, d)
		}
	}
	return drops
}
