package inventory

import (
	"math"
	"sort"
	"strings"

	"github.com/piwi3910/SubTrack/internal/model"
)

// Build aggregates raw records into stock groups keyed by (shape, dimension,
// grade). Within a group, records whose lengths round to the same whole inch
// (so within half an inch of the displayed length) count as one stick type. Groups keep first-seen order; sticks are
// ordered longest first. Records without a shape or a positive length are
// ignored.
func Build(records []Record) model.Inventory {
	type bucket struct {
		group  int
		inches int
	}
	groupIndex := make(map[model.StockKey]int)
	stickIndex := make(map[bucket]int)
	var groups []model.StockGroup

	for _, r := range records {
		shape := r.Shape.String()
		if shape == "" {
			continue
		}
		length, ok := r.LengthInches()
		if !ok || length <= 0 {
			continue
		}

		sg := model.StockGroup{Shape: shape, Dimension: r.Dimensions.String(), Grade: r.Grade.String()}
		gi, seen := groupIndex[sg.Key()]
		if !seen {
			groups = append(groups, sg)
			gi = len(groups) - 1
			groupIndex[sg.Key()] = gi
		}

		rounded := int(math.Round(length))
		b := bucket{group: gi, inches: rounded}
		if si, ok := stickIndex[b]; ok {
			groups[gi].Sticks[si].Count++
			continue
		}
		groups[gi].Sticks = append(groups[gi].Sticks, model.InventoryStick{
			Shape:         sg.Shape,
			Dimension:     sg.Dimension,
			Grade:         sg.Grade,
			LengthInches:  rounded,
			LengthDisplay: model.FormatLength(float64(rounded)),
			WeightLbs:     r.WeightLbs(),
			Count:         1,
		})
		stickIndex[b] = len(groups[gi].Sticks) - 1
	}

	for i := range groups {
		sticks := groups[i].Sticks
		sort.SliceStable(sticks, func(a, b int) bool {
			return sticks[a].LengthInches > sticks[b].LengthInches
		})
	}
	return model.Inventory{Groups: groups}
}

// Filter returns the groups whose shape contains the given text, ignoring case.
func Filter(inv model.Inventory, shape string) model.Inventory {
	needle := model.Normalize(shape)
	if needle == "" {
		return inv
	}
	var out model.Inventory
	for _, g := range inv.Groups {
		if strings.Contains(model.Normalize(g.Shape+" "+g.Dimension), needle) {
			out.Groups = append(out.Groups, g)
		}
	}
	return out
}
