package engine

import (
	"strings"

	"github.com/piwi3910/SubTrack/internal/model"
)

// GroupByShapeGrade collects the cut lengths of a SubOut into part groups
// keyed by normalized (shape, grade). Items without a shape, or whose length
// is missing, unparseable or zero, are skipped. Groups come back in the order
// their key was first seen.
func GroupByShapeGrade(items []model.SubOutItem) []model.PartGroup {
	index := make(map[model.GroupKey]int)
	var groups []model.PartGroup

	for _, it := range items {
		shape := strings.TrimSpace(it.Shape)
		if shape == "" || strings.TrimSpace(it.Length) == "" {
			continue
		}
		grade := strings.TrimSpace(it.Grade)
		key := model.NewGroupKey(shape, grade)

		i, seen := index[key]
		if !seen {
			groups = append(groups, model.PartGroup{Key: key, Shape: shape, Grade: grade})
			i = len(groups) - 1
			index[key] = i
		}

		length, ok := model.ParseLength(it.Length)
		if !ok || length <= 0 {
			continue
		}
		// a negative quantity is a data error; count it as one piece like a missing one
		qty := it.Quantity
		if qty <= 0 {
			qty = 1
		}
		groups[i].Add(model.RequiredPiece{
			Shape:         shape,
			Grade:         grade,
			Dimension:     strings.TrimSpace(it.Dimension),
			LengthInches:  length,
			LengthDisplay: model.FormatLength(length),
			Quantity:      qty,
			Mark:          it.Mark(),
		})
	}

	// Drop groups whose every piece failed to parse.
	out := groups[:0]
	for _, g := range groups {
		if len(g.Pieces) > 0 {
			out = append(out, g)
		}
	}
	return out
}
