package engine

import (
	"github.com/piwi3910/SubTrack/internal/model"
)

// Match pairs a part group with the stock that can supply it. Plans is
// parallel to Sticks: Plans[i] is the greedy yield of Sticks[i].
type Match struct {
	Group          model.PartGroup        `json:"group"`
	HasInventory   bool                   `json:"hasInventory"`
	StockShape     string                 `json:"stockShape,omitempty"`
	StockDimension string                 `json:"stockDimension,omitempty"`
	StockGrade     string                 `json:"stockGrade,omitempty"`
	Sticks         []model.InventoryStick `json:"sticks"`
	Plans          []model.YieldPlan      `json:"plans"`
}

// Stick returns the stick at index i and whether it exists.
func (m Match) Stick(i int) (model.InventoryStick, bool) {
	if i < 0 || i >= len(m.Sticks) {
		return model.InventoryStick{}, false
	}
	return m.Sticks[i], true
}

// Plan takes SubOut items and a stock inventory and returns one match per
// part group, in group order.
func Plan(items []model.SubOutItem, inv model.Inventory) []Match {
	return MatchInventory(GroupByShapeGrade(items), inv)
}

// MatchInventory finds the stock group for every part group and computes
// the yield of each candidate stick. A group with no stock comes back with
// HasInventory false and no sticks.
func MatchInventory(groups []model.PartGroup, inv model.Inventory) []Match {
	matches := make([]Match, 0, len(groups))
	for _, g := range groups {
		m := Match{Group: g, Sticks: []model.InventoryStick{}, Plans: []model.YieldPlan{}}
		if sg := findStock(g, inv.Groups); sg != nil {
			m.HasInventory = true
			m.StockShape = sg.Shape
			m.StockDimension = sg.Dimension
			m.StockGrade = sg.Grade
			m.Sticks = append(m.Sticks, sg.Sticks...)
			m.Plans = YieldsFor(g, m.Sticks)
		}
		matches = append(matches, m)
	}
	return matches
}

// findStock returns the stock group for a part group. A direct shape and
// grade match wins; among several, the one whose dimension equals the
// group's first piece dimension is preferred. Failing that, stock keyed as
// "<shape> <dimension>" (plate "PL" + "1/2") is compared against the part
// shape, which may already embed the dimension.
func findStock(g model.PartGroup, stock []model.StockGroup) *model.StockGroup {
	dim := model.Normalize(g.FirstDimension())

	var first *model.StockGroup
	for i := range stock {
		sg := &stock[i]
		if model.Normalize(sg.Shape) != g.Key.Shape || model.Normalize(sg.Grade) != g.Key.Grade {
			continue
		}
		if dim != "" && model.Normalize(sg.Dimension) == dim {
			return sg
		}
		if first == nil {
			first = sg
		}
	}
	if first != nil {
		return first
	}

	for i := range stock {
		sg := &stock[i]
		if model.Normalize(sg.Grade) != g.Key.Grade {
			continue
		}
		if model.Normalize(sg.Shape+" "+sg.Dimension) == g.Key.Shape {
			return sg
		}
	}
	return nil
}
