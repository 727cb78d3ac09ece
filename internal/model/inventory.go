package model

// StockGroup holds the aggregated sticks for one (shape, dimension, grade)
// combination in the stock inventory.
type StockGroup struct {
	Shape     string           `json:"shape"`
	Dimension string           `json:"dimension"`
	Grade     string           `json:"grade"`
	Sticks    []InventoryStick `json:"sticks"`
}

// StockKey identifies a stock group after normalization.
type StockKey struct {
	Shape     string
	Dimension string
	Grade     string
}

// Key returns the normalized identity of the group.
func (g StockGroup) Key() StockKey {
	return StockKey{Shape: Normalize(g.Shape), Dimension: Normalize(g.Dimension), Grade: Normalize(g.Grade)}
}

// String renders the key as "shape|dimension|grade".
func (k StockKey) String() string {
	return k.Shape + "|" + k.Dimension + "|" + k.Grade
}

// TotalCount returns the number of sticks across all lengths.
func (g StockGroup) TotalCount() int {
	var n int
	for _, s := range g.Sticks {
		n += s.Count
	}
	return n
}

// Inventory is a point-in-time view of the stock inventory.
type Inventory struct {
	Groups []StockGroup `json:"groups"`
}

// FindGroup returns a pointer to the group with the given key, or nil.
func (inv *Inventory) FindGroup(key StockKey) *StockGroup {
	for i := range inv.Groups {
		if inv.Groups[i].Key() == key {
			return &inv.Groups[i]
		}
	}
	return nil
}

// StickCount returns the number of sticks across all groups.
func (inv *Inventory) StickCount() int {
	var n int
	for _, g := range inv.Groups {
		n += g.TotalCount()
	}
	return n
}
