// Package loads decides which items and pallets can go on a truck load and
// tracks the projected weight against the load's capacity.
package loads

import (
	"sort"
	"strings"

	"github.com/piwi3910/SubTrack/internal/model"
	"github.com/shopspring/decimal"
)

// Status is the assignability of an item or pallet for one load.
type Status string

const (
	StatusAvailable   Status = "Available"
	StatusAssigned    Status = "Assigned"    // already on this load
	StatusUnavailable Status = "Unavailable" // on another load, or travels with an item that is
)

// DefaultWarnFraction flags a load once less than this share of capacity remains.
const DefaultWarnFraction = 0.25

// Assigner holds the selection state for assigning items and pallets to one load.
type Assigner struct {
	loadID       uint
	capacity     decimal.Decimal
	warnFraction decimal.Decimal
	current      decimal.Decimal

	items   []model.SubOutItem
	pallets []model.Pallet

	loadedBarcodes  map[string]bool
	selectedItems   map[uint]bool
	selectedPallets map[uint]bool
}

// Option configures an Assigner.
type Option func(*Assigner)

// WithCapacity overrides the load capacity in pounds.
func WithCapacity(lbs float64) Option {
	return func(a *Assigner) {
		if lbs > 0 {
			a.capacity = decimal.NewFromFloat(lbs)
		}
	}
}

// WithWarnFraction overrides the remaining-capacity share that raises a warning.
func WithWarnFraction(f float64) Option {
	return func(a *Assigner) {
		if f >= 0 && f <= 1 {
			a.warnFraction = decimal.NewFromFloat(f)
		}
	}
}

// WithLoadedBarcodes marks barcodes already on a load outside the candidate
// set, such as items of another SubOut.
func WithLoadedBarcodes(codes ...string) Option {
	return func(a *Assigner) {
		for _, bc := range codes {
			if bc = strings.TrimSpace(bc); bc != "" {
				a.loadedBarcodes[bc] = true
			}
		}
	}
}

// NewAssigner creates an assigner for loadID. currentLbs is the weight
// already committed to the load; items and pallets are the candidates.
func NewAssigner(loadID uint, currentLbs float64, items []model.SubOutItem, pallets []model.Pallet, opts ...Option) *Assigner {
	a := &Assigner{
		loadID:          loadID,
		capacity:        decimal.NewFromInt(model.DefaultLoadCapacityLbs),
		warnFraction:    decimal.NewFromFloat(DefaultWarnFraction),
		current:         decimal.NewFromFloat(currentLbs),
		items:           items,
		pallets:         pallets,
		loadedBarcodes:  make(map[string]bool),
		selectedItems:   make(map[uint]bool),
		selectedPallets: make(map[uint]bool),
	}
	for _, opt := range opts {
		opt(a)
	}
	for _, it := range items {
		if it.LoadID != nil {
			if bc := barcode(it); bc != "" {
				a.loadedBarcodes[bc] = true
			}
		}
	}
	return a
}

func barcode(it model.SubOutItem) string {
	return strings.TrimSpace(it.Barcode)
}

// ItemStatus reports whether the item can be picked for this load.
func (a *Assigner) ItemStatus(it model.SubOutItem) Status {
	if it.LoadID != nil {
		if *it.LoadID == a.loadID {
			return StatusAssigned
		}
		return StatusUnavailable
	}
	if bc := barcode(it); bc != "" && a.loadedBarcodes[bc] {
		return StatusUnavailable
	}
	return StatusAvailable
}

// PalletStatus reports whether the pallet can be picked for this load.
func (a *Assigner) PalletStatus(p model.Pallet) Status {
	if p.LoadID == nil {
		return StatusAvailable
	}
	if *p.LoadID == a.loadID {
		return StatusAssigned
	}
	return StatusUnavailable
}

func (a *Assigner) item(id uint) (model.SubOutItem, bool) {
	for _, it := range a.items {
		if it.ID == id {
			return it, true
		}
	}
	return model.SubOutItem{}, false
}

// ToggleItem flips the selection of an item together with every available
// item sharing its barcode. Unknown or unavailable items are left alone and
// false is returned. The new selection state is returned otherwise.
func (a *Assigner) ToggleItem(id uint) (selected bool, ok bool) {
	it, found := a.item(id)
	if !found || a.ItemStatus(it) != StatusAvailable {
		return false, false
	}
	selected = !a.selectedItems[id]

	bc := barcode(it)
	for _, other := range a.items {
		if other.ID != id && (bc == "" || barcode(other) != bc) {
			continue
		}
		if a.ItemStatus(other) != StatusAvailable {
			continue
		}
		if selected {
			a.selectedItems[other.ID] = true
		} else {
			delete(a.selectedItems, other.ID)
		}
	}
	return selected, true
}

// TogglePallet flips the selection of an available pallet.
func (a *Assigner) TogglePallet(id uint) (selected bool, ok bool) {
	for _, p := range a.pallets {
		if p.ID != id {
			continue
		}
		if a.PalletStatus(p) != StatusAvailable {
			return false, false
		}
		if a.selectedPallets[id] {
			delete(a.selectedPallets, id)
			return false, true
		}
		a.selectedPallets[id] = true
		return true, true
	}
	return false, false
}

// ItemSelected reports whether the item is picked.
func (a *Assigner) ItemSelected(id uint) bool {
	return a.selectedItems[id]
}

// PalletSelected reports whether the pallet is picked.
func (a *Assigner) PalletSelected(id uint) bool {
	return a.selectedPallets[id]
}

// Capacity is the projected weight of the load against its limit. Remaining
// goes negative once the load is over; OverBy then carries the magnitude.
type Capacity struct {
	Capacity  decimal.Decimal `json:"capacity"`
	Current   decimal.Decimal `json:"current"`
	Selected  decimal.Decimal `json:"selected"`
	Projected decimal.Decimal `json:"projected"`
	Remaining decimal.Decimal `json:"remaining"`
	OverBy    decimal.Decimal `json:"overBy"`
	Percent   int             `json:"percent"` // projected / capacity
	Warning   bool            `json:"warning"`
	Over      bool            `json:"over"`
}

// Label renders the remaining capacity for display, e.g. "12,000 lbs
// remaining" or "1,500 lbs over".
func (c Capacity) Label() string {
	if c.Over {
		return model.FormatPounds(c.OverBy.InexactFloat64()) + " over"
	}
	return model.FormatPounds(c.Remaining.InexactFloat64()) + " remaining"
}

// Capacity computes the projected load weight with the current picks.
// Exceeding capacity is reported, never prevented.
func (a *Assigner) Capacity() Capacity {
	selected := decimal.Zero
	for _, it := range a.items {
		if !a.selectedItems[it.ID] || it.Weight == nil {
			continue
		}
		qty := it.Quantity
		if qty <= 0 {
			qty = 1
		}
		selected = selected.Add(decimal.NewFromFloat(*it.Weight).Mul(decimal.NewFromInt(int64(qty))))
	}
	for _, p := range a.pallets {
		if a.selectedPallets[p.ID] && p.Weight != nil {
			selected = selected.Add(decimal.NewFromFloat(*p.Weight))
		}
	}

	projected := a.current.Add(selected)
	remaining := a.capacity.Sub(projected)
	c := Capacity{
		Capacity:  a.capacity,
		Current:   a.current,
		Selected:  selected,
		Projected: projected,
		Remaining: remaining,
		OverBy:    decimal.Zero,
	}
	if a.capacity.IsPositive() {
		c.Percent = int(projected.Div(a.capacity).Mul(decimal.NewFromInt(100)).Round(0).IntPart())
	}
	if remaining.IsNegative() {
		c.Over = true
		c.OverBy = remaining.Neg()
	}
	c.Warning = c.Over || remaining.LessThan(a.capacity.Mul(a.warnFraction))
	return c
}

// Assignment is the set of items and pallets to move onto a load.
type Assignment struct {
	LoadID    uint   `json:"loadId"`
	ItemIDs   []uint `json:"itemIds"`
	PalletIDs []uint `json:"palletIds"`
}

// Empty reports whether nothing is picked.
func (a Assignment) Empty() bool {
	return len(a.ItemIDs) == 0 && len(a.PalletIDs) == 0
}

// Commit returns the picks in ascending ID order.
func (a *Assigner) Commit() Assignment {
	out := Assignment{LoadID: a.loadID, ItemIDs: []uint{}, PalletIDs: []uint{}}
	for id := range a.selectedItems {
		out.ItemIDs = append(out.ItemIDs, id)
	}
	for id := range a.selectedPallets {
		out.PalletIDs = append(out.PalletIDs, id)
	}
	sort.Slice(out.ItemIDs, func(i, j int) bool { return out.ItemIDs[i] < out.ItemIDs[j] })
	sort.Slice(out.PalletIDs, func(i, j int) bool { return out.PalletIDs[i] < out.PalletIDs[j] })
	return out
}

// ItemView is an item with its assignability, for listing.
type ItemView struct {
	model.SubOutItem
	Status   Status `json:"status"`
	Selected bool   `json:"selected"`
}

// PalletView is a pallet with its assignability, for listing.
type PalletView struct {
	model.Pallet
	Status   Status `json:"status"`
	Selected bool   `json:"selected"`
}

// Items lists every candidate item with its status.
func (a *Assigner) Items() []ItemView {
	out := make([]ItemView, 0, len(a.items))
	for _, it := range a.items {
		out = append(out, ItemView{SubOutItem: it, Status: a.ItemStatus(it), Selected: a.selectedItems[it.ID]})
	}
	return out
}

// Pallets lists every candidate pallet with its status.
func (a *Assigner) Pallets() []PalletView {
	out := make([]PalletView, 0, len(a.pallets))
	for _, p := range a.pallets {
		out = append(out, PalletView{Pallet: p, Status: a.PalletStatus(p), Selected: a.selectedPallets[p.ID]})
	}
	return out
}
