// Package selection tracks how many sticks of each candidate length the user
// has picked and turns the picks into item records for a SubOut.
package selection

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/piwi3910/SubTrack/internal/engine"
	"github.com/piwi3910/SubTrack/internal/model"
	"github.com/shopspring/decimal"
)

// ErrNothingSelected is returned when a compile is attempted with no sticks picked.
var ErrNothingSelected = errors.New("no sticks selected")

// Key addresses one candidate stick: the part group index and the stick
// index within that group's match.
type Key struct {
	Group int `json:"group"`
	Stick int `json:"stick"`
}

// Entry is one non-zero pick.
type Entry struct {
	Key
	Quantity int `json:"quantity"`
}

// Selection maps candidate sticks to picked quantities. The zero value is
// not usable; use New.
type Selection struct {
	qty map[Key]int
}

// New returns an empty selection.
func New() *Selection {
	return &Selection{qty: make(map[Key]int)}
}

// Set records qty sticks for k, clamped to [0, count of that stick]. A key
// that no longer resolves against matches clamps to zero. Zero removes the
// entry. The stored quantity is returned.
func (s *Selection) Set(matches []engine.Match, k Key, qty int) int {
	limit := 0
	if stick, ok := lookup(matches, k); ok {
		limit = stick.Count
	}
	if qty > limit {
		qty = limit
	}
	if qty <= 0 {
		delete(s.qty, k)
		return 0
	}
	s.qty[k] = qty
	return qty
}

// Get returns the quantity picked for k.
func (s *Selection) Get(k Key) int {
	return s.qty[k]
}

// Len returns the number of non-zero entries.
func (s *Selection) Len() int {
	return len(s.qty)
}

// Clear drops every pick.
func (s *Selection) Clear() {
	s.qty = make(map[Key]int)
}

// Entries returns the picks ordered by group then stick.
func (s *Selection) Entries() []Entry {
	out := make([]Entry, 0, len(s.qty))
	for k, q := range s.qty {
		out = append(out, Entry{Key: k, Quantity: q})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Group != out[j].Group {
			return out[i].Group < out[j].Group
		}
		return out[i].Stick < out[j].Stick
	})
	return out
}

func lookup(matches []engine.Match, k Key) (model.InventoryStick, bool) {
	if k.Group < 0 || k.Group >= len(matches) {
		return model.InventoryStick{}, false
	}
	return matches[k.Group].Stick(k.Stick)
}

// Summary totals the resolvable picks. Weight counts only sticks with a
// known weight; UnknownWeight reports how many sticks had none.
type Summary struct {
	TotalSticks   int             `json:"totalSticks"`
	TotalWeight   decimal.Decimal `json:"totalWeight"`
	UnknownWeight int             `json:"unknownWeight"`
}

// Summarize totals the selection against matches, skipping stale keys.
func Summarize(matches []engine.Match, s *Selection) Summary {
	sum := Summary{TotalWeight: decimal.Zero}
	for _, e := range s.Entries() {
		stick, ok := lookup(matches, e.Key)
		if !ok {
			continue
		}
		sum.TotalSticks += e.Quantity
		if stick.WeightLbs == nil {
			sum.UnknownWeight += e.Quantity
			continue
		}
		sum.TotalWeight = sum.TotalWeight.Add(
			decimal.NewFromFloat(*stick.WeightLbs).Mul(decimal.NewFromInt(int64(e.Quantity))))
	}
	return sum
}

// Result is a compiled selection ready for a bulk add.
type Result struct {
	Items   []model.ItemRecord `json:"items"`
	Summary Summary            `json:"summary"`
}

// Compile turns the selection into one raw-stock item record per picked
// stick. Keys that no longer resolve against matches are skipped. Each
// record gets a fresh source ID from seq.
func Compile(ctx context.Context, matches []engine.Match, s *Selection, seq Sequence) (Result, error) {
	res := Result{Summary: Summarize(matches, s)}
	if res.Summary.TotalSticks == 0 {
		return res, ErrNothingSelected
	}

	res.Items = make([]model.ItemRecord, 0, res.Summary.TotalSticks)
	for _, e := range s.Entries() {
		stick, ok := lookup(matches, e.Key)
		if !ok {
			continue
		}
		m := matches[e.Group]
		dimension := stick.Dimension
		if dimension == "" {
			dimension = m.Group.FirstDimension()
		}
		shape := stick.Shape
		if shape == "" {
			shape = m.Group.Shape
		}
		grade := stick.Grade
		if grade == "" {
			grade = m.Group.Grade
		}
		for i := 0; i < e.Quantity; i++ {
			id, err := seq.Next(ctx)
			if err != nil {
				return Result{}, fmt.Errorf("failed to allocate source id: %w", err)
			}
			res.Items = append(res.Items, model.ItemRecord{
				SourceTable: model.SourceTableInventory,
				SourceID:    id,
				Shape:       shape,
				Dimension:   dimension,
				Grade:       grade,
				Length:      stick.LengthDisplay,
				Quantity:    1,
				Weight:      stick.WeightLbs,
				SendType:    model.SendTypeRaw,
			})
		}
	}
	return res, nil
}
