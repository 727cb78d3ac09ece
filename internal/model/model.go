package model

import "strings"

// SendType classifies how an item leaves the shop for a vendor.
type SendType string

const (
	SendTypeRaw         SendType = "Raw"   // Uncut stock sticks
	SendTypeCutToLength SendType = "CTL"   // Stock cut to length in the shop
	SendTypeParts       SendType = "Parts" // Fabricated parts, usually palletized
)

func (s SendType) String() string {
	if s == "" {
		return "-"
	}
	return string(s)
}

// SourceTableInventory marks items generated from the Tekla stock inventory.
const SourceTableInventory = "TeklaInventory"

// SubOutItem is one line item recorded against a SubOut.
type SubOutItem struct {
	ID          uint     `json:"id"`
	SubOutID    uint     `json:"subOutId"`
	Shape       string   `json:"shape"`
	Dimension   string   `json:"dimension"`
	Grade       string   `json:"grade"`
	Length      string   `json:"length"` // As entered: feet-inches or plain inches
	Quantity    int      `json:"quantity"`
	PieceMark   string   `json:"pieceMark"`
	MainMark    string   `json:"mainMark"`
	Weight      *float64 `json:"weight"` // lbs, nil when unknown
	Barcode     string   `json:"barcode"`
	SendType    SendType `json:"sendType"`
	LoadID      *uint    `json:"loadId,omitempty"`
	PalletID    *uint    `json:"palletId,omitempty"`
	SourceTable string   `json:"sourceTable,omitempty"`
	SourceID    string   `json:"sourceId,omitempty"`
}

// Mark returns the label used to identify the item on a cut list.
func (i SubOutItem) Mark() string {
	if m := strings.TrimSpace(i.PieceMark); m != "" {
		return m
	}
	if m := strings.TrimSpace(i.MainMark); m != "" {
		return m
	}
	return "-"
}

// GroupKey identifies a (shape, grade) combination after normalization.
type GroupKey struct {
	Shape string
	Grade string
}

// NewGroupKey builds a key from raw shape and grade values.
func NewGroupKey(shape, grade string) GroupKey {
	return GroupKey{Shape: Normalize(shape), Grade: Normalize(grade)}
}

// String renders the key as "shape|grade".
func (k GroupKey) String() string {
	return k.Shape + "|" + k.Grade
}

// Normalize trims, collapses inner whitespace and lowercases a value for
// case-insensitive comparison.
func Normalize(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}

// RequiredPiece is a cut length needed for a SubOut part.
type RequiredPiece struct {
	Shape         string  `json:"shape"`
	Grade         string  `json:"grade"`
	Dimension     string  `json:"dimension"`
	LengthInches  float64 `json:"lengthInches"`
	LengthDisplay string  `json:"lengthDisplay"`
	Quantity      int     `json:"quantity"`
	Mark          string  `json:"mark"`
}

// PartGroup holds every required piece sharing a normalized (shape, grade) key.
type PartGroup struct {
	Key               GroupKey        `json:"-"`
	Shape             string          `json:"shape"`
	Grade             string          `json:"grade"`
	Pieces            []RequiredPiece `json:"pieces"`
	TotalPieces       int             `json:"totalPieces"`
	TotalLengthInches float64         `json:"totalLengthInches"`
}

// Add appends a piece and updates the group totals.
func (g *PartGroup) Add(p RequiredPiece) {
	g.Pieces = append(g.Pieces, p)
	g.TotalPieces += p.Quantity
	g.TotalLengthInches += p.LengthInches * float64(p.Quantity)
}

// FirstDimension returns the dimension of the first piece, or "".
func (g PartGroup) FirstDimension() string {
	if len(g.Pieces) == 0 {
		return ""
	}
	return g.Pieces[0].Dimension
}

// InventoryStick is one available stock length, aggregated across identical sticks.
type InventoryStick struct {
	Shape         string   `json:"shape"`
	Dimension     string   `json:"dimension"`
	Grade         string   `json:"grade"`
	LengthInches  int      `json:"lengthInches"`
	LengthDisplay string   `json:"lengthDisplay"`
	WeightLbs     *float64 `json:"weightLbs"` // nil when the source carried no weight
	Count         int      `json:"count"`
}

// YieldEntry records how many of one required piece fit on a stick.
type YieldEntry struct {
	Mark          string  `json:"mark"`
	LengthInches  float64 `json:"lengthInches"`
	LengthDisplay string  `json:"lengthDisplay"`
	Fits          int     `json:"fits"`
	MaxNeeded     int     `json:"maxNeeded"`
}

// YieldPlan is the greedy cut pattern for one stick against a part group.
type YieldPlan struct {
	StickLength float64      `json:"stickLength"`
	Yields      []YieldEntry `json:"yields"`
	TotalFits   int          `json:"totalFits"`
	Waste       float64      `json:"waste"`    // inches left after cutting
	WastePct    int          `json:"wastePct"` // waste / stick length, rounded
}

// ItemRecord is the payload of one item row added to a SubOut in bulk.
type ItemRecord struct {
	SourceTable string   `json:"sourceTable" binding:"required"`
	SourceID    string   `json:"sourceId" binding:"required"`
	Shape       string   `json:"shape" binding:"required"`
	Dimension   string   `json:"dimension"`
	Grade       string   `json:"grade"`
	Length      string   `json:"length"`
	Quantity    int      `json:"quantity" binding:"gte=1"`
	Weight      *float64 `json:"weight"`
	SendType    SendType `json:"sendType" binding:"required,oneof=Raw CTL Parts"`
}
