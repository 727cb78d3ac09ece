package model

// DefaultLoadCapacityLbs is the soft weight limit of one truck load.
const DefaultLoadCapacityLbs = 48000

// Pallet groups fabricated parts that ship as one unit.
type Pallet struct {
	ID           uint     `json:"id"`
	SubOutID     uint     `json:"subOutId"`
	PalletNumber string   `json:"palletNumber"`
	Weight       *float64 `json:"weight"` // lbs, nil when not weighed
	LoadID       *uint    `json:"loadId,omitempty"`
}

// LoadDirection tells whether a load goes out to a vendor or back to the shop.
type LoadDirection string

const (
	LoadOutbound LoadDirection = "Outbound"
	LoadInbound  LoadDirection = "Inbound"
)

// Load is one truck trip between the shop and a vendor.
type Load struct {
	ID         uint          `json:"id"`
	SubOutID   uint          `json:"subOutId"`
	LoadNumber string        `json:"loadNumber"`
	Direction  LoadDirection `json:"direction"`
	Status     string        `json:"status"`
}
