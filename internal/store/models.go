package store

import (
	"strings"
	"time"

	"github.com/piwi3910/SubTrack/internal/model"
)

// SubOut is a unit of fabrication work sent to an outside vendor.
type SubOut struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Number    string    `gorm:"size:50;uniqueIndex;not null" json:"number" binding:"required"`
	Vendor    string    `gorm:"size:100;index" json:"vendor"`
	JobNumber string    `gorm:"size:50;index" json:"jobNumber"`
	Status    string    `gorm:"size:30;not null;default:Pending" json:"status"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updatedAt"`
}

// Item is one line item of a SubOut.
type Item struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	SubOutID    uint      `gorm:"index;not null" json:"subOutId"`
	Shape       string    `gorm:"size:30" json:"shape"`
	Dimension   string    `gorm:"size:50" json:"dimension"`
	Grade       string    `gorm:"size:30" json:"grade"`
	Length      string    `gorm:"size:30" json:"length"`
	Quantity    int       `gorm:"not null;default:1" json:"quantity"`
	PieceMark   string    `gorm:"size:50" json:"pieceMark"`
	MainMark    string    `gorm:"size:50" json:"mainMark"`
	Weight      *float64  `json:"weight"`
	Barcode     string    `gorm:"size:50;index" json:"barcode"`
	SendType    string    `gorm:"size:10" json:"sendType"`
	LoadID      *uint     `gorm:"index" json:"loadId"`
	PalletID    *uint     `gorm:"index" json:"palletId"`
	SourceTable string    `gorm:"size:50;uniqueIndex:idx_item_source" json:"sourceTable"`
	SourceID    *string   `gorm:"size:50;uniqueIndex:idx_item_source" json:"sourceId"` // NULL for parts without a source row
	CreatedAt   time.Time `gorm:"autoCreateTime" json:"createdAt"`
}

// ToModel converts the row to the domain item.
func (i Item) ToModel() model.SubOutItem {
	return model.SubOutItem{
		ID:          i.ID,
		SubOutID:    i.SubOutID,
		Shape:       i.Shape,
		Dimension:   i.Dimension,
		Grade:       i.Grade,
		Length:      i.Length,
		Quantity:    i.Quantity,
		PieceMark:   i.PieceMark,
		MainMark:    i.MainMark,
		Weight:      i.Weight,
		Barcode:     i.Barcode,
		SendType:    model.SendType(i.SendType),
		LoadID:      i.LoadID,
		PalletID:    i.PalletID,
		SourceTable: i.SourceTable,
		SourceID:    sourceID(i.SourceID),
	}
}

func itemFromModel(subOutID uint, it model.SubOutItem) Item {
	qty := it.Quantity
	if qty <= 0 {
		qty = 1
	}
	return Item{
		SubOutID:    subOutID,
		Shape:       it.Shape,
		Dimension:   it.Dimension,
		Grade:       it.Grade,
		Length:      it.Length,
		Quantity:    qty,
		PieceMark:   it.PieceMark,
		MainMark:    it.MainMark,
		Weight:      it.Weight,
		Barcode:     it.Barcode,
		SendType:    string(it.SendType),
		SourceTable: it.SourceTable,
		SourceID:    nullableSource(it.SourceID),
	}
}

func sourceID(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}

func nullableSource(id string) *string {
	if strings.TrimSpace(id) == "" {
		return nil
	}
	return &id
}

// Pallet groups items shipped as one unit.
type Pallet struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	SubOutID     uint      `gorm:"index;not null" json:"subOutId"`
	PalletNumber string    `gorm:"size:50" json:"palletNumber"`
	Weight       *float64  `json:"weight"`
	LoadID       *uint     `gorm:"index" json:"loadId"`
	CreatedAt    time.Time `gorm:"autoCreateTime" json:"createdAt"`
}

// ToModel converts the row to the domain pallet.
func (p Pallet) ToModel() model.Pallet {
	return model.Pallet{ID: p.ID, SubOutID: p.SubOutID, PalletNumber: p.PalletNumber, Weight: p.Weight, LoadID: p.LoadID}
}

// Load is one truck trip for a SubOut.
type Load struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	SubOutID   uint      `gorm:"index;not null" json:"subOutId"`
	LoadNumber string    `gorm:"size:50" json:"loadNumber"`
	Direction  string    `gorm:"size:10" json:"direction"`
	Status     string    `gorm:"size:30;default:Scheduled" json:"status"`
	CreatedAt  time.Time `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt  time.Time `gorm:"autoUpdateTime" json:"updatedAt"`
}

// ToModel converts the row to the domain load.
func (l Load) ToModel() model.Load {
	return model.Load{
		ID:         l.ID,
		SubOutID:   l.SubOutID,
		LoadNumber: l.LoadNumber,
		Direction:  model.LoadDirection(l.Direction),
		Status:     l.Status,
	}
}

// AllModels lists the tables managed by AutoMigrate.
func AllModels() []any {
	return []any{&SubOut{}, &Item{}, &Pallet{}, &Load{}}
}
