// Package store persists SubOuts, their items, pallets and loads through GORM.
package store

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/go-playground/validator/v10"
	"github.com/piwi3910/SubTrack/internal/config"
	"github.com/piwi3910/SubTrack/internal/loads"
	"github.com/piwi3910/SubTrack/internal/model"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var (
	ErrSubOutNotFound  = errors.New("suborder not found")
	ErrLoadNotFound    = errors.New("load not found")
	ErrDuplicateSource = errors.New("item with this source already exists")
)

// Store wraps the database handle.
type Store struct {
	db       *gorm.DB
	log      *logrus.Logger
	validate *validator.Validate
}

// Open connects to the configured database and migrates the schema.
func Open(cfg config.DBConfig, log *logrus.Logger) (*Store, error) {
	if log == nil {
		log = logrus.StandardLogger()
	}

	var dialector gorm.Dialector
	switch cfg.Driver {
	case "mysql":
		dialector = mysql.Open(cfg.DSN())
	case "sqlite":
		path := cfg.Path
		if path == "" {
			path = ":memory:"
		}
		if path != ":memory:" {
			if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
				return nil, err
			}
		}
		dialector = sqlite.Open(path)
	default:
		return nil, fmt.Errorf("unsupported db driver %q", cfg.Driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		TranslateError: true,
		Logger: logger.New(log, logger.Config{
			LogLevel:                  logger.Error,
			SlowThreshold:             time.Second,
			IgnoreRecordNotFoundError: true,
		}),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	if cfg.Driver == "sqlite" {
		// one connection keeps an in-memory database alive and serializes writers
		sqlDB.SetMaxOpenConns(1)
	} else {
		if cfg.MaxOpenConns > 0 {
			sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
		}
		if cfg.MaxIdleConns >= 0 {
			sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
		}
		sqlDB.SetConnMaxLifetime(5 * time.Minute)
	}

	if err := db.AutoMigrate(AllModels()...); err != nil {
		return nil, fmt.Errorf("failed to migrate schema: %w", err)
	}

	v := validator.New()
	v.SetTagName("binding")
	return &Store{db: db, log: log, validate: v}, nil
}

// Close releases the underlying connection pool.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Ping checks the database connection.
func (s *Store) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// CreateSubOut inserts a SubOut.
func (s *Store) CreateSubOut(ctx context.Context, so *SubOut) error {
	return s.db.WithContext(ctx).Create(so).Error
}

// GetSubOut loads a SubOut by ID.
func (s *Store) GetSubOut(ctx context.Context, id uint) (*SubOut, error) {
	var so SubOut
	if err := s.db.WithContext(ctx).First(&so, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSubOutNotFound
		}
		return nil, err
	}
	return &so, nil
}

// FindSubOutByNumber loads a SubOut by its number.
func (s *Store) FindSubOutByNumber(ctx context.Context, number string) (*SubOut, error) {
	var so SubOut
	if err := s.db.WithContext(ctx).Where("number = ?", number).First(&so).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSubOutNotFound
		}
		return nil, err
	}
	return &so, nil
}

// ListSubOutItems returns the items of a SubOut in insertion order.
func (s *Store) ListSubOutItems(ctx context.Context, subOutID uint) ([]model.SubOutItem, error) {
	if _, err := s.GetSubOut(ctx, subOutID); err != nil {
		return nil, err
	}
	var rows []Item
	if err := s.db.WithContext(ctx).Where("sub_out_id = ?", subOutID).Order("id").Find(&rows).Error; err != nil {
		return nil, err
	}
	items := make([]model.SubOutItem, len(rows))
	for i, r := range rows {
		items[i] = r.ToModel()
	}
	return items, nil
}

// ItemError describes why one item of a batch was not inserted.
type ItemError struct {
	Index    int    `json:"index"`
	SourceID string `json:"sourceId,omitempty"`
	Error    string `json:"error"`
}

// BulkResult reports the outcome of a batch insert.
type BulkResult struct {
	Inserted int         `json:"inserted"`
	Errors   []ItemError `json:"errors"`
}

// BulkAddItems inserts generated item records one at a time. A record that
// fails validation or repeats an existing (sourceTable, sourceId) pair is
// reported and skipped; the rest of the batch still goes in.
func (s *Store) BulkAddItems(ctx context.Context, subOutID uint, records []model.ItemRecord) (BulkResult, error) {
	items := make([]model.SubOutItem, len(records))
	invalid := make(map[int]error)
	for i, r := range records {
		if err := s.validate.Struct(r); err != nil {
			invalid[i] = err
			continue
		}
		items[i] = model.SubOutItem{
			Shape:       r.Shape,
			Dimension:   r.Dimension,
			Grade:       r.Grade,
			Length:      r.Length,
			Quantity:    r.Quantity,
			Weight:      r.Weight,
			SendType:    r.SendType,
			SourceTable: r.SourceTable,
			SourceID:    r.SourceID,
		}
	}
	return s.insertItems(ctx, subOutID, items, invalid)
}

// AddItems inserts parsed part items, such as those read by the importer.
func (s *Store) AddItems(ctx context.Context, subOutID uint, items []model.SubOutItem) (BulkResult, error) {
	return s.insertItems(ctx, subOutID, items, nil)
}

func (s *Store) insertItems(ctx context.Context, subOutID uint, items []model.SubOutItem, invalid map[int]error) (BulkResult, error) {
	if _, err := s.GetSubOut(ctx, subOutID); err != nil {
		return BulkResult{}, err
	}

	res := BulkResult{Errors: []ItemError{}}
	for i, it := range items {
		if err, ok := invalid[i]; ok {
			res.Errors = append(res.Errors, ItemError{Index: i, Error: err.Error()})
			continue
		}
		if err := s.insertItem(ctx, subOutID, it); err != nil {
			res.Errors = append(res.Errors, ItemError{Index: i, SourceID: it.SourceID, Error: err.Error()})
			if !errors.Is(err, ErrDuplicateSource) {
				config.LogError(s.log, "store", "insertItems", "insert item", it, err)
			}
			continue
		}
		res.Inserted++
	}
	return res, nil
}

func (s *Store) insertItem(ctx context.Context, subOutID uint, it model.SubOutItem) error {
	db := s.db.WithContext(ctx)
	if it.SourceID != "" {
		var n int64
		err := db.Model(&Item{}).
			Where("source_table = ? AND source_id = ?", it.SourceTable, it.SourceID).
			Count(&n).Error
		if err != nil {
			return err
		}
		if n > 0 {
			return fmt.Errorf("%w: %s/%s", ErrDuplicateSource, it.SourceTable, it.SourceID)
		}
	}
	row := itemFromModel(subOutID, it)
	return s.createItem(ctx, &row)
}

// createItem inserts one row. The unique source index catches a duplicate
// that slipped past the lookup in insertItem.
func (s *Store) createItem(ctx context.Context, row *Item) error {
	err := s.db.WithContext(ctx).Create(row).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) || (err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")) {
		return fmt.Errorf("%w: %s/%s", ErrDuplicateSource, row.SourceTable, sourceID(row.SourceID))
	}
	return err
}

// CreatePallet inserts a pallet.
func (s *Store) CreatePallet(ctx context.Context, p *Pallet) error {
	return s.db.WithContext(ctx).Create(p).Error
}

// CreateLoad inserts a load.
func (s *Store) CreateLoad(ctx context.Context, l *Load) error {
	return s.db.WithContext(ctx).Create(l).Error
}

// GetLoad loads a load by ID.
func (s *Store) GetLoad(ctx context.Context, id uint) (*Load, error) {
	var l Load
	if err := s.db.WithContext(ctx).First(&l, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrLoadNotFound
		}
		return nil, err
	}
	return &l, nil
}

// LoadCandidates is everything needed to build an assigner for one load.
type LoadCandidates struct {
	Load           model.Load
	Items          []model.SubOutItem
	Pallets        []model.Pallet
	CurrentWeight  float64
	LoadedBarcodes []string // candidate barcodes already on a load through another SubOut
}

// LoadCandidates returns the items and pallets of the load's SubOut along
// with the weight already on the load.
func (s *Store) LoadCandidates(ctx context.Context, loadID uint) (LoadCandidates, error) {
	l, err := s.GetLoad(ctx, loadID)
	if err != nil {
		return LoadCandidates{}, err
	}
	db := s.db.WithContext(ctx)

	var items []Item
	if err := db.Where("sub_out_id = ?", l.SubOutID).Order("id").Find(&items).Error; err != nil {
		return LoadCandidates{}, err
	}
	var pallets []Pallet
	if err := db.Where("sub_out_id = ?", l.SubOutID).Order("id").Find(&pallets).Error; err != nil {
		return LoadCandidates{}, err
	}
	current, err := s.LoadWeight(ctx, loadID)
	if err != nil {
		return LoadCandidates{}, err
	}

	loaded, err := s.loadedBarcodesElsewhere(ctx, l.SubOutID, items)
	if err != nil {
		return LoadCandidates{}, err
	}

	out := LoadCandidates{
		Load:           l.ToModel(),
		Items:          make([]model.SubOutItem, len(items)),
		Pallets:        make([]model.Pallet, len(pallets)),
		CurrentWeight:  current,
		LoadedBarcodes: loaded,
	}
	for i, it := range items {
		out.Items[i] = it.ToModel()
	}
	for i, p := range pallets {
		out.Pallets[i] = p.ToModel()
	}
	return out, nil
}

// loadedBarcodesElsewhere returns the barcodes of items that share a barcode
// with one of items and sit on any load from a different SubOut.
func (s *Store) loadedBarcodesElsewhere(ctx context.Context, subOutID uint, items []Item) ([]string, error) {
	seen := make(map[string]bool)
	var codes []string
	for _, it := range items {
		if bc := strings.TrimSpace(it.Barcode); bc != "" && !seen[bc] {
			seen[bc] = true
			codes = append(codes, bc)
		}
	}
	if len(codes) == 0 {
		return nil, nil
	}
	var loaded []string
	err := s.db.WithContext(ctx).Model(&Item{}).
		Distinct("barcode").
		Where("barcode IN ? AND load_id IS NOT NULL AND sub_out_id <> ?", codes, subOutID).
		Order("barcode").
		Pluck("barcode", &loaded).Error
	if err != nil {
		return nil, err
	}
	return loaded, nil
}

// LoadWeight sums item weight times quantity and pallet weight over
// everything assigned to the load, across SubOuts.
func (s *Store) LoadWeight(ctx context.Context, loadID uint) (float64, error) {
	db := s.db.WithContext(ctx)

	var items []Item
	if err := db.Select("weight", "quantity").Where("load_id = ?", loadID).Find(&items).Error; err != nil {
		return 0, err
	}
	var pallets []Pallet
	if err := db.Select("weight").Where("load_id = ?", loadID).Find(&pallets).Error; err != nil {
		return 0, err
	}

	total := decimal.Zero
	for _, it := range items {
		if it.Weight != nil {
			total = total.Add(decimal.NewFromFloat(*it.Weight).Mul(decimal.NewFromInt(int64(it.Quantity))))
		}
	}
	for _, p := range pallets {
		if p.Weight != nil {
			total = total.Add(decimal.NewFromFloat(*p.Weight))
		}
	}
	return total.InexactFloat64(), nil
}

// AssignToLoad moves the picked items and pallets onto the load in one
// transaction. Rows already on a load are left where they are; the number
// of rows moved is returned.
func (s *Store) AssignToLoad(ctx context.Context, a loads.Assignment) (int64, error) {
	if _, err := s.GetLoad(ctx, a.LoadID); err != nil {
		return 0, err
	}
	if a.Empty() {
		return 0, nil
	}

	var moved int64
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if len(a.ItemIDs) > 0 {
			res := tx.Model(&Item{}).
				Where("id IN ? AND load_id IS NULL", a.ItemIDs).
				Update("load_id", a.LoadID)
			if res.Error != nil {
				return res.Error
			}
			moved += res.RowsAffected
		}
		if len(a.PalletIDs) > 0 {
			res := tx.Model(&Pallet{}).
				Where("id IN ? AND load_id IS NULL", a.PalletIDs).
				Update("load_id", a.LoadID)
			if res.Error != nil {
				return res.Error
			}
			moved += res.RowsAffected
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("failed to assign load %d: %w", a.LoadID, err)
	}
	s.log.WithFields(logrus.Fields{
		"module":  "store",
		"loadId":  a.LoadID,
		"items":   len(a.ItemIDs),
		"pallets": len(a.PalletIDs),
		"moved":   moved,
	}).Info("load assigned")
	return moved, nil
}

// UnassignFromLoad takes items and pallets off the load.
func (s *Store) UnassignFromLoad(ctx context.Context, a loads.Assignment) (int64, error) {
	var moved int64
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if len(a.ItemIDs) > 0 {
			res := tx.Model(&Item{}).Where("id IN ? AND load_id = ?", a.ItemIDs, a.LoadID).Update("load_id", nil)
			if res.Error != nil {
				return res.Error
			}
			moved += res.RowsAffected
		}
		if len(a.PalletIDs) > 0 {
			res := tx.Model(&Pallet{}).Where("id IN ? AND load_id = ?", a.PalletIDs, a.LoadID).Update("load_id", nil)
			if res.Error != nil {
				return res.Error
			}
			moved += res.RowsAffected
		}
		return nil
	})
	return moved, err
}
