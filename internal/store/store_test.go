package store

import (
	"context"
	"io"
	"testing"

	"github.com/piwi3910/SubTrack/internal/config"
	"github.com/piwi3910/SubTrack/internal/loads"
	"github.com/piwi3910/SubTrack/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(config.DBConfig{Driver: "sqlite", Path: ":memory:"}, config.NewLogger("error", io.Discard))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func seedSubOut(t *testing.T, s *Store, number string) *SubOut {
	t.Helper()
	so := &SubOut{Number: number, Vendor: "Acme Galvanizing"}
	require.NoError(t, s.CreateSubOut(context.Background(), so))
	return so
}

func rawRecord(sourceID string) model.ItemRecord {
	return model.ItemRecord{
		SourceTable: model.SourceTableInventory,
		SourceID:    sourceID,
		Shape:       "W",
		Dimension:   "8x31",
		Grade:       "A992",
		Length:      `20' 0"`,
		Quantity:    1,
		Weight:      model.Float(300),
		SendType:    model.SendTypeRaw,
	}
}

func TestOpen_UnsupportedDriver(t *testing.T) {
	_, err := Open(config.DBConfig{Driver: "oracle"}, nil)
	assert.Error(t, err)
}

func TestSubOutLookup(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	so := seedSubOut(t, s, "SO-1001")

	got, err := s.GetSubOut(ctx, so.ID)
	require.NoError(t, err)
	assert.Equal(t, "SO-1001", got.Number)

	got, err = s.FindSubOutByNumber(ctx, "SO-1001")
	require.NoError(t, err)
	assert.Equal(t, so.ID, got.ID)

	_, err = s.GetSubOut(ctx, 999)
	assert.ErrorIs(t, err, ErrSubOutNotFound)
	_, err = s.FindSubOutByNumber(ctx, "missing")
	assert.ErrorIs(t, err, ErrSubOutNotFound)
	require.NoError(t, s.Ping(ctx))
}

func TestBulkAddItems_PartialSuccess(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	so := seedSubOut(t, s, "SO-1002")

	res, err := s.BulkAddItems(ctx, so.ID, []model.ItemRecord{rawRecord("100"), rawRecord("101")})
	require.NoError(t, err)
	assert.Equal(t, 2, res.Inserted)
	assert.Empty(t, res.Errors)

	bad := rawRecord("103")
	bad.SendType = "Truck"
	noShape := rawRecord("104")
	noShape.Shape = ""

	res, err = s.BulkAddItems(ctx, so.ID, []model.ItemRecord{
		rawRecord("101"), // duplicate of an earlier batch
		rawRecord("102"),
		rawRecord("102"), // duplicate within this batch
		bad,
		noShape,
	})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Inserted)
	require.Len(t, res.Errors, 4)
	assert.Equal(t, 0, res.Errors[0].Index)
	assert.Equal(t, "101", res.Errors[0].SourceID)
	assert.Contains(t, res.Errors[0].Error, ErrDuplicateSource.Error())
	assert.Equal(t, 2, res.Errors[1].Index)
	assert.Equal(t, 3, res.Errors[2].Index)
	assert.Equal(t, 4, res.Errors[3].Index)

	items, err := s.ListSubOutItems(ctx, so.ID)
	require.NoError(t, err)
	require.Len(t, items, 3)
	assert.Equal(t, "100", items[0].SourceID)
	assert.Equal(t, model.SendTypeRaw, items[0].SendType)
	require.NotNil(t, items[0].Weight)
	assert.Equal(t, 300.0, *items[0].Weight)
}

func TestBulkAddItems_UnknownSubOut(t *testing.T) {
	s := newTestStore(t)
	_, err := s.BulkAddItems(context.Background(), 42, []model.ItemRecord{rawRecord("1")})
	assert.ErrorIs(t, err, ErrSubOutNotFound)

	_, err = s.ListSubOutItems(context.Background(), 42)
	assert.ErrorIs(t, err, ErrSubOutNotFound)
}

func TestAddItems_KeepsNilAndZeroWeight(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	so := seedSubOut(t, s, "SO-1003")

	res, err := s.AddItems(ctx, so.ID, []model.SubOutItem{
		{Shape: "L", Grade: "A36", Length: "30", Quantity: 4, PieceMark: "a1"},
		{Shape: "L", Grade: "A36", Length: "60", PieceMark: "a2", Weight: model.Float(0)},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, res.Inserted)

	items, err := s.ListSubOutItems(ctx, so.ID)
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Nil(t, items[0].Weight)
	require.NotNil(t, items[1].Weight)
	assert.Zero(t, *items[1].Weight)
	assert.Equal(t, 1, items[1].Quantity, "missing quantity defaults to one")
}

func TestCreateItem_UniqueSource(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	so := seedSubOut(t, s, "SO-1005")

	// rows written straight through createItem skip the lookup in insertItem
	first := itemFromModel(so.ID, model.SubOutItem{Shape: "W", Length: "240", SourceTable: model.SourceTableInventory, SourceID: "500"})
	require.NoError(t, s.createItem(ctx, &first))
	again := itemFromModel(so.ID, model.SubOutItem{Shape: "W", Length: "240", SourceTable: model.SourceTableInventory, SourceID: "500"})
	err := s.createItem(ctx, &again)
	assert.ErrorIs(t, err, ErrDuplicateSource)

	// parts without a source row never collide
	for i := 0; i < 2; i++ {
		row := itemFromModel(so.ID, model.SubOutItem{Shape: "L", Length: "30"})
		require.NoError(t, s.createItem(ctx, &row))
		assert.Nil(t, row.SourceID)
	}

	items, err := s.ListSubOutItems(ctx, so.ID)
	require.NoError(t, err)
	require.Len(t, items, 3)
	assert.Equal(t, "500", items[0].SourceID)
	assert.Empty(t, items[1].SourceID)
}

func TestLoadCandidates_BarcodeLoadedByAnotherSubOut(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	first := seedSubOut(t, s, "SO-2001")
	second := seedSubOut(t, s, "SO-2002")

	_, err := s.AddItems(ctx, first.ID, []model.SubOutItem{
		{Shape: "W", Length: "100", Quantity: 1, Weight: model.Float(400), Barcode: "BC-9"},
	})
	require.NoError(t, err)
	_, err = s.AddItems(ctx, second.ID, []model.SubOutItem{
		{Shape: "W", Length: "100", Quantity: 1, Weight: model.Float(400), Barcode: "BC-9"},
		{Shape: "W", Length: "50", Quantity: 1, Barcode: "BC-10"},
	})
	require.NoError(t, err)

	firstLoad := &Load{SubOutID: first.ID, LoadNumber: "L1", Direction: string(model.LoadOutbound)}
	require.NoError(t, s.CreateLoad(ctx, firstLoad))
	secondLoad := &Load{SubOutID: second.ID, LoadNumber: "L2", Direction: string(model.LoadOutbound)}
	require.NoError(t, s.CreateLoad(ctx, secondLoad))

	firstItems, err := s.ListSubOutItems(ctx, first.ID)
	require.NoError(t, err)
	_, err = s.AssignToLoad(ctx, loads.Assignment{LoadID: firstLoad.ID, ItemIDs: []uint{firstItems[0].ID}})
	require.NoError(t, err)

	cand, err := s.LoadCandidates(ctx, secondLoad.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"BC-9"}, cand.LoadedBarcodes)

	a := loads.NewAssigner(secondLoad.ID, cand.CurrentWeight, cand.Items, cand.Pallets, loads.WithLoadedBarcodes(cand.LoadedBarcodes...))
	assert.Equal(t, loads.StatusUnavailable, a.ItemStatus(cand.Items[0]))
	assert.Equal(t, loads.StatusAvailable, a.ItemStatus(cand.Items[1]))

	// the first SubOut's own load sees nothing loaded elsewhere
	cand, err = s.LoadCandidates(ctx, firstLoad.ID)
	require.NoError(t, err)
	assert.Empty(t, cand.LoadedBarcodes)
}

func TestLoadAssignment(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	so := seedSubOut(t, s, "SO-1004")

	_, err := s.AddItems(ctx, so.ID, []model.SubOutItem{
		{Shape: "W", Length: "100", Quantity: 2, Weight: model.Float(500), Barcode: "BC-1"},
		{Shape: "W", Length: "100", Quantity: 1, Weight: model.Float(250), Barcode: "BC-1"},
		{Shape: "W", Length: "50", Quantity: 1},
	})
	require.NoError(t, err)
	pallet := &Pallet{SubOutID: so.ID, PalletNumber: "P1", Weight: model.Float(1200)}
	require.NoError(t, s.CreatePallet(ctx, pallet))
	load := &Load{SubOutID: so.ID, LoadNumber: "L1", Direction: string(model.LoadOutbound)}
	require.NoError(t, s.CreateLoad(ctx, load))

	cand, err := s.LoadCandidates(ctx, load.ID)
	require.NoError(t, err)
	assert.Equal(t, "L1", cand.Load.LoadNumber)
	assert.Len(t, cand.Items, 3)
	assert.Len(t, cand.Pallets, 1)
	assert.Zero(t, cand.CurrentWeight)

	a := loads.NewAssigner(load.ID, cand.CurrentWeight, cand.Items, cand.Pallets)
	_, ok := a.ToggleItem(cand.Items[0].ID)
	require.True(t, ok)
	_, ok = a.TogglePallet(pallet.ID)
	require.True(t, ok)

	moved, err := s.AssignToLoad(ctx, a.Commit())
	require.NoError(t, err)
	assert.Equal(t, int64(3), moved, "two barcode siblings and one pallet")

	weight, err := s.LoadWeight(ctx, load.ID)
	require.NoError(t, err)
	assert.InDelta(t, 2*500+250+1200, weight, 1e-9)

	// a second commit of the same picks moves nothing
	moved, err = s.AssignToLoad(ctx, a.Commit())
	require.NoError(t, err)
	assert.Zero(t, moved)

	cand, err = s.LoadCandidates(ctx, load.ID)
	require.NoError(t, err)
	assert.InDelta(t, 2450, cand.CurrentWeight, 1e-9)
	require.NotNil(t, cand.Items[0].LoadID)
	assert.Equal(t, load.ID, *cand.Items[0].LoadID)
	assert.Nil(t, cand.Items[2].LoadID)

	moved, err = s.UnassignFromLoad(ctx, loads.Assignment{LoadID: load.ID, PalletIDs: []uint{pallet.ID}})
	require.NoError(t, err)
	assert.Equal(t, int64(1), moved)
	weight, err = s.LoadWeight(ctx, load.ID)
	require.NoError(t, err)
	assert.InDelta(t, 1250, weight, 1e-9)
}

func TestAssignToLoad_UnknownLoad(t *testing.T) {
	s := newTestStore(t)
	_, err := s.AssignToLoad(context.Background(), loads.Assignment{LoadID: 5, ItemIDs: []uint{1}})
	assert.ErrorIs(t, err, ErrLoadNotFound)
	_, err = s.LoadCandidates(context.Background(), 5)
	assert.ErrorIs(t, err, ErrLoadNotFound)
}

func TestRedisSequence_FallsBackWithoutClient(t *testing.T) {
	seq := NewRedisSequence(nil, "")
	a, err := seq.Next(context.Background())
	require.NoError(t, err)
	b, err := seq.Next(context.Background())
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}
