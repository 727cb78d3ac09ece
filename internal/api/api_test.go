package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/piwi3910/SubTrack/internal/config"
	"github.com/piwi3910/SubTrack/internal/inventory"
	"github.com/piwi3910/SubTrack/internal/loads"
	"github.com/piwi3910/SubTrack/internal/matcher"
	"github.com/piwi3910/SubTrack/internal/model"
	"github.com/piwi3910/SubTrack/internal/selection"
	"github.com/piwi3910/SubTrack/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testEnv struct {
	store  *store.Store
	router *gin.Engine
}

func field(s string) inventory.Field {
	return inventory.Field{Text: s, Valid: true}
}

// stockRecords holds two 20' W8x31 sticks weighing 300 lbs each.
func stockRecords() inventory.StaticSource {
	stick := inventory.Record{
		Shape:      field("W"),
		Dimensions: field("8x31"),
		Grade:      field("A992"),
		Length:     field("240"),
		Weight:     inventory.Field{Text: "300", UOM: "lbs", Valid: true},
	}
	return inventory.StaticSource{stick, stick}
}

type failingSource struct{}

func (failingSource) Fetch(context.Context) ([]inventory.Record, error) {
	return nil, errors.New("connection refused")
}

func newTestEnv(t *testing.T, src inventory.Source, mutate func(*config.Config)) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)
	log := config.NewLogger("error", io.Discard)

	st, err := store.Open(config.DBConfig{Driver: "sqlite", Path: ":memory:"}, log)
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	cfg := config.DefaultConfig()
	if mutate != nil {
		mutate(&cfg)
	}
	cache := inventory.NewCache(src, time.Minute, log)
	svc := matcher.NewService(st, cache, selection.NewClockSequence(time.Now()), log)
	return &testEnv{store: st, router: NewServer(st, svc, cache, cfg, log).Router()}
}

func (e *testEnv) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		r = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, r)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

func (e *testEnv) seedSubOut(t *testing.T, number string, items ...model.SubOutItem) uint {
	t.Helper()
	so := &store.SubOut{Number: number, Vendor: "Acme Galvanizing"}
	require.NoError(t, e.store.CreateSubOut(context.Background(), so))
	if len(items) > 0 {
		res, err := e.store.AddItems(context.Background(), so.ID, items)
		require.NoError(t, err)
		require.Equal(t, len(items), res.Inserted)
	}
	return so.ID
}

func beamParts() []model.SubOutItem {
	return []model.SubOutItem{
		{Shape: "W", Dimension: "8x31", Grade: "A992", Length: "100", Quantity: 2, PieceMark: "b1", SendType: model.SendTypeCutToLength},
	}
}

func TestHealthz_RequestID(t *testing.T) {
	e := newTestEnv(t, stockRecords(), nil)

	w := e.do(t, http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Header().Get(RequestIDHeader))

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set(RequestIDHeader, "abc-123")
	w = httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	assert.Equal(t, "abc-123", w.Header().Get(RequestIDHeader))
}

func TestNoRoute(t *testing.T) {
	e := newTestEnv(t, stockRecords(), nil)
	w := e.do(t, http.MethodGet, "/nowhere", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.JSONEq(t, `{"error":"route not found"}`, w.Body.String())
}

func TestCORS_Preflight(t *testing.T) {
	e := newTestEnv(t, stockRecords(), nil)
	req := httptest.NewRequest(http.MethodOptions, "/healthz", nil)
	req.Header.Set("Origin", "http://shop.local")
	req.Header.Set("Access-Control-Request-Method", "GET")
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestCreateSubOut(t *testing.T) {
	e := newTestEnv(t, stockRecords(), nil)

	w := e.do(t, http.MethodPost, "/suborders", gin.H{"number": "SO-2001", "vendor": "Acme"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	so := decode[store.SubOut](t, w)
	assert.Equal(t, "SO-2001", so.Number)
	assert.NotZero(t, so.ID)

	w = e.do(t, http.MethodPost, "/suborders", gin.H{"number": "SO-2001"})
	assert.Equal(t, http.StatusConflict, w.Code)

	w = e.do(t, http.MethodPost, "/suborders", gin.H{"vendor": "Acme"})
	require.Equal(t, http.StatusBadRequest, w.Code)
	body := decode[map[string]any](t, w)
	assert.Equal(t, map[string]any{"Number": "required"}, body["fields"])

	w = e.do(t, http.MethodGet, "/suborders/999", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	w = e.do(t, http.MethodGet, "/suborders/abc", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestMatchFlow(t *testing.T) {
	e := newTestEnv(t, stockRecords(), nil)
	id := e.seedSubOut(t, "SO-2002", beamParts()...)

	w := e.do(t, http.MethodPost, "/suborders/1/match", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	view := decode[matcher.View](t, w)
	require.Len(t, view.Matches, 1)
	assert.True(t, view.Matches[0].HasInventory)
	require.Len(t, view.Matches[0].Sticks, 1)
	assert.Equal(t, 2, view.Matches[0].Sticks[0].Count)
	assert.Equal(t, 2, view.Matches[0].Plans[0].TotalFits)

	w = e.do(t, http.MethodPut, "/suborders/1/match/selection", gin.H{"group": 0, "stick": 0, "quantity": 5})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	view = decode[matcher.View](t, w)
	assert.Equal(t, 2, view.Summary.TotalSticks, "clamped to the sticks in stock")
	assert.Equal(t, "600", view.Summary.TotalWeight.String())

	w = e.do(t, http.MethodGet, "/suborders/1/match", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = e.do(t, http.MethodPost, "/suborders/1/match/submit", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	res := decode[matcher.SubmitResult](t, w)
	assert.Equal(t, 2, res.Items)
	assert.Equal(t, 2, res.Bulk.Inserted)
	assert.Empty(t, res.Bulk.Errors)

	// the session is gone once submitted
	w = e.do(t, http.MethodGet, "/suborders/1/match", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	w = e.do(t, http.MethodPost, "/suborders/1/match/submit", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	items, err := e.store.ListSubOutItems(context.Background(), id)
	require.NoError(t, err)
	require.Len(t, items, 3)
	raw := items[1]
	assert.Equal(t, model.SendTypeRaw, raw.SendType)
	assert.Equal(t, model.SourceTableInventory, raw.SourceTable)
	assert.Equal(t, `20' 0"`, raw.Length)
	assert.NotEqual(t, items[1].SourceID, items[2].SourceID)
}

func TestMatch_Errors(t *testing.T) {
	e := newTestEnv(t, stockRecords(), nil)
	e.seedSubOut(t, "SO-2003", beamParts()...)

	w := e.do(t, http.MethodPost, "/suborders/42/match", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = e.do(t, http.MethodPut, "/suborders/1/match/selection", gin.H{"group": 0, "stick": 0, "quantity": 1})
	assert.Equal(t, http.StatusNotFound, w.Code, "no session open")

	require.Equal(t, http.StatusOK, e.do(t, http.MethodPost, "/suborders/1/match", nil).Code)

	w = e.do(t, http.MethodPut, "/suborders/1/match/selection", gin.H{"group": 0, "stick": 0})
	assert.Equal(t, http.StatusBadRequest, w.Code, "quantity is required")

	w = e.do(t, http.MethodPut, "/suborders/1/match/selection", gin.H{"group": 0, "stick": 0, "quantity": -1})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = e.do(t, http.MethodPost, "/suborders/1/match/submit", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.JSONEq(t, `{"error":"no sticks selected"}`, w.Body.String())

	w = e.do(t, http.MethodDelete, "/suborders/1/match", nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
	w = e.do(t, http.MethodGet, "/suborders/1/match", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestMatch_InventoryUnreachable(t *testing.T) {
	e := newTestEnv(t, failingSource{}, nil)
	e.seedSubOut(t, "SO-2004", beamParts()...)

	w := e.do(t, http.MethodPost, "/suborders/1/match", nil)
	require.Equal(t, http.StatusOK, w.Code)
	view := decode[matcher.View](t, w)
	assert.Contains(t, view.InventoryError, "connection refused")
	require.Len(t, view.Matches, 1)
	assert.False(t, view.Matches[0].HasInventory)
}

func TestBulkAddItems(t *testing.T) {
	e := newTestEnv(t, stockRecords(), nil)
	e.seedSubOut(t, "SO-2005")

	good := model.ItemRecord{SourceTable: "Manual", SourceID: "1", Shape: "PL", Length: "12", Quantity: 1, SendType: model.SendTypeParts}
	bad := good
	bad.SourceID = "2"
	bad.SendType = "Truck"

	w := e.do(t, http.MethodPost, "/suborders/1/items/bulk", gin.H{"items": []model.ItemRecord{good, bad}})
	require.Equal(t, http.StatusMultiStatus, w.Code, w.Body.String())
	res := decode[store.BulkResult](t, w)
	assert.Equal(t, 1, res.Inserted)
	require.Len(t, res.Errors, 1)
	assert.Equal(t, 1, res.Errors[0].Index)

	w = e.do(t, http.MethodPost, "/suborders/1/items/bulk", gin.H{"items": []model.ItemRecord{good}})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code, "duplicate source")

	w = e.do(t, http.MethodPost, "/suborders/1/items/bulk", gin.H{"items": []model.ItemRecord{}})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = e.do(t, http.MethodPost, "/suborders/9/items/bulk", gin.H{"items": []model.ItemRecord{good}})
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = e.do(t, http.MethodGet, "/suborders/1/items", nil)
	require.Equal(t, http.StatusOK, w.Code)
	list := decode[struct {
		Items []model.SubOutItem `json:"items"`
	}](t, w)
	assert.Len(t, list.Items, 1)
}

func TestLoadAssignment(t *testing.T) {
	e := newTestEnv(t, stockRecords(), nil)
	e.seedSubOut(t, "SO-2006",
		model.SubOutItem{Shape: "W", Length: "100", Quantity: 2, Weight: model.Float(500), Barcode: "BC-1"},
		model.SubOutItem{Shape: "W", Length: "100", Quantity: 1, Weight: model.Float(250), Barcode: "BC-1"},
		model.SubOutItem{Shape: "W", Length: "50", Quantity: 1},
	)

	w := e.do(t, http.MethodPost, "/suborders/1/loads", gin.H{"loadNumber": "L1"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	load := decode[store.Load](t, w)
	assert.Equal(t, "Outbound", load.Direction)

	w = e.do(t, http.MethodPost, "/suborders/1/loads", gin.H{"loadNumber": "L2", "direction": "Sideways"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = e.do(t, http.MethodPost, "/suborders/1/pallets", gin.H{"palletNumber": "P1", "weight": 1200})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = e.do(t, http.MethodGet, "/loads/1/assignment", nil)
	require.Equal(t, http.StatusOK, w.Code)
	before := decode[assignmentResponse](t, w)
	require.Len(t, before.Items, 3)
	assert.Equal(t, loads.StatusAvailable, before.Items[0].Status)
	assert.Equal(t, "48,000 lbs remaining", before.CapacityLabel)

	w = e.do(t, http.MethodPost, "/loads/1/assignment/preview", gin.H{"itemIds": []uint{1}})
	require.Equal(t, http.StatusOK, w.Code)
	preview := decode[struct {
		Assignment assignmentResponse `json:"assignment"`
	}](t, w)
	assert.True(t, preview.Assignment.Items[1].Selected, "barcode sibling follows")
	assert.Equal(t, "1250", preview.Assignment.Capacity.Selected.String())

	// listing both siblings keeps them selected
	w = e.do(t, http.MethodPost, "/loads/1/assignment", gin.H{"itemIds": []uint{1, 2}, "palletIds": []uint{1}})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	done := decode[map[string]any](t, w)
	assert.EqualValues(t, 3, done["moved"])
	assert.Equal(t, "45,550 lbs remaining", done["capacityLabel"])

	w = e.do(t, http.MethodPost, "/loads/1/assignment", gin.H{"itemIds": []uint{1}})
	assert.Equal(t, http.StatusConflict, w.Code, "already on the load")

	w = e.do(t, http.MethodPost, "/loads/1/assignment", gin.H{})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = e.do(t, http.MethodGet, "/loads/1/assignment", nil)
	after := decode[assignmentResponse](t, w)
	assert.Equal(t, loads.StatusAssigned, after.Items[0].Status)
	assert.Equal(t, "2450", after.Capacity.Current.String())

	w = e.do(t, http.MethodDelete, "/loads/1/assignment", gin.H{"palletIds": []uint{1}})
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"moved":1}`, w.Body.String())

	w = e.do(t, http.MethodGet, "/loads/7/assignment", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestLoadAssignment_OverCapacity(t *testing.T) {
	e := newTestEnv(t, stockRecords(), func(c *config.Config) { c.Load.CapacityLbs = 1000 })
	e.seedSubOut(t, "SO-2007", model.SubOutItem{Shape: "W", Length: "100", Quantity: 3, Weight: model.Float(500)})
	require.Equal(t, http.StatusCreated, e.do(t, http.MethodPost, "/suborders/1/loads", gin.H{"loadNumber": "L1"}).Code)

	w := e.do(t, http.MethodPost, "/loads/1/assignment", gin.H{"itemIds": []uint{1}})
	require.Equal(t, http.StatusOK, w.Code, "over capacity is reported, not refused")
	body := decode[map[string]any](t, w)
	assert.Equal(t, "500 lbs over", body["capacityLabel"])
}

func TestCutPlanAndTags(t *testing.T) {
	e := newTestEnv(t, stockRecords(), nil)
	e.seedSubOut(t, "SO-2008", beamParts()...)
	e.seedSubOut(t, "SO-2009")

	w := e.do(t, http.MethodGet, "/suborders/1/cutplan.pdf", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "application/pdf", w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), "cutplan-SO-2008.pdf")
	assert.True(t, bytes.HasPrefix(w.Body.Bytes(), []byte("%PDF-")))

	w = e.do(t, http.MethodGet, "/suborders/2/cutplan.pdf", nil)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	w = e.do(t, http.MethodGet, "/suborders/3/cutplan.pdf", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = e.do(t, http.MethodGet, "/suborders/1/tags.pdf", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, bytes.HasPrefix(w.Body.Bytes(), []byte("%PDF-")))

	w = e.do(t, http.MethodGet, "/suborders/1/tags.pdf?sendType=Raw", nil)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
}
