package api

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/piwi3910/SubTrack/internal/engine"
	"github.com/piwi3910/SubTrack/internal/export"
	"github.com/piwi3910/SubTrack/internal/model"
	"github.com/piwi3910/SubTrack/internal/store"
)

type createSubOutRequest struct {
	Number    string `json:"number" binding:"required,max=50"`
	Vendor    string `json:"vendor" binding:"max=100"`
	JobNumber string `json:"jobNumber" binding:"max=50"`
}

func (s *Server) createSubOut(c *gin.Context) {
	var req createSubOutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	ctx := c.Request.Context()
	if _, err := s.store.FindSubOutByNumber(ctx, req.Number); err == nil {
		c.JSON(http.StatusConflict, gin.H{"error": fmt.Sprintf("suborder %s already exists", req.Number)})
		return
	} else if !errors.Is(err, store.ErrSubOutNotFound) {
		s.fail(c, "createSubOut", err)
		return
	}

	so := &store.SubOut{Number: req.Number, Vendor: req.Vendor, JobNumber: req.JobNumber}
	if err := s.store.CreateSubOut(ctx, so); err != nil {
		s.fail(c, "createSubOut", err)
		return
	}
	c.JSON(http.StatusCreated, so)
}

func (s *Server) getSubOut(c *gin.Context) {
	id, err := idParam(c, "id")
	if err != nil {
		s.fail(c, "getSubOut", err)
		return
	}
	so, err := s.store.GetSubOut(c.Request.Context(), id)
	if err != nil {
		s.fail(c, "getSubOut", err)
		return
	}
	c.JSON(http.StatusOK, so)
}

func (s *Server) listItems(c *gin.Context) {
	id, err := idParam(c, "id")
	if err != nil {
		s.fail(c, "listItems", err)
		return
	}
	items, err := s.store.ListSubOutItems(c.Request.Context(), id)
	if err != nil {
		s.fail(c, "listItems", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}

// bulkRequest carries the rows to add. Rows are validated one by one in the
// store so a bad row does not reject the batch.
type bulkRequest struct {
	Items []model.ItemRecord `json:"items" binding:"required,min=1"`
}

func (s *Server) bulkAddItems(c *gin.Context) {
	id, err := idParam(c, "id")
	if err != nil {
		s.fail(c, "bulkAddItems", err)
		return
	}
	var req bulkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	res, err := s.store.BulkAddItems(c.Request.Context(), id, req.Items)
	if err != nil {
		s.fail(c, "bulkAddItems", err)
		return
	}
	status := http.StatusCreated
	if res.Inserted == 0 {
		status = http.StatusUnprocessableEntity
	} else if len(res.Errors) > 0 {
		status = http.StatusMultiStatus
	}
	c.JSON(status, res)
}

type createPalletRequest struct {
	PalletNumber string   `json:"palletNumber" binding:"required,max=50"`
	Weight       *float64 `json:"weight" binding:"omitempty,gte=0"`
}

func (s *Server) createPallet(c *gin.Context) {
	id, err := idParam(c, "id")
	if err != nil {
		s.fail(c, "createPallet", err)
		return
	}
	var req createPalletRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	ctx := c.Request.Context()
	if _, err := s.store.GetSubOut(ctx, id); err != nil {
		s.fail(c, "createPallet", err)
		return
	}
	p := &store.Pallet{SubOutID: id, PalletNumber: req.PalletNumber, Weight: req.Weight}
	if err := s.store.CreatePallet(ctx, p); err != nil {
		s.fail(c, "createPallet", err)
		return
	}
	c.JSON(http.StatusCreated, p)
}

type createLoadRequest struct {
	LoadNumber string `json:"loadNumber" binding:"required,max=50"`
	Direction  string `json:"direction" binding:"omitempty,oneof=Outbound Inbound"`
}

func (s *Server) createLoad(c *gin.Context) {
	id, err := idParam(c, "id")
	if err != nil {
		s.fail(c, "createLoad", err)
		return
	}
	var req createLoadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	ctx := c.Request.Context()
	if _, err := s.store.GetSubOut(ctx, id); err != nil {
		s.fail(c, "createLoad", err)
		return
	}
	if req.Direction == "" {
		req.Direction = string(model.LoadOutbound)
	}
	l := &store.Load{SubOutID: id, LoadNumber: req.LoadNumber, Direction: req.Direction}
	if err := s.store.CreateLoad(ctx, l); err != nil {
		s.fail(c, "createLoad", err)
		return
	}
	c.JSON(http.StatusCreated, l)
}

// cutPlan renders the matches of the open session, or a fresh match against
// the current inventory when no session is open.
func (s *Server) cutPlan(c *gin.Context) {
	id, err := idParam(c, "id")
	if err != nil {
		s.fail(c, "cutPlan", err)
		return
	}
	ctx := c.Request.Context()
	so, err := s.store.GetSubOut(ctx, id)
	if err != nil {
		s.fail(c, "cutPlan", err)
		return
	}

	var matches []engine.Match
	if view, err := s.matcher.View(id); err == nil {
		matches = view.Matches
		if view.InventoryError != "" {
			c.Header("X-Inventory-Error", view.InventoryError)
		}
	} else {
		items, err := s.store.ListSubOutItems(ctx, id)
		if err != nil {
			s.fail(c, "cutPlan", err)
			return
		}
		inv, err := s.inventory.Get(ctx)
		if err != nil {
			c.Header("X-Inventory-Error", err.Error())
		}
		matches = engine.Plan(items, inv)
	}
	if len(matches) == 0 {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "suborder has no parts to plan"})
		return
	}

	var buf bytes.Buffer
	if err := export.WriteCutPlan(&buf, export.CutPlan{Title: so.Number, Matches: matches}); err != nil {
		s.fail(c, "cutPlan", err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="cutplan-%s.pdf"`, so.Number))
	c.Data(http.StatusOK, "application/pdf", buf.Bytes())
}

// itemTags prints one tag per piece, optionally limited to one send type.
func (s *Server) itemTags(c *gin.Context) {
	id, err := idParam(c, "id")
	if err != nil {
		s.fail(c, "itemTags", err)
		return
	}
	items, err := s.store.ListSubOutItems(c.Request.Context(), id)
	if err != nil {
		s.fail(c, "itemTags", err)
		return
	}
	if st := strings.TrimSpace(c.Query("sendType")); st != "" {
		filtered := items[:0]
		for _, it := range items {
			if strings.EqualFold(string(it.SendType), st) {
				filtered = append(filtered, it)
			}
		}
		items = filtered
	}
	if len(items) == 0 {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "no items to tag"})
		return
	}

	var buf bytes.Buffer
	if err := export.WriteTags(&buf, export.TagsFromItems(items)); err != nil {
		s.fail(c, "itemTags", err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="tags-%d.pdf"`, id))
	c.Data(http.StatusOK, "application/pdf", buf.Bytes())
}
