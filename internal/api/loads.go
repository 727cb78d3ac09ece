package api

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/piwi3910/SubTrack/internal/loads"
	"github.com/piwi3910/SubTrack/internal/model"
)

type assignmentRequest struct {
	ItemIDs   []uint `json:"itemIds"`
	PalletIDs []uint `json:"palletIds"`
}

type rejectedPicks struct {
	ItemIDs   []uint `json:"itemIds"`
	PalletIDs []uint `json:"palletIds"`
}

func (r rejectedPicks) empty() bool {
	return len(r.ItemIDs) == 0 && len(r.PalletIDs) == 0
}

type assignmentResponse struct {
	Load          model.Load         `json:"load"`
	Items         []loads.ItemView   `json:"items"`
	Pallets       []loads.PalletView `json:"pallets"`
	Capacity      loads.Capacity     `json:"capacity"`
	CapacityLabel string             `json:"capacityLabel"`
}

// newAssigner loads the candidates of a load and builds an assigner with the
// configured capacity.
func (s *Server) newAssigner(ctx context.Context, loadID uint) (*loads.Assigner, model.Load, error) {
	cands, err := s.store.LoadCandidates(ctx, loadID)
	if err != nil {
		return nil, model.Load{}, err
	}
	a := loads.NewAssigner(loadID, cands.CurrentWeight, cands.Items, cands.Pallets,
		loads.WithCapacity(s.cfg.Load.CapacityLbs),
		loads.WithWarnFraction(s.cfg.Load.WarnFraction),
		loads.WithLoadedBarcodes(cands.LoadedBarcodes...),
	)
	return a, cands.Load, nil
}

// pick selects the requested items and pallets. Items already selected
// through a barcode sibling are skipped so a sibling listed twice stays
// selected. IDs that cannot be picked are returned.
func pick(a *loads.Assigner, req assignmentRequest) rejectedPicks {
	var rejected rejectedPicks
	for _, id := range req.ItemIDs {
		if a.ItemSelected(id) {
			continue
		}
		if _, ok := a.ToggleItem(id); !ok {
			rejected.ItemIDs = append(rejected.ItemIDs, id)
		}
	}
	for _, id := range req.PalletIDs {
		if a.PalletSelected(id) {
			continue
		}
		if _, ok := a.TogglePallet(id); !ok {
			rejected.PalletIDs = append(rejected.PalletIDs, id)
		}
	}
	return rejected
}

func assignmentView(l model.Load, a *loads.Assigner) assignmentResponse {
	capacity := a.Capacity()
	return assignmentResponse{
		Load:          l,
		Items:         a.Items(),
		Pallets:       a.Pallets(),
		Capacity:      capacity,
		CapacityLabel: capacity.Label(),
	}
}

func (s *Server) getAssignment(c *gin.Context) {
	id, err := idParam(c, "id")
	if err != nil {
		s.fail(c, "getAssignment", err)
		return
	}
	a, l, err := s.newAssigner(c.Request.Context(), id)
	if err != nil {
		s.fail(c, "getAssignment", err)
		return
	}
	c.JSON(http.StatusOK, assignmentView(l, a))
}

// previewAssignment applies the picks without saving them and returns the
// projected capacity.
func (s *Server) previewAssignment(c *gin.Context) {
	id, err := idParam(c, "id")
	if err != nil {
		s.fail(c, "previewAssignment", err)
		return
	}
	var req assignmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	a, l, err := s.newAssigner(c.Request.Context(), id)
	if err != nil {
		s.fail(c, "previewAssignment", err)
		return
	}
	rejected := pick(a, req)
	c.JSON(http.StatusOK, gin.H{"assignment": assignmentView(l, a), "rejected": rejected})
}

// assign moves the picks onto the load. Nothing is saved when any pick is
// unavailable. Going over capacity is reported, not refused.
func (s *Server) assign(c *gin.Context) {
	id, err := idParam(c, "id")
	if err != nil {
		s.fail(c, "assign", err)
		return
	}
	var req assignmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	ctx := c.Request.Context()
	a, _, err := s.newAssigner(ctx, id)
	if err != nil {
		s.fail(c, "assign", err)
		return
	}
	if rejected := pick(a, req); !rejected.empty() {
		c.JSON(http.StatusConflict, gin.H{"error": "some picks are not available for this load", "rejected": rejected})
		return
	}
	commit := a.Commit()
	if commit.Empty() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "nothing selected"})
		return
	}
	capacity := a.Capacity()

	moved, err := s.store.AssignToLoad(ctx, commit)
	if err != nil {
		s.fail(c, "assign", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"moved":         moved,
		"assignment":    commit,
		"capacity":      capacity,
		"capacityLabel": capacity.Label(),
	})
}

func (s *Server) unassign(c *gin.Context) {
	id, err := idParam(c, "id")
	if err != nil {
		s.fail(c, "unassign", err)
		return
	}
	var req assignmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	ctx := c.Request.Context()
	if _, err := s.store.GetLoad(ctx, id); err != nil {
		s.fail(c, "unassign", err)
		return
	}
	moved, err := s.store.UnassignFromLoad(ctx, loads.Assignment{LoadID: id, ItemIDs: req.ItemIDs, PalletIDs: req.PalletIDs})
	if err != nil {
		s.fail(c, "unassign", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"moved": moved})
}
