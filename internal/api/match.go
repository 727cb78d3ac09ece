package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/piwi3910/SubTrack/internal/selection"
)

func (s *Server) openMatch(c *gin.Context) {
	id, err := idParam(c, "id")
	if err != nil {
		s.fail(c, "openMatch", err)
		return
	}
	view, err := s.matcher.Open(c.Request.Context(), id)
	if err != nil {
		s.fail(c, "openMatch", err)
		return
	}
	c.JSON(http.StatusOK, view)
}

func (s *Server) getMatch(c *gin.Context) {
	id, err := idParam(c, "id")
	if err != nil {
		s.fail(c, "getMatch", err)
		return
	}
	view, err := s.matcher.View(id)
	if err != nil {
		s.fail(c, "getMatch", err)
		return
	}
	c.JSON(http.StatusOK, view)
}

type selectRequest struct {
	Group    *int `json:"group" binding:"required,gte=0"`
	Stick    *int `json:"stick" binding:"required,gte=0"`
	Quantity *int `json:"quantity" binding:"required,gte=0"`
}

// selectStick sets the picked quantity of one candidate stick. Quantities
// above the sticks in stock are clamped, not rejected.
func (s *Server) selectStick(c *gin.Context) {
	id, err := idParam(c, "id")
	if err != nil {
		s.fail(c, "selectStick", err)
		return
	}
	var req selectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	key := selection.Key{Group: *req.Group, Stick: *req.Stick}
	view, err := s.matcher.Select(id, key, *req.Quantity)
	if err != nil {
		s.fail(c, "selectStick", err)
		return
	}
	c.JSON(http.StatusOK, view)
}

func (s *Server) submitMatch(c *gin.Context) {
	id, err := idParam(c, "id")
	if err != nil {
		s.fail(c, "submitMatch", err)
		return
	}
	res, err := s.matcher.Submit(c.Request.Context(), id)
	if err != nil {
		s.fail(c, "submitMatch", err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (s *Server) closeMatch(c *gin.Context) {
	id, err := idParam(c, "id")
	if err != nil {
		s.fail(c, "closeMatch", err)
		return
	}
	s.matcher.Close(id)
	c.Status(http.StatusNoContent)
}
