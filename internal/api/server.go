// Package api exposes matching sessions, SubOut items and load assignment
// over HTTP.
package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/piwi3910/SubTrack/internal/config"
	"github.com/piwi3910/SubTrack/internal/matcher"
	"github.com/piwi3910/SubTrack/internal/store"
	"github.com/sirupsen/logrus"
)

// Server holds the dependencies of the HTTP handlers.
type Server struct {
	store     *store.Store
	matcher   *matcher.Service
	inventory matcher.Inventory
	cfg       config.Config
	log       *logrus.Logger
}

// NewServer wires the handlers to their dependencies.
func NewServer(st *store.Store, m *matcher.Service, inv matcher.Inventory, cfg config.Config, log *logrus.Logger) *Server {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Server{store: st, matcher: m, inventory: inv, cfg: cfg, log: log}
}

// Router builds the gin engine with middleware and routes.
func (s *Server) Router() *gin.Engine {
	r := gin.New()
	r.Use(requestID())
	r.Use(accessLog(s.log))
	r.Use(corsMiddleware(s.cfg.CORSOrigins))
	r.Use(gin.Recovery())

	r.GET("/healthz", s.healthz)

	so := r.Group("/suborders")
	{
		so.POST("", s.createSubOut)
		so.GET("/:id", s.getSubOut)
		so.GET("/:id/items", s.listItems)
		so.POST("/:id/items/bulk", s.bulkAddItems)
		so.POST("/:id/pallets", s.createPallet)
		so.POST("/:id/loads", s.createLoad)
		so.GET("/:id/cutplan.pdf", s.cutPlan)
		so.GET("/:id/tags.pdf", s.itemTags)

		so.POST("/:id/match", s.openMatch)
		so.GET("/:id/match", s.getMatch)
		so.PUT("/:id/match/selection", s.selectStick)
		so.POST("/:id/match/submit", s.submitMatch)
		so.DELETE("/:id/match", s.closeMatch)
	}

	ld := r.Group("/loads/:id")
	{
		ld.GET("/assignment", s.getAssignment)
		ld.POST("/assignment/preview", s.previewAssignment)
		ld.POST("/assignment", s.assign)
		ld.DELETE("/assignment", s.unassign)
	}

	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "route not found"})
	})
	return r
}

func (s *Server) healthz(c *gin.Context) {
	if err := s.store.Ping(c.Request.Context()); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
