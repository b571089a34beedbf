package server

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/gravitas-games/hexworld/internal/persistence/indexdb"
	"github.com/gravitas-games/hexworld/pkg/engine"
	"github.com/gravitas-games/hexworld/pkg/hex"
)

// router wires every HTTP route onto a gin engine
func (s *Server) router() *gin.Engine {
	gin.SetMode(s.config.Server.GinMode)
	r := gin.New()
	r.Use(gin.Recovery())

	r.GET("/health", s.healthHandler)
	r.GET("/maps", s.listMapsHandler)
	r.GET("/maps/:name", s.mapHandler)
	r.GET("/maps/:name/tiles/:q/:r", s.tileHandler)
	r.GET("/tile-types", s.tileTypesHandler)

	if s.catalog != nil {
		idx := r.Group("/index")
		idx.GET("/maps", s.indexMapsHandler)
		idx.GET("/snapshots", s.indexSnapshotsHandler)
		idx.GET("/snapshots/latest", s.latestSnapshotHandler)
	}

	r.GET("/ws", func(c *gin.Context) {
		s.handleWebSocket(c.Writer, c.Request)
	})

	return r
}

func (s *Server) healthHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"session": s.session.GetStatus(),
	})
}

func (s *Server) listMapsHandler(c *gin.Context) {
	eng := s.pump.Engine()
	maps := make([]engine.MapInfo, 0)
	for _, name := range eng.MapNames() {
		info, err := eng.Map(name)
		if err != nil {
			// removed between the two calls
			continue
		}
		maps = append(maps, info)
	}
	c.JSON(http.StatusOK, maps)
}

func (s *Server) mapHandler(c *gin.Context) {
	payload, err := s.mapData(c.Param("name"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, payload)
}

func (s *Server) tileHandler(c *gin.Context) {
	q, errQ := strconv.Atoi(c.Param("q"))
	r, errR := strconv.Atoi(c.Param("r"))
	if errQ != nil || errR != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "q and r must be integers"})
		return
	}
	info, err := s.pump.Engine().TileAt(c.Param("name"), hex.Axial{Q: q, R: r})
	switch {
	case errors.Is(err, engine.ErrMapNotFound), errors.Is(err, engine.ErrOffMap):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case err != nil:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusOK, info)
	}
}

func (s *Server) tileTypesHandler(c *gin.Context) {
	c.JSON(http.StatusOK, s.pump.Engine().TileTypes().Types())
}

func (s *Server) indexMapsHandler(c *gin.Context) {
	rows, err := s.catalog.Maps(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if rows == nil {
		rows = []indexdb.MapRow{}
	}
	c.JSON(http.StatusOK, rows)
}

func (s *Server) indexSnapshotsHandler(c *gin.Context) {
	rows, err := s.catalog.Snapshots(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if rows == nil {
		rows = []indexdb.SnapshotRow{}
	}
	c.JSON(http.StatusOK, rows)
}

func (s *Server) latestSnapshotHandler(c *gin.Context) {
	row, ok, err := s.catalog.LatestSnapshot(c.Request.Context())
	switch {
	case err != nil:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	case !ok:
		c.JSON(http.StatusNotFound, gin.H{"error": "no snapshot recorded"})
	default:
		c.JSON(http.StatusOK, row)
	}
}
