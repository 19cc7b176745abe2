// Package server exposes the live dashboard: an embedded single-page view
// of the entry stream plus health, stats, and profiling endpoints.
package server

import (
	"embed"
	"io/fs"
	"net/http"
	"net/http/pprof"

	"github.com/gin-gonic/gin"

	"github.com/alexsavio/cor-cli/internal/hub"
	"github.com/alexsavio/cor-cli/internal/stats"
)

//go:embed all:web
var webFS embed.FS

// Server wires the Gin engine to the hub and stats collector.
type Server struct {
	engine *gin.Engine
	hub    *hub.Hub
	stats  *stats.Collector
	port   string
}

// New builds the dashboard server on the given port.
func New(h *hub.Hub, st *stats.Collector, port string) *Server {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery())

	engine.RedirectTrailingSlash = false
	engine.RedirectFixedPath = false

	s := &Server{
		engine: engine,
		hub:    h,
		stats:  st,
		port:   port,
	}

	s.routes()
	return s
}

// serveEmbedded serves one pre-read file from the embedded web/ tree.
func serveEmbedded(content fs.FS, name, contentType string) gin.HandlerFunc {
	data, err := fs.ReadFile(content, name)
	return func(c *gin.Context) {
		if err != nil {
			c.String(http.StatusNotFound, "file not found: %s", name)
			return
		}
		c.Data(http.StatusOK, contentType, data)
	}
}

func (s *Server) routes() {
	webContent, _ := fs.Sub(webFS, "web")

	s.engine.GET("/", serveEmbedded(webContent, "index.html", "text/html; charset=utf-8"))

	s.engine.GET("/healthz", func(c *gin.Context) {
		snap := s.stats.Snapshot()
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"uptime":  snap.Uptime,
			"lps":     snap.LPS,
			"dropped": snap.Dropped,
			"sources": snap.Sources,
		})
	})

	s.engine.GET("/api/stats", func(c *gin.Context) {
		c.JSON(http.StatusOK, s.stats.Snapshot())
	})

	s.engine.GET("/ws", s.handleWebSocket)

	s.engine.GET("/debug/pprof/", gin.WrapF(pprof.Index))
	s.engine.GET("/debug/pprof/cmdline", gin.WrapF(pprof.Cmdline))
	s.engine.GET("/debug/pprof/profile", gin.WrapF(pprof.Profile))
	s.engine.GET("/debug/pprof/symbol", gin.WrapF(pprof.Symbol))
	s.engine.GET("/debug/pprof/trace", gin.WrapF(pprof.Trace))
	s.engine.GET("/debug/pprof/allocs", gin.WrapH(pprof.Handler("allocs")))
	s.engine.GET("/debug/pprof/heap", gin.WrapH(pprof.Handler("heap")))
	s.engine.GET("/debug/pprof/goroutine", gin.WrapH(pprof.Handler("goroutine")))
}

// Start runs the HTTP server. Blocks until the server stops.
func (s *Server) Start() error {
	return s.engine.Run(":" + s.port)
}
