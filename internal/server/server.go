// file: internal/server/server.go
// version: 2.0.0
// guid: 3f8b5d2e-9a4c-4e7f-b2d8-6c1a9f4e7b3d

package server

import (
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/pedramholi/iran-memorial/internal/database"
	"github.com/pedramholi/iran-memorial/internal/metrics"
	"github.com/pedramholi/iran-memorial/internal/pipeline"
	"github.com/pedramholi/iran-memorial/internal/search"
)

// Server exposes the operator review surface: the ambiguous-match queue,
// a dedup preview, record lookup, search, and Prometheus metrics. It
// never writes to the store; resolving the queue stays a CLI decision.
type Server struct {
	httpServer *http.Server
	router     *gin.Engine
	store      database.Store
	reviewPath string
}

// Config holds server configuration
type Config struct {
	Addr         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

// NewServer creates a new server instance over the given store. The
// review queue is read from reviewPath on each request.
func NewServer(store database.Store, reviewPath string) *Server {
	router := gin.Default()
	router.Use(gin.Recovery())
	router.Use(corsMiddleware())

	// Register metrics (idempotent)
	metrics.Register()

	s := &Server{
		router:     router,
		store:      store,
		reviewPath: reviewPath,
	}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.router.GET("/healthz", s.handleHealth)
	s.router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := s.router.Group("/api")
	{
		api.GET("/stats", s.handleStats)
		api.GET("/review", s.handleReview)
		api.GET("/dedup/preview", s.handleDedupPreview)
		api.GET("/victims/:slug", s.handleVictim)
		api.GET("/search", s.handleSearch)
	}
}

// Handler returns the underlying handler, for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start runs the server until SIGINT/SIGTERM, then shuts down.
func (s *Server) Start(cfg Config) error {
	if cfg.ReadTimeout == 0 {
		cfg.ReadTimeout = 15 * time.Second
	}
	if cfg.WriteTimeout == 0 {
		cfg.WriteTimeout = 30 * time.Second
	}
	if cfg.IdleTimeout == 0 {
		cfg.IdleTimeout = 60 * time.Second
	}

	s.httpServer = &http.Server{
		Addr:           cfg.Addr,
		Handler:        s.router,
		ReadTimeout:    cfg.ReadTimeout,
		WriteTimeout:   cfg.WriteTimeout,
		IdleTimeout:    cfg.IdleTimeout,
		MaxHeaderBytes: 1 << 20, // 1MB
	}

	errCh := make(chan error, 1)
	go func() {
		log.Printf("[INFO] server: listening on %s", s.httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return fmt.Errorf("server: %w", err)
	case <-quit:
	}

	log.Println("[INFO] server: shutting down")
	return s.httpServer.Close()
}

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

func (s *Server) handleHealth(c *gin.Context) {
	if _, err := s.store.CountVictims(); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "store unavailable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) handleStats(c *gin.Context) {
	count, err := s.store.CountVictims()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	review, err := pipeline.LoadReview(s.reviewPath)
	if err != nil {
		log.Printf("[WARN] server: review queue: %v", err)
	}
	metrics.SetVictims(count)
	metrics.SetReviewQueue(len(review))

	c.JSON(http.StatusOK, gin.H{
		"victims":      count,
		"review_queue": len(review),
	})
}

func (s *Server) handleReview(c *gin.Context) {
	items, err := pipeline.LoadReview(s.reviewPath)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if items == nil {
		items = []pipeline.ReviewItem{}
	}
	c.JSON(http.StatusOK, gin.H{"items": items, "count": len(items)})
}

func (s *Server) handleDedupPreview(c *gin.Context) {
	result, err := pipeline.RunDedup(s.store, pipeline.DedupOptions{})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"stats":  result.Stats,
		"merged": result.Merged,
		"review": result.Review,
	})
}

func (s *Server) handleVictim(c *gin.Context) {
	v, err := s.store.GetVictimBySlug(c.Param("slug"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if v == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return
	}

	srcs, err := s.store.GetVictimSources(v.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	photos, err := s.store.GetVictimPhotos(v.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"victim": v, "sources": srcs, "photos": photos})
}

func (s *Server) handleSearch(c *gin.Context) {
	q := c.Query("q")
	if q == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing q parameter"})
		return
	}

	victims, err := s.store.GetAllVictims()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	idx, err := search.Build(victims)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	defer idx.Close()

	hits, err := idx.Query(q, 20)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	type hitJSON struct {
		Slug      string  `json:"slug"`
		NameLatin string  `json:"name_latin"`
		Score     float64 `json:"score"`
	}
	out := make([]hitJSON, 0, len(hits))
	for _, h := range hits {
		out = append(out, hitJSON{Slug: h.Victim.Slug, NameLatin: h.Victim.NameLatin, Score: h.Score})
	}
	c.JSON(http.StatusOK, gin.H{"hits": out, "count": len(out)})
}
