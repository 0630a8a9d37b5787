// Package server exposes the REST surface and mounts the JSON-RPC front
// door. Handlers are stateless: every request embeds at most one query
// and runs at most one storage call, then all per-request state is gone.
package server

import (
	"fmt"
	"net/http"
	"sort"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"spec-search/internal/config"
	"spec-search/internal/mcp"
	"spec-search/internal/models"
	"spec-search/internal/search"
)

type Server struct {
	cfg *config.ServerConfig
	svc *search.Service
	rpc *mcp.Handler
}

func New(cfg *config.ServerConfig, svc *search.Service, rpc *mcp.Handler) *Server {
	return &Server{cfg: cfg, svc: svc, rpc: rpc}
}

// Router builds the gin engine. CORS headers are only granted to origins
// on the allow-list; everyone else gets a response without them.
func (s *Server) Router() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(s.corsMiddleware())

	router.GET("/health", s.handleHealth)
	router.POST("/search", s.handleSearch)
	router.GET("/section", s.handleSection)
	router.GET("/stats", s.handleStats)
	router.POST("/mcp", s.rpc.Handle)

	return router
}

func (s *Server) Run() error {
	addr := fmt.Sprintf(":%d", s.cfg.Port)
	log.Info().Str("addr", addr).Msg("starting server")
	return s.Router().Run(addr)
}

// corsMiddleware grants CORS headers only to allow-listed origins.
// Requests from other origins are still served, just without the
// headers; the browser does the blocking.
func (s *Server) corsMiddleware() gin.HandlerFunc {
	allowed := make(map[string]bool, len(s.cfg.AllowedOrigins))
	for _, origin := range s.cfg.AllowedOrigins {
		allowed[origin] = true
	}
	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")
		if allowed[origin] {
			c.Header("Access-Control-Allow-Origin", origin)
			c.Header("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			c.Header("Access-Control-Allow-Headers", "Content-Type, Authorization")
			c.Header("Vary", "Origin")
		}
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

type searchRequest struct {
	Query string `json:"query"`
	Part  int    `json:"part"`
	Limit int    `json:"limit"`
}

func (s *Server) handleSearch(c *gin.Context) {
	var req searchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
		return
	}
	if req.Query == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "query is required"})
		return
	}

	limit := req.Limit
	if limit <= 0 {
		limit = models.DefaultSearchLimit
	}
	if limit > models.MaxSearchLimit {
		limit = models.MaxSearchLimit
	}

	results, err := s.svc.Search(c.Request.Context(), req.Query, models.SearchFilter{
		Part:  req.Part,
		Limit: limit,
	})
	if err != nil {
		log.Error().Err(err).Str("query", req.Query).Msg("search failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if results == nil {
		results = []models.SearchResult{}
	}
	c.JSON(http.StatusOK, gin.H{"query": req.Query, "results": results})
}

func (s *Server) handleSection(c *gin.Context) {
	sectionID := c.Query("id")
	if sectionID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "id parameter is required"})
		return
	}
	part := 0
	if p := c.Query("part"); p != "" {
		parsed, err := strconv.Atoi(p)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "part must be a number"})
			return
		}
		part = parsed
	}

	results, err := s.svc.GetSection(c.Request.Context(), sectionID, part)
	if err != nil {
		log.Error().Err(err).Str("section", sectionID).Msg("section lookup failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if results == nil {
		results = []models.SearchResult{}
	}
	c.JSON(http.StatusOK, gin.H{"sectionId": sectionID, "part": part, "results": results})
}

func (s *Server) handleStats(c *gin.Context) {
	stats, err := s.svc.Stats(c.Request.Context())
	if err != nil {
		log.Error().Err(err).Msg("stats failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	parts := make([]int, 0, len(stats.ByPart))
	for part := range stats.ByPart {
		parts = append(parts, part)
	}
	sort.Ints(parts)

	c.JSON(http.StatusOK, gin.H{
		"total":    stats.Total,
		"byPart":   stats.ByPart,
		"embedded": stats.Embedded,
		"parts":    parts,
	})
}
