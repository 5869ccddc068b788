package api

import (
	"crypto/subtle"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/newsfold/newsfold/internal/archive"
	"github.com/newsfold/newsfold/internal/storage"
)

// Server exposes the read and ops endpoints over the archive pipeline and
// the DB-backed sink.
type Server struct {
	cache      *archive.Cache
	store      *archive.Store
	sink       *storage.Store
	adminToken string
}

func NewServer(cache *archive.Cache, store *archive.Store, sink *storage.Store, adminToken string) *Server {
	return &Server{cache: cache, store: store, sink: sink, adminToken: adminToken}
}

func (s *Server) RegisterRoutes(r *gin.Engine) {
	r.GET("/health", s.health)

	r.GET("/news", s.getNews)
	r.POST("/refresh", s.adminGate(), s.refresh)
	r.GET("/archive-status", s.archiveStatus)

	if s.sink != nil {
		r.GET("/articles", s.listArticles)
	}
}

// CORSMiddleware sets the configured allow-origin on every response and
// short-circuits preflight requests.
func CORSMiddleware(allowOrigin string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", allowOrigin)
		c.Header("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type, X-Admin-Token")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

// adminGate checks the static shared secret on ops endpoints. Not a
// credential system; it only keeps casual traffic off /refresh.
func (s *Server) adminGate() gin.HandlerFunc {
	token := []byte(s.adminToken)
	return func(c *gin.Context) {
		if len(token) == 0 {
			c.Next()
			return
		}
		got := []byte(c.GetHeader("X-Admin-Token"))
		if subtle.ConstantTimeCompare(got, token) != 1 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"success": false, "error": "unauthorized"})
			return
		}
		c.Next()
	}
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// getNews serves a page of the cached archive snapshot.
// Query: page, pageSize, force=1, fresh=1, recentDays.
func (s *Server) getNews(c *gin.Context) {
	q := archive.PageQuery{
		Page:      intQuery(c, "page", 1),
		PageSize:  intQuery(c, "pageSize", 20),
		Force:     c.Query("force") == "1",
		FreshOnly: c.Query("fresh") == "1",
	}
	if d := intQuery(c, "recentDays", 0); d > 0 {
		q.RecentDays = d
	}

	res, err := s.cache.GetPage(c.Request.Context(), q)
	if err != nil {
		// Only a first-run total failure reaches the user: every provider
		// failed and there was no archived data to fall back on.
		if errors.Is(err, archive.ErrNoData) {
			c.JSON(http.StatusBadGateway, gin.H{"success": false, "error": "all providers failed"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "internal server error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":  true,
		"total":    res.Total,
		"articles": res.Articles,
	})
}

// refresh triggers an immediate ingestion merge regardless of cache TTL.
func (s *Server) refresh(c *gin.Context) {
	res, err := s.cache.Refresh(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{
			"success": false,
			"errors":  res.Errors,
		})
		return
	}
	errs := res.Errors
	if errs == nil {
		errs = []string{}
	}
	c.JSON(http.StatusOK, gin.H{
		"success":  true,
		"newItems": res.NewCount,
		"total":    res.Total,
		"errors":   errs,
	})
}

// archiveStatus lists the persisted snapshot with item count and mtime.
func (s *Server) archiveStatus(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"success":  true,
		"archives": []archive.Status{s.store.Status()},
	})
}

// listArticles reads the DB-backed sink (cron ingestion path).
func (s *Server) listArticles(c *gin.Context) {
	category := c.Query("category")
	list, err := s.sink.ListArticles(category, intQuery(c, "page", 1), intQuery(c, "pageSize", 20))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "internal server error"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "total": len(list), "articles": list})
}

func intQuery(c *gin.Context, key string, def int) int {
	v, err := strconv.Atoi(c.DefaultQuery(key, strconv.Itoa(def)))
	if err != nil {
		return def
	}
	return v
}
