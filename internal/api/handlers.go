package api

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	customerrors "github.com/axellelanca/shortlink/internal/errors"
	"github.com/axellelanca/shortlink/internal/models"
	"github.com/axellelanca/shortlink/internal/stats"
)

const healthTimeout = 2 * time.Second

// StatusClientClosedRequest is returned when the caller went away before the
// request completed. net/http has no constant for it.
const StatusClientClosedRequest = 499

// LinkService is the part of services.LinkService the HTTP layer uses.
type LinkService interface {
	Create(ctx context.Context, longURL string, expireSeconds *int64) (*models.Link, error)
	Resolve(ctx context.Context, alias string) (string, error)
	Stats() stats.Snapshot
	CountLinks(ctx context.Context) (int64, error)
	PingStore(ctx context.Context) error
	PingCache(ctx context.Context) error
}

// Options carries what the routes need besides the service.
type Options struct {
	BaseURL string
	// Metrics serves /metrics when set.
	Metrics http.Handler
	// CacheEnabled is false when the cache driver is "none".
	CacheEnabled bool
	Logger       *zap.Logger
}

// SetupRoutes configures all Gin API routes and injects necessary dependencies
func SetupRoutes(router *gin.Engine, linkService LinkService, opts Options) {
	h := &handlers{linkService: linkService, opts: opts}

	router.GET("/health", h.health)
	if opts.Metrics != nil {
		router.GET("/metrics", gin.WrapH(opts.Metrics))
	}

	router.POST("/create", h.create)
	router.GET("/u/:alias", h.redirect)

	api := router.Group("/api/v1")
	{
		api.GET("/stats", h.stats)
	}
}

type handlers struct {
	linkService LinkService
	opts        Options
}

// CreateLinkRequest is the body of POST /create. Expire is in seconds; zero
// or absent means the link never expires.
type CreateLinkRequest struct {
	URL    string `json:"url"`
	Expire *int64 `json:"expire"`
}

type CreateLinkResponse struct {
	Alias    string     `json:"alias"`
	URL      string     `json:"url"`
	ID       uint64     `json:"id"`
	ShortURL string     `json:"short_url"`
	ExpireAt *time.Time `json:"expire_at,omitempty"`
}

func (h *handlers) create(c *gin.Context) {
	var req CreateLinkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body: " + err.Error()})
		return
	}
	if strings.TrimSpace(req.URL) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "url is required"})
		return
	}

	link, err := h.linkService.Create(c.Request.Context(), req.URL, req.Expire)
	if err != nil {
		h.fail(c, "create", err)
		return
	}
	c.JSON(http.StatusOK, CreateLinkResponse{
		Alias:    link.Alias,
		URL:      link.URL,
		ID:       link.ID,
		ShortURL: strings.TrimRight(h.opts.BaseURL, "/") + "/u/" + link.Alias,
		ExpireAt: link.ExpireAt,
	})
}

func (h *handlers) redirect(c *gin.Context) {
	alias := c.Param("alias")
	url, err := h.linkService.Resolve(c.Request.Context(), alias)
	if err != nil {
		h.fail(c, "resolve", err)
		return
	}
	c.Redirect(http.StatusFound, url)
}

func (h *handlers) stats(c *gin.Context) {
	snapshot := h.linkService.Stats()
	links, err := h.linkService.CountLinks(c.Request.Context())
	if err != nil {
		h.fail(c, "stats", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"create_total":   snapshot.CreateTotal,
		"resolve_total":  snapshot.ResolveTotal,
		"uptime_seconds": int64(snapshot.Uptime.Seconds()),
		"links":          links,
	})
}

// health pings the store and the cache concurrently. Only the store decides
// the status code; a broken cache degrades latency, not correctness.
func (h *handlers) health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), healthTimeout)
	defer cancel()

	var storeErr, cacheErr error
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		storeErr = h.linkService.PingStore(gctx)
		return nil
	})
	if h.opts.CacheEnabled {
		g.Go(func() error {
			cacheErr = h.linkService.PingCache(gctx)
			return nil
		})
	}
	_ = g.Wait()

	body := gin.H{"status": "healthy", "database": "connected", "cache": "connected"}
	if !h.opts.CacheEnabled {
		body["cache"] = "disabled"
	} else if cacheErr != nil {
		body["status"] = "degraded"
		body["cache"] = "disconnected"
	}
	if storeErr != nil {
		body["status"] = "unhealthy"
		body["database"] = "disconnected"
		h.logger().Error("health check failed", zap.Error(storeErr))
		c.JSON(http.StatusServiceUnavailable, body)
		return
	}
	c.JSON(http.StatusOK, body)
}

func (h *handlers) fail(c *gin.Context, operation string, err error) {
	status := StatusFor(err)
	if isContextError(err) {
		h.logger().Debug("request abandoned",
			zap.String("operation", operation),
			zap.Error(err))
	} else if status >= http.StatusInternalServerError {
		h.logger().Error("request failed",
			zap.String("operation", operation),
			zap.String("category", customerrors.Category(err)),
			zap.Error(err))
	}
	c.JSON(status, gin.H{"error": publicMessage(status, err)})
}

func (h *handlers) logger() *zap.Logger {
	if h.opts.Logger == nil {
		return zap.NewNop()
	}
	return h.opts.Logger
}

// StatusFor maps an error onto an HTTP status.
func StatusFor(err error) int {
	switch {
	case errors.Is(err, context.Canceled):
		return StatusClientClosedRequest
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable
	case errors.Is(err, customerrors.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, customerrors.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, customerrors.ErrClockRegression),
		errors.Is(err, customerrors.ErrConflict),
		errors.Is(err, customerrors.ErrStoreUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func publicMessage(status int, err error) string {
	switch status {
	case http.StatusBadRequest:
		return err.Error()
	case http.StatusNotFound:
		return "Short URL not found"
	case StatusClientClosedRequest:
		return "Request cancelled"
	case http.StatusServiceUnavailable:
		return "Service temporarily unavailable, please retry"
	default:
		return "Internal server error"
	}
}

func isContextError(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
