// Package handlers exposes the feed engine over plain JSON REST endpoints.
package handlers

import (
	"net/http"
	"time"

	"github.com/DataDog/datadog-go/statsd"
	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
	"gorm.io/gorm"

	"github.com/plumeapp/plume/content"
	"github.com/plumeapp/plume/feed"
	"github.com/plumeapp/plume/model"
	"github.com/plumeapp/plume/profile"
	Logger "github.com/plumeapp/plume/utils/log"
)

// requestTimeout caps the total latency of one composed page request so a
// slow phase query cannot stall the whole response.
const requestTimeout = 5 * time.Second

type Handler struct {
	DB       *gorm.DB
	Composer *feed.Composer
	Cache    feed.FirstPageCache
	Content  *content.Service
	Tracker  *profile.Tracker
	Statsd   *statsd.Client
}

func NewHandler(db *gorm.DB, composer *feed.Composer, cache feed.FirstPageCache, contentService *content.Service, tracker *profile.Tracker, statsdClient *statsd.Client) *Handler {
	return &Handler{
		DB:       db,
		Composer: composer,
		Cache:    cache,
		Content:  contentService,
		Tracker:  tracker,
		Statsd:   statsdClient,
	}
}

func (h *Handler) RegisterRoutes(router *gin.Engine) {
	api := router.Group("/api")
	api.GET("/feed", h.GetFeed)
	api.POST("/posts", h.CreatePost)
	api.GET("/posts/:id", h.GetPost)
	api.PUT("/posts/:id", h.UpdatePost)
	api.DELETE("/posts/:id", h.DeletePost)
	api.GET("/posts/:id/related", h.GetRelatedPosts)
	api.POST("/behavior", h.RecordBehavior)
}

// writeError maps domain errors onto status codes. Storage failures are the
// only 500s; they are logged with their wrapped cause.
func writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, content.ErrPostNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "post not found"})
	case errors.Is(err, content.ErrNotAuthor):
		c.JSON(http.StatusForbidden, gin.H{"error": "only the author can modify a post"})
	case errors.Is(err, model.ErrTooManyImages):
		c.JSON(http.StatusBadRequest, gin.H{"error": "too many images"})
	default:
		Logger.Log.Error("request failed: ", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

func (h *Handler) incr(name string, tags ...string) {
	if h.Statsd == nil {
		return
	}
	_ = h.Statsd.Incr(name, tags, 1)
}
