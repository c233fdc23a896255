package handlers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/plumeapp/plume/feed"
	"github.com/plumeapp/plume/server/middlewares"
)

func parseFeedRequest(c *gin.Context) *feed.Request {
	limit, _ := strconv.Atoi(c.Query("limit"))
	return &feed.Request{
		UserID:  middlewares.CurrentUserId(c),
		Limit:   limit,
		Cursor:  parseCursor(c.Query("cursor")),
		Exclude: feed.ParseExclusionList(c.Query("excludeIds")),
	}
}

// parseCursor distinguishes an absent token from a corrupt one. Absent
// means a fresh session starting at the flow's first phase. A token that
// was supplied but does not decode belongs to a session already underway,
// so it degrades to the start of the terminal fallback phase rather than
// regressing into the personalized phases and re-serving their content.
func parseCursor(token string) *feed.Cursor {
	if token == "" {
		return nil
	}
	if cursor := feed.DecodeCursor(token); cursor != nil {
		return cursor
	}
	return &feed.Cursor{Phase: feed.PhaseFallback}
}

// GetFeed serves the home timeline: profile phase then fallback, anonymous
// and interest-less users straight on fallback. The canonical anonymous
// first page is the one cached path.
func (h *Handler) GetFeed(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
	defer cancel()

	req := parseFeedRequest(c)

	if feed.Cacheable(req) {
		limit := feed.ClampLimit(req.Limit)
		if page, ok := h.Cache.Get(ctx, limit); ok {
			h.incr("plume.feed.first_page_cache", "result:hit")
			c.JSON(http.StatusOK, toPageView(page))
			return
		}
		page, err := h.Composer.Compose(ctx, req)
		if err != nil {
			writeError(c, err)
			return
		}
		h.Cache.Set(ctx, limit, page)
		h.incr("plume.feed.first_page_cache", "result:miss")
		c.JSON(http.StatusOK, toPageView(page))
		return
	}

	page, err := h.Composer.Compose(ctx, req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toPageView(page))
}

// GetRelatedPosts serves the feed under a post: related phase first, then
// profile, then fallback. The missing-seed case is the one hard failure in
// the engine since there is no meaningful page without a seed.
func (h *Handler) GetRelatedPosts(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
	defer cancel()

	seed, err := h.Content.Get(ctx, c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}

	req := parseFeedRequest(c)
	req.Seed = seed
	// The seed itself must never show up under its own related feed.
	req.Exclude.Add(seed.Id)

	page, err := h.Composer.Compose(ctx, req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toPageView(page))
}
