package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/plumeapp/plume/content"
	"github.com/plumeapp/plume/model"
	"github.com/plumeapp/plume/profile"
	"github.com/plumeapp/plume/server/middlewares"
)

type postRequest struct {
	Content string            `json:"content" binding:"required"`
	Images  []model.PostImage `json:"images"`
	Topic   string            `json:"topic"`
	Tags    []string          `json:"tags"`
}

func (r postRequest) toInput() content.PostInput {
	return content.PostInput{
		Content: r.Content,
		Images:  r.Images,
		Topic:   r.Topic,
		Tags:    r.Tags,
	}
}

func (h *Handler) CreatePost(c *gin.Context) {
	userId := middlewares.CurrentUserId(c)
	if userId == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
		return
	}

	var req postRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
	defer cancel()

	post, err := h.Content.Create(ctx, userId, req.toInput())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, toPostView(post))
}

// GetPost also emits a fire-and-forget view event for authenticated
// readers: viewing is the weakest interest signal but by far the most
// frequent one.
func (h *Handler) GetPost(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
	defer cancel()

	post, err := h.Content.Get(ctx, c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}

	if userId := middlewares.CurrentUserId(c); userId != "" {
		h.Tracker.Publish(profile.Event{
			UserID: userId,
			PostID: post.Id,
			Action: model.ActionView,
		})
	}

	c.JSON(http.StatusOK, toPostView(post))
}

func (h *Handler) UpdatePost(c *gin.Context) {
	userId := middlewares.CurrentUserId(c)
	if userId == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
		return
	}

	var req postRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
	defer cancel()

	post, err := h.Content.Update(ctx, userId, c.Param("id"), req.toInput())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toPostView(post))
}

func (h *Handler) DeletePost(c *gin.Context) {
	userId := middlewares.CurrentUserId(c)
	if userId == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
	defer cancel()

	if err := h.Content.Delete(ctx, userId, c.Param("id")); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "post deleted"})
}
