package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/plumeapp/plume/model"
	"github.com/plumeapp/plume/profile"
	"github.com/plumeapp/plume/server/middlewares"
)

type behaviorRequest struct {
	PostId string               `json:"postId" binding:"required"`
	Action model.BehaviorAction `json:"action" binding:"required"`
}

// RecordBehavior accepts an engagement event and acknowledges immediately.
// The event travels through the bus; the profile update happens behind the
// response and its failure never surfaces here.
func (h *Handler) RecordBehavior(c *gin.Context) {
	userId := middlewares.CurrentUserId(c)
	if userId == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
		return
	}

	var req behaviorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if !req.Action.Valid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown action"})
		return
	}

	h.Tracker.Publish(profile.Event{
		UserID: userId,
		PostID: req.PostId,
		Action: req.Action,
	})

	c.JSON(http.StatusAccepted, gin.H{"message": "recorded"})
}
