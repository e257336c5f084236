package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"k8s.io/klog/v2"
)

type renderRequest struct {
	UserID      string `json:"user_id" binding:"required"`
	MindmapText string `json:"mindmap_text" binding:"required"`
	ResultID    string `json:"result_id" binding:"required"`
}

// Render translates an outline, renders it and pushes the image to the
// user. Used to retry image delivery for an archived result.
func (h *WebhookHandler) Render(c *gin.Context) {
	var req renderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.bot.RenderAndPush(c.Request.Context(), req.UserID, req.MindmapText, req.ResultID); err != nil {
		klog.Errorf("manual render failed for result %s: %v", req.ResultID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok", "result_id": req.ResultID})
}
