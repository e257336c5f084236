// Package handler exposes the HTTP surface: the LINE webhook, the manual
// render endpoint and a health probe.
package handler

import (
	"context"
	"encoding/json"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"k8s.io/klog/v2"

	"github.com/masapokki/line-night-idea-enhancer/config"
	"github.com/masapokki/line-night-idea-enhancer/internal/pkg/line"
)

// Bot is the orchestration surface the handlers delegate to.
type Bot interface {
	HandleEvents(ctx context.Context, events []line.Event)
	RenderAndPush(ctx context.Context, userID, outline, resultID string) error
}

type WebhookHandler struct {
	cfg *config.Config
	bot Bot
}

func NewWebhookHandler(cfg *config.Config, bot Bot) *WebhookHandler {
	return &WebhookHandler{cfg: cfg, bot: bot}
}

// Webhook validates the signature over the raw body before anything else;
// a mismatch never reaches event processing.
func (h *WebhookHandler) Webhook(c *gin.Context) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "failed to read request body"})
		return
	}

	signature := c.GetHeader("X-Line-Signature")
	if !line.ValidateSignature(h.cfg.Line.ChannelSecret, body, signature) {
		klog.Errorf("webhook signature mismatch")
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid signature"})
		return
	}

	var req line.WebhookRequest
	if err := json.Unmarshal(body, &req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid webhook payload"})
		return
	}

	// LINE sends an empty event list when verifying the endpoint
	if len(req.Events) == 0 {
		c.String(http.StatusOK, "Webhook verified")
		return
	}

	h.bot.HandleEvents(c.Request.Context(), req.Events)
	c.String(http.StatusOK, "OK")
}

// Health answers the platform liveness probe.
func (h *WebhookHandler) Health(c *gin.Context) {
	c.String(http.StatusOK, "LINE Night Idea Enhancer is running!")
}
