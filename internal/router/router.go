// Package router assembles the gin engine: middleware, static temp-image
// serving and route registration.
package router

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"

	"github.com/masapokki/line-night-idea-enhancer/config"
	"github.com/masapokki/line-night-idea-enhancer/internal/handler"
)

func New(cfg *config.Config, h *handler.WebhookHandler) *gin.Engine {
	if cfg.Server.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.Default()
	r.Use(cors.Default())
	r.Use(gzip.Gzip(gzip.DefaultCompression))

	// rendered mindmap images; LINE fetches them via the public URL
	r.Static("/temp", cfg.Data.TempDir)

	r.GET("/", h.Health)
	r.POST("/webhook", h.Webhook)
	r.POST("/api/mindmap/render", h.Render)

	return r
}
