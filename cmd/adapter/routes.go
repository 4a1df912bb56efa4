package main

import (
	"github.com/gin-gonic/gin"

	"github.com/vcon-dev/vcon-telephony-adapters/internal/auth"
	"github.com/vcon-dev/vcon-telephony-adapters/internal/webhook"
)

// registerRoutes wires HTTP routes to handlers.
// Keep this file free of business logic.
func registerRoutes(r *gin.Engine, platform string, p *webhook.Pipeline, statusAuth *auth.Manager) {
	r.GET("/health", webhook.HandleHealth)

	// Platform webhook, reachable both at the root and under the platform
	// name so one ingress can front several adapter processes.
	r.POST("/recording", p.HandleWebhook)
	r.POST("/"+platform+"/recording", p.HandleWebhook)

	status := r.Group("/status")
	status.Use(auth.RequireStatusToken(statusAuth))
	status.GET("/:recording_id", p.HandleStatus)
}
