package handler

import (
	"github.com/gin-gonic/gin"
)

type RouterDeps struct {
	Assistant  *AssistantHandler
	Invalidate *InvalidateHandler
	// RateLimit guards the assistant entry point; nil disables it.
	RateLimit gin.HandlerFunc
}

func RegisterRoutes(api *gin.RouterGroup, deps RouterDeps) {
	assistantGroup := api.Group("")
	if deps.RateLimit != nil {
		assistantGroup.Use(deps.RateLimit)
	}
	assistantGroup.POST("/assistant/query", deps.Assistant.Query)

	// Internal hook, called by the note CRUD layer; not rate limited.
	api.POST("/internal/invalidate", deps.Invalidate.Invalidate)
}
