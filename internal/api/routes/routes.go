package routes

import (
	"agent-relay-gateway/internal/api/handlers"
	"agent-relay-gateway/internal/api/middleware"

	"github.com/gin-gonic/gin"
)

// APIPrefixes are the mount points of the API. The second matches the path
// layout of the Mastra JS client.
var APIPrefixes = []string{"/api", "/api/mastra"}

func SetupRoutes(router *gin.Engine, h *handlers.Handlers, accessToken string) {
	authMiddleware := middleware.AuthMiddleware(accessToken)

	for _, prefix := range APIPrefixes {
		api := router.Group(prefix)
		api.Use(authMiddleware)
		registerAPI(api, h)
	}

	router.GET("/healthz", h.Health)
	router.GET("/readyz", h.Ready)
}

func registerAPI(api *gin.RouterGroup, h *handlers.Handlers) {
	agents := api.Group("/agents")
	{
		agents.GET("", h.ListAgents)
		agents.GET("/:name", h.GetAgent)
		agents.POST("/:name/generate", h.GenerateAgent)
		agents.POST("/:name/stream", h.StreamAgent)
	}

	workflows := api.Group("/workflows")
	{
		workflows.GET("", h.ListWorkflows)
		workflows.GET("/:name", h.GetWorkflow)
		workflows.POST("/:name/stream", h.StreamWorkflow)
		workflows.POST("/:name/start", h.StartWorkflow)
	}

	runs := api.Group("/runs")
	{
		runs.GET("", h.ListRuns)
		runs.GET("/:runId", h.GetRun)
		runs.POST("/:runId/cancel", h.CancelRun)
		runs.GET("/:runId/archive", h.GetRunArchive)
	}

	threads := api.Group("/memory/threads")
	{
		threads.GET("", h.ListThreads)
		threads.GET("/:id/messages", h.GetThreadMessages)
		threads.DELETE("/:id", h.DeleteThread)
	}
}
