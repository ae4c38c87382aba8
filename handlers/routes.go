package handlers

import "github.com/gin-gonic/gin"

// RegisterRoutes wires the REST API and the websocket endpoint.
func RegisterRoutes(router *gin.Engine, h *SessionHandler) {
	api := router.Group("/api")
	{
		api.POST("/sessions", h.CreateSession)
		api.POST("/sessions/join", h.JoinSession)

		sessions := api.Group("/sessions/:id")
		{
			sessions.GET("", h.GetSession)
			sessions.POST("/leave", h.LeaveSession)
			sessions.POST("/vote", h.SubmitVote)
			sessions.POST("/round", h.StartRound)
			sessions.POST("/reveal", h.Reveal)
			sessions.POST("/reset", h.ResetRound)
			sessions.POST("/end", h.EndSession)
			sessions.POST("/host", h.TransferHost)
		}

		api.GET("/debug/registry", h.RegistrySnapshot)
	}

	router.GET("/ws", h.WebSocket)
}
