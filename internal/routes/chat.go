package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/motlatsimoea/fnd/internal/handlers"
	"github.com/motlatsimoea/fnd/internal/middleware"
)

func RegisterChatRoutes(r gin.IRouter, h *handlers.ChatHandler) {
	chat := r.Group("/chat")
	chat.Use(middleware.AuthMiddleware())
	{
		chat.GET("", h.ListChats)
		chat.POST("/:id", middleware.ChatRateLimit(), h.SendMessage) // :id = recipient user
		chat.GET("/:id/messages", h.GetMessages)                    // :id = chat
		chat.DELETE("/:id", h.DeleteChat)                           // :id = chat
	}
}
