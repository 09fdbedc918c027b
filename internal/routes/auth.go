package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/motlatsimoea/fnd/internal/handlers"
	"github.com/motlatsimoea/fnd/internal/middleware"
)

func RegisterAuthRoutes(r gin.IRouter) {
	auth := r.Group("/auth")
	auth.Use(middleware.AuthRateLimit())
	{
		auth.POST("/register", handlers.Register)
		auth.POST("/login", handlers.Login)
		auth.GET("/me", middleware.AuthMiddleware(), handlers.Me)
	}
}
