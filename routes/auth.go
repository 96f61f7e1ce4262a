package routes

import (
	"billing-backend/handlers/auth"
	"billing-backend/middleware"

	"github.com/gin-gonic/gin"
)

func AuthRoutes(r *gin.Engine) {
	r.POST("/auth/register", auth.Register)
	r.POST("/auth/login", auth.Login)
	r.GET("/auth/profile", middleware.JWTAuth(), auth.GetProfile)
}
