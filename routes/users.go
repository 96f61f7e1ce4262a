package routes

import (
	"billing-backend/handlers/users"
	"billing-backend/middleware"
	"billing-backend/payments"

	"github.com/gin-gonic/gin"
)

func UsersRoutes(r *gin.Engine, paymentsClient payments.Client) {
	handler := users.NewHandler(paymentsClient)

	userRoutes := r.Group("/users")
	{
		userRoutes.POST("", handler.CreateUser)
		userRoutes.GET("", middleware.AdminAuth(), handler.GetAllUsers)
		userRoutes.GET("/:id", middleware.JWTAuth(), handler.GetUserByID)
		userRoutes.PATCH("/:id", middleware.JWTAuth(), handler.UpdateUser)
		userRoutes.DELETE("/:id", middleware.AdminAuth(), handler.DeleteUser)
	}
}
