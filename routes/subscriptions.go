package routes

import (
	"billing-backend/handlers/subscriptions"
	"billing-backend/middleware"
	"billing-backend/payments"

	"github.com/gin-gonic/gin"
)

func SubscriptionsRoutes(r *gin.Engine, paymentsClient payments.Client) {
	handler := subscriptions.NewHandler(paymentsClient)

	subscriptionRoutes := r.Group("/subscriptions")
	subscriptionRoutes.Use(middleware.JWTAuth())
	{
		subscriptionRoutes.POST("", handler.CreateSubscription)
		subscriptionRoutes.POST("/checkout-session", handler.CreateCheckoutSession)
		subscriptionRoutes.POST("/elements-subscribe", handler.CreateSubscriptionWithElements)
		subscriptionRoutes.GET("/sub/:id", handler.GetSubscription)
		subscriptionRoutes.GET("/my-subscriptions", handler.GetMySubscriptions)
		subscriptionRoutes.GET("/user/:userId", middleware.AdminAuth(), handler.GetUserSubscriptions)
		subscriptionRoutes.PATCH("/:id/upgrade", handler.Upgrade)
		subscriptionRoutes.PATCH("/:id/downgrade", handler.Downgrade)
		subscriptionRoutes.DELETE("/:id/cancel", handler.Cancel)
	}
}
