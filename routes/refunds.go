package routes

import (
	"billing-backend/handlers/refunds"
	"billing-backend/middleware"
	"billing-backend/payments"

	"github.com/gin-gonic/gin"
)

func RefundsRoutes(r *gin.Engine, paymentsClient payments.Client) {
	handler := refunds.NewHandler(paymentsClient)

	refundRoutes := r.Group("/refunds")
	refundRoutes.Use(middleware.JWTAuth())
	{
		refundRoutes.POST("", handler.CreateRefund)
		refundRoutes.GET("/:id", handler.GetRefundByID)
		refundRoutes.GET("/stripe/:stripeRefundId", handler.GetRefundByStripeID)
		refundRoutes.GET("/subscription/:subscriptionId", handler.GetRefundsBySubscription)
	}
}
