package routes

import (
	"billing-backend/handlers/stripe"
	"billing-backend/payments"

	"github.com/gin-gonic/gin"
)

func StripeRoutes(r *gin.Engine, paymentsClient payments.Client) {
	handler := stripe.NewHandler(paymentsClient)

	r.POST("/stripe/webhook", handler.HandleWebhook)
}
