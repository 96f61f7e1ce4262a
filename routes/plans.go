package routes

import (
	"billing-backend/handlers/plans"
	"billing-backend/payments"

	"github.com/gin-gonic/gin"
)

func PlansRoutes(r *gin.Engine, paymentsClient payments.Client) {
	handler := plans.NewHandler(paymentsClient)

	r.GET("/plans", handler.GetAllPlans)
}
