package main

import (
	"os"

	"billing-backend/db"
	"billing-backend/handlers/plans"
	"billing-backend/payments"
	"billing-backend/routes"
	"billing-backend/utils"

	"github.com/gin-gonic/gin"
)

// @title Subscription Billing API
// @version 1.0
// @description Subscription billing backend backed by Stripe
// @host localhost:8080
// @BasePath /
// @SecurityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Enter the JWT with the Bearer prefix: Bearer <JWT>
func main() {

	gin.SetMode(gin.ReleaseMode)

	db.InitDB()

	paymentsClient := payments.NewStripeClient()

	// Mirror the Stripe price catalog at startup; the price webhook events
	// keep it fresh afterwards.
	planHandler := plans.NewHandler(paymentsClient)
	if err := planHandler.SyncPlansFromStripe(); err != nil {
		utils.LogError(err, "Warning: plan sync from Stripe failed")
	}

	r := routes.SetupRouter(paymentsClient)

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	if err := r.Run(":" + port); err != nil {
		utils.LogError(err, "Error starting the server")
		panic(err)
	}
}
