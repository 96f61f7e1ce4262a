package routes

import (
	"time"

	"billing-backend/payments"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

func SetupRouter(paymentsClient payments.Client) *gin.Engine {

	r := gin.Default()
	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS", "PATCH"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	AuthRoutes(r)
	UsersRoutes(r, paymentsClient)
	PlansRoutes(r, paymentsClient)
	SubscriptionsRoutes(r, paymentsClient)
	RefundsRoutes(r, paymentsClient)
	EventsRoutes(r)
	StripeRoutes(r, paymentsClient)

	return r
}
