package routes

import (
	"billing-backend/handlers/events"
	"billing-backend/middleware"

	"github.com/gin-gonic/gin"
)

func EventsRoutes(r *gin.Engine) {
	eventRoutes := r.Group("/events")
	eventRoutes.Use(middleware.AdminAuth())
	{
		eventRoutes.GET("", events.GetAllEvents)
		eventRoutes.GET("/subscription/:subscriptionId", events.GetEventsBySubscription)
	}
}
