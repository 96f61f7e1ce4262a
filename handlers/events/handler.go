package events

import (
	"net/http"

	"billing-backend/db"
	"billing-backend/models"
	"billing-backend/utils"

	"github.com/gin-gonic/gin"
)

// @Summary List all webhook events
// @Description Return the full audit log of inbound Stripe events (admin only)
// @Tags events
// @Produce json
// @Security BearerAuth
// @Success 200 {object} utils.Response
// @Failure 403 {object} map[string]string "error: admin role required"
// @Router /events [get]
func GetAllEvents(c *gin.Context) {
	var events []models.SubscriptionEvent
	if err := db.DB.Order("created_at DESC").Find(&events).Error; err != nil {
		utils.LogError(err, "Error fetching events in GetAllEvents")
		utils.SendError(c, http.StatusInternalServerError, "Error fetching events")
		return
	}

	utils.SendSuccess(c, http.StatusOK, "Events retrieved", events)
}

// @Summary List webhook events for a subscription
// @Tags events
// @Produce json
// @Param subscriptionId path string true "Subscription ID"
// @Security BearerAuth
// @Success 200 {object} utils.Response
// @Failure 403 {object} map[string]string "error: admin role required"
// @Router /events/subscription/{subscriptionId} [get]
func GetEventsBySubscription(c *gin.Context) {
	var events []models.SubscriptionEvent
	err := db.DB.Where("subscription_id = ?", c.Param("subscriptionId")).Order("created_at DESC").Find(&events).Error
	if err != nil {
		utils.LogError(err, "Error fetching events in GetEventsBySubscription")
		utils.SendError(c, http.StatusInternalServerError, "Error fetching events")
		return
	}

	utils.SendSuccess(c, http.StatusOK, "Events retrieved", events)
}
