package subscriptions

import (
	"net/http"
	"time"

	"billing-backend/db"
	"billing-backend/handlers/users"
	"billing-backend/models"
	"billing-backend/payments"
	"billing-backend/utils"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	stripe "github.com/stripe/stripe-go/v82"
	"gorm.io/datatypes"
)

type Handler struct {
	payments payments.Client
}

func NewHandler(p payments.Client) *Handler {
	return &Handler{payments: p}
}

type changePlanInput struct {
	NewPriceId string `json:"newPriceId" binding:"required"`
}

// canAccess implements the owner-or-admin policy for per-subscription routes.
func canAccess(c *gin.Context, ownerID string) bool {
	userID, _ := c.Get("user_id")
	role, _ := c.Get("role")
	return userID == ownerID || role == string(models.AdminRole)
}

func metadataMap(metadata map[string]string) datatypes.JSONMap {
	out := datatypes.JSONMap{}
	for k, v := range metadata {
		out[k] = v
	}
	return out
}

// applySnapshot overwrites the local mirror fields from the remote
// subscription. The remote system is authoritative for all of them.
func applySnapshot(sub *models.Subscription, stripeSub *stripe.Subscription) {
	start, end := payments.SubscriptionPeriod(stripeSub)
	sub.Status = string(stripeSub.Status)
	sub.CurrentPeriodStart = start
	sub.CurrentPeriodEnd = end
	sub.CancelAtPeriodEnd = stripeSub.CancelAtPeriodEnd
	sub.CanceledAt = payments.CanceledAt(stripeSub)
	sub.Metadata = metadataMap(stripeSub.Metadata)
}

func (h *Handler) persistNewSubscription(c *gin.Context, user *models.User, priceID string, stripeSub *stripe.Subscription) {
	var plan models.Plan
	if err := db.DB.First(&plan, "stripe_price_id = ?", priceID).Error; err != nil {
		utils.LogErrorWithUser(user.ID, err, "Plan not found in persistNewSubscription")
		c.JSON(http.StatusNotFound, gin.H{"error": "Plan not found"})
		return
	}

	sub := models.Subscription{
		StripeSubscriptionId: stripeSub.ID,
		UserID:               user.ID,
		PlanID:               plan.ID,
	}
	applySnapshot(&sub, stripeSub)

	if err := db.DB.Create(&sub).Error; err != nil {
		utils.LogErrorWithUser(user.ID, err, "Error persisting subscription in persistNewSubscription")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error persisting subscription"})
		return
	}
	sub.User = *user
	sub.Plan = plan

	utils.LogSuccessWithUser(user.ID, "Subscription created in persistNewSubscription")
	c.JSON(http.StatusCreated, sub)
}

// @Summary Create a Stripe Checkout session for the authenticated user
// @Description Start a hosted checkout flow for the given price. Returns the session URL for the frontend redirect.
// @Tags subscriptions
// @Accept json
// @Produce json
// @Param body body object true "priceId: Stripe price ID"
// @Security BearerAuth
// @Success 200 {object} map[string]string "sessionId, url"
// @Failure 401 {object} map[string]string "error: Unauthorized"
// @Failure 404 {object} map[string]string "error: User not found"
// @Failure 500 {object} map[string]string "error: Stripe error"
// @Router /subscriptions/checkout-session [post]
func (h *Handler) CreateCheckoutSession(c *gin.Context) {
	var input struct {
		PriceId string `json:"priceId" binding:"required"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input: " + err.Error()})
		return
	}

	userID, exists := c.Get("user_id")
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	var user models.User
	if err := db.DB.First(&user, "id = ?", userID).Error; err != nil {
		utils.LogErrorWithUser(userID, err, "User not found in CreateCheckoutSession")
		c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
		return
	}

	if err := users.EnsureStripeCustomer(h.payments, &user); err != nil {
		utils.LogErrorWithUser(userID, err, "Error creating Stripe customer in CreateCheckoutSession")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error creating Stripe customer"})
		return
	}

	session, err := h.payments.CreateCheckoutSession(user.StripeCustomerId, input.PriceId)
	if err != nil {
		utils.LogErrorWithUser(userID, err, "Error creating checkout session in CreateCheckoutSession")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error creating checkout session"})
		return
	}

	utils.LogSuccessWithUser(userID, "Checkout session created in CreateCheckoutSession")
	c.JSON(http.StatusOK, gin.H{"sessionId": session.ID, "url": session.URL})
}

// @Summary Create a subscription with Stripe Elements
// @Description Provision the Stripe customer if needed, attach the payment method as default, then create the subscription.
// @Tags subscriptions
// @Accept json
// @Produce json
// @Param body body object true "priceId and paymentMethodId"
// @Security BearerAuth
// @Success 201 {object} models.Subscription
// @Failure 401 {object} map[string]string "error: Unauthorized"
// @Failure 404 {object} map[string]string "error: User or plan not found"
// @Failure 500 {object} map[string]string "error: Stripe error"
// @Router /subscriptions/elements-subscribe [post]
func (h *Handler) CreateSubscriptionWithElements(c *gin.Context) {
	var input struct {
		PriceId         string `json:"priceId" binding:"required"`
		PaymentMethodId string `json:"paymentMethodId" binding:"required"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input: " + err.Error()})
		return
	}

	userID, exists := c.Get("user_id")
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	var user models.User
	if err := db.DB.First(&user, "id = ?", userID).Error; err != nil {
		utils.LogErrorWithUser(userID, err, "User not found in CreateSubscriptionWithElements")
		c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
		return
	}

	if err := users.EnsureStripeCustomer(h.payments, &user); err != nil {
		utils.LogErrorWithUser(userID, err, "Error creating Stripe customer in CreateSubscriptionWithElements")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error creating Stripe customer"})
		return
	}

	if err := h.payments.AttachPaymentMethod(input.PaymentMethodId, user.StripeCustomerId); err != nil {
		utils.LogErrorWithUser(userID, err, "Error attaching payment method in CreateSubscriptionWithElements")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error attaching payment method"})
		return
	}

	if err := h.payments.SetDefaultPaymentMethod(user.StripeCustomerId, input.PaymentMethodId); err != nil {
		utils.LogErrorWithUser(userID, err, "Error setting default payment method in CreateSubscriptionWithElements")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error setting default payment method"})
		return
	}

	stripeSub, err := h.payments.CreateSubscription(user.StripeCustomerId, input.PriceId)
	if err != nil {
		utils.LogErrorWithUser(userID, err, "Error creating Stripe subscription in CreateSubscriptionWithElements")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error creating Stripe subscription"})
		return
	}

	h.persistNewSubscription(c, &user, input.PriceId, stripeSub)
}

// @Summary Create a subscription directly
// @Description Create a subscription for a user that already has a Stripe customer and a default payment method.
// @Tags subscriptions
// @Accept json
// @Produce json
// @Param body body object true "priceId: Stripe price ID"
// @Security BearerAuth
// @Success 201 {object} models.Subscription
// @Failure 404 {object} map[string]string "error: User has no Stripe customer"
// @Router /subscriptions [post]
func (h *Handler) CreateSubscription(c *gin.Context) {
	var input struct {
		PriceId string `json:"priceId" binding:"required"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input: " + err.Error()})
		return
	}

	userID, exists := c.Get("user_id")
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	var user models.User
	if err := db.DB.First(&user, "id = ?", userID).Error; err != nil {
		utils.LogErrorWithUser(userID, err, "User not found in CreateSubscription")
		c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
		return
	}

	if user.StripeCustomerId == "" {
		c.JSON(http.StatusNotFound, gin.H{"error": "User has no Stripe customer"})
		return
	}

	stripeSub, err := h.payments.CreateSubscription(user.StripeCustomerId, input.PriceId)
	if err != nil {
		utils.LogErrorWithUser(userID, err, "Error creating Stripe subscription in CreateSubscription")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error creating Stripe subscription"})
		return
	}

	h.persistNewSubscription(c, &user, input.PriceId, stripeSub)
}

// @Summary Get a subscription by id
// @Description Users can only access their own subscriptions, admins can access any.
// @Tags subscriptions
// @Produce json
// @Param id path string true "Subscription ID"
// @Security BearerAuth
// @Success 200 {object} models.Subscription
// @Failure 403 {object} map[string]string "error: Forbidden"
// @Failure 404 {object} map[string]string "error: Subscription not found"
// @Router /subscriptions/sub/{id} [get]
func (h *Handler) GetSubscription(c *gin.Context) {
	id := c.Param("id")
	if _, err := uuid.Parse(id); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid subscription ID"})
		return
	}

	var sub models.Subscription
	err := db.DB.Preload("User").Preload("Plan").First(&sub, "id = ?", id).Error
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Subscription not found"})
		return
	}

	if !canAccess(c, sub.UserID) {
		c.JSON(http.StatusForbidden, gin.H{"error": "You can only access your own subscriptions"})
		return
	}

	c.JSON(http.StatusOK, sub)
}

// @Summary List the authenticated user's subscriptions
// @Tags subscriptions
// @Produce json
// @Security BearerAuth
// @Success 200 {array} models.Subscription
// @Router /subscriptions/my-subscriptions [get]
func (h *Handler) GetMySubscriptions(c *gin.Context) {
	userID, exists := c.Get("user_id")
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	var subs []models.Subscription
	err := db.DB.Preload("Plan").Where("user_id = ?", userID).Order("created_at DESC").Find(&subs).Error
	if err != nil {
		utils.LogErrorWithUser(userID, err, "Error fetching subscriptions in GetMySubscriptions")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error fetching subscriptions"})
		return
	}

	c.JSON(http.StatusOK, subs)
}

// @Summary List a user's subscriptions (admin only)
// @Tags subscriptions
// @Produce json
// @Param userId path string true "User ID"
// @Security BearerAuth
// @Success 200 {array} models.Subscription
// @Failure 403 {object} map[string]string "error: admin role required"
// @Router /subscriptions/user/{userId} [get]
func (h *Handler) GetUserSubscriptions(c *gin.Context) {
	var subs []models.Subscription
	err := db.DB.Preload("Plan").Where("user_id = ?", c.Param("userId")).Order("created_at DESC").Find(&subs).Error
	if err != nil {
		utils.LogError(err, "Error fetching subscriptions in GetUserSubscriptions")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error fetching subscriptions"})
		return
	}

	c.JSON(http.StatusOK, subs)
}

// resolveForChange loads the local subscription and its remote item id,
// enforcing the owner-or-admin policy. Returns ok=false after responding.
func (h *Handler) resolveForChange(c *gin.Context) (sub models.Subscription, itemID string, ok bool) {
	id := c.Param("id")
	if _, err := uuid.Parse(id); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid subscription ID"})
		return sub, "", false
	}

	if err := db.DB.First(&sub, "id = ?", id).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Subscription not found"})
		return sub, "", false
	}

	if !canAccess(c, sub.UserID) {
		c.JSON(http.StatusForbidden, gin.H{"error": "You can only modify your own subscriptions"})
		return sub, "", false
	}

	stripeSub, err := h.payments.GetSubscription(sub.StripeSubscriptionId)
	if err != nil {
		utils.LogErrorWithUser(sub.UserID, err, "Error retrieving Stripe subscription in resolveForChange")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error retrieving Stripe subscription"})
		return sub, "", false
	}

	if stripeSub.Items == nil || len(stripeSub.Items.Data) == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "Subscription item not found"})
		return sub, "", false
	}

	return sub, stripeSub.Items.Data[0].ID, true
}

// @Summary Upgrade a subscription
// @Description Switch to a new plan immediately with proration. The local row is overwritten from the Stripe response.
// @Tags subscriptions
// @Accept json
// @Produce json
// @Param id path string true "Subscription ID"
// @Param body body object true "newPriceId: target Stripe price ID"
// @Security BearerAuth
// @Success 200 {object} models.Subscription
// @Failure 403 {object} map[string]string "error: Forbidden"
// @Failure 404 {object} map[string]string "error: Subscription, item or plan not found"
// @Router /subscriptions/{id}/upgrade [patch]
func (h *Handler) Upgrade(c *gin.Context) {
	var input changePlanInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input: " + err.Error()})
		return
	}

	sub, itemID, ok := h.resolveForChange(c)
	if !ok {
		return
	}

	stripeSub, err := h.payments.UpdateSubscriptionItemPrice(sub.StripeSubscriptionId, itemID, input.NewPriceId, true)
	if err != nil {
		utils.LogErrorWithUser(sub.UserID, err, "Error upgrading Stripe subscription in Upgrade")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error upgrading Stripe subscription"})
		return
	}

	var plan models.Plan
	if err := db.DB.First(&plan, "stripe_price_id = ?", input.NewPriceId).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Plan not found"})
		return
	}

	sub.PlanID = plan.ID
	applySnapshot(&sub, stripeSub)

	if err := db.DB.Save(&sub).Error; err != nil {
		utils.LogErrorWithUser(sub.UserID, err, "Error saving subscription in Upgrade")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error saving subscription"})
		return
	}
	sub.Plan = plan

	utils.LogSuccessWithUser(sub.UserID, "Subscription upgraded in Upgrade")
	c.JSON(http.StatusOK, sub)
}

// @Summary Downgrade a subscription
// @Description Schedule a plan change for the next period. Stripe is updated without proration; locally only the scheduled target price is recorded in metadata, the plan switch itself is driven by later reconciliation.
// @Tags subscriptions
// @Accept json
// @Produce json
// @Param id path string true "Subscription ID"
// @Param body body object true "newPriceId: target Stripe price ID"
// @Security BearerAuth
// @Success 200 {object} models.Subscription
// @Failure 403 {object} map[string]string "error: Forbidden"
// @Failure 404 {object} map[string]string "error: Subscription, item or plan not found"
// @Router /subscriptions/{id}/downgrade [patch]
func (h *Handler) Downgrade(c *gin.Context) {
	var input changePlanInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input: " + err.Error()})
		return
	}

	sub, itemID, ok := h.resolveForChange(c)
	if !ok {
		return
	}

	if _, err := h.payments.UpdateSubscriptionItemPrice(sub.StripeSubscriptionId, itemID, input.NewPriceId, false); err != nil {
		utils.LogErrorWithUser(sub.UserID, err, "Error downgrading Stripe subscription in Downgrade")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error downgrading Stripe subscription"})
		return
	}

	var plan models.Plan
	if err := db.DB.First(&plan, "stripe_price_id = ?", input.NewPriceId).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Plan not found"})
		return
	}

	// The local plan and status stay untouched. Only the scheduled target is
	// recorded; the switch-over happens through a later reconciliation.
	if sub.Metadata == nil {
		sub.Metadata = datatypes.JSONMap{}
	}
	sub.Metadata[models.ScheduledDowngradeKey] = input.NewPriceId

	if err := db.DB.Model(&sub).Update("metadata", sub.Metadata).Error; err != nil {
		utils.LogErrorWithUser(sub.UserID, err, "Error saving subscription metadata in Downgrade")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error saving subscription"})
		return
	}

	utils.LogSuccessWithUser(sub.UserID, "Subscription downgrade scheduled in Downgrade")
	c.JSON(http.StatusOK, sub)
}

// @Summary Cancel a subscription
// @Description Cancel immediately on Stripe. The local status becomes canceled and canceledAt is stamped with the local clock.
// @Tags subscriptions
// @Produce json
// @Param id path string true "Subscription ID"
// @Security BearerAuth
// @Success 200 {object} models.Subscription
// @Failure 403 {object} map[string]string "error: Forbidden"
// @Failure 404 {object} map[string]string "error: Subscription not found"
// @Router /subscriptions/{id}/cancel [delete]
func (h *Handler) Cancel(c *gin.Context) {
	id := c.Param("id")
	if _, err := uuid.Parse(id); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid subscription ID"})
		return
	}

	var sub models.Subscription
	if err := db.DB.First(&sub, "id = ?", id).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Subscription not found"})
		return
	}

	if !canAccess(c, sub.UserID) {
		c.JSON(http.StatusForbidden, gin.H{"error": "You can only cancel your own subscriptions"})
		return
	}

	if _, err := h.payments.CancelSubscription(sub.StripeSubscriptionId); err != nil {
		utils.LogErrorWithUser(sub.UserID, err, "Error canceling Stripe subscription in Cancel")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error canceling Stripe subscription"})
		return
	}

	now := time.Now()
	sub.Status = "canceled"
	sub.CanceledAt = &now

	err := db.DB.Model(&sub).Updates(map[string]interface{}{
		"status":      sub.Status,
		"canceled_at": sub.CanceledAt,
	}).Error
	if err != nil {
		utils.LogErrorWithUser(sub.UserID, err, "Error updating subscription status in Cancel")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error updating subscription status"})
		return
	}

	utils.LogSuccessWithUser(sub.UserID, "Subscription canceled in Cancel")
	c.JSON(http.StatusOK, sub)
}
