package refunds

import (
	"net/http"
	"time"

	"billing-backend/db"
	"billing-backend/models"
	"billing-backend/payments"
	"billing-backend/utils"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	payments payments.Client
}

func NewHandler(p payments.Client) *Handler {
	return &Handler{payments: p}
}

// @Summary Create a refund
// @Description Refund a payment intent, fully or for a partial amount. The owning subscription link is resolved best-effort and may stay empty.
// @Tags refunds
// @Accept json
// @Produce json
// @Param body body object true "paymentIntentId and optional amount in minor units"
// @Security BearerAuth
// @Success 201 {object} models.Refund
// @Failure 400 {object} map[string]string "error: Invalid input"
// @Failure 500 {object} map[string]string "error: Stripe error"
// @Router /refunds [post]
func (h *Handler) CreateRefund(c *gin.Context) {
	var input struct {
		PaymentIntentId string `json:"paymentIntentId" binding:"required"`
		Amount          *int64 `json:"amount"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input: " + err.Error()})
		return
	}

	refund, err := h.payments.CreateRefund(input.PaymentIntentId, input.Amount)
	if err != nil {
		utils.LogError(err, "Error creating Stripe refund in CreateRefund")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error creating Stripe refund"})
		return
	}

	// Best-effort subscription linkage from the payment intent; an
	// unresolved link is valid.
	var subscriptionID *string
	if refund.PaymentIntent != nil {
		var sub models.Subscription
		if err := db.DB.First(&sub, "stripe_subscription_id = ?", refund.PaymentIntent.ID).Error; err == nil {
			subscriptionID = &sub.ID
		}
	}

	createdAt := time.Now()
	if refund.Created > 0 {
		createdAt = time.Unix(refund.Created, 0)
	}

	stripeRefundID := refund.ID
	localRefund := models.Refund{
		StripeRefundId: &stripeRefundID,
		SubscriptionID: subscriptionID,
		Amount:         refund.Amount,
		Status:         string(refund.Status),
		CreatedAt:      createdAt,
	}

	if err := db.DB.Create(&localRefund).Error; err != nil {
		utils.LogError(err, "Error persisting refund in CreateRefund")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error persisting refund"})
		return
	}

	utils.LogSuccess("Refund created in CreateRefund")
	c.JSON(http.StatusCreated, localRefund)
}

// @Summary Get a refund by local id
// @Tags refunds
// @Produce json
// @Param id path int true "Refund ID"
// @Security BearerAuth
// @Success 200 {object} models.Refund
// @Failure 404 {object} map[string]string "error: Refund not found"
// @Router /refunds/{id} [get]
func (h *Handler) GetRefundByID(c *gin.Context) {
	var refund models.Refund
	if err := db.DB.Preload("Subscription").First(&refund, "id = ?", c.Param("id")).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Refund not found"})
		return
	}

	c.JSON(http.StatusOK, refund)
}

// @Summary Get a refund by Stripe refund id
// @Tags refunds
// @Produce json
// @Param stripeRefundId path string true "Stripe refund ID"
// @Security BearerAuth
// @Success 200 {object} models.Refund
// @Failure 404 {object} map[string]string "error: Refund not found"
// @Router /refunds/stripe/{stripeRefundId} [get]
func (h *Handler) GetRefundByStripeID(c *gin.Context) {
	var refund models.Refund
	if err := db.DB.First(&refund, "stripe_refund_id = ?", c.Param("stripeRefundId")).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Refund not found"})
		return
	}

	c.JSON(http.StatusOK, refund)
}

// @Summary List refunds for a subscription
// @Tags refunds
// @Produce json
// @Param subscriptionId path string true "Subscription ID"
// @Security BearerAuth
// @Success 200 {array} models.Refund
// @Router /refunds/subscription/{subscriptionId} [get]
func (h *Handler) GetRefundsBySubscription(c *gin.Context) {
	var refunds []models.Refund
	err := db.DB.Where("subscription_id = ?", c.Param("subscriptionId")).Order("created_at DESC").Find(&refunds).Error
	if err != nil {
		utils.LogError(err, "Error fetching refunds in GetRefundsBySubscription")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error fetching refunds"})
		return
	}

	c.JSON(http.StatusOK, refunds)
}
