package stripe

import (
	"encoding/json"
	"io"
	"net/http"

	"billing-backend/db"
	"billing-backend/handlers/plans"
	"billing-backend/models"
	"billing-backend/payments"
	"billing-backend/utils"

	"github.com/gin-gonic/gin"
	stripe "github.com/stripe/stripe-go/v82"
	"gorm.io/datatypes"
)

// knownStatuses is the provider vocabulary we expect today. The status column
// stays an open string, an unknown value is stored unchanged and only logged.
var knownStatuses = map[string]bool{
	"active":             true,
	"past_due":           true,
	"unpaid":             true,
	"canceled":           true,
	"incomplete":         true,
	"incomplete_expired": true,
	"trialing":           true,
	"paused":             true,
}

type Handler struct {
	payments payments.Client
	sendMail func(to, subject, text, html string) error
}

func NewHandler(p payments.Client) *Handler {
	return &Handler{
		payments: p,
		sendMail: utils.SendMail,
	}
}

// HandleWebhook verifies, records and applies an inbound Stripe event.
// Verification failure rejects the request before anything is written; once
// verified, the event is appended to the audit log before any side effect so
// a failed handler can be replayed from the log. Handlers are idempotent
// upserts keyed on remote ids, which is what makes the provider's
// at-least-once delivery safe.
// @Summary Stripe webhook endpoint
// @Description Verify the Stripe signature over the raw body and apply the event to local state
// @Tags webhook
// @Accept json
// @Produce json
// @Success 200 {object} map[string]string "message"
// @Failure 400 {object} map[string]string "error: signature verification failed"
// @Router /stripe/webhook [post]
func (h *Handler) HandleWebhook(c *gin.Context) {
	const MaxBodyBytes = int64(65536)
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, MaxBodyBytes)

	payload, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Cannot read the request body"})
		return
	}

	event, err := h.payments.ConstructEvent(payload, c.GetHeader("Stripe-Signature"))
	if err != nil {
		utils.LogError(err, "Stripe signature verification failed in HandleWebhook")
		c.JSON(http.StatusBadRequest, gin.H{"error": "Stripe signature verification failed"})
		return
	}

	// audit-first: every verified event is recoverable even if the handler
	// below fails
	auditRow := models.SubscriptionEvent{
		EventType: string(event.Type),
		EventData: datatypes.JSON(event.Data.Raw),
	}
	if err := db.DB.Create(&auditRow).Error; err != nil {
		utils.LogError(err, "Error persisting webhook event in HandleWebhook")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error persisting event"})
		return
	}

	switch event.Type {
	case "checkout.session.completed":
		h.handleCheckoutSessionCompleted(c, event)
	case "invoice.payment_succeeded":
		h.handleInvoicePaymentSucceeded(c, event)
	case "customer.subscription.created",
		"customer.subscription.updated",
		"customer.subscription.deleted":
		h.handleSubscriptionEvent(c, event)
	case "price.created", "price.updated", "price.deleted":
		h.handlePriceEvent(c, event)
	case "refund.updated":
		h.handleRefundUpdated(c, event)
	default:
		utils.LogInfo("Ignoring Stripe event " + string(event.Type))
		c.JSON(http.StatusOK, gin.H{"message": "Event ignored"})
	}
}

// handleCheckoutSessionCompleted creates the local subscription row for a
// completed hosted checkout, unless the customer.subscription.created path
// got there first. Unresolvable account or plan drops the event: such races
// self-correct on a later event.
func (h *Handler) handleCheckoutSessionCompleted(c *gin.Context, event stripe.Event) {
	var session stripe.CheckoutSession
	if err := json.Unmarshal(event.Data.Raw, &session); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Error parsing CheckoutSession"})
		return
	}

	if session.Subscription == nil || session.Customer == nil {
		c.JSON(http.StatusOK, gin.H{"message": "Session without subscription, event ignored"})
		return
	}

	stripeSub, err := h.payments.GetSubscription(session.Subscription.ID)
	if err != nil {
		utils.LogError(err, "Error retrieving Stripe subscription in handleCheckoutSessionCompleted")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error retrieving Stripe subscription"})
		return
	}

	var user models.User
	if err := db.DB.First(&user, "stripe_customer_id = ?", session.Customer.ID).Error; err != nil {
		utils.LogInfo("No user for customer " + session.Customer.ID + ", event dropped")
		c.JSON(http.StatusOK, gin.H{"message": "No matching user, event ignored"})
		return
	}

	if stripeSub.Items == nil || len(stripeSub.Items.Data) == 0 || stripeSub.Items.Data[0].Price == nil {
		c.JSON(http.StatusOK, gin.H{"message": "Subscription without price, event ignored"})
		return
	}
	priceID := stripeSub.Items.Data[0].Price.ID

	var plan models.Plan
	if err := db.DB.First(&plan, "stripe_price_id = ?", priceID).Error; err != nil {
		utils.LogInfo("No plan for price " + priceID + ", event dropped")
		c.JSON(http.StatusOK, gin.H{"message": "No matching plan, event ignored"})
		return
	}

	var existing models.Subscription
	if err := db.DB.First(&existing, "stripe_subscription_id = ?", stripeSub.ID).Error; err == nil {
		c.JSON(http.StatusOK, gin.H{"message": "Subscription already recorded"})
		return
	}

	start, end := payments.SubscriptionPeriod(stripeSub)
	sub := models.Subscription{
		StripeSubscriptionId: stripeSub.ID,
		UserID:               user.ID,
		PlanID:               plan.ID,
		Status:               string(stripeSub.Status),
		CurrentPeriodStart:   start,
		CurrentPeriodEnd:     end,
		CancelAtPeriodEnd:    stripeSub.CancelAtPeriodEnd,
		CanceledAt:           payments.CanceledAt(stripeSub),
		Metadata:             toJSONMap(stripeSub.Metadata),
	}

	if err := db.DB.Create(&sub).Error; err != nil {
		utils.LogErrorWithUser(user.ID, err, "Error creating subscription in handleCheckoutSessionCompleted")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error creating subscription"})
		return
	}

	utils.LogSuccessWithUser(user.ID, "Subscription created from checkout session in handleCheckoutSessionCompleted")
	c.JSON(http.StatusOK, gin.H{"message": "Subscription created"})
}

// handleInvoicePaymentSucceeded notifies the owner. No ledger mutation. The
// invoice is parsed as a map because the subscription id moved under
// parent.subscription_details on recent API versions.
func (h *Handler) handleInvoicePaymentSucceeded(c *gin.Context, event stripe.Event) {
	var invoiceData map[string]interface{}
	if err := json.Unmarshal(event.Data.Raw, &invoiceData); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Error parsing Invoice"})
		return
	}

	var stripeSubID string
	if parent, ok := invoiceData["parent"].(map[string]interface{}); ok {
		if subDetails, ok := parent["subscription_details"].(map[string]interface{}); ok {
			if sub, ok := subDetails["subscription"].(string); ok && sub != "" {
				stripeSubID = sub
			}
		}
	}
	if stripeSubID == "" {
		if s, ok := invoiceData["subscription"].(string); ok && s != "" {
			stripeSubID = s
		}
	}

	if stripeSubID == "" {
		c.JSON(http.StatusOK, gin.H{"message": "Invoice without subscription, event ignored"})
		return
	}

	var sub models.Subscription
	if err := db.DB.Preload("User").First(&sub, "stripe_subscription_id = ?", stripeSubID).Error; err != nil {
		c.JSON(http.StatusOK, gin.H{"message": "No matching subscription, event ignored"})
		return
	}

	if sub.User.Email != "" {
		err := h.sendMail(
			sub.User.Email,
			"Payment Successful",
			"Your payment was successful!",
			"<b>Your payment was successful!</b>",
		)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Error sending notification"})
			return
		}
	}

	c.JSON(http.StatusOK, gin.H{"message": "Payment notification processed"})
}

// handleSubscriptionEvent overwrites the local mirror from the remote
// snapshot. A missing local row is tolerated: a created event racing ahead of
// the checkout-completion path arrives again as a later update.
func (h *Handler) handleSubscriptionEvent(c *gin.Context, event stripe.Event) {
	var stripeSub stripe.Subscription
	if err := json.Unmarshal(event.Data.Raw, &stripeSub); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Error parsing Subscription"})
		return
	}

	var sub models.Subscription
	if err := db.DB.First(&sub, "stripe_subscription_id = ?", stripeSub.ID).Error; err != nil {
		c.JSON(http.StatusOK, gin.H{"message": "No matching subscription, event ignored"})
		return
	}

	if !knownStatuses[string(stripeSub.Status)] {
		utils.LogWarn("Unknown subscription status " + string(stripeSub.Status) + " for " + stripeSub.ID)
	}

	start, end := payments.SubscriptionPeriod(&stripeSub)
	err := db.DB.Model(&sub).Updates(map[string]interface{}{
		"status":               string(stripeSub.Status),
		"current_period_start": start,
		"current_period_end":   end,
		"cancel_at_period_end": stripeSub.CancelAtPeriodEnd,
		"canceled_at":          payments.CanceledAt(&stripeSub),
		"metadata":             toJSONMap(stripeSub.Metadata),
	}).Error
	if err != nil {
		utils.LogError(err, "Error updating subscription in handleSubscriptionEvent")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error updating subscription"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Subscription updated"})
}

// handlePriceEvent keeps the plan catalog in sync. A deleted price stays in
// the catalog but is deactivated.
func (h *Handler) handlePriceEvent(c *gin.Context, event stripe.Event) {
	var price stripe.Price
	if err := json.Unmarshal(event.Data.Raw, &price); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Error parsing Price"})
		return
	}

	active := event.Type != "price.deleted"
	if err := plans.UpsertFromPrice(&price, active); err != nil {
		utils.LogError(err, "Error upserting plan in handlePriceEvent")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error upserting plan"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Plan upserted"})
}

// handleRefundUpdated upserts the refund keyed on the Stripe refund id. A
// refund first seen through the webhook is inserted without a subscription
// link.
func (h *Handler) handleRefundUpdated(c *gin.Context, event stripe.Event) {
	var refund stripe.Refund
	if err := json.Unmarshal(event.Data.Raw, &refund); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Error parsing Refund"})
		return
	}

	var localRefund models.Refund
	err := db.DB.First(&localRefund, "stripe_refund_id = ?", refund.ID).Error
	if err != nil {
		stripeRefundID := refund.ID
		localRefund = models.Refund{
			StripeRefundId: &stripeRefundID,
			Amount:         refund.Amount,
			Status:         string(refund.Status),
		}
		if refund.Created > 0 {
			localRefund.CreatedAt = timeFromUnix(refund.Created)
		}
		if err := db.DB.Create(&localRefund).Error; err != nil {
			utils.LogError(err, "Error creating refund in handleRefundUpdated")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Error creating refund"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "Refund recorded"})
		return
	}

	updateErr := db.DB.Model(&localRefund).Updates(map[string]interface{}{
		"amount": refund.Amount,
		"status": string(refund.Status),
	}).Error
	if updateErr != nil {
		utils.LogError(updateErr, "Error updating refund in handleRefundUpdated")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error updating refund"})
		return
	}

	if localRefund.SubscriptionID != nil {
		var sub models.Subscription
		if err := db.DB.Preload("User").First(&sub, "id = ?", *localRefund.SubscriptionID).Error; err == nil && sub.User.Email != "" {
			err := h.sendMail(
				sub.User.Email,
				"Payment Refunded",
				"Your payment has been refunded. If you have any questions, please contact support.",
				"<b>Your payment has been refunded. If you have any questions, please contact support.</b>",
			)
			if err != nil {
				c.JSON(http.StatusInternalServerError, gin.H{"error": "Error sending notification"})
				return
			}
		}
	}

	c.JSON(http.StatusOK, gin.H{"message": "Refund updated"})
}
