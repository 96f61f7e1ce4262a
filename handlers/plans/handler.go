package plans

import (
	"net/http"

	"billing-backend/db"
	"billing-backend/models"
	"billing-backend/payments"
	"billing-backend/utils"

	"github.com/gin-gonic/gin"
	stripe "github.com/stripe/stripe-go/v82"
	"gorm.io/datatypes"
	"gorm.io/gorm/clause"
)

// pageSize bounds the price listing when syncing the catalog
const pageSize = 100

type Handler struct {
	payments payments.Client
}

func NewHandler(p payments.Client) *Handler {
	return &Handler{payments: p}
}

// UpsertFromPrice mirrors a Stripe price into the local catalog, keyed on
// stripe_price_id. Used by the startup sync and by the price webhook events;
// a deleted price is upserted with active=false, never removed.
func UpsertFromPrice(price *stripe.Price, active bool) error {
	var name string
	if price.Product != nil {
		name = price.Product.Name
	}

	var interval string
	if price.Recurring != nil {
		interval = string(price.Recurring.Interval)
	}

	metadata := datatypes.JSONMap{}
	for k, v := range price.Metadata {
		metadata[k] = v
	}

	plan := models.Plan{
		StripePriceId: price.ID,
		Name:          name,
		Amount:        price.UnitAmount,
		Currency:      string(price.Currency),
		Interval:      interval,
		Active:        active,
		Metadata:      metadata,
	}

	return db.DB.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "stripe_price_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"name", "amount", "currency", "interval", "active", "metadata", "updated_at"}),
	}).Create(&plan).Error
}

// SyncPlansFromStripe lists the remote price catalog and upserts every price
// into the local Plan table. Runs once at process start; the price webhook
// events keep the catalog fresh afterwards.
func (h *Handler) SyncPlansFromStripe() error {
	prices, err := h.payments.ListPrices(pageSize)
	if err != nil {
		return err
	}

	for _, price := range prices {
		if err := UpsertFromPrice(price, true); err != nil {
			return err
		}
	}

	utils.LogSuccess("Plans synced from Stripe")
	return nil
}

// @Summary List available plans
// @Description Return all active plans from the local catalog
// @Tags plans
// @Produce json
// @Success 200 {array} models.Plan
// @Failure 500 {object} map[string]interface{} "error: Error fetching plans"
// @Router /plans [get]
func (h *Handler) GetAllPlans(c *gin.Context) {
	var plans []models.Plan
	if err := db.DB.Where("active = ?", true).Order("amount ASC").Find(&plans).Error; err != nil {
		utils.LogError(err, "Error fetching plans in GetAllPlans")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error fetching plans"})
		return
	}

	c.JSON(http.StatusOK, plans)
}
