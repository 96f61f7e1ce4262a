package payments

import (
	"os"
	"time"

	stripe "github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/client"
	"github.com/stripe/stripe-go/v82/webhook"
)

// Client is the handle to the remote billing provider. Handlers receive one
// at construction so tests can substitute a double instead of reaching for a
// process-wide API key.
type Client interface {
	CreateCustomer(email string) (*stripe.Customer, error)
	AttachPaymentMethod(paymentMethodID, customerID string) error
	SetDefaultPaymentMethod(customerID, paymentMethodID string) error
	CreateCheckoutSession(customerID, priceID string) (*stripe.CheckoutSession, error)
	CreateSubscription(customerID, priceID string) (*stripe.Subscription, error)
	GetSubscription(stripeSubscriptionID string) (*stripe.Subscription, error)
	UpdateSubscriptionItemPrice(stripeSubscriptionID, itemID, priceID string, prorate bool) (*stripe.Subscription, error)
	CancelSubscription(stripeSubscriptionID string) (*stripe.Subscription, error)
	ListPrices(limit int64) ([]*stripe.Price, error)
	CreateRefund(paymentIntentID string, amount *int64) (*stripe.Refund, error)
	ConstructEvent(payload []byte, sigHeader string) (stripe.Event, error)
}

type stripeClient struct {
	api           *client.API
	webhookSecret string
}

// NewStripeClient builds the production client from STRIPE_SECRET_KEY and
// STRIPE_WEBHOOK_SECRET.
func NewStripeClient() Client {
	api := &client.API{}
	api.Init(os.Getenv("STRIPE_SECRET_KEY"), nil)
	return &stripeClient{
		api:           api,
		webhookSecret: os.Getenv("STRIPE_WEBHOOK_SECRET"),
	}
}

func (s *stripeClient) CreateCustomer(email string) (*stripe.Customer, error) {
	params := &stripe.CustomerParams{
		Email: stripe.String(email),
	}
	return s.api.Customers.New(params)
}

func (s *stripeClient) AttachPaymentMethod(paymentMethodID, customerID string) error {
	params := &stripe.PaymentMethodAttachParams{
		Customer: stripe.String(customerID),
	}
	_, err := s.api.PaymentMethods.Attach(paymentMethodID, params)
	return err
}

func (s *stripeClient) SetDefaultPaymentMethod(customerID, paymentMethodID string) error {
	params := &stripe.CustomerParams{
		InvoiceSettings: &stripe.CustomerInvoiceSettingsParams{
			DefaultPaymentMethod: stripe.String(paymentMethodID),
		},
	}
	_, err := s.api.Customers.Update(customerID, params)
	return err
}

func (s *stripeClient) CreateCheckoutSession(customerID, priceID string) (*stripe.CheckoutSession, error) {
	successURL := os.Getenv("STRIPE_SUCCESS_URL")
	if successURL == "" {
		successURL = "https://your-app.com/success?session_id={CHECKOUT_SESSION_ID}"
	}
	cancelURL := os.Getenv("STRIPE_CANCEL_URL")
	if cancelURL == "" {
		cancelURL = "https://your-app.com/cancel"
	}

	params := &stripe.CheckoutSessionParams{
		Customer:           stripe.String(customerID),
		PaymentMethodTypes: stripe.StringSlice([]string{"card"}),
		Mode:               stripe.String(string(stripe.CheckoutSessionModeSubscription)),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				Price:    stripe.String(priceID),
				Quantity: stripe.Int64(1),
			},
		},
		SuccessURL: stripe.String(successURL),
		CancelURL:  stripe.String(cancelURL),
	}
	return s.api.CheckoutSessions.New(params)
}

func (s *stripeClient) CreateSubscription(customerID, priceID string) (*stripe.Subscription, error) {
	params := &stripe.SubscriptionParams{
		Customer: stripe.String(customerID),
		Items: []*stripe.SubscriptionItemsParams{
			{Price: stripe.String(priceID)},
		},
	}
	params.AddExpand("latest_invoice.payment_intent")
	return s.api.Subscriptions.New(params)
}

func (s *stripeClient) GetSubscription(stripeSubscriptionID string) (*stripe.Subscription, error) {
	return s.api.Subscriptions.Get(stripeSubscriptionID, nil)
}

func (s *stripeClient) UpdateSubscriptionItemPrice(stripeSubscriptionID, itemID, priceID string, prorate bool) (*stripe.Subscription, error) {
	params := &stripe.SubscriptionParams{
		Items: []*stripe.SubscriptionItemsParams{
			{
				ID:    stripe.String(itemID),
				Price: stripe.String(priceID),
			},
		},
	}
	if prorate {
		params.ProrationBehavior = stripe.String("create_prorations")
	} else {
		// scheduled downgrade: no proration, and make sure a pending
		// cancellation does not swallow the plan change
		params.ProrationBehavior = stripe.String("none")
		params.CancelAtPeriodEnd = stripe.Bool(false)
	}
	return s.api.Subscriptions.Update(stripeSubscriptionID, params)
}

func (s *stripeClient) CancelSubscription(stripeSubscriptionID string) (*stripe.Subscription, error) {
	return s.api.Subscriptions.Cancel(stripeSubscriptionID, nil)
}

func (s *stripeClient) ListPrices(limit int64) ([]*stripe.Price, error) {
	params := &stripe.PriceListParams{}
	params.Limit = stripe.Int64(limit)
	params.AddExpand("data.product")

	var prices []*stripe.Price
	iter := s.api.Prices.List(params)
	for iter.Next() {
		prices = append(prices, iter.Price())
	}
	return prices, iter.Err()
}

func (s *stripeClient) CreateRefund(paymentIntentID string, amount *int64) (*stripe.Refund, error) {
	params := &stripe.RefundParams{
		PaymentIntent: stripe.String(paymentIntentID),
	}
	if amount != nil {
		params.Amount = stripe.Int64(*amount)
	}
	return s.api.Refunds.New(params)
}

func (s *stripeClient) ConstructEvent(payload []byte, sigHeader string) (stripe.Event, error) {
	return webhook.ConstructEvent(payload, sigHeader, s.webhookSecret)
}

// SubscriptionPeriod reads the current billing period bounds. Recent Stripe
// API versions keep them on the subscription item, not the subscription.
func SubscriptionPeriod(sub *stripe.Subscription) (start, end time.Time) {
	if sub.Items != nil && len(sub.Items.Data) > 0 {
		item := sub.Items.Data[0]
		start = time.Unix(item.CurrentPeriodStart, 0)
		end = time.Unix(item.CurrentPeriodEnd, 0)
	}
	return start, end
}

// CanceledAt converts the provider's unix timestamp, nil when never canceled.
func CanceledAt(sub *stripe.Subscription) *time.Time {
	if sub.CanceledAt == 0 {
		return nil
	}
	t := time.Unix(sub.CanceledAt, 0)
	return &t
}
