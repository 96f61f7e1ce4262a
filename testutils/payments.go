package testutils

import (
	"fmt"

	stripe "github.com/stripe/stripe-go/v82"
)

// FakePaymentsClient is a payments.Client double. Set the function fields a
// test needs; unset ones fail loudly.
type FakePaymentsClient struct {
	CreateCustomerFn              func(email string) (*stripe.Customer, error)
	AttachPaymentMethodFn         func(paymentMethodID, customerID string) error
	SetDefaultPaymentMethodFn     func(customerID, paymentMethodID string) error
	CreateCheckoutSessionFn       func(customerID, priceID string) (*stripe.CheckoutSession, error)
	CreateSubscriptionFn          func(customerID, priceID string) (*stripe.Subscription, error)
	GetSubscriptionFn             func(stripeSubscriptionID string) (*stripe.Subscription, error)
	UpdateSubscriptionItemPriceFn func(stripeSubscriptionID, itemID, priceID string, prorate bool) (*stripe.Subscription, error)
	CancelSubscriptionFn          func(stripeSubscriptionID string) (*stripe.Subscription, error)
	ListPricesFn                  func(limit int64) ([]*stripe.Price, error)
	CreateRefundFn                func(paymentIntentID string, amount *int64) (*stripe.Refund, error)
	ConstructEventFn              func(payload []byte, sigHeader string) (stripe.Event, error)
}

func (f *FakePaymentsClient) CreateCustomer(email string) (*stripe.Customer, error) {
	if f.CreateCustomerFn == nil {
		return nil, fmt.Errorf("fake: CreateCustomer not configured")
	}
	return f.CreateCustomerFn(email)
}

func (f *FakePaymentsClient) AttachPaymentMethod(paymentMethodID, customerID string) error {
	if f.AttachPaymentMethodFn == nil {
		return fmt.Errorf("fake: AttachPaymentMethod not configured")
	}
	return f.AttachPaymentMethodFn(paymentMethodID, customerID)
}

func (f *FakePaymentsClient) SetDefaultPaymentMethod(customerID, paymentMethodID string) error {
	if f.SetDefaultPaymentMethodFn == nil {
		return fmt.Errorf("fake: SetDefaultPaymentMethod not configured")
	}
	return f.SetDefaultPaymentMethodFn(customerID, paymentMethodID)
}

func (f *FakePaymentsClient) CreateCheckoutSession(customerID, priceID string) (*stripe.CheckoutSession, error) {
	if f.CreateCheckoutSessionFn == nil {
		return nil, fmt.Errorf("fake: CreateCheckoutSession not configured")
	}
	return f.CreateCheckoutSessionFn(customerID, priceID)
}

func (f *FakePaymentsClient) CreateSubscription(customerID, priceID string) (*stripe.Subscription, error) {
	if f.CreateSubscriptionFn == nil {
		return nil, fmt.Errorf("fake: CreateSubscription not configured")
	}
	return f.CreateSubscriptionFn(customerID, priceID)
}

func (f *FakePaymentsClient) GetSubscription(stripeSubscriptionID string) (*stripe.Subscription, error) {
	if f.GetSubscriptionFn == nil {
		return nil, fmt.Errorf("fake: GetSubscription not configured")
	}
	return f.GetSubscriptionFn(stripeSubscriptionID)
}

func (f *FakePaymentsClient) UpdateSubscriptionItemPrice(stripeSubscriptionID, itemID, priceID string, prorate bool) (*stripe.Subscription, error) {
	if f.UpdateSubscriptionItemPriceFn == nil {
		return nil, fmt.Errorf("fake: UpdateSubscriptionItemPrice not configured")
	}
	return f.UpdateSubscriptionItemPriceFn(stripeSubscriptionID, itemID, priceID, prorate)
}

func (f *FakePaymentsClient) CancelSubscription(stripeSubscriptionID string) (*stripe.Subscription, error) {
	if f.CancelSubscriptionFn == nil {
		return nil, fmt.Errorf("fake: CancelSubscription not configured")
	}
	return f.CancelSubscriptionFn(stripeSubscriptionID)
}

func (f *FakePaymentsClient) ListPrices(limit int64) ([]*stripe.Price, error) {
	if f.ListPricesFn == nil {
		return nil, fmt.Errorf("fake: ListPrices not configured")
	}
	return f.ListPricesFn(limit)
}

func (f *FakePaymentsClient) CreateRefund(paymentIntentID string, amount *int64) (*stripe.Refund, error) {
	if f.CreateRefundFn == nil {
		return nil, fmt.Errorf("fake: CreateRefund not configured")
	}
	return f.CreateRefundFn(paymentIntentID, amount)
}

func (f *FakePaymentsClient) ConstructEvent(payload []byte, sigHeader string) (stripe.Event, error) {
	if f.ConstructEventFn == nil {
		return stripe.Event{}, fmt.Errorf("fake: ConstructEvent not configured")
	}
	return f.ConstructEventFn(payload, sigHeader)
}
