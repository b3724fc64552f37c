// Package payment talks to the payment provider through payment intents.
//
// A Gateway creates an intent for an amount in minor units, and later
// reports whether the shopper actually paid it. The storefront never trusts
// the client for that answer; confirmation always re-queries the gateway.
package payment

import (
	"context"
	"time"

	"github.com/shashiranjanraj/storefront/pkg/metrics"
)

// Status mirrors the provider's payment intent status.
type Status string

const (
	StatusRequiresPaymentMethod Status = "requires_payment_method"
	StatusRequiresConfirmation  Status = "requires_confirmation"
	StatusRequiresAction        Status = "requires_action"
	StatusProcessing            Status = "processing"
	StatusRequiresCapture       Status = "requires_capture"
	StatusCanceled              Status = "canceled"
	StatusSucceeded             Status = "succeeded"
)

// Intent is the provider's view of a payment.
type Intent struct {
	ID           string
	ClientSecret string
	Amount       int64
	Currency     string
	Status       Status
	Metadata     map[string]string
}

// Paid reports whether the funds were captured.
func (i *Intent) Paid() bool { return i != nil && i.Status == StatusSucceeded }

// CreateParams describes a new intent. Amount is in minor units.
type CreateParams struct {
	Amount         int64
	Currency       string
	Metadata       map[string]string
	IdempotencyKey string
}

// Gateway is the payment provider contract. Implementations return
// apperr errors: UpstreamUnavailable when the provider cannot be reached,
// NotFound for unknown intents and InvalidArgument for rejected requests.
type Gateway interface {
	CreateIntent(ctx context.Context, p CreateParams) (*Intent, error)
	RetrieveIntent(ctx context.Context, id string) (*Intent, error)
	CancelIntent(ctx context.Context, id string) (*Intent, error)
}

// Instrument records the latency of every call made through g.
func Instrument(g Gateway, driver string) Gateway {
	return &instrumented{next: g, driver: driver}
}

type instrumented struct {
	next   Gateway
	driver string
}

func (i *instrumented) CreateIntent(ctx context.Context, p CreateParams) (*Intent, error) {
	defer metrics.ObserveGateway("create", i.driver, time.Now())
	return i.next.CreateIntent(ctx, p)
}

func (i *instrumented) RetrieveIntent(ctx context.Context, id string) (*Intent, error) {
	defer metrics.ObserveGateway("retrieve", i.driver, time.Now())
	return i.next.RetrieveIntent(ctx, id)
}

func (i *instrumented) CancelIntent(ctx context.Context, id string) (*Intent, error) {
	defer metrics.ObserveGateway("cancel", i.driver, time.Now())
	return i.next.CancelIntent(ctx, id)
}
