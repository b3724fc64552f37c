package payment

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/client"

	"github.com/shashiranjanraj/storefront/pkg/apperr"
)

// StripeGateway implements Gateway on the Stripe API.
type StripeGateway struct {
	sc *client.API
}

// NewStripe builds a Stripe gateway. The HTTP transport uses bounded
// timeouts so a hung provider surfaces as UpstreamUnavailable.
func NewStripe(secretKey string) *StripeGateway {
	httpClient := &http.Client{
		Timeout: 30 * time.Second,
		Transport: &http.Transport{
			DialContext:         (&net.Dialer{Timeout: 5 * time.Second, KeepAlive: 30 * time.Second}).DialContext,
			MaxIdleConns:        50,
			MaxIdleConnsPerHost: 10,
			IdleConnTimeout:     90 * time.Second,
			TLSHandshakeTimeout: 5 * time.Second,
		},
	}
	return &StripeGateway{sc: client.New(secretKey, stripe.NewBackends(httpClient))}
}

// NewStripeWithBackend is used when the API endpoint must be overridden.
func NewStripeWithBackend(secretKey string, backend stripe.Backend) *StripeGateway {
	return &StripeGateway{sc: client.New(secretKey, &stripe.Backends{
		API:     backend,
		Connect: backend,
		Uploads: backend,
	})}
}

func (g *StripeGateway) CreateIntent(ctx context.Context, p CreateParams) (*Intent, error) {
	params := &stripe.PaymentIntentParams{
		Amount:   stripe.Int64(p.Amount),
		Currency: stripe.String(p.Currency),
		AutomaticPaymentMethods: &stripe.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled: stripe.Bool(true),
		},
	}
	params.Context = ctx
	for k, v := range p.Metadata {
		params.AddMetadata(k, v)
	}
	if p.IdempotencyKey != "" {
		params.SetIdempotencyKey(p.IdempotencyKey)
	}

	pi, err := g.sc.PaymentIntents.New(params)
	if err != nil {
		return nil, translate(err, "create payment intent")
	}
	return fromStripe(pi), nil
}

func (g *StripeGateway) RetrieveIntent(ctx context.Context, id string) (*Intent, error) {
	params := &stripe.PaymentIntentParams{}
	params.Context = ctx

	pi, err := g.sc.PaymentIntents.Get(id, params)
	if err != nil {
		return nil, translate(err, "retrieve payment intent")
	}
	return fromStripe(pi), nil
}

func (g *StripeGateway) CancelIntent(ctx context.Context, id string) (*Intent, error) {
	params := &stripe.PaymentIntentCancelParams{
		CancellationReason: stripe.String(string(stripe.PaymentIntentCancellationReasonAbandoned)),
	}
	params.Context = ctx

	pi, err := g.sc.PaymentIntents.Cancel(id, params)
	if err != nil {
		return nil, translate(err, "cancel payment intent")
	}
	return fromStripe(pi), nil
}

func fromStripe(pi *stripe.PaymentIntent) *Intent {
	return &Intent{
		ID:           pi.ID,
		ClientSecret: pi.ClientSecret,
		Amount:       pi.Amount,
		Currency:     string(pi.Currency),
		Status:       Status(pi.Status),
		Metadata:     pi.Metadata,
	}
}

// translate maps a Stripe error onto the application's error kinds.
func translate(err error, op string) error {
	var se *stripe.Error
	if !errors.As(err, &se) {
		return apperr.Upstream(err, "payment provider unavailable")
	}
	switch {
	case se.HTTPStatusCode == http.StatusNotFound:
		return apperr.Wrap(err, apperr.KindNotFound, "Payment intent not found")
	case se.HTTPStatusCode == http.StatusTooManyRequests:
		return apperr.Upstream(err, "payment provider unavailable")
	case se.HTTPStatusCode >= 400 && se.HTTPStatusCode < 500:
		msg := se.Msg
		if msg == "" {
			msg = "payment provider rejected the request to " + op
		}
		return apperr.Wrap(err, apperr.KindInvalidArgument, msg)
	default:
		return apperr.Upstream(err, "payment provider unavailable")
	}
}
