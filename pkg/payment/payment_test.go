package payment

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v76"

	"github.com/shashiranjanraj/storefront/pkg/apperr"
)

func stripeAgainst(t *testing.T, h http.HandlerFunc) *StripeGateway {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	backend := stripe.GetBackendWithConfig(stripe.APIBackend, &stripe.BackendConfig{
		URL:               stripe.String(srv.URL),
		HTTPClient:        srv.Client(),
		MaxNetworkRetries: stripe.Int64(0),
		LeveledLogger:     &stripe.LeveledLogger{Level: stripe.LevelNull},
	})
	return NewStripeWithBackend("sk_test_123", backend)
}

func TestStripeCreateIntent(t *testing.T) {
	g := stripeAgainst(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "key-1", r.Header.Get("Idempotency-Key"))
		assert.NoError(t, r.ParseForm())
		assert.Equal(t, "500", r.PostForm.Get("amount"))
		assert.Equal(t, "usd", r.PostForm.Get("currency"))
		assert.Equal(t, "u1", r.PostForm.Get("metadata[user_id]"))

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id":"pi_123","object":"payment_intent","client_secret":"pi_123_secret_x",` + //nolint:errcheck
			`"amount":500,"currency":"usd","status":"requires_payment_method","metadata":{"user_id":"u1"}}`))
	})

	in, err := g.CreateIntent(context.Background(), CreateParams{
		Amount:         500,
		Currency:       "usd",
		Metadata:       map[string]string{"user_id": "u1"},
		IdempotencyKey: "key-1",
	})
	require.NoError(t, err)
	assert.Equal(t, "pi_123", in.ID)
	assert.Equal(t, "pi_123_secret_x", in.ClientSecret)
	assert.Equal(t, StatusRequiresPaymentMethod, in.Status)
	assert.False(t, in.Paid())
}

func TestStripeRetrieveNotFound(t *testing.T) {
	g := stripeAgainst(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"error":{"type":"invalid_request_error","code":"resource_missing","message":"No such payment_intent"}}`)) //nolint:errcheck
	})

	_, err := g.RetrieveIntent(context.Background(), "pi_missing")
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
}

func TestStripeServerErrorIsUpstream(t *testing.T) {
	g := stripeAgainst(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"error":{"type":"api_error","message":"boom"}}`)) //nolint:errcheck
	})

	_, err := g.RetrieveIntent(context.Background(), "pi_1")
	assert.Equal(t, apperr.KindUpstreamUnavailable, apperr.KindOf(err))
}

func TestTranslateTransportError(t *testing.T) {
	err := translate(errors.New("dial tcp: connection refused"), "create payment intent")
	assert.Equal(t, apperr.KindUpstreamUnavailable, apperr.KindOf(err))

	err = translate(&stripe.Error{HTTPStatusCode: http.StatusBadRequest, Msg: "Amount must be at least 50 cents"}, "create payment intent")
	assert.Equal(t, apperr.KindInvalidArgument, apperr.KindOf(err))
	assert.Equal(t, "Amount must be at least 50 cents", apperr.Message(err))
}

func TestFakeGatewayLifecycle(t *testing.T) {
	ctx := context.Background()
	f := NewFake()
	g := Instrument(f, "fake")

	in, err := g.CreateIntent(ctx, CreateParams{Amount: 1000, Currency: "usd", IdempotencyKey: "k"})
	require.NoError(t, err)
	assert.Equal(t, StatusRequiresPaymentMethod, in.Status)

	again, err := g.CreateIntent(ctx, CreateParams{Amount: 1000, Currency: "usd", IdempotencyKey: "k"})
	require.NoError(t, err)
	assert.Equal(t, in.ID, again.ID)

	f.Succeed(in.ID)
	got, err := g.RetrieveIntent(ctx, in.ID)
	require.NoError(t, err)
	assert.True(t, got.Paid())

	_, err = g.CancelIntent(ctx, in.ID)
	assert.Equal(t, apperr.KindInvalidArgument, apperr.KindOf(err))

	_, err = g.RetrieveIntent(ctx, "pi_nope")
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))

	f.SetUnavailable(true)
	_, err = g.RetrieveIntent(ctx, in.ID)
	assert.ErrorIs(t, err, apperr.ErrUpstreamUnavailable)
	assert.Equal(t, 3, f.Calls("retrieve"))
}
