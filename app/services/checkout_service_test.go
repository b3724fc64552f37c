package services_test

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/shashiranjanraj/storefront/app/models"
	"github.com/shashiranjanraj/storefront/app/repositories"
	"github.com/shashiranjanraj/storefront/app/services"
	"github.com/shashiranjanraj/storefront/internal/testdb"
	"github.com/shashiranjanraj/storefront/pkg/apperr"
	"github.com/shashiranjanraj/storefront/pkg/auth"
	"github.com/shashiranjanraj/storefront/pkg/cache"
	"github.com/shashiranjanraj/storefront/pkg/event"
	"github.com/shashiranjanraj/storefront/pkg/outbox"
	"github.com/shashiranjanraj/storefront/pkg/payment"
)

type checkoutFixture struct {
	db       *gorm.DB
	gateway  *payment.FakeGateway
	bus      *event.Bus
	checkout *services.CheckoutService
	shopper  *models.User
	seller   *models.User
}

func newCheckout(t *testing.T) *checkoutFixture {
	t.Helper()
	db := testdb.Open(t)
	f := &checkoutFixture{
		db:      db,
		gateway: payment.NewFake(),
		bus:     event.NewBus(),
		shopper: testdb.User(t, db, auth.RoleShopper),
		seller:  testdb.User(t, db, auth.RoleSeller),
	}
	f.checkout = f.service(services.CheckoutConfig{})
	return f
}

func (f *checkoutFixture) service(cfg services.CheckoutConfig) *services.CheckoutService {
	cfg.Currency = "usd"
	cfg.Topic = "storefront.orders"
	cfg.LockTTL = time.Second
	return services.NewCheckoutService(f.db, f.gateway, cache.NewMemoryLocker(), f.bus, cfg)
}

func (f *checkoutFixture) order(t *testing.T, intentID string) *models.Order {
	t.Helper()
	var o models.Order
	require.NoError(t, f.db.Preload("Items").First(&o, "payment_intent_id = ?", intentID).Error)
	return &o
}

func (f *checkoutFixture) outboxTypes(t *testing.T) []string {
	t.Helper()
	recs, err := outbox.FetchPending(context.Background(), f.db, 100)
	require.NoError(t, err)
	out := make([]string, 0, len(recs))
	for _, r := range recs {
		var ev event.Event
		require.NoError(t, jsonUnmarshal(r.Payload, &ev))
		out = append(out, ev.Type)
	}
	return out
}

func jsonUnmarshal(s string, v any) error { return json.Unmarshal([]byte(s), v) }

func (f *checkoutFixture) buyNow(t *testing.T, p *models.Product, qty int) *services.IntentResult {
	t.Helper()
	amount := p.Price.Mul(decimal.NewFromInt(int64(qty))).Mul(decimal.NewFromInt(100)).IntPart()
	res, err := f.checkout.CreateIntent(context.Background(), services.CreateIntentInput{
		UserID: f.shopper.ID, ProductID: p.ID, Quantity: qty, Amount: amount,
	})
	require.NoError(t, err)
	return res
}

func TestCreateIntentWritesPendingOrder(t *testing.T) {
	f := newCheckout(t)
	p := testdb.Product(t, f.db, f.seller.ID, "2.50", 10)

	res, err := f.checkout.CreateIntent(context.Background(), services.CreateIntentInput{
		UserID: f.shopper.ID, ProductID: p.ID, Quantity: 2, Amount: 500,
	})
	require.NoError(t, err)
	assert.NotEmpty(t, res.ClientSecret)

	o := f.order(t, res.PaymentIntentID)
	assert.Equal(t, res.OrderID, o.ID)
	assert.Equal(t, models.OrderPending, o.Status)
	assert.True(t, o.Total.Equal(decimal.RequireFromString("5.00")), "total %s", o.Total)
	require.Len(t, o.Items, 1)
	assert.Equal(t, p.ID, o.Items[0].ProductID)
	assert.Equal(t, 2, o.Items[0].Quantity)
	assert.True(t, o.Items[0].UnitPrice.Equal(decimal.RequireFromString("2.50")), "unit price %s", o.Items[0].UnitPrice)

	assert.Equal(t, []string{event.OrderCreated}, f.outboxTypes(t))
	assert.Equal(t, 10, testdb.Stock(t, f.db, p.ID))
}

func TestCreateIntentRejectsBadInput(t *testing.T) {
	f := newCheckout(t)
	p := testdb.Product(t, f.db, f.seller.ID, "2.50", 1)
	ctx := context.Background()

	cases := []struct {
		name string
		in   services.CreateIntentInput
		kind apperr.Kind
	}{
		{"zero amount", services.CreateIntentInput{ProductID: p.ID, Quantity: 1, Amount: 0}, apperr.KindInvalidArgument},
		{"negative quantity", services.CreateIntentInput{ProductID: p.ID, Quantity: -1, Amount: 250}, apperr.KindInvalidArgument},
		{"unknown product", services.CreateIntentInput{ProductID: "missing", Quantity: 1, Amount: 250}, apperr.KindNotFound},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			tc.in.UserID = f.shopper.ID
			_, err := f.checkout.CreateIntent(ctx, tc.in)
			assert.Equal(t, tc.kind, apperr.KindOf(err))
		})
	}

	var n int64
	f.db.Model(&models.Order{}).Count(&n)
	assert.Zero(t, n)
	assert.Zero(t, f.gateway.Calls("create"))
}

func TestCreateIntentAcceptsAnyPositiveAmount(t *testing.T) {
	f := newCheckout(t)
	p := testdb.Product(t, f.db, f.seller.ID, "10.00", 1)

	res, err := f.checkout.CreateIntent(context.Background(), services.CreateIntentInput{
		UserID: f.shopper.ID, ProductID: p.ID, Quantity: 2, Amount: 500,
	})
	require.NoError(t, err)

	o := f.order(t, res.PaymentIntentID)
	assert.True(t, o.Total.Equal(decimal.RequireFromString("5.00")), "total %s", o.Total)
	require.Len(t, o.Items, 1)
	assert.True(t, o.Items[0].UnitPrice.Equal(decimal.RequireFromString("2.50")), "unit price %s", o.Items[0].UnitPrice)
	assert.Equal(t, 1, testdb.Stock(t, f.db, p.ID))

	// Two units of a product with one in stock fail when confirmed.
	f.gateway.Succeed(res.PaymentIntentID)
	_, err = f.checkout.ConfirmPayment(context.Background(), services.ConfirmInput{
		UserID: f.shopper.ID, PaymentIntentID: res.PaymentIntentID,
	})
	assert.Equal(t, apperr.KindConflict, apperr.KindOf(err))
	assert.Equal(t, models.OrderFailed, f.order(t, res.PaymentIntentID).Status)
	assert.Equal(t, 1, testdb.Stock(t, f.db, p.ID))
}

func TestCreateIntentStrictAmount(t *testing.T) {
	f := newCheckout(t)
	strict := f.service(services.CheckoutConfig{StrictAmount: true})
	p := testdb.Product(t, f.db, f.seller.ID, "10.00", 5)
	ctx := context.Background()

	_, err := strict.CreateIntent(ctx, services.CreateIntentInput{
		UserID: f.shopper.ID, ProductID: p.ID, Quantity: 2, Amount: 500,
	})
	assert.Equal(t, apperr.KindInvalidArgument, apperr.KindOf(err))
	assert.Zero(t, f.gateway.Calls("create"))

	_, err = strict.CreateIntent(ctx, services.CreateIntentInput{
		UserID: f.shopper.ID, ProductID: p.ID, Quantity: 2, Amount: 2000,
	})
	require.NoError(t, err)
}

func TestCreateIntentIdempotencyKey(t *testing.T) {
	f := newCheckout(t)
	p := testdb.Product(t, f.db, f.seller.ID, "4.00", 5)
	in := services.CreateIntentInput{UserID: f.shopper.ID, ProductID: p.ID, Quantity: 1, Amount: 400, IdempotencyKey: "checkout-1"}

	first, err := f.checkout.CreateIntent(context.Background(), in)
	require.NoError(t, err)
	second, err := f.checkout.CreateIntent(context.Background(), in)
	require.NoError(t, err)

	assert.Equal(t, first.OrderID, second.OrderID)
	assert.Equal(t, first.ClientSecret, second.ClientSecret)
	assert.Equal(t, 1, f.gateway.Calls("create"))

	var n int64
	f.db.Model(&models.Order{}).Count(&n)
	assert.EqualValues(t, 1, n)
}

func TestCreateIntentIdempotencyKeyPerUser(t *testing.T) {
	f := newCheckout(t)
	other := testdb.User(t, f.db, auth.RoleShopper)
	p := testdb.Product(t, f.db, f.seller.ID, "4.00", 5)
	ctx := context.Background()

	mine, err := f.checkout.CreateIntent(ctx, services.CreateIntentInput{
		UserID: f.shopper.ID, ProductID: p.ID, Quantity: 1, Amount: 400, IdempotencyKey: "checkout-1",
	})
	require.NoError(t, err)
	theirs, err := f.checkout.CreateIntent(ctx, services.CreateIntentInput{
		UserID: other.ID, ProductID: p.ID, Quantity: 1, Amount: 400, IdempotencyKey: "checkout-1",
	})
	require.NoError(t, err)

	assert.NotEqual(t, mine.OrderID, theirs.OrderID)
	assert.NotEqual(t, mine.PaymentIntentID, theirs.PaymentIntentID)
	assert.Equal(t, 2, f.gateway.Calls("create"))
	assert.Equal(t, f.shopper.ID, f.order(t, mine.PaymentIntentID).UserID)
	assert.Equal(t, other.ID, f.order(t, theirs.PaymentIntentID).UserID)

	again, err := f.checkout.CreateIntent(ctx, services.CreateIntentInput{
		UserID: other.ID, ProductID: p.ID, Quantity: 1, Amount: 400, IdempotencyKey: "checkout-1",
	})
	require.NoError(t, err)
	assert.Equal(t, theirs.OrderID, again.OrderID)
	assert.Equal(t, 2, f.gateway.Calls("create"))
}

func TestCreateIntentGatewayDown(t *testing.T) {
	f := newCheckout(t)
	p := testdb.Product(t, f.db, f.seller.ID, "1.00", 5)
	f.gateway.SetUnavailable(true)

	_, err := f.checkout.CreateIntent(context.Background(), services.CreateIntentInput{
		UserID: f.shopper.ID, ProductID: p.ID, Quantity: 1, Amount: 100,
	})
	assert.ErrorIs(t, err, apperr.ErrUpstreamUnavailable)

	var n int64
	f.db.Model(&models.Order{}).Count(&n)
	assert.Zero(t, n)
}

func TestConfirmPaymentIncompleteMutatesNothing(t *testing.T) {
	f := newCheckout(t)
	p := testdb.Product(t, f.db, f.seller.ID, "2.50", 10)
	res := f.buyNow(t, p, 2)

	_, err := f.checkout.ConfirmPayment(context.Background(), services.ConfirmInput{
		UserID: f.shopper.ID, PaymentIntentID: res.PaymentIntentID,
	})
	assert.ErrorIs(t, err, apperr.ErrPaymentIncomplete)
	assert.Equal(t, models.OrderPending, f.order(t, res.PaymentIntentID).Status)
	assert.Equal(t, 10, testdb.Stock(t, f.db, p.ID))
	assert.Equal(t, []string{event.OrderCreated}, f.outboxTypes(t))
}

func TestConfirmPaymentUnknownIntent(t *testing.T) {
	f := newCheckout(t)
	_, err := f.checkout.ConfirmPayment(context.Background(), services.ConfirmInput{
		UserID: f.shopper.ID, PaymentIntentID: "pi_unknown",
	})
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestConfirmPaymentSucceededIntentWithoutOrder(t *testing.T) {
	f := newCheckout(t)
	p := testdb.Product(t, f.db, f.seller.ID, "1.00", 3)
	ctx := context.Background()

	intent, err := f.gateway.CreateIntent(ctx, payment.CreateParams{Amount: 100, Currency: "usd"})
	require.NoError(t, err)
	f.gateway.Succeed(intent.ID)

	_, err = f.checkout.ConfirmPayment(ctx, services.ConfirmInput{
		UserID: f.shopper.ID, PaymentIntentID: intent.ID,
	})
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	var n int64
	f.db.Model(&models.Order{}).Count(&n)
	assert.Zero(t, n)
	assert.Equal(t, 3, testdb.Stock(t, f.db, p.ID))
	assert.Empty(t, f.outboxTypes(t))
}

func TestConfirmPaymentIsIdempotent(t *testing.T) {
	f := newCheckout(t)
	p := testdb.Product(t, f.db, f.seller.ID, "2.50", 10)
	res := f.buyNow(t, p, 2)
	f.gateway.Succeed(res.PaymentIntentID)

	var confirmed []string
	f.bus.Listen(event.OrderConfirmed, func(e event.Event) { confirmed = append(confirmed, e.OrderID) })

	qty := 2
	in := services.ConfirmInput{UserID: f.shopper.ID, PaymentIntentID: res.PaymentIntentID, ProductID: p.ID, Quantity: &qty}
	for i := 0; i < 2; i++ {
		o, err := f.checkout.ConfirmPayment(context.Background(), in)
		require.NoError(t, err)
		assert.Equal(t, models.OrderDelivered, o.Status)
	}

	assert.Equal(t, 8, testdb.Stock(t, f.db, p.ID))
	assert.Equal(t, []string{res.OrderID}, confirmed)
	assert.Equal(t, []string{event.OrderCreated, event.OrderConfirmed}, f.outboxTypes(t))
}

func TestConfirmPaymentChecksOwnerAndItems(t *testing.T) {
	f := newCheckout(t)
	p := testdb.Product(t, f.db, f.seller.ID, "1.00", 10)
	res := f.buyNow(t, p, 3)
	f.gateway.Succeed(res.PaymentIntentID)
	ctx := context.Background()

	_, err := f.checkout.ConfirmPayment(ctx, services.ConfirmInput{UserID: f.seller.ID, PaymentIntentID: res.PaymentIntentID})
	assert.ErrorIs(t, err, apperr.ErrForbidden)

	wrong := 1
	_, err = f.checkout.ConfirmPayment(ctx, services.ConfirmInput{
		UserID: f.shopper.ID, PaymentIntentID: res.PaymentIntentID, ProductID: p.ID, Quantity: &wrong,
	})
	assert.ErrorIs(t, err, apperr.ErrInvalidArgument)

	_, err = f.checkout.ConfirmPayment(ctx, services.ConfirmInput{
		UserID: f.shopper.ID, PaymentIntentID: res.PaymentIntentID, ProductID: "other",
	})
	assert.ErrorIs(t, err, apperr.ErrInvalidArgument)

	assert.Equal(t, models.OrderPending, f.order(t, res.PaymentIntentID).Status)
	assert.Equal(t, 10, testdb.Stock(t, f.db, p.ID))
}

func TestConcurrentConfirmationsNeverOversell(t *testing.T) {
	f := newCheckout(t)
	p := testdb.Product(t, f.db, f.seller.ID, "9.99", 1)

	a := f.buyNow(t, p, 1)
	b := f.buyNow(t, p, 1)
	f.gateway.Succeed(a.PaymentIntentID)
	f.gateway.Succeed(b.PaymentIntentID)

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i, res := range []*services.IntentResult{a, b} {
		wg.Add(1)
		go func(i int, intentID string) {
			defer wg.Done()
			_, errs[i] = f.checkout.ConfirmPayment(context.Background(), services.ConfirmInput{
				UserID: f.shopper.ID, PaymentIntentID: intentID,
			})
		}(i, res.PaymentIntentID)
	}
	wg.Wait()

	succeeded, conflicts := 0, 0
	for _, err := range errs {
		switch {
		case err == nil:
			succeeded++
		case apperr.KindOf(err) == apperr.KindConflict:
			conflicts++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, succeeded)
	assert.Equal(t, 1, conflicts)
	assert.Equal(t, 0, testdb.Stock(t, f.db, p.ID))

	statuses := []string{f.order(t, a.PaymentIntentID).Status, f.order(t, b.PaymentIntentID).Status}
	assert.ElementsMatch(t, []string{models.OrderDelivered, models.OrderFailed}, statuses)
	assert.Contains(t, f.outboxTypes(t), event.OrderFailed)
}

func TestCartCheckout(t *testing.T) {
	f := newCheckout(t)
	ctx := context.Background()
	shirt := testdb.Product(t, f.db, f.seller.ID, "12.50", 5)
	book := testdb.Product(t, f.db, f.seller.ID, "7.25", 5)

	carts := repositories.NewCartRepository(f.db)
	_, err := carts.Add(ctx, f.shopper.ID, shirt.ID, 2)
	require.NoError(t, err)
	_, err = carts.Add(ctx, f.shopper.ID, book.ID, 1)
	require.NoError(t, err)

	res, err := f.checkout.CreateCartIntent(ctx, f.shopper.ID, "")
	require.NoError(t, err)

	o := f.order(t, res.PaymentIntentID)
	assert.Equal(t, models.SourceCart, o.Source)
	assert.Len(t, o.Items, 2)
	assert.True(t, o.Total.Equal(decimal.RequireFromString("32.25")), "total %s", o.Total)

	f.gateway.Succeed(res.PaymentIntentID)
	_, err = f.checkout.ConfirmPayment(ctx, services.ConfirmInput{UserID: f.shopper.ID, PaymentIntentID: res.PaymentIntentID})
	require.NoError(t, err)

	assert.Equal(t, 3, testdb.Stock(t, f.db, shirt.ID))
	assert.Equal(t, 4, testdb.Stock(t, f.db, book.ID))
	left, err := carts.List(ctx, f.shopper.ID)
	require.NoError(t, err)
	assert.Empty(t, left)
}

func TestCartCheckoutEmptyCart(t *testing.T) {
	f := newCheckout(t)
	_, err := f.checkout.CreateCartIntent(context.Background(), f.shopper.ID, "")
	assert.ErrorIs(t, err, apperr.ErrInvalidArgument)
}

func TestOrdersVisibleToOwnerOnly(t *testing.T) {
	f := newCheckout(t)
	p := testdb.Product(t, f.db, f.seller.ID, "1.00", 5)
	res := f.buyNow(t, p, 1)
	ctx := context.Background()

	o, err := f.checkout.GetOrder(ctx, f.shopper.ID, false, res.OrderID)
	require.NoError(t, err)
	assert.Equal(t, res.OrderID, o.ID)

	_, err = f.checkout.GetOrder(ctx, f.seller.ID, false, res.OrderID)
	assert.ErrorIs(t, err, apperr.ErrForbidden)

	_, err = f.checkout.GetOrder(ctx, f.seller.ID, true, res.OrderID)
	assert.NoError(t, err)

	list, err := f.checkout.ListOrders(ctx, f.shopper.ID)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}
