package services

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/shashiranjanraj/storefront/app/models"
	"github.com/shashiranjanraj/storefront/app/repositories"
	"github.com/shashiranjanraj/storefront/pkg/apperr"
	"github.com/shashiranjanraj/storefront/pkg/cache"
	"github.com/shashiranjanraj/storefront/pkg/event"
	"github.com/shashiranjanraj/storefront/pkg/logger"
	"github.com/shashiranjanraj/storefront/pkg/metrics"
	"github.com/shashiranjanraj/storefront/pkg/outbox"
	"github.com/shashiranjanraj/storefront/pkg/payment"
)

var hundred = decimal.NewFromInt(100)

// CheckoutConfig tunes the checkout service.
type CheckoutConfig struct {
	Currency string
	// Topic receives the order events written to the outbox.
	Topic string
	// LockTTL bounds how long one confirmation may hold an intent's lock.
	LockTTL time.Duration
	// StrictAmount rejects a buy-now amount that differs from the
	// product's price times the quantity.
	StrictAmount bool
}

// CreateIntentInput is a buy-now checkout of one product.
type CreateIntentInput struct {
	UserID    string
	ProductID string
	Quantity  int
	// Amount is the total in minor currency units.
	Amount         int64
	IdempotencyKey string
}

// IntentResult is returned to the client to complete payment.
type IntentResult struct {
	ClientSecret    string `json:"clientSecret"`
	OrderID         string `json:"orderId"`
	PaymentIntentID string `json:"paymentIntentId"`
}

// ConfirmInput asks to finalize the order paid through PaymentIntentID.
// ProductID and Quantity are optional and must match the order if given.
type ConfirmInput struct {
	UserID          string
	PaymentIntentID string
	ProductID       string
	Quantity        *int
}

// CheckoutService drives an order from payment intent to a final state.
//
// An order is written PENDING as soon as the provider returns an intent, so
// a payment that succeeds while the client is offline can still be
// finalized by the reconciler. Finalizing flips the status, takes the stock
// and records the outbox event in one transaction; the status flip is
// conditional, so running it twice is a no-op.
type CheckoutService struct {
	db       *gorm.DB
	orders   *repositories.OrderRepository
	products *repositories.ProductRepository
	carts    *repositories.CartRepository
	gateway  payment.Gateway
	locker   cache.Locker
	bus      *event.Bus
	cfg      CheckoutConfig
}

func NewCheckoutService(
	db *gorm.DB,
	gateway payment.Gateway,
	locker cache.Locker,
	bus *event.Bus,
	cfg CheckoutConfig,
) *CheckoutService {
	if cfg.Currency == "" {
		cfg.Currency = "usd"
	}
	if cfg.Topic == "" {
		cfg.Topic = "storefront.orders"
	}
	if cfg.LockTTL <= 0 {
		cfg.LockTTL = 30 * time.Second
	}
	return &CheckoutService{
		db:       db,
		orders:   repositories.NewOrderRepository(db),
		products: repositories.NewProductRepository(db),
		carts:    repositories.NewCartRepository(db),
		gateway:  gateway,
		locker:   locker,
		bus:      bus,
		cfg:      cfg,
	}
}

// CreateIntent starts a buy-now checkout.
func (s *CheckoutService) CreateIntent(ctx context.Context, in CreateIntentInput) (*IntentResult, error) {
	fields := map[string]string{}
	if in.Amount <= 0 {
		fields["amount"] = "The amount must be a positive integer in the smallest currency unit."
	}
	if in.Quantity < 1 {
		fields["quantity"] = "The quantity must be at least 1."
	}
	if len(fields) > 0 {
		return nil, apperr.Invalid(fields)
	}

	if res, err := s.replay(ctx, in.UserID, in.IdempotencyKey); res != nil || err != nil {
		return res, err
	}

	p, err := s.products.FindByID(ctx, in.ProductID)
	if err != nil {
		return nil, err
	}
	// Stock is only taken at confirmation; a sold-out product fails there.
	if s.cfg.StrictAmount {
		expected := p.Price.Mul(decimal.NewFromInt(int64(in.Quantity))).Mul(hundred)
		if !expected.Equal(decimal.NewFromInt(in.Amount)) {
			return nil, apperr.Invalid(map[string]string{
				"amount": fmt.Sprintf("The amount must equal price x quantity (%s).", expected.StringFixed(0)),
			})
		}
	}

	total := decimal.New(in.Amount, -2)
	order := &models.Order{
		UserID:   in.UserID,
		Status:   models.OrderPending,
		Total:    total,
		Currency: s.cfg.Currency,
		Source:   models.SourceBuyNow,
		Items: []models.OrderItem{{
			ProductID: p.ID,
			Name:      p.Name,
			Quantity:  in.Quantity,
			UnitPrice: total.Div(decimal.NewFromInt(int64(in.Quantity))).Round(2),
		}},
	}
	metadata := map[string]string{
		"user_id":    in.UserID,
		"product_id": p.ID,
		"quantity":   strconv.Itoa(in.Quantity),
	}
	return s.open(ctx, order, in.Amount, metadata, in.IdempotencyKey)
}

// CreateCartIntent checks out the caller's whole cart as one order with one
// line per cart item, paid through a single intent for the subtotal.
func (s *CheckoutService) CreateCartIntent(ctx context.Context, userID, idempotencyKey string) (*IntentResult, error) {
	if res, err := s.replay(ctx, userID, idempotencyKey); res != nil || err != nil {
		return res, err
	}

	lines, err := s.carts.List(ctx, userID)
	if err != nil {
		return nil, err
	}
	if len(lines) == 0 {
		return nil, apperr.InvalidArgument("Cart is empty")
	}

	subtotal := decimal.Zero
	items := make([]models.OrderItem, 0, len(lines))
	for _, l := range lines {
		if l.Product == nil {
			return nil, apperr.Conflict("A product in your cart is no longer available")
		}
		if l.Product.Quantity < l.Quantity {
			return nil, apperr.Conflict(fmt.Sprintf("%s is out of stock", l.Product.Name))
		}
		subtotal = subtotal.Add(l.Product.Price.Mul(decimal.NewFromInt(int64(l.Quantity))))
		items = append(items, models.OrderItem{
			ProductID: l.ProductID,
			Name:      l.Product.Name,
			Quantity:  l.Quantity,
			UnitPrice: l.Product.Price,
		})
	}

	order := &models.Order{
		UserID:   userID,
		Status:   models.OrderPending,
		Total:    subtotal,
		Currency: s.cfg.Currency,
		Source:   models.SourceCart,
		Items:    items,
	}
	metadata := map[string]string{
		"user_id": userID,
		"source":  models.SourceCart,
		"lines":   strconv.Itoa(len(items)),
	}
	return s.open(ctx, order, subtotal.Mul(hundred).IntPart(), metadata, idempotencyKey)
}

// replay returns the earlier result for a reused idempotency key.
func (s *CheckoutService) replay(ctx context.Context, userID, key string) (*IntentResult, error) {
	if key == "" {
		return nil, nil
	}
	o, err := s.orders.FindByIdempotencyKey(ctx, userID, key)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	intent, err := s.gateway.RetrieveIntent(ctx, o.PaymentIntentID)
	if err != nil {
		return nil, err
	}
	logger.WithCtx(ctx).Info("checkout: replayed idempotent request", "order_id", o.ID)
	return &IntentResult{ClientSecret: intent.ClientSecret, OrderID: o.ID, PaymentIntentID: o.PaymentIntentID}, nil
}

// open creates the provider intent and then the PENDING order with its
// order.created event.
func (s *CheckoutService) open(ctx context.Context, order *models.Order, amount int64, metadata map[string]string, key string) (*IntentResult, error) {
	// The provider's key space is shared by every user.
	gatewayKey := ""
	if key != "" {
		gatewayKey = order.UserID + ":" + key
	}
	intent, err := s.gateway.CreateIntent(ctx, payment.CreateParams{
		Amount:         amount,
		Currency:       s.cfg.Currency,
		Metadata:       metadata,
		IdempotencyKey: gatewayKey,
	})
	if err != nil {
		return nil, err
	}

	order.PaymentIntentID = intent.ID
	if key != "" {
		order.IdempotencyKey = &key
	}

	ev := event.New(event.OrderCreated, "", order.UserID, map[string]any{
		"payment_intent_id": intent.ID,
		"total":             order.Total.StringFixed(2),
		"currency":          order.Currency,
		"source":            order.Source,
	})
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.orders.WithTx(tx).Create(ctx, order); err != nil {
			return err
		}
		ev.OrderID = order.ID
		return outbox.Insert(tx, s.cfg.Topic, ev)
	})
	if err != nil {
		// A concurrent request with the same key may have won the insert.
		if res, rerr := s.replay(ctx, order.UserID, key); res != nil && rerr == nil {
			return res, nil
		}
		return nil, err
	}

	metrics.IntentsCreated.WithLabelValues(order.Source).Inc()
	logger.WithCtx(ctx).Info("checkout: intent created",
		"order_id", order.ID, "payment_intent_id", intent.ID, "source", order.Source)
	s.bus.Fire(ev)

	return &IntentResult{ClientSecret: intent.ClientSecret, OrderID: order.ID, PaymentIntentID: intent.ID}, nil
}

// ConfirmPayment finalizes the order paid through in.PaymentIntentID. The
// provider is always asked for the intent's status; the client's word is
// never taken for it. Calling it again for a delivered order returns the
// order unchanged.
func (s *CheckoutService) ConfirmPayment(ctx context.Context, in ConfirmInput) (*models.Order, error) {
	if in.PaymentIntentID == "" {
		return nil, apperr.Invalid(map[string]string{"paymentIntentId": "The paymentIntentId field is required."})
	}

	release, err := s.lock(ctx, in.PaymentIntentID)
	if err != nil {
		return nil, err
	}
	defer release()

	intent, err := s.gateway.RetrieveIntent(ctx, in.PaymentIntentID)
	if err != nil {
		return nil, err
	}
	if !intent.Paid() {
		metrics.Confirmations.WithLabelValues("incomplete").Inc()
		return nil, apperr.PaymentIncomplete(fmt.Sprintf("Payment not completed (status %s)", intent.Status))
	}

	order, err := s.orders.FindByIntent(ctx, in.PaymentIntentID)
	if err != nil {
		return nil, err
	}
	if order.UserID != in.UserID {
		return nil, apperr.Forbidden("Order belongs to another user")
	}
	if err := matchItems(order, in.ProductID, in.Quantity); err != nil {
		return nil, err
	}

	switch order.Status {
	case models.OrderDelivered:
		metrics.Confirmations.WithLabelValues("already_confirmed").Inc()
		return order, nil
	case models.OrderPending:
	default:
		return nil, apperr.Conflict(fmt.Sprintf("Order is %s", order.Status))
	}

	return s.finalize(ctx, order)
}

func matchItems(order *models.Order, productID string, quantity *int) error {
	if productID == "" && quantity == nil {
		return nil
	}
	for _, it := range order.Items {
		if productID != "" && it.ProductID != productID {
			continue
		}
		if quantity != nil && it.Quantity != *quantity {
			return apperr.Invalid(map[string]string{"quantity": "The quantity does not match the order."})
		}
		return nil
	}
	return apperr.Invalid(map[string]string{"productId": "The product is not part of this order."})
}

func (s *CheckoutService) lock(ctx context.Context, intentID string) (func(), error) {
	release, err := s.locker.Acquire(ctx, "intent:"+intentID, s.cfg.LockTTL)
	if err != nil {
		if errors.Is(err, cache.ErrLockTimeout) {
			return nil, apperr.Conflict("Payment confirmation already in progress")
		}
		return nil, apperr.Upstream(err, "lock unavailable")
	}
	return release, nil
}

// outOfStock aborts the finalize transaction.
type outOfStock struct{ item models.OrderItem }

func (e *outOfStock) Error() string {
	return fmt.Sprintf("insufficient stock for product %s (want %d)", e.item.ProductID, e.item.Quantity)
}

// finalize moves a paid PENDING order to DELIVERED. Status, stock and the
// outbox record are written in one transaction. If any line cannot be
// covered by stock nothing is taken and the order becomes FAILED.
func (s *CheckoutService) finalize(ctx context.Context, order *models.Order) (*models.Order, error) {
	ev := event.New(event.OrderConfirmed, order.ID, order.UserID, map[string]any{
		"payment_intent_id": order.PaymentIntentID,
		"total":             order.Total.StringFixed(2),
	})

	moved := false
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		ok, err := s.orders.WithTx(tx).Transition(ctx, order.PaymentIntentID, models.OrderPending, models.OrderDelivered, "")
		if err != nil || !ok {
			return err
		}
		moved = true

		products := s.products.WithTx(tx)
		productIDs := make([]string, 0, len(order.Items))
		for _, it := range order.Items {
			taken, err := products.Decrement(ctx, it.ProductID, it.Quantity)
			if err != nil {
				return err
			}
			if !taken {
				return &outOfStock{item: it}
			}
			productIDs = append(productIDs, it.ProductID)
		}

		if order.Source == models.SourceCart {
			if err := s.carts.WithTx(tx).RemoveProducts(ctx, order.UserID, productIDs); err != nil {
				return err
			}
		}
		return outbox.Insert(tx, s.cfg.Topic, ev)
	})

	var oos *outOfStock
	switch {
	case errors.As(err, &oos):
		metrics.Confirmations.WithLabelValues("out_of_stock").Inc()
		if ferr := s.settle(ctx, order, models.OrderFailed, event.OrderFailed, oos.Error()); ferr != nil {
			return nil, ferr
		}
		return nil, apperr.Conflict("Product is out of stock; the payment will be refunded")
	case err != nil:
		return nil, err
	}

	if moved {
		metrics.Confirmations.WithLabelValues("confirmed").Inc()
		logger.WithCtx(ctx).Info("checkout: order confirmed", "order_id", order.ID, "payment_intent_id", order.PaymentIntentID)
		s.bus.Fire(ev)
	} else {
		metrics.Confirmations.WithLabelValues("already_confirmed").Inc()
	}
	return s.orders.FindByIntent(ctx, order.PaymentIntentID)
}

// settle moves a PENDING order to a terminal failure status with its event.
func (s *CheckoutService) settle(ctx context.Context, order *models.Order, status, eventType, reason string) error {
	ev := event.New(eventType, order.ID, order.UserID, map[string]any{
		"payment_intent_id": order.PaymentIntentID,
		"reason":            reason,
	})
	moved := false
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		ok, err := s.orders.WithTx(tx).Transition(ctx, order.PaymentIntentID, models.OrderPending, status, reason)
		if err != nil || !ok {
			return err
		}
		moved = true
		return outbox.Insert(tx, s.cfg.Topic, ev)
	})
	if err != nil {
		return err
	}
	if moved {
		logger.WithCtx(ctx).Warn("checkout: order settled", "order_id", order.ID, "status", status, "reason", reason)
		s.bus.Fire(ev)
	}
	return nil
}

// GetOrder returns one of the caller's orders. Admins may read any order.
func (s *CheckoutService) GetOrder(ctx context.Context, userID string, isAdmin bool, id string) (*models.Order, error) {
	o, err := s.orders.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !isAdmin && o.UserID != userID {
		return nil, apperr.Forbidden("Order belongs to another user")
	}
	return o, nil
}

// ListOrders returns the caller's order history, newest first.
func (s *CheckoutService) ListOrders(ctx context.Context, userID string) ([]models.Order, error) {
	return s.orders.ListByUser(ctx, userID)
}
