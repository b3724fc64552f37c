package controllers

import (
	"net/http"

	"github.com/shashiranjanraj/storefront/app/services"
	"github.com/shashiranjanraj/storefront/pkg/apperr"
	"github.com/shashiranjanraj/storefront/pkg/ctx"
	"github.com/shashiranjanraj/storefront/pkg/idempotency"
)

type CheckoutController struct {
	checkout *services.CheckoutService
}

func NewCheckoutController(checkout *services.CheckoutService) *CheckoutController {
	return &CheckoutController{checkout: checkout}
}

type createIntentRequest struct {
	Amount    int64  `json:"amount" validate:"required,gt=0"`
	ProductID string `json:"productId" validate:"required,max=36"`
	Quantity  int    `json:"quantity" validate:"required,gte=1,lte=1000"`
	// UserID is accepted for older clients; it must match the token.
	UserID string `json:"userId" validate:"nullable,max=36"`
}

// idempotencyKey reads the header, writing 400 and returning false when it
// is malformed.
func idempotencyKey(c *ctx.Context) (string, bool) {
	key := idempotency.Key(c.R)
	if !idempotency.Valid(key) {
		c.Error(http.StatusBadRequest, "Invalid "+idempotency.Header+" header")
		return "", false
	}
	return key, true
}

// CreateIntent opens a buy-now payment and its PENDING order.
func (h *CheckoutController) CreateIntent(c *ctx.Context) {
	var in createIntentRequest
	if !c.BindJSON(&in) {
		return
	}
	if in.UserID != "" && in.UserID != c.UserID() {
		c.Fail(apperr.Forbidden("userId does not match the authenticated user"))
		return
	}
	key, ok := idempotencyKey(c)
	if !ok {
		return
	}

	res, err := h.checkout.CreateIntent(c.Context(), services.CreateIntentInput{
		UserID:         c.UserID(),
		ProductID:      in.ProductID,
		Quantity:       in.Quantity,
		Amount:         in.Amount,
		IdempotencyKey: key,
	})
	if err != nil {
		c.Fail(err)
		return
	}
	c.Success(res)
}

// CheckoutCart opens one payment for every line in the caller's cart.
func (h *CheckoutController) CheckoutCart(c *ctx.Context) {
	key, ok := idempotencyKey(c)
	if !ok {
		return
	}
	res, err := h.checkout.CreateCartIntent(c.Context(), c.UserID(), key)
	if err != nil {
		c.Fail(err)
		return
	}
	c.Success(res)
}

type confirmRequest struct {
	PaymentIntentID string `json:"paymentIntentId" validate:"required,max=255"`
	ProductID       string `json:"productId" validate:"nullable,max=36"`
	Quantity        *int   `json:"quantity" validate:"nullable,gte=1"`
}

// UpdateOrder confirms a paid intent and finalizes its order.
func (h *CheckoutController) UpdateOrder(c *ctx.Context) {
	var in confirmRequest
	if !c.BindJSON(&in) {
		return
	}
	order, err := h.checkout.ConfirmPayment(c.Context(), services.ConfirmInput{
		UserID:          c.UserID(),
		PaymentIntentID: in.PaymentIntentID,
		ProductID:       in.ProductID,
		Quantity:        in.Quantity,
	})
	if err != nil {
		c.Fail(err)
		return
	}
	c.Success(map[string]any{"order": order})
}
