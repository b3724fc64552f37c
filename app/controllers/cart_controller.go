package controllers

import (
	"net/http"

	"github.com/shashiranjanraj/storefront/app/services"
	"github.com/shashiranjanraj/storefront/pkg/ctx"
)

type CartController struct {
	cart *services.CartService
}

func NewCartController(cart *services.CartService) *CartController {
	return &CartController{cart: cart}
}

type addToCartRequest struct {
	ProductID string `json:"productId" validate:"required,max=36"`
	Quantity  int    `json:"quantity" validate:"required,gte=1,lte=1000"`
}

func (h *CartController) Index(c *ctx.Context) {
	items, err := h.cart.List(c.Context(), c.UserID())
	if err != nil {
		c.Fail(err)
		return
	}
	c.Success(items)
}

// Add merges quantity into the caller's line for the product.
func (h *CartController) Add(c *ctx.Context) {
	var in addToCartRequest
	if !c.BindJSON(&in) {
		return
	}
	item, err := h.cart.Add(c.Context(), c.UserID(), in.ProductID, in.Quantity)
	if err != nil {
		c.Fail(err)
		return
	}
	c.Success(item)
}

// Remove deletes one line, addressed by path or by ?itemId=.
func (h *CartController) Remove(c *ctx.Context) {
	id := c.Param("id")
	if id == "" {
		id = c.Query("itemId")
	}
	if id == "" {
		c.Error(http.StatusBadRequest, "Item ID is required")
		return
	}
	if err := h.cart.Remove(c.Context(), c.UserID(), id); err != nil {
		c.Fail(err)
		return
	}
	c.Message("Item removed from cart")
}

// Clear empties the cart. With ?itemId= it removes only that line.
func (h *CartController) Clear(c *ctx.Context) {
	if c.Query("itemId") != "" {
		h.Remove(c)
		return
	}
	n, err := h.cart.Clear(c.Context(), c.UserID())
	if err != nil {
		c.Fail(err)
		return
	}
	c.Success(map[string]int64{"removed": n})
}
