package controllers

import (
	"github.com/shashiranjanraj/storefront/app/services"
	"github.com/shashiranjanraj/storefront/pkg/ctx"
	"github.com/shashiranjanraj/storefront/pkg/ws"
)

type OrderController struct {
	checkout *services.CheckoutService
	hub      *ws.Hub
}

func NewOrderController(checkout *services.CheckoutService, hub *ws.Hub) *OrderController {
	return &OrderController{checkout: checkout, hub: hub}
}

func (h *OrderController) Index(c *ctx.Context) {
	orders, err := h.checkout.ListOrders(c.Context(), c.UserID())
	if err != nil {
		c.Fail(err)
		return
	}
	c.Success(orders)
}

func (h *OrderController) Show(c *ctx.Context) {
	o, err := h.checkout.GetOrder(c.Context(), c.UserID(), c.Claims().IsAdmin(), c.Param("id"))
	if err != nil {
		c.Fail(err)
		return
	}
	c.Success(o)
}

// Stream upgrades to a websocket that receives the caller's order events.
func (h *OrderController) Stream(c *ctx.Context) {
	h.hub.Serve(c.W, c.R, c.UserID())
}
