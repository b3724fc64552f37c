package controllers

import (
	"strconv"

	"github.com/shopspring/decimal"

	"github.com/shashiranjanraj/storefront/app/models"
	"github.com/shashiranjanraj/storefront/app/repositories"
	"github.com/shashiranjanraj/storefront/app/services"
	"github.com/shashiranjanraj/storefront/pkg/ctx"
)

type ProductController struct {
	products *services.ProductService
}

func NewProductController(products *services.ProductService) *ProductController {
	return &ProductController{products: products}
}

type productRequest struct {
	Name        string          `json:"name" validate:"required,max=255"`
	Description string          `json:"description" validate:"max=5000"`
	Price       decimal.Decimal `json:"price" validate:"decimal=2"`
	Quantity    int             `json:"quantity" validate:"gte=0"`
	Category    string          `json:"category" validate:"required"`
	ImageURL    string          `json:"imageUrl" validate:"nullable,url,max=1024"`
}

func (in productRequest) input() services.ProductInput {
	return services.ProductInput{
		Name:        in.Name,
		Description: in.Description,
		Price:       in.Price,
		Quantity:    in.Quantity,
		Category:    in.Category,
		ImageURL:    in.ImageURL,
	}
}

type productPage struct {
	Items []models.Product `json:"items"`
	Total int64            `json:"total"`
	Page  int              `json:"page"`
}

func (h *ProductController) list(c *ctx.Context, sellerID string) {
	page, _ := strconv.Atoi(c.Query("page"))
	limit, _ := strconv.Atoi(c.Query("limit"))
	f := repositories.ProductFilter{
		Category: c.Query("category"),
		SellerID: sellerID,
		Search:   c.Query("q"),
		Page:     repositories.Page{Page: page, Limit: limit},
	}
	items, total, err := h.products.List(c.Context(), f)
	if err != nil {
		c.Fail(err)
		return
	}
	if page < 1 {
		page = 1
	}
	c.Success(productPage{Items: items, Total: total, Page: page})
}

// Index lists products. Supports ?category=, ?q=, ?page= and ?limit=.
func (h *ProductController) Index(c *ctx.Context) { h.list(c, c.Query("seller")) }

// BySeller lists one seller's products.
func (h *ProductController) BySeller(c *ctx.Context) { h.list(c, c.Param("id")) }

func (h *ProductController) Show(c *ctx.Context) {
	p, err := h.products.Get(c.Context(), c.Param("id"))
	if err != nil {
		c.Fail(err)
		return
	}
	c.Success(p)
}

func (h *ProductController) Store(c *ctx.Context) {
	var in productRequest
	if !c.BindJSON(&in) {
		return
	}
	p, err := h.products.Create(c.Context(), c.Claims(), in.input())
	if err != nil {
		c.Fail(err)
		return
	}
	c.Created(p)
}

func (h *ProductController) Update(c *ctx.Context) {
	var in productRequest
	if !c.BindJSON(&in) {
		return
	}
	p, err := h.products.Update(c.Context(), c.Claims(), c.Param("id"), in.input())
	if err != nil {
		c.Fail(err)
		return
	}
	c.Success(p)
}

func (h *ProductController) Destroy(c *ctx.Context) {
	if err := h.products.Delete(c.Context(), c.Claims(), c.Param("id")); err != nil {
		c.Fail(err)
		return
	}
	c.Message("Product deleted")
}
