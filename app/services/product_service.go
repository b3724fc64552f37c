package services

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/shashiranjanraj/storefront/app/models"
	"github.com/shashiranjanraj/storefront/app/repositories"
	"github.com/shashiranjanraj/storefront/pkg/apperr"
	"github.com/shashiranjanraj/storefront/pkg/auth"
)

// ProductInput is the editable part of a product.
type ProductInput struct {
	Name        string
	Description string
	Price       decimal.Decimal
	Quantity    int
	Category    string
	ImageURL    string
}

func (in ProductInput) check() error {
	fields := map[string]string{}
	if !in.Price.IsPositive() {
		fields["price"] = "The price must be greater than 0."
	}
	if in.Quantity < 0 {
		fields["quantity"] = "The quantity must be at least 0."
	}
	known := false
	for _, c := range models.Categories {
		if c == in.Category {
			known = true
			break
		}
	}
	if !known {
		fields["category"] = "The selected category is invalid."
	}
	if len(fields) > 0 {
		return apperr.Invalid(fields)
	}
	return nil
}

type ProductService struct {
	products *repositories.ProductRepository
}

func NewProductService(products *repositories.ProductRepository) *ProductService {
	return &ProductService{products: products}
}

func (s *ProductService) List(ctx context.Context, f repositories.ProductFilter) ([]models.Product, int64, error) {
	return s.products.List(ctx, f)
}

func (s *ProductService) Get(ctx context.Context, id string) (*models.Product, error) {
	return s.products.FindByID(ctx, id)
}

// Create lists a new product owned by the caller.
func (s *ProductService) Create(ctx context.Context, caller *auth.Claims, in ProductInput) (*models.Product, error) {
	if err := in.check(); err != nil {
		return nil, err
	}
	p := &models.Product{SellerID: caller.UserID}
	apply(p, in)
	if err := s.products.Create(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

func (s *ProductService) Update(ctx context.Context, caller *auth.Claims, id string, in ProductInput) (*models.Product, error) {
	if err := in.check(); err != nil {
		return nil, err
	}
	p, err := s.owned(ctx, caller, id)
	if err != nil {
		return nil, err
	}
	apply(p, in)
	if err := s.products.Update(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

func (s *ProductService) Delete(ctx context.Context, caller *auth.Claims, id string) error {
	if _, err := s.owned(ctx, caller, id); err != nil {
		return err
	}
	return s.products.Delete(ctx, id)
}

// owned loads id and checks the caller is its seller or an admin.
func (s *ProductService) owned(ctx context.Context, caller *auth.Claims, id string) (*models.Product, error) {
	p, err := s.products.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !caller.IsAdmin() && p.SellerID != caller.UserID {
		return nil, apperr.Forbidden("You do not own this product")
	}
	return p, nil
}

func apply(p *models.Product, in ProductInput) {
	p.Name = in.Name
	p.Description = in.Description
	p.Price = in.Price.Round(2)
	p.Quantity = in.Quantity
	p.Category = in.Category
	p.ImageURL = in.ImageURL
}
