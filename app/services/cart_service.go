package services

import (
	"context"

	"github.com/shashiranjanraj/storefront/app/models"
	"github.com/shashiranjanraj/storefront/app/repositories"
	"github.com/shashiranjanraj/storefront/pkg/apperr"
)

// CartService manages a user's cart. It never caches; every call reads the
// store.
type CartService struct {
	carts    *repositories.CartRepository
	products *repositories.ProductRepository
}

func NewCartService(carts *repositories.CartRepository, products *repositories.ProductRepository) *CartService {
	return &CartService{carts: carts, products: products}
}

// List returns the cart with each line's current product.
func (s *CartService) List(ctx context.Context, userID string) ([]models.CartItem, error) {
	if userID == "" {
		return nil, apperr.Unauthenticated("Unauthorized")
	}
	return s.carts.List(ctx, userID)
}

// Add puts quantity units of productID in the cart, merging with an
// existing line for the same product.
func (s *CartService) Add(ctx context.Context, userID, productID string, quantity int) (*models.CartItem, error) {
	if userID == "" {
		return nil, apperr.Unauthenticated("Unauthorized")
	}
	if quantity < 1 {
		return nil, apperr.Invalid(map[string]string{"quantity": "The quantity must be at least 1."})
	}
	if _, err := s.products.FindByID(ctx, productID); err != nil {
		return nil, err
	}
	return s.carts.Add(ctx, userID, productID, quantity)
}

// Remove deletes one of the caller's lines. Lines of other users are left
// untouched and reported as Forbidden.
func (s *CartService) Remove(ctx context.Context, userID, itemID string) error {
	if userID == "" {
		return apperr.Unauthenticated("Unauthorized")
	}
	item, err := s.carts.FindByID(ctx, itemID)
	if err != nil {
		return err
	}
	if item.UserID != userID {
		return apperr.Forbidden("Cart item belongs to another user")
	}
	ok, err := s.carts.DeleteOwned(ctx, userID, itemID)
	if err != nil {
		return err
	}
	if !ok {
		return apperr.NotFound("Cart item not found")
	}
	return nil
}

// Clear empties the caller's cart.
func (s *CartService) Clear(ctx context.Context, userID string) (int64, error) {
	if userID == "" {
		return 0, apperr.Unauthenticated("Unauthorized")
	}
	return s.carts.Clear(ctx, userID)
}
