package repositories

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/shashiranjanraj/storefront/app/models"
)

type CartRepository struct {
	db *gorm.DB
}

func NewCartRepository(db *gorm.DB) *CartRepository {
	return &CartRepository{db: db}
}

func (r *CartRepository) WithTx(tx *gorm.DB) *CartRepository {
	return &CartRepository{db: tx}
}

// List returns the user's cart oldest line first, each with its product.
func (r *CartRepository) List(ctx context.Context, userID string) ([]models.CartItem, error) {
	var items []models.CartItem
	err := r.db.WithContext(ctx).
		Preload("Product").
		Where("user_id = ?", userID).
		Order("created_at asc, id asc").
		Find(&items).Error
	if err != nil {
		return nil, translate(err, "Cart item")
	}
	return items, nil
}

// Add inserts a line or, when the user already has one for the product,
// adds quantity to it. Both cases are a single statement so concurrent adds
// never lose an increment or create a duplicate line.
func (r *CartRepository) Add(ctx context.Context, userID, productID string, quantity int) (*models.CartItem, error) {
	db := r.db.WithContext(ctx)
	item := models.CartItem{UserID: userID, ProductID: productID, Quantity: quantity}

	err := db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "user_id"}, {Name: "product_id"}},
		DoUpdates: clause.Assignments(map[string]any{
			"quantity":   gorm.Expr("cart_items.quantity + ?", quantity),
			"updated_at": time.Now(),
		}),
	}).Create(&item).Error
	if err != nil {
		return nil, translate(err, "Cart item")
	}

	// On conflict the generated id is discarded, so read the merged line back.
	var merged models.CartItem
	err = db.Preload("Product").
		Where("user_id = ? AND product_id = ?", userID, productID).
		First(&merged).Error
	if err != nil {
		return nil, translate(err, "Cart item")
	}
	return &merged, nil
}

func (r *CartRepository) FindByID(ctx context.Context, id string) (*models.CartItem, error) {
	var item models.CartItem
	if err := r.db.WithContext(ctx).First(&item, "id = ?", id).Error; err != nil {
		return nil, translate(err, "Cart item")
	}
	return &item, nil
}

// DeleteOwned removes item id only if it still belongs to userID.
func (r *CartRepository) DeleteOwned(ctx context.Context, userID, id string) (bool, error) {
	res := r.db.WithContext(ctx).Where("id = ? AND user_id = ?", id, userID).Delete(&models.CartItem{})
	if res.Error != nil {
		return false, translate(res.Error, "Cart item")
	}
	return res.RowsAffected == 1, nil
}

// Clear empties the user's cart and returns how many lines were removed.
func (r *CartRepository) Clear(ctx context.Context, userID string) (int64, error) {
	res := r.db.WithContext(ctx).Where("user_id = ?", userID).Delete(&models.CartItem{})
	return res.RowsAffected, translate(res.Error, "Cart item")
}

// RemoveProducts deletes the user's lines for the given products.
func (r *CartRepository) RemoveProducts(ctx context.Context, userID string, productIDs []string) error {
	if len(productIDs) == 0 {
		return nil
	}
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND product_id IN ?", userID, productIDs).
		Delete(&models.CartItem{}).Error
	return translate(err, "Cart item")
}
