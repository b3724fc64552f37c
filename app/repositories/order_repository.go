package repositories

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/shashiranjanraj/storefront/app/models"
)

type OrderRepository struct {
	db *gorm.DB
}

func NewOrderRepository(db *gorm.DB) *OrderRepository {
	return &OrderRepository{db: db}
}

func (r *OrderRepository) WithTx(tx *gorm.DB) *OrderRepository {
	return &OrderRepository{db: tx}
}

// Create inserts o together with its items.
func (r *OrderRepository) Create(ctx context.Context, o *models.Order) error {
	return translate(r.db.WithContext(ctx).Create(o).Error, "Order")
}

func (r *OrderRepository) FindByID(ctx context.Context, id string) (*models.Order, error) {
	return r.first(ctx, "id = ?", id)
}

func (r *OrderRepository) FindByIntent(ctx context.Context, intentID string) (*models.Order, error) {
	return r.first(ctx, "payment_intent_id = ?", intentID)
}

func (r *OrderRepository) FindByIdempotencyKey(ctx context.Context, userID, key string) (*models.Order, error) {
	return r.first(ctx, "user_id = ? AND idempotency_key = ?", userID, key)
}

func (r *OrderRepository) first(ctx context.Context, query string, args ...any) (*models.Order, error) {
	var o models.Order
	err := r.db.WithContext(ctx).Preload("Items").Where(query, args...).First(&o).Error
	if err != nil {
		return nil, translate(err, "Order")
	}
	return &o, nil
}

// ListByUser returns the user's orders, newest first.
func (r *OrderRepository) ListByUser(ctx context.Context, userID string) ([]models.Order, error) {
	var orders []models.Order
	err := r.db.WithContext(ctx).
		Preload("Items").
		Where("user_id = ?", userID).
		Order("created_at desc").
		Find(&orders).Error
	return orders, translate(err, "Order")
}

// Transition moves the order for intentID from one status to another in a
// single conditional update. It returns false when the order was not in
// from, meaning another caller already moved it.
func (r *OrderRepository) Transition(ctx context.Context, intentID, from, to, reason string) (bool, error) {
	updates := map[string]any{"status": to, "updated_at": time.Now()}
	if reason != "" {
		updates["failure_reason"] = reason
	}
	res := r.db.WithContext(ctx).Model(&models.Order{}).
		Where("payment_intent_id = ? AND status = ?", intentID, from).
		Updates(updates)
	if res.Error != nil {
		return false, translate(res.Error, "Order")
	}
	return res.RowsAffected == 1, nil
}

// Stale returns up to limit PENDING orders created before cutoff.
func (r *OrderRepository) Stale(ctx context.Context, cutoff time.Time, limit int) ([]models.Order, error) {
	var orders []models.Order
	err := r.db.WithContext(ctx).
		Preload("Items").
		Where("status = ? AND created_at < ?", models.OrderPending, cutoff).
		Order("created_at asc").
		Limit(limit).
		Find(&orders).Error
	return orders, translate(err, "Order")
}
