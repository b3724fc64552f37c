package repositories

import (
	"context"

	"gorm.io/gorm"

	"github.com/shashiranjanraj/storefront/app/models"
)

// ProductFilter narrows List.
type ProductFilter struct {
	Category string
	SellerID string
	Search   string
	Page
}

type ProductRepository struct {
	db *gorm.DB
}

func NewProductRepository(db *gorm.DB) *ProductRepository {
	return &ProductRepository{db: db}
}

func (r *ProductRepository) WithTx(tx *gorm.DB) *ProductRepository {
	return &ProductRepository{db: tx}
}

func (r *ProductRepository) FindByID(ctx context.Context, id string) (*models.Product, error) {
	var p models.Product
	if err := r.db.WithContext(ctx).First(&p, "id = ?", id).Error; err != nil {
		return nil, translate(err, "Product")
	}
	return &p, nil
}

// FindMany loads the products with the given ids, keyed by id.
func (r *ProductRepository) FindMany(ctx context.Context, ids []string) (map[string]*models.Product, error) {
	var ps []models.Product
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&ps).Error; err != nil {
		return nil, translate(err, "Product")
	}
	out := make(map[string]*models.Product, len(ps))
	for i := range ps {
		out[ps[i].ID] = &ps[i]
	}
	return out, nil
}

func (r *ProductRepository) List(ctx context.Context, f ProductFilter) ([]models.Product, int64, error) {
	f.Page = f.Page.normalise()
	q := r.db.WithContext(ctx).Model(&models.Product{})
	if f.Category != "" {
		q = q.Where("category = ?", f.Category)
	}
	if f.SellerID != "" {
		q = q.Where("seller_id = ?", f.SellerID)
	}
	if f.Search != "" {
		q = q.Where("name LIKE ?", "%"+f.Search+"%")
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, translate(err, "Product")
	}
	var ps []models.Product
	if err := q.Order("created_at desc").Offset(f.offset()).Limit(f.Limit).Find(&ps).Error; err != nil {
		return nil, 0, translate(err, "Product")
	}
	return ps, total, nil
}

func (r *ProductRepository) Create(ctx context.Context, p *models.Product) error {
	return translate(r.db.WithContext(ctx).Create(p).Error, "Product")
}

// Update writes the editable fields of p. Zero values are written too.
func (r *ProductRepository) Update(ctx context.Context, p *models.Product) error {
	err := r.db.WithContext(ctx).Model(p).
		Select("name", "description", "price", "quantity", "category", "image_url", "updated_at").
		Updates(p).Error
	return translate(err, "Product")
}

// Delete removes a product and every cart line pointing at it.
func (r *ProductRepository) Delete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("product_id = ?", id).Delete(&models.CartItem{}).Error; err != nil {
			return translate(err, "Cart item")
		}
		res := tx.Delete(&models.Product{}, "id = ?", id)
		if res.Error != nil {
			return translate(res.Error, "Product")
		}
		if res.RowsAffected == 0 {
			return translate(gorm.ErrRecordNotFound, "Product")
		}
		return nil
	})
}

// Decrement takes n units of stock in a single conditional statement. It
// returns false, without changing anything, when fewer than n remain.
func (r *ProductRepository) Decrement(ctx context.Context, id string, n int) (bool, error) {
	res := r.db.WithContext(ctx).Model(&models.Product{}).
		Where("id = ? AND quantity >= ?", id, n).
		UpdateColumn("quantity", gorm.Expr("quantity - ?", n))
	if res.Error != nil {
		return false, translate(res.Error, "Product")
	}
	return res.RowsAffected == 1, nil
}
