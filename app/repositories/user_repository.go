package repositories

import (
	"context"

	"gorm.io/gorm"

	"github.com/shashiranjanraj/storefront/app/models"
)

type UserRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{db: db}
}

// FindByEmail looks up a user by email address.
func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	var u models.User
	err := r.db.WithContext(ctx).Where("email = ?", email).First(&u).Error
	if err != nil {
		return nil, translate(err, "User")
	}
	return &u, nil
}

func (r *UserRepository) FindByID(ctx context.Context, id string) (*models.User, error) {
	var u models.User
	if err := r.db.WithContext(ctx).First(&u, "id = ?", id).Error; err != nil {
		return nil, translate(err, "User")
	}
	return &u, nil
}

// EmailTaken reports whether another account already uses email.
func (r *UserRepository) EmailTaken(ctx context.Context, email, exceptID string) (bool, error) {
	var n int64
	q := r.db.WithContext(ctx).Model(&models.User{}).Where("email = ?", email)
	if exceptID != "" {
		q = q.Where("id <> ?", exceptID)
	}
	if err := q.Count(&n).Error; err != nil {
		return false, translate(err, "User")
	}
	return n > 0, nil
}

func (r *UserRepository) Create(ctx context.Context, u *models.User) error {
	return translate(r.db.WithContext(ctx).Create(u).Error, "User")
}

// UpdateProfile writes the editable profile fields.
func (r *UserRepository) UpdateProfile(ctx context.Context, u *models.User) error {
	err := r.db.WithContext(ctx).Model(u).Select("name", "email", "avatar_url", "updated_at").Updates(u).Error
	return translate(err, "User")
}

// List returns one page of users, newest first, and the total count.
func (r *UserRepository) List(ctx context.Context, p Page) ([]models.User, int64, error) {
	p = p.normalise()
	var (
		users []models.User
		total int64
	)
	q := r.db.WithContext(ctx).Model(&models.User{})
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, translate(err, "User")
	}
	if err := q.Order("created_at desc").Offset(p.offset()).Limit(p.Limit).Find(&users).Error; err != nil {
		return nil, 0, translate(err, "User")
	}
	return users, total, nil
}

// Delete removes a user and their cart. Orders are kept for accounting.
func (r *UserRepository) Delete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("user_id = ?", id).Delete(&models.CartItem{}).Error; err != nil {
			return translate(err, "Cart item")
		}
		res := tx.Delete(&models.User{}, "id = ?", id)
		if res.Error != nil {
			return translate(res.Error, "User")
		}
		if res.RowsAffected == 0 {
			return translate(gorm.ErrRecordNotFound, "User")
		}
		return nil
	})
}
