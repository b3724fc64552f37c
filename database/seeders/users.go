package seeders

import (
	"gorm.io/gorm"

	"github.com/shashiranjanraj/storefront/app/models"
	"github.com/shashiranjanraj/storefront/pkg/auth"
)

// DemoPassword is the password of every seeded account.
const DemoPassword = "password123"

// Demo account emails.
const (
	AdminEmail   = "admin@storefront.test"
	SellerEmail  = "seller@storefront.test"
	ShopperEmail = "shopper@storefront.test"
)

func seedUsers(db *gorm.DB) error {
	hash, err := auth.HashPassword(DemoPassword)
	if err != nil {
		return err
	}
	demo := []models.User{
		{Name: "Admin", Email: AdminEmail, Role: auth.RoleAdmin},
		{Name: "Demo Seller", Email: SellerEmail, Role: auth.RoleSeller},
		{Name: "Demo Shopper", Email: ShopperEmail, Role: auth.RoleShopper},
	}
	for i := range demo {
		u := demo[i]
		u.Password = hash
		if err := db.Where(models.User{Email: u.Email}).FirstOrCreate(&u).Error; err != nil {
			return err
		}
	}
	return nil
}
