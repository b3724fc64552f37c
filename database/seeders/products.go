package seeders

import (
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/shashiranjanraj/storefront/app/models"
)

var demoProducts = []struct {
	name, category, price string
	qty                   int
}{
	{"Linen Shirt", "Clothing", "39.00", 25},
	{"Noise Cancelling Headphones", "Electronics", "199.99", 8},
	{"Ceramic Planter", "Home", "24.50", 40},
	{"Silver Hoop Earrings", "Jewelry", "59.00", 15},
	{"Harbour at Dusk (print)", "Art", "80.00", 5},
	{"The Pragmatic Shopper", "Books", "12.50", 60},
}

func seedProducts(db *gorm.DB) error {
	var seller models.User
	if err := db.Where("email = ?", SellerEmail).First(&seller).Error; err != nil {
		return err
	}
	for _, d := range demoProducts {
		p := models.Product{
			Name:        d.name,
			Description: "Demo listing.",
			Price:       decimal.RequireFromString(d.price),
			Quantity:    d.qty,
			Category:    d.category,
			SellerID:    seller.ID,
		}
		err := db.Where(models.Product{Name: d.name, SellerID: seller.ID}).
			Attrs(p).
			FirstOrCreate(&p).Error
		if err != nil {
			return err
		}
	}
	return nil
}
