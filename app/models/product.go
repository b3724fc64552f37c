package models

import "github.com/shopspring/decimal"

// Categories a product may belong to.
var Categories = []string{"Clothing", "Electronics", "Home", "Jewelry", "Art", "Books"}

// Product is a listing owned by a seller. Quantity is the stock on hand and
// is only ever decremented conditionally so it cannot go negative.
type Product struct {
	Base
	Name        string          `gorm:"size:255;not null;index" json:"name"`
	Description string          `gorm:"type:text" json:"description"`
	Price       decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"price"`
	Quantity    int             `gorm:"not null;default:0" json:"quantity"`
	Category    string          `gorm:"size:32;not null;index" json:"category"`
	ImageURL    string          `gorm:"size:1024" json:"imageUrl"`
	SellerID    string          `gorm:"size:36;not null;index" json:"sellerId"`
}
