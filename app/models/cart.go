package models

// CartItem is one line of a user's cart. A user has at most one line per
// product; adding the same product again merges quantities.
type CartItem struct {
	Base
	UserID    string   `gorm:"size:36;not null;uniqueIndex:idx_cart_user_product" json:"userId"`
	ProductID string   `gorm:"size:36;not null;uniqueIndex:idx_cart_user_product" json:"productId"`
	Quantity  int      `gorm:"not null" json:"quantity"`
	Product   *Product `gorm:"foreignKey:ProductID;constraint:OnDelete:CASCADE" json:"product,omitempty"`
}
