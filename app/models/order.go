package models

import "github.com/shopspring/decimal"

// Order statuses. PENDING means a payment intent exists but payment has not
// been confirmed; DELIVERED means payment succeeded and stock was taken.
const (
	OrderPending   = "PENDING"
	OrderDelivered = "DELIVERED"
	OrderCancelled = "CANCELLED"
	OrderFailed    = "FAILED"
)

// Order sources.
const (
	SourceBuyNow = "buy_now"
	SourceCart   = "cart"
)

type Order struct {
	Base
	UserID          string          `gorm:"size:36;not null;index" json:"userId"`
	Status          string          `gorm:"size:16;not null;index" json:"status"`
	Total           decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"total"`
	Currency        string          `gorm:"size:3;not null" json:"currency"`
	PaymentIntentID string          `gorm:"size:255;not null;uniqueIndex" json:"paymentIntentId"`
	IdempotencyKey  *string         `gorm:"size:128" json:"-"`
	Source          string          `gorm:"size:16;not null" json:"source"`
	FailureReason   string          `gorm:"size:255" json:"failureReason,omitempty"`
	Items           []OrderItem     `gorm:"foreignKey:OrderID" json:"items"`
}

// Final reports whether the order can no longer change.
func (o *Order) Final() bool { return o.Status != OrderPending }

// OrderItem is an immutable line of an order. Name and UnitPrice are
// captured at checkout so later product edits do not rewrite history.
type OrderItem struct {
	Base
	OrderID   string          `gorm:"size:36;not null;index" json:"orderId"`
	ProductID string          `gorm:"size:36;not null;index" json:"productId"`
	Quantity  int             `gorm:"not null" json:"quantity"`
	Name      string          `gorm:"size:255" json:"name"`
	UnitPrice decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"unitPrice"`
}
