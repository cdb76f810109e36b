package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	// CartTTL is the rolling expiry window refreshed on every cart mutation.
	CartTTL = 24 * time.Hour

	MinItemQuantity = 1
	MaxItemQuantity = 99
)

// Cart is a user's mutable pre-purchase basket. One cart per user; emptying it
// (checkout or clear) keeps the row as the user's persistent cart shell.
type Cart struct {
	ID          uint64          `json:"id" gorm:"primaryKey;autoIncrement"`
	UserID      uint64          `json:"userId" gorm:"uniqueIndex;not null"`
	TotalAmount decimal.Decimal `json:"totalAmount" gorm:"type:decimal(10,2);not null;default:0"`
	ExpiresAt   time.Time       `json:"expiresAt" gorm:"not null"`
	Items       []CartItem      `json:"items" gorm:"foreignKey:CartID;constraint:OnDelete:CASCADE"`
	CreatedAt   time.Time       `json:"createdAt" gorm:"autoCreateTime"`
	UpdatedAt   time.Time       `json:"updatedAt" gorm:"autoUpdateTime"`
}

func (c *Cart) IsEmpty() bool {
	return len(c.Items) == 0
}

func (c *Cart) IsExpired(now time.Time) bool {
	return now.After(c.ExpiresAt)
}

// ItemForProduct returns the cart line holding productID, or nil.
func (c *Cart) ItemForProduct(productID uint64) *CartItem {
	for i := range c.Items {
		if c.Items[i].ProductID == productID {
			return &c.Items[i]
		}
	}
	return nil
}

// CartItem is one line of a cart. Price is captured from the product's current
// effective price on every mutation touching the line; Subtotal always equals
// Quantity x Price.
type CartItem struct {
	ID        uint64          `json:"id" gorm:"primaryKey;autoIncrement"`
	CartID    uint64          `json:"cartId" gorm:"index;not null"`
	ProductID uint64          `json:"productId" gorm:"not null;index"`
	Quantity  int             `json:"quantity" gorm:"not null"`
	Price     decimal.Decimal `json:"price" gorm:"type:decimal(10,2);not null"`
	Subtotal  decimal.Decimal `json:"subtotal" gorm:"type:decimal(10,2);not null"`
	CreatedAt time.Time       `json:"createdAt" gorm:"autoCreateTime"`
	UpdatedAt time.Time       `json:"updatedAt" gorm:"autoUpdateTime"`
}

// CartIssueKind classifies a reconciliation warning raised when a cart is read.
type CartIssueKind string

const (
	IssueProductMissing    CartIssueKind = "product_missing"
	IssueUnavailable       CartIssueKind = "unavailable"
	IssueInsufficientStock CartIssueKind = "insufficient_stock"
	IssuePriceChanged      CartIssueKind = "price_changed"
)

// CartIssue flags a cart line that no longer matches live product state.
// Issues are warnings: the cart stays usable, but checkout re-validates.
type CartIssue struct {
	CartItemID     uint64          `json:"cartItemId"`
	ProductID      uint64          `json:"productId"`
	Kind           CartIssueKind   `json:"kind"`
	Message        string          `json:"message"`
	AvailableStock int             `json:"availableStock,omitempty"`
	PreviousPrice  decimal.Decimal `json:"previousPrice,omitempty"`
	CurrentPrice   decimal.Decimal `json:"currentPrice,omitempty"`
}

// CartSnapshot is what cart reads and mutations return to the caller: the
// refreshed cart plus any reconciliation warnings.
type CartSnapshot struct {
	Cart   *Cart       `json:"cart"`
	Issues []CartIssue `json:"issues,omitempty"`
}
