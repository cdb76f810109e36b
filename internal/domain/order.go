package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Order is the immutable record of a completed checkout. Only Status,
// PaymentStatus and the cancellation fields change after creation; an order is
// never deleted, only transitioned.
type Order struct {
	ID          uint64      `json:"id" gorm:"primaryKey;autoIncrement"`
	OrderNumber string      `json:"orderNumber" gorm:"uniqueIndex;not null;size:14"`
	UserID      uint64      `json:"userId" gorm:"not null;index"`
	Status      OrderStatus `json:"status" gorm:"type:varchar(16);not null"`

	Subtotal    decimal.Decimal `json:"subtotal" gorm:"type:decimal(10,2);not null"`
	DeliveryFee decimal.Decimal `json:"deliveryFee" gorm:"type:decimal(10,2);not null"`
	Tax         decimal.Decimal `json:"tax" gorm:"type:decimal(10,2);not null"`
	Discount    decimal.Decimal `json:"discount" gorm:"type:decimal(10,2);not null"`
	TotalAmount decimal.Decimal `json:"totalAmount" gorm:"type:decimal(10,2);not null"`

	// DeliveryAddress is a serialized snapshot taken at checkout, never a
	// reference to a live address row.
	DeliveryAddress string     `json:"deliveryAddress" gorm:"type:text;not null"`
	DeliveryDate    *time.Time `json:"deliveryDate,omitempty"`
	DeliverySlot    string     `json:"deliverySlot,omitempty" gorm:"size:32"`

	PaymentMethod string `json:"paymentMethod" gorm:"size:32;not null"`
	PaymentStatus string `json:"paymentStatus" gorm:"size:32;not null;default:'unpaid'"`
	OrderNotes    string `json:"orderNotes,omitempty" gorm:"type:text"`

	CancelledAt        *time.Time `json:"cancelledAt,omitempty"`
	CancellationReason string     `json:"cancellationReason,omitempty" gorm:"type:text"`

	Items     []OrderItem `json:"items" gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	CreatedAt time.Time   `json:"createdAt" gorm:"autoCreateTime"`
	UpdatedAt time.Time   `json:"updatedAt" gorm:"autoUpdateTime"`
}

// OrderItem is an immutable snapshot of one purchased line. Later product
// price or stock changes must not touch it.
type OrderItem struct {
	ID        uint64          `json:"id" gorm:"primaryKey;autoIncrement"`
	OrderID   uint64          `json:"orderId" gorm:"index;not null"`
	ProductID uint64          `json:"productId" gorm:"not null"`
	Quantity  int             `json:"quantity" gorm:"not null"`
	Price     decimal.Decimal `json:"price" gorm:"type:decimal(10,2);not null"`
	Subtotal  decimal.Decimal `json:"subtotal" gorm:"type:decimal(10,2);not null"`
	CreatedAt time.Time       `json:"createdAt" gorm:"autoCreateTime"`
}

// OrderStatusHistory is the append-only audit trail: one row per status
// change, including the initial transition into PENDING at checkout.
type OrderStatusHistory struct {
	ID        uint64      `json:"id" gorm:"primaryKey;autoIncrement"`
	OrderID   uint64      `json:"orderId" gorm:"index;not null"`
	OldStatus OrderStatus `json:"oldStatus" gorm:"type:varchar(16)"`
	NewStatus OrderStatus `json:"newStatus" gorm:"type:varchar(16);not null"`
	Notes     string      `json:"notes,omitempty" gorm:"type:text"`
	ChangedBy uint64      `json:"changedBy" gorm:"not null"`
	CreatedAt time.Time   `json:"createdAt" gorm:"autoCreateTime"`
}

// DeliveryAddress is the value snapshotted into Order.DeliveryAddress as JSON.
type DeliveryAddress struct {
	FullName   string `json:"fullName"`
	Phone      string `json:"phone"`
	Line1      string `json:"line1"`
	Line2      string `json:"line2,omitempty"`
	City       string `json:"city"`
	State      string `json:"state"`
	PostalCode string `json:"postalCode"`
}

// CheckoutInput carries the parameters of a checkout besides the cart itself.
type CheckoutInput struct {
	UserID          uint64
	DeliveryAddress DeliveryAddress
	DeliveryDate    *time.Time
	DeliverySlot    string
	PaymentMethod   string
	OrderNotes      string
	Discount        decimal.Decimal
}
