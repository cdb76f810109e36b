package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Product is owned by the catalog subsystem; this core only reads it and
// mutates stock/is_available through the stock ledger.
type Product struct {
	ID          uint64           `json:"id" gorm:"primaryKey;autoIncrement"`
	Name        string           `json:"name" gorm:"not null"`
	SKU         string           `json:"sku" gorm:"uniqueIndex;not null"`
	Price       decimal.Decimal  `json:"price" gorm:"type:decimal(10,2);not null"`
	SalePrice   *decimal.Decimal `json:"salePrice,omitempty" gorm:"type:decimal(10,2)"`
	Stock       int              `json:"stock" gorm:"not null;default:0"`
	IsAvailable bool             `json:"isAvailable" gorm:"not null;default:false"`
	CreatedAt   time.Time        `json:"createdAt" gorm:"autoCreateTime"`
	UpdatedAt   time.Time        `json:"updatedAt" gorm:"autoUpdateTime"`
}

// EffectivePrice is the price a buyer pays right now: the sale price when one
// is set, the regular price otherwise.
func (p *Product) EffectivePrice() decimal.Decimal {
	if p.SalePrice != nil {
		return *p.SalePrice
	}
	return p.Price
}
