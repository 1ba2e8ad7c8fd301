package models

import (
	"github.com/shopspring/decimal"
)

// Product is the read-only catalog projection the order core needs from 'products'.
type Product struct {
	ID              int64               `json:"id" db:"id"`
	Name            string              `json:"name" db:"name"`
	Price           decimal.Decimal     `json:"price" db:"price"`
	DiscountedPrice decimal.NullDecimal `json:"discountedPrice" db:"discounted_price"`
	Stock           int                 `json:"stock" db:"stock"`
	SoldCount       int                 `json:"soldCount" db:"sold_count"`
}

// EffectivePrice prefers an active discounted price over the list price.
// A discounted price is active when it is set, positive, and below the list price.
func (p Product) EffectivePrice() decimal.Decimal {
	if p.DiscountedPrice.Valid &&
		p.DiscountedPrice.Decimal.IsPositive() &&
		p.DiscountedPrice.Decimal.LessThan(p.Price) {
		return p.DiscountedPrice.Decimal
	}
	return p.Price
}

// ProductVariant is the model for the 'product_variants' table
type ProductVariant struct {
	ID              int64           `json:"id" db:"id"`
	ProductID       int64           `json:"productId" db:"product_id"`
	Name            string          `json:"name" db:"name"`
	PriceAdjustment decimal.Decimal `json:"priceAdjustment" db:"price_adjustment"` // Signed offset on the product price
}
