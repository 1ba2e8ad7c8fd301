package orders

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/01moynul/catering-golang/internal/models"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// CartLine is one line of a cart submission.
type CartLine struct {
	ProductID   int64  `json:"product_id"`
	VariantID   *int64 `json:"variant_id,omitempty"`
	VariantName string `json:"variant_name,omitempty"`
	Quantity    int    `json:"quantity"`
}

// PricedLine is a cart line resolved against the catalog.
type PricedLine struct {
	ProductID   int64
	VariantID   *int64
	ProductName string
	VariantName *string
	Quantity    int
	UnitPrice   decimal.Decimal
	Subtotal    decimal.Decimal
}

// applyPricing computes unit price and subtotal from a product snapshot and an optional variant.
func applyPricing(product models.Product, variant *models.ProductVariant, line CartLine) PricedLine {
	priced := PricedLine{
		ProductID:   product.ID,
		ProductName: product.Name,
		Quantity:    line.Quantity,
		UnitPrice:   product.EffectivePrice(),
	}

	if variant != nil {
		id := variant.ID
		name := variant.Name
		priced.VariantID = &id
		priced.VariantName = &name
		priced.UnitPrice = priced.UnitPrice.Add(variant.PriceAdjustment)
	} else if line.VariantName != "" {
		name := line.VariantName
		priced.VariantName = &name
	}

	priced.Subtotal = priced.UnitPrice.Mul(decimal.NewFromInt(int64(line.Quantity)))
	return priced
}

// lockProducts locks every product in the cart once, in ascending id order.
// Two carts naming the same products in different orders then queue on the
// first shared row instead of deadlocking.
func lockProducts(ctx context.Context, tx Tx, lines []CartLine) (map[int64]models.Product, error) {
	ids := make([]int64, 0, len(lines))
	for _, line := range lines {
		ids = append(ids, line.ProductID)
	}
	slices.Sort(ids)
	ids = slices.Compact(ids)

	products := make(map[int64]models.Product, len(ids))
	for _, id := range ids {
		product, err := tx.ProductForUpdate(ctx, id)
		if err != nil {
			if errors.Is(err, ErrProductNotFound) {
				return nil, fmt.Errorf("product %d: %w", id, ErrProductNotFound)
			}
			return nil, fmt.Errorf("load product %d: %w", id, err)
		}
		products[id] = product
	}
	return products, nil
}

// resolveLine prices one cart line against its locked product row. A missing variant
// is tolerated and its adjustment is simply not applied.
func (s *Service) resolveLine(ctx context.Context, tx Tx, product models.Product, line CartLine) (PricedLine, error) {

	var variant *models.ProductVariant
	if line.VariantID != nil {
		v, err := tx.Variant(ctx, line.ProductID, *line.VariantID)
		switch {
		case err == nil:
			variant = &v
		case errors.Is(err, ErrVariantNotFound):
			s.log.Debug("variant not found, price adjustment skipped",
				zap.Int64("product_id", line.ProductID),
				zap.Int64("variant_id", *line.VariantID),
			)
		default:
			return PricedLine{}, fmt.Errorf("load variant %d: %w", *line.VariantID, err)
		}
	}

	return applyPricing(product, variant, line), nil
}
