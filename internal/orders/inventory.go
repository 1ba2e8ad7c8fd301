package orders

import (
	"context"
	"fmt"

	"github.com/01moynul/catering-golang/internal/models"
)

// adjustInventory moves each line's quantity from stock to sold_count.
// Cancelling an order later does not put the stock back.
func (s *Service) adjustInventory(ctx context.Context, tx Tx, items []models.OrderItem) error {
	for _, item := range items {
		if err := tx.AdjustInventory(ctx, item.ProductID, item.Quantity, s.allowOversell); err != nil {
			return fmt.Errorf("adjust inventory for product %d: %w", item.ProductID, err)
		}
	}
	return nil
}
