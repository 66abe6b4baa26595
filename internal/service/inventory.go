package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/kopano7/Lejone-wings-cafe/internal/domain"
	"github.com/kopano7/Lejone-wings-cafe/internal/store"
)

func (s *Service) ListInventory(ctx context.Context) ([]domain.InventoryMovement, error) {
	return s.repo.ListMovements(ctx)
}

// RecordMovement appends a manual ledger entry. It does not change the
// product's quantity; AdjustStock does both.
func (s *Service) RecordMovement(ctx context.Context, req domain.MovementRequest) (domain.InventoryMovement, error) {
	movement, err := s.newMovement(req.ProductCode, req)
	if err != nil {
		return domain.InventoryMovement{}, err
	}

	err = s.repo.Update(ctx, func(tx *store.Tx) error {
		tx.AppendMovements(movement)
		return nil
	}, store.Inventory)
	if err != nil {
		return domain.InventoryMovement{}, err
	}

	s.logger.Info("movement recorded",
		zap.String("inventory_code", movement.Code),
		zap.String("product_code", movement.ProductCode),
		zap.String("type", movement.Type),
		zap.Int("quantity", movement.Quantity))
	return movement, nil
}
