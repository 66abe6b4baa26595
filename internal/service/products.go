package service

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"go.uber.org/zap"

	"github.com/kopano7/Lejone-wings-cafe/internal/domain"
	"github.com/kopano7/Lejone-wings-cafe/internal/store"
	"github.com/kopano7/Lejone-wings-cafe/internal/xid"
)

const noteStockAdjustment = "Stock adjustment"

func (s *Service) ListProducts(ctx context.Context) ([]domain.Product, error) {
	return s.repo.ListProducts(ctx)
}

// CreateProduct stores a new product and, when it starts with stock, the
// matching IN ledger entry in the same commit.
func (s *Service) CreateProduct(ctx context.Context, fields domain.ProductFields) (domain.Product, error) {
	product := domain.Product{
		Code:     xid.New("p"),
		Name:     domain.DefaultProductName,
		Category: domain.DefaultProductCategory,
	}
	if name, ok := present(fields.Name); ok {
		product.Name = name
	}
	if category, ok := present(fields.Category); ok {
		product.Category = category
	}
	if price, ok := parsePrice(fields.Price); ok {
		product.Price = price
	}
	if qty, ok := parseCount(fields.Quantity); ok {
		product.Quantity = qty
	}
	if minimum, ok := parseCount(fields.MinimumStock); ok {
		product.MinimumStock = minimum
	}
	if image, ok := present(fields.Image); ok {
		product.Image = image
	}

	err := s.repo.Update(ctx, func(tx *store.Tx) error {
		tx.SetProducts(append(tx.Products, product))
		if product.Quantity > 0 {
			tx.AppendMovements(domain.InventoryMovement{
				Code:        xid.New("t"),
				ProductCode: product.Code,
				Type:        domain.MovementIn,
				Quantity:    product.Quantity,
				Date:        s.now(),
				Note:        domain.NoteInitialStock,
			})
		}
		return nil
	}, store.Products, store.Inventory)
	if err != nil {
		return domain.Product{}, err
	}

	s.logger.Info("product created",
		zap.String("product_code", product.Code),
		zap.Int("quantity", product.Quantity))
	return product, nil
}

// UpdateProduct applies only the supplied fields. Unparseable numbers keep
// the stored value.
func (s *Service) UpdateProduct(ctx context.Context, code string, fields domain.ProductFields) (domain.Product, error) {
	var updated domain.Product
	err := s.repo.Update(ctx, func(tx *store.Tx) error {
		idx := tx.ProductIndex(code)
		if idx < 0 {
			return store.ErrNotFound
		}
		p := tx.Products[idx]
		changed := false

		if name, ok := present(fields.Name); ok {
			p.Name, changed = name, true
		}
		if category, ok := present(fields.Category); ok {
			p.Category, changed = category, true
		}
		if price, ok := parsePrice(fields.Price); ok {
			p.Price, changed = price, true
		}
		if qty, ok := parseCount(fields.Quantity); ok {
			p.Quantity, changed = qty, true
		}
		if minimum, ok := parseCount(fields.MinimumStock); ok {
			p.MinimumStock, changed = minimum, true
		}
		if image, ok := present(fields.Image); ok {
			p.Image, changed = image, true
		}

		if changed {
			tx.Products[idx] = p
			tx.TouchProducts()
		}
		updated = p
		return nil
	}, store.Products)
	if err != nil {
		return domain.Product{}, err
	}

	s.logger.Info("product updated", zap.String("product_code", code))
	return updated, nil
}

func (s *Service) DeleteProduct(ctx context.Context, code string) error {
	err := s.repo.Update(ctx, func(tx *store.Tx) error {
		idx := tx.ProductIndex(code)
		if idx < 0 {
			return store.ErrNotFound
		}
		tx.SetProducts(slices.Delete(tx.Products, idx, idx+1))
		return nil
	}, store.Products)
	if err != nil {
		return err
	}

	s.logger.Info("product deleted", zap.String("product_code", code))
	return nil
}

// AdjustStock changes a product's quantity and records the ledger entry for
// it in one commit. Removing more than is on hand fails.
func (s *Service) AdjustStock(ctx context.Context, code string, req domain.MovementRequest) (domain.Product, domain.InventoryMovement, error) {
	movement, err := s.newMovement(code, req)
	if err != nil {
		return domain.Product{}, domain.InventoryMovement{}, err
	}
	if movement.Note == "" {
		movement.Note = noteStockAdjustment
	}

	var adjusted domain.Product
	err = s.repo.Update(ctx, func(tx *store.Tx) error {
		idx := tx.ProductIndex(code)
		if idx < 0 {
			return store.ErrNotFound
		}
		p := &tx.Products[idx]

		switch movement.Type {
		case domain.MovementIn:
			if p.Quantity > maxCount-movement.Quantity {
				return fmt.Errorf("%w: quantity overflow", store.ErrInvalidMovement)
			}
			p.Quantity += movement.Quantity
		case domain.MovementOut:
			if movement.Quantity > p.Quantity {
				return fmt.Errorf("%w: %s has %d, requested %d", store.ErrInsufficientStock, code, p.Quantity, movement.Quantity)
			}
			p.Quantity -= movement.Quantity
		}
		tx.TouchProducts()
		tx.AppendMovements(movement)
		adjusted = *p
		return nil
	}, store.Products, store.Inventory)
	if err != nil {
		return domain.Product{}, domain.InventoryMovement{}, err
	}

	s.logger.Info("stock adjusted",
		zap.String("product_code", code),
		zap.String("type", movement.Type),
		zap.Int("quantity", movement.Quantity),
		zap.Int("on_hand", adjusted.Quantity))
	if adjusted.LowStock() {
		s.publish(ctx, lowStockEvents([]domain.Product{adjusted})...)
	}
	return adjusted, movement, nil
}

func (s *Service) newMovement(productCode string, req domain.MovementRequest) (domain.InventoryMovement, error) {
	productCode = strings.TrimSpace(productCode)
	if productCode == "" {
		return domain.InventoryMovement{}, fmt.Errorf("%w: product code required", store.ErrInvalidMovement)
	}

	kind := strings.ToUpper(strings.TrimSpace(req.Type))
	if kind == "" {
		kind = domain.MovementIn
	}
	if kind != domain.MovementIn && kind != domain.MovementOut {
		return domain.InventoryMovement{}, fmt.Errorf("%w: type must be IN or OUT", store.ErrInvalidMovement)
	}

	qty, ok := parseCount(&req.Quantity)
	if !ok || qty <= 0 {
		return domain.InventoryMovement{}, fmt.Errorf("%w: quantity must be a positive number", store.ErrInvalidMovement)
	}

	return domain.InventoryMovement{
		Code:        xid.New("t"),
		ProductCode: productCode,
		Type:        kind,
		Quantity:    qty,
		Date:        s.now(),
		Note:        strings.TrimSpace(req.Note),
	}, nil
}
