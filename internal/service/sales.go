package service

import (
	"context"
	"strings"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/kopano7/Lejone-wings-cafe/internal/domain"
	"github.com/kopano7/Lejone-wings-cafe/internal/events"
	"github.com/kopano7/Lejone-wings-cafe/internal/store"
	"github.com/kopano7/Lejone-wings-cafe/internal/xid"
)

func (s *Service) ListSales(ctx context.Context) ([]domain.Sale, error) {
	return s.repo.ListSales(ctx)
}

// Checkout sells what stock allows. Each line is capped at the quantity on
// hand; unknown products and lines that cap to zero are dropped. Products,
// ledger and sale are committed together, or not at all when nothing sold.
func (s *Service) Checkout(ctx context.Context, req domain.CheckoutRequest) (domain.Sale, error) {
	if len(req.Items) == 0 {
		return domain.Sale{}, store.ErrEmptySale
	}

	customer := strings.TrimSpace(req.Customer)
	if customer == "" {
		customer = domain.DefaultCustomer
	}

	var (
		sale    domain.Sale
		touched []domain.Product
	)
	err := s.repo.Update(ctx, func(tx *store.Tx) error {
		now := s.now()
		lines := make([]domain.SaleLine, 0, len(req.Items))
		outs := make([]domain.InventoryMovement, 0, len(req.Items))
		total := decimal.Zero
		sold := make(map[int]bool, len(req.Items))

		for _, item := range req.Items {
			idx := tx.ProductIndex(item.ProductCode)
			if idx < 0 {
				continue
			}
			p := &tx.Products[idx]

			qty := min(item.Quantity, p.Quantity)
			if qty <= 0 {
				continue
			}

			p.Quantity -= qty
			line := domain.SaleLine{ProductCode: p.Code, Quantity: qty, UnitPrice: p.Price}
			total = total.Add(line.Amount())
			lines = append(lines, line)
			outs = append(outs, domain.InventoryMovement{
				Code:        xid.New("t"),
				ProductCode: p.Code,
				Type:        domain.MovementOut,
				Quantity:    qty,
				Date:        now,
				Note:        domain.NoteSale,
			})
			sold[idx] = true
		}

		if len(lines) == 0 {
			return store.ErrNothingToSell
		}

		sale = domain.Sale{
			Code:     xid.New("s"),
			Items:    lines,
			Total:    total,
			Date:     now,
			Customer: customer,
		}
		tx.TouchProducts()
		tx.AppendMovements(outs...)
		tx.AppendSale(sale)

		touched = touched[:0]
		for idx := range tx.Products {
			if sold[idx] {
				touched = append(touched, tx.Products[idx])
			}
		}
		return nil
	}, store.Products, store.Inventory, store.Sales)
	if err != nil {
		return domain.Sale{}, err
	}

	s.logger.Info("sale completed",
		zap.String("sale_code", sale.Code),
		zap.Int("lines", len(sale.Items)),
		zap.String("total", sale.Total.String()))

	evs := append([]events.Event{events.SaleCompleted(sale)}, lowStockEvents(touched)...)
	s.publish(ctx, evs...)
	return sale, nil
}

func lowStockEvents(products []domain.Product) []events.Event {
	evs := make([]events.Event, 0)
	for _, p := range products {
		if p.LowStock() {
			evs = append(evs, events.StockLow(p))
		}
	}
	return evs
}
