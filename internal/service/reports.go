package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/kopano7/Lejone-wings-cafe/internal/domain"
	"github.com/kopano7/Lejone-wings-cafe/internal/events"
	"github.com/kopano7/Lejone-wings-cafe/internal/report"
)

// Report reads the three collections concurrently and aggregates them. The
// reads are independent, so the result may straddle a concurrent commit.
func (s *Service) Report(ctx context.Context) (domain.Report, error) {
	var (
		products  []domain.Product
		movements []domain.InventoryMovement
		sales     []domain.Sale
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		products, err = s.repo.ListProducts(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		movements, err = s.repo.ListMovements(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		sales, err = s.repo.ListSales(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return domain.Report{}, fmt.Errorf("generate report: %w", err)
	}

	return report.Build(products, movements, sales, s.location), nil
}

func (s *Service) LowStock(ctx context.Context) ([]domain.Product, error) {
	products, err := s.repo.ListProducts(ctx)
	if err != nil {
		return nil, err
	}
	return report.LowStock(products), nil
}

// SweepLowStock publishes a stock.low event for every product at or below
// its minimum and returns how many were found.
func (s *Service) SweepLowStock(ctx context.Context) (int, error) {
	low, err := s.LowStock(ctx)
	if err != nil {
		return 0, err
	}
	s.logger.Info("low stock sweep", zap.Int("products", len(low)))

	evs := make([]events.Event, 0, len(low))
	for _, p := range low {
		evs = append(evs, events.StockLow(p))
	}
	s.publish(ctx, evs...)
	return len(low), nil
}
