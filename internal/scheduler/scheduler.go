package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Sweeper is the periodic low-stock check.
type Sweeper interface {
	SweepLowStock(ctx context.Context) (int, error)
}

// Scheduler manages scheduled tasks.
type Scheduler struct {
	cron    *cron.Cron
	sweeper Sweeper
	spec    string
	timeout time.Duration
	logger  *zap.Logger
}

// New returns a scheduler that runs the sweep on spec, a standard 5-field
// cron expression or descriptor such as "@hourly". An empty spec disables it.
func New(spec string, sweeper Sweeper, logger *zap.Logger) *Scheduler {
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Scheduler{
		cron:    cron.New(),
		sweeper: sweeper,
		spec:    spec,
		timeout: 2 * time.Minute,
		logger:  logger,
	}
}

// Start registers the sweep and starts the cron loop.
func (s *Scheduler) Start() error {
	if s.spec == "" {
		s.logger.Info("low stock sweep disabled")
		return nil
	}

	if _, err := s.cron.AddFunc(s.spec, s.sweepLowStock); err != nil {
		return fmt.Errorf("schedule low stock sweep %q: %w", s.spec, err)
	}

	s.logger.Info("starting scheduler", zap.String("low_stock_cron", s.spec))
	s.cron.Start()
	return nil
}

// Stop halts the cron loop and waits for a running sweep to finish.
func (s *Scheduler) Stop() {
	s.logger.Info("stopping scheduler")
	<-s.cron.Stop().Done()
}

func (s *Scheduler) sweepLowStock() {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	n, err := s.sweeper.SweepLowStock(ctx)
	if err != nil {
		s.logger.Error("low stock sweep failed", zap.Error(err))
		return
	}
	if n > 0 {
		s.logger.Warn("products at or below minimum stock", zap.Int("count", n))
	}
}
