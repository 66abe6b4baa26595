package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/kopano7/Lejone-wings-cafe/internal/events"
	"github.com/kopano7/Lejone-wings-cafe/internal/store"
)

type Service struct {
	repo      store.Repository
	publisher events.Publisher
	location  *time.Location
	logger    *zap.Logger
	now       func() time.Time
}

// New wires the catalog, ledger, checkout and report operations over repo.
// A nil publisher disables events; a nil location buckets report weeks in UTC.
func New(repo store.Repository, publisher events.Publisher, location *time.Location, logger *zap.Logger) *Service {
	if publisher == nil {
		publisher = events.NoopPublisher{}
	}
	if location == nil {
		location = time.UTC
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Service{
		repo:      repo,
		publisher: publisher,
		location:  location,
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// publish never fails the caller: the write it reports is already committed.
func (s *Service) publish(ctx context.Context, evs ...events.Event) {
	if len(evs) == 0 {
		return
	}
	if err := s.publisher.Publish(context.WithoutCancel(ctx), evs...); err != nil {
		s.logger.Warn("event publish failed",
			zap.String("type", evs[0].Type),
			zap.Int("count", len(evs)),
			zap.Error(err))
	}
}
