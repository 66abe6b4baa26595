package events

import (
	"context"
	"time"

	"github.com/kopano7/Lejone-wings-cafe/internal/domain"
	"github.com/kopano7/Lejone-wings-cafe/internal/xid"
)

const (
	TypeSaleCompleted = "sale.completed"
	TypeStockLow      = "stock.low"
)

type Event struct {
	EventID    string          `json:"event_id"`
	Type       string          `json:"type"`
	OccurredAt time.Time       `json:"occurred_at"`
	Sale       *domain.Sale    `json:"sale,omitempty"`
	Product    *domain.Product `json:"product,omitempty"`
}

// Publisher delivers events outside the process. Callers treat delivery as
// best-effort and never fail a committed write on a publish error.
type Publisher interface {
	Publish(ctx context.Context, events ...Event) error
	Close() error
}

func SaleCompleted(sale domain.Sale) Event {
	return Event{
		EventID:    xid.New("e"),
		Type:       TypeSaleCompleted,
		OccurredAt: time.Now().UTC(),
		Sale:       &sale,
	}
}

func StockLow(product domain.Product) Event {
	return Event{
		EventID:    xid.New("e"),
		Type:       TypeStockLow,
		OccurredAt: time.Now().UTC(),
		Product:    &product,
	}
}

type NoopPublisher struct{}

func (NoopPublisher) Publish(context.Context, ...Event) error { return nil }

func (NoopPublisher) Close() error { return nil }
