package store

import (
	"context"
	"errors"
	"fmt"
)

var (
	ErrNotFound          = errors.New("not found")
	ErrInvalidSale       = errors.New("invalid sale")
	ErrEmptySale         = fmt.Errorf("%w: no items in sale", ErrInvalidSale)
	ErrNothingToSell     = fmt.Errorf("%w: no valid items to sell", ErrInvalidSale)
	ErrInvalidMovement   = errors.New("invalid inventory movement")
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrIO                = errors.New("storage failure")
)

// Collection names a persisted record set. The values double as file and key names.
type Collection string

const (
	Products  Collection = "Products"
	Inventory Collection = "Inventory"
	Sales     Collection = "Sale"
)

var AllCollections = []Collection{Products, Inventory, Sales}

// Documents holds encoded collections keyed by name. A nil value means the
// collection has never been written.
type Documents map[Collection][]byte

// Backend is the persistence medium for whole collections.
//
// Update is a serialized read-modify-write: fn receives the current documents
// for the named collections and returns the ones to replace. Returned
// documents are written in the order the collections are listed and become
// visible to Load together. When fn returns an error nothing is written and
// that error is returned unchanged. fn may run more than once on backends
// that retry on conflict, so it must derive all output from its input.
type Backend interface {
	Ensure(ctx context.Context, collections ...Collection) error
	Load(ctx context.Context, collection Collection) ([]byte, error)
	Update(ctx context.Context, collections []Collection, fn func(current Documents) (Documents, error)) error
	Close() error
}

// IOError wraps a medium failure so callers can match ErrIO.
func IOError(op string, collection Collection, err error) error {
	return fmt.Errorf("%w: %s %s: %w", ErrIO, op, collection, err)
}
