package store

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/kopano7/Lejone-wings-cafe/internal/domain"
)

// Repository is the typed view over the three collections used by the service.
type Repository interface {
	ListProducts(ctx context.Context) ([]domain.Product, error)
	ListMovements(ctx context.Context) ([]domain.InventoryMovement, error)
	ListSales(ctx context.Context) ([]domain.Sale, error)
	// Update runs fn against a snapshot of the listed collections and commits
	// the collections fn changed as one unit. Nothing is persisted if fn fails.
	Update(ctx context.Context, fn func(tx *Tx) error, collections ...Collection) error
}

// Tx is the in-memory snapshot handed to Repository.Update callbacks.
type Tx struct {
	Products  []domain.Product
	Movements []domain.InventoryMovement
	Sales     []domain.Sale

	locked map[Collection]bool
	dirty  map[Collection]bool
}

func (tx *Tx) mark(c Collection) {
	if tx.dirty == nil {
		tx.dirty = make(map[Collection]bool, len(AllCollections))
	}
	tx.dirty[c] = true
}

// ProductIndex returns the position of code in tx.Products or -1.
func (tx *Tx) ProductIndex(code string) int {
	for i := range tx.Products {
		if tx.Products[i].Code == code {
			return i
		}
	}
	return -1
}

func (tx *Tx) SetProducts(products []domain.Product) {
	tx.Products = products
	tx.mark(Products)
}

// TouchProducts flags Products as changed after in-place edits of tx.Products.
func (tx *Tx) TouchProducts() {
	tx.mark(Products)
}

func (tx *Tx) AppendMovements(movements ...domain.InventoryMovement) {
	if len(movements) == 0 {
		return
	}
	tx.Movements = append(tx.Movements, movements...)
	tx.mark(Inventory)
}

func (tx *Tx) AppendSale(sale domain.Sale) {
	tx.Sales = append(tx.Sales, sale)
	tx.mark(Sales)
}

// DocumentRepository encodes collections as JSON arrays on top of a Backend.
type DocumentRepository struct {
	backend Backend
}

func NewRepository(backend Backend) *DocumentRepository {
	return &DocumentRepository{backend: backend}
}

func (r *DocumentRepository) ListProducts(ctx context.Context) ([]domain.Product, error) {
	raw, err := r.backend.Load(ctx, Products)
	if err != nil {
		return nil, err
	}
	return decodeRecords[domain.Product](Products, raw)
}

func (r *DocumentRepository) ListMovements(ctx context.Context) ([]domain.InventoryMovement, error) {
	raw, err := r.backend.Load(ctx, Inventory)
	if err != nil {
		return nil, err
	}
	return decodeRecords[domain.InventoryMovement](Inventory, raw)
}

func (r *DocumentRepository) ListSales(ctx context.Context) ([]domain.Sale, error) {
	raw, err := r.backend.Load(ctx, Sales)
	if err != nil {
		return nil, err
	}
	return decodeRecords[domain.Sale](Sales, raw)
}

func (r *DocumentRepository) Update(ctx context.Context, fn func(tx *Tx) error, collections ...Collection) error {
	if len(collections) == 0 {
		return fmt.Errorf("update requires at least one collection")
	}
	ordered := orderCollections(collections)

	return r.backend.Update(ctx, ordered, func(current Documents) (Documents, error) {
		tx := &Tx{locked: make(map[Collection]bool, len(ordered))}
		for _, c := range ordered {
			tx.locked[c] = true
			if err := tx.decode(c, current[c]); err != nil {
				return nil, err
			}
		}

		if err := fn(tx); err != nil {
			return nil, err
		}

		writes := make(Documents, len(tx.dirty))
		for c := range tx.dirty {
			if !tx.locked[c] {
				return nil, fmt.Errorf("collection %s changed without being locked", c)
			}
			encoded, err := tx.encode(c)
			if err != nil {
				return nil, err
			}
			writes[c] = encoded
		}
		return writes, nil
	})
}

func (tx *Tx) decode(c Collection, raw []byte) error {
	var err error
	switch c {
	case Products:
		tx.Products, err = decodeRecords[domain.Product](c, raw)
	case Inventory:
		tx.Movements, err = decodeRecords[domain.InventoryMovement](c, raw)
	case Sales:
		tx.Sales, err = decodeRecords[domain.Sale](c, raw)
	default:
		err = fmt.Errorf("unknown collection %q", c)
	}
	return err
}

func (tx *Tx) encode(c Collection) ([]byte, error) {
	switch c {
	case Products:
		return encodeRecords(c, tx.Products)
	case Inventory:
		return encodeRecords(c, tx.Movements)
	case Sales:
		return encodeRecords(c, tx.Sales)
	default:
		return nil, fmt.Errorf("unknown collection %q", c)
	}
}

// orderCollections dedupes and sorts into Products, Inventory, Sales order so
// every caller commits in the same sequence.
func orderCollections(collections []Collection) []Collection {
	want := make(map[Collection]bool, len(collections))
	for _, c := range collections {
		want[c] = true
	}
	ordered := make([]Collection, 0, len(want))
	for _, c := range AllCollections {
		if want[c] {
			ordered = append(ordered, c)
			delete(want, c)
		}
	}
	for c := range want {
		ordered = append(ordered, c)
	}
	return ordered
}

func decodeRecords[T any](c Collection, raw []byte) ([]T, error) {
	records := make([]T, 0)
	if len(bytes.TrimSpace(raw)) == 0 {
		return records, nil
	}
	if err := json.Unmarshal(raw, &records); err != nil {
		return nil, IOError("decode", c, err)
	}
	if records == nil {
		records = make([]T, 0)
	}
	return records, nil
}

func encodeRecords[T any](c Collection, records []T) ([]byte, error) {
	if records == nil {
		records = make([]T, 0)
	}
	encoded, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return nil, IOError("encode", c, err)
	}
	return encoded, nil
}

// EmptyDocument is the encoding of a freshly initialized collection.
var EmptyDocument = []byte("[]")
