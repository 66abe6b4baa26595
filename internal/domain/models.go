package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

func init() {
	// Prices travel as plain JSON numbers, the shape the UI multiplies against.
	decimal.MarshalJSONWithoutQuotes = true
}

const (
	MovementIn  = "IN"
	MovementOut = "OUT"
)

const (
	DefaultProductName     = "Unnamed Product"
	DefaultProductCategory = "Uncategorized"
	DefaultCustomer        = "Anonymous"

	NoteInitialStock = "Initial stock (product created)"
	NoteSale         = "Sale transaction"
)

type Product struct {
	Code         string          `json:"Product_Code"`
	Name         string          `json:"Product_Name"`
	Category     string          `json:"Category"`
	Price        decimal.Decimal `json:"Price"`
	Quantity     int             `json:"Quantity"`
	MinimumStock int             `json:"Minimum_Stock"`
	Image        string          `json:"Image"`
}

// LowStock reports whether on-hand quantity is at or below the reorder threshold.
func (p Product) LowStock() bool {
	return p.Quantity <= p.MinimumStock
}

// ProductFields carries raw, unparsed input for create and partial update.
// A nil field was not supplied by the caller.
type ProductFields struct {
	Name         *string
	Category     *string
	Price        *string
	Quantity     *string
	MinimumStock *string
	Image        *string
}

type InventoryMovement struct {
	Code        string    `json:"Inventory_Code"`
	ProductCode string    `json:"Product_Code"`
	Type        string    `json:"Type"`
	Quantity    int       `json:"Quantity"`
	Date        time.Time `json:"Date"`
	Note        string    `json:"Note"`
}

// MovementRequest is a manual ledger entry or stock adjustment. Quantity is
// raw input and is coerced by the service.
type MovementRequest struct {
	ProductCode string
	Type        string
	Quantity    string
	Note        string
}

type SaleLine struct {
	ProductCode string          `json:"Product_Code"`
	Quantity    int             `json:"Quantity"`
	UnitPrice   decimal.Decimal `json:"Price"`
}

// Amount is the line value at the snapshot unit price.
func (l SaleLine) Amount() decimal.Decimal {
	return l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

type Sale struct {
	Code     string          `json:"Sale_Code"`
	Items    []SaleLine      `json:"Items"`
	Total    decimal.Decimal `json:"Total"`
	Date     time.Time       `json:"Date"`
	Customer string          `json:"Customer"`
}

type CartItem struct {
	ProductCode string `json:"Product_Code"`
	Quantity    int    `json:"Quantity"`
}

type CheckoutRequest struct {
	Items    []CartItem `json:"Items"`
	Customer string     `json:"Customer,omitempty"`
}

type TopSeller struct {
	ProductCode  string `json:"Product_Code"`
	ProductName  string `json:"Product_Name"`
	QuantitySold int    `json:"Quantity_Sold"`
}

type WeeklyRevenue struct {
	Week    string          `json:"week"`
	Revenue decimal.Decimal `json:"revenue"`
}

type WeeklyTopSelling struct {
	Week  string      `json:"week"`
	Items []TopSeller `json:"items"`
}

type Report struct {
	TotalRevenue     decimal.Decimal     `json:"totalRevenue"`
	TopSelling       []TopSeller         `json:"topSelling"`
	WeeklyRevenue    []WeeklyRevenue     `json:"weeklyRevenue"`
	WeeklyTopSelling []WeeklyTopSelling  `json:"weeklyTopSelling"`
	RecentInventory  []InventoryMovement `json:"recentInventory"`
	LowStock         []Product           `json:"lowStock"`
}
