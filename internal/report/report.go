package report

import (
	"cmp"
	"fmt"
	"slices"
	"time"

	"github.com/shopspring/decimal"

	"github.com/kopano7/Lejone-wings-cafe/internal/domain"
)

const (
	topLimit    = 10
	recentLimit = 10
)

// WeekKey labels t as "{year}-W{n}" with n = ceil(dayOfYear/7) in loc.
// This is a day-count bucket, not an ISO-8601 week.
func WeekKey(t time.Time, loc *time.Location) string {
	if loc == nil {
		loc = time.UTC
	}
	local := t.In(loc)
	return fmt.Sprintf("%d-W%d", local.Year(), (local.YearDay()+6)/7)
}

// Build derives the full report from the current collections.
func Build(products []domain.Product, movements []domain.InventoryMovement, sales []domain.Sale, loc *time.Location) domain.Report {
	names := productNames(products)

	return domain.Report{
		TotalRevenue:     TotalRevenue(sales),
		TopSelling:       TopSelling(sales, names),
		WeeklyRevenue:    WeeklyRevenue(sales, loc),
		WeeklyTopSelling: WeeklyTopSelling(sales, names, loc),
		RecentInventory:  RecentInventory(movements),
		LowStock:         LowStock(products),
	}
}

// SaleRevenue sums the sale's lines rather than trusting the stored total.
func SaleRevenue(sale domain.Sale) decimal.Decimal {
	revenue := decimal.Zero
	for _, line := range sale.Items {
		revenue = revenue.Add(line.Amount())
	}
	return revenue
}

func TotalRevenue(sales []domain.Sale) decimal.Decimal {
	total := decimal.Zero
	for _, sale := range sales {
		total = total.Add(SaleRevenue(sale))
	}
	return total
}

func WeeklyRevenue(sales []domain.Sale, loc *time.Location) []domain.WeeklyRevenue {
	weeks := make([]domain.WeeklyRevenue, 0)
	index := make(map[string]int)
	for _, sale := range sales {
		key := WeekKey(sale.Date, loc)
		i, ok := index[key]
		if !ok {
			i = len(weeks)
			index[key] = i
			weeks = append(weeks, domain.WeeklyRevenue{Week: key, Revenue: decimal.Zero})
		}
		weeks[i].Revenue = weeks[i].Revenue.Add(SaleRevenue(sale))
	}
	return weeks
}

func WeeklyTopSelling(sales []domain.Sale, names map[string]string, loc *time.Location) []domain.WeeklyTopSelling {
	type bucket struct {
		week   string
		counts *soldCounter
	}
	buckets := make([]bucket, 0)
	index := make(map[string]int)
	for _, sale := range sales {
		key := WeekKey(sale.Date, loc)
		i, ok := index[key]
		if !ok {
			i = len(buckets)
			index[key] = i
			buckets = append(buckets, bucket{week: key, counts: newSoldCounter()})
		}
		buckets[i].counts.addSale(sale)
	}

	weeks := make([]domain.WeeklyTopSelling, 0, len(buckets))
	for _, b := range buckets {
		weeks = append(weeks, domain.WeeklyTopSelling{Week: b.week, Items: b.counts.top(names)})
	}
	return weeks
}

func TopSelling(sales []domain.Sale, names map[string]string) []domain.TopSeller {
	counts := newSoldCounter()
	for _, sale := range sales {
		counts.addSale(sale)
	}
	return counts.top(names)
}

// RecentInventory returns the last entries in storage order, newest first.
func RecentInventory(movements []domain.InventoryMovement) []domain.InventoryMovement {
	start := max(len(movements)-recentLimit, 0)
	recent := slices.Clone(movements[start:])
	if recent == nil {
		recent = make([]domain.InventoryMovement, 0)
	}
	slices.Reverse(recent)
	return recent
}

func LowStock(products []domain.Product) []domain.Product {
	low := make([]domain.Product, 0)
	for _, p := range products {
		if p.LowStock() {
			low = append(low, p)
		}
	}
	return low
}

func productNames(products []domain.Product) map[string]string {
	names := make(map[string]string, len(products))
	for _, p := range products {
		// First record wins, matching a front-to-back lookup.
		if _, seen := names[p.Code]; !seen {
			names[p.Code] = p.Name
		}
	}
	return names
}

// soldCounter sums quantities per product code in first-seen order.
type soldCounter struct {
	order []string
	qty   map[string]int
}

func newSoldCounter() *soldCounter {
	return &soldCounter{qty: make(map[string]int)}
}

func (c *soldCounter) addSale(sale domain.Sale) {
	for _, line := range sale.Items {
		if _, seen := c.qty[line.ProductCode]; !seen {
			c.order = append(c.order, line.ProductCode)
		}
		c.qty[line.ProductCode] += line.Quantity
	}
}

func (c *soldCounter) top(names map[string]string) []domain.TopSeller {
	sellers := make([]domain.TopSeller, 0, len(c.order))
	for _, code := range c.order {
		name, ok := names[code]
		if !ok {
			name = code
		}
		sellers = append(sellers, domain.TopSeller{ProductCode: code, ProductName: name, QuantitySold: c.qty[code]})
	}
	slices.SortStableFunc(sellers, func(a, b domain.TopSeller) int {
		return cmp.Compare(b.QuantitySold, a.QuantitySold)
	})
	if len(sellers) > topLimit {
		sellers = sellers[:topLimit]
	}
	return sellers
}
