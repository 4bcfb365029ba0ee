package services

import (
	"cmp"
	"slices"
	"time"

	"github.com/shopspring/decimal"

	"ecommerce-dashboard/internal/models"
)

// FilterByApproval returns the rows approved on a day inside r, preserving order.
func FilterByApproval(orders []models.OrderRecord, r models.DateRange) []models.OrderRecord {
	if r.Empty() {
		return nil
	}
	out := make([]models.OrderRecord, 0, len(orders))
	for _, o := range orders {
		if r.Contains(o.ApprovedAt) {
			out = append(out, o)
		}
	}
	return out
}

// ApprovalBounds returns the first and last approval day of orders. ok is false when no
// row was approved.
func ApprovalBounds(orders []models.OrderRecord) (r models.DateRange, ok bool) {
	for _, o := range orders {
		if !o.Approved() {
			continue
		}
		if !ok || o.ApprovedAt.Before(r.Start) {
			r.Start = o.ApprovedAt
		}
		if !ok || o.ApprovedAt.After(r.End) {
			r.End = o.ApprovedAt
		}
		ok = true
	}
	return models.NewDateRange(r.Start, r.End), ok
}

type dayBucket struct {
	orders  map[string]struct{}
	revenue decimal.Decimal
}

// resampleDaily buckets approved rows into contiguous calendar days, empty days included.
func resampleDaily(orders []models.OrderRecord, visit func(day time.Time, b *dayBucket)) {
	bounds, ok := ApprovalBounds(orders)
	if !ok {
		return
	}

	buckets := make(map[time.Time]*dayBucket)
	for _, o := range orders {
		if !o.Approved() {
			continue
		}
		d := models.Day(o.ApprovedAt)
		b := buckets[d]
		if b == nil {
			b = &dayBucket{orders: make(map[string]struct{})}
			buckets[d] = b
		}
		if o.OrderID != "" {
			b.orders[o.OrderID] = struct{}{}
		}
		if o.PaymentValue.Valid {
			b.revenue = b.revenue.Add(o.PaymentValue.Decimal)
		}
	}

	empty := &dayBucket{}
	for d := bounds.Start; !d.After(bounds.End); d = d.AddDate(0, 0, 1) {
		if b, ok := buckets[d]; ok {
			visit(d, b)
			continue
		}
		visit(d, empty)
	}
}

// DailyOrdersOf counts distinct order ids and sums payment values per calendar day.
func DailyOrdersOf(orders []models.OrderRecord) []models.DailyOrders {
	out := []models.DailyOrders{}
	resampleDaily(orders, func(day time.Time, b *dayBucket) {
		out = append(out, models.DailyOrders{
			Day:          day,
			TotalOrders:  len(b.orders),
			TotalRevenue: b.revenue,
		})
	})
	return out
}

// DailySpendingOf sums payment values per calendar day.
func DailySpendingOf(orders []models.OrderRecord) []models.DailySpending {
	out := []models.DailySpending{}
	resampleDaily(orders, func(day time.Time, b *dayBucket) {
		out = append(out, models.DailySpending{Day: day, DailySpending: b.revenue})
	})
	return out
}

// ProductSalesOf counts product ids per category, descending by count.
func ProductSalesOf(orders []models.OrderRecord) []models.ProductSales {
	counts := make(map[string]int)
	for _, o := range orders {
		if o.Category == "" {
			continue
		}
		if _, ok := counts[o.Category]; !ok {
			counts[o.Category] = 0
		}
		if o.ProductID != "" {
			counts[o.Category]++
		}
	}

	out := make([]models.ProductSales, 0, len(counts))
	for _, k := range sortedKeys(counts) {
		out = append(out, models.ProductSales{Category: k, TotalSold: counts[k]})
	}
	slices.SortStableFunc(out, func(a, b models.ProductSales) int {
		return cmp.Compare(b.TotalSold, a.TotalSold)
	})
	return out
}

// StateCustomersOf counts distinct customer ids per state, descending by count.
func StateCustomersOf(orders []models.OrderRecord) []models.StateCustomers {
	customers := make(map[string]map[string]struct{})
	for _, o := range orders {
		if o.State == "" {
			continue
		}
		set := customers[o.State]
		if set == nil {
			set = make(map[string]struct{})
			customers[o.State] = set
		}
		if o.CustomerID != "" {
			set[o.CustomerID] = struct{}{}
		}
	}

	out := make([]models.StateCustomers, 0, len(customers))
	for _, k := range sortedKeys(customers) {
		out = append(out, models.StateCustomers{State: k, NumCustomers: len(customers[k])})
	}
	slices.SortStableFunc(out, func(a, b models.StateCustomers) int {
		return cmp.Compare(b.NumCustomers, a.NumCustomers)
	})
	return out
}

// ReviewHistogramOf counts rows per review score, descending by count. Equal counts keep
// first-appearance order, so Mode is the first maximum met in table order. Mode is 0 when
// no row has a score.
func ReviewHistogramOf(orders []models.OrderRecord) models.ReviewHistogram {
	h := models.ReviewHistogram{Counts: []models.ReviewCount{}}
	index := make(map[int]int)
	for _, o := range orders {
		if o.ReviewScore == 0 {
			continue
		}
		i, ok := index[o.ReviewScore]
		if !ok {
			i = len(h.Counts)
			index[o.ReviewScore] = i
			h.Counts = append(h.Counts, models.ReviewCount{Score: o.ReviewScore})
		}
		h.Counts[i].Count++
	}

	slices.SortStableFunc(h.Counts, func(a, b models.ReviewCount) int {
		return cmp.Compare(b.Count, a.Count)
	})
	if len(h.Counts) > 0 {
		h.Mode = h.Counts[0].Score
	}
	return h
}

// CategoryOrdersOf counts order ids per category, in ascending category order.
func CategoryOrdersOf(orders []models.OrderRecord) []models.CategoryOrders {
	counts := make(map[string]int)
	for _, o := range orders {
		if o.Category == "" {
			continue
		}
		if _, ok := counts[o.Category]; !ok {
			counts[o.Category] = 0
		}
		if o.OrderID != "" {
			counts[o.Category]++
		}
	}

	out := make([]models.CategoryOrders, 0, len(counts))
	for _, k := range sortedKeys(counts) {
		out = append(out, models.CategoryOrders{Category: k, Products: counts[k]})
	}
	return out
}

// LeastSelling returns the n categories with the fewest orders, ascending.
func LeastSelling(categories []models.CategoryOrders, n int) []models.CategoryOrders {
	sorted := slices.Clone(categories)
	slices.SortStableFunc(sorted, func(a, b models.CategoryOrders) int {
		return cmp.Compare(a.Products, b.Products)
	})
	return head(sorted, n)
}

// TotalRevenue sums daily spending.
func TotalRevenue(days []models.DailySpending) decimal.Decimal {
	total := decimal.Zero
	for _, d := range days {
		total = total.Add(d.DailySpending)
	}
	return total
}

// AverageDailyRevenue is the mean over all day buckets, zero days included.
func AverageDailyRevenue(days []models.DailySpending) decimal.Decimal {
	if len(days) == 0 {
		return decimal.Zero
	}
	return TotalRevenue(days).Div(decimal.NewFromInt(int64(len(days))))
}

func head[T any](s []T, n int) []T {
	if n < 0 || len(s) <= n {
		return s
	}
	return s[:n]
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
