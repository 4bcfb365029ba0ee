package models

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

const DayLayout = "2006-01-02"

// DateRange is a closed interval of calendar days. Start and End are truncated to midnight UTC.
type DateRange struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

func NewDateRange(start, end time.Time) DateRange {
	return DateRange{Start: Day(start), End: Day(end)}
}

// ParseDateRange parses two YYYY-MM-DD values.
func ParseDateRange(start, end string) (DateRange, error) {
	s, err := time.Parse(DayLayout, start)
	if err != nil {
		return DateRange{}, fmt.Errorf("parse start date %q: %w", start, err)
	}
	e, err := time.Parse(DayLayout, end)
	if err != nil {
		return DateRange{}, fmt.Errorf("parse end date %q: %w", end, err)
	}
	return NewDateRange(s, e), nil
}

// Contains reports whether t falls on a day inside the range.
func (r DateRange) Contains(t time.Time) bool {
	if t.IsZero() {
		return false
	}
	d := Day(t)
	return !d.Before(r.Start) && !d.After(r.End)
}

func (r DateRange) Empty() bool {
	return r.Start.After(r.End)
}

func (r DateRange) String() string {
	return r.Start.Format(DayLayout) + ".." + r.End.Format(DayLayout)
}

// Day truncates t to the start of its calendar day in UTC.
func Day(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Summary holds every aggregate of one render pass.
type Summary struct {
	Range          DateRange        `json:"range"`
	Rows           int              `json:"rows"`
	Empty          bool             `json:"empty"`
	TotalRevenue   decimal.Decimal  `json:"total_revenue"`
	AverageDaily   decimal.Decimal  `json:"average_daily_revenue"`
	DailyOrders    []DailyOrders    `json:"daily_orders"`
	DailySpending  []DailySpending  `json:"daily_spending"`
	ProductSales   []ProductSales   `json:"product_sales"`
	StateCustomers []StateCustomers `json:"customer_states"`
	Reviews        ReviewHistogram  `json:"reviews"`
	CategoryOrders []CategoryOrders `json:"category_orders"`
}
