package charts

import (
	"bytes"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/paulmach/orb"
	"github.com/shopspring/decimal"

	"ecommerce-dashboard/internal/geo"
	"ecommerce-dashboard/internal/models"
)

func day(d int) time.Time {
	return time.Date(2018, 1, d, 0, 0, 0, 0, time.UTC)
}

func assertSVG(t *testing.T, svg []byte, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("render error = %v", err)
	}
	if !bytes.Contains(svg, []byte("<svg")) {
		t.Errorf("output is not SVG: %.80q", svg)
	}
}

func TestDailyRevenue(t *testing.T) {
	days := []models.DailySpending{
		{Day: day(1), DailySpending: decimal.NewFromInt(60)},
		{Day: day(2), DailySpending: decimal.Zero},
		{Day: day(3), DailySpending: decimal.RequireFromString("12.5")},
	}
	svg, err := DailyRevenue(days)
	assertSVG(t, svg, err)
}

func TestDailyRevenue_SingleZeroDay(t *testing.T) {
	svg, err := DailyRevenue([]models.DailySpending{{Day: day(1), DailySpending: decimal.Zero}})
	assertSVG(t, svg, err)
}

func TestBarCharts(t *testing.T) {
	products := []models.ProductSales{
		{Category: "bed_bath_table", TotalSold: 30},
		{Category: "health_beauty", TotalSold: 20},
		{Category: "toys", TotalSold: 5},
	}
	svg, err := TopProducts(products, 5)
	assertSVG(t, svg, err)

	least := []models.CategoryOrders{
		{Category: "security_and_services", Products: 2},
		{Category: "fashion_childrens_clothes", Products: 8},
	}
	svg, err = LeastProducts(least, 5)
	assertSVG(t, svg, err)

	states := []models.StateCustomers{{State: "SP", NumCustomers: 40}, {State: "RJ", NumCustomers: 12}}
	svg, err = States(states, 10)
	assertSVG(t, svg, err)

	reviews := models.ReviewHistogram{
		Counts: []models.ReviewCount{{Score: 5, Count: 10}, {Score: 1, Count: 3}},
		Mode:   5,
	}
	svg, err = Reviews(reviews)
	assertSVG(t, svg, err)
}

func TestCustomerMap(t *testing.T) {
	points := orb.MultiPoint{{-46.6, -23.5}, {-43.2, -22.9}, {-47.9, -15.8}}
	boundary := &geo.Boundary{
		Country: "Brazil",
		Polygons: orb.MultiPolygon{{{
			{-74, -34}, {-34, -34}, {-34, 5}, {-74, 5}, {-74, -34},
		}}},
	}

	svg, err := CustomerMap(points, boundary)
	assertSVG(t, svg, err)
	if !bytes.Contains(svg, []byte("Persebaran Pelanggan di Brazil")) {
		t.Error("map should carry its title")
	}

	svg, err = CustomerMap(points, nil)
	assertSVG(t, svg, err)
}

func TestCustomerMap_SkipsNonFinitePoints(t *testing.T) {
	nan := math.NaN()
	points := orb.MultiPoint{{-46.6, -23.5}, {nan, nan}, {math.Inf(1), -22.9}}

	svg, err := CustomerMap(points, nil)
	assertSVG(t, svg, err)
	if bytes.Contains(svg, []byte("NaN")) {
		t.Error("map should not plot NaN coordinates")
	}

	if _, err := CustomerMap(orb.MultiPoint{{nan, nan}}, nil); !errors.Is(err, ErrNoData) {
		t.Errorf("only NaN points: error = %v, want ErrNoData", err)
	}
}

func TestNoData(t *testing.T) {
	tests := []struct {
		name string
		fn   func() ([]byte, error)
	}{
		{"daily revenue", func() ([]byte, error) { return DailyRevenue(nil) }},
		{"top products", func() ([]byte, error) { return TopProducts(nil, 5) }},
		{"least products", func() ([]byte, error) { return LeastProducts(nil, 5) }},
		{"states", func() ([]byte, error) { return States(nil, 10) }},
		{"reviews", func() ([]byte, error) { return Reviews(models.ReviewHistogram{}) }},
		{"map", func() ([]byte, error) { return CustomerMap(nil, nil) }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := tt.fn(); !errors.Is(err, ErrNoData) {
				t.Errorf("error = %v, want ErrNoData", err)
			}
		})
	}
}

func TestPaddedMax(t *testing.T) {
	if got := paddedMax(nil); got != 1 {
		t.Errorf("paddedMax(nil) = %v, want 1", got)
	}
	if got := paddedMax([]float64{0, 0}); got != 1 {
		t.Errorf("paddedMax(zeros) = %v, want 1", got)
	}
	if got := paddedMax([]float64{10, 50}); got != 55.00000000000001 && got != 55 {
		t.Errorf("paddedMax = %v, want 55", got)
	}
}
