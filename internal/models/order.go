package models

import (
	"math"
	"time"

	"github.com/paulmach/orb"
	"github.com/shopspring/decimal"
)

// OrderRecord is one row of the combined orders/items/products/payments/reviews/customers
// export. Zero timestamps mean the source cell was empty.
type OrderRecord struct {
	OrderID          string
	CustomerID       string
	CustomerUniqueID string
	OrderStatus      string
	PurchasedAt      time.Time
	ApprovedAt       time.Time
	DeliveredAt      time.Time
	ProductID        string
	Category         string
	Price            decimal.NullDecimal
	FreightValue     decimal.NullDecimal
	PaymentType      string
	PaymentValue     decimal.NullDecimal
	ReviewScore      int // 0 when the order has no review
	ZipPrefix        string
	City             string
	State            string
}

// Approved reports whether the record carries an approval timestamp.
func (o OrderRecord) Approved() bool {
	return !o.ApprovedAt.IsZero()
}

// GeoRecord is one zip prefix of the geolocation table. NoCoordinates marks rows whose
// latitude or longitude cell was empty or NaN.
type GeoRecord struct {
	ZipPrefix     string
	Latitude      float64
	Longitude     float64
	NoCoordinates bool
	City          string
	State         string
}

// Located reports whether the record carries finite coordinates.
func (g GeoRecord) Located() bool {
	return !g.NoCoordinates && finite(g.Latitude) && finite(g.Longitude)
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

// CustomerGeo is an order row left-joined to its geolocation. Geo is nil when the zip
// prefix had no match; Point is also nil when the match has no coordinates.
type CustomerGeo struct {
	Order OrderRecord
	Geo   *GeoRecord
	Point *orb.Point
}

type DailyOrders struct {
	Day          time.Time       `json:"day"`
	TotalOrders  int             `json:"total_orders"`
	TotalRevenue decimal.Decimal `json:"total_revenue"`
}

type DailySpending struct {
	Day           time.Time       `json:"day"`
	DailySpending decimal.Decimal `json:"daily_spending"`
}

type ProductSales struct {
	Category  string `json:"product_category_name_english"`
	TotalSold int    `json:"total_sold"`
}

type StateCustomers struct {
	State        string `json:"customer_state"`
	NumCustomers int    `json:"num_customers"`
}

type ReviewCount struct {
	Score int `json:"rating"`
	Count int `json:"count"`
}

type ReviewHistogram struct {
	Counts []ReviewCount `json:"counts"`
	Mode   int           `json:"mode"`
}

type CategoryOrders struct {
	Category string `json:"product_category_name_english"`
	Products int    `json:"products"`
}
