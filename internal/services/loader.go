package services

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"ecommerce-dashboard/internal/models"
)

var (
	// ErrInputFile is returned when an input file is missing or unreadable.
	ErrInputFile = errors.New("input file unavailable")
	// ErrMalformedInput is returned when an input file lacks a required column or holds
	// an unparseable value.
	ErrMalformedInput = errors.New("malformed input")
	// ErrEmptySelection describes a date range that matched no orders.
	ErrEmptySelection = errors.New("no data for this range")
)

const (
	colOrderID          = "order_id"
	colCustomerID       = "customer_id"
	colCustomerUniqueID = "customer_unique_id"
	colOrderStatus      = "order_status"
	colPurchasedAt      = "order_purchase_timestamp"
	colApprovedAt       = "order_approved_at"
	colDeliveredAt      = "order_delivered_customer_date"
	colProductID        = "product_id"
	colCategory         = "product_category_name_english"
	colPrice            = "price"
	colFreightValue     = "freight_value"
	colPaymentType      = "payment_type"
	colPaymentValue     = "payment_value"
	colReviewScore      = "review_score"
	colZipPrefix        = "customer_zip_code_prefix"
	colCity             = "customer_city"
	colState            = "customer_state"

	colGeoZipPrefix = "geolocation_zip_code_prefix"
	colGeoLat       = "geolocation_lat"
	colGeoLng       = "geolocation_lng"
	colGeoCity      = "geolocation_city"
	colGeoState     = "geolocation_state"
)

var orderRequired = []string{colOrderID, colCustomerID, colApprovedAt, colProductID, colCategory, colPaymentValue, colReviewScore, colZipPrefix, colState}

var geoRequired = []string{colGeoZipPrefix, colGeoLat, colGeoLng}

var timestampLayouts = []string{
	"2006-01-02 15:04:05",
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04",
	models.DayLayout,
}

// header maps lower-cased column names to their index.
type header map[string]int

func newHeader(row []string) header {
	h := make(header, len(row))
	for i, col := range row {
		name := strings.ToLower(strings.TrimSpace(strings.TrimPrefix(col, "\ufeff")))
		if _, dup := h[name]; !dup {
			h[name] = i
		}
	}
	return h
}

func (h header) require(path string, cols []string) error {
	var missing []string
	for _, c := range cols {
		if _, ok := h[c]; !ok {
			missing = append(missing, c)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: %s: missing columns %s", ErrMalformedInput, path, strings.Join(missing, ", "))
	}
	return nil
}

func (h header) get(row []string, col string) string {
	idx, ok := h[col]
	if !ok || idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}

// openCSV opens path and returns a reader positioned after the header row.
func openCSV(path string) (*os.File, *csv.Reader, header, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("%w: %v", ErrInputFile, err)
	}

	r := csv.NewReader(file)
	r.ReuseRecord = true
	r.FieldsPerRecord = -1

	first, err := r.Read()
	if err != nil {
		file.Close()
		if errors.Is(err, io.EOF) {
			return nil, nil, nil, fmt.Errorf("%w: %s: empty file", ErrMalformedInput, path)
		}
		return nil, nil, nil, fmt.Errorf("%w: %s: read header: %v", ErrMalformedInput, path, err)
	}
	return file, r, newHeader(first), nil
}

// LoadOrders reads the combined orders CSV, parses its date columns and sorts the rows
// ascending by approval timestamp. Rows without an approval timestamp sort last.
func LoadOrders(ctx context.Context, path string) ([]models.OrderRecord, error) {
	file, r, h, err := openCSV(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	if err := h.require(path, orderRequired); err != nil {
		return nil, err
	}

	var orders []models.OrderRecord
	line := 1
	for {
		if line%4096 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}

		row, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("%w: %s: line %d: %v", ErrMalformedInput, path, line, err)
		}

		rec, err := parseOrder(h, row)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: line %d: %v", ErrMalformedInput, path, line, err)
		}
		orders = append(orders, rec)
	}

	if len(orders) == 0 {
		return nil, fmt.Errorf("%w: %s: no data rows", ErrMalformedInput, path)
	}

	return SortedByApproval(orders), nil
}

// SortedByApproval stable-sorts orders ascending by approval timestamp in place, rows
// without one last.
func SortedByApproval(orders []models.OrderRecord) []models.OrderRecord {
	slices.SortStableFunc(orders, func(a, b models.OrderRecord) int {
		switch {
		case a.ApprovedAt.IsZero() && b.ApprovedAt.IsZero():
			return 0
		case a.ApprovedAt.IsZero():
			return 1
		case b.ApprovedAt.IsZero():
			return -1
		}
		return a.ApprovedAt.Compare(b.ApprovedAt)
	})
	return orders
}

func parseOrder(h header, row []string) (models.OrderRecord, error) {
	rec := models.OrderRecord{
		OrderID:          h.get(row, colOrderID),
		CustomerID:       h.get(row, colCustomerID),
		CustomerUniqueID: h.get(row, colCustomerUniqueID),
		OrderStatus:      h.get(row, colOrderStatus),
		ProductID:        h.get(row, colProductID),
		Category:         h.get(row, colCategory),
		PaymentType:      h.get(row, colPaymentType),
		ZipPrefix:        normalizeZip(h.get(row, colZipPrefix)),
		City:             h.get(row, colCity),
		State:            h.get(row, colState),
	}

	var err error
	if rec.PurchasedAt, err = parseTimestamp(h.get(row, colPurchasedAt)); err != nil {
		return rec, fmt.Errorf("%s: %w", colPurchasedAt, err)
	}
	if rec.ApprovedAt, err = parseTimestamp(h.get(row, colApprovedAt)); err != nil {
		return rec, fmt.Errorf("%s: %w", colApprovedAt, err)
	}
	if rec.DeliveredAt, err = parseTimestamp(h.get(row, colDeliveredAt)); err != nil {
		return rec, fmt.Errorf("%s: %w", colDeliveredAt, err)
	}
	if rec.Price, err = parseDecimal(h.get(row, colPrice)); err != nil {
		return rec, fmt.Errorf("%s: %w", colPrice, err)
	}
	if rec.FreightValue, err = parseDecimal(h.get(row, colFreightValue)); err != nil {
		return rec, fmt.Errorf("%s: %w", colFreightValue, err)
	}
	if rec.PaymentValue, err = parseDecimal(h.get(row, colPaymentValue)); err != nil {
		return rec, fmt.Errorf("%s: %w", colPaymentValue, err)
	}
	if rec.ReviewScore, err = parseScore(h.get(row, colReviewScore)); err != nil {
		return rec, fmt.Errorf("%s: %w", colReviewScore, err)
	}
	return rec, nil
}

// LoadGeolocation reads the geolocation CSV keeping the first row of each zip prefix.
func LoadGeolocation(ctx context.Context, path string) ([]models.GeoRecord, error) {
	file, r, h, err := openCSV(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	if err := h.require(path, geoRequired); err != nil {
		return nil, err
	}

	var geo []models.GeoRecord
	line := 1
	for {
		if line%4096 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}

		row, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("%w: %s: line %d: %v", ErrMalformedInput, path, line, err)
		}

		rec := models.GeoRecord{
			ZipPrefix: normalizeZip(h.get(row, colGeoZipPrefix)),
			City:      h.get(row, colGeoCity),
			State:     h.get(row, colGeoState),
		}
		lat, latOK, err := parseCoordinate(h.get(row, colGeoLat))
		if err != nil {
			return nil, fmt.Errorf("%w: %s: line %d: %s: %v", ErrMalformedInput, path, line, colGeoLat, err)
		}
		lng, lngOK, err := parseCoordinate(h.get(row, colGeoLng))
		if err != nil {
			return nil, fmt.Errorf("%w: %s: line %d: %s: %v", ErrMalformedInput, path, line, colGeoLng, err)
		}
		if latOK && lngOK {
			rec.Latitude, rec.Longitude = lat, lng
		} else {
			rec.NoCoordinates = true
		}
		geo = append(geo, rec)
	}

	return DedupeGeolocation(geo), nil
}

// DedupeGeolocation drops rows whose zip prefix was already seen. Applying it twice
// yields the same result as once.
func DedupeGeolocation(geo []models.GeoRecord) []models.GeoRecord {
	seen := make(map[string]struct{}, len(geo))
	out := make([]models.GeoRecord, 0, len(geo))
	for _, g := range geo {
		if _, ok := seen[g.ZipPrefix]; ok {
			continue
		}
		seen[g.ZipPrefix] = struct{}{}
		out = append(out, g)
	}
	return out
}

func parseTimestamp(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised timestamp %q", s)
}

func parseDecimal(s string) (decimal.NullDecimal, error) {
	if s == "" || strings.EqualFold(s, "nan") {
		return decimal.NullDecimal{}, nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.NullDecimal{}, err
	}
	return decimal.NewNullDecimal(d), nil
}

// parseScore accepts "4" and "4.0"; pandas writes integer columns with gaps as floats.
func parseScore(s string) (int, error) {
	if s == "" || strings.EqualFold(s, "nan") {
		return 0, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, err
	}
	score := int(f)
	if float64(score) != f || score < 1 || score > 5 {
		return 0, fmt.Errorf("review score %q out of range 1-5", s)
	}
	return score, nil
}

// parseCoordinate reports ok=false for empty, NaN and infinite cells. Those rows stay in
// the table but never become map points.
func parseCoordinate(s string) (v float64, ok bool, err error) {
	if s == "" {
		return 0, false, nil
	}
	v, err = strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false, err
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false, nil
	}
	return v, true, nil
}

// normalizeZip strips a trailing ".0" and left-pads to five digits so "1037", "01037" and
// "1037.0" all join.
func normalizeZip(s string) string {
	s = strings.TrimSuffix(s, ".0")
	if s == "" {
		return ""
	}
	if len(s) < 5 {
		s = strings.Repeat("0", 5-len(s)) + s
	}
	return s
}
