package services

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strconv"
	"sync"
	"time"

	"github.com/paulmach/orb"
	"golang.org/x/sync/errgroup"

	"ecommerce-dashboard/internal/geo"
	"ecommerce-dashboard/internal/models"
	"ecommerce-dashboard/internal/observability"
)

// BoundaryFetcher loads the country outline drawn behind the customer map.
type BoundaryFetcher interface {
	Fetch(ctx context.Context) (*geo.Boundary, error)
}

// Recorder receives one observation per recompute.
type Recorder interface {
	RecordRecompute(surface string, rows int, empty bool, duration time.Duration)
}

type Sources struct {
	OrdersPath      string
	GeolocationPath string
	Boundary        BoundaryFetcher
}

type dataset struct {
	orders   []models.OrderRecord
	geo      []models.GeoRecord
	joined   []models.CustomerGeo
	points   orb.MultiPoint
	boundary *geo.Boundary
	bounds   models.DateRange
	hasData  bool
	loadedAt time.Time
}

// Analytics owns the loaded dataset and recomputes every aggregate on demand.
type Analytics struct {
	mu       sync.RWMutex
	data     *dataset
	logger   *slog.Logger
	recorder Recorder
}

func NewAnalytics() *Analytics {
	return &Analytics{
		data:   &dataset{},
		logger: slog.Default(),
	}
}

func (a *Analytics) SetLogger(logger *slog.Logger) {
	a.logger = logger
}

func (a *Analytics) SetRecorder(r Recorder) {
	a.recorder = r
}

// Load reads both CSVs and fetches the boundary concurrently, then joins customers to
// their coordinates. A failed boundary fetch is logged and leaves the map without outline.
func (a *Analytics) Load(ctx context.Context, src Sources) error {
	start := time.Now()

	var (
		orders   []models.OrderRecord
		geoRows  []models.GeoRecord
		boundary *geo.Boundary
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		orders, err = LoadOrders(gctx, src.OrdersPath)
		if err != nil {
			return fmt.Errorf("load orders: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		geoRows, err = LoadGeolocation(gctx, src.GeolocationPath)
		if err != nil {
			return fmt.Errorf("load geolocation: %w", err)
		}
		return nil
	})
	if src.Boundary != nil {
		g.Go(func() error {
			b, err := src.Boundary.Fetch(gctx)
			if err != nil {
				a.logger.Warn("country boundary unavailable, map renders without outline", "error", err)
				return nil
			}
			boundary = b
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	a.set(orders, geoRows, boundary)

	a.logger.Info("dataset loaded",
		"orders", len(orders),
		"zip_prefixes", len(geoRows),
		"customer_points", len(a.CustomerPoints()),
		"boundary", boundary != nil,
		"duration", time.Since(start),
	)
	return nil
}

// SetData replaces the dataset with in-memory rows.
func (a *Analytics) SetData(orders []models.OrderRecord, geoRows []models.GeoRecord, boundary *geo.Boundary) {
	a.set(SortedByApproval(slices.Clone(orders)), DedupeGeolocation(geoRows), boundary)
}

func (a *Analytics) set(orders []models.OrderRecord, geoRows []models.GeoRecord, boundary *geo.Boundary) {
	joined := JoinCustomerGeo(orders, geoRows)
	bounds, ok := ApprovalBounds(orders)

	d := &dataset{
		orders:   orders,
		geo:      geoRows,
		joined:   joined,
		points:   CustomerPoints(joined),
		boundary: boundary,
		bounds:   bounds,
		hasData:  ok,
		loadedAt: time.Now(),
	}

	a.mu.Lock()
	a.data = d
	a.mu.Unlock()
}

func (a *Analytics) snapshot() *dataset {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.data
}

// Bounds is the default date range: first to last approval day of the full dataset.
func (a *Analytics) Bounds() (models.DateRange, bool) {
	d := a.snapshot()
	return d.bounds, d.hasData
}

// ResolveRange builds a range from optional ends, defaulting each to the data bounds.
func (a *Analytics) ResolveRange(start, end *time.Time) models.DateRange {
	bounds, _ := a.Bounds()
	r := bounds
	if start != nil {
		r.Start = models.Day(*start)
	}
	if end != nil {
		r.End = models.Day(*end)
	}
	return r
}

// Summary filters the dataset to r and computes every aggregate. An empty selection
// yields empty aggregates, not an error.
func (a *Analytics) Summary(ctx context.Context, surface string, r models.DateRange) models.Summary {
	_, span := observability.StartSpan(ctx, "dashboard.recompute")
	start := time.Now()

	d := a.snapshot()
	filtered := FilterByApproval(d.orders, r)

	daily := DailySpendingOf(filtered)
	s := models.Summary{
		Range:          r,
		Rows:           len(filtered),
		Empty:          len(filtered) == 0,
		TotalRevenue:   TotalRevenue(daily),
		AverageDaily:   AverageDailyRevenue(daily),
		DailyOrders:    DailyOrdersOf(filtered),
		DailySpending:  daily,
		ProductSales:   ProductSalesOf(filtered),
		StateCustomers: StateCustomersOf(filtered),
		Reviews:        ReviewHistogramOf(filtered),
		CategoryOrders: CategoryOrdersOf(filtered),
	}

	span.SetTag("range", r.String())
	span.SetTag("rows", strconv.Itoa(s.Rows))
	if s.Empty {
		span.SetError(ErrEmptySelection)
	}
	span.Finish(a.logger)

	if a.recorder != nil {
		a.recorder.RecordRecompute(surface, s.Rows, s.Empty, time.Since(start))
	}
	return s
}

// CustomerPoints returns the coordinates of every joined customer row.
func (a *Analytics) CustomerPoints() orb.MultiPoint {
	return a.snapshot().points
}

// Boundary returns the country outline, or nil when the fetch failed.
func (a *Analytics) Boundary() *geo.Boundary {
	return a.snapshot().boundary
}

// Stats reports dataset sizes for monitoring.
func (a *Analytics) Stats() map[string]any {
	d := a.snapshot()

	unmatched := 0
	for _, j := range d.joined {
		if j.Geo == nil {
			unmatched++
		}
	}

	stats := map[string]any{
		"orders":          len(d.orders),
		"zip_prefixes":    len(d.geo),
		"customer_points": len(d.points),
		"unmatched_rows":  unmatched,
		"boundary_loaded": d.boundary != nil,
		"last_loaded":     d.loadedAt,
	}
	if d.hasData {
		stats["first_approval_day"] = d.bounds.Start.Format(models.DayLayout)
		stats["last_approval_day"] = d.bounds.End.Format(models.DayLayout)
	}
	return stats
}
