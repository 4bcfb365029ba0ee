package handlers

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"ecommerce-dashboard/internal/charts"
	"ecommerce-dashboard/internal/currency"
	apperrors "ecommerce-dashboard/internal/errors"
	"ecommerce-dashboard/internal/models"
	"ecommerce-dashboard/internal/observability"
	"ecommerce-dashboard/internal/services"
	"ecommerce-dashboard/internal/ui/templates"
)

const (
	renderTimeout = 10 * time.Second
	cacheMaxAge   = "public, max-age=300"

	topProducts   = 5
	leastProducts = 5
	topStates     = 10
)

const (
	ChartDailyRevenue = "daily-revenue"
	ChartTopProducts  = "top-products"
	ChartLeast        = "least-products"
	ChartStates       = "states"
	ChartCustomerMap  = "customer-map"
	ChartReviews      = "reviews"
)

var errUnknownChart = errors.New("unknown chart")

type chartDef struct {
	title  string
	render func(a *services.Analytics, s models.Summary) ([]byte, error)
}

// chartOrder is the order panels appear on the page.
var chartOrder = []string{ChartDailyRevenue, ChartTopProducts, ChartLeast, ChartStates, ChartCustomerMap, ChartReviews}

var chartDefs = map[string]chartDef{
	ChartDailyRevenue: {"Daily Revenue", func(_ *services.Analytics, s models.Summary) ([]byte, error) {
		return charts.DailyRevenue(s.DailySpending)
	}},
	ChartTopProducts: {"Top Selling Products", func(_ *services.Analytics, s models.Summary) ([]byte, error) {
		return charts.TopProducts(s.ProductSales, topProducts)
	}},
	ChartLeast: {"Least Selling Products", func(_ *services.Analytics, s models.Summary) ([]byte, error) {
		return charts.LeastProducts(services.LeastSelling(s.CategoryOrders, leastProducts), leastProducts)
	}},
	ChartStates: {"Customer Distribution by State", func(_ *services.Analytics, s models.Summary) ([]byte, error) {
		return charts.States(s.StateCustomers, topStates)
	}},
	// The map shows every joined customer regardless of the selected range.
	ChartCustomerMap: {"Customer Distribution Map", func(a *services.Analytics, _ models.Summary) ([]byte, error) {
		return charts.CustomerMap(a.CustomerPoints(), a.Boundary())
	}},
	ChartReviews: {"Customer Satisfaction Ratings", func(_ *services.Analytics, s models.Summary) ([]byte, error) {
		return charts.Reviews(s.Reviews)
	}},
}

// ChartRecorder is told the outcome of every chart render.
type ChartRecorder interface {
	RecordChartRender(chart, status string)
}

// Renderer turns a summary into metric and chart view models.
type Renderer struct {
	analytics *services.Analytics
	logger    *slog.Logger
	recorder  ChartRecorder
}

func NewRenderer(analytics *services.Analytics, logger *slog.Logger, recorder ChartRecorder) *Renderer {
	return &Renderer{analytics: analytics, logger: logger, recorder: recorder}
}

// Chart renders the named chart. It returns charts.ErrNoData for an empty selection.
func (rd *Renderer) Chart(name string, s models.Summary) ([]byte, error) {
	def, ok := chartDefs[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", errUnknownChart, name)
	}

	svg, err := def.render(rd.analytics, s)
	status := "ok"
	switch {
	case errors.Is(err, charts.ErrNoData):
		status = "no_data"
	case err != nil:
		status = "error"
	}
	if rd.recorder != nil {
		rd.recorder.RecordChartRender(name, status)
	}
	return svg, err
}

// Panels renders every chart in page order. Charts that fail render as placeholders.
func (rd *Renderer) Panels(s models.Summary) []templates.Panel {
	panels := make([]templates.Panel, 0, len(chartOrder))
	for _, name := range chartOrder {
		svg, err := rd.Chart(name, s)
		if err != nil && !errors.Is(err, charts.ErrNoData) {
			rd.logger.Error("render chart", "chart", name, "range", s.Range.String(), "error", err)
		}
		panels = append(panels, templates.Panel{ID: name, Title: chartDefs[name].title, SVG: svg})
	}
	return panels
}

func (rd *Renderer) Metrics(s models.Summary) templates.MetricsView {
	return templates.MetricsView{
		TotalRevenue: currency.FormatBRL(s.TotalRevenue),
		AverageDaily: currency.FormatBRL(s.AverageDaily),
		Rows:         s.Rows,
		Empty:        s.Empty,
	}
}

type PageHandlers struct {
	analytics *services.Analytics
	renderer  *Renderer
	logger    *slog.Logger
}

func NewPageHandlers(analytics *services.Analytics, renderer *Renderer, logger *slog.Logger) *PageHandlers {
	return &PageHandlers{analytics: analytics, renderer: renderer, logger: logger}
}

// HandleDashboard renders the full page for the range in the query, defaulting to the
// data bounds.
func (h *PageHandlers) HandleDashboard(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), renderTimeout)
	defer cancel()

	rng, err := parseRange(r, h.analytics)
	if err != nil {
		apperrors.WriteError(w, h.logger, err, observability.GetRequestID(ctx))
		return
	}

	s := h.analytics.Summary(ctx, "page", rng)
	view := templates.DashboardView{
		Start:   rng.Start.Format(models.DayLayout),
		End:     rng.End.Format(models.DayLayout),
		Metrics: h.renderer.Metrics(s),
		Panels:  h.renderer.Panels(s),
	}
	if bounds, ok := h.analytics.Bounds(); ok {
		view.Min = bounds.Start.Format(models.DayLayout)
		view.Max = bounds.End.Format(models.DayLayout)
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", cacheMaxAge)
	if err := templates.Dashboard(view).Render(ctx, w); err != nil {
		h.logger.Error("render dashboard", "error", err, "request_id", observability.GetRequestID(ctx))
		http.Error(w, "render error", http.StatusInternalServerError)
	}
}
