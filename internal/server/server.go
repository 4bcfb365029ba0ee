package server

import (
	"log/slog"
	"net/http"

	"ecommerce-dashboard/internal/handlers"
	"ecommerce-dashboard/internal/observability"
	"ecommerce-dashboard/internal/services"
)

// Options selects optional surfaces. A nil Metrics disables the metrics route and chart
// render counters.
type Options struct {
	Metrics     *observability.Metrics
	MetricsPath string
}

type Server struct {
	analytics      *services.Analytics
	mux            *http.ServeMux
	logger         *slog.Logger
	pageHandlers   *handlers.PageHandlers
	apiHandlers    *handlers.APIHandlers
	sseHandlers    *handlers.SSEHandlers
	chartHandlers  *handlers.ChartHandlers
	exportHandlers *handlers.ExportHandlers
}

func NewServer(analytics *services.Analytics, logger *slog.Logger, opts Options) *Server {
	var recorder handlers.ChartRecorder
	if opts.Metrics != nil {
		recorder = opts.Metrics
	}
	renderer := handlers.NewRenderer(analytics, logger, recorder)

	s := &Server{
		analytics:      analytics,
		mux:            http.NewServeMux(),
		logger:         logger,
		pageHandlers:   handlers.NewPageHandlers(analytics, renderer, logger),
		apiHandlers:    handlers.NewAPIHandlers(analytics, logger),
		sseHandlers:    handlers.NewSSEHandlers(analytics, renderer, logger),
		chartHandlers:  handlers.NewChartHandlers(analytics, renderer, logger),
		exportHandlers: handlers.NewExportHandlers(analytics, logger),
	}
	s.setupRoutes(opts)
	return s
}

func (s *Server) setupRoutes(opts Options) {
	// Dashboard
	s.mux.HandleFunc("GET /{$}", s.pageHandlers.HandleDashboard)
	s.mux.HandleFunc("GET /health", s.apiHandlers.HandleHealth)
	s.mux.HandleFunc("GET /admin/stats", s.apiHandlers.HandleStats)

	// REST API
	s.mux.HandleFunc("GET /api/summary", s.apiHandlers.HandleSummary)
	s.mux.HandleFunc("GET /api/daily-orders", s.apiHandlers.HandleDailyOrders)
	s.mux.HandleFunc("GET /api/daily-spending", s.apiHandlers.HandleDailySpending)
	s.mux.HandleFunc("GET /api/products", s.apiHandlers.HandleProducts)
	s.mux.HandleFunc("GET /api/states", s.apiHandlers.HandleStates)
	s.mux.HandleFunc("GET /api/reviews", s.apiHandlers.HandleReviews)
	s.mux.HandleFunc("GET /api/categories", s.apiHandlers.HandleCategories)
	s.mux.HandleFunc("GET /api/export.xlsx", s.exportHandlers.HandleXLSX)

	// Charts
	s.mux.HandleFunc("GET /charts/{file}", s.chartHandlers.HandleChart)

	// Datastar SSE
	s.mux.HandleFunc("GET /sse/dashboard", s.sseHandlers.HandleDashboard)

	if opts.Metrics != nil {
		path := opts.MetricsPath
		if path == "" {
			path = "/metrics"
		}
		s.mux.Handle("GET "+path, opts.Metrics.Handler())
	}
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}
