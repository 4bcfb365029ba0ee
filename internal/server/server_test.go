package server

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"ecommerce-dashboard/internal/config"
	"ecommerce-dashboard/internal/models"
	"ecommerce-dashboard/internal/observability"
	"ecommerce-dashboard/internal/services"
)

func newTestServer(opts Options) *Server {
	a := services.NewAnalytics()
	a.SetLogger(observability.Discard())
	a.SetData([]models.OrderRecord{{
		OrderID:      "o1",
		CustomerID:   "c1",
		ProductID:    "p1",
		Category:     "toys",
		State:        "SP",
		ApprovedAt:   time.Date(2018, 1, 1, 10, 0, 0, 0, time.UTC),
		PaymentValue: decimal.NewNullDecimal(decimal.NewFromInt(10)),
		ReviewScore:  5,
	}}, nil, nil)
	return NewServer(a, observability.Discard(), opts)
}

func TestServer_Routes(t *testing.T) {
	srv := newTestServer(Options{Metrics: observability.NewMetrics()})

	tests := []struct {
		path   string
		status int
		ctype  string
	}{
		{"/", http.StatusOK, "text/html"},
		{"/health", http.StatusOK, "application/json"},
		{"/admin/stats", http.StatusOK, "application/json"},
		{"/api/summary", http.StatusOK, "application/json"},
		{"/api/daily-orders", http.StatusOK, "application/json"},
		{"/api/daily-spending", http.StatusOK, "application/json"},
		{"/api/products", http.StatusOK, "application/json"},
		{"/api/states", http.StatusOK, "application/json"},
		{"/api/reviews", http.StatusOK, "application/json"},
		{"/api/categories", http.StatusOK, "application/json"},
		{"/api/export.xlsx", http.StatusOK, "application/vnd.openxmlformats"},
		{"/charts/reviews.svg", http.StatusOK, "image/svg+xml"},
		{"/sse/dashboard", http.StatusOK, "text/event-stream"},
		{"/metrics", http.StatusOK, "text/plain"},
		{"/nonexistent", http.StatusNotFound, ""},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			w := httptest.NewRecorder()
			srv.ServeHTTP(w, httptest.NewRequest(http.MethodGet, tt.path, nil))

			if w.Code != tt.status {
				t.Fatalf("status = %d, want %d", w.Code, tt.status)
			}
			if ct := w.Header().Get("Content-Type"); !strings.HasPrefix(ct, tt.ctype) {
				t.Errorf("content type = %q, want prefix %q", ct, tt.ctype)
			}
		})
	}
}

func TestServer_MetricsDisabled(t *testing.T) {
	srv := newTestServer(Options{})

	w := httptest.NewRecorder()
	srv.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404 without metrics", w.Code)
	}
}

func TestServer_MethodNotAllowed(t *testing.T) {
	srv := newTestServer(Options{})

	w := httptest.NewRecorder()
	srv.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/summary", nil))
	if w.Code != http.StatusMethodNotAllowed {
		t.Errorf("status = %d, want 405", w.Code)
	}
}

func TestGracefulServer_Run(t *testing.T) {
	cfg := &config.Config{Server: config.ServerConfig{ShutdownTimeout: 2 * time.Second}}
	httpServer := &http.Server{Addr: "127.0.0.1:0", Handler: http.NotFoundHandler()}
	gs := NewGracefulServer(httpServer, observability.Discard(), cfg)

	var ran atomic.Int32
	gs.RegisterShutdownHook("first", func(context.Context) error {
		ran.Add(1)
		return nil
	})
	errHook := errors.New("flush failed")
	gs.RegisterShutdownHook("second", func(context.Context) error {
		ran.Add(1)
		return errHook
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- gs.Run(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, errHook) {
			t.Errorf("Run() error = %v, want hook error", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Run() did not return after cancel")
	}

	if ran.Load() != 2 {
		t.Errorf("hooks run = %d, want 2", ran.Load())
	}
}

func TestGracefulServer_ListenError(t *testing.T) {
	cfg := &config.Config{Server: config.ServerConfig{ShutdownTimeout: time.Second}}
	httpServer := &http.Server{Addr: "256.0.0.1:bad"}
	gs := NewGracefulServer(httpServer, observability.Discard(), cfg)

	if err := gs.Run(context.Background()); err == nil {
		t.Error("Run() should fail on an invalid address")
	}
}
