package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/paulmach/orb"
	"github.com/shopspring/decimal"

	"ecommerce-dashboard/internal/geo"
	"ecommerce-dashboard/internal/models"
	"ecommerce-dashboard/internal/observability"
	"ecommerce-dashboard/internal/services"
)

func day(d, hour int) time.Time {
	return time.Date(2018, 1, d, hour, 0, 0, 0, time.UTC)
}

func order(id, customer, category, state, zip string, approved time.Time, payment int64, score int) models.OrderRecord {
	return models.OrderRecord{
		OrderID:      id,
		CustomerID:   customer,
		ProductID:    "p-" + id,
		Category:     category,
		State:        state,
		ZipPrefix:    zip,
		ApprovedAt:   approved,
		PaymentValue: decimal.NewNullDecimal(decimal.NewFromInt(payment)),
		ReviewScore:  score,
	}
}

func createTestAnalytics() *services.Analytics {
	a := services.NewAnalytics()
	a.SetLogger(observability.Discard())
	a.SetData(
		[]models.OrderRecord{
			order("o1", "c1", "toys", "SP", "01037", day(1, 9), 10, 5),
			order("o2", "c2", "books", "RJ", "22290", day(1, 12), 20, 5),
			order("o3", "c3", "toys", "SP", "01037", day(3, 8), 30, 4),
		},
		[]models.GeoRecord{
			{ZipPrefix: "01037", Latitude: -23.54, Longitude: -46.63},
			{ZipPrefix: "22290", Latitude: -22.95, Longitude: -43.17},
		},
		&geo.Boundary{
			Country:  "Brazil",
			Polygons: orb.MultiPolygon{{{{-74, -34}, {-34, -34}, {-34, 5}, {-74, 5}, {-74, -34}}}},
		},
	)
	return a
}

type chartCounter struct {
	mu     sync.Mutex
	status map[string]int
}

func (c *chartCounter) RecordChartRender(_, status string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.status == nil {
		c.status = make(map[string]int)
	}
	c.status[status]++
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func decode(t *testing.T, w *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	if err := json.NewDecoder(w.Body).Decode(&env); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return env
}

func TestAPIHandlers_Endpoints(t *testing.T) {
	h := NewAPIHandlers(createTestAnalytics(), observability.Discard())

	tests := []struct {
		name    string
		handler http.HandlerFunc
		items   int
	}{
		{"daily orders", h.HandleDailyOrders, 3},
		{"daily spending", h.HandleDailySpending, 3},
		{"products", h.HandleProducts, 2},
		{"states", h.HandleStates, 2},
		{"categories", h.HandleCategories, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			tt.handler(w, httptest.NewRequest(http.MethodGet, "/api/x", nil))

			if w.Code != http.StatusOK {
				t.Fatalf("status = %d, want 200", w.Code)
			}
			if ct := w.Header().Get("Content-Type"); ct != "application/json" {
				t.Errorf("content type = %q", ct)
			}
			if cc := w.Header().Get("Cache-Control"); cc != cacheMaxAge {
				t.Errorf("cache control = %q", cc)
			}

			env := decode(t, w)
			var resp struct {
				Empty bool              `json:"empty"`
				Items []json.RawMessage `json:"items"`
			}
			if err := json.Unmarshal(env.Data, &resp); err != nil {
				t.Fatal(err)
			}
			if !env.Success || resp.Empty || len(resp.Items) != tt.items {
				t.Errorf("success = %v, empty = %v, items = %d, want %d", env.Success, resp.Empty, len(resp.Items), tt.items)
			}
		})
	}
}

func TestAPIHandlers_HandleSummary(t *testing.T) {
	h := NewAPIHandlers(createTestAnalytics(), observability.Discard())

	w := httptest.NewRecorder()
	h.HandleSummary(w, httptest.NewRequest(http.MethodGet, "/api/summary?start=2018-01-01&end=2018-01-01", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}

	var s models.Summary
	if err := json.Unmarshal(decode(t, w).Data, &s); err != nil {
		t.Fatal(err)
	}
	if s.Rows != 2 {
		t.Errorf("rows = %d, want 2", s.Rows)
	}
	if !s.TotalRevenue.Equal(decimal.NewFromInt(30)) {
		t.Errorf("total revenue = %s, want 30", s.TotalRevenue)
	}
	if s.Reviews.Mode != 5 {
		t.Errorf("review mode = %d, want 5", s.Reviews.Mode)
	}
}

func TestAPIHandlers_EmptyRange(t *testing.T) {
	h := NewAPIHandlers(createTestAnalytics(), observability.Discard())

	for _, query := range []string{"start=2019-01-01&end=2019-02-01", "start=2018-01-03&end=2018-01-01"} {
		w := httptest.NewRecorder()
		h.HandleProducts(w, httptest.NewRequest(http.MethodGet, "/api/products?"+query, nil))
		if w.Code != http.StatusOK {
			t.Fatalf("%s: status = %d, want 200", query, w.Code)
		}

		var resp rangeResponse
		if err := json.Unmarshal(decode(t, w).Data, &resp); err != nil {
			t.Fatal(err)
		}
		if !resp.Empty {
			t.Errorf("%s: expected empty selection", query)
		}
		if items, ok := resp.Items.([]any); !ok || len(items) != 0 {
			t.Errorf("%s: items = %v, want empty array", query, resp.Items)
		}
	}
}

func TestAPIHandlers_InvalidDate(t *testing.T) {
	h := NewAPIHandlers(createTestAnalytics(), observability.Discard())

	tests := []string{"start=01/02/2018", "end=2018-13-01", "start=yesterday"}
	for _, query := range tests {
		t.Run(query, func(t *testing.T) {
			w := httptest.NewRecorder()
			h.HandleSummary(w, httptest.NewRequest(http.MethodGet, "/api/summary?"+query, nil))

			if w.Code != http.StatusBadRequest {
				t.Fatalf("status = %d, want 400", w.Code)
			}
			env := decode(t, w)
			if env.Success || env.Error == nil || env.Error.Code != "VALIDATION_ERROR" {
				t.Errorf("unexpected envelope %+v", env)
			}
		})
	}
}

func TestAPIHandlers_HandleHealth(t *testing.T) {
	h := NewAPIHandlers(createTestAnalytics(), observability.Discard())

	w := httptest.NewRecorder()
	h.HandleHealth(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}

	body := w.Body.String()
	for _, want := range []string{`"status":"healthy"`, `"data_loaded":true`, `"version":"1.0.0"`} {
		if !strings.Contains(body, want) {
			t.Errorf("health body missing %s: %s", want, body)
		}
	}
}

func TestAPIHandlers_HandleStats(t *testing.T) {
	h := NewAPIHandlers(createTestAnalytics(), observability.Discard())

	w := httptest.NewRecorder()
	h.HandleStats(w, httptest.NewRequest(http.MethodGet, "/admin/stats", nil))

	var stats map[string]any
	if err := json.Unmarshal(decode(t, w).Data, &stats); err != nil {
		t.Fatal(err)
	}
	if stats["orders"] != float64(3) || stats["customer_points"] != float64(3) || stats["boundary_loaded"] != true {
		t.Errorf("stats = %v", stats)
	}
}
