package handlers

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"ecommerce-dashboard/internal/observability"
	"ecommerce-dashboard/internal/ui/templates"
)

func sseRequest(signals string) *http.Request {
	target := "/sse/dashboard"
	if signals != "" {
		target += "?datastar=" + url.QueryEscape(signals)
	}
	return httptest.NewRequest(http.MethodGet, target, nil)
}

func newSSEHandlers(rec ChartRecorder) *SSEHandlers {
	a := createTestAnalytics()
	logger := observability.Discard()
	return NewSSEHandlers(a, NewRenderer(a, logger, rec), logger)
}

func TestSSEHandlers_HandleDashboard(t *testing.T) {
	rec := &chartCounter{}
	h := newSSEHandlers(rec)

	w := httptest.NewRecorder()
	h.HandleDashboard(w, sseRequest(`{"start":"2018-01-01","end":"2018-01-03"}`))

	if ct := w.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/event-stream") {
		t.Errorf("content type = %q, want text/event-stream", ct)
	}

	body := w.Body.String()
	for _, want := range []string{
		"datastar-patch-elements",
		`id="` + templates.MetricsID + `"`,
		"Total Revenue",
		"60,00",
		`id="` + ChartTopProducts + `"`,
		`id="` + ChartCustomerMap + `"`,
		"<svg",
		"datastar-patch-signals",
	} {
		if !strings.Contains(body, want) {
			t.Errorf("stream missing %q", want)
		}
	}

	if rec.status["ok"] != len(chartOrder) {
		t.Errorf("ok renders = %d, want %d", rec.status["ok"], len(chartOrder))
	}
}

func TestSSEHandlers_EmptyRangeShowsPlaceholders(t *testing.T) {
	rec := &chartCounter{}
	h := newSSEHandlers(rec)

	w := httptest.NewRecorder()
	h.HandleDashboard(w, sseRequest(`{"start":"2020-01-01","end":"2020-01-31"}`))

	body := w.Body.String()
	if !strings.Contains(body, templates.NoDataMessage) {
		t.Error("empty range should patch placeholders")
	}
	if !strings.Contains(body, "0,00") {
		t.Error("empty range should show zero revenue")
	}
	// The map ignores the range, every other chart has nothing to draw.
	if rec.status["no_data"] != len(chartOrder)-1 || rec.status["ok"] != 1 {
		t.Errorf("render outcomes = %v", rec.status)
	}
}

func TestSSEHandlers_InvalidSignalsFallBackToBounds(t *testing.T) {
	h := newSSEHandlers(nil)

	for _, signals := range []string{"", `{"start":"not-a-date"}`, `{broken`} {
		w := httptest.NewRecorder()
		h.HandleDashboard(w, sseRequest(signals))

		body := w.Body.String()
		if !strings.Contains(body, "60,00") {
			t.Errorf("signals %q: expected full-range revenue, got %.200s", signals, body)
		}
		if !strings.Contains(body, `{"start":"2018-01-01","end":"2018-01-03"}`) {
			t.Errorf("signals %q: expected the data bounds to be patched back, got %.300s", signals, body)
		}
	}
}
