package handlers

import (
	"log/slog"
	"net/http"
	"time"

	"ecommerce-dashboard/internal/errors"
	"ecommerce-dashboard/internal/models"
	"ecommerce-dashboard/internal/observability"
	"ecommerce-dashboard/internal/services"
)

const version = "1.0.0"

type APIHandlers struct {
	analytics *services.Analytics
	logger    *slog.Logger
}

func NewAPIHandlers(analytics *services.Analytics, logger *slog.Logger) *APIHandlers {
	return &APIHandlers{
		analytics: analytics,
		logger:    logger,
	}
}

// rangeResponse wraps one aggregate with the range it was computed for.
type rangeResponse struct {
	Range models.DateRange `json:"range"`
	Empty bool             `json:"empty"`
	Items any              `json:"items"`
}

func (h *APIHandlers) serve(w http.ResponseWriter, r *http.Request, pick func(models.Summary) any) {
	rng, err := parseRange(r, h.analytics)
	if err != nil {
		errors.WriteError(w, h.logger, err, observability.GetRequestID(r.Context()))
		return
	}

	s := h.analytics.Summary(r.Context(), "api", rng)
	errors.WriteSuccessWithHeaders(w, pick(s), map[string]string{
		"Cache-Control": cacheMaxAge,
	})
}

func wrap(s models.Summary, items any) rangeResponse {
	return rangeResponse{Range: s.Range, Empty: s.Empty, Items: items}
}

func (h *APIHandlers) HandleSummary(w http.ResponseWriter, r *http.Request) {
	h.serve(w, r, func(s models.Summary) any { return s })
}

func (h *APIHandlers) HandleDailyOrders(w http.ResponseWriter, r *http.Request) {
	h.serve(w, r, func(s models.Summary) any { return wrap(s, s.DailyOrders) })
}

func (h *APIHandlers) HandleDailySpending(w http.ResponseWriter, r *http.Request) {
	h.serve(w, r, func(s models.Summary) any { return wrap(s, s.DailySpending) })
}

func (h *APIHandlers) HandleProducts(w http.ResponseWriter, r *http.Request) {
	h.serve(w, r, func(s models.Summary) any { return wrap(s, s.ProductSales) })
}

func (h *APIHandlers) HandleStates(w http.ResponseWriter, r *http.Request) {
	h.serve(w, r, func(s models.Summary) any { return wrap(s, s.StateCustomers) })
}

func (h *APIHandlers) HandleReviews(w http.ResponseWriter, r *http.Request) {
	h.serve(w, r, func(s models.Summary) any { return wrap(s, s.Reviews) })
}

func (h *APIHandlers) HandleCategories(w http.ResponseWriter, r *http.Request) {
	h.serve(w, r, func(s models.Summary) any { return wrap(s, s.CategoryOrders) })
}

func (h *APIHandlers) HandleHealth(w http.ResponseWriter, r *http.Request) {
	_, loaded := h.analytics.Bounds()
	errors.WriteSuccess(w, map[string]any{
		"status":      "healthy",
		"timestamp":   time.Now().Format(time.RFC3339),
		"version":     version,
		"data_loaded": loaded,
	})
}

func (h *APIHandlers) HandleStats(w http.ResponseWriter, r *http.Request) {
	errors.WriteSuccess(w, h.analytics.Stats())
}
