package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"ecommerce-dashboard/internal/charts"
	apperrors "ecommerce-dashboard/internal/errors"
	"ecommerce-dashboard/internal/observability"
	"ecommerce-dashboard/internal/services"
)

type ChartHandlers struct {
	analytics *services.Analytics
	renderer  *Renderer
	logger    *slog.Logger
}

func NewChartHandlers(analytics *services.Analytics, renderer *Renderer, logger *slog.Logger) *ChartHandlers {
	return &ChartHandlers{analytics: analytics, renderer: renderer, logger: logger}
}

// HandleChart serves /charts/{file} where file is a chart name with an .svg suffix.
func (h *ChartHandlers) HandleChart(w http.ResponseWriter, r *http.Request) {
	requestID := observability.GetRequestID(r.Context())

	name, ok := strings.CutSuffix(r.PathValue("file"), ".svg")
	if _, known := chartDefs[name]; !ok || !known {
		apperrors.WriteError(w, h.logger, apperrors.NotFound("unknown chart"), requestID)
		return
	}

	rng, err := parseRange(r, h.analytics)
	if err != nil {
		apperrors.WriteError(w, h.logger, err, requestID)
		return
	}

	svg, err := h.renderer.Chart(name, h.analytics.Summary(r.Context(), "chart", rng))
	switch {
	case errors.Is(err, charts.ErrNoData):
		apperrors.WriteError(w, h.logger, apperrors.NoData("no data for this range"), requestID)
		return
	case err != nil:
		apperrors.WriteError(w, h.logger, apperrors.InternalWrap(err, "failed to render chart"), requestID)
		return
	}

	w.Header().Set("Content-Type", "image/svg+xml")
	w.Header().Set("Cache-Control", cacheMaxAge)
	w.Write(svg)
}
