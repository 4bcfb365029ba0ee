package handlers

import (
	"bytes"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"ecommerce-dashboard/internal/errors"
	"ecommerce-dashboard/internal/models"
	"ecommerce-dashboard/internal/observability"
	"ecommerce-dashboard/internal/report"
	"ecommerce-dashboard/internal/services"
)

type ExportHandlers struct {
	analytics *services.Analytics
	logger    *slog.Logger
}

func NewExportHandlers(analytics *services.Analytics, logger *slog.Logger) *ExportHandlers {
	return &ExportHandlers{analytics: analytics, logger: logger}
}

// HandleXLSX downloads every aggregate of the selected range as a workbook.
func (h *ExportHandlers) HandleXLSX(w http.ResponseWriter, r *http.Request) {
	requestID := observability.GetRequestID(r.Context())

	rng, err := parseRange(r, h.analytics)
	if err != nil {
		errors.WriteError(w, h.logger, err, requestID)
		return
	}

	var buf bytes.Buffer
	if err := report.Write(&buf, h.analytics.Summary(r.Context(), "export", rng)); err != nil {
		errors.WriteError(w, h.logger, errors.InternalWrap(err, "failed to build workbook"), requestID)
		return
	}

	filename := fmt.Sprintf("dashboard_%s_%s.xlsx", rng.Start.Format(models.DayLayout), rng.End.Format(models.DayLayout))
	w.Header().Set("Content-Type", report.ContentType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.Write(buf.Bytes())
}
