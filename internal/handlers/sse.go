package handlers

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/a-h/templ"
	"github.com/starfederation/datastar-go/datastar"

	"ecommerce-dashboard/internal/models"
	"ecommerce-dashboard/internal/observability"
	"ecommerce-dashboard/internal/services"
	"ecommerce-dashboard/internal/ui/templates"
)

// rangeSignals are the date inputs bound on the page.
type rangeSignals struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

type SSEHandlers struct {
	analytics *services.Analytics
	renderer  *Renderer
	logger    *slog.Logger
}

func NewSSEHandlers(analytics *services.Analytics, renderer *Renderer, logger *slog.Logger) *SSEHandlers {
	return &SSEHandlers{
		analytics: analytics,
		renderer:  renderer,
		logger:    logger,
	}
}

// HandleDashboard recomputes every aggregate for the signalled range and patches the
// metrics and each chart panel.
func (h *SSEHandlers) HandleDashboard(w http.ResponseWriter, r *http.Request) {
	requestID := observability.GetRequestID(r.Context())

	var sig rangeSignals
	if err := datastar.ReadSignals(r, &sig); err != nil {
		h.logger.Warn("read signals, using data bounds", "error", err, "request_id", requestID)
		sig = rangeSignals{}
	}

	rng, err := resolveRange(h.analytics, sig.Start, sig.End)
	if err != nil {
		h.logger.Warn("invalid range signals, using data bounds", "error", err, "request_id", requestID)
		rng = h.analytics.ResolveRange(nil, nil)
	}

	sse := datastar.NewSSE(w, r)
	s := h.analytics.Summary(r.Context(), "sse", rng)

	fragments := []templ.Component{templates.Metrics(h.renderer.Metrics(s))}
	for _, p := range h.renderer.Panels(s) {
		fragments = append(fragments, templates.ChartPanel(p))
	}

	for _, c := range fragments {
		html, err := renderString(r, c)
		if err != nil {
			h.logger.Error("render fragment", "error", err, "request_id", requestID)
			return
		}
		if err := sse.PatchElements(html); err != nil {
			h.logger.Warn("patch elements", "error", err, "request_id", requestID)
			return
		}
	}

	resolved := rangeSignals{
		Start: rng.Start.Format(models.DayLayout),
		End:   rng.End.Format(models.DayLayout),
	}
	if err := sse.MarshalAndPatchSignals(resolved); err != nil {
		h.logger.Warn("patch signals", "error", err, "request_id", requestID)
	}
}

func renderString(r *http.Request, c templ.Component) (string, error) {
	var sb strings.Builder
	if err := c.Render(r.Context(), &sb); err != nil {
		return "", err
	}
	return sb.String(), nil
}
