// Package templates holds the dashboard's templ components. Run `templ generate` after
// editing a .templ file; the generated *_templ.go files are committed.
package templates

import "encoding/json"

const (
	LogoURL       = "https://github.com/dicodingacademy/assets/raw/main/logo.png"
	NoDataMessage = "No data for this range"
	MetricsID     = "metrics"
)

// Panel is one chart section. A nil SVG renders the no-data placeholder.
type Panel struct {
	ID    string
	Title string
	SVG   []byte
}

type MetricsView struct {
	TotalRevenue string
	AverageDaily string
	Rows         int
	Empty        bool
}

type DashboardView struct {
	Start   string
	End     string
	Min     string
	Max     string
	Metrics MetricsView
	Panels  []Panel
}

// rangeSignals is the initial Datastar signal object bound to the date inputs.
func rangeSignals(start, end string) string {
	b, _ := json.Marshal(struct {
		Start string `json:"start"`
		End   string `json:"end"`
	}{start, end})
	return string(b)
}
