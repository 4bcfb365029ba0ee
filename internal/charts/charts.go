// Package charts renders dashboard aggregates as SVG with go-chart.
package charts

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"math"
	"time"

	"github.com/paulmach/orb"
	"github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"

	"ecommerce-dashboard/internal/geo"
	"ecommerce-dashboard/internal/models"
)

// ErrNoData is returned when there is nothing to plot.
var ErrNoData = errors.New("no data to chart")

const (
	defaultWidth  = 1000
	defaultHeight = 500
	mapSize       = 800
	barWidth      = 60
)

var (
	colorRevenue   = drawing.ColorFromHex("1F77B4")
	colorTop       = drawing.ColorFromHex("72BCD4")
	colorLeast     = drawing.ColorFromHex("FF6F61")
	colorMode      = drawing.ColorFromHex("068DA9")
	colorMuted     = drawing.ColorFromHex("D3D3D3")
	colorStates    = drawing.ColorFromHex("4C72B0")
	colorLand      = drawing.ColorFromHex("A9A9A9")
	colorCustomers = drawing.Color{R: 128, G: 0, B: 0, A: 77}
)

// DailyRevenue draws daily spending as a line over time.
func DailyRevenue(days []models.DailySpending) ([]byte, error) {
	if len(days) == 0 {
		return nil, ErrNoData
	}

	xs := make([]time.Time, len(days))
	ys := make([]float64, len(days))
	for i, d := range days {
		xs[i] = d.Day
		ys[i] = d.DailySpending.InexactFloat64()
	}

	first, last := xs[0], xs[len(xs)-1]
	if !last.After(first) {
		first, last = first.Add(-12*time.Hour), last.Add(12*time.Hour)
	}

	c := chart.Chart{
		Width:  defaultWidth,
		Height: defaultHeight,
		Background: chart.Style{
			Padding: chart.Box{Top: 20, Left: 20, Right: 20, Bottom: 20},
		},
		XAxis: chart.XAxis{
			Name:           "Date",
			ValueFormatter: dayFormatter,
			Range:          &chart.ContinuousRange{Min: timeValue(first), Max: timeValue(last)},
		},
		YAxis: chart.YAxis{
			Name:  "Revenue",
			Range: &chart.ContinuousRange{Min: 0, Max: paddedMax(ys)},
		},
		Series: []chart.Series{
			chart.TimeSeries{
				Name:    "daily_spending",
				XValues: xs,
				YValues: ys,
				Style: chart.Style{
					StrokeColor: colorRevenue,
					StrokeWidth: 2,
				},
			},
		},
	}
	return render(c.Render)
}

// TopProducts draws the categories with the highest sales, first bar highlighted.
func TopProducts(products []models.ProductSales, n int) ([]byte, error) {
	values := make([]chart.Value, 0, n)
	for i, p := range products {
		if i == n {
			break
		}
		values = append(values, chart.Value{Label: p.Category, Value: float64(p.TotalSold)})
	}
	return bars("Top Selling Products", "total_sold", highlightFirst(values, colorTop))
}

// LeastProducts draws the categories with the fewest orders, first bar highlighted.
// categories must already be sorted ascending.
func LeastProducts(categories []models.CategoryOrders, n int) ([]byte, error) {
	values := make([]chart.Value, 0, n)
	for i, c := range categories {
		if i == n {
			break
		}
		values = append(values, chart.Value{Label: c.Category, Value: float64(c.Products)})
	}
	return bars("Least Selling Products", "products", highlightFirst(values, colorLeast))
}

// States draws customer counts for the first n states.
func States(states []models.StateCustomers, n int) ([]byte, error) {
	values := make([]chart.Value, 0, n)
	for i, s := range states {
		if i == n {
			break
		}
		values = append(values, chart.Value{
			Label: s.State,
			Value: float64(s.NumCustomers),
			Style: chart.Style{FillColor: colorStates, StrokeColor: colorStates},
		})
	}
	return bars("Customer Distribution by State", "num_customers", values)
}

// Reviews draws the review histogram in its given order with the mode highlighted.
func Reviews(h models.ReviewHistogram) ([]byte, error) {
	values := make([]chart.Value, 0, len(h.Counts))
	for _, rc := range h.Counts {
		color := colorMuted
		if rc.Score == h.Mode {
			color = colorMode
		}
		values = append(values, chart.Value{
			Label: fmt.Sprintf("%d", rc.Score),
			Value: float64(rc.Count),
			Style: chart.Style{FillColor: color, StrokeColor: color},
		})
	}
	return bars("Rating kepuasan customers", "count", values)
}

// CustomerMap scatters customer points over the country outline. boundary may be nil.
// Points with NaN or infinite coordinates are skipped.
func CustomerMap(points orb.MultiPoint, boundary *geo.Boundary) ([]byte, error) {
	points = finitePoints(points)
	if len(points) == 0 && boundary == nil {
		return nil, ErrNoData
	}

	var series []chart.Series
	bound := points.Bound()
	if boundary != nil {
		for _, ring := range boundary.Rings() {
			if len(ring) < 2 {
				continue
			}
			xs := make([]float64, len(ring))
			ys := make([]float64, len(ring))
			for i, p := range ring {
				xs[i], ys[i] = p.X(), p.Y()
			}
			series = append(series, chart.ContinuousSeries{
				XValues: xs,
				YValues: ys,
				Style: chart.Style{
					StrokeColor: colorLand,
					StrokeWidth: 1,
				},
			})
		}
		if len(points) == 0 {
			bound = boundary.Bound()
		} else {
			bound = bound.Union(boundary.Bound())
		}
	}

	if len(points) > 0 {
		xs := make([]float64, len(points))
		ys := make([]float64, len(points))
		for i, p := range points {
			xs[i], ys[i] = p.X(), p.Y()
		}
		series = append(series, chart.ContinuousSeries{
			Name:    "customers",
			XValues: xs,
			YValues: ys,
			Style: chart.Style{
				StrokeWidth: chart.Disabled,
				DotWidth:    1,
				DotColor:    colorCustomers,
			},
		})
	}

	country := "Brazil"
	if boundary != nil {
		country = boundary.Country
	}

	bound = bound.Pad(1)
	c := chart.Chart{
		Title:  "Persebaran Pelanggan di " + country,
		Width:  mapSize,
		Height: mapSize,
		Background: chart.Style{
			Padding: chart.Box{Top: 50, Left: 20, Right: 20, Bottom: 20},
		},
		XAxis: chart.XAxis{
			Name:  "Longitude",
			Range: &chart.ContinuousRange{Min: bound.Min.X(), Max: bound.Max.X()},
		},
		YAxis: chart.YAxis{
			Name:  "Latitude",
			Range: &chart.ContinuousRange{Min: bound.Min.Y(), Max: bound.Max.Y()},
		},
		Series: series,
	}
	return render(c.Render)
}

func finitePoints(points orb.MultiPoint) orb.MultiPoint {
	out := make(orb.MultiPoint, 0, len(points))
	for _, p := range points {
		if finite(p.X()) && finite(p.Y()) {
			out = append(out, p)
		}
	}
	return out
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

func bars(title, yName string, values []chart.Value) ([]byte, error) {
	if len(values) == 0 {
		return nil, ErrNoData
	}

	ys := make([]float64, len(values))
	for i, v := range values {
		ys[i] = v.Value
	}

	width := defaultWidth
	if need := len(values)*(barWidth+20) + 120; need > width {
		width = need
	}

	c := chart.BarChart{
		Title:    title,
		Width:    width,
		Height:   defaultHeight,
		BarWidth: barWidth,
		Background: chart.Style{
			Padding: chart.Box{Top: 50, Left: 20, Right: 20, Bottom: 20},
		},
		XAxis: chart.Style{FontSize: 8},
		YAxis: chart.YAxis{
			Name:  yName,
			Range: &chart.ContinuousRange{Min: 0, Max: paddedMax(ys)},
		},
		Bars: values,
	}
	return render(c.Render)
}

func highlightFirst(values []chart.Value, accent drawing.Color) []chart.Value {
	for i := range values {
		color := colorMuted
		if i == 0 {
			color = accent
		}
		values[i].Style = chart.Style{FillColor: color, StrokeColor: color}
	}
	return values
}

func render(fn func(chart.RendererProvider, io.Writer) error) ([]byte, error) {
	var buf bytes.Buffer
	if err := fn(chart.SVG, &buf); err != nil {
		return nil, fmt.Errorf("render chart: %w", err)
	}
	return buf.Bytes(), nil
}

// paddedMax leaves headroom above the tallest value and never returns a zero-height range.
func paddedMax(ys []float64) float64 {
	maxY := 0.0
	for _, y := range ys {
		maxY = max(maxY, y)
	}
	if maxY <= 0 {
		return 1
	}
	return maxY * 1.1
}

func timeValue(t time.Time) float64 {
	return float64(t.UnixNano())
}

func dayFormatter(v any) string {
	if f, ok := v.(float64); ok {
		return time.Unix(0, int64(f)).UTC().Format(models.DayLayout)
	}
	return ""
}
