// Package geo fetches country outlines used as the customer map background.
package geo

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"ecommerce-dashboard/internal/resilience"
)

const maxGeoJSONBytes = 64 << 20

var (
	ErrCountryNotFound = errors.New("country not found in boundary collection")
	errRetryableStatus = errors.New("retryable upstream status")
)

// Boundary is one country outline in longitude/latitude.
type Boundary struct {
	Country  string
	Polygons orb.MultiPolygon
}

// Bound returns the bounding box of the outline.
func (b *Boundary) Bound() orb.Bound {
	return b.Polygons.Bound()
}

// Rings returns every ring of every polygon, outer rings first within each polygon.
func (b *Boundary) Rings() []orb.Ring {
	var rings []orb.Ring
	for _, p := range b.Polygons {
		rings = append(rings, p...)
	}
	return rings
}

// OutcomeRecorder is told how each fetch ended.
type OutcomeRecorder interface {
	RecordBoundaryFetch(status string)
}

// Fetcher downloads a GeoJSON feature collection of countries and keeps the feature
// whose ADMIN property names Country.
type Fetcher struct {
	URL      string
	Country  string
	Timeout  time.Duration
	Client   *http.Client
	Retrier  *resilience.Retrier
	Recorder OutcomeRecorder
}

func (f *Fetcher) Fetch(ctx context.Context) (*Boundary, error) {
	if f.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, f.Timeout)
		defer cancel()
	}

	var body []byte
	download := func(ctx context.Context) error {
		var err error
		body, err = f.download(ctx)
		return err
	}

	var err error
	if f.Retrier != nil {
		err = f.Retrier.Do(ctx, download, retryable)
	} else {
		err = download(ctx)
	}
	if err != nil {
		f.record("error")
		return nil, fmt.Errorf("fetch boundary geojson: %w", err)
	}

	b, err := Parse(body, f.Country)
	if err != nil {
		f.record("error")
		return nil, err
	}
	f.record("ok")
	return b, nil
}

func (f *Fetcher) download(ctx context.Context) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.URL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/geo+json, application/json")

	client := f.Client
	if client == nil {
		client = http.DefaultClient
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		if resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests {
			return nil, fmt.Errorf("%w: %s", errRetryableStatus, resp.Status)
		}
		return nil, fmt.Errorf("unexpected status %s", resp.Status)
	}

	return io.ReadAll(io.LimitReader(resp.Body, maxGeoJSONBytes))
}

func (f *Fetcher) record(status string) {
	if f.Recorder != nil {
		f.Recorder.RecordBoundaryFetch(status)
	}
}

// Parse decodes a feature collection and extracts the polygons of country.
func Parse(data []byte, country string) (*Boundary, error) {
	fc, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		return nil, fmt.Errorf("decode boundary geojson: %w", err)
	}

	for _, feature := range fc.Features {
		if !strings.EqualFold(feature.Properties.MustString("ADMIN", ""), country) {
			continue
		}

		b := &Boundary{Country: country}
		switch g := feature.Geometry.(type) {
		case orb.Polygon:
			b.Polygons = orb.MultiPolygon{g}
		case orb.MultiPolygon:
			b.Polygons = g
		default:
			return nil, fmt.Errorf("boundary of %s has unsupported geometry %s", country, feature.Geometry.GeoJSONType())
		}
		return b, nil
	}

	return nil, fmt.Errorf("%w: %s", ErrCountryNotFound, country)
}

// retryable accepts upstream 5xx/429 answers and network timeouts.
func retryable(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	if errors.Is(err, errRetryableStatus) {
		return true
	}
	var netErr interface{ Timeout() bool }
	return errors.As(err, &netErr) && netErr.Timeout()
}
