package geo

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"ecommerce-dashboard/internal/observability"
	"ecommerce-dashboard/internal/resilience"
)

const countriesGeoJSON = `{
  "type": "FeatureCollection",
  "features": [
    {
      "type": "Feature",
      "properties": {"ADMIN": "Argentina"},
      "geometry": {"type": "Polygon", "coordinates": [[[-70,-50],[-60,-50],[-60,-30],[-70,-30],[-70,-50]]]}
    },
    {
      "type": "Feature",
      "properties": {"ADMIN": "Brazil"},
      "geometry": {"type": "MultiPolygon", "coordinates": [
        [[[-74,-34],[-34,-34],[-34,5],[-74,5],[-74,-34]]],
        [[[-32.5,-3.9],[-32.3,-3.9],[-32.3,-3.8],[-32.5,-3.9]]]
      ]}
    }
  ]
}`

type countingRecorder struct {
	ok, failed atomic.Int32
}

func (r *countingRecorder) RecordBoundaryFetch(status string) {
	if status == "ok" {
		r.ok.Add(1)
		return
	}
	r.failed.Add(1)
}

func TestParse(t *testing.T) {
	tests := []struct {
		name      string
		country   string
		wantPolys int
		wantErr   error
	}{
		{"multipolygon", "Brazil", 2, nil},
		{"polygon", "Argentina", 1, nil},
		{"case insensitive", "brazil", 2, nil},
		{"missing", "Chile", 0, ErrCountryNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b, err := Parse([]byte(countriesGeoJSON), tt.country)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("Parse() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("Parse() error = %v", err)
			}
			if len(b.Polygons) != tt.wantPolys {
				t.Errorf("polygons = %d, want %d", len(b.Polygons), tt.wantPolys)
			}
		})
	}
}

func TestParse_InvalidJSON(t *testing.T) {
	if _, err := Parse([]byte("not json"), "Brazil"); err == nil {
		t.Error("Parse() should fail on invalid JSON")
	}
}

func TestBoundary_BoundAndRings(t *testing.T) {
	b, err := Parse([]byte(countriesGeoJSON), "Brazil")
	if err != nil {
		t.Fatal(err)
	}

	bound := b.Bound()
	if bound.Min.X() != -74 || bound.Max.Y() != 5 {
		t.Errorf("bound = %v, want min x -74 and max y 5", bound)
	}
	if got := len(b.Rings()); got != 2 {
		t.Errorf("rings = %d, want 2", got)
	}
}

func TestFetcher_Fetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/geo+json")
		w.Write([]byte(countriesGeoJSON))
	}))
	defer srv.Close()

	rec := &countingRecorder{}
	f := &Fetcher{URL: srv.URL, Country: "Brazil", Timeout: time.Second, Client: srv.Client(), Recorder: rec}

	b, err := f.Fetch(context.Background())
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	if b.Country != "Brazil" {
		t.Errorf("country = %q", b.Country)
	}
	if rec.ok.Load() != 1 {
		t.Errorf("ok outcomes = %d, want 1", rec.ok.Load())
	}
}

func TestFetcher_RetriesServerErrors(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) < 3 {
			http.Error(w, "busy", http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte(countriesGeoJSON))
	}))
	defer srv.Close()

	retrier := resilience.New("boundary", resilience.Policy{
		Attempts:  3,
		BaseDelay: time.Millisecond,
		MaxDelay:  time.Millisecond,
	}, observability.Discard())

	f := &Fetcher{URL: srv.URL, Country: "Brazil", Client: srv.Client(), Retrier: retrier}
	if _, err := f.Fetch(context.Background()); err != nil {
		t.Fatalf("Fetch() error = %v, want success after retries", err)
	}
	if hits.Load() != 3 {
		t.Errorf("hits = %d, want 3", hits.Load())
	}
}

func TestFetcher_ClientErrorNotRetried(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		http.NotFound(w, r)
	}))
	defer srv.Close()

	retrier := resilience.New("boundary", resilience.Policy{Attempts: 3}, observability.Discard())
	rec := &countingRecorder{}
	f := &Fetcher{URL: srv.URL, Country: "Brazil", Client: srv.Client(), Retrier: retrier, Recorder: rec}

	if _, err := f.Fetch(context.Background()); err == nil {
		t.Fatal("Fetch() should fail on 404")
	}
	if hits.Load() != 1 {
		t.Errorf("hits = %d, want 1", hits.Load())
	}
	if rec.failed.Load() != 1 {
		t.Errorf("failed outcomes = %d, want 1", rec.failed.Load())
	}
}

type timeoutErr struct{}

func (timeoutErr) Error() string { return "i/o timeout" }
func (timeoutErr) Timeout() bool { return true }

func TestRetryable(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"upstream 503", errRetryableStatus, true},
		{"network timeout", timeoutErr{}, true},
		{"cancelled", context.Canceled, false},
		{"deadline", context.DeadlineExceeded, false},
		{"404", errors.New("unexpected status 404 Not Found"), false},
	}
	for _, tt := range tests {
		if got := retryable(tt.err); got != tt.want {
			t.Errorf("%s: retryable = %v, want %v", tt.name, got, tt.want)
		}
	}
}
