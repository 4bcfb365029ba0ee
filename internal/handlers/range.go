package handlers

import (
	"fmt"
	"net/http"
	"time"

	apperrors "ecommerce-dashboard/internal/errors"
	"ecommerce-dashboard/internal/models"
	"ecommerce-dashboard/internal/services"
)

// parseRange reads the optional start and end query parameters. A missing end falls
// back to the data bounds. A start after the end is a valid, empty range.
func parseRange(r *http.Request, analytics *services.Analytics) (models.DateRange, error) {
	q := r.URL.Query()
	return resolveRange(analytics, q.Get("start"), q.Get("end"))
}

func resolveRange(analytics *services.Analytics, start, end string) (models.DateRange, error) {
	s, err := parseDay("start", start)
	if err != nil {
		return models.DateRange{}, err
	}
	e, err := parseDay("end", end)
	if err != nil {
		return models.DateRange{}, err
	}
	return analytics.ResolveRange(s, e), nil
}

func parseDay(name, value string) (*time.Time, error) {
	if value == "" {
		return nil, nil
	}
	t, err := time.Parse(models.DayLayout, value)
	if err != nil {
		return nil, apperrors.ValidationWrap(err, fmt.Sprintf("invalid %s date, expected YYYY-MM-DD", name))
	}
	return &t, nil
}
