package handlers

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"shopping-dashboard/internal/errors"
	"shopping-dashboard/internal/services"
)

const (
	dateLayout   = "2006-01-02"
	defaultLimit = 100
	maxLimit     = 1000
)

// parseFilter reads from, to (YYYY-MM-DD) and repeated segment parameters.
func parseFilter(r *http.Request) (services.Filter, error) {
	q := r.URL.Query()

	var f services.Filter
	var err error
	if f.From, err = parseDate(q.Get("from")); err != nil {
		return services.Filter{}, errors.BadRequestWrap(err, "invalid 'from' date, expected YYYY-MM-DD")
	}
	if f.To, err = parseDate(q.Get("to")); err != nil {
		return services.Filter{}, errors.BadRequestWrap(err, "invalid 'to' date, expected YYYY-MM-DD")
	}
	if !f.From.IsZero() && !f.To.IsZero() && f.To.Before(f.From) {
		return services.Filter{}, errors.BadRequest("'to' date is before 'from' date")
	}

	for _, s := range q["segment"] {
		if s != "" {
			f.Segments = append(f.Segments, s)
		}
	}
	return f, nil
}

func parseDate(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, nil
	}
	return time.Parse(dateLayout, value)
}

func parseLimit(r *http.Request) (int, error) {
	value := r.URL.Query().Get("limit")
	if value == "" {
		return defaultLimit, nil
	}

	limit, err := strconv.Atoi(value)
	if err != nil || limit < 1 || limit > maxLimit {
		return 0, errors.BadRequest(fmt.Sprintf("limit must be between 1 and %d", maxLimit))
	}
	return limit, nil
}
