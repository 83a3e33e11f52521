package http

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"conti/internal/core"
)

const dateLayout = "2006-01-02"

// ParseFilter builds transaction filter options from query parameters.
// Absent parameters do not filter; malformed ones are rejected.
func ParseFilter(q url.Values) (core.FilterOptions, error) {
	var f core.FilterOptions
	var err error

	if f.Year, err = parseInt(q, "year", 1, 9999); err != nil {
		return f, err
	}
	if f.Month, err = parseInt(q, "month", 1, 12); err != nil {
		return f, err
	}
	f.CategoryID = sanitizeInput(q.Get("categoryId"))
	f.OwnerID = sanitizeInput(q.Get("ownerId"))
	if v := sanitizeInput(q.Get("type")); v != "" {
		f.Type = core.TransactionType(strings.ToLower(v))
		if !f.Type.Valid() {
			return f, fmt.Errorf("%w: %q", core.ErrInvalidType, v)
		}
	}
	for _, raw := range q["tag"] {
		for _, tag := range strings.Split(raw, ",") {
			if tag = sanitizeInput(tag); tag != "" {
				f.Tags = append(f.Tags, tag)
			}
		}
	}
	if f.MinAmount, err = parseAmount(q, "min"); err != nil {
		return f, err
	}
	if f.MaxAmount, err = parseAmount(q, "max"); err != nil {
		return f, err
	}
	if f.StartDate, err = parseDate(q, "start", false); err != nil {
		return f, err
	}
	if f.EndDate, err = parseDate(q, "end", true); err != nil {
		return f, err
	}
	if !f.StartDate.IsZero() && !f.EndDate.IsZero() && f.EndDate.Before(f.StartDate) {
		return f, core.ErrInvalidDateRange
	}
	f.Search = sanitizeInput(q.Get("q"))
	return f, nil
}

func parseInt(q url.Values, key string, lo, hi int) (int, error) {
	v := strings.TrimSpace(q.Get(key))
	if v == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < lo || n > hi {
		return 0, fmt.Errorf("%w: %s must be between %d and %d", errBadRequest, key, lo, hi)
	}
	return n, nil
}

func parseAmount(q url.Values, key string) (*decimal.Decimal, error) {
	v := strings.TrimSpace(q.Get(key))
	if v == "" {
		return nil, nil
	}
	d, err := decimal.NewFromString(v)
	if err != nil {
		return nil, fmt.Errorf("%w: %s is not a number", core.ErrInvalidAmount, key)
	}
	return &d, nil
}

// parseDate accepts YYYY-MM-DD or RFC 3339. A bare end date covers the whole day.
func parseDate(q url.Values, key string, endOfDay bool) (time.Time, error) {
	v := strings.TrimSpace(q.Get(key))
	if v == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(dateLayout, v); err == nil {
		if endOfDay {
			t = t.Add(24*time.Hour - time.Nanosecond)
		}
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, v)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %s must be YYYY-MM-DD", errBadRequest, key)
	}
	return t, nil
}
