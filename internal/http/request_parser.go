package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/ssandworth/incomeLineUpdatex/internal/core"
)

// errBadRequest marks malformed client input.
var errBadRequest = errors.New("bad request")

// maxBodySize caps request bodies at 1 MiB.
const maxBodySize = 1 << 20

// actorFromRequest reads the authenticated actor identity from the gateway
// headers. The upstream gateway authenticates staff and forwards who they
// are; the engine only trusts and records it.
func actorFromRequest(r *http.Request) (core.Actor, error) {
	rawID := strings.TrimSpace(r.Header.Get("X-Actor-ID"))
	if rawID == "" {
		return core.Actor{}, fmt.Errorf("%w: missing X-Actor-ID header", errBadRequest)
	}
	id, err := strconv.ParseInt(rawID, 10, 64)
	if err != nil || id <= 0 {
		return core.Actor{}, fmt.Errorf("%w: invalid X-Actor-ID %q", errBadRequest, rawID)
	}
	return core.Actor{
		ID:         id,
		Name:       strings.TrimSpace(r.Header.Get("X-Actor-Name")),
		Department: strings.TrimSpace(r.Header.Get("X-Actor-Department")),
	}, nil
}

// decodeJSON reads and decodes the request body into dst, rejecting unknown
// fields.
func decodeJSON(r *http.Request, dst any) error {
	body := http.MaxBytesReader(nil, r.Body, maxBodySize)
	dec := json.NewDecoder(body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("%w: %v", errBadRequest, err)
	}
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		return fmt.Errorf("%w: body must contain a single JSON object", errBadRequest)
	}
	return nil
}

// monthParams holds parsed year/month values from request parameters.
type monthParams struct {
	Year  int
	Month int
}

// parseMonthParams extracts year and month from query parameters, using the
// current date as default year and zero (all months) as default month.
func parseMonthParams(query url.Values) (monthParams, error) {
	params := monthParams{Year: time.Now().Year()}

	if v := strings.TrimSpace(query.Get("year")); v != "" {
		y, err := strconv.Atoi(v)
		if err != nil {
			return params, fmt.Errorf("%w: invalid year %q", errBadRequest, v)
		}
		params.Year = y
	}
	if v := strings.TrimSpace(query.Get("month")); v != "" {
		m, err := strconv.Atoi(v)
		if err != nil {
			return params, fmt.Errorf("%w: invalid month %q", errBadRequest, v)
		}
		params.Month = m
	}

	return params, nil
}

// pathID parses the {id} path segment as a positive integer.
func pathID(r *http.Request) (int64, error) {
	raw := r.PathValue("id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: invalid id %q", errBadRequest, raw)
	}
	return id, nil
}

// queryInt64 parses an optional integer query parameter, returning 0 when
// absent.
func queryInt64(query url.Values, name string) (int64, error) {
	v := strings.TrimSpace(query.Get(name))
	if v == "" {
		return 0, nil
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: invalid %s %q", errBadRequest, name, v)
	}
	return n, nil
}

// parsePaymentDate accepts the ISO day format used on receipts.
func parsePaymentDate(s string) (time.Time, error) {
	t, err := time.Parse("2006-01-02", strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: invalid payment_date %q, want YYYY-MM-DD", errBadRequest, s)
	}
	return t, nil
}
