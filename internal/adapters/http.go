// Package adapters implements the per-dataset upstream adapters: pure
// translators from the National Gas, ENTSOG and GIE AGSI/ALSI HTTP APIs to
// canonical observations. Adapters perform outbound HTTP in Fetch and
// nothing else; retries, persistence and lifecycle belong to the
// orchestrator.
package adapters

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// requestTimeout is the per-request ceiling every adapter applies. Timeouts
// are per request, never per run.
const requestTimeout = 60 * time.Second

// ErrUpstreamStatus is returned when an upstream replies with a non-2xx
// status after the adapter's own handling (e.g. the National Gas 429 pause).
var ErrUpstreamStatus = errors.New("upstream returned non-success status")

// newHTTPClient builds the shared outbound client with the 60s per-request
// timeout.
func newHTTPClient() *http.Client {
	return &http.Client{Timeout: requestTimeout}
}

// decodeJSON decodes a response body preserving numeric fidelity: numbers
// come back as json.Number, never re-encoded through float64.
func decodeJSON(r io.Reader) (any, error) {
	dec := json.NewDecoder(r)
	dec.UseNumber()

	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, fmt.Errorf("decoding upstream JSON: %w", err)
	}

	return v, nil
}

// getJSON issues a GET with optional query params and headers and decodes
// the JSON body.
func getJSON(ctx context.Context, client *http.Client, rawURL string, params url.Values, headers map[string]string) (any, error) {
	u := rawURL
	if len(params) > 0 {
		u = rawURL + "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}

	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}

	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return nil, fmt.Errorf("%w: GET %s: %d", ErrUpstreamStatus, rawURL, resp.StatusCode)
	}

	return decodeJSON(resp.Body)
}

// postJSON issues a POST with a JSON body and decodes the JSON response.
// The raw *http.Response status is handled by the caller when it needs
// status-specific behavior (the National Gas 429 pause); this helper treats
// any non-2xx as an error.
func postJSON(ctx context.Context, client *http.Client, rawURL string, body any) (any, error) {
	resp, err := doPost(ctx, client, rawURL, body)
	if err != nil {
		return nil, err
	}

	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return nil, fmt.Errorf("%w: POST %s: %d", ErrUpstreamStatus, rawURL, resp.StatusCode)
	}

	return decodeJSON(resp.Body)
}

func doPost(ctx context.Context, client *http.Client, rawURL string, body any) (*http.Response, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, rawURL, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}

	req.Header.Set("Content-Type", "application/json; charset=utf-8")

	return client.Do(req)
}

// timeLayouts are the timestamp shapes the upstreams actually emit.
var timeLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// parseTime parses an upstream timestamp, interpreting naive values as UTC.
func parseTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)

	for _, layout := range timeLayouts {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return t.UTC(), nil
		}
	}

	return time.Time{}, fmt.Errorf("unrecognised timestamp %q", s)
}

// isNumber reports whether a decoded JSON value is numeric (not a numeric
// string). NaN does not count: it is null-like in every upstream here.
func isNumber(v any) bool {
	switch n := v.(type) {
	case json.Number:
		return true
	case float64:
		return !math.IsNaN(n)
	case int, int64:
		return true
	}

	return false
}

// asFloat converts a decoded JSON value to float64. Numeric strings convert;
// empty and whitespace-only strings do not.
func asFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		if math.IsNaN(n) {
			return 0, false
		}

		return n, true
	case json.Number:
		f, err := n.Float64()
		if err != nil {
			return 0, false
		}

		return f, true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case string:
		s := strings.TrimSpace(n)
		if s == "" {
			return 0, false
		}

		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, false
		}

		return f, true
	}

	return 0, false
}

// asInt converts a decoded JSON value to int, truncating floats the way the
// site-id fields require.
func asInt(v any) (int, bool) {
	switch n := v.(type) {
	case json.Number:
		if i, err := n.Int64(); err == nil {
			return int(i), true
		}

		if f, err := n.Float64(); err == nil {
			return int(f), true
		}

		return 0, false
	case float64:
		if math.IsNaN(n) {
			return 0, false
		}

		return int(n), true
	case int:
		return n, true
	case int64:
		return int(n), true
	case string:
		if i, err := strconv.Atoi(strings.TrimSpace(n)); err == nil {
			return i, true
		}
	}

	return 0, false
}

// asString renders a decoded JSON value for use in series id parts and
// quality flags. Nil renders empty.
func asString(v any) string {
	switch s := v.(type) {
	case nil:
		return ""
	case string:
		return s
	case json.Number:
		return s.String()
	default:
		return fmt.Sprintf("%v", s)
	}
}
