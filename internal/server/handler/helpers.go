package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/alanyoungcy/coinonebot/internal/domain"
)

// maxBodyBytes caps JSON request bodies.
const maxBodyBytes = 1 << 20

// writeJSON marshals v as JSON and writes it to the response with the given
// HTTP status code. If marshaling fails, it falls back to a plain-text 500.
func writeJSON(w http.ResponseWriter, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		http.Error(w, `{"error":"internal server error"}`, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	w.Write(data)
}

// writeError sends a JSON-formatted error response.
func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// decodeJSON reads a size-capped JSON body into v, rejecting unknown fields.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

// errorStatus maps domain sentinels to HTTP statuses.
func errorStatus(err error) int {
	switch {
	case errors.Is(err, domain.ErrInvalidOrder), errors.Is(err, domain.ErrMalformedNumber):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrNotFound), errors.Is(err, domain.ErrRulesNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrOrdersDisabled):
		return http.StatusForbidden
	case errors.Is(err, domain.ErrRateLimited):
		return http.StatusTooManyRequests
	case errors.Is(err, domain.ErrCircuitOpen):
		return http.StatusServiceUnavailable
	case errors.Is(err, domain.ErrUnauthorized), errors.Is(err, domain.ErrSigningFailed), errors.Is(err, domain.ErrExchange):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// failWith writes err with its mapped status. Server-side failures are
// logged; client errors are not.
func failWith(w http.ResponseWriter, r *http.Request, logger *slog.Logger, op string, err error) {
	status := errorStatus(err)
	if status >= http.StatusInternalServerError || status == http.StatusBadGateway {
		logger.ErrorContext(r.Context(), "handler: "+op+" failed", slog.String("error", err.Error()))
	}
	writeError(w, status, err.Error())
}

// parseListOpts extracts standard pagination parameters from the query string.
// Defaults: limit=50 (max 500), offset=0. since and until accept RFC 3339 or
// unix seconds.
func parseListOpts(r *http.Request) domain.ListOpts {
	q := r.URL.Query()

	limit := 50
	if v := q.Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}
	if limit > 500 {
		limit = 500
	}

	offset := 0
	if v := q.Get("offset"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			offset = n
		}
	}

	return domain.ListOpts{
		Limit:  limit,
		Offset: offset,
		Since:  parseTime(q.Get("since")),
		Until:  parseTime(q.Get("until")),
	}
}

func parseTime(v string) *time.Time {
	if v == "" {
		return nil
	}
	if t, err := time.Parse(time.RFC3339, v); err == nil {
		return &t
	}
	if n, err := strconv.ParseInt(v, 10, 64); err == nil {
		t := time.Unix(n, 0).UTC()
		return &t
	}
	return nil
}

// pathParam extracts a named path parameter from the request using Go 1.22+
// built-in routing (http.Request.PathValue).
func pathParam(r *http.Request, name string) string {
	return r.PathValue(name)
}

// pairParams reads {quote}/{target} path values, upper-cased.
func pairParams(r *http.Request) (target, quote string) {
	return strings.ToUpper(pathParam(r, "target")), strings.ToUpper(pathParam(r, "quote"))
}
