package http

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"tally/internal/core"
)

// writeJSON serializes v with the given status code.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}

// writeError serializes {"error": msg} with the given status code.
func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// parseListQuery translates raw query parameters into a filter plus raw
// page/pageSize values. Invalid filter values are ignored, never rejected:
// an unknown type or a non-integer categoryId just deactivates that
// constraint. Page and pageSize normalization happens in the engine.
func parseListQuery(q url.Values) (core.ListFilter, int, int) {
	var f core.ListFilter

	if kind, ok := core.ParseTransactionType(strings.TrimSpace(q.Get("type"))); ok {
		f.Type = &kind
	}
	if ts, ok := parseTimeParam(q.Get("from")); ok {
		f.From = &ts
	}
	if ts, ok := parseTimeParam(q.Get("to")); ok {
		f.To = &ts
	}
	if v := strings.TrimSpace(q.Get("categoryId")); v != "" {
		if id, err := strconv.ParseInt(v, 10, 64); err == nil {
			f.CategoryID = &id
		}
	}

	page, _ := strconv.Atoi(strings.TrimSpace(q.Get("page")))
	pageSize, _ := strconv.Atoi(strings.TrimSpace(q.Get("pageSize")))
	return f, page, pageSize
}

// parseTimeParam accepts RFC3339 timestamps or plain dates (taken as
// midnight UTC).
func parseTimeParam(v string) (time.Time, bool) {
	v = strings.TrimSpace(v)
	if v == "" {
		return time.Time{}, false
	}
	if ts, err := time.Parse(time.RFC3339, v); err == nil {
		return ts, true
	}
	if ts, err := time.Parse("2006-01-02", v); err == nil {
		return ts, true
	}
	return time.Time{}, false
}

// clientIP extracts the caller address, honoring proxy headers.
func clientIP(r *http.Request) string {
	if ip := r.Header.Get("X-Forwarded-For"); ip != "" {
		return ip
	}
	if ip := r.Header.Get("X-Real-IP"); ip != "" {
		return ip
	}
	return r.RemoteAddr
}

// generateRequestID creates a unique request ID for tracing.
func generateRequestID() string {
	bytes := make([]byte, 8)
	if _, err := rand.Read(bytes); err != nil {
		return fmt.Sprintf("req_%d", time.Now().UnixNano())
	}
	return "req_" + hex.EncodeToString(bytes)
}
