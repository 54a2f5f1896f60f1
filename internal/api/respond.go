package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/kalambet/nutriwheel/internal/journal"
	"github.com/kalambet/nutriwheel/internal/menu"
	"github.com/kalambet/nutriwheel/internal/profile"
	"github.com/kalambet/nutriwheel/internal/session"
	"github.com/kalambet/nutriwheel/internal/storage"
)

const maxRequestBodySize = 1 << 20 // 1MB

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func httpError(w http.ResponseWriter, code int, errType string, format string, args ...any) {
	writeJSON(w, code, map[string]any{
		"error": map[string]any{
			"message": fmt.Sprintf(format, args...),
			"type":    errType,
		},
	})
}

// domainError maps package sentinels onto HTTP statuses.
func domainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, session.ErrIncompleteSelection), errors.Is(err, journal.ErrIncompleteSelection):
		httpError(w, http.StatusConflict, "incomplete_selection", "%v", err)
	case errors.Is(err, session.ErrBusy):
		httpError(w, http.StatusConflict, "busy", "%v", err)
	case errors.Is(err, session.ErrSelectionChanged):
		httpError(w, http.StatusConflict, "selection_changed", "%v", err)
	case errors.Is(err, session.ErrEmptyCategory), errors.Is(err, session.ErrNotSettled):
		httpError(w, http.StatusConflict, "empty_category", "%v", err)
	case errors.Is(err, session.ErrAdvisorUnavailable):
		httpError(w, http.StatusBadGateway, "advisor_error", "%v", err)
	case errors.Is(err, menu.ErrInvalidCatalog), errors.Is(err, profile.ErrInvalid):
		httpError(w, http.StatusBadRequest, "invalid_request_error", "%v", err)
	case errors.Is(err, session.ErrUnknownItem), errors.Is(err, storage.ErrNotFound):
		httpError(w, http.StatusNotFound, "not_found", "%v", err)
	case errors.Is(err, context.DeadlineExceeded):
		httpError(w, http.StatusGatewayTimeout, "timeout", "%v", err)
	default:
		httpError(w, http.StatusInternalServerError, "api_error", "%v", err)
	}
}

func parseIntParam(r *http.Request, key string, defaultVal, maxVal int) int {
	s := r.URL.Query().Get(key)
	if s == "" {
		return defaultVal
	}
	v, err := strconv.Atoi(s)
	if err != nil || v < 0 {
		return defaultVal
	}
	if maxVal > 0 && v > maxVal {
		return maxVal
	}
	return v
}
