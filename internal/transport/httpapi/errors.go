package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"slotwise/backend/internal/authorize"
	"slotwise/backend/internal/domain"
	"slotwise/backend/internal/store"
)

type errorResponse struct {
	Error   string         `json:"error"`
	Message string         `json:"message"`
	Field   string         `json:"field,omitempty"`
	Details map[string]any `json:"details,omitempty"`
}

func kindStatus(kind domain.ErrorKind) int {
	switch kind {
	case domain.KindValidation, domain.KindWorkingHours, domain.KindInvalidReference, domain.KindInvalidData:
		return http.StatusBadRequest
	case domain.KindHistoryLock:
		return http.StatusForbidden
	case domain.KindNotFound:
		return http.StatusNotFound
	case domain.KindBreakConflict, domain.KindSlotConflict:
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}

// writeError is the single place errors become HTTP responses.
func writeError(w http.ResponseWriter, r *http.Request, log *slog.Logger, err error) {
	log = loggerFrom(r.Context(), log)

	var dErr *domain.Error
	switch {
	case errors.As(err, &dErr):
		status := kindStatus(dErr.Kind)
		body := errorResponse{Error: string(dErr.Kind), Message: dErr.Message, Field: dErr.Field}
		if dErr.Date != nil || dErr.Summary != nil {
			body.Details = map[string]any{}
			if dErr.Date != nil {
				body.Details["date"] = *dErr.Date
			}
			if dErr.Summary != nil {
				body.Details["summary"] = *dErr.Summary
			}
		}
		if status == http.StatusInternalServerError {
			log.Error("request failed", slog.Any("err", err))
		} else {
			log.Info("request rejected", slog.String("kind", string(dErr.Kind)), slog.Int("status", status), slog.String("field", dErr.Field))
		}
		writeErrorBody(w, status, body)

	case errors.Is(err, authorize.ErrUnauthenticated):
		writeErrorBody(w, http.StatusUnauthorized, errorResponse{Error: "unauthenticated", Message: "missing caller identity"})

	case errors.Is(err, authorize.ErrForbidden):
		log.Warn("access denied", slog.Any("err", err))
		writeErrorBody(w, http.StatusForbidden, errorResponse{Error: "forbidden", Message: "caller lacks the required permission"})

	case errors.Is(err, store.ErrMissingMigration):
		log.Error("storage schema missing", slog.Any("err", err))
		writeErrorBody(w, http.StatusInternalServerError, errorResponse{Error: "missing_migration", Message: "storage schema is incomplete; run migrations"})

	case errors.Is(err, context.DeadlineExceeded):
		log.Error("request timed out", slog.Any("err", err))
		writeErrorBody(w, http.StatusGatewayTimeout, errorResponse{Error: "timeout", Message: "request timed out"})

	default:
		log.Error("request failed", slog.Any("err", err))
		writeErrorBody(w, http.StatusInternalServerError, errorResponse{Error: "internal_error", Message: "an unexpected error occurred"})
	}
}

func writeErrorBody(w http.ResponseWriter, status int, body errorResponse) {
	writeJSON(w, status, body)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
