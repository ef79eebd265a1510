package rest

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/heartmarshall/inventory-audit-backend/internal/domain"
)

// Machine-readable error codes returned in the "code" field.
const (
	codeValidation        = "validation"
	codeBadRequest        = "bad_request"
	codeUnauthorized      = "unauthorized"
	codeForbidden         = "forbidden"
	codeNotFound          = "not_found"
	codeAlreadyExists     = "already_exists"
	codeSessionConflict   = "session_conflict"
	codeInvalidState      = "invalid_state"
	codeInvalidTransition = "invalid_transition"
	codeOpenDiscrepancies = "open_discrepancies"
	codeConflict          = "conflict"
	codeInternal          = "internal"
)

type errorResponse struct {
	Error  string            `json:"error"`
	Code   string            `json:"code"`
	Fields []fieldErrorJSON  `json:"fields,omitempty"`
	Detail map[string]string `json:"detail,omitempty"`
}

type fieldErrorJSON struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorResponse{Error: message, Code: code})
}

// handleError writes the mapped error. Unknown errors are logged and
// hidden behind a generic 500.
func handleError(log *slog.Logger, w http.ResponseWriter, r *http.Request, err error) {
	status, resp := errorBody(err)
	if status == http.StatusInternalServerError {
		log.ErrorContext(r.Context(), "internal error",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.String("error", err.Error()),
		)
	}
	writeJSON(w, status, resp)
}

// errorBody maps domain errors onto an HTTP status and response body.
func errorBody(err error) (int, errorResponse) {
	var (
		verr     *domain.ValidationError
		conflict *domain.SessionConflictError
		openErr  *domain.OpenDiscrepanciesError
		stateErr *domain.SessionStateError
	)

	switch {
	case errors.As(err, &verr):
		resp := errorResponse{Error: "validation failed", Code: codeValidation}
		for _, fe := range verr.Errors {
			resp.Fields = append(resp.Fields, fieldErrorJSON{Field: fe.Field, Message: fe.Message})
		}
		return http.StatusBadRequest, resp
	case errors.Is(err, domain.ErrValidation):
		return http.StatusBadRequest, errorResponse{Error: err.Error(), Code: codeValidation}
	case errors.Is(err, domain.ErrUnauthorized):
		return http.StatusUnauthorized, errorResponse{Error: "unauthorized", Code: codeUnauthorized}
	case errors.Is(err, domain.ErrForbidden):
		return http.StatusForbidden, errorResponse{Error: "forbidden", Code: codeForbidden}
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound, errorResponse{Error: err.Error(), Code: codeNotFound}
	case errors.As(err, &conflict):
		return http.StatusConflict, errorResponse{
			Error:  err.Error(),
			Code:   codeSessionConflict,
			Detail: map[string]string{"session_id": conflict.SessionID.String()},
		}
	case errors.Is(err, domain.ErrSessionConflict):
		return http.StatusConflict, errorResponse{Error: err.Error(), Code: codeSessionConflict}
	case errors.As(err, &stateErr):
		return http.StatusConflict, errorResponse{
			Error:  err.Error(),
			Code:   codeInvalidState,
			Detail: map[string]string{"status": stateErr.Status.String()},
		}
	case errors.Is(err, domain.ErrInvalidSessionState):
		return http.StatusConflict, errorResponse{Error: err.Error(), Code: codeInvalidState}
	case errors.Is(err, domain.ErrInvalidTransition):
		return http.StatusConflict, errorResponse{Error: err.Error(), Code: codeInvalidTransition}
	case errors.As(err, &openErr):
		return http.StatusConflict, errorResponse{
			Error:  err.Error(),
			Code:   codeOpenDiscrepancies,
			Detail: map[string]string{"open": strconv.Itoa(openErr.Count)},
		}
	case errors.Is(err, domain.ErrAlreadyExists):
		return http.StatusConflict, errorResponse{Error: err.Error(), Code: codeAlreadyExists}
	case errors.Is(err, domain.ErrConflict):
		return http.StatusConflict, errorResponse{Error: err.Error(), Code: codeConflict}
	default:
		return http.StatusInternalServerError, errorResponse{Error: "internal server error", Code: codeInternal}
	}
}
