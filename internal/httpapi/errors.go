package httpapi

import (
	"errors"
	"net/http"

	"github.com/splitkhata/splitkhata/internal/errs"
	"github.com/splitkhata/splitkhata/internal/service/group"
)

// errorResponse is the standard error payload for the API.
type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

func writeErr(w http.ResponseWriter, status int, msg, code string) {
	toJSON(w, status, errorResponse{Error: msg, Code: code})
}

func badRequest(w http.ResponseWriter, msg string) { writeErr(w, http.StatusBadRequest, msg, "") }
func notFound(w http.ResponseWriter)               { writeErr(w, http.StatusNotFound, "not_found", "not_found") }
func conflict(w http.ResponseWriter, msg string)   { writeErr(w, http.StatusConflict, msg, "") }
func unprocessable(w http.ResponseWriter, msg, code string) {
	writeErr(w, http.StatusUnprocessableEntity, msg, code)
}

// mapValidationError normalizes domain validation errors into a code and message.
func mapValidationError(err error) (code, msg string) {
	if err == nil {
		return "", ""
	}
	msg = err.Error()
	switch {
	case errors.Is(err, errs.ErrNoParticipants):
		return "no_participants", msg
	case errors.Is(err, errs.ErrDuplicateParticipant):
		return "duplicate_participant", msg
	case errors.Is(err, errs.ErrInvalidAmount):
		return "invalid_amount", msg
	case errors.Is(err, errs.ErrPercentTotal):
		return "percent_total", msg
	case errors.Is(err, errs.ErrZeroShares):
		return "zero_shares", msg
	case errors.Is(err, errs.ErrExactSumMismatch):
		return "exact_sum_mismatch", msg
	case errors.Is(err, errs.ErrCurrencyMismatch):
		return "currency_mismatch", msg
	case errors.Is(err, errs.ErrNotGroupMember):
		return "not_group_member", msg
	case errors.Is(err, errs.ErrBadStatusChange):
		return "bad_status_change", msg
	default:
		return "validation_error", msg
	}
}

// respondServiceErr maps common service errors onto HTTP statuses; handlers
// call it after mutation attempts.
func (s *Server) respondServiceErr(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, errs.ErrNotFound):
		notFound(w)
	case errors.Is(err, errs.ErrConflict), errors.Is(err, group.ErrSlugExists):
		conflict(w, err.Error())
	case errors.Is(err, errs.ErrUnbalancedGroup):
		writeErr(w, http.StatusInternalServerError, err.Error(), "unbalanced_group")
	case errors.Is(err, errs.ErrInvalid):
		badRequest(w, err.Error())
	default:
		code, msg := mapValidationError(err)
		if code != "validation_error" {
			unprocessable(w, msg, code)
			return
		}
		badRequest(w, msg)
	}
}
