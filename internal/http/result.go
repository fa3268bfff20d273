package httpapi

import (
	"errors"
	"net/http"

	"go.uber.org/zap"

	"irrad-data/internal/service"
)

// Envelope is the body of every API answer.
// - form_is_valid: false when the request was rejected by validation
// - alert_message: message to show to the user
// - result: payload of the operation
// - redirect_url: page to go to next, if any
type Envelope struct {
	FormIsValid  bool   `json:"form_is_valid"`
	AlertMessage string `json:"alert_message,omitempty"`
	Result       any    `json:"result,omitempty"`
	RedirectURL  string `json:"redirect_url,omitempty"`
}

func Ok(result any) Envelope {
	return Envelope{FormIsValid: true, Result: result}
}

func Fail(message string) Envelope {
	return Envelope{FormIsValid: false, AlertMessage: message}
}

func fromOutcome(o *service.Outcome) Envelope {
	if o == nil {
		return Ok(nil)
	}
	return Envelope{FormIsValid: true, AlertMessage: o.Message, Result: o.Result, RedirectURL: o.RedirectURL}
}

// respond writes result as a successful envelope, or maps err to its status.
func respond(w http.ResponseWriter, logger *zap.Logger, op string, result any, err error) {
	if err != nil {
		writeError(w, logger, op, err)
		return
	}
	if o, ok := result.(*service.Outcome); ok {
		writeJSON(w, http.StatusOK, fromOutcome(o))
		return
	}
	writeJSON(w, http.StatusOK, Ok(result))
}

// writeError maps service errors:
// validation -> 200 with form_is_valid=false, permission -> 403, not found -> 404,
// anything else -> 500 with the generic message.
func writeError(w http.ResponseWriter, logger *zap.Logger, op string, err error) {
	if msg, ok := service.AlertMessage(err); ok {
		writeJSON(w, http.StatusOK, Fail(msg))
		return
	}
	switch {
	case errors.Is(err, service.ErrPermissionDenied):
		writeJSON(w, http.StatusForbidden, Fail("Permission denied."))
	case errors.Is(err, service.ErrNotFound):
		writeJSON(w, http.StatusNotFound, Fail("Not found."))
	default:
		logger.Error(op+" failed", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, Fail(service.MsgDefault))
	}
}

func badRequest(w http.ResponseWriter) {
	writeJSON(w, http.StatusBadRequest, Fail(service.MsgInvalid))
}
