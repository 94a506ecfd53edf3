package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"giftboard/service"

	"github.com/go-chi/chi/v5/middleware"
	log "github.com/sirupsen/logrus"
)

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.WithError(err).Warn("Failed to encode response")
	}
}

// writeError maps err onto a status code and a JSON error body
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	kind := service.KindOf(err)
	status, body := errorBody(kind, err)

	logger := log.WithFields(log.Fields{
		"requestId": middleware.GetReqID(r.Context()),
		"method":    r.Method,
		"path":      r.URL.Path,
		"status":    status,
		"code":      kind,
	}).WithError(err)
	if status >= http.StatusInternalServerError {
		logger.Error("Request failed")
	} else {
		logger.Debug("Request rejected")
	}

	writeJSON(w, status, body)
}

func errorBody(kind service.ErrorKind, err error) (int, errorResponse) {
	body := errorResponse{Success: false, Error: err.Error(), Code: kind}

	switch kind {
	case service.KindInvalidArgument:
		var validationErr *service.ValidationError
		if errors.As(err, &validationErr) {
			body.Field = validationErr.Field
		}
		return http.StatusBadRequest, body

	case service.KindNotFound:
		return http.StatusNotFound, body

	case service.KindInsufficientFunds:
		var fundsErr *service.InsufficientFundsError
		if errors.As(err, &fundsErr) {
			body.Error = "Insufficient balance"
			body.CurrentBalance = fundsErr.CurrentBalance.StringFixed(2)
			body.RequiredAmount = fundsErr.RequiredAmount.StringFixed(2)
			body.Shortfall = fundsErr.Shortfall.StringFixed(2)
		}
		return http.StatusBadRequest, body

	case service.KindForbidden:
		var forbidden *service.ForbiddenError
		if errors.As(err, &forbidden) && forbidden.Reason == service.ForbiddenCompetitionStarted {
			return http.StatusBadRequest, body
		}
		return http.StatusForbidden, body

	case service.KindConflict:
		var conflict *service.ConflictError
		if errors.As(err, &conflict) {
			body.OperationID = conflict.OperationID
		}
		return http.StatusConflict, body

	case service.KindPartialFailure:
		var partial *service.PartialFailureError
		if errors.As(err, &partial) {
			body.Error = "The gift could not be recorded. Your balance has been refunded."
			body.OperationID = partial.OperationID
			body.RefundedAmount = partial.Amount.StringFixed(2)
		}
		return http.StatusBadGateway, body

	default:
		body.Code = service.KindInternal
		body.Error = "Internal server error"
		return http.StatusInternalServerError, body
	}
}
