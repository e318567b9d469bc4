package httputil

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/AdamBeresnev/pingpong-tables/internal/service"
)

// ErrorBody is the JSON shape of every error response.
type ErrorBody struct {
	Detail string `json:"detail"`
}

func InternalServerError(w http.ResponseWriter, msg string, err error) {
	slog.Error(msg, "error", err)
	WriteJSON(w, http.StatusInternalServerError, ErrorBody{Detail: "Internal Server Error"})
}

func BadRequest(w http.ResponseWriter, msg string, err error) {
	if err != nil {
		slog.Warn("bad request", "message", msg, "error", err)
	} else {
		slog.Warn("bad request", "message", msg)
	}
	WriteJSON(w, http.StatusBadRequest, ErrorBody{Detail: msg})
}

func NotFound(w http.ResponseWriter, msg string, err error) {
	if err != nil {
		slog.Warn("not found", "message", msg, "error", err)
	} else {
		slog.Warn("not found", "message", msg)
	}
	WriteJSON(w, http.StatusNotFound, ErrorBody{Detail: msg})
}

func Conflict(w http.ResponseWriter, msg string) {
	slog.Warn("conflict", "message", msg)
	WriteJSON(w, http.StatusConflict, ErrorBody{Detail: msg})
}

func Unauthorized(w http.ResponseWriter, msg string) {
	w.Header().Set("WWW-Authenticate", "Bearer")
	WriteJSON(w, http.StatusUnauthorized, ErrorBody{Detail: msg})
}

func Forbidden(w http.ResponseWriter, msg string) {
	slog.Warn("forbidden", "message", msg)
	WriteJSON(w, http.StatusForbidden, ErrorBody{Detail: msg})
}

func BadGateway(w http.ResponseWriter, body any, err error) {
	slog.Error("notification delivery failed", "error", err)
	WriteJSON(w, http.StatusBadGateway, body)
}

// Error writes a service error with the status code of its kind. Anything
// unclassified is a 500.
func Error(w http.ResponseWriter, msg string, err error) {
	switch service.KindOf(err) {
	case service.KindNotFound:
		NotFound(w, service.Detail(err), nil)
	case service.KindInvalidInput:
		BadRequest(w, service.Detail(err), nil)
	case service.KindConflict:
		Conflict(w, service.Detail(err))
	case service.KindUnauthorized:
		Unauthorized(w, service.Detail(err))
	case service.KindDelivery:
		BadGateway(w, ErrorBody{Detail: deliveryDetail(err)}, err)
	default:
		InternalServerError(w, msg, err)
	}
}

// DeliveryError is the 502 body of an assignment whose notification failed
// after it was committed.
type DeliveryError struct {
	Detail     string `json:"detail"`
	Assignment any    `json:"assignment,omitempty"`
}

func WriteDeliveryError(w http.ResponseWriter, err error, assignment any) {
	BadGateway(w, DeliveryError{Detail: deliveryDetail(err), Assignment: assignment}, err)
}

func deliveryDetail(err error) string {
	if cause := errors.Unwrap(err); cause != nil {
		return cause.Error()
	}
	return service.Detail(err)
}
