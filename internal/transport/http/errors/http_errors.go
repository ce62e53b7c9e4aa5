package errors

import (
	"encoding/json"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"github.com/ivankudzin/recipemarket/internal/pkg/apperr"
	"github.com/ivankudzin/recipemarket/internal/services/rate"
)

// Envelope is the shape of every response body.
type Envelope struct {
	Success       bool   `json:"success"`
	Data          any    `json:"data,omitempty"`
	Message       string `json:"message,omitempty"`
	Error         string `json:"error,omitempty"`
	RetryAfterSec int64  `json:"retry_after_sec,omitempty"`
}

func Write(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func OK(w http.ResponseWriter, status int, message string, data any) {
	Write(w, status, Envelope{Success: true, Message: message, Data: data})
}

func Fail(w http.ResponseWriter, status int, code, message string) {
	Write(w, status, Envelope{Success: false, Error: code, Message: message})
}

func StatusFor(kind apperr.Kind) int {
	switch kind {
	case apperr.KindValidation, apperr.KindConflict:
		return http.StatusBadRequest
	case apperr.KindUnauthenticated:
		return http.StatusUnauthorized
	case apperr.KindForbidden:
		return http.StatusForbidden
	case apperr.KindNotFound:
		return http.StatusNotFound
	case apperr.KindDependency:
		return http.StatusServiceUnavailable
	case apperr.KindRateLimited:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

// FromError writes a classified error with its code and message. Anything
// unclassified is logged and reported as a generic internal error.
func FromError(w http.ResponseWriter, log *zap.Logger, err error, fallback string) {
	e, ok := apperr.As(err)
	if !ok {
		if log != nil {
			log.Error("request failed", zap.Error(err))
		}
		Fail(w, http.StatusInternalServerError, "INTERNAL_ERROR", fallback)
		return
	}

	status := StatusFor(e.Kind)
	body := Envelope{Success: false, Error: e.Code, Message: e.Message}
	if status == http.StatusTooManyRequests {
		if sec, ok := rate.RetryAfter(err); ok {
			body.RetryAfterSec = max(sec, 1)
			w.Header().Set("Retry-After", strconv.FormatInt(body.RetryAfterSec, 10))
		}
	}
	if status >= http.StatusInternalServerError && log != nil {
		log.Warn("dependency failure", zap.String("code", e.Code), zap.Error(err))
	}
	Write(w, status, body)
}
