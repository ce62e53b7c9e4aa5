package errors

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/ivankudzin/recipemarket/internal/pkg/apperr"
	"github.com/ivankudzin/recipemarket/internal/services/rate"
)

func TestFromErrorMapsKinds(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{apperr.Validation("BAD", "bad"), http.StatusBadRequest},
		{apperr.Conflict("ALREADY", "already"), http.StatusBadRequest},
		{apperr.Unauthenticated("AUTH", "auth"), http.StatusUnauthorized},
		{apperr.Forbidden("NOPE", "nope"), http.StatusForbidden},
		{fmt.Errorf("load: %w", apperr.NotFound("MISSING", "missing")), http.StatusNotFound},
		{apperr.Dependency("DOWN", "down"), http.StatusServiceUnavailable},
		{fmt.Errorf("boom"), http.StatusInternalServerError},
	}

	for _, tc := range cases {
		rr := httptest.NewRecorder()
		FromError(rr, nil, tc.err, "failed")
		if rr.Code != tc.want {
			t.Fatalf("%v: got %d want %d", tc.err, rr.Code, tc.want)
		}

		var body Envelope
		if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if body.Success || body.Error == "" || body.Message == "" {
			t.Fatalf("unexpected envelope: %+v", body)
		}
	}
}

func TestFromErrorRateLimitedCarriesRetryAfter(t *testing.T) {
	rr := httptest.NewRecorder()
	FromError(rr, nil, &rate.LimitError{Action: rate.ActionAddToCart, RetryAfterSec: 12}, "failed")

	if rr.Code != http.StatusTooManyRequests {
		t.Fatalf("unexpected status: %d", rr.Code)
	}
	if rr.Header().Get("Retry-After") != "12" {
		t.Fatalf("unexpected Retry-After: %q", rr.Header().Get("Retry-After"))
	}

	var body Envelope
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Error != "RATE_LIMITED" || body.RetryAfterSec != 12 {
		t.Fatalf("unexpected envelope: %+v", body)
	}
}
