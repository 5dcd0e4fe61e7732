package httpserver

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"storefront/internal/domain"
)

func TestClassify(t *testing.T) {
	cases := []struct {
		err    error
		status int
		code   string
	}{
		{domain.Invalid("email", "required"), http.StatusBadRequest, "validation_error"},
		{domain.ErrNotAuthenticated, http.StatusUnauthorized, "not_authenticated"},
		{domain.ErrInvalidCredentials, http.StatusUnauthorized, "invalid_credentials"},
		{domain.ErrNotFound, http.StatusNotFound, "not_found"},
		{domain.ErrDuplicateEmail, http.StatusConflict, "duplicate_email"},
		{fmt.Errorf("earn points: %w", domain.ErrConflict), http.StatusConflict, "conflict"},
		{fmt.Errorf("%w: 10 more needed", domain.ErrInsufficientPoints), http.StatusUnprocessableEntity, "insufficient_points"},
		{domain.Persistence("loyalty.get", errors.New("conn reset")), http.StatusInternalServerError, "internal_error"},
	}
	for _, tc := range cases {
		status, detail := classify(tc.err)
		if status != tc.status || detail.Code != tc.code {
			t.Fatalf("classify(%v) = %d %s, want %d %s", tc.err, status, detail.Code, tc.status, tc.code)
		}
	}

	_, detail := classify(domain.Persistence("loyalty.get", errors.New("password=secret")))
	if detail.Message != "internal error" {
		t.Fatalf("internal error message leaked: %q", detail.Message)
	}
}
