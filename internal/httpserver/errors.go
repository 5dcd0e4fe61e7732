package httpserver

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"storefront/internal/domain"
)

type errorBody struct {
	Error errorDetail `json:"error"`
}

type errorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`
}

// writeError maps domain errors to a status and a JSON body. Unknown errors are 500s and
// their message is not exposed.
func writeError(c *gin.Context, err error) {
	status, detail := classify(err)
	if status >= http.StatusInternalServerError {
		_ = c.Error(err)
	}
	c.JSON(status, errorBody{Error: detail})
}

func classify(err error) (int, errorDetail) {
	var ve *domain.ValidationError
	switch {
	case errors.As(err, &ve):
		return http.StatusBadRequest, errorDetail{Code: "validation_error", Message: ve.Message, Field: ve.Field}
	case errors.Is(err, domain.ErrNotAuthenticated):
		return http.StatusUnauthorized, errorDetail{Code: "not_authenticated", Message: "authentication required"}
	case errors.Is(err, domain.ErrInvalidCredentials):
		return http.StatusUnauthorized, errorDetail{Code: "invalid_credentials", Message: "invalid email or password"}
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound, errorDetail{Code: "not_found", Message: "resource not found"}
	case errors.Is(err, domain.ErrOutOfRange):
		return http.StatusNotFound, errorDetail{Code: "out_of_range", Message: "cart line does not exist"}
	case errors.Is(err, domain.ErrDuplicateEmail):
		return http.StatusConflict, errorDetail{Code: "duplicate_email", Message: "email already registered", Field: "email"}
	case errors.Is(err, domain.ErrAlreadyExists):
		return http.StatusConflict, errorDetail{Code: "already_exists", Message: "resource already exists"}
	case errors.Is(err, domain.ErrConflict):
		return http.StatusConflict, errorDetail{Code: "conflict", Message: "concurrent update, retry"}
	case errors.Is(err, domain.ErrInsufficientPoints):
		return http.StatusUnprocessableEntity, errorDetail{Code: "insufficient_points", Message: err.Error()}
	default:
		return http.StatusInternalServerError, errorDetail{Code: "internal_error", Message: "internal error"}
	}
}

func badRequest(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, errorBody{Error: errorDetail{Code: "bad_request", Message: message}})
}
