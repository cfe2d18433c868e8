package httpserver

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"storefront/internal/domain"
)

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`
}

func writeError(c *gin.Context, err error) {
	status, body := toErrorResponse(err)
	if status >= http.StatusInternalServerError {
		_ = c.Error(err)
	}
	c.JSON(status, body)
}

func abortWithError(c *gin.Context, err error) {
	status, body := toErrorResponse(err)
	c.AbortWithStatusJSON(status, body)
}

func toErrorResponse(err error) (int, errorResponse) {
	kind := domain.Kind(err)
	body := errorResponse{Code: string(kind), Message: err.Error()}

	switch kind {
	case domain.KindValidation:
		var verr *domain.ValidationError
		errors.As(err, &verr)
		body.Field = verr.Field
		body.Message = verr.Message
		return http.StatusBadRequest, body
	case domain.KindAuth:
		if errors.Is(err, domain.ErrInvalidCredentials) {
			body.Message = "invalid email or password"
			return http.StatusBadRequest, body
		}
		body.Message = "authentication required"
		return http.StatusUnauthorized, body
	case domain.KindNotFound:
		body.Message = "not found"
		return http.StatusNotFound, body
	case domain.KindConflict:
		var cerr *domain.ConflictError
		if errors.As(err, &cerr) {
			body.Field = cerr.Field
			body.Message = cerr.Message
			return http.StatusBadRequest, body
		}
		if errors.Is(err, domain.ErrAlreadyExists) {
			return http.StatusBadRequest, body
		}
		return http.StatusConflict, body
	case domain.KindGateway:
		var gerr *domain.GatewayError
		errors.As(err, &gerr)
		body.Message = gerr.Message
		if gerr.Op == "intent" {
			return http.StatusInternalServerError, body
		}
		return http.StatusBadRequest, body
	case domain.KindFatal:
		return http.StatusInternalServerError, body
	default:
		body.Message = "internal server error"
		return http.StatusInternalServerError, body
	}
}

func bindJSON(c *gin.Context, dst any) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		writeError(c, domain.Invalid("", "invalid request body"))
		return false
	}
	return true
}
