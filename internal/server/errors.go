package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	attendancedomain "github.com/digiget/digiget/internal/attendance/domain"
	authdomain "github.com/digiget/digiget/internal/auth/domain"
	"github.com/digiget/digiget/internal/cooldown"
	customerdomain "github.com/digiget/digiget/internal/customer/domain"
	employeedomain "github.com/digiget/digiget/internal/employee/domain"
	loyaltydomain "github.com/digiget/digiget/internal/loyalty/domain"
	offerdomain "github.com/digiget/digiget/internal/offer/domain"
	"github.com/digiget/digiget/internal/payroll"
	ratingdomain "github.com/digiget/digiget/internal/rating/domain"
	shopdomain "github.com/digiget/digiget/internal/shop/domain"
)

var (
	ErrUnauthorized       = errors.New("unauthorized")
	ErrForbidden          = errors.New("forbidden")
	ErrNotFound           = errors.New("not_found")
	ErrInvalidRequest     = errors.New("invalid_request")
	ErrRateLimited        = errors.New("rate_limited")
	ErrServiceUnavailable = errors.New("service_unavailable")
)

type errorPayload struct {
	Type    string `json:"type"`
	Message string `json:"message"`
	// RetryAfterMinutes is set for cooldown rejections so clients can
	// show the wait without parsing the message.
	RetryAfterMinutes int `json:"retry_after_minutes,omitempty"`
}

type errorResponse struct {
	Error errorPayload `json:"error"`
}

// ErrorHandlingMiddleware converts errors recorded on the context into
// one JSON error body. Handlers abort with AbortWithError and never
// write error JSON themselves.
func ErrorHandlingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if c.Writer.Written() {
			return
		}

		lastErr := c.Errors.Last()
		if lastErr == nil {
			return
		}

		status, payload := mapError(lastErr.Err)
		c.AbortWithStatusJSON(status, errorResponse{Error: payload})
	}
}

func AbortWithError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	_ = c.Error(err)
	c.Abort()
}

func mapError(err error) (int, errorPayload) {
	var active *cooldown.ActiveError
	if errors.As(err, &active) {
		return http.StatusTooManyRequests, errorPayload{
			Type:              "cooldown_active",
			Message:           "action is on cooldown",
			RetryAfterMinutes: active.RemainingMinutes,
		}
	}

	switch {
	case errors.Is(err, ErrRateLimited):
		return http.StatusTooManyRequests, errorPayload{
			Type:    "rate_limited",
			Message: "too many requests",
		}
	case errors.Is(err, ErrUnauthorized),
		errors.Is(err, authdomain.ErrInvalidCredentials),
		errors.Is(err, authdomain.ErrSessionExpired),
		errors.Is(err, authdomain.ErrSessionRevoked),
		errors.Is(err, authdomain.ErrInvalidSession),
		errors.Is(err, employeedomain.ErrPINMismatch),
		errors.Is(err, employeedomain.ErrPINExpired):
		return http.StatusUnauthorized, errorPayload{
			Type:    "unauthorized",
			Message: "unauthorized",
		}
	case errors.Is(err, ErrForbidden):
		return http.StatusForbidden, errorPayload{
			Type:    "forbidden",
			Message: "forbidden",
		}
	case isConflictError(err):
		return http.StatusConflict, errorPayload{
			Type:    "conflict",
			Message: err.Error(),
		}
	case isValidationError(err):
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: err.Error(),
		}
	case isNotFoundError(err):
		return http.StatusNotFound, errorPayload{
			Type:    "not_found",
			Message: "not found",
		}
	case errors.Is(err, ErrServiceUnavailable):
		return http.StatusServiceUnavailable, errorPayload{
			Type:    "service_unavailable",
			Message: "service unavailable",
		}
	default:
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
		}
	}
}

func isValidationError(err error) bool {
	switch {
	case errors.Is(err, ErrInvalidRequest),
		errors.Is(err, shopdomain.ErrInvalidName),
		errors.Is(err, shopdomain.ErrInvalidCoordinate),
		errors.Is(err, shopdomain.ErrInvalidRadius),
		errors.Is(err, customerdomain.ErrInvalidPhone),
		errors.Is(err, customerdomain.ErrInvalidID),
		errors.Is(err, employeedomain.ErrInvalidName),
		errors.Is(err, employeedomain.ErrInvalidEmail),
		errors.Is(err, loyaltydomain.ErrInvalidOperationID),
		errors.Is(err, loyaltydomain.ErrInvalidCoordinates),
		errors.Is(err, loyaltydomain.ErrLocationUnavailable),
		errors.Is(err, loyaltydomain.ErrInvalidPoints),
		errors.Is(err, attendancedomain.ErrInvalidOperationID),
		errors.Is(err, attendancedomain.ErrInvalidCoordinates),
		errors.Is(err, attendancedomain.ErrLocationUnavailable),
		errors.Is(err, ratingdomain.ErrInvalidStars),
		errors.Is(err, offerdomain.ErrInvalidTitle),
		errors.Is(err, offerdomain.ErrInvalidWindow),
		errors.Is(err, payroll.ErrInvalidRange):
		return true
	default:
		return false
	}
}

func isConflictError(err error) bool {
	switch {
	case errors.Is(err, authdomain.ErrEmailExists),
		errors.Is(err, shopdomain.ErrSlugExists),
		errors.Is(err, customerdomain.ErrPhoneExists),
		errors.Is(err, employeedomain.ErrEmailExists),
		errors.Is(err, loyaltydomain.ErrInsufficientPoints),
		errors.Is(err, loyaltydomain.ErrVisitResolved),
		errors.Is(err, attendancedomain.ErrAlreadyClockedIn),
		errors.Is(err, attendancedomain.ErrNotClockedIn),
		errors.Is(err, attendancedomain.ErrEntryResolved):
		return true
	default:
		return false
	}
}

func isNotFoundError(err error) bool {
	switch {
	case errors.Is(err, ErrNotFound),
		errors.Is(err, shopdomain.ErrNotFound),
		errors.Is(err, customerdomain.ErrNotFound),
		errors.Is(err, employeedomain.ErrNotFound),
		errors.Is(err, loyaltydomain.ErrVisitNotFound),
		errors.Is(err, attendancedomain.ErrEntryNotFound),
		errors.Is(err, ratingdomain.ErrNotFound),
		errors.Is(err, offerdomain.ErrNotFound),
		errors.Is(err, gorm.ErrRecordNotFound):
		return true
	default:
		return false
	}
}
