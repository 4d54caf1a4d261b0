package api

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/99minutos/template-backend/internal/api/operation"
	"github.com/99minutos/template-backend/internal/core/domain"
	"github.com/99minutos/template-backend/internal/metrics"
)

const fieldViolationType = "type.googleapis.com/google.rpc.BadRequest.FieldViolation"

// errorResponse is the canonical error envelope for all API errors. It has
// the shape of the contract's RpcStatus schema.
type errorResponse struct {
	Code    int      `json:"code"`
	Message string   `json:"message"`
	Details []detail `json:"details"`
}

type detail struct {
	Type        string `json:"@type"`
	Field       string `json:"field,omitempty"`
	In          string `json:"in,omitempty"`
	Rule        string `json:"rule,omitempty"`
	Description string `json:"description,omitempty"`
}

// NewHTTPErrorHandler returns an echo.HTTPErrorHandler that:
//   - Maps known domain and dispatcher errors to their HTTP status codes.
//   - Logs unexpected errors internally without leaking details to the client.
//   - Renders a consistent JSON envelope: {"code", "message", "details"}.
func NewHTTPErrorHandler(log zerolog.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		resp := resolveError(err, log, c)
		metrics.ErrorResponsesTotal.WithLabelValues(strconv.Itoa(resp.Code)).Inc()

		if c.Request().Method == http.MethodHead {
			_ = c.NoContent(resp.Code)
			return
		}
		_ = c.JSON(resp.Code, resp)
	}
}

func resolveError(err error, log zerolog.Logger, c echo.Context) errorResponse {
	// Contract violations carry one detail per failed check.
	var ve *operation.ValidationError
	if errors.As(err, &ve) {
		details := make([]detail, 0, len(ve.Violations))
		for _, v := range ve.Violations {
			details = append(details, detail{
				Type:        fieldViolationType,
				Field:       v.Field,
				In:          v.In,
				Rule:        v.Rule,
				Description: v.Description,
			})
		}
		return errorResponse{Code: http.StatusBadRequest, Message: "request validation failed", Details: details}
	}

	// Conflict and invalid input are checked before persistence: the identity
	// service joins them with ErrPersistence.
	switch {
	case errors.Is(err, operation.ErrUnauthenticated):
		return envelope(http.StatusUnauthorized, "authentication required")
	case errors.Is(err, operation.ErrUnknownOperation):
		return envelope(http.StatusNotFound, "operation not found")
	case errors.Is(err, domain.ErrInvalidCredentials):
		return envelope(http.StatusUnauthorized, "invalid credentials")
	case errors.Is(err, domain.ErrTooManyAttempts):
		return envelope(http.StatusTooManyRequests, "too many failed attempts")
	case errors.Is(err, domain.ErrUserExists):
		return envelope(http.StatusConflict, "user already exists")
	case errors.Is(err, domain.ErrInvalidUser):
		return envelope(http.StatusBadRequest, "invalid user")
	case errors.Is(err, domain.ErrUserNotFound):
		return envelope(http.StatusNotFound, "user not found")
	case errors.Is(err, domain.ErrNotImplemented):
		return envelope(http.StatusNotImplemented, "Not implemented")
	}

	// Echo's own errors (router 404/405, rate limiter, body limit).
	var he *echo.HTTPError
	if errors.As(err, &he) {
		switch he.Code {
		case http.StatusNotFound, http.StatusMethodNotAllowed:
			return envelope(http.StatusNotFound, "operation not found")
		}
		if he.Code < http.StatusInternalServerError {
			return envelope(he.Code, fmt.Sprintf("%v", he.Message))
		}
	}

	// Unexpected error: log the real cause, return a generic message.
	log.Error().
		Err(err).
		Str("method", c.Request().Method).
		Str("path", c.Path()).
		Str("request_id", c.Response().Header().Get(echo.HeaderXRequestID)).
		Interface("operation", c.Get(operation.ContextKey)).
		Msg("unhandled error")

	return envelope(http.StatusInternalServerError, "internal server error")
}

func envelope(code int, msg string) errorResponse {
	return errorResponse{Code: code, Message: msg, Details: []detail{}}
}
