package api

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/trainhub/auth-service/internal/core/domain"
)

// errorResponse is the canonical error envelope for all API errors.
type errorResponse struct {
	Error  string `json:"error"`
	Code   string `json:"code"`
	Detail string `json:"detail,omitempty"`
}

var statusByCode = map[string]int{
	domain.CodeConflict:        http.StatusConflict,
	domain.CodeUnauthenticated: http.StatusUnauthorized,
	domain.CodeTokenExpired:    http.StatusUnauthorized,
	domain.CodeTokenInvalid:    http.StatusUnauthorized,
	domain.CodeInvalidInput:    http.StatusBadRequest,
	domain.CodeForbidden:       http.StatusForbidden,
	domain.CodeNotFound:        http.StatusNotFound,
	domain.CodeInternal:        http.StatusInternalServerError,
}

// NewHTTPErrorHandler returns an echo.HTTPErrorHandler that:
//   - maps domain error kinds to HTTP status codes,
//   - logs internal failures with their cause,
//   - hides internal detail from clients when production is set.
func NewHTTPErrorHandler(log zerolog.Logger, production bool) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		status, body := resolveError(err, production)
		if status >= http.StatusInternalServerError {
			log.Error().
				Err(err).
				Str("method", c.Request().Method).
				Str("path", c.Path()).
				Str("request_id", c.Response().Header().Get(echo.HeaderXRequestID)).
				Msg("unhandled error")
		}

		if c.Request().Method == http.MethodHead {
			_ = c.NoContent(status)
			return
		}
		_ = c.JSON(status, body)
	}
}

func resolveError(err error, production bool) (int, errorResponse) {
	// Echo's own errors (bind failures, 404 from router, etc.)
	var he *echo.HTTPError
	if errors.As(err, &he) {
		return he.Code, errorResponse{
			Error: fmt.Sprintf("%v", he.Message),
			Code:  codeForStatus(he.Code),
		}
	}

	code := domain.Code(err)
	status, ok := statusByCode[code]
	if !ok {
		status = http.StatusInternalServerError
	}

	if status == http.StatusInternalServerError {
		body := errorResponse{Error: "internal server error", Code: domain.CodeInternal}
		if !production {
			body.Detail = err.Error()
		}
		return status, body
	}
	return status, errorResponse{Error: err.Error(), Code: code}
}

func codeForStatus(status int) string {
	switch status {
	case http.StatusBadRequest, http.StatusUnsupportedMediaType:
		return domain.CodeInvalidInput
	case http.StatusUnauthorized:
		return domain.CodeUnauthenticated
	case http.StatusForbidden:
		return domain.CodeForbidden
	case http.StatusNotFound:
		return domain.CodeNotFound
	case http.StatusConflict:
		return domain.CodeConflict
	}
	if status >= http.StatusInternalServerError {
		return domain.CodeInternal
	}
	return strings.ReplaceAll(strings.ToLower(http.StatusText(status)), " ", "_")
}
