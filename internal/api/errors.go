package api

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"portal/internal/auth"
	"portal/pkg/interfaces"
	"portal/pkg/types"
)

var (
	errUnauthenticated = echo.NewHTTPError(http.StatusUnauthorized, "user not authenticated")
	errForbidden       = echo.NewHTTPError(http.StatusForbidden, "permission denied")
	errKeyMismatch     = echo.NewHTTPError(http.StatusBadRequest, "Idempotency-Key header does not match clientMessageId")
)

// statusBySentinel maps domain errors to response codes. Errors reach the
// handler wrapped, so lookups go through errors.Is.
var statusBySentinel = []struct {
	err  error
	code int
}{
	{types.ErrEmptyContent, http.StatusBadRequest},
	{types.ErrInvalidMessageType, http.StatusBadRequest},
	{types.ErrDirectTarget, http.StatusBadRequest},
	{types.ErrCourseTarget, http.StatusBadRequest},
	{types.ErrGroupTarget, http.StatusBadRequest},
	{interfaces.ErrUserNotFound, http.StatusNotFound},
	{interfaces.ErrCourseNotFound, http.StatusNotFound},
	{interfaces.ErrMessageNotFound, http.StatusNotFound},
	{interfaces.ErrNotEnrolled, http.StatusNotFound},
	{interfaces.ErrAlreadyEnrolled, http.StatusConflict},
	{interfaces.ErrScheduleConflict, http.StatusConflict},
	{auth.ErrMissingUserID, http.StatusUnauthorized},
	{auth.ErrMissingToken, http.StatusUnauthorized},
	{auth.ErrInvalidToken, http.StatusUnauthorized},
	{auth.ErrSubjectMismatch, http.StatusUnauthorized},
	{auth.ErrUnknownUser, http.StatusUnauthorized},
}

func badRequest(message string) *echo.HTTPError {
	return echo.NewHTTPError(http.StatusBadRequest, message)
}

// httpErrorHandler renders every error as {"message": ...}, or a field map for
// validation failures
func (s *Server) httpErrorHandler(err error, c echo.Context) {
	code, message := s.classify(err)

	if c.Response().Committed {
		return
	}
	if code >= http.StatusInternalServerError {
		s.log.Error().Err(err).Str("uri", c.Request().RequestURI).Msg("request failed")
	}

	if m, ok := message.(string); ok {
		message = echo.Map{"message": m}
	}

	var writeErr error
	if c.Request().Method == http.MethodHead {
		writeErr = c.NoContent(code)
	} else {
		writeErr = c.JSON(code, message)
	}
	if writeErr != nil {
		s.log.Debug().Err(writeErr).Msg("error response not written")
	}
}

func (s *Server) classify(err error) (int, interface{}) {
	var httpErr *echo.HTTPError
	if errors.As(err, &httpErr) {
		if inner, ok := httpErr.Internal.(*echo.HTTPError); ok {
			httpErr = inner
		}
		return httpErr.Code, httpErr.Message
	}

	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) {
		fields := make(map[string]string, len(fieldErrs))
		for _, fe := range fieldErrs {
			fields[fe.Field()] = "failed on " + fe.Tag()
		}
		return http.StatusBadRequest, echo.Map{"message": "validation failed", "fields": fields}
	}

	for _, entry := range statusBySentinel {
		if errors.Is(err, entry.err) {
			return entry.code, entry.err.Error()
		}
	}

	return http.StatusInternalServerError, http.StatusText(http.StatusInternalServerError)
}
