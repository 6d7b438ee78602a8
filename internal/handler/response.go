package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/shinyyama/campus-market/internal/service"
)

type errorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type ErrorResponse struct {
	Error errorPayload `json:"error"`
}

func NewErrorResponse(code, message string) ErrorResponse {
	return ErrorResponse{
		Error: errorPayload{
			Code:    code,
			Message: message,
		},
	}
}

// FormErrorResponse is returned with 422 when a submitted form is rejected.
type FormErrorResponse struct {
	Error  errorPayload        `json:"error"`
	Fields map[string][]string `json:"fields"`
	Values any                 `json:"values,omitempty"`
}

func formError(c echo.Context, verr *service.ValidationError, values any) error {
	return c.JSON(http.StatusUnprocessableEntity, FormErrorResponse{
		Error:  errorPayload{Code: "validation_failed", Message: "please correct the errors below"},
		Fields: verr.Fields,
		Values: values,
	})
}

// respond maps service errors onto the response envelope. what names the resource in messages.
func respond(c echo.Context, err error, what string, values any) error {
	var (
		verr *service.ValidationError
		herr *echo.HTTPError
	)
	switch {
	case errors.As(err, &herr):
		return herr
	case errors.As(err, &verr):
		return formError(c, verr, values)
	case errors.Is(err, service.ErrNotFound):
		return c.JSON(http.StatusNotFound, NewErrorResponse("not_found", what+" not found"))
	default:
		slog.ErrorContext(c.Request().Context(), "request failed", "resource", what, "error", err)
		return c.JSON(http.StatusInternalServerError, NewErrorResponse("internal_error", "failed to process "+what))
	}
}

// pathID parses a positive id path parameter. Anything else is reported as not found.
func pathID(c echo.Context, name string) (uint64, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	return id, err == nil && id != 0
}

// HTTPErrorHandler renders router and middleware errors in the same envelope as handlers.
func HTTPErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}
	code := http.StatusInternalServerError
	msg := "internal server error"
	var he *echo.HTTPError
	if errors.As(err, &he) {
		code = he.Code
		msg = http.StatusText(code)
		if m, ok := he.Message.(string); ok {
			msg = m
		}
	} else {
		slog.ErrorContext(c.Request().Context(), "unhandled error", "error", err)
	}
	var resp ErrorResponse
	switch code {
	case http.StatusNotFound:
		resp = NewErrorResponse("not_found", msg)
	case http.StatusMethodNotAllowed:
		resp = NewErrorResponse("method_not_allowed", msg)
	case http.StatusBadRequest:
		resp = NewErrorResponse("bad_request", msg)
	case http.StatusRequestEntityTooLarge:
		resp = NewErrorResponse("too_large", msg)
	default:
		if code < http.StatusInternalServerError {
			resp = NewErrorResponse("request_error", msg)
		} else {
			resp = NewErrorResponse("internal_error", msg)
		}
	}
	if c.Request().Method == http.MethodHead {
		_ = c.NoContent(code)
		return
	}
	_ = c.JSON(code, resp)
}
