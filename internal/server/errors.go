package server

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/spigell/jobfit/internal/ats"
	"github.com/spigell/jobfit/internal/pipeline"
)

const serverErrorMessage = "An unexpected error occurred. Please try again."

// APIError is the JSON error body returned by every endpoint.
type APIError struct {
	Status  int    `json:"-"`
	Code    string `json:"error"`
	Message string `json:"message"`
}

func (e *APIError) Error() string { return fmt.Sprintf("%s: %s", e.Code, e.Message) }

func newAPIError(status int, code, message string) *APIError {
	return &APIError{Status: status, Code: code, Message: message}
}

// toAPIError maps handler errors onto the public error codes. Unknown errors
// never leak their text to the client.
func toAPIError(err error) *APIError {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr
	}

	var httpErr *echo.HTTPError
	if errors.As(err, &httpErr) {
		return fromHTTPError(httpErr)
	}

	switch {
	case errors.Is(err, ats.ErrUnsupportedSource):
		return newAPIError(http.StatusBadRequest, "UnsupportedURL", err.Error())
	case errors.Is(err, ats.ErrInvalidCompanyURL):
		return newAPIError(http.StatusBadRequest, "ValidationError", err.Error())
	case errors.Is(err, pipeline.ErrTimeout):
		return newAPIError(http.StatusGatewayTimeout, "Timeout", "The recommendation took too long. Please try again.")
	case errors.Is(err, ats.ErrFetchFailed):
		return newAPIError(http.StatusBadGateway, "FetchFailed", err.Error())
	default:
		return newAPIError(http.StatusInternalServerError, "ServerError", serverErrorMessage)
	}
}

func fromHTTPError(err *echo.HTTPError) *APIError {
	message := http.StatusText(err.Code)
	if err.Message != nil {
		message = fmt.Sprint(err.Message)
	}

	switch {
	case err.Code == http.StatusBadRequest:
		return newAPIError(err.Code, "ValidationError", message)
	case err.Code >= http.StatusInternalServerError:
		return newAPIError(err.Code, "ServerError", serverErrorMessage)
	default:
		return newAPIError(err.Code, strings.ReplaceAll(http.StatusText(err.Code), " ", ""), message)
	}
}
