package api

import (
	"errors"
	"net/http"

	"orderexec/pkg/exception"

	"github.com/yanun0323/logs"
)

// MapErrorToHTTP maps service errors to a status code and response body.
// Unknown errors are logged and hidden behind a generic message.
func MapErrorToHTTP(err error) (int, ErrorResponse) {
	if err == nil {
		return http.StatusOK, ErrorResponse{}
	}

	var validation *exception.ValidationError
	switch {
	case errors.As(err, &validation):
		return http.StatusBadRequest, newErrorResponse(validation.Error())
	case errors.Is(err, exception.ErrValidation):
		return http.StatusBadRequest, newErrorResponse(err.Error())
	case errors.Is(err, exception.ErrNotFound):
		return http.StatusNotFound, newErrorResponse(err.Error())
	case errors.Is(err, exception.ErrIdempotencyConflict),
		errors.Is(err, exception.ErrInvalidStateTransition):
		return http.StatusConflict, newErrorResponse(err.Error())
	case errors.Is(err, exception.ErrConcurrentModification):
		return http.StatusConflict, newErrorResponse("order was updated by another request, please retry")
	}

	logs.Errorf("unhandled api error, err: %+v", err)
	return http.StatusInternalServerError, newErrorResponse("internal error")
}

func newErrorResponse(message string) ErrorResponse {
	return ErrorResponse{Message: message, Details: map[string]string{}}
}

func invalidParam(name, value string) ErrorResponse {
	return newErrorResponse("invalid value for parameter '" + name + "': " + value)
}
