package http

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"tradeledger/internal/domain"
)

// StatusFor maps ledger errors to HTTP status codes
func StatusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrTradeNotFound), errors.Is(err, domain.ErrUnknownAccount):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrMonitorBusy):
		return http.StatusConflict
	case errors.Is(err, domain.ErrIgnoredSignal):
		return http.StatusUnprocessableEntity
	case errors.Is(err, domain.ErrVenue):
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

// HandleError sends the response for a service error
func HandleError(c echo.Context, message string, err error) error {
	switch status := StatusFor(err); status {
	case http.StatusNotFound:
		return NotFoundResponse(c, message, err)
	case http.StatusInternalServerError:
		return InternalServerErrorResponse(c, message, err)
	default:
		return ErrorResponse(c, status, message, err)
	}
}
