package http

import (
	"encoding/json"
	"net/http"

	"github.com/labstack/echo/v4"
)

const (
	statusSuccess = "success"
	statusError   = "error"
)

// Response is the envelope of every API and webhook reply
type Response struct {
	Status  string      `json:"status"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
	Error   interface{} `json:"error,omitempty"`
}

func successBody(message string, data interface{}) Response {
	return Response{Status: statusSuccess, Message: message, Data: data}
}

// errorBody carries err's text when there is one
func errorBody(message string, err interface{}) Response {
	if e, ok := err.(error); ok {
		err = e.Error()
	}
	return Response{Status: statusError, Message: message, Error: err}
}

// SuccessResponse sends a 200 with data
func SuccessResponse(c echo.Context, data interface{}) error {
	return c.JSON(http.StatusOK, successBody("", data))
}

// SuccessMessageResponse sends a 200 with a message and data
func SuccessMessageResponse(c echo.Context, message string, data interface{}) error {
	return c.JSON(http.StatusOK, successBody(message, data))
}

// CreatedResponse sends a 201 for a recorded trade
func CreatedResponse(c echo.Context, data interface{}) error {
	return c.JSON(http.StatusCreated, successBody("", data))
}

// ErrorResponse sends an error reply with the given status
func ErrorResponse(c echo.Context, statusCode int, message string, err interface{}) error {
	return c.JSON(statusCode, errorBody(message, err))
}

func BadRequestResponse(c echo.Context, message string) error {
	return ErrorResponse(c, http.StatusBadRequest, message, nil)
}

func UnauthorizedResponse(c echo.Context, message string) error {
	return ErrorResponse(c, http.StatusUnauthorized, message, nil)
}

func ForbiddenResponse(c echo.Context, message string) error {
	return ErrorResponse(c, http.StatusForbidden, message, nil)
}

// NotFoundResponse reports a missing trade or account; err names which one
func NotFoundResponse(c echo.Context, message string, err error) error {
	return ErrorResponse(c, http.StatusNotFound, message, err)
}

// InternalServerErrorResponse sends a 500 carrying the error text
func InternalServerErrorResponse(c echo.Context, message string, err error) error {
	if err == nil {
		return ErrorResponse(c, http.StatusInternalServerError, message, "")
	}
	return ErrorResponse(c, http.StatusInternalServerError, message, err)
}

// writeJSON replies outside echo, for handlers mounted directly on the root router
func writeJSON(w http.ResponseWriter, status int, body Response) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
