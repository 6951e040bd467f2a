package common

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
)

// APIResponse is the standardized JSON response envelope.
type APIResponse struct {
	Success bool      `json:"success"`
	Data    any       `json:"data,omitempty"`
	Error   *APIError `json:"error,omitempty"`
}

// APIError contains error details in the response.
type APIError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// Success sends a successful JSON response with data.
func Success(c *gin.Context, statusCode int, data any) {
	Respond(c, statusCode, true, data)
}

// Respond sends an envelope with an explicit success flag. Used when a request
// completed but its outcome was negative (e.g. a notification that failed delivery).
func Respond(c *gin.Context, statusCode int, success bool, data any) {
	c.JSON(statusCode, APIResponse{
		Success: success,
		Data:    data,
	})
}

// Error sends an error JSON response.
func Error(c *gin.Context, statusCode int, message string) {
	c.JSON(statusCode, APIResponse{
		Success: false,
		Error: &APIError{
			Code:    statusCode,
			Message: message,
		},
	})
}

// HandleError inspects a domain error and sends the appropriate HTTP response.
// Uses errors.As to traverse the full error chain, supporting wrapped errors.
func HandleError(c *gin.Context, err error) {
	var notFound *NotFoundError
	var validation *ValidationError
	var duplicate *DuplicateError
	var configuration *ConfigurationError

	switch {
	case errors.As(err, &notFound):
		Error(c, http.StatusNotFound, notFound.Error())
	case errors.As(err, &validation):
		Error(c, http.StatusBadRequest, validation.Error())
	case errors.As(err, &duplicate):
		Error(c, http.StatusConflict, duplicate.Error())
	case errors.As(err, &configuration):
		Error(c, http.StatusInternalServerError, configuration.Error())
	default:
		Error(c, http.StatusInternalServerError, "internal server error")
	}
}
