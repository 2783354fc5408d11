package v1

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/adanyl0v/taskboard/internal/locker"
	"github.com/adanyl0v/taskboard/internal/services"
	"github.com/adanyl0v/taskboard/internal/storage"
)

var (
	errInvalidRequestBody = errors.New("invalid request body")
	errMissingTaskID      = errors.New("task id is required")
	errUnauthorized       = errors.New("not authorized")
)

type apiError struct {
	Code    int    `json:"-"`
	Message string `json:"message"`
}

func newAPIError(code int, message string) apiError {
	return apiError{
		Code:    code,
		Message: message,
	}
}

func (e apiError) Error() string {
	return e.Message
}

func abort(c *gin.Context, err apiError) {
	c.AbortWithStatusJSON(err.Code, err)
}

func newStatusTextError(status int) apiError {
	return newAPIError(status, http.StatusText(status))
}

func newBadRequestError(message string) apiError {
	return newAPIError(http.StatusBadRequest, message)
}

func newUnauthorizedError(message string) apiError {
	return newAPIError(http.StatusUnauthorized, message)
}

func newNotFoundError(message string) apiError {
	return newAPIError(http.StatusNotFound, message)
}

func newConflictError(message string) apiError {
	return newAPIError(http.StatusConflict, message)
}

// taskError maps a task service error to a response. Missing and foreign
// tasks both read as not found.
func taskError(err error, fallback string) apiError {
	switch {
	case errors.Is(err, services.ErrInvalidTask), errors.Is(err, services.ErrInvalidReorder):
		return newBadRequestError(err.Error())
	case errors.Is(err, storage.ErrTaskNotFound):
		return newNotFoundError("Task not found or unauthorized")
	case errors.Is(err, locker.ErrLockTimeout):
		return newAPIError(http.StatusServiceUnavailable, "Task list is busy, try again")
	default:
		return newAPIError(http.StatusInternalServerError, fallback)
	}
}
