package api

import (
	"errors"
	"fmt"
	"net/http"
	"os"

	"github.com/gin-gonic/gin"
	"github.com/streamrelay/streamrelay/internal/apperrors"
	"github.com/streamrelay/streamrelay/internal/proxy"
)

// statusFor maps an error to the HTTP status sent to the client
func statusFor(err error) int {
	if _, ok := proxy.IsUnsatisfiable(err); ok {
		return http.StatusRequestedRangeNotSatisfiable
	}

	switch {
	case errors.Is(err, &apperrors.ErrNoQueryProvided{}),
		errors.Is(err, &apperrors.ErrInvalidParameter{}),
		errors.Is(err, &apperrors.ErrInvalidFilename{}),
		errors.Is(err, &apperrors.ErrInvalidRange{}):
		return http.StatusBadRequest
	case errors.Is(err, &apperrors.ErrNoMatchFound{}),
		errors.Is(err, &apperrors.ErrSeasonNotFound{}),
		errors.Is(err, &apperrors.ErrNotFound{}),
		errors.Is(err, os.ErrNotExist):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// writeError aborts the request with the JSON error body
func writeError(c *gin.Context, err error) {
	status := statusFor(err)
	_ = c.Error(err)

	if rangeErr, ok := proxy.IsUnsatisfiable(err); ok {
		c.Header("Content-Range", fmt.Sprintf("bytes */%d", rangeErr.Total))
	}

	message := err.Error()
	if status == http.StatusNotFound && errors.Is(err, os.ErrNotExist) {
		message = "Resource not found"
	}
	c.AbortWithStatusJSON(status, gin.H{"success": false, "error": message})
}
