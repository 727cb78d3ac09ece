package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/piwi3910/SubTrack/internal/config"
	"github.com/piwi3910/SubTrack/internal/matcher"
	"github.com/piwi3910/SubTrack/internal/selection"
	"github.com/piwi3910/SubTrack/internal/store"
)

var errInvalidID = errors.New("invalid id")

// statusFor maps domain errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, store.ErrSubOutNotFound),
		errors.Is(err, store.ErrLoadNotFound),
		errors.Is(err, matcher.ErrNoSession):
		return http.StatusNotFound
	case errors.Is(err, selection.ErrNothingSelected),
		errors.Is(err, errInvalidID):
		return http.StatusBadRequest
	case errors.Is(err, store.ErrDuplicateSource):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// fail writes {"error": msg}. Unexpected errors are logged and hidden.
func (s *Server) fail(c *gin.Context, funcName string, err error) {
	code := statusFor(err)
	if code == http.StatusInternalServerError {
		_ = c.Error(err)
		config.LogError(s.log, "api", funcName, c.Request.URL.Path, nil, err)
		c.JSON(code, gin.H{"error": "internal server error"})
		return
	}
	c.JSON(code, gin.H{"error": err.Error()})
}

// bindError answers a request whose body did not bind. Validation failures
// list the offending fields with the rule they broke.
func bindError(c *gin.Context, err error) {
	var ve validator.ValidationErrors
	if errors.As(err, &ve) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "validation failed", "fields": processValidationErrors(ve)})
		return
	}
	c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request: " + err.Error()})
}

func processValidationErrors(ve validator.ValidationErrors) map[string]string {
	out := make(map[string]string, len(ve))
	for _, fe := range ve {
		out[fe.Field()] = fe.Tag()
	}
	return out
}

// idParam parses a positive numeric path parameter.
func idParam(c *gin.Context, name string) (uint, error) {
	n, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || n == 0 {
		return 0, errInvalidID
	}
	return uint(n), nil
}
