package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"pwb_feeds/feed"
	"pwb_feeds/services"
)

type errorBody struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	Retryable bool   `json:"retryable,omitempty"`
}

// statusFor maps an error kind onto the response status and code
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, services.ErrUnknownProvider):
		return http.StatusNotFound, "unknown_provider"
	case errors.Is(err, feed.ErrNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, feed.ErrConfiguration):
		return http.StatusInternalServerError, "not_configured"
	case errors.Is(err, feed.ErrRateLimited):
		return http.StatusServiceUnavailable, "rate_limited"
	case errors.Is(err, feed.ErrUnavailable):
		return http.StatusServiceUnavailable, "unavailable"
	case errors.Is(err, feed.ErrAuthentication):
		return http.StatusBadGateway, "authentication_failed"
	case errors.Is(err, feed.ErrInvalidResponse):
		return http.StatusBadGateway, "invalid_response"
	case errors.Is(err, feed.ErrTooManyRedirects):
		return http.StatusBadGateway, "too_many_redirects"
	default:
		return http.StatusBadGateway, "provider_error"
	}
}

func abortWithError(c *gin.Context, err error) {
	status, code := statusFor(err)
	c.Error(err)
	c.AbortWithStatusJSON(status, gin.H{"error": errorBody{
		Code:      code,
		Message:   err.Error(),
		Retryable: feed.Retryable(err),
	}})
}
