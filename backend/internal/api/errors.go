package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	apperrors "kindred/backend/pkg/errors"
)

// statusClientClosedRequest is reported when the caller went away before the
// response was ready
const statusClientClosedRequest = 499

// statusFor maps an error kind onto an HTTP status
func statusFor(err error) int {
	if errors.Is(err, context.Canceled) {
		return statusClientClosedRequest
	}
	switch apperrors.KindOf(err) {
	case apperrors.ErrorTypeNotFound:
		return http.StatusNotFound
	case apperrors.ErrorTypeAmbiguousResult, apperrors.ErrorTypeRelationConflict:
		return http.StatusConflict
	case apperrors.ErrorTypeValidation:
		return http.StatusBadRequest
	case apperrors.ErrorTypeStoreUnavailable:
		return http.StatusServiceUnavailable
	case apperrors.ErrorTypeAuth:
		var authErr *apperrors.ErrAuth
		if errors.As(err, &authErr) && authErr.Reason == apperrors.AuthReasonResolverUnreachable {
			return http.StatusServiceUnavailable
		}
		return http.StatusUnauthorized
	}
	return http.StatusInternalServerError
}

// abortWithError writes {"error": kind, "message": text}. Errors without a
// kind are logged and reported without detail.
func abortWithError(c *gin.Context, log *zap.Logger, err error) {
	status := statusFor(err)
	if status == statusClientClosedRequest {
		log.Debug("Request cancelled by client",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
		)
		c.AbortWithStatus(status)
		return
	}
	kind := string(apperrors.KindOf(err))
	message := err.Error()

	if kind == "" {
		log.Error("Request failed",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Error(err),
		)
		kind = "internal"
		message = "internal server error"
	}

	if status == http.StatusUnauthorized {
		c.Header("WWW-Authenticate", "Bearer")
	}
	c.AbortWithStatusJSON(status, gin.H{"error": kind, "message": message})
}
