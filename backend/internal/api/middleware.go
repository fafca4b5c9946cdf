package api

import (
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"kindred/backend/internal/auth"
	apperrors "kindred/backend/pkg/errors"
)

const identityKey = "identity"

// requireUser resolves the bearer token and stores the identity on the context
func requireUser(resolver auth.Resolver, log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := bearerToken(c.GetHeader("Authorization"))
		if !ok {
			log.Warn("Request is missing bearer token", zap.String("path", c.Request.URL.Path))
			abortWithError(c, log, apperrors.NewAuthInvalid("not authenticated", nil))
			return
		}

		id, err := resolver.Verify(c.Request.Context(), token)
		if err != nil {
			abortWithError(c, log, err)
			return
		}

		c.Set(identityKey, id)
		c.Next()
	}
}

func bearerToken(header string) (string, bool) {
	scheme, token, found := strings.Cut(strings.TrimSpace(header), " ")
	if !found || !strings.EqualFold(scheme, "bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

// identityFrom returns the identity stored by requireUser
func identityFrom(c *gin.Context) *auth.Identity {
	v, ok := c.Get(identityKey)
	if !ok {
		return nil
	}
	id, _ := v.(*auth.Identity)
	return id
}
