package middleware

import (
	stderrors "errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/palletspace/booking-service/pkg/api"
	"github.com/palletspace/booking-service/pkg/errors"
	"github.com/palletspace/booking-service/pkg/logging"
	"github.com/palletspace/booking-service/pkg/tenant"
)

const ContextKeyPrincipal = "principal"

// TokenVerifier validates bearer tokens into a caller context
type TokenVerifier interface {
	Verify(raw string) (*tenant.Context, error)
}

// RequireAuth rejects requests without a valid bearer token
func RequireAuth(verifier TokenVerifier, logger *logging.Logger) gin.HandlerFunc {
	return authenticate(verifier, logger, true)
}

// OptionalAuth attaches the caller when a valid token is present
func OptionalAuth(verifier TokenVerifier, logger *logging.Logger) gin.HandlerFunc {
	return authenticate(verifier, logger, false)
}

func authenticate(verifier TokenVerifier, logger *logging.Logger, required bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			if required {
				abortUnauthorized(c)
				return
			}
			c.Next()
			return
		}

		tc, err := verifier.Verify(header)
		if err != nil {
			logger.WithContext(c.Request.Context()).Warn("Rejected bearer token",
				"path", c.Request.URL.Path,
				"expired", stderrors.Is(err, tenant.ErrExpiredToken),
			)
			abortUnauthorized(c)
			return
		}

		c.Set(ContextKeyPrincipal, tc)
		ctx := tenant.ToContext(c.Request.Context(), tc)
		c.Request = c.Request.WithContext(logging.ContextWithUserID(ctx, tc.UserID))

		c.Next()
	}
}

func abortUnauthorized(c *gin.Context) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, api.Envelope{
		Success:   false,
		Error:     "Unauthorized",
		RequestID: GetRequestID(c),
	})
}

// RequireRole allows only callers holding one of roles
func RequireRole(roles ...tenant.Role) gin.HandlerFunc {
	allowed := make(map[tenant.Role]bool, len(roles))
	for _, r := range roles {
		allowed[r] = true
	}

	return func(c *gin.Context) {
		tc, err := tenant.FromContext(c.Request.Context())
		if err != nil {
			abortUnauthorized(c)
			return
		}
		if !allowed[tc.Role] {
			AbortWithAppError(c, errors.ErrForbidden("role "+string(tc.Role)+" may not perform this action"))
			return
		}
		c.Next()
	}
}

// GetPrincipal returns the authenticated caller, if any
func GetPrincipal(c *gin.Context) (*tenant.Context, bool) {
	v, ok := c.Get(ContextKeyPrincipal)
	if !ok {
		return nil, false
	}
	tc, ok := v.(*tenant.Context)
	return tc, ok
}
