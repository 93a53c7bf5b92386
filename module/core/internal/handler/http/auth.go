package http

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

const identityKey = "caller_identity"

// IdentityVerifier resolves an opaque bearer token to a stable caller
// identity. The identity provider itself is an upstream capability; the
// service only trusts the string it returns.
type IdentityVerifier interface {
	Verify(ctx context.Context, token string) (string, error)
}

// OpaqueVerifier accepts any non-empty token and uses it verbatim as the
// caller identity. Stands in for a real provider at the trust boundary.
type OpaqueVerifier struct{}

func (OpaqueVerifier) Verify(_ context.Context, token string) (string, error) {
	return token, nil
}

// RequireIdentity rejects requests without a bearer token and stores the
// verified identity on the request context.
func RequireIdentity(verifier IdentityVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		token := strings.TrimSpace(strings.TrimPrefix(header, "Bearer"))
		if header == "" || token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing bearer token"})
			return
		}

		identity, err := verifier.Verify(c.Request.Context(), token)
		if err != nil || identity == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid bearer token"})
			return
		}

		c.Set(identityKey, identity)
		c.Next()
	}
}

// CallerIdentity returns the verified identity set by RequireIdentity.
func CallerIdentity(c *gin.Context) string {
	return c.GetString(identityKey)
}
