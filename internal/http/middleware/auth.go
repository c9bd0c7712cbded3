package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"plate-registry/internal/model"
)

const principalKey = "principal"

type TokenParser interface {
	Parse(token string) (*model.Principal, error)
}

// Auth rejects requests without a valid bearer token and stores the
// principal on the gin context.
func Auth(parser TokenParser) gin.HandlerFunc {
	return func(c *gin.Context) {
		fields := strings.Fields(c.GetHeader("Authorization"))
		if len(fields) != 2 || !strings.EqualFold(fields[0], "Bearer") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing or malformed authorization header"})
			return
		}

		principal, err := parser.Parse(fields[1])
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid or expired token"})
			return
		}

		c.Set(principalKey, *principal)
		c.Next()
	}
}

func PrincipalFromContext(c *gin.Context) (model.Principal, bool) {
	value, ok := c.Get(principalKey)
	if !ok {
		return model.Principal{}, false
	}
	principal, ok := value.(model.Principal)
	return principal, ok
}

// Require aborts with 403 unless allowed accepts the principal.
func Require(allowed func(model.Principal) bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		principal, ok := PrincipalFromContext(c)
		if !ok || !allowed(principal) {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "forbidden"})
			return
		}
		c.Next()
	}
}
