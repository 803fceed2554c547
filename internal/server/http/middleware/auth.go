package middleware

import (
	"crypto/subtle"
	"net/http"

	"github.com/gin-gonic/gin"

	pkgAuth "github.com/polkiloo/orderflow/internal/pkg/auth"
)

const adminRealm = `Basic realm="orderflow"`

// AdminAuth guards back-office routes with HTTP basic auth checked against a
// bcrypt hash. An empty hash leaves the routes open.
func AdminAuth(user, passwordHash string, hasher pkgAuth.PasswordHasher) gin.HandlerFunc {
	return func(c *gin.Context) {
		if passwordHash == "" {
			c.Next()
			return
		}

		login, password, ok := c.Request.BasicAuth()
		if !ok || subtle.ConstantTimeCompare([]byte(login), []byte(user)) != 1 || hasher.Compare(passwordHash, password) != nil {
			c.Header("WWW-Authenticate", adminRealm)
			c.AbortWithStatus(http.StatusUnauthorized)
			return
		}
		c.Next()
	}
}
