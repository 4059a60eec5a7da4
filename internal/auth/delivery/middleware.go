package delivery

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"jobhunt-backend/internal/errs"
	"jobhunt-backend/pkg/response"

	"github.com/gin-gonic/gin"
)

// TokenValidator resolves a session token to its owner id.
type TokenValidator interface {
	Validate(token string) (string, error)
}

// AuthMiddleware accepts either a user session token or, for service
// callers, the shared API key with the owner named in X-Owner-ID. The owner
// id is stored under "userID".
func AuthMiddleware(sessions TokenValidator, apiKey string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if key := c.GetHeader("X-API-Key"); key != "" {
			if apiKey == "" || subtle.ConstantTimeCompare([]byte(key), []byte(apiKey)) != 1 {
				response.Fail(c, http.StatusUnauthorized, errs.CodeUnauthorized, "invalid api key")
				return
			}
			ownerID := c.GetHeader("X-Owner-ID")
			if ownerID == "" {
				response.Fail(c, http.StatusBadRequest, errs.CodeInvalidRequest, "X-Owner-ID header required")
				return
			}
			c.Set("userID", ownerID)
			c.Next()
			return
		}

		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			response.Fail(c, http.StatusUnauthorized, errs.CodeUnauthorized, "authorization header required")
			return
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			response.Fail(c, http.StatusUnauthorized, errs.CodeUnauthorized, "invalid authorization header format")
			return
		}

		ownerID, err := sessions.Validate(parts[1])
		if err != nil {
			response.Fail(c, http.StatusUnauthorized, errs.CodeUnauthorized, "invalid or expired token")
			return
		}

		c.Set("userID", ownerID)
		c.Next()
	}
}
