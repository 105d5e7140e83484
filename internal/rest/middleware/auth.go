package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"github.com/civicview/comment-service/domain"
)

const (
	ContextUserID  = "user_id"
	ContextIsAdmin = "is_admin"
)

// Claims are issued by the identity service. The subject carries the user id.
type Claims struct {
	IsAdmin bool   `json:"is_admin,omitempty"`
	Role    string `json:"role,omitempty"`
	jwt.RegisteredClaims
}

func (c *Claims) admin() bool {
	return c.IsAdmin || c.Role == "admin"
}

// AuthMiddleware validates the HS256 bearer token and stores the caller on the context.
func AuthMiddleware(secret string) gin.HandlerFunc {
	key := []byte(secret)
	parser := jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))

	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "Authorization header required"})
			return
		}

		raw, ok := strings.CutPrefix(authHeader, "Bearer ")
		if !ok || raw == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "Invalid authorization header format"})
			return
		}

		var claims Claims
		_, err := parser.ParseWithClaims(raw, &claims, func(*jwt.Token) (any, error) {
			return key, nil
		})
		if err != nil || claims.Subject == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "Invalid or expired token"})
			return
		}

		c.Set(ContextUserID, claims.Subject)
		c.Set(ContextIsAdmin, claims.admin())
		c.Next()
	}
}

// ActorFromContext returns the caller stored by AuthMiddleware.
func ActorFromContext(c *gin.Context) (domain.Actor, bool) {
	id := c.GetString(ContextUserID)
	if id == "" {
		return domain.Actor{}, false
	}
	return domain.Actor{ID: id, IsAdmin: c.GetBool(ContextIsAdmin)}, true
}
