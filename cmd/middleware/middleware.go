package middleware

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/wb-go/wbf/zlog"
)

// Context keys set by AuthMiddleware for downstream handlers.
const (
	CtxAccountID = "account_id"
	CtxOrgID     = "org_id"
	CtxRole      = "role"
)

func LoggingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		zlog.Logger.Info().
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", c.Writer.Status()).
			Dur("latency", time.Since(start)).
			Msg("request")
	}
}

// AuthMiddleware validates a Bearer HS256 token and resolves the caller's
// account, organization and role into the request context. Token issuance is
// the identity provider's job; this service only verifies.
func AuthMiddleware(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if !strings.HasPrefix(authHeader, "Bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing bearer token"})
			return
		}
		tokenString := strings.TrimPrefix(authHeader, "Bearer ")

		token, err := jwt.Parse(tokenString, func(token *jwt.Token) (any, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, jwt.ErrSignatureInvalid
			}
			return []byte(secret), nil
		})
		if err != nil || !token.Valid {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}

		claims, ok := token.Claims.(jwt.MapClaims)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token claims"})
			return
		}
		accountID, okAccount := claims[CtxAccountID].(float64)
		orgID, okOrg := claims[CtxOrgID].(float64)
		role, okRole := claims[CtxRole].(string)
		if !okAccount || !okOrg || !okRole {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token claims"})
			return
		}

		c.Set(CtxAccountID, int64(accountID))
		c.Set(CtxOrgID, int64(orgID))
		c.Set(CtxRole, role)
		c.Next()
	}
}

// KioskMiddleware gates the trusted check-in route with a static API key.
// Requests through it carry no session identity and bypass registration
// checks, so the key must only be handed to trusted integrations such as
// on-site kiosks.
func KioskMiddleware(apiKey string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if apiKey == "" || c.GetHeader("X-Api-Key") != apiKey {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid api key"})
			return
		}
		c.Next()
	}
}

// IssueToken signs a caller identity for integration tests and local
// tooling.
func IssueToken(secret string, accountID, orgID int64, role string, ttl time.Duration) (string, error) {
	claims := jwt.MapClaims{
		CtxAccountID: accountID,
		CtxOrgID:     orgID,
		CtxRole:      role,
		"exp":        time.Now().Add(ttl).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}
