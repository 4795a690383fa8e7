// Package auth authenticates HTTP requests with HS256 bearer tokens.
// The token's subject claim identifies the calling user; handlers read
// it back through UserID.
package auth

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"github.com/critfumble/encounter-api/internal/errors"
)

const userIDKey = "auth.userID"

// UserID returns the authenticated user's ID set by Middleware.
func UserID(c *gin.Context) (string, bool) {
	id, ok := c.Get(userIDKey)
	if !ok {
		return "", false
	}
	s, ok := id.(string)
	return s, ok && s != ""
}

func bearerToken(header string) (string, bool) {
	parts := strings.Fields(header)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return "", false
	}
	return parts[1], true
}

func authenticate(token, secret string) (string, error) {
	if strings.TrimSpace(secret) == "" {
		return "", errors.Internal("token secret not configured")
	}

	parser := jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	claims := &jwt.RegisteredClaims{}
	parsed, err := parser.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		return []byte(secret), nil
	})
	if err != nil {
		return "", errors.WrapWithCode(err, errors.CodeUnauthenticated, "invalid token")
	}
	if !parsed.Valid {
		return "", errors.Unauthenticated("invalid token")
	}
	if claims.Subject == "" {
		return "", errors.Unauthenticated("subject claim required")
	}
	return claims.Subject, nil
}

// Middleware rejects requests without a valid bearer token and stores
// the token subject in the request context.
func Middleware(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := strings.TrimSpace(c.GetHeader("Authorization"))
		if header == "" {
			abort(c, errors.Unauthenticated("authentication required"))
			return
		}

		token, ok := bearerToken(header)
		if !ok {
			abort(c, errors.Unauthenticated("invalid credentials"))
			return
		}

		userID, err := authenticate(token, secret)
		if err != nil {
			abort(c, err)
			return
		}

		c.Set(userIDKey, userID)
		c.Next()
	}
}

func abort(c *gin.Context, err error) {
	code := errors.GetCode(err)
	c.AbortWithStatusJSON(code.HTTPStatus(), gin.H{
		"error": gin.H{
			"code":    string(code),
			"message": errors.GetMessage(err),
		},
	})
}
