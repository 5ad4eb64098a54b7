// Package middleware provides gin middleware for the insights API.
package middleware

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// UserUIDKey is the gin context key carrying the authenticated user's UID.
const UserUIDKey = "user_uid"

// Auth verifies the HS256 bearer token and places the subject UID into the
// request context. The subject must be a valid UUID.
func Auth(jwtSecret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		uid, err := verifyToken(c.GetHeader("Authorization"), jwtSecret)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error":     err.Error(),
				"timestamp": time.Now().UTC(),
			})
			return
		}
		c.Set(UserUIDKey, uid)
		c.Next()
	}
}

// UserUID returns the authenticated user's UID from the gin context.
func UserUID(c *gin.Context) string {
	return c.GetString(UserUIDKey)
}

func verifyToken(header, secret string) (string, error) {
	if header == "" {
		return "", fmt.Errorf("missing authorization header")
	}
	tokenString, ok := strings.CutPrefix(header, "Bearer ")
	if !ok {
		return "", fmt.Errorf("authorization header must use the Bearer scheme")
	}

	claims := &jwt.RegisteredClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return []byte(secret), nil
	})
	if err != nil {
		return "", fmt.Errorf("invalid token: %w", err)
	}
	if !token.Valid {
		return "", fmt.Errorf("invalid or expired token")
	}

	uid, err := uuid.Parse(claims.Subject)
	if err != nil {
		return "", fmt.Errorf("invalid user id in token subject")
	}
	return uid.String(), nil
}
