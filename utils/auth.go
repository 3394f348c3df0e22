// utils/auth.go
package utils

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

const (
	AuthCookieName = "e2s_token"

	ctxUserID     = "userId"
	ctxRole       = "role"
	ctxCookieAuth = "authViaCookie"
)

// BcryptCost is lowered by tests to keep hashing fast.
var BcryptCost = 12

var (
	authMu    sync.RWMutex
	jwtSecret []byte
	tokenTTL  = 24 * time.Hour
)

// ConfigureAuth sets the signing secret and token lifetime.
func ConfigureAuth(secret string, ttl time.Duration, cost int) {
	authMu.Lock()
	defer authMu.Unlock()
	jwtSecret = []byte(secret)
	if ttl > 0 {
		tokenTTL = ttl
	}
	if cost >= bcrypt.MinCost {
		BcryptCost = cost
	}
}

// RandomToken returns n random bytes, URL-safe base64 encoded.
func RandomToken(n int) string {
	key := make([]byte, n)
	if _, err := rand.Read(key); err != nil {
		panic("failed to read random bytes")
	}
	return base64.RawURLEncoding.EncodeToString(key)
}

// Hash password
func HashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), BcryptCost)
	return string(bytes), err
}

// Check password
func CheckPasswordHash(password, hash string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	return err == nil
}

// Generate JWT token
func GenerateToken(subject, role string) (string, error) {
	authMu.RLock()
	secret, ttl := jwtSecret, tokenTTL
	authMu.RUnlock()

	if len(secret) == 0 {
		return "", errors.New("JWT secret not configured")
	}

	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":  subject,
		"role": role,
		"exp":  now.Add(ttl).Unix(),
		"iat":  now.Unix(),
	})
	return token.SignedString(secret)
}

// ParseToken validates a token and returns its subject and role.
func ParseToken(tokenString string) (string, string, error) {
	authMu.RLock()
	secret := jwtSecret
	authMu.RUnlock()

	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return secret, nil
	})
	if err != nil || !token.Valid {
		return "", "", errors.New("invalid token")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return "", "", errors.New("invalid token claims")
	}
	sub, _ := claims["sub"].(string)
	role, _ := claims["role"].(string)
	if sub == "" || role == "" {
		return "", "", errors.New("invalid token claims")
	}
	return sub, role, nil
}

// Auth middleware. Accepts a bearer token or the session cookie.
func AuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString, viaCookie := extractToken(c)
		if tokenString == "" {
			c.AbortWithStatusJSON(401, gin.H{"error": "Authorization header required"})
			return
		}

		sub, role, err := ParseToken(tokenString)
		if err != nil {
			c.AbortWithStatusJSON(401, gin.H{"error": "Invalid token"})
			return
		}

		c.Set(ctxUserID, sub)
		c.Set(ctxRole, role)
		c.Set(ctxCookieAuth, viaCookie)
		c.Next()
	}
}

// OptionalAuth sets the principal when a valid token is present and never aborts.
func OptionalAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if tokenString, viaCookie := extractToken(c); tokenString != "" {
			if sub, role, err := ParseToken(tokenString); err == nil {
				c.Set(ctxUserID, sub)
				c.Set(ctxRole, role)
				c.Set(ctxCookieAuth, viaCookie)
			}
		}
		c.Next()
	}
}

// RequireRole must run after AuthMiddleware.
func RequireRole(roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		role := c.GetString(ctxRole)
		for _, r := range roles {
			if r == role {
				c.Next()
				return
			}
		}
		c.AbortWithStatusJSON(403, gin.H{"error": "Insufficient permissions"})
	}
}

func extractToken(c *gin.Context) (string, bool) {
	if header := c.GetHeader("Authorization"); header != "" {
		if len(header) > 7 && strings.ToUpper(header[0:6]) == "BEARER" {
			return header[7:], false
		}
		return header, false
	}
	if cookie, err := c.Cookie(AuthCookieName); err == nil && cookie != "" {
		return cookie, true
	}
	return "", false
}

// CurrentUserID returns the authenticated principal id.
func CurrentUserID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.GetString(ctxUserID))
	if err != nil {
		return uuid.Nil, false
	}
	return id, true
}

func CurrentRole(c *gin.Context) string {
	return c.GetString(ctxRole)
}

func AuthenticatedViaCookie(c *gin.Context) bool {
	return c.GetBool(ctxCookieAuth)
}

// SetAuthCookie stores the token in an http-only cookie.
func SetAuthCookie(c *gin.Context, token string, secure bool) {
	authMu.RLock()
	ttl := tokenTTL
	authMu.RUnlock()
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(AuthCookieName, token, int(ttl.Seconds()), "/", "", secure, true)
}
