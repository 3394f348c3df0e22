package utils

import (
	"crypto/subtle"
	"net/http"

	"github.com/gin-gonic/gin"
)

const (
	CSRFCookieName = "csrf_token"
	CSRFHeaderName = "X-CSRF-Token"
)

// IssueCSRFToken sets a fresh double-submit token cookie and returns it.
func IssueCSRFToken(c *gin.Context, secure bool) string {
	token := RandomToken(32)
	c.SetSameSite(http.SameSiteLaxMode)
	// readable by the frontend so it can echo it in the header
	c.SetCookie(CSRFCookieName, token, 24*3600, "/", "", secure, false)
	return token
}

// CSRFMiddleware checks the double-submit token on mutating requests
// authenticated by cookie. Bearer-token clients are not exposed to CSRF.
func CSRFMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		switch c.Request.Method {
		case http.MethodGet, http.MethodHead, http.MethodOptions:
			c.Next()
			return
		}
		if !AuthenticatedViaCookie(c) {
			c.Next()
			return
		}

		cookie, err := c.Cookie(CSRFCookieName)
		header := c.GetHeader(CSRFHeaderName)
		if err != nil || cookie == "" || header == "" ||
			subtle.ConstantTimeCompare([]byte(cookie), []byte(header)) != 1 {
			RespondWithError(c, http.StatusForbidden, "Invalid CSRF token")
			return
		}
		c.Next()
	}
}
