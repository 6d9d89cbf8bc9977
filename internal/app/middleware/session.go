package middleware

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// CookieConfig controls the token cookie used by HTML pages
type CookieConfig struct {
	Name     string
	Secure   bool
	HTTPOnly bool
}

// SetTokenCookie stores the access token for page requests
func SetTokenCookie(c *gin.Context, config CookieConfig, token string, expiresAt time.Time) {
	maxAge := int(time.Until(expiresAt).Seconds())
	if maxAge < 0 {
		maxAge = 0
	}
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(config.Name, token, maxAge, "/", "", config.Secure, config.HTTPOnly)
}

// ClearTokenCookie expires the token cookie
func ClearTokenCookie(c *gin.Context, config CookieConfig) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(config.Name, "", -1, "/", "", config.Secure, config.HTTPOnly)
}
