package middleware

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrTokenExpired = errors.New("token has expired")
	ErrTokenInvalid = errors.New("invalid token")
)

const (
	ctxClaims   = "claims"
	ctxUserID   = "user_id"
	ctxUsername = "username"
	ctxRole     = "role"
)

// JWTClaims represents the JWT token claims
type JWTClaims struct {
	UserID   string `json:"user_id"`
	Username string `json:"username"`
	Name     string `json:"name"`
	Role     string `json:"role"`
	jwt.RegisteredClaims
}

// JWTConfig holds JWT middleware configuration
type JWTConfig struct {
	Secret         string
	Issuer         string
	AccessTokenTTL time.Duration
	CookieName     string
}

// TokenSubject is the identity a token is issued for
type TokenSubject struct {
	UserID   string
	Username string
	Name     string
	Role     string
}

// GenerateToken creates a new signed access token
func GenerateToken(config JWTConfig, subject TokenSubject) (string, time.Time, error) {
	now := time.Now()
	expiresAt := now.Add(config.AccessTokenTTL)
	claims := JWTClaims{
		UserID:   subject.UserID,
		Username: subject.Username,
		Name:     subject.Name,
		Role:     subject.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			Issuer:    config.Issuer,
			Subject:   subject.UserID,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(config.Secret))
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, expiresAt, nil
}

// ValidateToken validates a JWT token and returns the claims
func ValidateToken(tokenString string, config JWTConfig) (*JWTClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &JWTClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return []byte(config.Secret), nil
	}, jwt.WithIssuer(config.Issuer))

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrTokenInvalid
	}

	claims, ok := token.Claims.(*JWTClaims)
	if !ok || !token.Valid || claims.UserID == "" {
		return nil, ErrTokenInvalid
	}

	return claims, nil
}

// tokenFromRequest reads a bearer token, falling back to the session cookie
func tokenFromRequest(c *gin.Context, cookieName string) string {
	if authHeader := c.GetHeader("Authorization"); authHeader != "" {
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "bearer") {
			return strings.TrimSpace(parts[1])
		}
		return ""
	}
	if cookieName == "" {
		return ""
	}
	if token, err := c.Cookie(cookieName); err == nil {
		return token
	}
	return ""
}

func setClaims(c *gin.Context, claims *JWTClaims) {
	c.Set(ctxClaims, claims)
	c.Set(ctxUserID, claims.UserID)
	c.Set(ctxUsername, claims.Username)
	c.Set(ctxRole, claims.Role)
}

// JWTMiddleware rejects API requests without a valid token
func JWTMiddleware(config JWTConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString := tokenFromRequest(c, config.CookieName)
		if tokenString == "" {
			abortJSON(c, http.StatusUnauthorized, "UNAUTHORIZED", "Authentication required")
			return
		}

		claims, err := ValidateToken(tokenString, config)
		if err != nil {
			code := "TOKEN_INVALID"
			if errors.Is(err, ErrTokenExpired) {
				code = "TOKEN_EXPIRED"
			}
			abortJSON(c, http.StatusUnauthorized, code, err.Error())
			return
		}

		setClaims(c, claims)
		c.Next()
	}
}

// PageAuth is JWTMiddleware for HTML pages: failures redirect to /login
func PageAuth(config JWTConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString := tokenFromRequest(c, config.CookieName)
		claims, err := ValidateToken(tokenString, config)
		if tokenString == "" || err != nil {
			target := "/login"
			if c.Request.URL.Path != "/" {
				target += "?next=" + c.Request.URL.Path
			}
			c.Redirect(http.StatusSeeOther, target)
			c.Abort()
			return
		}

		setClaims(c, claims)
		c.Next()
	}
}

// RequireRole creates a middleware that checks for required roles
func RequireRole(roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		role := GetRole(c)
		if role == "" {
			abortJSON(c, http.StatusUnauthorized, "UNAUTHORIZED", "Authentication required")
			return
		}

		for _, required := range roles {
			if role == required {
				c.Next()
				return
			}
		}

		abortJSON(c, http.StatusForbidden, "FORBIDDEN", "Insufficient permissions")
	}
}

// GetUserID extracts user ID from context
func GetUserID(c *gin.Context) string {
	return c.GetString(ctxUserID)
}

// GetUsername extracts the username from context
func GetUsername(c *gin.Context) string {
	return c.GetString(ctxUsername)
}

// GetRole extracts the role from context
func GetRole(c *gin.Context) string {
	return c.GetString(ctxRole)
}

// GetClaims extracts JWT claims from context
func GetClaims(c *gin.Context) *JWTClaims {
	if claims, exists := c.Get(ctxClaims); exists {
		if jwtClaims, ok := claims.(*JWTClaims); ok {
			return jwtClaims
		}
	}
	return nil
}

// abortJSON writes the API error envelope
func abortJSON(c *gin.Context, status int, code, message string) {
	c.AbortWithStatusJSON(status, gin.H{
		"success": false,
		"error": gin.H{
			"code":    code,
			"message": message,
		},
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}
