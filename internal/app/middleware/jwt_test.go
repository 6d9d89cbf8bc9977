package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

var testJWT = JWTConfig{
	Secret:         "test-secret",
	Issuer:         "millboard",
	AccessTokenTTL: time.Hour,
	CookieName:     "token",
}

var admin = TokenSubject{UserID: "u1", Username: "admin", Name: "Admin", Role: "admin"}

func TestGenerateAndValidateToken(t *testing.T) {
	token, expiresAt, err := GenerateToken(testJWT, admin)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Hour), expiresAt, 5*time.Second)

	claims, err := ValidateToken(token, testJWT)
	require.NoError(t, err)
	assert.Equal(t, "u1", claims.UserID)
	assert.Equal(t, "admin", claims.Username)
	assert.Equal(t, "admin", claims.Role)
	assert.Equal(t, "u1", claims.Subject)
}

func TestValidateToken_Rejects(t *testing.T) {
	expiredCfg := testJWT
	expiredCfg.AccessTokenTTL = -time.Minute
	expired, _, err := GenerateToken(expiredCfg, admin)
	require.NoError(t, err)

	otherSecret := testJWT
	otherSecret.Secret = "another-secret"
	forged, _, err := GenerateToken(otherSecret, admin)
	require.NoError(t, err)

	otherIssuer := testJWT
	otherIssuer.Issuer = "someone-else"
	foreign, _, err := GenerateToken(otherIssuer, admin)
	require.NoError(t, err)

	anonymous, _, err := GenerateToken(testJWT, TokenSubject{Username: "ghost"})
	require.NoError(t, err)

	tests := []struct {
		name  string
		token string
		want  error
	}{
		{"expired", expired, ErrTokenExpired},
		{"wrong secret", forged, ErrTokenInvalid},
		{"wrong issuer", foreign, ErrTokenInvalid},
		{"no user id", anonymous, ErrTokenInvalid},
		{"garbage", "not.a.token", ErrTokenInvalid},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ValidateToken(tt.token, testJWT)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func protectedRouter(extra ...gin.HandlerFunc) *gin.Engine {
	r := gin.New()
	handlers := append([]gin.HandlerFunc{JWTMiddleware(testJWT)}, extra...)
	handlers = append(handlers, func(c *gin.Context) {
		c.String(http.StatusOK, GetUsername(c))
	})
	r.GET("/api/me", handlers...)
	return r
}

func TestJWTMiddleware(t *testing.T) {
	token, _, err := GenerateToken(testJWT, admin)
	require.NoError(t, err)
	r := protectedRouter()

	t.Run("bearer header", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/me", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "admin", w.Body.String())
	})

	t.Run("cookie", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/me", nil)
		req.AddCookie(&http.Cookie{Name: "token", Value: token})
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("missing", func(t *testing.T) {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/me", nil))
		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Contains(t, w.Body.String(), "UNAUTHORIZED")
	})

	t.Run("malformed header", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/me", nil)
		req.Header.Set("Authorization", "Token "+token)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})
}

func TestRequireRole(t *testing.T) {
	r := protectedRouter(RequireRole("admin"))
	adminToken, _, err := GenerateToken(testJWT, admin)
	require.NoError(t, err)
	userToken, _, err := GenerateToken(testJWT, TokenSubject{UserID: "u2", Username: "clerk", Role: "user"})
	require.NoError(t, err)

	for token, want := range map[string]int{adminToken: http.StatusOK, userToken: http.StatusForbidden} {
		req := httptest.NewRequest(http.MethodGet, "/api/me", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		assert.Equal(t, want, w.Code)
	}
}

func TestPageAuth_RedirectsToLogin(t *testing.T) {
	r := gin.New()
	r.GET("/orders", PageAuth(testJWT), func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/orders", nil))
	assert.Equal(t, http.StatusSeeOther, w.Code)
	assert.Equal(t, "/login?next=/orders", w.Header().Get("Location"))
}

func TestTimeout(t *testing.T) {
	r := gin.New()
	var deadline time.Time
	r.GET("/", Timeout(time.Second), func(c *gin.Context) {
		deadline, _ = c.Request.Context().Deadline()
		c.Status(http.StatusNoContent)
	})
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	assert.WithinDuration(t, time.Now().Add(time.Second), deadline, time.Second)
}
