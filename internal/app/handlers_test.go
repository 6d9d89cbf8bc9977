package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/ak/millboard/internal/app/middleware"
	"github.com/ak/millboard/internal/domain/models"
	"github.com/ak/millboard/internal/pkg/logger"
	"github.com/ak/millboard/internal/testutil"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type testServer struct {
	repos   *testutil.Repos
	handler http.Handler
	app     *Application
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	cfg := testutil.Config()
	repos := testutil.NewRepos()
	svc := NewServices(repos.Provider(), testutil.NewMemoryImages(), cfg, logger.Nop())

	application, err := NewWithServices(cfg, logger.Nop(), svc, func(context.Context) error { return nil })
	require.NoError(t, err)
	return &testServer{repos: repos, handler: application.Router(), app: application}
}

func (s *testServer) tokenFor(t *testing.T, user *models.User) string {
	t.Helper()
	token, _, err := middleware.GenerateToken(s.app.jwtConfig, middleware.TokenSubject{
		UserID:   user.ID.Hex(),
		Username: user.Username,
		Name:     user.Name,
		Role:     string(user.Role),
	})
	require.NoError(t, err)
	return token
}

func (s *testServer) seedAdmin(t *testing.T, password string) (*models.User, string) {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	admin := s.repos.SeedUser(t, "admin", models.RoleAdmin, string(hash))
	return admin, s.tokenFor(t, admin)
}

func TestHealth(t *testing.T) {
	s := newTestServer(t)
	w := testutil.DoRequest(s.handler, http.MethodGet, "/health", nil, "")
	assert.Equal(t, http.StatusOK, w.Code)

	w = testutil.DoRequest(s.handler, http.MethodGet, "/ready", nil, "")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestAPIRequiresToken(t *testing.T) {
	s := newTestServer(t)
	for _, path := range []string{"/api/orders", "/api/dashboard", "/api/auth/me"} {
		w := testutil.DoRequest(s.handler, http.MethodGet, path, nil, "")
		assert.Equal(t, http.StatusUnauthorized, w.Code, path)
	}
}

func TestLoginFlow(t *testing.T) {
	s := newTestServer(t)
	s.seedAdmin(t, "secret123")

	w := testutil.DoRequest(s.handler, http.MethodPost, "/api/auth/login",
		LoginRequest{Username: "admin", Password: "wrong-pass"}, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "Invalid username or password", testutil.ErrorMessage(t, w))

	w = testutil.DoRequest(s.handler, http.MethodPost, "/api/auth/login",
		LoginRequest{Username: "admin", Password: "secret123"}, "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	data := testutil.ParseResponse(t, w)["data"].(map[string]interface{})
	token, _ := data["token"].(string)
	require.NotEmpty(t, token)
	assert.NotContains(t, w.Body.String(), "password_hash")

	var cookie *http.Cookie
	for _, c := range w.Result().Cookies() {
		if c.Name == "token" {
			cookie = c
		}
	}
	require.NotNil(t, cookie, "login sets the page cookie")
	assert.Equal(t, token, cookie.Value)

	w = testutil.DoRequest(s.handler, http.MethodGet, "/api/auth/me", nil, token)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"username":"admin"`)
}

func TestQualityUpdateCollision(t *testing.T) {
	s := newTestServer(t)
	_, token := s.seedAdmin(t, "secret123")
	s.repos.SeedQuality(t, "Cotton Satin")
	poplin := s.repos.SeedQuality(t, "Poplin")

	w := testutil.DoRequest(s.handler, http.MethodPut, "/api/qualities/"+poplin.ID.Hex(),
		map[string]string{"name": "cotton satin"}, token)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "A quality with this name already exists", testutil.ErrorMessage(t, w))
}

func TestQualityDeleteInUse(t *testing.T) {
	s := newTestServer(t)
	_, token := s.seedAdmin(t, "secret123")
	quality := s.repos.SeedQuality(t, "Twill")
	s.repos.SeedOrder(t, "ORD-0001", s.repos.SeedParty(t, "Acme"), quality)

	w := testutil.DoRequest(s.handler, http.MethodDelete, "/api/qualities/"+quality.ID.Hex(), nil, token)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	resp := testutil.ParseResponse(t, w)
	apiErr := resp["error"].(map[string]interface{})
	assert.Equal(t, "IN_USE", apiErr["code"])
	assert.Equal(t, map[string]interface{}{"count": float64(1)}, apiErr["details"])
}

func TestUserSelfDelete(t *testing.T) {
	s := newTestServer(t)
	admin, token := s.seedAdmin(t, "secret123")

	w := testutil.DoRequest(s.handler, http.MethodDelete, "/api/users/"+admin.ID.Hex(), nil, token)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "You cannot delete your own account", testutil.ErrorMessage(t, w))
}

func TestUsersAreAdminOnly(t *testing.T) {
	s := newTestServer(t)
	staff := s.repos.SeedUser(t, "clerk", models.RoleStaff, "x")

	w := testutil.DoRequest(s.handler, http.MethodGet, "/api/users", nil, s.tokenFor(t, staff))
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestListPagination(t *testing.T) {
	s := newTestServer(t)
	_, token := s.seedAdmin(t, "secret123")
	for i := 0; i < 12; i++ {
		s.repos.SeedParty(t, fmt.Sprintf("Party %02d", i))
	}

	w := testutil.DoRequest(s.handler, http.MethodGet, "/api/parties?page=2&sort=name&order=desc", nil, token)
	require.Equal(t, http.StatusOK, w.Code)
	resp := testutil.ParseResponse(t, w)
	meta := resp["meta"].(map[string]interface{})
	assert.Equal(t, float64(12), meta["total"])
	assert.Equal(t, float64(2), meta["total_pages"])
	rows := resp["data"].([]interface{})
	require.Len(t, rows, 2)
	assert.Equal(t, "Party 01", rows[0].(map[string]interface{})["name"])
}

func TestInvalidID(t *testing.T) {
	s := newTestServer(t)
	_, token := s.seedAdmin(t, "secret123")
	w := testutil.DoRequest(s.handler, http.MethodGet, "/api/orders/not-an-id", nil, token)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func pageRequest(h http.Handler, path, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if token != "" {
		req.AddCookie(&http.Cookie{Name: "token", Value: token})
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestPagesRedirectWithoutSession(t *testing.T) {
	s := newTestServer(t)
	w := pageRequest(s.handler, "/orders", "")
	assert.Equal(t, http.StatusSeeOther, w.Code)
	assert.Equal(t, "/login?next=/orders", w.Header().Get("Location"))

	w = pageRequest(s.handler, "/login", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `id="login-form"`)
}

func TestPagesRender(t *testing.T) {
	s := newTestServer(t)
	_, token := s.seedAdmin(t, "secret123")
	party := s.repos.SeedParty(t, "Acme Textiles")
	order := s.repos.SeedOrder(t, "ORD-0001", party, s.repos.SeedQuality(t, "Twill"))

	for _, path := range []string{"/", "/parties", "/qualities", "/orders", "/orders/" + order.ID.Hex(), "/mill-outputs/report"} {
		w := pageRequest(s.handler, path, token)
		assert.Equal(t, http.StatusOK, w.Code, path)
	}

	w := pageRequest(s.handler, "/parties", token)
	assert.Contains(t, w.Body.String(), "Acme Textiles")
}

func TestUsersPageIsAdminOnly(t *testing.T) {
	s := newTestServer(t)
	staff := s.repos.SeedUser(t, "clerk", models.RoleStaff, "x")

	w := pageRequest(s.handler, "/users", s.tokenFor(t, staff))
	assert.Equal(t, http.StatusSeeOther, w.Code)
}

func TestPWAAssets(t *testing.T) {
	s := newTestServer(t)

	w := pageRequest(s.handler, "/sw.js", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "/", w.Header().Get("Service-Worker-Allowed"))
	assert.Contains(t, w.Header().Get("Content-Type"), "javascript")

	w = pageRequest(s.handler, "/manifest.json", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"start_url"`)
}

func TestBindingValidation(t *testing.T) {
	s := newTestServer(t)
	_, token := s.seedAdmin(t, "secret123")
	party := s.repos.SeedParty(t, "Acme")

	tests := []struct {
		name    string
		path    string
		body    interface{}
		token   string
		message string
		field   string
	}{
		{
			name:    "login without password",
			path:    "/api/auth/login",
			body:    map[string]string{"username": "admin"},
			message: "Password is required",
			field:   "password",
		},
		{
			name:    "order without items",
			path:    "/api/orders",
			body:    map[string]interface{}{"party_id": party.ID.Hex(), "order_date": "2024-03-01", "items": []interface{}{}},
			token:   token,
			message: "Items needs at least 1 entry",
			field:   "items",
		},
		{
			name: "order item without quality",
			path: "/api/orders",
			body: map[string]interface{}{
				"party_id":   party.ID.Hex(),
				"order_date": "2024-03-01",
				"items":      []interface{}{map[string]string{"quantity": "10"}},
			},
			token:   token,
			message: "Quality is required",
			field:   "items[0].quality_id",
		},
		{
			name:    "order with unknown status",
			path:    "/api/orders",
			body:    map[string]interface{}{"party_id": party.ID.Hex(), "status": "shipped", "items": []interface{}{map[string]string{"quality_id": "x"}}},
			token:   token,
			message: "Status must be one of pending, in_progress, completed, cancelled",
			field:   "status",
		},
		{
			name:    "party with bad email",
			path:    "/api/parties",
			body:    map[string]string{"name": "Zenith", "email": "sales at zenith"},
			token:   token,
			message: "Email must be a valid email address",
			field:   "email",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := testutil.DoRequest(s.handler, http.MethodPost, tt.path, tt.body, tt.token)
			require.Equal(t, http.StatusBadRequest, w.Code, w.Body.String())
			apiErr := testutil.ParseResponse(t, w)["error"].(map[string]interface{})
			assert.Equal(t, "VALIDATION_ERROR", apiErr["code"])
			assert.Equal(t, tt.message, apiErr["message"])
			assert.Contains(t, apiErr["details"], tt.field)
		})
	}
	assert.Empty(t, s.repos.AuditLogs.Entries(), "rejected bodies never reach a service")
}

func TestAuditLogs(t *testing.T) {
	s := newTestServer(t)
	_, token := s.seedAdmin(t, "secret123")

	w := testutil.DoRequest(s.handler, http.MethodPost, "/api/qualities", map[string]string{"name": "Twill"}, token)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	quality := testutil.ParseResponse(t, w)["data"].(map[string]interface{})
	w = testutil.DoRequest(s.handler, http.MethodPost, "/api/parties", map[string]string{"name": "Acme"}, token)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = testutil.DoRequest(s.handler, http.MethodGet, "/api/audit-logs", nil, token)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	resp := testutil.ParseResponse(t, w)
	assert.Equal(t, float64(2), resp["meta"].(map[string]interface{})["total"])

	w = testutil.DoRequest(s.handler, http.MethodGet,
		"/api/audit-logs?resource_type=quality&resource_id="+quality["id"].(string), nil, token)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	rows := testutil.ParseResponse(t, w)["data"].([]interface{})
	require.Len(t, rows, 1)
	entry := rows[0].(map[string]interface{})
	assert.Equal(t, "create", entry["action"])
	assert.Equal(t, "admin", entry["username"])

	w = testutil.DoRequest(s.handler, http.MethodGet, "/api/audit-logs?resource_id="+quality["id"].(string), nil, token)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	staff := s.repos.SeedUser(t, "clerk", models.RoleStaff, "x")
	w = testutil.DoRequest(s.handler, http.MethodGet, "/api/audit-logs", nil, s.tokenFor(t, staff))
	assert.Equal(t, http.StatusForbidden, w.Code)

	page := pageRequest(s.handler, "/audit?status=quality", token)
	require.Equal(t, http.StatusOK, page.Code)
	assert.Contains(t, page.Body.String(), quality["id"].(string))
	assert.NotContains(t, page.Body.String(), `data-action="create"`)
	assert.NotContains(t, page.Body.String(), `data-action="delete"`)

	page = pageRequest(s.handler, "/audit", s.tokenFor(t, staff))
	assert.Equal(t, http.StatusSeeOther, page.Code)
}

func TestUsersPageDisablesSelfDelete(t *testing.T) {
	s := newTestServer(t)
	admin, token := s.seedAdmin(t, "secret123")
	s.repos.SeedUser(t, "clerk", models.RoleStaff, "x")

	w := pageRequest(s.handler, "/users", token)
	require.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()

	assert.Equal(t, 1, strings.Count(body, `data-self="true"`), "only the signed-in admin's row")
	assert.Equal(t, 1, strings.Count(body, `data-action="delete"`), "the other user keeps a delete action")
	assert.Contains(t, body, `disabled title="You cannot delete your own account"`)
	assert.Contains(t, body, admin.ID.Hex())
}

func TestHandleErrorTimeout(t *testing.T) {
	s := newTestServer(t)
	tests := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"deadline", fmt.Errorf("failed to list orders: %w", context.DeadlineExceeded), http.StatusGatewayTimeout, "TIMEOUT"},
		{"storage failure", errors.New("connection refused"), http.StatusInternalServerError, "INTERNAL_ERROR"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)
			c.Request = httptest.NewRequest(http.MethodGet, "/api/orders", nil)

			s.app.handleError(c, tt.err)

			assert.Equal(t, tt.status, w.Code)
			apiErr := testutil.ParseResponse(t, w)["error"].(map[string]interface{})
			assert.Equal(t, tt.code, apiErr["code"])
			assert.NotContains(t, w.Body.String(), "connection refused")
		})
	}
}
