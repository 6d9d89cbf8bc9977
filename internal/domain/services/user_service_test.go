package services

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/ak/millboard/internal/domain/models"
	"github.com/ak/millboard/internal/domain/repositories"
	"github.com/ak/millboard/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"golang.org/x/crypto/bcrypt"
)

// spyUserRepo counts every repository call
type spyUserRepo struct {
	calls int
}

func (s *spyUserRepo) Create(context.Context, *models.User) error { s.calls++; return nil }
func (s *spyUserRepo) GetByID(context.Context, primitive.ObjectID) (*models.User, error) {
	s.calls++
	return nil, nil
}
func (s *spyUserRepo) GetByUsername(context.Context, string) (*models.User, error) {
	s.calls++
	return nil, nil
}
func (s *spyUserRepo) Update(context.Context, *models.User) error       { s.calls++; return nil }
func (s *spyUserRepo) Delete(context.Context, primitive.ObjectID) error { s.calls++; return nil }
func (s *spyUserRepo) List(context.Context, repositories.ListFilter) ([]*models.User, int64, error) {
	s.calls++
	return nil, 0, nil
}
func (s *spyUserRepo) TouchLogin(context.Context, primitive.ObjectID, time.Time) error {
	s.calls++
	return nil
}

func hashed(t *testing.T, password string) string {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	return string(hash)
}

func TestUserService_ShortPasswordRejectedBeforeRepository(t *testing.T) {
	spy := &spyUserRepo{}
	svc := NewUserService(spy, nil, "IN")

	_, err := svc.Create(context.Background(), testActor, UserRequest{
		Name:     "Asha",
		Username: "asha",
		Password: "12345",
	})
	requireAPIError(t, err, http.StatusBadRequest, "Password must be at least 6 characters")
	assert.Zero(t, spy.calls)
}

func TestUserService_ShortPasswordOnUpdateRejectedBeforeRepository(t *testing.T) {
	spy := &spyUserRepo{}
	svc := NewUserService(spy, nil, "IN")

	_, err := svc.Update(context.Background(), testActor, primitive.NewObjectID(), UserRequest{
		Name:     "Asha",
		Username: "asha",
		Password: "abc",
	})
	requireAPIError(t, err, http.StatusBadRequest, "")
	assert.Zero(t, spy.calls)
}

func TestUserService_CreateNormalizes(t *testing.T) {
	repos := testutil.NewRepos()
	svc := NewUserService(repos.Users, NewAuditor(repos.AuditLogs, nil), "IN")

	user, err := svc.Create(context.Background(), testActor, UserRequest{
		Name:     " Asha Rao ",
		Username: " Asha ",
		Password: "secret1",
		Email:    "Asha@Example.com",
		Phone:    "98765 43210",
	})
	require.NoError(t, err)
	assert.Equal(t, "Asha Rao", user.Name)
	assert.Equal(t, "asha", user.Username)
	assert.Equal(t, models.RoleStaff, user.Role)
	assert.Equal(t, "asha@example.com", user.Email)
	assert.Equal(t, "+919876543210", user.Phone)
	assert.True(t, user.IsActive)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte("secret1")))
	assert.Len(t, repos.AuditLogs.Entries(), 1)
}

func TestUserService_CreateDuplicateUsername(t *testing.T) {
	repos := testutil.NewRepos()
	repos.SeedUser(t, "asha", models.RoleStaff, hashed(t, "secret1"))
	svc := NewUserService(repos.Users, nil, "IN")

	_, err := svc.Create(context.Background(), testActor, UserRequest{Name: "Asha", Username: "ASHA", Password: "secret1"})
	requireAPIError(t, err, http.StatusBadRequest, "A user with this username already exists")
}

func TestUserService_InvalidFields(t *testing.T) {
	svc := NewUserService(testutil.NewRepos().Users, nil, "IN")

	tests := []struct {
		name string
		req  UserRequest
		msg  string
	}{
		{"username with space", UserRequest{Name: "Asha", Username: "asha rao", Password: "secret1"}, "Username cannot contain spaces"},
		{"bad role", UserRequest{Name: "Asha", Username: "asha", Password: "secret1", Role: "owner"}, "Role must be one of admin, manager, staff"},
		{"bad email", UserRequest{Name: "Asha", Username: "asha", Password: "secret1", Email: "not-an-email"}, "Invalid email address"},
		{"bad phone", UserRequest{Name: "Asha", Username: "asha", Password: "secret1", Phone: "12"}, "Invalid phone number"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Create(context.Background(), testActor, tt.req)
			requireAPIError(t, err, http.StatusBadRequest, tt.msg)
		})
	}
}

func TestUserService_SelfDeleteRejected(t *testing.T) {
	repos := testutil.NewRepos()
	admin := repos.SeedUser(t, "root", models.RoleAdmin, hashed(t, "secret1"))
	svc := NewUserService(repos.Users, nil, "IN")

	err := svc.Delete(context.Background(), Actor{UserID: admin.ID, Role: models.RoleAdmin}, admin.ID)
	requireAPIError(t, err, http.StatusBadRequest, "You cannot delete your own account")

	stored, err := repos.Users.GetByID(context.Background(), admin.ID)
	require.NoError(t, err)
	assert.NotNil(t, stored)
}

func TestUserService_DeleteOther(t *testing.T) {
	repos := testutil.NewRepos()
	admin := repos.SeedUser(t, "root", models.RoleAdmin, hashed(t, "secret1"))
	staff := repos.SeedUser(t, "asha", models.RoleStaff, hashed(t, "secret1"))
	svc := NewUserService(repos.Users, nil, "IN")

	require.NoError(t, svc.Delete(context.Background(), Actor{UserID: admin.ID, Role: models.RoleAdmin}, staff.ID))
	stored, err := repos.Users.GetByID(context.Background(), staff.ID)
	require.NoError(t, err)
	assert.Nil(t, stored)
}

func TestUserService_UpdateKeepsRoleWhenOmitted(t *testing.T) {
	repos := testutil.NewRepos()
	manager := repos.SeedUser(t, "meera", models.RoleManager, hashed(t, "secret1"))
	svc := NewUserService(repos.Users, nil, "IN")

	updated, err := svc.Update(context.Background(), testActor, manager.ID, UserRequest{Name: "Meera K", Username: "meera"})
	require.NoError(t, err)
	assert.Equal(t, models.RoleManager, updated.Role)
	assert.Equal(t, "Meera K", updated.Name)
}

func TestUserService_CannotDemoteSelf(t *testing.T) {
	repos := testutil.NewRepos()
	admin := repos.SeedUser(t, "root", models.RoleAdmin, hashed(t, "secret1"))
	svc := NewUserService(repos.Users, nil, "IN")

	_, err := svc.Update(context.Background(), Actor{UserID: admin.ID, Role: models.RoleAdmin}, admin.ID,
		UserRequest{Name: "root", Username: "root", Role: models.RoleStaff})
	requireAPIError(t, err, http.StatusBadRequest, "You cannot remove your own admin role")
}

func TestUserService_Authenticate(t *testing.T) {
	repos := testutil.NewRepos()
	repos.SeedUser(t, "asha", models.RoleStaff, hashed(t, "secret1"))
	inactive := repos.SeedUser(t, "gone", models.RoleStaff, hashed(t, "secret1"))
	inactive.IsActive = false
	require.NoError(t, repos.Users.Update(context.Background(), inactive))
	svc := NewUserService(repos.Users, nil, "IN")

	user, err := svc.Authenticate(context.Background(), "ASHA", "secret1")
	require.NoError(t, err)
	require.NotNil(t, user.LastLoginAt)

	stored, err := repos.Users.GetByID(context.Background(), user.ID)
	require.NoError(t, err)
	assert.NotNil(t, stored.LastLoginAt)

	_, err = svc.Authenticate(context.Background(), "asha", "wrong-password")
	requireAPIError(t, err, http.StatusUnauthorized, "Invalid username or password")

	_, err = svc.Authenticate(context.Background(), "nobody", "secret1")
	requireAPIError(t, err, http.StatusUnauthorized, "Invalid username or password")

	_, err = svc.Authenticate(context.Background(), "gone", "secret1")
	requireAPIError(t, err, http.StatusForbidden, "Account is disabled")
}

func TestUserService_EnsureAdmin(t *testing.T) {
	repos := testutil.NewRepos()
	svc := NewUserService(repos.Users, nil, "IN")

	admin, err := svc.EnsureAdmin(context.Background(), "Owner", "owner", "secret123")
	require.NoError(t, err)
	assert.Equal(t, models.RoleAdmin, admin.Role)
	assert.True(t, admin.IsActive)

	logged, err := svc.Authenticate(context.Background(), "owner", "secret123")
	require.NoError(t, err)
	assert.Equal(t, admin.ID, logged.ID)

	_, err = svc.EnsureAdmin(context.Background(), "Owner", "owner", "secret123")
	requireAPIError(t, err, http.StatusBadRequest, msgUserExists)
}
