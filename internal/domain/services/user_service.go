package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/ak/millboard/internal/domain/models"
	"github.com/ak/millboard/internal/domain/repositories"
	apperrors "github.com/ak/millboard/internal/pkg/errors"
	"github.com/ak/millboard/internal/pkg/phone"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"golang.org/x/crypto/bcrypt"
)

// passwordCost is lowered in tests
var passwordCost = bcrypt.DefaultCost

// UserService handles user accounts and password authentication
type UserService interface {
	Create(ctx context.Context, actor Actor, req UserRequest) (*models.User, error)
	GetByID(ctx context.Context, id primitive.ObjectID) (*models.User, error)
	Update(ctx context.Context, actor Actor, id primitive.ObjectID, req UserRequest) (*models.User, error)
	Delete(ctx context.Context, actor Actor, id primitive.ObjectID) error
	List(ctx context.Context, filter repositories.ListFilter) ([]*models.User, int64, error)
	// Authenticate checks credentials and records the login time
	Authenticate(ctx context.Context, username, password string) (*models.User, error)
	// EnsureAdmin creates an admin account. A taken username is an
	// AlreadyExists error.
	EnsureAdmin(ctx context.Context, name, username, password string) (*models.User, error)
}

type UserRequest struct {
	Name     string          `json:"name" binding:"required"`
	Username string          `json:"username" binding:"required"`
	Password string          `json:"password"`
	Role     models.UserRole `json:"role" binding:"omitempty,oneof=admin manager staff"`
	Email    string          `json:"email" binding:"omitempty,email"`
	Phone    string          `json:"phone"`
	IsActive *bool           `json:"is_active"`
}

const (
	msgUserExists       = "A user with this username already exists"
	msgInvalidLogin     = "Invalid username or password"
	resourceUser        = "user"
	minUsernameLength   = 3
	maxUsernameLength   = 50
	maxPasswordByteSize = 72 // bcrypt ignores the rest
)

type userService struct {
	userRepo repositories.UserRepository
	auditor  *Auditor
	region   string
	now      func() time.Time
}

func NewUserService(userRepo repositories.UserRepository, auditor *Auditor, region string) UserService {
	return &userService{
		userRepo: userRepo,
		auditor:  auditor,
		region:   region,
		now:      time.Now,
	}
}

func validatePassword(password string) error {
	if len([]rune(password)) < models.MinPasswordLength {
		return apperrors.Validation(fmt.Sprintf("Password must be at least %d characters", models.MinPasswordLength))
	}
	if len(password) > maxPasswordByteSize {
		return apperrors.Validation(fmt.Sprintf("Password cannot exceed %d bytes", maxPasswordByteSize))
	}
	return nil
}

func hashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), passwordCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hash), nil
}

// apply validates req and copies it onto user. Password handling is left
// to the caller.
func (s *userService) apply(user *models.User, req UserRequest) error {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return apperrors.Validation("Name is required")
	}
	if err := validateLength(name, "Name", 2, 100); err != nil {
		return err
	}

	username := strings.ToLower(strings.TrimSpace(req.Username))
	if username == "" {
		return apperrors.Validation("Username is required")
	}
	if err := validateLength(username, "Username", minUsernameLength, maxUsernameLength); err != nil {
		return err
	}
	if strings.ContainsAny(username, " \t") {
		return apperrors.Validation("Username cannot contain spaces")
	}

	role := req.Role
	if role == "" {
		role = user.Role
	}
	if role == "" {
		role = models.RoleStaff
	}
	if !role.Valid() {
		return apperrors.Validation("Role must be one of admin, manager, staff")
	}

	email, err := normalizeEmail(req.Email)
	if err != nil {
		return err
	}

	number, err := phone.Normalize(req.Phone, s.region)
	if err != nil {
		return apperrors.Validation("Invalid phone number")
	}

	user.Name = name
	user.Username = username
	user.Role = role
	user.Email = email
	user.Phone = number
	if req.IsActive != nil {
		user.IsActive = *req.IsActive
	}
	return nil
}

func (s *userService) Create(ctx context.Context, actor Actor, req UserRequest) (*models.User, error) {
	// Checked before anything touches the repository
	if err := validatePassword(req.Password); err != nil {
		return nil, err
	}

	user := &models.User{IsActive: true}
	if err := s.apply(user, req); err != nil {
		return nil, err
	}

	existing, err := s.userRepo.GetByUsername(ctx, user.Username)
	if err != nil {
		return nil, fmt.Errorf("failed to check username: %w", err)
	}
	if existing != nil {
		return nil, apperrors.AlreadyExists(msgUserExists)
	}

	if user.PasswordHash, err = hashPassword(req.Password); err != nil {
		return nil, err
	}

	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, conflictOr(err, msgUserExists, "create user")
	}

	s.auditor.Record(ctx, actor, AuditCreate, resourceUser, user.ID.Hex(), nil, user)
	return user, nil
}

func (s *userService) GetByID(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
	user, err := s.userRepo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	if user == nil {
		return nil, apperrors.NotFound("User")
	}
	return user, nil
}

func (s *userService) Update(ctx context.Context, actor Actor, id primitive.ObjectID, req UserRequest) (*models.User, error) {
	if req.Password != "" {
		if err := validatePassword(req.Password); err != nil {
			return nil, err
		}
	}

	user, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	before := *user

	if err := s.apply(user, req); err != nil {
		return nil, err
	}
	if actor.UserID == id {
		if user.Role != models.RoleAdmin && before.Role == models.RoleAdmin {
			return nil, apperrors.Validation("You cannot remove your own admin role")
		}
		if !user.IsActive {
			return nil, apperrors.Validation("You cannot deactivate your own account")
		}
	}

	if user.Username != before.Username {
		other, err := s.userRepo.GetByUsername(ctx, user.Username)
		if err != nil {
			return nil, fmt.Errorf("failed to check username: %w", err)
		}
		if other != nil && other.ID != id {
			return nil, apperrors.AlreadyExists(msgUserExists)
		}
	}

	if req.Password != "" {
		if user.PasswordHash, err = hashPassword(req.Password); err != nil {
			return nil, err
		}
	}

	if err := s.userRepo.Update(ctx, user); err != nil {
		return nil, conflictOr(err, msgUserExists, "update user")
	}

	s.auditor.Record(ctx, actor, AuditUpdate, resourceUser, id.Hex(), before, user)
	return user, nil
}

func (s *userService) Delete(ctx context.Context, actor Actor, id primitive.ObjectID) error {
	if actor.UserID == id {
		return apperrors.Validation("You cannot delete your own account")
	}

	user, err := s.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if err := s.userRepo.Delete(ctx, id); err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}

	s.auditor.Record(ctx, actor, AuditDelete, resourceUser, id.Hex(), user, nil)
	return nil
}

func (s *userService) List(ctx context.Context, filter repositories.ListFilter) ([]*models.User, int64, error) {
	users, total, err := s.userRepo.List(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list users: %w", err)
	}
	return users, total, nil
}

func (s *userService) Authenticate(ctx context.Context, username, password string) (*models.User, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return nil, apperrors.Validation("Username and password are required")
	}

	user, err := s.userRepo.GetByUsername(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	if user == nil {
		return nil, apperrors.Unauthorized(msgInvalidLogin)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, apperrors.Unauthorized(msgInvalidLogin)
	}
	if !user.IsActive {
		return nil, apperrors.Forbidden("Account is disabled")
	}

	at := s.now()
	if err := s.userRepo.TouchLogin(ctx, user.ID, at); err != nil {
		return nil, fmt.Errorf("failed to record login: %w", err)
	}
	user.LastLoginAt = &at
	return user, nil
}

func (s *userService) EnsureAdmin(ctx context.Context, name, username, password string) (*models.User, error) {
	return s.Create(ctx, Actor{Username: "cli"}, UserRequest{
		Name:     name,
		Username: username,
		Password: password,
		Role:     models.RoleAdmin,
	})
}
