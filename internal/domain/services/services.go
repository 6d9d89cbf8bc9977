package services

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/ak/millboard/internal/domain/models"
	"github.com/ak/millboard/internal/domain/repositories"
	apperrors "github.com/ak/millboard/internal/pkg/errors"
	"github.com/ak/millboard/internal/pkg/logger"
	"github.com/go-playground/validator/v10"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Actor identifies who performs a mutating operation
type Actor struct {
	UserID   primitive.ObjectID
	Username string
	Role     models.UserRole
	IP       string
}

// IsAdmin reports whether the actor holds the admin role
func (a Actor) IsAdmin() bool {
	return a.Role == models.RoleAdmin
}

const (
	AuditCreate = "create"
	AuditUpdate = "update"
	AuditDelete = "delete"
)

// Auditor writes audit log entries for mutations. A failed write is logged
// and swallowed because the mutation itself already succeeded.
type Auditor struct {
	repo   repositories.AuditLogRepository
	logger *logger.Logger
}

func NewAuditor(repo repositories.AuditLogRepository, log *logger.Logger) *Auditor {
	if log == nil {
		log = logger.Nop()
	}
	return &Auditor{repo: repo, logger: log.WithComponent("audit")}
}

func (a *Auditor) Record(ctx context.Context, actor Actor, action, resourceType, resourceID string, oldValue, newValue any) {
	if a == nil || a.repo == nil {
		return
	}
	entry := &repositories.AuditLog{
		UserID:       actor.UserID.Hex(),
		Username:     actor.Username,
		Action:       action,
		ResourceType: resourceType,
		ResourceID:   resourceID,
		OldValue:     oldValue,
		NewValue:     newValue,
		IPAddress:    actor.IP,
	}
	if err := a.repo.Create(ctx, entry); err != nil {
		a.logger.Error("Failed to write audit log",
			zap.String("action", action),
			zap.String("resource_type", resourceType),
			zap.String("resource_id", resourceID),
			zap.Error(err))
	}
}

// Invalidator is notified after writes that change cached views
type Invalidator interface {
	Invalidate()
}

type noopInvalidator struct{}

func (noopInvalidator) Invalidate() {}

func invalidatorOrNoop(inv Invalidator) Invalidator {
	if inv == nil {
		return noopInvalidator{}
	}
	return inv
}

// validateLength checks the rune length of an already trimmed value
func validateLength(value, label string, min, max int) error {
	n := utf8.RuneCountInString(value)
	if n < min || (max > 0 && n > max) {
		if max > 0 {
			return apperrors.Validation(fmt.Sprintf("%s must be between %d and %d characters", label, min, max))
		}
		return apperrors.Validation(fmt.Sprintf("%s must be at least %d characters", label, min))
	}
	return nil
}

// fieldCheck runs single-value validator tags for callers that bypass HTTP
// binding, such as the CLI
var fieldCheck = validator.New()

// normalizeEmail lowercases and trims an optional email address
func normalizeEmail(email string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return "", nil
	}
	if err := fieldCheck.Var(email, "email"); err != nil {
		return "", apperrors.Validation("Invalid email address")
	}
	return email, nil
}

// conflictOr turns a duplicate-key error from a racing insert into the same
// 400 the pre-check returns; other errors pass through wrapped.
func conflictOr(err error, message, op string) error {
	if mongo.IsDuplicateKeyError(err) {
		return apperrors.AlreadyExists(message)
	}
	return fmt.Errorf("failed to %s: %w", op, err)
}

func parseObjectID(hex, field string) (primitive.ObjectID, error) {
	id, err := primitive.ObjectIDFromHex(strings.TrimSpace(hex))
	if err != nil {
		return primitive.NilObjectID, apperrors.InvalidID(field)
	}
	return id, nil
}

// uniqueIDs drops zero and repeated ids, keeping first-seen order
func uniqueIDs(ids []primitive.ObjectID) []primitive.ObjectID {
	seen := make(map[primitive.ObjectID]bool, len(ids))
	out := make([]primitive.ObjectID, 0, len(ids))
	for _, id := range ids {
		if id.IsZero() || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}

// dateLayouts accepts HTML date inputs as well as full timestamps
var dateLayouts = []string{"2006-01-02", time.RFC3339, "2006-01-02T15:04"}

// parseDate parses a date field. An empty value returns nil.
func parseDate(value, field string) (*time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil, nil
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return &t, nil
		}
	}
	return nil, apperrors.Validation(fmt.Sprintf("Invalid %s, expected YYYY-MM-DD", field))
}
