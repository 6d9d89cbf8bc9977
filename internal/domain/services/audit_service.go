package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/ak/millboard/internal/domain/repositories"
	apperrors "github.com/ak/millboard/internal/pkg/errors"
)

// AuditQuery narrows the audit trail. ResourceID needs ResourceType.
type AuditQuery struct {
	ResourceType string
	ResourceID   string
	Page         int
	Limit        int
}

// AuditService reads the audit trail written by Auditor, newest first
type AuditService interface {
	List(ctx context.Context, q AuditQuery) ([]*repositories.AuditLog, int64, error)
}

type auditService struct {
	repo repositories.AuditLogRepository
}

func NewAuditService(repo repositories.AuditLogRepository) AuditService {
	return &auditService{repo: repo}
}

func (s *auditService) List(ctx context.Context, q AuditQuery) ([]*repositories.AuditLog, int64, error) {
	resourceType := strings.ToLower(strings.TrimSpace(q.ResourceType))
	resourceID := strings.TrimSpace(q.ResourceID)

	var (
		logs  []*repositories.AuditLog
		total int64
		err   error
	)
	switch {
	case resourceType != "":
		logs, total, err = s.repo.ListByResource(ctx, resourceType, resourceID, q.Page, q.Limit)
	case resourceID != "":
		return nil, 0, apperrors.Validation("Resource type is required when filtering by resource id")
	default:
		logs, total, err = s.repo.List(ctx, q.Page, q.Limit)
	}
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list audit logs: %w", err)
	}
	return logs, total, nil
}
