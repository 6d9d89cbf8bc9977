package services

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/ak/millboard/internal/domain/models"
	"github.com/ak/millboard/internal/domain/repositories"
	apperrors "github.com/ak/millboard/internal/pkg/errors"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// QualityService handles quality business logic
type QualityService interface {
	Create(ctx context.Context, actor Actor, req QualityRequest) (*models.Quality, error)
	GetByID(ctx context.Context, id primitive.ObjectID) (*models.Quality, error)
	Update(ctx context.Context, actor Actor, id primitive.ObjectID, req QualityRequest) (*models.Quality, error)
	Delete(ctx context.Context, actor Actor, id primitive.ObjectID) error
	List(ctx context.Context, filter repositories.ListFilter) ([]*models.Quality, int64, error)
}

type QualityRequest struct {
	Name        string `json:"name" form:"name" binding:"required"`
	Description string `json:"description" form:"description"`
}

const (
	msgQualityExists = "A quality with this name already exists"
	resourceQuality  = "quality"
)

type qualityService struct {
	qualityRepo repositories.QualityRepository
	orderRepo   repositories.OrderRepository
	auditor     *Auditor
}

// NewQualityService creates a new quality service
func NewQualityService(qualityRepo repositories.QualityRepository, orderRepo repositories.OrderRepository, auditor *Auditor) QualityService {
	return &qualityService{
		qualityRepo: qualityRepo,
		orderRepo:   orderRepo,
		auditor:     auditor,
	}
}

func (r *QualityRequest) normalize() error {
	r.Name = strings.TrimSpace(r.Name)
	r.Description = strings.TrimSpace(r.Description)

	if r.Name == "" {
		return apperrors.Validation("Quality name is required")
	}
	if err := validateLength(r.Name, "Quality name", models.QualityNameMin, models.QualityNameMax); err != nil {
		return err
	}
	if utf8.RuneCountInString(r.Description) > models.QualityDescriptionMax {
		return apperrors.Validation(fmt.Sprintf("Description cannot exceed %d characters", models.QualityDescriptionMax))
	}
	return nil
}

func (s *qualityService) Create(ctx context.Context, actor Actor, req QualityRequest) (*models.Quality, error) {
	if err := req.normalize(); err != nil {
		return nil, err
	}

	existing, err := s.qualityRepo.FindByName(ctx, req.Name, primitive.NilObjectID)
	if err != nil {
		return nil, fmt.Errorf("failed to check quality name: %w", err)
	}
	if existing != nil {
		return nil, apperrors.AlreadyExists(msgQualityExists)
	}

	quality := &models.Quality{
		Name:        req.Name,
		Description: req.Description,
	}
	if err := s.qualityRepo.Create(ctx, quality); err != nil {
		return nil, conflictOr(err, msgQualityExists, "create quality")
	}

	s.auditor.Record(ctx, actor, AuditCreate, resourceQuality, quality.ID.Hex(), nil, quality)
	return quality, nil
}

func (s *qualityService) GetByID(ctx context.Context, id primitive.ObjectID) (*models.Quality, error) {
	quality, err := s.qualityRepo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get quality: %w", err)
	}
	if quality == nil {
		return nil, apperrors.NotFound("Quality")
	}
	return quality, nil
}

func (s *qualityService) Update(ctx context.Context, actor Actor, id primitive.ObjectID, req QualityRequest) (*models.Quality, error) {
	if err := req.normalize(); err != nil {
		return nil, err
	}

	quality, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	// Only a different record with the same name is a collision; renaming
	// "satin" to "Satin" on the same record is fine.
	other, err := s.qualityRepo.FindByName(ctx, req.Name, id)
	if err != nil {
		return nil, fmt.Errorf("failed to check quality name: %w", err)
	}
	if other != nil {
		return nil, apperrors.AlreadyExists(msgQualityExists)
	}

	before := *quality
	quality.Name = req.Name
	quality.Description = req.Description

	if err := s.qualityRepo.Update(ctx, quality); err != nil {
		return nil, conflictOr(err, msgQualityExists, "update quality")
	}

	s.auditor.Record(ctx, actor, AuditUpdate, resourceQuality, id.Hex(), before, quality)
	return quality, nil
}

func (s *qualityService) Delete(ctx context.Context, actor Actor, id primitive.ObjectID) error {
	quality, err := s.GetByID(ctx, id)
	if err != nil {
		return err
	}

	inUse, err := s.orderRepo.CountByQuality(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to check quality usage: %w", err)
	}
	if inUse > 0 {
		return apperrors.InUse(fmt.Sprintf("Cannot delete quality. It is used in %d order(s).", inUse), inUse)
	}

	if err := s.qualityRepo.Delete(ctx, id); err != nil {
		return fmt.Errorf("failed to delete quality: %w", err)
	}

	s.auditor.Record(ctx, actor, AuditDelete, resourceQuality, id.Hex(), quality, nil)
	return nil
}

func (s *qualityService) List(ctx context.Context, filter repositories.ListFilter) ([]*models.Quality, int64, error) {
	qualities, total, err := s.qualityRepo.List(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list qualities: %w", err)
	}
	return qualities, total, nil
}
