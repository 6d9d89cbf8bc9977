package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/ak/millboard/internal/domain/models"
	"github.com/ak/millboard/internal/domain/repositories"
	apperrors "github.com/ak/millboard/internal/pkg/errors"
	"github.com/ak/millboard/internal/pkg/phone"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// MillService handles mill business logic
type MillService interface {
	Create(ctx context.Context, actor Actor, req MillRequest) (*models.Mill, error)
	GetByID(ctx context.Context, id primitive.ObjectID) (*models.Mill, error)
	Update(ctx context.Context, actor Actor, id primitive.ObjectID, req MillRequest) (*models.Mill, error)
	Delete(ctx context.Context, actor Actor, id primitive.ObjectID) error
	List(ctx context.Context, filter repositories.ListFilter) ([]*models.Mill, int64, error)
}

type MillRequest struct {
	Name        string `json:"name" binding:"required"`
	Location    string `json:"location"`
	ContactName string `json:"contact_name"`
	Phone       string `json:"phone"`
}

const (
	msgMillExists = "A mill with this name already exists"
	resourceMill  = "mill"
)

type millService struct {
	millRepo   repositories.MillRepository
	outputRepo repositories.MillOutputRepository
	auditor    *Auditor
	region     string
}

func NewMillService(millRepo repositories.MillRepository, outputRepo repositories.MillOutputRepository, auditor *Auditor, region string) MillService {
	return &millService{
		millRepo:   millRepo,
		outputRepo: outputRepo,
		auditor:    auditor,
		region:     region,
	}
}

func (s *millService) build(req MillRequest) (*models.Mill, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, apperrors.Validation("Mill name is required")
	}
	if err := validateLength(name, "Mill name", 2, 150); err != nil {
		return nil, err
	}
	number, err := phone.Normalize(req.Phone, s.region)
	if err != nil {
		return nil, apperrors.Validation("Invalid phone number")
	}
	return &models.Mill{
		Name:        name,
		Location:    strings.TrimSpace(req.Location),
		ContactName: strings.TrimSpace(req.ContactName),
		Phone:       number,
	}, nil
}

func (s *millService) Create(ctx context.Context, actor Actor, req MillRequest) (*models.Mill, error) {
	mill, err := s.build(req)
	if err != nil {
		return nil, err
	}

	existing, err := s.millRepo.FindByName(ctx, mill.Name, primitive.NilObjectID)
	if err != nil {
		return nil, fmt.Errorf("failed to check mill name: %w", err)
	}
	if existing != nil {
		return nil, apperrors.AlreadyExists(msgMillExists)
	}

	if err := s.millRepo.Create(ctx, mill); err != nil {
		return nil, conflictOr(err, msgMillExists, "create mill")
	}

	s.auditor.Record(ctx, actor, AuditCreate, resourceMill, mill.ID.Hex(), nil, mill)
	return mill, nil
}

func (s *millService) GetByID(ctx context.Context, id primitive.ObjectID) (*models.Mill, error) {
	mill, err := s.millRepo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get mill: %w", err)
	}
	if mill == nil {
		return nil, apperrors.NotFound("Mill")
	}
	return mill, nil
}

func (s *millService) Update(ctx context.Context, actor Actor, id primitive.ObjectID, req MillRequest) (*models.Mill, error) {
	updated, err := s.build(req)
	if err != nil {
		return nil, err
	}

	mill, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	other, err := s.millRepo.FindByName(ctx, updated.Name, id)
	if err != nil {
		return nil, fmt.Errorf("failed to check mill name: %w", err)
	}
	if other != nil {
		return nil, apperrors.AlreadyExists(msgMillExists)
	}

	before := *mill
	updated.ID = mill.ID
	updated.CreatedAt = mill.CreatedAt

	if err := s.millRepo.Update(ctx, updated); err != nil {
		return nil, conflictOr(err, msgMillExists, "update mill")
	}

	s.auditor.Record(ctx, actor, AuditUpdate, resourceMill, id.Hex(), before, updated)
	return updated, nil
}

func (s *millService) Delete(ctx context.Context, actor Actor, id primitive.ObjectID) error {
	mill, err := s.GetByID(ctx, id)
	if err != nil {
		return err
	}

	inUse, err := s.outputRepo.CountByMill(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to check mill usage: %w", err)
	}
	if inUse > 0 {
		return apperrors.InUse(fmt.Sprintf("Cannot delete mill. It is used in %d mill output(s).", inUse), inUse)
	}

	if err := s.millRepo.Delete(ctx, id); err != nil {
		return fmt.Errorf("failed to delete mill: %w", err)
	}

	s.auditor.Record(ctx, actor, AuditDelete, resourceMill, id.Hex(), mill, nil)
	return nil
}

func (s *millService) List(ctx context.Context, filter repositories.ListFilter) ([]*models.Mill, int64, error) {
	mills, total, err := s.millRepo.List(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list mills: %w", err)
	}
	return mills, total, nil
}
