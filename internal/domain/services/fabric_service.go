package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/ak/millboard/internal/domain/models"
	"github.com/ak/millboard/internal/domain/repositories"
	apperrors "github.com/ak/millboard/internal/pkg/errors"
	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// FabricService handles fabric business logic
type FabricService interface {
	Create(ctx context.Context, actor Actor, req FabricRequest) (*models.Fabric, error)
	GetByID(ctx context.Context, id primitive.ObjectID) (*models.Fabric, error)
	Update(ctx context.Context, actor Actor, id primitive.ObjectID, req FabricRequest) (*models.Fabric, error)
	Delete(ctx context.Context, actor Actor, id primitive.ObjectID) error
	List(ctx context.Context, filter repositories.ListFilter) ([]*models.Fabric, int64, error)
}

type FabricRequest struct {
	Weaver    string          `json:"weaver" binding:"required"`
	QualityID string          `json:"quality_id"`
	Width     decimal.Decimal `json:"width"`
	Weight    decimal.Decimal `json:"weight"`
	GSM       decimal.Decimal `json:"gsm"`
	Rate      decimal.Decimal `json:"rate"`
}

const resourceFabric = "fabric"

type fabricService struct {
	fabricRepo  repositories.FabricRepository
	qualityRepo repositories.QualityRepository
	auditor     *Auditor
}

func NewFabricService(fabricRepo repositories.FabricRepository, qualityRepo repositories.QualityRepository, auditor *Auditor) FabricService {
	return &fabricService{
		fabricRepo:  fabricRepo,
		qualityRepo: qualityRepo,
		auditor:     auditor,
	}
}

func (s *fabricService) build(ctx context.Context, req FabricRequest) (*models.Fabric, error) {
	weaver := strings.TrimSpace(req.Weaver)
	if weaver == "" {
		return nil, apperrors.Validation("Weaver is required")
	}
	if err := validateLength(weaver, "Weaver", 2, 150); err != nil {
		return nil, err
	}

	measures := []struct {
		label string
		value decimal.Decimal
	}{
		{"Width", req.Width},
		{"Weight", req.Weight},
		{"GSM", req.GSM},
		{"Rate", req.Rate},
	}
	for _, m := range measures {
		if m.value.IsNegative() {
			return nil, apperrors.Validation(m.label + " cannot be negative")
		}
	}

	fabric := &models.Fabric{
		Weaver: weaver,
		Width:  req.Width,
		Weight: req.Weight,
		GSM:    req.GSM,
		Rate:   req.Rate,
	}

	if strings.TrimSpace(req.QualityID) != "" {
		qualityID, err := parseObjectID(req.QualityID, "quality_id")
		if err != nil {
			return nil, err
		}
		quality, err := s.qualityRepo.GetByID(ctx, qualityID)
		if err != nil {
			return nil, fmt.Errorf("failed to get quality: %w", err)
		}
		if quality == nil {
			return nil, apperrors.Validation("Selected quality does not exist")
		}
		fabric.QualityID = &qualityID
		fabric.QualityName = quality.Name
	}
	return fabric, nil
}

func (s *fabricService) Create(ctx context.Context, actor Actor, req FabricRequest) (*models.Fabric, error) {
	fabric, err := s.build(ctx, req)
	if err != nil {
		return nil, err
	}
	if err := s.fabricRepo.Create(ctx, fabric); err != nil {
		return nil, fmt.Errorf("failed to create fabric: %w", err)
	}
	s.auditor.Record(ctx, actor, AuditCreate, resourceFabric, fabric.ID.Hex(), nil, fabric)
	return fabric, nil
}

func (s *fabricService) GetByID(ctx context.Context, id primitive.ObjectID) (*models.Fabric, error) {
	fabric, err := s.fabricRepo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get fabric: %w", err)
	}
	if fabric == nil {
		return nil, apperrors.NotFound("Fabric")
	}
	if err := s.populate(ctx, []*models.Fabric{fabric}); err != nil {
		return nil, err
	}
	return fabric, nil
}

func (s *fabricService) Update(ctx context.Context, actor Actor, id primitive.ObjectID, req FabricRequest) (*models.Fabric, error) {
	updated, err := s.build(ctx, req)
	if err != nil {
		return nil, err
	}
	fabric, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	before := *fabric
	updated.ID = fabric.ID
	updated.CreatedAt = fabric.CreatedAt

	if err := s.fabricRepo.Update(ctx, updated); err != nil {
		return nil, fmt.Errorf("failed to update fabric: %w", err)
	}
	s.auditor.Record(ctx, actor, AuditUpdate, resourceFabric, id.Hex(), before, updated)
	return updated, nil
}

func (s *fabricService) Delete(ctx context.Context, actor Actor, id primitive.ObjectID) error {
	fabric, err := s.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if err := s.fabricRepo.Delete(ctx, id); err != nil {
		return fmt.Errorf("failed to delete fabric: %w", err)
	}
	s.auditor.Record(ctx, actor, AuditDelete, resourceFabric, id.Hex(), fabric, nil)
	return nil
}

func (s *fabricService) List(ctx context.Context, filter repositories.ListFilter) ([]*models.Fabric, int64, error) {
	fabrics, total, err := s.fabricRepo.List(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list fabrics: %w", err)
	}
	if err := s.populate(ctx, fabrics); err != nil {
		return nil, 0, err
	}
	return fabrics, total, nil
}

// populate fills QualityName in one batched lookup
func (s *fabricService) populate(ctx context.Context, fabrics []*models.Fabric) error {
	ids := make([]primitive.ObjectID, 0, len(fabrics))
	for _, f := range fabrics {
		if f.QualityID != nil {
			ids = append(ids, *f.QualityID)
		}
	}
	names, err := qualityNames(ctx, s.qualityRepo, ids)
	if err != nil {
		return err
	}
	for _, f := range fabrics {
		if f.QualityID != nil {
			f.QualityName = names[*f.QualityID]
		}
	}
	return nil
}

func qualityNames(ctx context.Context, repo repositories.QualityRepository, ids []primitive.ObjectID) (map[primitive.ObjectID]string, error) {
	ids = uniqueIDs(ids)
	names := make(map[primitive.ObjectID]string, len(ids))
	if len(ids) == 0 {
		return names, nil
	}
	qualities, err := repo.GetByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to load qualities: %w", err)
	}
	for _, q := range qualities {
		names[q.ID] = q.Name
	}
	return names, nil
}
