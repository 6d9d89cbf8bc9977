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

// PartyService handles party business logic
type PartyService interface {
	Create(ctx context.Context, actor Actor, req PartyRequest) (*models.Party, error)
	GetByID(ctx context.Context, id primitive.ObjectID) (*models.Party, error)
	Update(ctx context.Context, actor Actor, id primitive.ObjectID, req PartyRequest) (*models.Party, error)
	Delete(ctx context.Context, actor Actor, id primitive.ObjectID) error
	List(ctx context.Context, filter repositories.ListFilter) ([]*models.Party, int64, error)
}

type PartyRequest struct {
	Name        string `json:"name" binding:"required"`
	ContactName string `json:"contact_name"`
	Phone       string `json:"phone"`
	Email       string `json:"email" binding:"omitempty,email"`
	Address     string `json:"address"`
	GSTNumber   string `json:"gst_number"`
}

const (
	msgPartyExists = "A party with this name already exists"
	resourceParty  = "party"
)

type partyService struct {
	partyRepo   repositories.PartyRepository
	orderRepo   repositories.OrderRepository
	auditor     *Auditor
	invalidator Invalidator
	region      string
}

// NewPartyService creates a new party service. region is the default phone
// number region used when a number has no country prefix.
func NewPartyService(partyRepo repositories.PartyRepository, orderRepo repositories.OrderRepository, auditor *Auditor, invalidator Invalidator, region string) PartyService {
	return &partyService{
		partyRepo:   partyRepo,
		orderRepo:   orderRepo,
		auditor:     auditor,
		invalidator: invalidatorOrNoop(invalidator),
		region:      region,
	}
}

func (s *partyService) build(req PartyRequest) (*models.Party, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, apperrors.Validation("Party name is required")
	}
	if err := validateLength(name, "Party name", 2, 150); err != nil {
		return nil, err
	}
	number, err := phone.Normalize(req.Phone, s.region)
	if err != nil {
		return nil, apperrors.Validation("Invalid phone number")
	}
	email, err := normalizeEmail(req.Email)
	if err != nil {
		return nil, err
	}
	return &models.Party{
		Name:        name,
		ContactName: strings.TrimSpace(req.ContactName),
		Phone:       number,
		Email:       email,
		Address:     strings.TrimSpace(req.Address),
		GSTNumber:   strings.ToUpper(strings.TrimSpace(req.GSTNumber)),
	}, nil
}

func (s *partyService) Create(ctx context.Context, actor Actor, req PartyRequest) (*models.Party, error) {
	party, err := s.build(req)
	if err != nil {
		return nil, err
	}

	existing, err := s.partyRepo.FindByName(ctx, party.Name, primitive.NilObjectID)
	if err != nil {
		return nil, fmt.Errorf("failed to check party name: %w", err)
	}
	if existing != nil {
		return nil, apperrors.AlreadyExists(msgPartyExists)
	}

	if err := s.partyRepo.Create(ctx, party); err != nil {
		return nil, conflictOr(err, msgPartyExists, "create party")
	}

	s.auditor.Record(ctx, actor, AuditCreate, resourceParty, party.ID.Hex(), nil, party)
	s.invalidator.Invalidate()
	return party, nil
}

func (s *partyService) GetByID(ctx context.Context, id primitive.ObjectID) (*models.Party, error) {
	party, err := s.partyRepo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get party: %w", err)
	}
	if party == nil {
		return nil, apperrors.NotFound("Party")
	}
	return party, nil
}

func (s *partyService) Update(ctx context.Context, actor Actor, id primitive.ObjectID, req PartyRequest) (*models.Party, error) {
	updated, err := s.build(req)
	if err != nil {
		return nil, err
	}

	party, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	other, err := s.partyRepo.FindByName(ctx, updated.Name, id)
	if err != nil {
		return nil, fmt.Errorf("failed to check party name: %w", err)
	}
	if other != nil {
		return nil, apperrors.AlreadyExists(msgPartyExists)
	}

	before := *party
	updated.ID = party.ID
	updated.CreatedAt = party.CreatedAt

	if err := s.partyRepo.Update(ctx, updated); err != nil {
		return nil, conflictOr(err, msgPartyExists, "update party")
	}

	s.auditor.Record(ctx, actor, AuditUpdate, resourceParty, id.Hex(), before, updated)
	s.invalidator.Invalidate()
	return updated, nil
}

func (s *partyService) Delete(ctx context.Context, actor Actor, id primitive.ObjectID) error {
	party, err := s.GetByID(ctx, id)
	if err != nil {
		return err
	}

	inUse, err := s.orderRepo.CountByParty(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to check party usage: %w", err)
	}
	if inUse > 0 {
		return apperrors.InUse(fmt.Sprintf("Cannot delete party. It is used in %d order(s).", inUse), inUse)
	}

	if err := s.partyRepo.Delete(ctx, id); err != nil {
		return fmt.Errorf("failed to delete party: %w", err)
	}

	s.auditor.Record(ctx, actor, AuditDelete, resourceParty, id.Hex(), party, nil)
	s.invalidator.Invalidate()
	return nil
}

func (s *partyService) List(ctx context.Context, filter repositories.ListFilter) ([]*models.Party, int64, error) {
	parties, total, err := s.partyRepo.List(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list parties: %w", err)
	}
	return parties, total, nil
}
