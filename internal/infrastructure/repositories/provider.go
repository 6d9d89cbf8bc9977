package repositories

import (
	"github.com/ak/millboard/internal/domain/repositories"
	"github.com/ak/millboard/internal/infrastructure/database"
)

// Provider holds all repository instances
type Provider struct {
	User       repositories.UserRepository
	Party      repositories.PartyRepository
	Mill       repositories.MillRepository
	Quality    repositories.QualityRepository
	Fabric     repositories.FabricRepository
	Order      repositories.OrderRepository
	Lab        repositories.LabRepository
	MillOutput repositories.MillOutputRepository
	AuditLog   repositories.AuditLogRepository
}

// NewProvider creates a new repository provider
func NewProvider(db *database.MongoDB) *Provider {
	return &Provider{
		User:       NewUserRepository(db),
		Party:      NewPartyRepository(db),
		Mill:       NewMillRepository(db),
		Quality:    NewQualityRepository(db),
		Fabric:     NewFabricRepository(db),
		Order:      NewOrderRepository(db),
		Lab:        NewLabRepository(db),
		MillOutput: NewMillOutputRepository(db),
		AuditLog:   NewAuditLogRepository(db),
	}
}
