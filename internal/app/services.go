package app

import (
	"github.com/ak/millboard/internal/domain/services"
	"github.com/ak/millboard/internal/infrastructure/config"
	"github.com/ak/millboard/internal/infrastructure/repositories"
	"github.com/ak/millboard/internal/infrastructure/storage"
	"github.com/ak/millboard/internal/pkg/logger"
)

// Services is every domain service the handlers call
type Services struct {
	Users       services.UserService
	Parties     services.PartyService
	Mills       services.MillService
	Qualities   services.QualityService
	Fabrics     services.FabricService
	Orders      services.OrderService
	Labs        services.LabService
	MillOutputs services.MillOutputService
	Dashboard   services.DashboardService
	Audit       services.AuditService
}

// NewServices wires the domain services over the repositories. images may be
// nil, which disables item image uploads.
func NewServices(repos *repositories.Provider, images storage.ImageStore, cfg *config.Config, log *logger.Logger) *Services {
	auditor := services.NewAuditor(repos.AuditLog, log)
	dashboard := services.NewDashboardService(repos.Order, repos.Party, cfg.Cache.DashboardTTL)
	region := cfg.App.DefaultRegion

	return &Services{
		Users:     services.NewUserService(repos.User, auditor, region),
		Parties:   services.NewPartyService(repos.Party, repos.Order, auditor, dashboard, region),
		Mills:     services.NewMillService(repos.Mill, repos.MillOutput, auditor, region),
		Qualities: services.NewQualityService(repos.Quality, repos.Order, auditor),
		Fabrics:   services.NewFabricService(repos.Fabric, repos.Quality, auditor),
		Orders: services.NewOrderService(services.OrderServiceDeps{
			Orders:        repos.Order,
			Parties:       repos.Party,
			Qualities:     repos.Quality,
			Labs:          repos.Lab,
			MillOutputs:   repos.MillOutput,
			Images:        images,
			MaxImageBytes: cfg.Storage.MaxUploadBytes,
			Auditor:       auditor,
			Invalidator:   dashboard,
			Logger:        log,
		}),
		Labs:        services.NewLabService(repos.Lab, repos.Order, repos.Quality, auditor),
		MillOutputs: services.NewMillOutputService(repos.MillOutput, repos.Order, repos.Mill, repos.Party, auditor),
		Dashboard:   dashboard,
		Audit:       services.NewAuditService(repos.AuditLog),
	}
}
