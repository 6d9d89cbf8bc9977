package repositories

import (
	"context"
	"time"

	"github.com/ak/millboard/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ListFilter is the common list query shared by all entity pages
type ListFilter struct {
	Search  string
	Status  string
	SortBy  string
	SortDir int // 1 ascending, -1 descending
	Page    int
	Limit   int
}

// UserRepository defines operations for user data access
type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id primitive.ObjectID) (*models.User, error)
	GetByUsername(ctx context.Context, username string) (*models.User, error)
	Update(ctx context.Context, user *models.User) error
	Delete(ctx context.Context, id primitive.ObjectID) error
	List(ctx context.Context, filter ListFilter) ([]*models.User, int64, error)
	TouchLogin(ctx context.Context, id primitive.ObjectID, at time.Time) error
}

// PartyRepository defines operations for party data access
type PartyRepository interface {
	Create(ctx context.Context, party *models.Party) error
	GetByID(ctx context.Context, id primitive.ObjectID) (*models.Party, error)
	// FindByName matches case-insensitively, skipping excludeID when non-zero
	FindByName(ctx context.Context, name string, excludeID primitive.ObjectID) (*models.Party, error)
	GetByIDs(ctx context.Context, ids []primitive.ObjectID) ([]*models.Party, error)
	Update(ctx context.Context, party *models.Party) error
	Delete(ctx context.Context, id primitive.ObjectID) error
	List(ctx context.Context, filter ListFilter) ([]*models.Party, int64, error)
	All(ctx context.Context) ([]*models.Party, error)
}

// MillRepository defines operations for mill data access
type MillRepository interface {
	Create(ctx context.Context, mill *models.Mill) error
	GetByID(ctx context.Context, id primitive.ObjectID) (*models.Mill, error)
	FindByName(ctx context.Context, name string, excludeID primitive.ObjectID) (*models.Mill, error)
	GetByIDs(ctx context.Context, ids []primitive.ObjectID) ([]*models.Mill, error)
	Update(ctx context.Context, mill *models.Mill) error
	Delete(ctx context.Context, id primitive.ObjectID) error
	List(ctx context.Context, filter ListFilter) ([]*models.Mill, int64, error)
}

// QualityRepository defines operations for quality data access
type QualityRepository interface {
	Create(ctx context.Context, quality *models.Quality) error
	GetByID(ctx context.Context, id primitive.ObjectID) (*models.Quality, error)
	FindByName(ctx context.Context, name string, excludeID primitive.ObjectID) (*models.Quality, error)
	GetByIDs(ctx context.Context, ids []primitive.ObjectID) ([]*models.Quality, error)
	Update(ctx context.Context, quality *models.Quality) error
	Delete(ctx context.Context, id primitive.ObjectID) error
	List(ctx context.Context, filter ListFilter) ([]*models.Quality, int64, error)
}

// FabricRepository defines operations for fabric data access
type FabricRepository interface {
	Create(ctx context.Context, fabric *models.Fabric) error
	GetByID(ctx context.Context, id primitive.ObjectID) (*models.Fabric, error)
	Update(ctx context.Context, fabric *models.Fabric) error
	Delete(ctx context.Context, id primitive.ObjectID) error
	List(ctx context.Context, filter ListFilter) ([]*models.Fabric, int64, error)
}

// OrderRepository defines operations for order data access
type OrderRepository interface {
	Create(ctx context.Context, order *models.Order) error
	GetByID(ctx context.Context, id primitive.ObjectID) (*models.Order, error)
	GetByOrderID(ctx context.Context, orderID string) (*models.Order, error)
	GetByIDs(ctx context.Context, ids []primitive.ObjectID) ([]*models.Order, error)
	Update(ctx context.Context, order *models.Order) error
	Delete(ctx context.Context, id primitive.ObjectID) error
	List(ctx context.Context, filter ListFilter) ([]*models.Order, int64, error)
	All(ctx context.Context) ([]*models.Order, error)
	CountByQuality(ctx context.Context, qualityID primitive.ObjectID) (int64, error)
	CountByParty(ctx context.Context, partyID primitive.ObjectID) (int64, error)
	// NextSequence returns the next value of the order_id counter
	NextSequence(ctx context.Context) (int64, error)
}

// LabRepository defines operations for lab data access
type LabRepository interface {
	Create(ctx context.Context, lab *models.Lab) error
	GetByID(ctx context.Context, id primitive.ObjectID) (*models.Lab, error)
	Update(ctx context.Context, lab *models.Lab) error
	Delete(ctx context.Context, id primitive.ObjectID) error
	// ListByOrder returns labs oldest first
	ListByOrder(ctx context.Context, orderID primitive.ObjectID) ([]*models.Lab, error)
	DeleteByOrder(ctx context.Context, orderID primitive.ObjectID) (int64, error)
}

// MillOutputRepository defines operations for mill output data access
type MillOutputRepository interface {
	Create(ctx context.Context, output *models.MillOutput) error
	GetByID(ctx context.Context, id primitive.ObjectID) (*models.MillOutput, error)
	Update(ctx context.Context, output *models.MillOutput) error
	Delete(ctx context.Context, id primitive.ObjectID) error
	List(ctx context.Context, filter ListFilter) ([]*models.MillOutput, int64, error)
	Find(ctx context.Context, filter MillOutputFilter) ([]*models.MillOutput, error)
	CountByMill(ctx context.Context, millID primitive.ObjectID) (int64, error)
	DeleteByOrder(ctx context.Context, orderID primitive.ObjectID) (int64, error)
}

// MillOutputFilter narrows mill outputs for reporting
type MillOutputFilter struct {
	OrderID *primitive.ObjectID
	From    *time.Time
	To      *time.Time
}

// AuditLogRepository defines operations for audit log data access. Lists are
// newest first.
type AuditLogRepository interface {
	Create(ctx context.Context, log *AuditLog) error
	// ListByResource matches every id of resourceType when resourceID is empty
	ListByResource(ctx context.Context, resourceType, resourceID string, page, limit int) ([]*AuditLog, int64, error)
	List(ctx context.Context, page, limit int) ([]*AuditLog, int64, error)
}

type AuditLog struct {
	ID           primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	UserID       string             `bson:"user_id" json:"user_id"`
	Username     string             `bson:"username,omitempty" json:"username,omitempty"`
	Action       string             `bson:"action" json:"action"`
	ResourceType string             `bson:"resource_type" json:"resource_type"`
	ResourceID   string             `bson:"resource_id" json:"resource_id"`
	OldValue     interface{}        `bson:"old_value,omitempty" json:"old_value,omitempty"`
	NewValue     interface{}        `bson:"new_value,omitempty" json:"new_value,omitempty"`
	IPAddress    string             `bson:"ip_address,omitempty" json:"ip_address,omitempty"`
	CreatedAt    primitive.DateTime `bson:"created_at" json:"created_at"`
}
