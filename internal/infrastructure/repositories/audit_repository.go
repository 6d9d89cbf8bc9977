package repositories

import (
	"context"
	"time"

	"github.com/ak/millboard/internal/domain/repositories"
	"github.com/ak/millboard/internal/infrastructure/database"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type auditLogRepository struct {
	collection *mongo.Collection
}

func NewAuditLogRepository(db *database.MongoDB) repositories.AuditLogRepository {
	return &auditLogRepository{
		collection: db.Collection(database.CollectionAuditLogs),
	}
}

func (r *auditLogRepository) Create(ctx context.Context, log *repositories.AuditLog) error {
	if log.CreatedAt == 0 {
		log.CreatedAt = primitive.NewDateTimeFromTime(time.Now())
	}
	result, err := r.collection.InsertOne(ctx, log)
	if err != nil {
		return err
	}
	log.ID = result.InsertedID.(primitive.ObjectID)
	return nil
}

func (r *auditLogRepository) ListByResource(ctx context.Context, resourceType, resourceID string, page, limit int) ([]*repositories.AuditLog, int64, error) {
	query := bson.M{"resource_type": resourceType}
	if resourceID != "" {
		query["resource_id"] = resourceID
	}
	return r.page(ctx, query, page, limit)
}

func (r *auditLogRepository) List(ctx context.Context, page, limit int) ([]*repositories.AuditLog, int64, error) {
	return r.page(ctx, bson.M{}, page, limit)
}

func (r *auditLogRepository) page(ctx context.Context, query bson.M, page, limit int) ([]*repositories.AuditLog, int64, error) {
	total, err := countDocuments(ctx, r.collection, query)
	if err != nil {
		return nil, 0, err
	}

	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 20
	}
	skip := (page - 1) * limit

	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}}).
		SetSkip(int64(skip)).
		SetLimit(int64(limit))

	logs, err := findMany[repositories.AuditLog](ctx, r.collection, query, opts)
	if err != nil {
		return nil, 0, err
	}
	return logs, total, nil
}
