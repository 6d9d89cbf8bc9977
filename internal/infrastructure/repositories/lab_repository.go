package repositories

import (
	"context"
	"time"

	"github.com/ak/millboard/internal/domain/models"
	"github.com/ak/millboard/internal/domain/repositories"
	"github.com/ak/millboard/internal/infrastructure/database"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type labRepository struct {
	collection *mongo.Collection
}

func NewLabRepository(db *database.MongoDB) repositories.LabRepository {
	return &labRepository{
		collection: db.Collection(database.CollectionLabs),
	}
}

func (r *labRepository) Create(ctx context.Context, lab *models.Lab) error {
	lab.CreatedAt = time.Now()
	lab.UpdatedAt = time.Now()
	if lab.Status == "" {
		lab.Status = models.LabStatusSent
	}

	result, err := r.collection.InsertOne(ctx, lab)
	if err != nil {
		return err
	}
	lab.ID = result.InsertedID.(primitive.ObjectID)
	return nil
}

func (r *labRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*models.Lab, error) {
	return findOne[models.Lab](ctx, r.collection, bson.M{"_id": id})
}

func (r *labRepository) Update(ctx context.Context, lab *models.Lab) error {
	lab.UpdatedAt = time.Now()
	_, err := r.collection.ReplaceOne(ctx, bson.M{"_id": lab.ID}, lab)
	return err
}

func (r *labRepository) Delete(ctx context.Context, id primitive.ObjectID) error {
	return deleteByID(ctx, r.collection, id)
}

func (r *labRepository) ListByOrder(ctx context.Context, orderID primitive.ObjectID) ([]*models.Lab, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: 1}, {Key: "_id", Value: 1}})
	return findMany[models.Lab](ctx, r.collection, bson.M{"order_id": orderID}, opts)
}

func (r *labRepository) DeleteByOrder(ctx context.Context, orderID primitive.ObjectID) (int64, error) {
	result, err := r.collection.DeleteMany(ctx, bson.M{"order_id": orderID})
	if err != nil {
		return 0, err
	}
	return result.DeletedCount, nil
}
