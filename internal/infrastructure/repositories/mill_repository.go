package repositories

import (
	"context"
	"strings"
	"time"

	"github.com/ak/millboard/internal/domain/models"
	"github.com/ak/millboard/internal/domain/repositories"
	"github.com/ak/millboard/internal/infrastructure/database"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

var millListSpec = listSpec{
	searchFields: []string{"name", "location", "contact_name", "phone"},
	sortFields: map[string]string{
		"name":       "name",
		"location":   "location",
		"created_at": "created_at",
	},
	defaultSort: "name",
	defaultDir:  1,
}

type millRepository struct {
	collection *mongo.Collection
}

func NewMillRepository(db *database.MongoDB) repositories.MillRepository {
	return &millRepository{
		collection: db.Collection(database.CollectionMills),
	}
}

func (r *millRepository) Create(ctx context.Context, mill *models.Mill) error {
	mill.CreatedAt = time.Now()
	mill.UpdatedAt = time.Now()
	mill.Name = strings.TrimSpace(mill.Name)

	result, err := r.collection.InsertOne(ctx, mill)
	if err != nil {
		return err
	}
	mill.ID = result.InsertedID.(primitive.ObjectID)
	return nil
}

func (r *millRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*models.Mill, error) {
	return findOne[models.Mill](ctx, r.collection, bson.M{"_id": id})
}

func (r *millRepository) FindByName(ctx context.Context, name string, excludeID primitive.ObjectID) (*models.Mill, error) {
	return findOne[models.Mill](ctx, r.collection, nameFilter(name, excludeID))
}

func (r *millRepository) GetByIDs(ctx context.Context, ids []primitive.ObjectID) ([]*models.Mill, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	return findMany[models.Mill](ctx, r.collection, byIDs(ids))
}

func (r *millRepository) Update(ctx context.Context, mill *models.Mill) error {
	mill.UpdatedAt = time.Now()
	_, err := r.collection.ReplaceOne(ctx, bson.M{"_id": mill.ID}, mill)
	return err
}

func (r *millRepository) Delete(ctx context.Context, id primitive.ObjectID) error {
	return deleteByID(ctx, r.collection, id)
}

func (r *millRepository) List(ctx context.Context, filter repositories.ListFilter) ([]*models.Mill, int64, error) {
	return listPage[models.Mill](ctx, r.collection, millListSpec, filter)
}
