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

var qualityListSpec = listSpec{
	searchFields: []string{"name", "description"},
	sortFields: map[string]string{
		"name":       "name",
		"created_at": "created_at",
		"updated_at": "updated_at",
	},
	defaultSort: "name",
	defaultDir:  1,
}

type qualityRepository struct {
	collection *mongo.Collection
}

func NewQualityRepository(db *database.MongoDB) repositories.QualityRepository {
	return &qualityRepository{
		collection: db.Collection(database.CollectionQualities),
	}
}

func (r *qualityRepository) Create(ctx context.Context, quality *models.Quality) error {
	quality.CreatedAt = time.Now()
	quality.UpdatedAt = time.Now()
	quality.Name = strings.TrimSpace(quality.Name)

	result, err := r.collection.InsertOne(ctx, quality)
	if err != nil {
		return err
	}
	quality.ID = result.InsertedID.(primitive.ObjectID)
	return nil
}

func (r *qualityRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*models.Quality, error) {
	return findOne[models.Quality](ctx, r.collection, bson.M{"_id": id})
}

func (r *qualityRepository) FindByName(ctx context.Context, name string, excludeID primitive.ObjectID) (*models.Quality, error) {
	return findOne[models.Quality](ctx, r.collection, nameFilter(name, excludeID))
}

func (r *qualityRepository) GetByIDs(ctx context.Context, ids []primitive.ObjectID) ([]*models.Quality, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	return findMany[models.Quality](ctx, r.collection, byIDs(ids))
}

func (r *qualityRepository) Update(ctx context.Context, quality *models.Quality) error {
	quality.UpdatedAt = time.Now()
	_, err := r.collection.ReplaceOne(ctx, bson.M{"_id": quality.ID}, quality)
	return err
}

func (r *qualityRepository) Delete(ctx context.Context, id primitive.ObjectID) error {
	return deleteByID(ctx, r.collection, id)
}

func (r *qualityRepository) List(ctx context.Context, filter repositories.ListFilter) ([]*models.Quality, int64, error) {
	return listPage[models.Quality](ctx, r.collection, qualityListSpec, filter)
}
