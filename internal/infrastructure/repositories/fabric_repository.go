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
)

var fabricListSpec = listSpec{
	searchFields: []string{"weaver"},
	sortFields: map[string]string{
		"weaver":     "weaver",
		"width":      "width",
		"weight":     "weight",
		"gsm":        "gsm",
		"rate":       "rate",
		"created_at": "created_at",
	},
	defaultSort: "created_at",
	defaultDir:  -1,
}

type fabricRepository struct {
	collection *mongo.Collection
}

func NewFabricRepository(db *database.MongoDB) repositories.FabricRepository {
	return &fabricRepository{
		collection: db.Collection(database.CollectionFabrics),
	}
}

func (r *fabricRepository) Create(ctx context.Context, fabric *models.Fabric) error {
	fabric.CreatedAt = time.Now()
	fabric.UpdatedAt = time.Now()

	result, err := r.collection.InsertOne(ctx, fabric)
	if err != nil {
		return err
	}
	fabric.ID = result.InsertedID.(primitive.ObjectID)
	return nil
}

func (r *fabricRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*models.Fabric, error) {
	return findOne[models.Fabric](ctx, r.collection, bson.M{"_id": id})
}

func (r *fabricRepository) Update(ctx context.Context, fabric *models.Fabric) error {
	fabric.UpdatedAt = time.Now()
	_, err := r.collection.ReplaceOne(ctx, bson.M{"_id": fabric.ID}, fabric)
	return err
}

func (r *fabricRepository) Delete(ctx context.Context, id primitive.ObjectID) error {
	return deleteByID(ctx, r.collection, id)
}

func (r *fabricRepository) List(ctx context.Context, filter repositories.ListFilter) ([]*models.Fabric, int64, error) {
	return listPage[models.Fabric](ctx, r.collection, fabricListSpec, filter)
}
