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

var millOutputListSpec = listSpec{
	searchFields: []string{"bill_no"},
	sortFields: map[string]string{
		"recd_date":    "recd_date",
		"bill_no":      "bill_no",
		"finished_mtr": "finished_mtr",
		"mill_rate":    "mill_rate",
		"created_at":   "created_at",
	},
	defaultSort: "recd_date",
	defaultDir:  -1,
}

type millOutputRepository struct {
	collection *mongo.Collection
}

func NewMillOutputRepository(db *database.MongoDB) repositories.MillOutputRepository {
	return &millOutputRepository{
		collection: db.Collection(database.CollectionMillOutputs),
	}
}

func (r *millOutputRepository) Create(ctx context.Context, output *models.MillOutput) error {
	output.CreatedAt = time.Now()
	output.UpdatedAt = time.Now()

	result, err := r.collection.InsertOne(ctx, output)
	if err != nil {
		return err
	}
	output.ID = result.InsertedID.(primitive.ObjectID)
	return nil
}

func (r *millOutputRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*models.MillOutput, error) {
	return findOne[models.MillOutput](ctx, r.collection, bson.M{"_id": id})
}

func (r *millOutputRepository) Update(ctx context.Context, output *models.MillOutput) error {
	output.UpdatedAt = time.Now()
	_, err := r.collection.ReplaceOne(ctx, bson.M{"_id": output.ID}, output)
	return err
}

func (r *millOutputRepository) Delete(ctx context.Context, id primitive.ObjectID) error {
	return deleteByID(ctx, r.collection, id)
}

func (r *millOutputRepository) List(ctx context.Context, filter repositories.ListFilter) ([]*models.MillOutput, int64, error) {
	return listPage[models.MillOutput](ctx, r.collection, millOutputListSpec, filter)
}

func (r *millOutputRepository) Find(ctx context.Context, filter repositories.MillOutputFilter) ([]*models.MillOutput, error) {
	query := bson.M{}
	if filter.OrderID != nil {
		query["order_id"] = *filter.OrderID
	}
	dates := bson.M{}
	if filter.From != nil {
		dates["$gte"] = *filter.From
	}
	if filter.To != nil {
		dates["$lte"] = *filter.To
	}
	if len(dates) > 0 {
		query["recd_date"] = dates
	}

	opts := options.Find().SetSort(bson.D{{Key: "recd_date", Value: 1}})
	return findMany[models.MillOutput](ctx, r.collection, query, opts)
}

func (r *millOutputRepository) CountByMill(ctx context.Context, millID primitive.ObjectID) (int64, error) {
	return countDocuments(ctx, r.collection, bson.M{"mill_id": millID})
}

func (r *millOutputRepository) DeleteByOrder(ctx context.Context, orderID primitive.ObjectID) (int64, error) {
	result, err := r.collection.DeleteMany(ctx, bson.M{"order_id": orderID})
	if err != nil {
		return 0, err
	}
	return result.DeletedCount, nil
}
