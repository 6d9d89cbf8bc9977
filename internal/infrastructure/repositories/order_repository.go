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

var orderListSpec = listSpec{
	searchFields: []string{"order_id", "notes", "items.description"},
	sortFields: map[string]string{
		"order_id":      "order_id",
		"order_date":    "order_date",
		"delivery_date": "delivery_date",
		"status":        "status",
		"created_at":    "created_at",
	},
	defaultSort: "created_at",
	defaultDir:  -1,
	statusField: "status",
}

const orderSequenceKey = "order_id"

type orderRepository struct {
	collection *mongo.Collection
	counters   *mongo.Collection
}

func NewOrderRepository(db *database.MongoDB) repositories.OrderRepository {
	return &orderRepository{
		collection: db.Collection(database.CollectionOrders),
		counters:   db.Collection(database.CollectionCounters),
	}
}

func (r *orderRepository) Create(ctx context.Context, order *models.Order) error {
	order.CreatedAt = time.Now()
	order.UpdatedAt = time.Now()
	if order.Status == "" {
		order.Status = models.OrderStatusPending
	}
	for i := range order.Items {
		if order.Items[i].ID.IsZero() {
			order.Items[i].ID = primitive.NewObjectID()
		}
	}

	result, err := r.collection.InsertOne(ctx, order)
	if err != nil {
		return err
	}
	order.ID = result.InsertedID.(primitive.ObjectID)
	return nil
}

func (r *orderRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*models.Order, error) {
	return findOne[models.Order](ctx, r.collection, bson.M{"_id": id})
}

func (r *orderRepository) GetByOrderID(ctx context.Context, orderID string) (*models.Order, error) {
	return findOne[models.Order](ctx, r.collection, bson.M{"order_id": orderID})
}

func (r *orderRepository) GetByIDs(ctx context.Context, ids []primitive.ObjectID) ([]*models.Order, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	return findMany[models.Order](ctx, r.collection, byIDs(ids))
}

func (r *orderRepository) Update(ctx context.Context, order *models.Order) error {
	order.UpdatedAt = time.Now()
	for i := range order.Items {
		if order.Items[i].ID.IsZero() {
			order.Items[i].ID = primitive.NewObjectID()
		}
	}
	_, err := r.collection.ReplaceOne(ctx, bson.M{"_id": order.ID}, order)
	return err
}

func (r *orderRepository) Delete(ctx context.Context, id primitive.ObjectID) error {
	return deleteByID(ctx, r.collection, id)
}

func (r *orderRepository) List(ctx context.Context, filter repositories.ListFilter) ([]*models.Order, int64, error) {
	return listPage[models.Order](ctx, r.collection, orderListSpec, filter)
}

func (r *orderRepository) All(ctx context.Context) ([]*models.Order, error) {
	return findMany[models.Order](ctx, r.collection, bson.M{},
		options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}}))
}

// CountByQuality counts orders with at least one item of the quality
func (r *orderRepository) CountByQuality(ctx context.Context, qualityID primitive.ObjectID) (int64, error) {
	return countDocuments(ctx, r.collection, bson.M{"items.quality_id": qualityID})
}

func (r *orderRepository) CountByParty(ctx context.Context, partyID primitive.ObjectID) (int64, error) {
	return countDocuments(ctx, r.collection, bson.M{"party_id": partyID})
}

func (r *orderRepository) NextSequence(ctx context.Context) (int64, error) {
	var counter struct {
		Seq int64 `bson:"seq"`
	}
	opts := options.FindOneAndUpdate().
		SetUpsert(true).
		SetReturnDocument(options.After)
	err := r.counters.FindOneAndUpdate(ctx,
		bson.M{"_id": orderSequenceKey},
		bson.M{"$inc": bson.M{"seq": 1}},
		opts,
	).Decode(&counter)
	if err != nil {
		return 0, err
	}
	return counter.Seq, nil
}
