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
	"go.mongodb.org/mongo-driver/mongo/options"
)

var partyListSpec = listSpec{
	searchFields: []string{"name", "contact_name", "phone", "email", "gst_number"},
	sortFields: map[string]string{
		"name":       "name",
		"contact":    "contact_name",
		"created_at": "created_at",
	},
	defaultSort: "name",
	defaultDir:  1,
}

type partyRepository struct {
	collection *mongo.Collection
}

func NewPartyRepository(db *database.MongoDB) repositories.PartyRepository {
	return &partyRepository{
		collection: db.Collection(database.CollectionParties),
	}
}

func (r *partyRepository) Create(ctx context.Context, party *models.Party) error {
	party.CreatedAt = time.Now()
	party.UpdatedAt = time.Now()
	party.Name = strings.TrimSpace(party.Name)

	result, err := r.collection.InsertOne(ctx, party)
	if err != nil {
		return err
	}
	party.ID = result.InsertedID.(primitive.ObjectID)
	return nil
}

func (r *partyRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*models.Party, error) {
	return findOne[models.Party](ctx, r.collection, bson.M{"_id": id})
}

func (r *partyRepository) FindByName(ctx context.Context, name string, excludeID primitive.ObjectID) (*models.Party, error) {
	return findOne[models.Party](ctx, r.collection, nameFilter(name, excludeID))
}

func (r *partyRepository) GetByIDs(ctx context.Context, ids []primitive.ObjectID) ([]*models.Party, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	return findMany[models.Party](ctx, r.collection, byIDs(ids))
}

func (r *partyRepository) Update(ctx context.Context, party *models.Party) error {
	party.UpdatedAt = time.Now()
	_, err := r.collection.ReplaceOne(ctx, bson.M{"_id": party.ID}, party)
	return err
}

func (r *partyRepository) Delete(ctx context.Context, id primitive.ObjectID) error {
	return deleteByID(ctx, r.collection, id)
}

func (r *partyRepository) List(ctx context.Context, filter repositories.ListFilter) ([]*models.Party, int64, error) {
	return listPage[models.Party](ctx, r.collection, partyListSpec, filter)
}

func (r *partyRepository) All(ctx context.Context) ([]*models.Party, error) {
	return findMany[models.Party](ctx, r.collection, bson.M{},
		options.Find().SetSort(bson.D{{Key: "name", Value: 1}}))
}
