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

var userListSpec = listSpec{
	searchFields: []string{"name", "username", "email", "phone"},
	sortFields: map[string]string{
		"name":       "name",
		"username":   "username",
		"role":       "role",
		"created_at": "created_at",
		"last_login": "last_login_at",
	},
	defaultSort: "created_at",
	defaultDir:  -1,
	statusField: "role",
}

type userRepository struct {
	collection *mongo.Collection
}

func NewUserRepository(db *database.MongoDB) repositories.UserRepository {
	return &userRepository{
		collection: db.Collection(database.CollectionUsers),
	}
}

func (r *userRepository) Create(ctx context.Context, user *models.User) error {
	user.CreatedAt = time.Now()
	user.UpdatedAt = time.Now()
	user.Username = strings.ToLower(strings.TrimSpace(user.Username))

	result, err := r.collection.InsertOne(ctx, user)
	if err != nil {
		return err
	}
	user.ID = result.InsertedID.(primitive.ObjectID)
	return nil
}

func (r *userRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
	return findOne[models.User](ctx, r.collection, bson.M{"_id": id})
}

func (r *userRepository) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	return findOne[models.User](ctx, r.collection, bson.M{"username": strings.ToLower(strings.TrimSpace(username))})
}

func (r *userRepository) Update(ctx context.Context, user *models.User) error {
	user.UpdatedAt = time.Now()
	_, err := r.collection.ReplaceOne(ctx, bson.M{"_id": user.ID}, user)
	return err
}

func (r *userRepository) Delete(ctx context.Context, id primitive.ObjectID) error {
	return deleteByID(ctx, r.collection, id)
}

func (r *userRepository) List(ctx context.Context, filter repositories.ListFilter) ([]*models.User, int64, error) {
	return listPage[models.User](ctx, r.collection, userListSpec, filter)
}

func (r *userRepository) TouchLogin(ctx context.Context, id primitive.ObjectID, at time.Time) error {
	_, err := r.collection.UpdateOne(ctx,
		bson.M{"_id": id},
		bson.M{"$set": bson.M{"last_login_at": at}},
	)
	return err
}
