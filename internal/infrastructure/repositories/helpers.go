package repositories

import (
	"context"
	"errors"

	"github.com/ak/millboard/internal/domain/repositories"
	"github.com/ak/millboard/internal/infrastructure/database"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// findOne decodes the first match, returning (nil, nil) when nothing matches
func findOne[T any](ctx context.Context, coll *mongo.Collection, filter interface{}) (*T, error) {
	var doc T
	err := database.Retry(ctx, func(ctx context.Context) error {
		return coll.FindOne(ctx, filter).Decode(&doc)
	})
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, err
	}
	return &doc, nil
}

func findMany[T any](ctx context.Context, coll *mongo.Collection, filter interface{}, opts ...*options.FindOptions) ([]*T, error) {
	var docs []*T
	err := database.Retry(ctx, func(ctx context.Context) error {
		cursor, err := coll.Find(ctx, filter, opts...)
		if err != nil {
			return err
		}
		defer cursor.Close(ctx)
		docs = nil
		return cursor.All(ctx, &docs)
	})
	if err != nil {
		return nil, err
	}
	return docs, nil
}

// listPage runs the common list query and returns one page plus the total
func listPage[T any](ctx context.Context, coll *mongo.Collection, spec listSpec, f repositories.ListFilter) ([]*T, int64, error) {
	f = spec.normalize(f)
	query := spec.query(f)

	var total int64
	err := database.Retry(ctx, func(ctx context.Context) error {
		var err error
		total, err = coll.CountDocuments(ctx, query)
		return err
	})
	if err != nil {
		return nil, 0, err
	}

	docs, err := findMany[T](ctx, coll, query, spec.findOptions(f))
	if err != nil {
		return nil, 0, err
	}
	return docs, total, nil
}

func byIDs(ids []primitive.ObjectID) bson.M {
	return bson.M{"_id": bson.M{"$in": ids}}
}

// nameFilter matches name case-insensitively, optionally excluding one record
func nameFilter(name string, excludeID primitive.ObjectID) bson.M {
	query := bson.M{"name": exactNameRegex(name)}
	if !excludeID.IsZero() {
		query["_id"] = bson.M{"$ne": excludeID}
	}
	return query
}

func deleteByID(ctx context.Context, coll *mongo.Collection, id primitive.ObjectID) error {
	_, err := coll.DeleteOne(ctx, bson.M{"_id": id})
	return err
}

func countDocuments(ctx context.Context, coll *mongo.Collection, filter interface{}) (int64, error) {
	var n int64
	err := database.Retry(ctx, func(ctx context.Context) error {
		var err error
		n, err = coll.CountDocuments(ctx, filter)
		return err
	})
	return n, err
}
