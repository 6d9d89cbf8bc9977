package repositories

import (
	"regexp"
	"strings"

	"github.com/ak/millboard/internal/domain/repositories"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	DefaultPageSize = 10
	MaxPageSize     = 100
)

// listSpec describes how a collection answers the common list query
type listSpec struct {
	searchFields []string
	sortFields   map[string]string // query key -> document field
	defaultSort  string
	defaultDir   int
	statusField  string
}

// normalize clamps paging and resolves the sort into a document field
func (s listSpec) normalize(f repositories.ListFilter) repositories.ListFilter {
	if f.Page < 1 {
		f.Page = 1
	}
	if f.Limit < 1 {
		f.Limit = DefaultPageSize
	}
	if f.Limit > MaxPageSize {
		f.Limit = MaxPageSize
	}
	field, ok := s.sortFields[f.SortBy]
	if !ok {
		field = s.defaultSort
		if f.SortDir == 0 {
			f.SortDir = s.defaultDir
		}
	}
	f.SortBy = field
	if f.SortDir != -1 {
		f.SortDir = 1
	}
	f.Search = strings.TrimSpace(f.Search)
	return f
}

// query builds the match document for f
func (s listSpec) query(f repositories.ListFilter) bson.M {
	query := bson.M{}
	if f.Search != "" && len(s.searchFields) > 0 {
		pattern := containsRegex(f.Search)
		or := make(bson.A, 0, len(s.searchFields))
		for _, field := range s.searchFields {
			or = append(or, bson.M{field: pattern})
		}
		query["$or"] = or
	}
	if f.Status != "" && s.statusField != "" {
		query[s.statusField] = f.Status
	}
	return query
}

// findOptions returns sort/skip/limit for an already normalized filter
func (s listSpec) findOptions(f repositories.ListFilter) *options.FindOptions {
	sort := bson.D{{Key: f.SortBy, Value: f.SortDir}}
	if f.SortBy != "_id" {
		// stable paging when the sort key has ties
		sort = append(sort, bson.E{Key: "_id", Value: f.SortDir})
	}
	return options.Find().
		SetSort(sort).
		SetSkip(int64((f.Page - 1) * f.Limit)).
		SetLimit(int64(f.Limit))
}

// containsRegex is a case-insensitive substring match on literal text
func containsRegex(text string) bson.M {
	return bson.M{"$regex": regexp.QuoteMeta(text), "$options": "i"}
}

// exactNameRegex matches a whole name case-insensitively
func exactNameRegex(name string) bson.M {
	return bson.M{"$regex": "^" + regexp.QuoteMeta(strings.TrimSpace(name)) + "$", "$options": "i"}
}
