package repositories

import (
	"testing"

	"github.com/ak/millboard/internal/domain/repositories"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
)

func TestListSpec_Normalize(t *testing.T) {
	tests := []struct {
		name   string
		in     repositories.ListFilter
		expect repositories.ListFilter
	}{
		{
			name:   "defaults",
			in:     repositories.ListFilter{},
			expect: repositories.ListFilter{Page: 1, Limit: DefaultPageSize, SortBy: "created_at", SortDir: -1},
		},
		{
			name:   "limit clamped",
			in:     repositories.ListFilter{Page: 3, Limit: 1000},
			expect: repositories.ListFilter{Page: 3, Limit: MaxPageSize, SortBy: "created_at", SortDir: -1},
		},
		{
			name:   "known key ascending by default",
			in:     repositories.ListFilter{SortBy: "order_id"},
			expect: repositories.ListFilter{Page: 1, Limit: DefaultPageSize, SortBy: "order_id", SortDir: 1},
		},
		{
			name:   "unknown key falls back",
			in:     repositories.ListFilter{SortBy: "password_hash", SortDir: 1},
			expect: repositories.ListFilter{Page: 1, Limit: DefaultPageSize, SortBy: "created_at", SortDir: 1},
		},
		{
			name:   "search trimmed",
			in:     repositories.ListFilter{Search: "  ORD-1 ", SortBy: "status", SortDir: -1},
			expect: repositories.ListFilter{Search: "ORD-1", Page: 1, Limit: DefaultPageSize, SortBy: "status", SortDir: -1},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expect, orderListSpec.normalize(tt.in))
		})
	}
}

func TestListSpec_NormalizeMapsQueryKey(t *testing.T) {
	f := partyListSpec.normalize(repositories.ListFilter{SortBy: "contact"})
	assert.Equal(t, "contact_name", f.SortBy)
}

func TestListSpec_Query(t *testing.T) {
	q := partyListSpec.query(repositories.ListFilter{Search: "a.b"})
	or, ok := q["$or"].(bson.A)
	require.True(t, ok)
	require.Len(t, or, len(partyListSpec.searchFields))
	assert.Equal(t, bson.M{"name": bson.M{"$regex": `a\.b`, "$options": "i"}}, or[0])

	assert.Empty(t, partyListSpec.query(repositories.ListFilter{}))
	assert.Equal(t, bson.M{"status": "pending"}, orderListSpec.query(repositories.ListFilter{Status: "pending"}))
	assert.Empty(t, partyListSpec.query(repositories.ListFilter{Status: "pending"}), "parties have no status filter")
}

func TestListSpec_FindOptions(t *testing.T) {
	f := millListSpec.normalize(repositories.ListFilter{Page: 3, Limit: 20})
	opts := millListSpec.findOptions(f)

	assert.Equal(t, bson.D{{Key: "name", Value: 1}, {Key: "_id", Value: 1}}, opts.Sort)
	require.NotNil(t, opts.Skip)
	assert.Equal(t, int64(40), *opts.Skip)
	assert.Equal(t, int64(20), *opts.Limit)
}

func TestExactNameRegex(t *testing.T) {
	assert.Equal(t, bson.M{"$regex": `^Cotton \(Satin\)$`, "$options": "i"}, exactNameRegex("  Cotton (Satin) "))
}
