package testutil

import (
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/ak/millboard/internal/domain/repositories"
	"github.com/ak/millboard/internal/infrastructure/database"
	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

var registry = database.NewRegistry()

// collection keeps documents BSON-encoded so callers never share memory with
// the store and bson:"-" fields drop out the way they do in MongoDB.
type collection[T any] struct {
	mu    sync.RWMutex
	docs  map[primitive.ObjectID][]byte
	order []primitive.ObjectID
	id    func(*T) primitive.ObjectID
}

func newCollection[T any](id func(*T) primitive.ObjectID) *collection[T] {
	return &collection[T]{docs: make(map[primitive.ObjectID][]byte), id: id}
}

func encode(doc interface{}) []byte {
	raw, err := bson.MarshalWithRegistry(registry, doc)
	if err != nil {
		panic(err)
	}
	return raw
}

func decode[T any](raw []byte) *T {
	var doc T
	if err := bson.UnmarshalWithRegistry(registry, raw, &doc); err != nil {
		panic(err)
	}
	return &doc
}

func (c *collection[T]) put(doc *T) {
	c.mu.Lock()
	defer c.mu.Unlock()
	id := c.id(doc)
	if _, exists := c.docs[id]; !exists {
		c.order = append(c.order, id)
	}
	c.docs[id] = encode(doc)
}

// replace stores doc only when its id already exists, like ReplaceOne
func (c *collection[T]) replace(doc *T) {
	c.mu.Lock()
	defer c.mu.Unlock()
	id := c.id(doc)
	if _, exists := c.docs[id]; exists {
		c.docs[id] = encode(doc)
	}
}

func (c *collection[T]) get(id primitive.ObjectID) *T {
	c.mu.RLock()
	defer c.mu.RUnlock()
	raw, ok := c.docs[id]
	if !ok {
		return nil
	}
	return decode[T](raw)
}

func (c *collection[T]) remove(id primitive.ObjectID) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.docs[id]; !ok {
		return false
	}
	delete(c.docs, id)
	for i, existing := range c.order {
		if existing == id {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
	return true
}

// find returns matching documents in insertion order
func (c *collection[T]) find(match func(*T) bool) []*T {
	c.mu.RLock()
	defer c.mu.RUnlock()
	var out []*T
	for _, id := range c.order {
		doc := decode[T](c.docs[id])
		if match == nil || match(doc) {
			out = append(out, doc)
		}
	}
	return out
}

func (c *collection[T]) first(match func(*T) bool) *T {
	docs := c.find(match)
	if len(docs) == 0 {
		return nil
	}
	return docs[0]
}

func (c *collection[T]) count(match func(*T) bool) int64 {
	return int64(len(c.find(match)))
}

func (c *collection[T]) removeWhere(match func(*T) bool) int64 {
	var n int64
	for _, doc := range c.find(match) {
		if c.remove(c.id(doc)) {
			n++
		}
	}
	return n
}

func (c *collection[T]) byIDs(ids []primitive.ObjectID) []*T {
	want := make(map[primitive.ObjectID]bool, len(ids))
	for _, id := range ids {
		want[id] = true
	}
	return c.find(func(doc *T) bool { return want[c.id(doc)] })
}

// listing mirrors the Mongo list spec for one collection
type listing[T any] struct {
	search      func(*T) []string
	status      func(*T) string
	sortKeys    map[string]func(*T) interface{}
	defaultSort string
	defaultDir  int
}

func (l listing[T]) page(c *collection[T], f repositories.ListFilter) ([]*T, int64) {
	if f.Page < 1 {
		f.Page = 1
	}
	if f.Limit < 1 || f.Limit > 100 {
		f.Limit = 10
	}
	key, ok := l.sortKeys[f.SortBy]
	if !ok {
		key = l.sortKeys[l.defaultSort]
		if f.SortDir == 0 {
			f.SortDir = l.defaultDir
		}
	}
	if f.SortDir != -1 {
		f.SortDir = 1
	}
	term := strings.ToLower(strings.TrimSpace(f.Search))

	docs := c.find(func(doc *T) bool {
		if f.Status != "" && l.status != nil && l.status(doc) != f.Status {
			return false
		}
		if term == "" || l.search == nil {
			return true
		}
		for _, field := range l.search(doc) {
			if strings.Contains(strings.ToLower(field), term) {
				return true
			}
		}
		return false
	})

	if key != nil {
		sort.SliceStable(docs, func(i, j int) bool {
			cmp := compare(key(docs[i]), key(docs[j]))
			if cmp == 0 {
				cmp = strings.Compare(c.id(docs[i]).Hex(), c.id(docs[j]).Hex())
			}
			if f.SortDir == -1 {
				return cmp > 0
			}
			return cmp < 0
		})
	}

	total := int64(len(docs))
	start := (f.Page - 1) * f.Limit
	if start >= len(docs) {
		return nil, total
	}
	end := start + f.Limit
	if end > len(docs) {
		end = len(docs)
	}
	return docs[start:end], total
}

func compare(a, b interface{}) int {
	switch x := a.(type) {
	case string:
		return strings.Compare(x, b.(string))
	case time.Time:
		return x.Compare(b.(time.Time))
	case decimal.Decimal:
		return x.Cmp(b.(decimal.Decimal))
	}
	return 0
}

func equalFold(a, b string) bool {
	return strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b))
}
