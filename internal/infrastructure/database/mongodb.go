package database

import (
	"context"
	"fmt"
	"time"

	"github.com/ak/millboard/internal/infrastructure/config"
	"github.com/ak/millboard/internal/pkg/logger"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.uber.org/zap"
)

// MongoDB owns the client and the millboard database handle
type MongoDB struct {
	client   *mongo.Client
	database *mongo.Database
	config   config.MongoDBConfig
	logger   *logger.Logger
}

func NewMongoDB(cfg config.MongoDBConfig, log *logger.Logger) (*MongoDB, error) {
	if cfg.URI == "" {
		return nil, fmt.Errorf("mongodb uri is empty")
	}
	if cfg.Database == "" {
		return nil, fmt.Errorf("mongodb database name is empty")
	}
	return &MongoDB{
		config: cfg,
		logger: log.WithComponent("mongodb"),
	}, nil
}

// Connect dials, pings the primary and ensures indexes. Index failures are
// logged rather than returned so a read-only user can still serve pages.
func (m *MongoDB) Connect(ctx context.Context) error {
	opts := options.Client().
		ApplyURI(m.config.URI).
		SetConnectTimeout(m.config.ConnectTimeout).
		SetMaxPoolSize(m.config.MaxPoolSize).
		SetMinPoolSize(m.config.MinPoolSize).
		SetRegistry(NewRegistry())

	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return fmt.Errorf("failed to connect to MongoDB: %w", err)
	}
	ping := func(ctx context.Context) error { return client.Ping(ctx, readpref.Primary()) }
	if err := Retry(ctx, ping); err != nil {
		_ = client.Disconnect(context.Background())
		return fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	m.client = client
	m.database = client.Database(m.config.Database)
	m.logger.Info("Connected to MongoDB",
		zap.String("database", m.config.Database),
		zap.Uint64("max_pool", m.config.MaxPoolSize))

	m.createIndexes(ctx)
	return nil
}

func (m *MongoDB) Close(ctx context.Context) error {
	if m.client == nil {
		return nil
	}
	return m.client.Disconnect(ctx)
}

// Collection returns a handle on the named collection
func (m *MongoDB) Collection(name string) *mongo.Collection {
	return m.database.Collection(name)
}

// Collections
const (
	CollectionUsers       = "users"
	CollectionParties     = "parties"
	CollectionMills       = "mills"
	CollectionQualities   = "qualities"
	CollectionFabrics     = "fabrics"
	CollectionOrders      = "orders"
	CollectionLabs        = "labs"
	CollectionMillOutputs = "mill_outputs"
	CollectionCounters    = "counters"
	CollectionAuditLogs   = "audit_logs"
)

// caseInsensitive collates with strength 2 so unique indexes ignore case
var caseInsensitive = &options.Collation{Locale: "en", Strength: 2}

// createIndexes creates necessary indexes for all collections
func (m *MongoDB) createIndexes(ctx context.Context) {
	indexes := map[string][]mongo.IndexModel{
		CollectionUsers: {
			{Keys: bson.D{{Key: "username", Value: 1}}, Options: options.Index().SetUnique(true)},
			{Keys: bson.D{{Key: "role", Value: 1}}},
		},
		CollectionParties: {
			{Keys: bson.D{{Key: "name", Value: 1}}, Options: options.Index().SetUnique(true).SetCollation(caseInsensitive)},
		},
		CollectionMills: {
			{Keys: bson.D{{Key: "name", Value: 1}}, Options: options.Index().SetUnique(true).SetCollation(caseInsensitive)},
		},
		CollectionQualities: {
			{Keys: bson.D{{Key: "name", Value: 1}}, Options: options.Index().SetUnique(true).SetCollation(caseInsensitive)},
		},
		CollectionFabrics: {
			{Keys: bson.D{{Key: "weaver", Value: 1}}},
			{Keys: bson.D{{Key: "quality_id", Value: 1}}, Options: options.Index().SetSparse(true)},
		},
		CollectionOrders: {
			{Keys: bson.D{{Key: "order_id", Value: 1}}, Options: options.Index().SetUnique(true)},
			{Keys: bson.D{{Key: "status", Value: 1}, {Key: "created_at", Value: -1}}},
			{Keys: bson.D{{Key: "party_id", Value: 1}}},
			{Keys: bson.D{{Key: "items.quality_id", Value: 1}}},
		},
		CollectionLabs: {
			{Keys: bson.D{{Key: "order_id", Value: 1}, {Key: "created_at", Value: 1}}},
			{Keys: bson.D{{Key: "order_item_id", Value: 1}}},
		},
		CollectionMillOutputs: {
			{Keys: bson.D{{Key: "order_id", Value: 1}, {Key: "recd_date", Value: -1}}},
			{Keys: bson.D{{Key: "mill_id", Value: 1}}, Options: options.Index().SetSparse(true)},
			{Keys: bson.D{{Key: "bill_no", Value: 1}}},
		},
		CollectionAuditLogs: {
			{Keys: bson.D{{Key: "resource_type", Value: 1}, {Key: "resource_id", Value: 1}}},
			{Keys: bson.D{{Key: "user_id", Value: 1}}},
			{Keys: bson.D{{Key: "created_at", Value: 1}}, Options: options.Index().SetExpireAfterSeconds(86400 * 90)}, // TTL: 90 days
		},
	}

	for name, models := range indexes {
		created, err := m.database.Collection(name).Indexes().CreateMany(ctx, models)
		if err != nil {
			m.logger.Warn("Failed to create indexes", zap.String("collection", name), zap.Error(err))
			continue
		}
		m.logger.Debug("Indexes ensured", zap.String("collection", name), zap.Strings("indexes", created))
	}
}

// Health pings the primary; it backs the /ready check
func (m *MongoDB) Health(ctx context.Context) error {
	if m.client == nil {
		return fmt.Errorf("mongodb is not connected")
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return m.client.Ping(ctx, readpref.Primary())
}
