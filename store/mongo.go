package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/use-agent/vesselscout/config"
	"github.com/use-agent/vesselscout/models"
)

const defaultTimeout = 10 * time.Second

// document is the stored shape: the record plus write timestamps.
type document struct {
	models.VesselRecord `bson:",inline"`
	CreatedAt           time.Time `bson:"created_at"`
	UpdatedAt           time.Time `bson:"updated_at"`
}

// MongoStore keeps one document per mmsi in a MongoDB collection.
type MongoStore struct {
	client  *mongo.Client
	col     *mongo.Collection
	timeout time.Duration
	now     func() time.Time
}

// ConnectMongo opens the collection named in cfg, verifies connectivity
// with a ping and ensures the unique mmsi index.
func ConnectMongo(ctx context.Context, cfg config.MongoConfig) (*MongoStore, error) {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	connectCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	client, err := mongo.Connect(connectCtx, options.Client().ApplyURI(cfg.URI))
	if err != nil {
		return nil, fmt.Errorf("mongo connect: %w", err)
	}
	if err := client.Ping(connectCtx, nil); err != nil {
		_ = client.Disconnect(connectCtx)
		return nil, fmt.Errorf("mongo ping: %w", err)
	}

	s := &MongoStore{
		client:  client,
		col:     client.Database(cfg.Database).Collection(cfg.Collection),
		timeout: timeout,
		now:     time.Now,
	}
	if err := s.EnsureIndexes(ctx); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("mongo indexes: %w", err)
	}
	return s, nil
}

// EnsureIndexes creates the unique mmsi index.
func (s *MongoStore) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	_, err := s.col.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "mmsi", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	return err
}

// Upsert sets the present fields of rec on the document with the same
// mmsi, creating it when missing.
func (s *MongoStore) Upsert(ctx context.Context, rec models.VesselRecord) error {
	mmsi, err := mmsiOf(rec)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	set, err := setFields(rec)
	if err != nil {
		return err
	}
	now := s.now().UTC()
	set["mmsi"] = mmsi
	set["updated_at"] = now

	update := bson.M{
		"$set":         set,
		"$setOnInsert": bson.M{"created_at": now},
	}
	_, err = s.col.UpdateOne(ctx, bson.M{"mmsi": mmsi}, update, options.Update().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("mongo upsert %s: %w", mmsi, err)
	}
	return nil
}

// Get returns the stored record for mmsi.
func (s *MongoStore) Get(ctx context.Context, mmsi string) (*models.VesselRecord, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	var doc document
	err := s.col.FindOne(ctx, bson.M{"mmsi": models.TrimIdentifier(mmsi)}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("mongo get %s: %w", mmsi, err)
	}
	return &doc.VesselRecord, nil
}

// Close disconnects the client.
func (s *MongoStore) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

// setFields renders the present fields of rec as a $set document. Absent
// fields are omitted so they never overwrite stored values.
func setFields(rec models.VesselRecord) (bson.M, error) {
	raw, err := bson.Marshal(rec)
	if err != nil {
		return nil, fmt.Errorf("mongo encode: %w", err)
	}
	var set bson.M
	if err := bson.Unmarshal(raw, &set); err != nil {
		return nil, fmt.Errorf("mongo encode: %w", err)
	}
	for k, v := range set {
		if s, ok := v.(string); ok && s == "" {
			delete(set, k)
		}
	}
	return set, nil
}
