package registration

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

const (
	registrationsCollection = "registrations"
	countersCollection      = "counters"
)

// MongoRepository stores registrations as documents keyed by id.
type MongoRepository struct {
	client *mongo.Client
	coll   *mongo.Collection
}

// NewMongoRepository uses the registrations collection of dbName.
func NewMongoRepository(client *mongo.Client, dbName string) *MongoRepository {
	return &MongoRepository{
		client: client,
		coll:   client.Database(dbName).Collection(registrationsCollection),
	}
}

func (r *MongoRepository) Insert(ctx context.Context, reg *Registration) error {
	if _, err := r.coll.InsertOne(ctx, reg); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrDuplicateID
		}
		return fmt.Errorf("insert registration: %w", err)
	}
	return nil
}

func (r *MongoRepository) List(ctx context.Context) ([]Registration, error) {
	opts := options.Find().SetProjection(bson.D{{Key: "payment_screenshot.data", Value: 0}})
	cur, err := r.coll.Find(ctx, bson.D{}, opts)
	if err != nil {
		return nil, fmt.Errorf("list registrations: %w", err)
	}
	var res []Registration
	if err := cur.All(ctx, &res); err != nil {
		return nil, fmt.Errorf("decode registrations: %w", err)
	}
	return res, nil
}

func (r *MongoRepository) Get(ctx context.Context, id string) (*Registration, error) {
	var reg Registration
	err := r.coll.FindOne(ctx, bson.D{{Key: "_id", Value: id}}).Decode(&reg)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get registration: %w", err)
	}
	return &reg, nil
}

func (r *MongoRepository) UpdateStatus(ctx context.Context, id string, status Status, at time.Time) (*Registration, error) {
	update := bson.D{{Key: "$set", Value: bson.D{
		{Key: "status", Value: status},
		{Key: "updated_at", Value: at},
	}}}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var reg Registration
	err := r.coll.FindOneAndUpdate(ctx, bson.D{{Key: "_id", Value: id}}, update, opts).Decode(&reg)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("update registration status: %w", err)
	}
	return &reg, nil
}

func (r *MongoRepository) Ping(ctx context.Context) error {
	return r.client.Ping(ctx, readpref.Primary())
}

func (r *MongoRepository) Info() StoreInfo {
	return StoreInfo{Backend: "mongo", Durable: true}
}

func (r *MongoRepository) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return r.client.Disconnect(ctx)
}

// Counter returns a sequence persisted in the counters collection.
func (r *MongoRepository) Counter(name string) *MongoCounter {
	return &MongoCounter{
		coll: r.coll.Database().Collection(countersCollection),
		name: name,
	}
}

// MongoCounter increments a named document with $inc and upsert, so the
// sequence survives restarts and is shared across replicas.
type MongoCounter struct {
	coll *mongo.Collection
	name string
}

func (c *MongoCounter) Incr(ctx context.Context) (int64, error) {
	var doc struct {
		Seq int64 `bson:"seq"`
	}
	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)
	err := c.coll.FindOneAndUpdate(ctx,
		bson.D{{Key: "_id", Value: c.name}},
		bson.D{{Key: "$inc", Value: bson.D{{Key: "seq", Value: int64(1)}}}},
		opts,
	).Decode(&doc)
	if err != nil {
		return 0, fmt.Errorf("increment counter %s: %w", c.name, err)
	}
	return doc.Seq, nil
}
