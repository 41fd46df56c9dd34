// Package mongo provides a core.MemoryStore backed by MongoDB.
package mongo

import (
	"context"
	"errors"
	"regexp"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/hupe1980/voicemesh/core"
	"github.com/hupe1980/voicemesh/memory"
)

// Store implements core.MemoryStore on a MongoDB collection.
type Store struct {
	client     *mongo.Client
	collection *mongo.Collection
}

type document struct {
	ID        string    `bson:"_id"`
	UserID    string    `bson:"user_id"`
	Agent     string    `bson:"agent"`
	Role      string    `bson:"role"`
	Content   string    `bson:"content"`
	CreatedAt time.Time `bson:"created_at"`
	UpdatedAt time.Time `bson:"updated_at"`
	Seq       int       `bson:"seq"`
}

func (d document) toRecord() core.MemoryRecord {
	return core.MemoryRecord{
		ID:        d.ID,
		Role:      core.Role(d.Role),
		Content:   d.Content,
		CreatedAt: d.CreatedAt,
		UpdatedAt: d.UpdatedAt,
		Seq:       d.Seq,
	}
}

// NewStore connects to MongoDB and returns a store on database.collection.
func NewStore(ctx context.Context, uri, database, collection string) (*Store, error) {
	if uri == "" {
		return nil, errors.New("mongo uri is required")
	}

	if database == "" {
		return nil, errors.New("mongo database name is required")
	}

	if collection == "" {
		return nil, errors.New("mongo collection name is required")
	}

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, err
	}

	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, err
	}

	return &Store{client: client, collection: client.Database(database).Collection(collection)}, nil
}

// CreateSchema ensures the scope index exists.
func (s *Store) CreateSchema(ctx context.Context) error {
	_, err := s.collection.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "user_id", Value: 1}, {Key: "agent", Value: 1}, {Key: "updated_at", Value: -1}, {Key: "seq", Value: -1}},
		Options: options.Index().SetName("scope_updated_at"),
	})

	return err
}

// Save upserts the records of msgs with one unordered bulk write.
func (s *Store) Save(ctx context.Context, scope core.MemoryScope, msgs []core.Message) error {
	recs := memory.Records(scope, msgs, time.Now().UTC())
	if len(recs) == 0 {
		return nil
	}

	models := make([]mongo.WriteModel, 0, len(recs))
	for _, r := range recs {
		models = append(models, mongo.NewUpdateOneModel().
			SetFilter(bson.M{"_id": r.ID}).
			SetUpdate(upsertUpdate(scope, r)).
			SetUpsert(true))
	}

	_, err := s.collection.BulkWrite(ctx, models, options.BulkWrite().SetOrdered(false))

	return err
}

// Query returns records whose content matches any term of text, newest first.
func (s *Store) Query(ctx context.Context, scope core.MemoryScope, text string, limit int) ([]core.MemoryRecord, error) {
	opts := options.Find().SetSort(sortNewestFirst)
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}

	cursor, err := s.collection.Find(ctx, queryFilter(scope, memory.Terms(text)), opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var records []core.MemoryRecord

	for cursor.Next(ctx) {
		var doc document
		if err := cursor.Decode(&doc); err != nil {
			return nil, err
		}

		records = append(records, doc.toRecord())
	}

	return records, cursor.Err()
}

// Close disconnects the client when the store owns one.
func (s *Store) Close(ctx context.Context) error {
	if s.client == nil {
		return nil
	}

	return s.client.Disconnect(ctx)
}

// sortNewestFirst orders by update time, then by position within a save.
// BSON dates keep milliseconds only, so seq decides within one save.
var sortNewestFirst = bson.D{{Key: "updated_at", Value: -1}, {Key: "seq", Value: -1}}

func upsertUpdate(scope core.MemoryScope, r core.MemoryRecord) bson.M {
	return bson.M{
		"$set": bson.M{
			"user_id":    scope.UserID,
			"agent":      scope.Agent,
			"role":       string(r.Role),
			"content":    r.Content,
			"updated_at": r.UpdatedAt,
			"seq":        r.Seq,
		},
		"$setOnInsert": bson.M{"created_at": r.CreatedAt},
	}
}

func queryFilter(scope core.MemoryScope, terms []string) bson.M {
	filter := bson.M{"user_id": scope.UserID, "agent": scope.Agent}
	if len(terms) == 0 {
		return filter
	}

	or := make(bson.A, 0, len(terms))
	for _, t := range terms {
		or = append(or, bson.M{"content": primitive.Regex{Pattern: regexp.QuoteMeta(t), Options: "i"}})
	}

	filter["$or"] = or

	return filter
}
