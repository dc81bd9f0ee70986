package logstore

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// lineDocument is one stored line.
type lineDocument struct {
	ConversationID string    `bson:"conversationId"`
	Line           string    `bson:"line"`
	CreatedAt      time.Time `bson:"createdAt"`
}

// MongoStore keeps one document per line in a collection. Append order is
// recovered from the ObjectID, which is monotonic per client process.
type MongoStore struct {
	client     *mongo.Client
	collection *mongo.Collection
	ownsClient bool
	closed     atomic.Bool
}

// NewMongoStore uses an existing client. Close will not disconnect it.
func NewMongoStore(client *mongo.Client, database, collection string) *MongoStore {
	return &MongoStore{
		client:     client,
		collection: client.Database(database).Collection(collection),
	}
}

// DialMongo connects to uri and ensures the conversation index exists.
func DialMongo(ctx context.Context, uri, database, collection string) (*MongoStore, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("ping mongo: %w", err)
	}

	s := NewMongoStore(client, database, collection)
	s.ownsClient = true

	_, err = s.collection.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "conversationId", Value: 1}, {Key: "_id", Value: 1}},
	})
	if err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("create index: %w", err)
	}
	return s, nil
}

// Append implements Store.
func (s *MongoStore) Append(ctx context.Context, conversationID, line string) error {
	if err := ValidateConversationID(conversationID); err != nil {
		return err
	}
	if s.closed.Load() {
		return ErrStoreClosed
	}

	_, err := s.collection.InsertOne(ctx, lineDocument{
		ConversationID: conversationID,
		Line:           line,
		CreatedAt:      time.Now().UTC(),
	})
	if err != nil {
		return &AppendError{ConversationID: conversationID, Backend: "mongo", Err: err}
	}
	return nil
}

// Lines implements Store.
func (s *MongoStore) Lines(ctx context.Context, conversationID string) ([]string, error) {
	if s.closed.Load() {
		return nil, ErrStoreClosed
	}

	cursor, err := s.collection.Find(ctx,
		bson.M{"conversationId": conversationID},
		options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}),
	)
	if err != nil {
		return nil, fmt.Errorf("find lines: %w", err)
	}
	defer cursor.Close(ctx)

	var docs []lineDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode lines: %w", err)
	}

	lines := make([]string, 0, len(docs))
	for _, d := range docs {
		lines = append(lines, d.Line)
	}
	return lines, nil
}

// Close implements Store.
func (s *MongoStore) Close() error {
	if !s.closed.CompareAndSwap(false, true) {
		return nil
	}
	if !s.ownsClient {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.client.Disconnect(ctx)
}
