// Package mongodb provides the MongoDB document store. Composite writes use
// multi-document transactions, which need a replica set or sharded cluster.
package mongodb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/bilgisen/firenews/internal/storage"
)

const (
	colArticles      = "articles"
	colCategories    = "categories"
	colUsers         = "users"
	colCredentials   = "credentials"
	colComments      = "comments"
	colNotifications = "notifications"
)

const opTimeout = 10 * time.Second

// Store persists documents in one MongoDB database.
type Store struct {
	client *mongo.Client
	db     *mongo.Database
}

var _ storage.Store = (*Store)(nil)

// Open connects to uri, pings the server and ensures indexes.
func Open(ctx context.Context, uri, database string) (*Store, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()
	if err := client.Ping(pingCtx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("ping mongo: %w", err)
	}

	s := &Store{client: client, db: client.Database(database)}
	if err := s.ensureIndexes(ctx); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}
	return s, nil
}

func (s *Store) ensureIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	indexes := map[string][]mongo.IndexModel{
		colArticles: {
			{Keys: bson.D{{Key: "status", Value: 1}, {Key: "date", Value: -1}}},
			{Keys: bson.D{{Key: "category", Value: 1}}},
		},
		colCredentials: {
			{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true)},
			{
				Keys: bson.D{{Key: "provider", Value: 1}, {Key: "subject", Value: 1}},
				Options: options.Index().SetUnique(true).
					SetPartialFilterExpression(bson.M{"subject": bson.M{"$gt": ""}}),
			},
		},
		colComments: {
			{Keys: bson.D{{Key: "newsId", Value: 1}, {Key: "isReply", Value: 1}, {Key: "createdAt", Value: -1}}},
			{Keys: bson.D{{Key: "parentId", Value: 1}, {Key: "createdAt", Value: 1}}},
		},
		colNotifications: {
			{Keys: bson.D{{Key: "createdAt", Value: -1}}},
		},
	}
	for name, idx := range indexes {
		if _, err := s.db.Collection(name).Indexes().CreateMany(ctx, idx); err != nil {
			return fmt.Errorf("create %s indexes: %w", name, err)
		}
	}
	return nil
}

// Ping checks the server connection.
func (s *Store) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()
	return s.client.Ping(ctx, nil)
}

// Close disconnects the client.
func (s *Store) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()
	return s.client.Disconnect(ctx)
}

func (s *Store) col(name string) *mongo.Collection {
	return s.db.Collection(name)
}

// inTx runs fn inside a session transaction.
func (s *Store) inTx(ctx context.Context, name string, fn func(sc mongo.SessionContext) error) error {
	session, err := s.client.StartSession()
	if err != nil {
		return fmt.Errorf("start %s session: %w", name, err)
	}
	defer session.EndSession(ctx)

	_, err = session.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		return nil, fn(sc)
	})
	if err != nil {
		if isSentinel(err) {
			return err
		}
		return fmt.Errorf("%s transaction: %w", name, err)
	}
	return nil
}

func isSentinel(err error) bool {
	return errors.Is(err, storage.ErrNotFound) ||
		errors.Is(err, storage.ErrConflict) ||
		errors.Is(err, storage.ErrAlreadyLiked) ||
		errors.Is(err, storage.ErrNoComment)
}

func findOne[T any](ctx context.Context, col *mongo.Collection, filter any) (T, error) {
	var out T
	err := col.FindOne(ctx, filter).Decode(&out)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return out, storage.ErrNotFound
		}
		return out, fmt.Errorf("find %s: %w", col.Name(), err)
	}
	return out, nil
}

func findAll[T any](ctx context.Context, col *mongo.Collection, filter any, sort bson.D) ([]T, error) {
	cursor, err := col.Find(ctx, filter, options.Find().SetSort(sort))
	if err != nil {
		return nil, fmt.Errorf("find %s: %w", col.Name(), err)
	}
	out := []T{}
	if err := cursor.All(ctx, &out); err != nil {
		return nil, fmt.Errorf("decode %s: %w", col.Name(), err)
	}
	if out == nil {
		out = []T{}
	}
	return out, nil
}

func insert(ctx context.Context, col *mongo.Collection, doc any) error {
	if _, err := col.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return storage.ErrConflict
		}
		return fmt.Errorf("insert %s: %w", col.Name(), err)
	}
	return nil
}

func updateByID(ctx context.Context, col *mongo.Collection, id string, update any) error {
	res, err := col.UpdateByID(ctx, id, update)
	if err != nil {
		return fmt.Errorf("update %s: %w", col.Name(), err)
	}
	if res.MatchedCount == 0 {
		return storage.ErrNotFound
	}
	return nil
}

func deleteByID(ctx context.Context, col *mongo.Collection, id string) error {
	res, err := col.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("delete %s: %w", col.Name(), err)
	}
	if res.DeletedCount == 0 {
		return storage.ErrNotFound
	}
	return nil
}

func count(ctx context.Context, col *mongo.Collection, filter any) (int, error) {
	n, err := col.CountDocuments(ctx, filter)
	if err != nil {
		return 0, fmt.Errorf("count %s: %w", col.Name(), err)
	}
	return int(n), nil
}
