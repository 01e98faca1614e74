// Package mongostore implements the transaction store on MongoDB.
package mongostore

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"finboard/internal/core"
	"finboard/internal/store"
)

const (
	TransactionsCollection = "transactions"
	CountersCollection     = "counters"

	// counterKey is the _id of the counters document holding the last issued id.
	counterKey = "transactions"
)

// Collection is the subset of *mongo.Collection the store uses.
type Collection interface {
	InsertOne(ctx context.Context, document interface{}, opts ...*options.InsertOneOptions) (*mongo.InsertOneResult, error)
	ReplaceOne(ctx context.Context, filter interface{}, replacement interface{}, opts ...*options.ReplaceOptions) (*mongo.UpdateResult, error)
	DeleteOne(ctx context.Context, filter interface{}, opts ...*options.DeleteOptions) (*mongo.DeleteResult, error)
	FindOne(ctx context.Context, filter interface{}, opts ...*options.FindOneOptions) *mongo.SingleResult
	Find(ctx context.Context, filter interface{}, opts ...*options.FindOptions) (*mongo.Cursor, error)
	FindOneAndUpdate(ctx context.Context, filter interface{}, update interface{}, opts ...*options.FindOneAndUpdateOptions) *mongo.SingleResult
}

type document struct {
	ID          int64  `bson:"_id"`
	Title       string `bson:"title"`
	AmountCents int64  `bson:"amount_cents"`
	Type        string `bson:"type"`
	Category    string `bson:"category"`
	DateMS      int64  `bson:"date_ms"`
	Notes       string `bson:"notes,omitempty"`
}

type counter struct {
	Seq int64 `bson:"seq"`
}

type Store struct {
	*store.Feed

	transactions Collection
	counters     Collection
	disconnect   func(context.Context) error
}

var _ store.Store = (*Store)(nil)

// Connect dials uri and returns a store on the named database.
func Connect(ctx context.Context, uri, database string) (*Store, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("ping mongo: %w", err)
	}

	db := client.Database(database)
	s := NewWithCollections(db.Collection(TransactionsCollection), db.Collection(CountersCollection))
	s.disconnect = client.Disconnect

	slog.InfoContext(ctx, "Connected to MongoDB", "database", database)
	return s, nil
}

// NewWithCollections builds a store over already opened collections.
func NewWithCollections(transactions, counters Collection) *Store {
	return &Store{
		Feed:         store.NewFeed(),
		transactions: transactions,
		counters:     counters,
	}
}

func (s *Store) Close() error {
	s.Feed.Close()
	if s.disconnect == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.disconnect(ctx)
}

func (s *Store) nextID(ctx context.Context) (int64, error) {
	opts := options.FindOneAndUpdate().
		SetUpsert(true).
		SetReturnDocument(options.After)
	var c counter
	err := s.counters.FindOneAndUpdate(ctx,
		bson.M{"_id": counterKey},
		bson.M{"$inc": bson.M{"seq": int64(1)}},
		opts).Decode(&c)
	if err != nil {
		return 0, fmt.Errorf("allocate id: %w", err)
	}
	return c.Seq, nil
}

func (s *Store) Insert(ctx context.Context, t core.Transaction) (int64, error) {
	id, err := s.nextID(ctx)
	if err != nil {
		return 0, &core.StoreError{Op: "insert", Err: err}
	}
	t.ID = id
	if _, err := s.transactions.InsertOne(ctx, toDocument(t)); err != nil {
		return 0, &core.StoreError{Op: "insert", Err: err}
	}

	slog.InfoContext(ctx, "Transaction saved to MongoDB",
		"id", id,
		"type", t.Type,
		"category", t.Category)

	s.Publish(store.OpInsert, id)
	return id, nil
}

func (s *Store) Update(ctx context.Context, t core.Transaction) error {
	res, err := s.transactions.ReplaceOne(ctx, bson.M{"_id": t.ID}, toDocument(t))
	if err != nil {
		return &core.StoreError{Op: "update", Err: err}
	}
	if res.MatchedCount == 0 {
		return &core.StoreError{Op: "update", Err: core.ErrNotFound}
	}
	s.Publish(store.OpUpdate, t.ID)
	return nil
}

func (s *Store) Delete(ctx context.Context, id int64) error {
	res, err := s.transactions.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return &core.StoreError{Op: "delete", Err: err}
	}
	if res.DeletedCount == 0 {
		return &core.StoreError{Op: "delete", Err: core.ErrNotFound}
	}
	s.Publish(store.OpDelete, id)
	return nil
}

func (s *Store) Get(ctx context.Context, id int64) (core.Transaction, error) {
	var doc document
	err := s.transactions.FindOne(ctx, bson.M{"_id": id}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return core.Transaction{}, &core.StoreError{Op: "get", Err: core.ErrNotFound}
	}
	if err != nil {
		return core.Transaction{}, &core.StoreError{Op: "get", Err: err}
	}
	return doc.transaction(), nil
}

func (s *Store) ListAll(ctx context.Context) ([]core.Transaction, error) {
	return s.find(ctx, "list", bson.M{})
}

func (s *Store) ListByDateRange(ctx context.Context, from, to time.Time) ([]core.Transaction, error) {
	return s.find(ctx, "list range", dateFilter(from, to))
}

// dateFilter builds an inclusive date_ms filter; zero bounds are left open.
func dateFilter(from, to time.Time) bson.M {
	cond := bson.M{}
	if !from.IsZero() {
		cond["$gte"] = core.Millis(from)
	}
	if !to.IsZero() {
		cond["$lte"] = core.Millis(to)
	}
	if len(cond) == 0 {
		return bson.M{}
	}
	return bson.M{"date_ms": cond}
}

func (s *Store) find(ctx context.Context, op string, filter bson.M) ([]core.Transaction, error) {
	opts := options.Find().SetSort(bson.D{{Key: "date_ms", Value: -1}, {Key: "_id", Value: -1}})
	cur, err := s.transactions.Find(ctx, filter, opts)
	if err != nil {
		return nil, &core.StoreError{Op: op, Err: err}
	}
	defer cur.Close(ctx)

	var docs []document
	if err := cur.All(ctx, &docs); err != nil {
		return nil, &core.StoreError{Op: op, Err: fmt.Errorf("decode documents: %w", err)}
	}
	out := make([]core.Transaction, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.transaction())
	}
	return out, nil
}

func toDocument(t core.Transaction) document {
	return document{
		ID:          t.ID,
		Title:       t.Title,
		AmountCents: t.Amount.Cents,
		Type:        string(t.Type),
		Category:    t.Category,
		DateMS:      core.Millis(t.Date),
		Notes:       t.Notes,
	}
}

func (d document) transaction() core.Transaction {
	return core.Transaction{
		ID:       d.ID,
		Title:    d.Title,
		Amount:   core.Money{Cents: d.AmountCents},
		Type:     core.TransactionType(d.Type),
		Category: d.Category,
		Date:     core.FromMillis(d.DateMS),
		Notes:    d.Notes,
	}
}
