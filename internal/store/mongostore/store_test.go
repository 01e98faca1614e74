package mongostore_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"finboard/internal/core"
	"finboard/internal/store/mongostore"
)

// Mock for the Collection interface.
type mockCollection struct {
	insertOneFunc        func(ctx context.Context, document interface{}) (*mongo.InsertOneResult, error)
	replaceOneFunc       func(ctx context.Context, filter, replacement interface{}) (*mongo.UpdateResult, error)
	deleteOneFunc        func(ctx context.Context, filter interface{}) (*mongo.DeleteResult, error)
	findOneFunc          func(ctx context.Context, filter interface{}) *mongo.SingleResult
	findFunc             func(ctx context.Context, filter interface{}, opts ...*options.FindOptions) (*mongo.Cursor, error)
	findOneAndUpdateFunc func(ctx context.Context, filter, update interface{}) *mongo.SingleResult
}

func (m *mockCollection) InsertOne(ctx context.Context, document interface{}, _ ...*options.InsertOneOptions) (*mongo.InsertOneResult, error) {
	if m.insertOneFunc != nil {
		return m.insertOneFunc(ctx, document)
	}
	return &mongo.InsertOneResult{}, nil
}

func (m *mockCollection) ReplaceOne(ctx context.Context, filter, replacement interface{}, _ ...*options.ReplaceOptions) (*mongo.UpdateResult, error) {
	if m.replaceOneFunc != nil {
		return m.replaceOneFunc(ctx, filter, replacement)
	}
	return &mongo.UpdateResult{MatchedCount: 1, ModifiedCount: 1}, nil
}

func (m *mockCollection) DeleteOne(ctx context.Context, filter interface{}, _ ...*options.DeleteOptions) (*mongo.DeleteResult, error) {
	if m.deleteOneFunc != nil {
		return m.deleteOneFunc(ctx, filter)
	}
	return &mongo.DeleteResult{DeletedCount: 1}, nil
}

func (m *mockCollection) FindOne(ctx context.Context, filter interface{}, _ ...*options.FindOneOptions) *mongo.SingleResult {
	if m.findOneFunc != nil {
		return m.findOneFunc(ctx, filter)
	}
	return mongo.NewSingleResultFromDocument(bson.D{}, mongo.ErrNoDocuments, bson.DefaultRegistry)
}

func (m *mockCollection) Find(ctx context.Context, filter interface{}, opts ...*options.FindOptions) (*mongo.Cursor, error) {
	if m.findFunc != nil {
		return m.findFunc(ctx, filter, opts...)
	}
	return mongo.NewCursorFromDocuments(nil, nil, bson.DefaultRegistry)
}

func (m *mockCollection) FindOneAndUpdate(ctx context.Context, filter, update interface{}, _ ...*options.FindOneAndUpdateOptions) *mongo.SingleResult {
	if m.findOneAndUpdateFunc != nil {
		return m.findOneAndUpdateFunc(ctx, filter, update)
	}
	return mongo.NewSingleResultFromDocument(bson.M{"_id": "transactions", "seq": int64(1)}, nil, bson.DefaultRegistry)
}

func rentDoc(id int64, day int) bson.M {
	return bson.M{
		"_id":          id,
		"title":        "Office rent",
		"amount_cents": int64(20000),
		"type":         "EXPENSE",
		"category":     "Rent",
		"date_ms":      time.Date(2025, 3, day, 0, 0, 0, 0, time.UTC).UnixMilli(),
	}
}

func TestInsertAllocatesIDAndPublishes(t *testing.T) {
	var stored bson.Raw
	txs := &mockCollection{
		insertOneFunc: func(_ context.Context, document interface{}) (*mongo.InsertOneResult, error) {
			raw, err := bson.Marshal(document)
			if err != nil {
				t.Fatalf("marshal inserted document: %v", err)
			}
			stored = raw
			return &mongo.InsertOneResult{InsertedID: int64(7)}, nil
		},
	}
	counters := &mockCollection{
		findOneAndUpdateFunc: func(_ context.Context, filter, _ interface{}) *mongo.SingleResult {
			if f, ok := filter.(bson.M); !ok || f["_id"] != "transactions" {
				t.Errorf("unexpected counter filter %v", filter)
			}
			return mongo.NewSingleResultFromDocument(bson.M{"_id": "transactions", "seq": int64(7)}, nil, bson.DefaultRegistry)
		},
	}
	s := mongostore.NewWithCollections(txs, counters)
	ch, cancel := s.Subscribe()
	defer cancel()

	id, err := s.Insert(context.Background(), core.Transaction{
		Title:    "Invoice",
		Amount:   core.Money{Cents: 1500},
		Type:     core.Income,
		Category: "Sales",
		Date:     time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC),
	})
	if err != nil {
		t.Fatalf("Insert failed: %v", err)
	}
	if id != 7 {
		t.Errorf("expected id 7, got %d", id)
	}
	if got := stored.Lookup("_id").Int64(); got != 7 {
		t.Errorf("expected stored _id 7, got %d", got)
	}
	if got := stored.Lookup("amount_cents").Int64(); got != 1500 {
		t.Errorf("expected amount_cents 1500, got %d", got)
	}
	if c := <-ch; c.ID != 7 || c.Seq != 1 {
		t.Errorf("unexpected change %+v", c)
	}
}

func TestInsertCounterFailure(t *testing.T) {
	counters := &mockCollection{
		findOneAndUpdateFunc: func(context.Context, interface{}, interface{}) *mongo.SingleResult {
			return mongo.NewSingleResultFromDocument(bson.D{}, errors.New("counter down"), bson.DefaultRegistry)
		},
	}
	s := mongostore.NewWithCollections(&mockCollection{}, counters)

	_, err := s.Insert(context.Background(), core.Transaction{Title: "x"})
	if !core.IsStore(err) {
		t.Fatalf("expected StoreError, got %v", err)
	}
	if s.Seq() != 0 {
		t.Errorf("failed insert must not publish a change")
	}
}

func TestGetNotFound(t *testing.T) {
	s := mongostore.NewWithCollections(&mockCollection{}, &mockCollection{})
	_, err := s.Get(context.Background(), 42)
	if !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestGetDecodesDocument(t *testing.T) {
	txs := &mockCollection{
		findOneFunc: func(context.Context, interface{}) *mongo.SingleResult {
			return mongo.NewSingleResultFromDocument(rentDoc(3, 5), nil, bson.DefaultRegistry)
		},
	}
	s := mongostore.NewWithCollections(txs, &mockCollection{})

	got, err := s.Get(context.Background(), 3)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got.ID != 3 || got.Type != core.Expense || got.Amount.Cents != 20000 || got.Category != "Rent" {
		t.Errorf("unexpected transaction %+v", got)
	}
	if !got.Date.Equal(time.Date(2025, 3, 5, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("unexpected date %v", got.Date)
	}
}

func TestUpdateAndDeleteMissing(t *testing.T) {
	txs := &mockCollection{
		replaceOneFunc: func(context.Context, interface{}, interface{}) (*mongo.UpdateResult, error) {
			return &mongo.UpdateResult{MatchedCount: 0}, nil
		},
		deleteOneFunc: func(context.Context, interface{}) (*mongo.DeleteResult, error) {
			return &mongo.DeleteResult{DeletedCount: 0}, nil
		},
	}
	s := mongostore.NewWithCollections(txs, &mockCollection{})
	ctx := context.Background()

	if err := s.Update(ctx, core.Transaction{ID: 9}); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("Update: expected ErrNotFound, got %v", err)
	}
	if err := s.Delete(ctx, 9); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("Delete: expected ErrNotFound, got %v", err)
	}
	if s.Seq() != 0 {
		t.Errorf("expected no changes, got seq %d", s.Seq())
	}
}

func TestListByDateRangeFilterAndSort(t *testing.T) {
	from := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2025, 3, 31, 0, 0, 0, 0, time.UTC)

	txs := &mockCollection{
		findFunc: func(_ context.Context, filter interface{}, opts ...*options.FindOptions) (*mongo.Cursor, error) {
			f := filter.(bson.M)
			cond, ok := f["date_ms"].(bson.M)
			if !ok {
				t.Fatalf("expected date_ms condition, got %v", filter)
			}
			if cond["$gte"] != from.UnixMilli() || cond["$lte"] != to.UnixMilli() {
				t.Errorf("unexpected bounds %v", cond)
			}
			if len(opts) != 1 || opts[0].Sort == nil {
				t.Fatalf("expected a sort option")
			}
			sort := opts[0].Sort.(bson.D)
			if sort[0].Key != "date_ms" || sort[0].Value != -1 || sort[1].Key != "_id" {
				t.Errorf("unexpected sort %v", sort)
			}
			return mongo.NewCursorFromDocuments([]interface{}{rentDoc(2, 20), rentDoc(1, 10)}, nil, bson.DefaultRegistry)
		},
	}
	s := mongostore.NewWithCollections(txs, &mockCollection{})

	got, err := s.ListByDateRange(context.Background(), from, to)
	if err != nil {
		t.Fatalf("ListByDateRange failed: %v", err)
	}
	if len(got) != 2 || got[0].ID != 2 || got[1].ID != 1 {
		t.Errorf("unexpected result %+v", got)
	}
}

func TestListAllFindError(t *testing.T) {
	txs := &mockCollection{
		findFunc: func(context.Context, interface{}, ...*options.FindOptions) (*mongo.Cursor, error) {
			return nil, errors.New("server selection timeout")
		},
	}
	s := mongostore.NewWithCollections(txs, &mockCollection{})
	if _, err := s.ListAll(context.Background()); !core.IsStore(err) {
		t.Fatalf("expected StoreError, got %v", err)
	}
}
