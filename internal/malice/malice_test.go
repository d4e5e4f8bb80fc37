package malice

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/sirupsen/logrus"

	"kiss/internal/record"
)

func discardLogger() *logrus.Logger {
	lg := logrus.New()
	lg.SetOutput(io.Discard)
	return lg
}

func TestHarnessNoneDeletesNothing(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	store := record.NewMemoryStore()
	store.Put(context.Background(), record.Record{Key: "a", Value: []byte("x")})

	h := New(store, BehaviorNone, time.Millisecond, discardLogger())
	h.Run(ctx)

	if len(h.Deletions()) != 0 {
		t.Fatalf("expected no deletions, got %v", h.Deletions())
	}
}

func TestHarnessDeleteAll(t *testing.T) {
	store := record.NewMemoryStore()
	store.Put(context.Background(), record.Record{Key: "a", Value: []byte("x")})
	store.Put(context.Background(), record.Record{Key: "b", Value: []byte("y")})

	h := New(store, BehaviorDeleteAll, time.Millisecond, discardLogger())
	h.corrupt(context.Background())

	keys, _ := store.List(context.Background())
	if len(keys) != 0 {
		t.Fatalf("expected all records deleted, got %v", keys)
	}
	if len(h.Deletions()) != 2 {
		t.Fatalf("expected 2 deletions recorded, got %d", len(h.Deletions()))
	}
}

func TestHarnessDeleteLast(t *testing.T) {
	store := record.NewMemoryStore()
	store.Put(context.Background(), record.Record{Key: "a", Value: []byte("x")})
	store.Put(context.Background(), record.Record{Key: "b", Value: []byte("y")})

	h := New(store, BehaviorDeleteLast, time.Millisecond, discardLogger())
	h.Track("b")
	h.corrupt(context.Background())

	_, err := store.Get(context.Background(), "b")
	if err == nil {
		t.Fatal("expected b to be deleted")
	}
	if _, err := store.Get(context.Background(), "a"); err != nil {
		t.Fatalf("expected a to survive, got err: %v", err)
	}
}
