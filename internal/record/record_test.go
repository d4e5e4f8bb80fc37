package record

import (
	"bytes"
	"context"
	"testing"
	"time"

	"kiss/internal/kisserrors"
)

func TestMarshalUnmarshalEnvelopeRoundTrip(t *testing.T) {
	expires := time.Now().Add(time.Hour)
	r := Record{Key: "k", Value: []byte("payload"), Publisher: "bootstrap", Expires: &expires}

	data, err := MarshalEnvelope(r)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	got, err := UnmarshalEnvelope(data)
	if err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got.Key != r.Key || got.Publisher != r.Publisher || !bytes.Equal(got.Value, r.Value) {
		t.Fatalf("round trip mismatch: got %+v, want %+v", got, r)
	}
	if got.Expires == nil {
		t.Fatal("expected expiry to survive round trip")
	}
	if diff := got.Expires.Sub(expires); diff > time.Minute || diff < -time.Minute {
		t.Fatalf("expiry drifted by %v", diff)
	}
}

func TestMarshalUnmarshalEnvelopeNoExpiry(t *testing.T) {
	r := Record{Key: "k", Value: []byte("payload")}
	data, err := MarshalEnvelope(r)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	got, err := UnmarshalEnvelope(data)
	if err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got.Expires != nil {
		t.Fatalf("expected nil expiry, got %v", got.Expires)
	}
}

func TestValidatePublisher(t *testing.T) {
	if err := ValidatePublisher(""); err != nil {
		t.Fatalf("empty publisher should be valid, got %v", err)
	}
	if err := ValidatePublisher("not-valid-base58-\x00"); err == nil {
		t.Fatal("expected invalid base58 publisher to fail validation")
	}
}

func TestRecordExpired(t *testing.T) {
	past := time.Now().Add(-time.Minute)
	future := time.Now().Add(time.Minute)

	expired := Record{Expires: &past}
	if !expired.Expired(time.Now()) {
		t.Fatal("record with past expiry should be expired")
	}

	notExpired := Record{Expires: &future}
	if notExpired.Expired(time.Now()) {
		t.Fatal("record with future expiry should not be expired")
	}

	noExpiry := Record{}
	if noExpiry.Expired(time.Now()) {
		t.Fatal("record without expiry should never be expired")
	}
}

func TestMemoryStorePutGetRemove(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	if _, err := store.Get(ctx, "missing"); err != kisserrors.ErrRecordNotFound {
		t.Fatalf("got %v, want ErrRecordNotFound", err)
	}

	if err := store.Put(ctx, Record{Key: "a", Value: []byte("1")}); err != nil {
		t.Fatalf("put: %v", err)
	}
	got, err := store.Get(ctx, "a")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if string(got.Value) != "1" {
		t.Fatalf("got %q, want 1", got.Value)
	}

	if err := store.Remove(ctx, "a"); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if _, err := store.Get(ctx, "a"); err != kisserrors.ErrRecordNotFound {
		t.Fatalf("got %v after remove, want ErrRecordNotFound", err)
	}
}

func TestMemoryStoreListIsSorted(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	for _, key := range []string{"c", "a", "b"} {
		if err := store.Put(ctx, Record{Key: key, Value: []byte(key)}); err != nil {
			t.Fatalf("put %s: %v", key, err)
		}
	}
	got, err := store.List(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	want := []string{"a", "b", "c"}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got %v, want %v", got, want)
		}
	}
}

func TestBlockingAdapterPutGet(t *testing.T) {
	adapter := NewBlockingAdapter(NewMemoryStore(), time.Second)
	if err := adapter.Put(Record{Key: "k", Value: []byte("v")}); err != nil {
		t.Fatalf("put: %v", err)
	}
	got, err := adapter.Get("k")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if string(got.Value) != "v" {
		t.Fatalf("got %q, want v", got.Value)
	}
}
