package objectstore

import (
	"context"
	"sort"
	"testing"

	"kiss/internal/kisserrors"
	"kiss/internal/testutil"
)

func newSandboxBackend(t *testing.T) (*Local, *testutil.Sandbox) {
	t.Helper()
	sb, err := testutil.NewSandbox()
	if err != nil {
		t.Fatalf("new sandbox: %v", err)
	}
	t.Cleanup(func() { _ = sb.Cleanup() })

	backend, err := NewLocal(sb.Path("store"), true)
	if err != nil {
		t.Fatalf("new local backend: %v", err)
	}
	return backend, sb
}

func TestLocalPutGetRoundTrip(t *testing.T) {
	backend, _ := newSandboxBackend(t)
	ctx := context.Background()

	if err := backend.Put(ctx, "a/b/c.bin", []byte("hello")); err != nil {
		t.Fatalf("put: %v", err)
	}
	got, err := backend.Get(ctx, "a/b/c.bin")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if string(got) != "hello" {
		t.Fatalf("got %q, want hello", got)
	}
}

func TestLocalGetMissingReturnsNotFound(t *testing.T) {
	backend, _ := newSandboxBackend(t)
	_, err := backend.Get(context.Background(), "missing")
	if err != kisserrors.ErrRecordNotFound {
		t.Fatalf("got %v, want ErrRecordNotFound", err)
	}
}

func TestLocalRemoveIsIdempotent(t *testing.T) {
	backend, _ := newSandboxBackend(t)
	ctx := context.Background()
	if err := backend.Put(ctx, "x", []byte("1")); err != nil {
		t.Fatalf("put: %v", err)
	}
	if err := backend.Remove(ctx, "x"); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if err := backend.Remove(ctx, "x"); err != nil {
		t.Fatalf("second remove should be a no-op, got: %v", err)
	}
}

func TestLocalList(t *testing.T) {
	backend, _ := newSandboxBackend(t)
	ctx := context.Background()
	for _, key := range []string{"one", "nested/two", "three"} {
		if err := backend.Put(ctx, key, []byte(key)); err != nil {
			t.Fatalf("put %s: %v", key, err)
		}
	}

	got, err := backend.List(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	sort.Strings(got)
	want := []string{"nested/two", "one", "three"}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got %v, want %v", got, want)
		}
	}
}
