package blob

import (
	"bytes"
	"context"
	"testing"
)

func TestMemStorePutGetDelete(t *testing.T) {
	ctx := context.Background()
	s := NewMemStore()

	key, err := NewKey()
	if err != nil {
		t.Fatalf("NewKey: %v", err)
	}
	if len(key) != 32 {
		t.Fatalf("expected 32 hex chars for a 128-bit key, got %d", len(key))
	}

	if _, err := s.Get(ctx, key); err == nil {
		t.Fatalf("expected miss before Put")
	}

	if err := s.Put(ctx, key, []byte("payload")); err != nil {
		t.Fatalf("Put: %v", err)
	}

	got, err := s.Get(ctx, key)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !bytes.Equal(got, []byte("payload")) {
		t.Fatalf("got %q want %q", got, "payload")
	}

	if err := s.Delete(ctx, key); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := s.Get(ctx, key); err == nil {
		t.Fatalf("expected miss after Delete")
	}
}
