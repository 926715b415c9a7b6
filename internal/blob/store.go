// Package blob implements C2: put/get/delete on a content-addressed object
// store, keyed by opaque hex strings.
package blob

import (
	"context"
)

// Store is the contract the Ingress and Executor use for encrypted label
// bytes. Keys are opaque hex strings; callers never derive structure from
// them.
type Store interface {
	Put(ctx context.Context, key string, data []byte) error
	Get(ctx context.Context, key string) ([]byte, error)
	Delete(ctx context.Context, key string) error
}

// NewKey returns a random 128-bit hex-encoded key, per the blob-key format
// in the external interfaces.
func NewKey() (string, error) {
	return randomHexKey(16)
}
