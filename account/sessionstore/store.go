// Package sessionstore persists delegated-login sessions behind a swappable
// key/value collaborator, keeping account logic storage-agnostic.
package sessionstore

import "context"

// Store is the persistence seam for session state. Get returns (nil, nil)
// when the key is absent.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
}
