// Package draft persists in-progress form snapshots under a single
// namespaced key per form and autosaves them on an interval.
package draft

import (
	"context"
	"errors"
)

// KeyPrefix namespaces every draft key.
const KeyPrefix = "form-draft:"

// ErrNotFound is returned by Storage.Get when the key holds no value.
var ErrNotFound = errors.New("draft not found")

// Storage is the key-value backend a Store writes to. Keys passed in are
// already namespaced.
type Storage interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
}

// Key returns the namespaced storage key for a caller-supplied draft key.
func Key(key string) string {
	return KeyPrefix + key
}
