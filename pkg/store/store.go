// Package store provides the durable keyed state backing the relay core.
// Three logical keyspaces live in one database: user language preferences,
// relay records and autoreply records. Any backend that satisfies KV with
// durable per-call writes qualifies; the default is Pebble.
package store

import "errors"

// ErrKeyNotFound is returned by Get for absent keys.
var ErrKeyNotFound = errors.New("store: key not found")

// KV is a durable keyed byte store. Set must be durable when it returns:
// a crash immediately after a successful Set must not lose the write.
type KV interface {
	Set(key string, value []byte) error
	Get(key string) ([]byte, error)
	Close() error
}
