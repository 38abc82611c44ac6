package store

import (
	"errors"
	"fmt"

	"github.com/cockroachdb/pebble"

	"github.com/tinyland-inc/tinydesk/pkg/logger"
)

// Pebble is a KV backed by a Pebble database. Every Set uses pebble.Sync
// so acknowledged writes survive a crash.
type Pebble struct {
	db *pebble.DB
}

// OpenPebble opens (or creates) the database at path.
func OpenPebble(path string) (*Pebble, error) {
	db, err := pebble.Open(path, &pebble.Options{})
	if err != nil {
		logger.ErrorCF("store", "pebble open failed", map[string]any{"path": path, "error": err.Error()})
		return nil, fmt.Errorf("opening pebble at %s: %w", path, err)
	}
	logger.InfoCF("store", "pebble opened", map[string]any{"path": path})
	return &Pebble{db: db}, nil
}

func (p *Pebble) Set(key string, value []byte) error {
	if err := p.db.Set([]byte(key), value, pebble.Sync); err != nil {
		return fmt.Errorf("writing %s: %w", key, err)
	}
	return nil
}

func (p *Pebble) Get(key string) ([]byte, error) {
	value, closer, err := p.db.Get([]byte(key))
	if err != nil {
		if errors.Is(err, pebble.ErrNotFound) {
			return nil, ErrKeyNotFound
		}
		return nil, fmt.Errorf("reading %s: %w", key, err)
	}
	out := append([]byte(nil), value...)
	if err := closer.Close(); err != nil {
		return nil, err
	}
	return out, nil
}

func (p *Pebble) Close() error {
	return p.db.Close()
}
