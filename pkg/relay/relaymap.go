package relay

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/tinyland-inc/tinydesk/pkg/store"
)

const relayKeyPrefix = "relay/"

// RelayMap is the append-only bidirectional correlation between original
// messages and their relayed copies, keyed by the relayed copy's id.
// Records are never mutated or expired. The single orchestrator loop is
// the only writer, so the insert's check-then-set needs no further
// synchronization.
type RelayMap struct {
	kv store.KV
}

func NewRelayMap(kv store.KV) *RelayMap {
	return &RelayMap{kv: kv}
}

// Record inserts a new relay record with a durable write. A reused
// relay message id fails with ErrDuplicateKey and leaves the existing
// record unchanged.
func (m *RelayMap) Record(rec RelayRecord) error {
	key := relayKeyPrefix + rec.RelayMessageID

	if _, err := m.kv.Get(key); err == nil {
		return fmt.Errorf("relay record %s: %w", rec.RelayMessageID, ErrDuplicateKey)
	} else if !errors.Is(err, store.ErrKeyNotFound) {
		return fmt.Errorf("checking relay record %s: %w", rec.RelayMessageID, err)
	}

	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encoding relay record %s: %w", rec.RelayMessageID, err)
	}
	if err := m.kv.Set(key, data); err != nil {
		return fmt.Errorf("storing relay record %s: %w", rec.RelayMessageID, err)
	}
	return nil
}

// Resolve looks up the record for a relayed message id.
func (m *RelayMap) Resolve(relayMessageID string) (RelayRecord, error) {
	data, err := m.kv.Get(relayKeyPrefix + relayMessageID)
	if err != nil {
		if errors.Is(err, store.ErrKeyNotFound) {
			return RelayRecord{}, fmt.Errorf("relay record %s: %w", relayMessageID, ErrNotFound)
		}
		return RelayRecord{}, fmt.Errorf("reading relay record %s: %w", relayMessageID, err)
	}

	var rec RelayRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return RelayRecord{}, fmt.Errorf("decoding relay record %s: %w", relayMessageID, err)
	}
	return rec, nil
}
