package relay

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/tinyland-inc/tinydesk/pkg/store"
)

const (
	autoreplyKeyPrefix = "autoreply/"
	byRelayKeyPrefix   = "autoreply_relay/"
)

// AutoreplyWorkflow owns the Pending -> Approved|Discarded state machine
// for generated replies. It is the only component allowed to transition
// record state; the orchestrator requests transitions and handles the
// result. Alongside the primary control-message keyspace it maintains a
// secondary index from relay message id to control message id, so an
// operator reply to a relayed message can be correlated structurally.
type AutoreplyWorkflow struct {
	kv store.KV
}

func NewAutoreplyWorkflow(kv store.KV) *AutoreplyWorkflow {
	return &AutoreplyWorkflow{kv: kv}
}

// Offer creates a record in Pending. A reused control message id fails
// with ErrDuplicateKey.
func (w *AutoreplyWorkflow) Offer(rec AutoreplyRecord) (AutoreplyRecord, error) {
	key := autoreplyKeyPrefix + rec.ControlMessageID

	if _, err := w.kv.Get(key); err == nil {
		return AutoreplyRecord{}, fmt.Errorf("autoreply record %s: %w", rec.ControlMessageID, ErrDuplicateKey)
	} else if !errors.Is(err, store.ErrKeyNotFound) {
		return AutoreplyRecord{}, fmt.Errorf("checking autoreply record %s: %w", rec.ControlMessageID, err)
	}

	rec.State = StatePending
	if err := w.put(rec); err != nil {
		return AutoreplyRecord{}, err
	}
	if rec.RelayMessageID != "" {
		if err := w.kv.Set(byRelayKeyPrefix+rec.RelayMessageID, []byte(rec.ControlMessageID)); err != nil {
			return AutoreplyRecord{}, fmt.Errorf("indexing autoreply %s: %w", rec.ControlMessageID, err)
		}
	}
	return rec, nil
}

// Decide transitions a Pending record to Approved or Discarded. The
// transition is terminal: a repeat decision fails with ErrAlreadyDecided
// and leaves the record unchanged.
func (w *AutoreplyWorkflow) Decide(controlMessageID string, outcome Outcome) (AutoreplyRecord, error) {
	rec, err := w.Lookup(controlMessageID)
	if err != nil {
		return AutoreplyRecord{}, err
	}

	if rec.State != StatePending {
		return AutoreplyRecord{}, fmt.Errorf("autoreply record %s is %s: %w", controlMessageID, rec.State, ErrAlreadyDecided)
	}

	switch outcome {
	case OutcomeApproved:
		rec.State = StateApproved
	case OutcomeDiscarded:
		rec.State = StateDiscarded
	default:
		return AutoreplyRecord{}, fmt.Errorf("invalid decision outcome %q", outcome)
	}

	if err := w.put(rec); err != nil {
		return AutoreplyRecord{}, err
	}
	return rec, nil
}

// Lookup is a pure read by control message id.
func (w *AutoreplyWorkflow) Lookup(controlMessageID string) (AutoreplyRecord, error) {
	data, err := w.kv.Get(autoreplyKeyPrefix + controlMessageID)
	if err != nil {
		if errors.Is(err, store.ErrKeyNotFound) {
			return AutoreplyRecord{}, fmt.Errorf("autoreply record %s: %w", controlMessageID, ErrNotFound)
		}
		return AutoreplyRecord{}, fmt.Errorf("reading autoreply record %s: %w", controlMessageID, err)
	}

	var rec AutoreplyRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return AutoreplyRecord{}, fmt.Errorf("decoding autoreply record %s: %w", controlMessageID, err)
	}
	return rec, nil
}

// FindByRelay returns the record annotating the given relay message, if
// one was offered for it.
func (w *AutoreplyWorkflow) FindByRelay(relayMessageID string) (AutoreplyRecord, error) {
	controlID, err := w.kv.Get(byRelayKeyPrefix + relayMessageID)
	if err != nil {
		if errors.Is(err, store.ErrKeyNotFound) {
			return AutoreplyRecord{}, fmt.Errorf("no autoreply for relay %s: %w", relayMessageID, ErrNotFound)
		}
		return AutoreplyRecord{}, fmt.Errorf("reading autoreply index %s: %w", relayMessageID, err)
	}
	return w.Lookup(string(controlID))
}

func (w *AutoreplyWorkflow) put(rec AutoreplyRecord) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encoding autoreply record %s: %w", rec.ControlMessageID, err)
	}
	if err := w.kv.Set(autoreplyKeyPrefix+rec.ControlMessageID, data); err != nil {
		return fmt.Errorf("storing autoreply record %s: %w", rec.ControlMessageID, err)
	}
	return nil
}
