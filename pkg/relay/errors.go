package relay

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is an expected lookup miss: an unmapped reply target
	// or an unknown control message.
	ErrNotFound = errors.New("relay: not found")

	// ErrDuplicateKey flags an insert over an existing key. The
	// transport guarantees unique outbound ids, so this is an invariant
	// violation, not a recoverable condition.
	ErrDuplicateKey = errors.New("relay: duplicate key")

	// ErrAlreadyDecided flags a repeat decision on a terminal autoreply
	// record. The record is left unchanged and nothing is delivered.
	ErrAlreadyDecided = errors.New("relay: already decided")
)

// DeliveryError wraps a failed transport send or edit. Store mutations
// made before the failure are intentionally not rolled back: partial
// forwarding is preferred over silent loss.
type DeliveryError struct {
	Dest string
	Err  error
}

func (e *DeliveryError) Error() string {
	return fmt.Sprintf("relay: delivery to %s failed: %v", e.Dest, e.Err)
}

func (e *DeliveryError) Unwrap() error {
	return e.Err
}
