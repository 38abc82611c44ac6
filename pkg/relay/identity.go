package relay

import (
	"errors"
	"fmt"

	"github.com/tinyland-inc/tinydesk/pkg/logger"
	"github.com/tinyland-inc/tinydesk/pkg/store"
)

const langKeyPrefix = "lang/"

// IdentityStore persists per-user language preferences. Reads never fail:
// an absent or unreadable preference falls back to the configured default.
type IdentityStore struct {
	kv         store.KV
	defaultTag string
}

func NewIdentityStore(kv store.KV, defaultTag string) *IdentityStore {
	return &IdentityStore{kv: kv, defaultTag: defaultTag}
}

// SetLanguage upserts the user's language preference with a durable
// write. Tag validity is the caller's contract; no check happens here.
func (s *IdentityStore) SetLanguage(userID, tag string) error {
	if err := s.kv.Set(langKeyPrefix+userID, []byte(tag)); err != nil {
		return fmt.Errorf("storing language for %s: %w", userID, err)
	}
	return nil
}

// Language returns the user's stored tag, or the default when absent.
func (s *IdentityStore) Language(userID string) string {
	if tag, ok := s.Stored(userID); ok {
		return tag
	}
	return s.defaultTag
}

// Stored returns the explicitly stored tag, if any. Storage read errors
// are logged and reported as "not stored" so reads keep their never-fails
// contract.
func (s *IdentityStore) Stored(userID string) (string, bool) {
	value, err := s.kv.Get(langKeyPrefix + userID)
	if err != nil {
		if !errors.Is(err, store.ErrKeyNotFound) {
			logger.ErrorCF("relay", "language read failed", map[string]any{"user": userID, "error": err.Error()})
		}
		return "", false
	}
	return string(value), true
}
