// Package auth checks the (account_id, secret) credential pair the
// server transport receives on every request. The core treats the pair
// opaquely; how secrets are stored is entirely behind the Store seam
// defined here.
package auth

import (
	"sync"

	"golang.org/x/crypto/bcrypt"
)

// Store checks an account's secret. Implementations must not leak the
// supplied secret in any error they return; Check reports only whether
// the pair matched.
type Store interface {
	Check(accountID, secret string) bool
}

// MemoryStore is the Store shipped with this datastore: an in-process
// map from account id to a bcrypt hash of its secret. It is sufficient
// for an embeddable, single-node server; a deployment with its own
// identity provider can supply a different Store.
type MemoryStore struct {
	mu      sync.RWMutex
	secrets map[string][]byte // account id -> bcrypt hash
}

// NewMemoryStore returns an empty credential store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{secrets: make(map[string][]byte)}
}

// SetSecret hashes secret with bcrypt and stores it for accountID,
// replacing any previous secret.
func (s *MemoryStore) SetSecret(accountID, secret string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(secret), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.secrets[accountID] = hash
	return nil
}

// Check reports whether secret matches the hash stored for accountID. An
// unknown account id is treated the same as a wrong secret: the caller
// learns only "not authorized", never which half of the pair was wrong.
func (s *MemoryStore) Check(accountID, secret string) bool {
	s.mu.RLock()
	hash, ok := s.secrets[accountID]
	s.mu.RUnlock()
	if !ok {
		return false
	}
	return bcrypt.CompareHashAndPassword(hash, []byte(secret)) == nil
}
