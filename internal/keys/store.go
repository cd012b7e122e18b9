// Package keys holds the signing and verification key material for both token
// classes and implements administrative key rotation. The store keeps the
// current key pair per class plus at most one previous public key, which stays
// valid for verification until the next rotation discards it.
package keys

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"fmt"
	"sync"

	"github.com/basketlog/auth-service/internal/token"
)

// generateKey is a seam for testing rotation failure paths.
var generateKey = func() (*ecdsa.PrivateKey, error) {
	return ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
}

// pair is the key material of one token class.
type pair struct {
	private  *ecdsa.PrivateKey
	previous *ecdsa.PublicKey // nil until the first rotation
}

// Store supplies signing keys to the token codec and verification key sets to
// callers verifying tokens. Reads are far more frequent than the occasional
// administrative rotation, so the store is guarded by a RWMutex; readers see
// either the pre- or post-rotation key set in full.
type Store struct {
	mu      sync.RWMutex
	path    string
	classes map[token.Class]*pair
}

// Load reads key material from the file at path. When the file does not exist
// yet, a fresh set of key pairs is generated and persisted.
func Load(path string) (*Store, error) {
	s := &Store{path: path}

	blob, err := readKeyFile(path)
	if err != nil {
		return nil, err
	}

	if blob == nil {
		if err := s.generateInitial(); err != nil {
			return nil, err
		}
		return s, nil
	}

	classes, err := blob.toClasses()
	if err != nil {
		return nil, err
	}
	s.classes = classes
	return s, nil
}

// Signer returns the current private key for the given class. Only the
// issuing path ever needs it.
func (s *Store) Signer(class token.Class) *ecdsa.PrivateKey {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.classes[class].private
}

// VerificationKeys returns the public keys a token of the given class may
// verify against: the current key first, then the previous one if a rotation
// has happened. The slice is freshly allocated and safe to hold across a
// concurrent rotation.
func (s *Store) VerificationKeys(class token.Class) []*ecdsa.PublicKey {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p := s.classes[class]
	keys := []*ecdsa.PublicKey{&p.private.PublicKey}
	if p.previous != nil {
		keys = append(keys, p.previous)
	}
	return keys
}

// Rotate generates new key pairs for both classes, demotes each current
// public key to the previous slot (discarding any older previous key), and
// persists the new material atomically. On any failure the prior state is
// retained unchanged. Rotations are mutually exclusive with each other but
// run concurrently with verification reads.
func (s *Store) Rotate() error {
	// Generate everything before touching shared state so a failure on the
	// second class cannot leave the store half-rotated.
	newAccess, err := generateKey()
	if err != nil {
		return fmt.Errorf("error generating access key pair: %w", err)
	}
	newRefresh, err := generateKey()
	if err != nil {
		return fmt.Errorf("error generating refresh key pair: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	next := map[token.Class]*pair{
		token.ClassAccess:  {private: newAccess, previous: &s.classes[token.ClassAccess].private.PublicKey},
		token.ClassRefresh: {private: newRefresh, previous: &s.classes[token.ClassRefresh].private.PublicKey},
	}

	if err := persist(s.path, next); err != nil {
		return fmt.Errorf("error persisting rotated keys: %w", err)
	}

	s.classes = next
	return nil
}

func (s *Store) generateInitial() error {
	access, err := generateKey()
	if err != nil {
		return fmt.Errorf("error generating access key pair: %w", err)
	}
	refresh, err := generateKey()
	if err != nil {
		return fmt.Errorf("error generating refresh key pair: %w", err)
	}

	classes := map[token.Class]*pair{
		token.ClassAccess:  {private: access},
		token.ClassRefresh: {private: refresh},
	}

	if err := persist(s.path, classes); err != nil {
		return fmt.Errorf("error persisting initial keys: %w", err)
	}

	s.classes = classes
	return nil
}
