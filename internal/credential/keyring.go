// Package credential keeps API tokens in the system keyring.
package credential

import (
	"errors"
	"fmt"

	"github.com/99designs/keyring"
)

const serviceName = "taskboard"

// ErrNotFound is returned when no token is stored for a server.
var ErrNotFound = errors.New("credential not found")

// Store saves one bearer token per server URL.
type Store struct {
	ring keyring.Keyring
}

// Open returns a Store backed by the first available system keyring,
// falling back to an encrypted file under fileDir.
func Open(fileDir string) (*Store, error) {
	ring, err := keyring.Open(keyring.Config{
		ServiceName: serviceName,
		AllowedBackends: []keyring.BackendType{
			keyring.KeychainBackend,
			keyring.SecretServiceBackend,
			keyring.WinCredBackend,
			keyring.PassBackend,
			keyring.FileBackend,
		},
		FileDir:                  fileDir,
		FilePasswordFunc:         keyring.FixedStringPrompt("taskboard-file-key"),
		KeychainTrustApplication: true,
	})
	if err != nil {
		return nil, fmt.Errorf("opening keyring: %w", err)
	}
	return &Store{ring: ring}, nil
}

// New wraps an existing keyring, e.g. keyring.NewArrayKeyring in tests.
func New(ring keyring.Keyring) *Store {
	return &Store{ring: ring}
}

func tokenKey(server string) string {
	return "token:" + server
}

// Token returns the token stored for server.
func (s *Store) Token(server string) (string, error) {
	item, err := s.ring.Get(tokenKey(server))
	if err != nil {
		if errors.Is(err, keyring.ErrKeyNotFound) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("getting token for %q: %w", server, err)
	}
	return string(item.Data), nil
}

// SetToken stores token for server, replacing any previous one.
func (s *Store) SetToken(server, token string) error {
	err := s.ring.Set(keyring.Item{
		Key:   tokenKey(server),
		Data:  []byte(token),
		Label: "taskboard token for " + server,
	})
	if err != nil {
		return fmt.Errorf("setting token for %q: %w", server, err)
	}
	return nil
}

// DeleteToken forgets the token for server. Deleting a missing token
// is not an error.
func (s *Store) DeleteToken(server string) error {
	err := s.ring.Remove(tokenKey(server))
	if err != nil && !errors.Is(err, keyring.ErrKeyNotFound) {
		return fmt.Errorf("deleting token for %q: %w", server, err)
	}
	return nil
}
