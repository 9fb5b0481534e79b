package auth

import (
	"errors"
	"sync"

	"github.com/zalando/go-keyring"
)

// Keychain coordinates of the saved access token.
const (
	KeyringService = "com.kanbanbar.app"
	KeyringUser    = "github_access_token"
)

// ErrNotFound is returned by SecretStore.Load and Delete when no token is saved.
var ErrNotFound = errors.New("no saved token")

// SecretStore persists a single access token.
type SecretStore interface {
	Save(token string) error
	Load() (string, error)
	Delete() error
}

// KeyringStore keeps the token in the OS keychain.
type KeyringStore struct {
	Service string
	User    string
}

// NewKeyringStore returns a store using the default keychain service and account.
func NewKeyringStore() *KeyringStore {
	return &KeyringStore{Service: KeyringService, User: KeyringUser}
}

func (k *KeyringStore) Save(token string) error {
	return keyring.Set(k.Service, k.User, token)
}

func (k *KeyringStore) Load() (string, error) {
	token, err := keyring.Get(k.Service, k.User)
	if errors.Is(err, keyring.ErrNotFound) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", err
	}
	if token == "" {
		return "", ErrNotFound
	}
	return token, nil
}

func (k *KeyringStore) Delete() error {
	err := keyring.Delete(k.Service, k.User)
	if errors.Is(err, keyring.ErrNotFound) {
		return ErrNotFound
	}
	return err
}

// MemoryStore is a process-local SecretStore.
type MemoryStore struct {
	mu    sync.Mutex
	token string
}

func (m *MemoryStore) Save(token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.token = token
	return nil
}

func (m *MemoryStore) Load() (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.token == "" {
		return "", ErrNotFound
	}
	return m.token, nil
}

func (m *MemoryStore) Delete() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.token == "" {
		return ErrNotFound
	}
	m.token = ""
	return nil
}
