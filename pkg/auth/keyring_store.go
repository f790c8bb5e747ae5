package auth

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/zalando/go-keyring"
)

const (
	keyringService = "igharvest"
	keyringPrefix  = "account_"
	keyringIndex   = "account_index"
)

// KeyringStore implements CredentialStore using the system keychain
type KeyringStore struct{}

// NewKeyringStore creates a new keyring-based credential store
func NewKeyringStore() (*KeyringStore, error) {
	// Test if keyring is available
	testKey := "test_availability"
	if err := keyring.Set(keyringService, testKey, "test"); err != nil {
		return nil, fmt.Errorf("keyring not available: %w", err)
	}
	_ = keyring.Delete(keyringService, testKey)

	return &KeyringStore{}, nil
}

// Store saves a credential to the system keychain
func (k *KeyringStore) Store(cred *Credential) error {
	if cred == nil || cred.Username == "" {
		return ErrInvalidCredential
	}

	data, err := json.Marshal(cred)
	if err != nil {
		return fmt.Errorf("failed to marshal credential: %w", err)
	}

	key := keyringPrefix + cred.Username
	if err := keyring.Set(keyringService, key, string(data)); err != nil {
		return fmt.Errorf("failed to store in keyring: %w", err)
	}

	// The keychain has no list operation, so usernames are tracked in a
	// separate index entry.
	return k.addToIndex(cred.Username)
}

// Retrieve gets a credential from the system keychain
func (k *KeyringStore) Retrieve(username string) (*Credential, error) {
	if username == "" {
		return nil, ErrInvalidCredential
	}

	data, err := keyring.Get(keyringService, keyringPrefix+username)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrCredentialsNotFound, username)
	}

	var cred Credential
	if err := json.Unmarshal([]byte(data), &cred); err != nil {
		return nil, fmt.Errorf("failed to unmarshal credential: %w", err)
	}
	return &cred, nil
}

// List returns all credentials recorded in the keychain index
func (k *KeyringStore) List() ([]Credential, error) {
	var creds []Credential
	for _, username := range k.index() {
		if cred, err := k.Retrieve(username); err == nil {
			creds = append(creds, *cred)
		}
	}
	return creds, nil
}

// Delete removes a credential from the system keychain
func (k *KeyringStore) Delete(username string) error {
	if err := keyring.Delete(keyringService, keyringPrefix+username); err != nil {
		return fmt.Errorf("%w: %s", ErrCredentialsNotFound, username)
	}
	return k.removeFromIndex(username)
}

func (k *KeyringStore) index() []string {
	data, err := keyring.Get(keyringService, keyringIndex)
	if err != nil || data == "" {
		return nil
	}
	return strings.Split(data, ",")
}

func (k *KeyringStore) addToIndex(username string) error {
	names := k.index()
	for _, name := range names {
		if name == username {
			return nil
		}
	}
	names = append(names, username)
	return keyring.Set(keyringService, keyringIndex, strings.Join(names, ","))
}

func (k *KeyringStore) removeFromIndex(username string) error {
	var kept []string
	for _, name := range k.index() {
		if name != username {
			kept = append(kept, name)
		}
	}
	return keyring.Set(keyringService, keyringIndex, strings.Join(kept, ","))
}
