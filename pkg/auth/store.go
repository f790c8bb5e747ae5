package auth

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
)

// CredentialStore is the interface for persisting and retrieving
// credentials outside the environment list.
type CredentialStore interface {
	// Store saves a credential
	Store(cred *Credential) error

	// Retrieve gets the credential for a specific username
	Retrieve(username string) (*Credential, error)

	// List returns all stored credentials
	List() ([]Credential, error)

	// Delete removes the credential for a specific username
	Delete(username string) error
}

// Manager layers credential stores with fallback: system keychain first,
// encrypted file second.
type Manager struct {
	stores []CredentialStore
}

// NewManager creates a credential manager with the available backends.
func NewManager() (*Manager, error) {
	var stores []CredentialStore

	if keyringStore, err := NewKeyringStore(); err == nil {
		stores = append(stores, keyringStore)
	}

	configDir, err := configDir()
	if err != nil {
		return nil, fmt.Errorf("failed to get config directory: %w", err)
	}
	encryptedStore, err := NewEncryptedFileStore(filepath.Join(configDir, "credentials.enc"))
	if err != nil {
		return nil, fmt.Errorf("failed to create encrypted store: %w", err)
	}
	stores = append(stores, encryptedStore)

	return &Manager{stores: stores}, nil
}

// Store saves a credential to the first backend that accepts it.
func (m *Manager) Store(cred *Credential) error {
	if cred == nil || cred.Username == "" || cred.Password == "" {
		return ErrInvalidCredential
	}

	var lastErr error
	for _, store := range m.stores {
		if err := store.Store(cred); err == nil {
			return nil
		} else {
			lastErr = err
		}
	}
	if lastErr != nil {
		return fmt.Errorf("failed to store credential: %w", lastErr)
	}
	return ErrStoreUnavailable
}

// Retrieve gets a credential from the first backend that has it.
func (m *Manager) Retrieve(username string) (*Credential, error) {
	for _, store := range m.stores {
		if cred, err := store.Retrieve(username); err == nil && cred != nil {
			return cred, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrCredentialsNotFound, username)
}

// List returns all stored credentials, dedup by username, newest wins.
func (m *Manager) List() ([]Credential, error) {
	byName := make(map[string]Credential)
	var order []string

	for _, store := range m.stores {
		creds, err := store.List()
		if err != nil {
			continue
		}
		for _, cred := range creds {
			existing, ok := byName[cred.Username]
			if !ok {
				order = append(order, cred.Username)
				byName[cred.Username] = cred
			} else if cred.LastModified.After(existing.LastModified) {
				byName[cred.Username] = cred
			}
		}
	}

	result := make([]Credential, 0, len(order))
	for _, name := range order {
		result = append(result, byName[name])
	}
	return result, nil
}

// Delete removes a credential from every backend that has it.
func (m *Manager) Delete(username string) error {
	var deleted bool
	var lastErr error

	for _, store := range m.stores {
		if err := store.Delete(username); err == nil {
			deleted = true
		} else {
			lastErr = err
		}
	}

	if !deleted {
		if lastErr != nil {
			return fmt.Errorf("failed to delete credential: %w", lastErr)
		}
		return fmt.Errorf("%w: %s", ErrCredentialsNotFound, username)
	}
	return nil
}

// configDir returns the configuration directory path
func configDir() (string, error) {
	var dir string

	switch runtime.GOOS {
	case "darwin":
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		dir = filepath.Join(home, "Library", "Application Support", "igharvest")
	case "windows":
		dir = filepath.Join(os.Getenv("APPDATA"), "igharvest")
	default:
		if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
			dir = filepath.Join(xdgConfig, "igharvest")
		} else {
			home, err := os.UserHomeDir()
			if err != nil {
				return "", err
			}
			dir = filepath.Join(home, ".config", "igharvest")
		}
	}

	if err := os.MkdirAll(dir, 0700); err != nil {
		return "", fmt.Errorf("failed to create config directory: %w", err)
	}
	return dir, nil
}
