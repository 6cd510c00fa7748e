package auth

import (
	"os"
	"time"
)

// EnvironmentStore implements CredentialStore using environment variables.
// This is the last-resort source for unattended runs where no keyring or
// config directory exists.
type EnvironmentStore struct{}

// NewEnvironmentStore creates a new environment-based credential store
func NewEnvironmentStore() *EnvironmentStore {
	return &EnvironmentStore{}
}

// Store is not supported for environment variables
func (e *EnvironmentStore) Store(account *Account) error {
	return ErrStoreUnavailable
}

// Retrieve gets the API key from the environment
func (e *EnvironmentStore) Retrieve(label string) (*Account, error) {
	apiKey := os.Getenv("CHSAMPLER_API_KEY")
	if apiKey == "" {
		return nil, ErrCredentialsNotFound
	}

	if label == "" {
		label = "default"
	}

	return &Account{
		Label:        label,
		APIKey:       apiKey,
		LastModified: time.Now(),
	}, nil
}

// List returns a single account if the environment variable is set
func (e *EnvironmentStore) List() ([]*Account, error) {
	account, err := e.Retrieve("")
	if err != nil {
		return []*Account{}, nil
	}
	return []*Account{account}, nil
}

// Delete is not supported for environment variables
func (e *EnvironmentStore) Delete(label string) error {
	return ErrStoreUnavailable
}

// Exists checks if the environment key is set
func (e *EnvironmentStore) Exists(label string) bool {
	return os.Getenv("CHSAMPLER_API_KEY") != ""
}
