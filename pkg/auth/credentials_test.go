package auth

import (
	"errors"
	"testing"
	"time"
)

func TestMockStore(t *testing.T) {
	t.Run("store and retrieve", func(t *testing.T) {
		store := NewMockStore()

		account := &Account{
			Label:        "default",
			APIKey:       "test-key",
			LastModified: time.Now(),
		}
		if err := store.Store(account); err != nil {
			t.Fatalf("store failed: %v", err)
		}

		got, err := store.Retrieve("default")
		if err != nil {
			t.Fatalf("retrieve failed: %v", err)
		}
		if got.APIKey != "test-key" {
			t.Errorf("APIKey = %q, want %q", got.APIKey, "test-key")
		}
	})

	t.Run("retrieve unknown label", func(t *testing.T) {
		store := NewMockStore()

		_, err := store.Retrieve("missing")
		if !errors.Is(err, ErrCredentialsNotFound) {
			t.Errorf("expected ErrCredentialsNotFound, got %v", err)
		}
	})

	t.Run("rejects invalid accounts", func(t *testing.T) {
		store := NewMockStore()

		if err := store.Store(nil); !errors.Is(err, ErrInvalidCredentials) {
			t.Errorf("expected ErrInvalidCredentials for nil account, got %v", err)
		}
		if err := store.Store(&Account{APIKey: "key"}); !errors.Is(err, ErrInvalidCredentials) {
			t.Errorf("expected ErrInvalidCredentials for empty label, got %v", err)
		}
	})

	t.Run("delete", func(t *testing.T) {
		store := NewMockStore()
		store.Store(&Account{Label: "default", APIKey: "key"})

		if err := store.Delete("default"); err != nil {
			t.Fatalf("delete failed: %v", err)
		}
		if store.Exists("default") {
			t.Error("account should be gone after delete")
		}
		if err := store.Delete("default"); !errors.Is(err, ErrCredentialsNotFound) {
			t.Errorf("expected ErrCredentialsNotFound, got %v", err)
		}
	})

	t.Run("list", func(t *testing.T) {
		store := NewMockStore()
		store.Store(&Account{Label: "live", APIKey: "key1"})
		store.Store(&Account{Label: "sandbox", APIKey: "key2"})

		accounts, err := store.List()
		if err != nil {
			t.Fatalf("list failed: %v", err)
		}
		if len(accounts) != 2 {
			t.Errorf("expected 2 accounts, got %d", len(accounts))
		}
	})

	t.Run("retrieved account is a copy", func(t *testing.T) {
		store := NewMockStore()
		store.Store(&Account{Label: "default", APIKey: "key"})

		got, _ := store.Retrieve("default")
		got.APIKey = "tampered"

		again, _ := store.Retrieve("default")
		if again.APIKey != "key" {
			t.Error("mutating a retrieved account must not affect the store")
		}
	})
}

func TestEnvironmentStore(t *testing.T) {
	t.Run("reads the environment key", func(t *testing.T) {
		t.Setenv("CHSAMPLER_API_KEY", "env-key")

		store := NewEnvironmentStore()
		account, err := store.Retrieve("")
		if err != nil {
			t.Fatalf("retrieve failed: %v", err)
		}
		if account.APIKey != "env-key" {
			t.Errorf("APIKey = %q, want %q", account.APIKey, "env-key")
		}
		if account.Label != "default" {
			t.Errorf("Label = %q, want %q", account.Label, "default")
		}
	})

	t.Run("missing variable is not found", func(t *testing.T) {
		t.Setenv("CHSAMPLER_API_KEY", "")

		store := NewEnvironmentStore()
		if _, err := store.Retrieve(""); !errors.Is(err, ErrCredentialsNotFound) {
			t.Errorf("expected ErrCredentialsNotFound, got %v", err)
		}
		if store.Exists("default") {
			t.Error("Exists should be false without the variable")
		}
	})

	t.Run("is read-only", func(t *testing.T) {
		store := NewEnvironmentStore()

		if err := store.Store(&Account{Label: "x", APIKey: "y"}); !errors.Is(err, ErrStoreUnavailable) {
			t.Errorf("expected ErrStoreUnavailable on Store, got %v", err)
		}
		if err := store.Delete("x"); !errors.Is(err, ErrStoreUnavailable) {
			t.Errorf("expected ErrStoreUnavailable on Delete, got %v", err)
		}
	})
}

func TestEncryptedFileStore(t *testing.T) {
	t.Setenv("CHSAMPLER_PASSPHRASE", "test-passphrase")

	newStore := func(t *testing.T, dir string) *EncryptedFileStore {
		t.Helper()
		store, err := NewEncryptedFileStore(dir + "/credentials.enc")
		if err != nil {
			t.Fatalf("failed to create store: %v", err)
		}
		return store
	}

	t.Run("roundtrip through encryption", func(t *testing.T) {
		dir := t.TempDir()
		store := newStore(t, dir)

		account := &Account{Label: "default", APIKey: "secret-key", LastModified: time.Now()}
		if err := store.Store(account); err != nil {
			t.Fatalf("store failed: %v", err)
		}

		// A fresh store instance must decrypt what the first one wrote
		reopened := newStore(t, dir)
		got, err := reopened.Retrieve("default")
		if err != nil {
			t.Fatalf("retrieve failed: %v", err)
		}
		if got.APIKey != "secret-key" {
			t.Errorf("APIKey = %q, want %q", got.APIKey, "secret-key")
		}
	})

	t.Run("wrong passphrase fails to decrypt", func(t *testing.T) {
		dir := t.TempDir()
		store := newStore(t, dir)
		if err := store.Store(&Account{Label: "default", APIKey: "secret"}); err != nil {
			t.Fatal(err)
		}

		t.Setenv("CHSAMPLER_PASSPHRASE", "wrong-passphrase")
		wrong := newStore(t, dir)
		if _, err := wrong.Retrieve("default"); err == nil {
			t.Error("expected decryption failure with the wrong passphrase")
		}
	})

	t.Run("deleting the last account removes the file", func(t *testing.T) {
		dir := t.TempDir()
		store := newStore(t, dir)
		if err := store.Store(&Account{Label: "only", APIKey: "key"}); err != nil {
			t.Fatal(err)
		}

		if err := store.Delete("only"); err != nil {
			t.Fatalf("delete failed: %v", err)
		}
		if store.Exists("only") {
			t.Error("account should be gone")
		}
	})
}

func TestMaskKey(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"", "********"},
		{"short", "********"},
		{"12345678", "********"},
		{"abcd-efgh-ijkl-mnop", "abcd...mnop"},
	}

	for _, tt := range tests {
		if got := MaskKey(tt.in); got != tt.want {
			t.Errorf("MaskKey(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
