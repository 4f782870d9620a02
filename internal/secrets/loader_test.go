package secrets

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/zalando/go-keyring"
)

func TestLoadFromFileTakesPrecedence(t *testing.T) {
	path := filepath.Join(t.TempDir(), "key")
	if err := os.WriteFile(path, []byte("  from-file\n"), 0o600); err != nil {
		t.Fatalf("write secret: %v", err)
	}

	got, err := Load(Source{Name: "api key", Value: "inline", File: path})
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if got != "from-file" {
		t.Fatalf("expected file secret, got %q", got)
	}
}

func TestLoadInline(t *testing.T) {
	got, err := Load(Source{Value: "  inline  "})
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if got != "inline" {
		t.Fatalf("expected inline secret, got %q", got)
	}
}

func TestLoadFromKeyring(t *testing.T) {
	keyring.MockInit()
	if err := keyring.Set("cv-matcher", "hr@example.com", "keychain-secret"); err != nil {
		t.Fatalf("seed keyring: %v", err)
	}

	got, err := Load(Source{Name: "smtp password", Value: "inline", KeyringService: "cv-matcher", KeyringUser: "hr@example.com"})
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if got != "keychain-secret" {
		t.Fatalf("expected keyring secret, got %q", got)
	}

	_, err = Load(Source{Name: "smtp password", KeyringService: "cv-matcher", KeyringUser: "nobody"})
	if !errors.Is(err, keyring.ErrNotFound) {
		t.Fatalf("expected keyring not found error, got %v", err)
	}
}

func TestLoadErrors(t *testing.T) {
	_, err := Load(Source{Name: "token"})
	if err == nil || !strings.Contains(err.Error(), "token is not configured") {
		t.Fatalf("unexpected error %v", err)
	}

	empty := filepath.Join(t.TempDir(), "empty")
	if err := os.WriteFile(empty, []byte(" \n"), 0o600); err != nil {
		t.Fatalf("write secret: %v", err)
	}
	_, err = Load(Source{File: empty})
	if err == nil || !strings.Contains(err.Error(), "is empty") {
		t.Fatalf("unexpected error %v", err)
	}

	_, err = Load(Source{File: filepath.Join(t.TempDir(), "missing")})
	if err == nil {
		t.Fatal("expected error for missing file")
	}
}
