package session

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func newTestManager(t *testing.T, ttl time.Duration) *Manager {
	t.Helper()
	store, err := OpenStore(":memory:")
	if err != nil {
		t.Fatalf("OpenStore(:memory:): %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return NewManager(store, "admin123456", []byte("0123456789abcdef0123456789abcdef"), ttl)
}

func TestLoginAndValidate(t *testing.T) {
	m := newTestManager(t, time.Hour)
	ctx := context.Background()

	token, err := m.Login(ctx, "admin123456")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if token == "" {
		t.Fatal("Login returned empty token")
	}

	if err := m.Validate(ctx, token); err != nil {
		t.Fatalf("Validate: %v", err)
	}
}

func TestLoginWrongPassword(t *testing.T) {
	m := newTestManager(t, time.Hour)

	_, err := m.Login(context.Background(), "wrong")
	if !errors.Is(err, ErrBadCredentials) {
		t.Fatalf("Login = %v, want ErrBadCredentials", err)
	}
}

func TestValidateRejectsGarbageAndForgedTokens(t *testing.T) {
	m := newTestManager(t, time.Hour)
	ctx := context.Background()

	for _, token := range []string{"", "not-a-jwt", "a.b.c"} {
		if err := m.Validate(ctx, token); !errors.Is(err, ErrInvalidToken) {
			t.Errorf("Validate(%q) = %v, want ErrInvalidToken", token, err)
		}
	}

	// A token signed with a different key must not validate.
	other := newTestManager(t, time.Hour)
	other.signingKey = []byte("another-key-another-key-another!")
	forged, err := other.Login(ctx, "admin123456")
	if err != nil {
		t.Fatalf("Login on other manager: %v", err)
	}
	if err := m.Validate(ctx, forged); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("Validate(forged) = %v, want ErrInvalidToken", err)
	}
}

func TestValidateRejectsExpiredSession(t *testing.T) {
	m := newTestManager(t, -time.Minute)
	ctx := context.Background()

	token, err := m.Login(ctx, "admin123456")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if err := m.Validate(ctx, token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("Validate(expired) = %v, want ErrInvalidToken", err)
	}
}

func TestRevoke(t *testing.T) {
	m := newTestManager(t, time.Hour)
	ctx := context.Background()

	token, err := m.Login(ctx, "admin123456")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if err := m.Revoke(ctx, token); err != nil {
		t.Fatalf("Revoke: %v", err)
	}

	// The signature is still intact but the server-side session is gone.
	if err := m.Validate(ctx, token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("Validate after revoke = %v, want ErrInvalidToken", err)
	}

	if err := m.Revoke(ctx, token); err != nil {
		t.Fatalf("second Revoke: %v", err)
	}
}

func TestSessionsIndependent(t *testing.T) {
	m := newTestManager(t, time.Hour)
	ctx := context.Background()

	first, err := m.Login(ctx, "admin123456")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	second, err := m.Login(ctx, "admin123456")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}

	if err := m.Revoke(ctx, first); err != nil {
		t.Fatalf("Revoke: %v", err)
	}
	if err := m.Validate(ctx, second); err != nil {
		t.Fatalf("Validate(second) after revoking first = %v", err)
	}
}

func TestLoadOrCreateSigningKey(t *testing.T) {
	path := filepath.Join(t.TempDir(), "signing.key")

	key, err := LoadOrCreateSigningKey(path)
	if err != nil {
		t.Fatalf("LoadOrCreateSigningKey: %v", err)
	}
	if len(key) < 32 {
		t.Fatalf("key length = %d, want >= 32", len(key))
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("Stat: %v", err)
	}
	if info.Mode().Perm() != 0o600 {
		t.Errorf("key file mode = %v, want 0600", info.Mode().Perm())
	}

	again, err := LoadOrCreateSigningKey(path)
	if err != nil {
		t.Fatalf("second LoadOrCreateSigningKey: %v", err)
	}
	if string(again) != string(key) {
		t.Fatal("signing key changed between loads")
	}
}
