package session

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func signedToken(t *testing.T, exp time.Time) string {
	t.Helper()
	claims := jwt.RegisteredClaims{
		Subject:   "manager-1",
		ExpiresAt: jwt.NewNumericDate(exp),
		IssuedAt:  jwt.NewNumericDate(exp.Add(-24 * time.Hour)),
	}
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return tok
}

func TestFileStoreRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "session.json")
	store := NewFileStore(path, "salon:session")

	if _, err := store.Token(context.Background()); !errors.Is(err, ErrNoSession) {
		t.Fatalf("Expected ErrNoSession before login, got %v", err)
	}

	tok := signedToken(t, time.Now().Add(time.Hour))
	if err := store.Save(Session{Token: tok, User: User{ID: "7", Name: "Hina", Role: "manager"}}); err != nil {
		t.Fatalf("Save: %v", err)
	}

	got, err := store.Token(context.Background())
	if err != nil {
		t.Fatalf("Token: %v", err)
	}
	if got != tok {
		t.Errorf("Expected stored token back, got %q", got)
	}

	sess, err := store.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if sess.User.Role != "manager" || sess.SavedAt.IsZero() {
		t.Errorf("Unexpected session %+v", sess)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if info.Mode().Perm() != 0o600 {
		t.Errorf("Expected session file mode 0600, got %v", info.Mode().Perm())
	}
}

func TestFileStoreNamespaces(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.json")
	a := NewFileStore(path, "salon:session")
	b := NewFileStore(path, "other:session")

	if err := a.Save(Session{Token: "opaque-a"}); err != nil {
		t.Fatal(err)
	}
	if err := b.Save(Session{Token: "opaque-b"}); err != nil {
		t.Fatal(err)
	}

	if err := a.Clear(); err != nil {
		t.Fatal(err)
	}
	if _, err := a.Token(context.Background()); !errors.Is(err, ErrNoSession) {
		t.Errorf("Expected cleared namespace to have no session, got %v", err)
	}
	if tok, err := b.Token(context.Background()); err != nil || tok != "opaque-b" {
		t.Errorf("Expected other namespace untouched, got %q (err=%v)", tok, err)
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	var all map[string]json.RawMessage
	if err := json.Unmarshal(raw, &all); err != nil {
		t.Fatal(err)
	}
	if len(all) != 1 {
		t.Errorf("Expected one namespace left in file, got %d", len(all))
	}
}

func TestFileStoreExpiredToken(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.json")
	store := NewFileStore(path, "salon:session")

	if err := store.Save(Session{Token: signedToken(t, time.Now().Add(-time.Minute))}); err != nil {
		t.Fatal(err)
	}

	_, err := store.Token(context.Background())
	if !errors.Is(err, ErrSessionExpired) {
		t.Errorf("Expected ErrSessionExpired, got %v", err)
	}
	if !errors.Is(err, ErrAuth) {
		t.Errorf("Expected expired session to be an ErrAuth, got %v", err)
	}
}

func TestFileStoreClockOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.json")
	exp := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	store := NewFileStore(path, "k")
	store.Now = func() time.Time { return exp.Add(-time.Second) }

	if err := store.Save(Session{Token: signedToken(t, exp)}); err != nil {
		t.Fatal(err)
	}
	if _, err := store.Token(context.Background()); err != nil {
		t.Errorf("Expected token valid one second before exp, got %v", err)
	}

	store.Now = func() time.Time { return exp }
	if _, err := store.Token(context.Background()); !errors.Is(err, ErrSessionExpired) {
		t.Errorf("Expected token expired at exp, got %v", err)
	}
}

func TestFileStoreCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o600); err != nil {
		t.Fatal(err)
	}

	store := NewFileStore(path, "salon:session")
	if _, err := store.Token(context.Background()); err == nil {
		t.Error("Expected error for corrupt session file")
	}
}

func TestSaveRejectsEmptyToken(t *testing.T) {
	store := NewFileStore(filepath.Join(t.TempDir(), "s.json"), "k")
	if err := store.Save(Session{}); err == nil {
		t.Error("Expected error saving empty token")
	}
}

func TestStaticToken(t *testing.T) {
	if _, err := StaticToken("").Token(context.Background()); !errors.Is(err, ErrNoSession) {
		t.Errorf("Expected ErrNoSession for empty static token, got %v", err)
	}

	tok, err := StaticToken(" abc ").Token(context.Background())
	if err != nil || tok != "abc" {
		t.Errorf("Expected trimmed token 'abc', got %q (err=%v)", tok, err)
	}

	expired := StaticToken(signedToken(t, time.Now().Add(-time.Hour)))
	if _, err := expired.Token(context.Background()); !errors.Is(err, ErrSessionExpired) {
		t.Errorf("Expected ErrSessionExpired for expired static token, got %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := StaticToken("abc").Token(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled, got %v", err)
	}
}
