package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	// ErrAuth is the umbrella for every "cannot authenticate" condition.
	ErrAuth           = errors.New("session: not authenticated")
	ErrNoSession      = fmt.Errorf("%w: no stored session token", ErrAuth)
	ErrSessionExpired = fmt.Errorf("%w: session token expired", ErrAuth)
)

// AuthProvider hands out the bearer token for authenticated calls.
type AuthProvider interface {
	Token(ctx context.Context) (string, error)
}

// StaticToken is an AuthProvider for a token known up front (env, tests).
type StaticToken string

func (t StaticToken) Token(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	tok := strings.TrimSpace(string(t))
	if tok == "" {
		return "", ErrNoSession
	}
	if err := checkExpiry(tok, time.Now()); err != nil {
		return "", err
	}
	return tok, nil
}

type User struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Role string `json:"role"`
}

// Session is what a successful login leaves behind.
type Session struct {
	Token   string    `json:"token"`
	User    User      `json:"user"`
	SavedAt time.Time `json:"savedAt"`
}

// FileStore persists sessions in a JSON file keyed by namespace, so several
// apps (or several backends) can share one file without clobbering each other.
type FileStore struct {
	Path string
	Key  string

	// Now is used for expiry checks; nil means time.Now.
	Now func() time.Time

	mu sync.Mutex
}

func NewFileStore(path, key string) *FileStore {
	return &FileStore{Path: path, Key: key}
}

func (s *FileStore) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// Load returns the stored session, or ErrNoSession.
func (s *FileStore) Load() (*Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	all, err := s.readAll()
	if err != nil {
		return nil, err
	}
	raw, ok := all[s.Key]
	if !ok {
		return nil, ErrNoSession
	}
	var sess Session
	if err := json.Unmarshal(raw, &sess); err != nil {
		return nil, fmt.Errorf("session: decode %q: %w", s.Key, err)
	}
	return &sess, nil
}

func (s *FileStore) Save(sess Session) error {
	if strings.TrimSpace(sess.Token) == "" {
		return errors.New("session: refusing to save empty token")
	}
	if sess.SavedAt.IsZero() {
		sess.SavedAt = s.now().UTC()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	all, err := s.readAll()
	if err != nil {
		return err
	}
	b, err := json.Marshal(sess)
	if err != nil {
		return err
	}
	all[s.Key] = b
	return s.writeAll(all)
}

// Clear removes this store's key; other namespaces in the file are kept.
func (s *FileStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	all, err := s.readAll()
	if err != nil {
		return err
	}
	if _, ok := all[s.Key]; !ok {
		return nil
	}
	delete(all, s.Key)
	return s.writeAll(all)
}

// Token implements AuthProvider. It is read from disk on every call so a
// login in another process is picked up without restarting.
func (s *FileStore) Token(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	sess, err := s.Load()
	if err != nil {
		return "", err
	}
	tok := strings.TrimSpace(sess.Token)
	if tok == "" {
		return "", ErrNoSession
	}
	if err := checkExpiry(tok, s.now()); err != nil {
		return "", err
	}
	return tok, nil
}

func (s *FileStore) readAll() (map[string]json.RawMessage, error) {
	all := map[string]json.RawMessage{}
	b, err := os.ReadFile(s.Path)
	if errors.Is(err, fs.ErrNotExist) {
		return all, nil
	}
	if err != nil {
		return nil, fmt.Errorf("session: read %s: %w", s.Path, err)
	}
	if len(strings.TrimSpace(string(b))) == 0 {
		return all, nil
	}
	if err := json.Unmarshal(b, &all); err != nil {
		return nil, fmt.Errorf("session: parse %s: %w", s.Path, err)
	}
	return all, nil
}

func (s *FileStore) writeAll(all map[string]json.RawMessage) error {
	if dir := filepath.Dir(s.Path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return fmt.Errorf("session: mkdir %s: %w", dir, err)
		}
	}
	b, err := json.MarshalIndent(all, "", "  ")
	if err != nil {
		return err
	}
	tmp := s.Path + ".tmp"
	if err := os.WriteFile(tmp, b, 0o600); err != nil {
		return fmt.Errorf("session: write %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, s.Path); err != nil {
		return fmt.Errorf("session: replace %s: %w", s.Path, err)
	}
	return nil
}

// checkExpiry rejects JWTs whose exp is in the past. The signature is not
// verified here (the backend does that); opaque tokens pass through.
func checkExpiry(tok string, now time.Time) error {
	if strings.Count(tok, ".") != 2 {
		return nil
	}
	claims := jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(tok, &claims); err != nil {
		return nil
	}
	if claims.ExpiresAt != nil && !now.Before(claims.ExpiresAt.Time) {
		return ErrSessionExpired
	}
	return nil
}
