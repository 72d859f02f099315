// Package credential owns the single live authentication token.
package credential

import (
	"fmt"
	"sync"
	"time"

	"github.com/neilberkman/eqviz/internal/core/db"
)

// Store is the only writer of the credential. Set and Clear are visible to
// the next Get immediately.
type Store interface {
	Get() (string, bool)
	Set(token string) error
	Clear() error
}

// Identity is what the store knows about the logged-in user
type Identity struct {
	Username string
	Since    time.Time
}

// SQLiteStore keeps the token in memory and writes it through to the local
// database so a restart restores the session.
type SQLiteStore struct {
	mu       sync.RWMutex
	db       *db.DB
	token    string
	identity Identity
}

// NewSQLiteStore loads any persisted credential. An unreadable database is
// returned as an error; the caller should treat it as fatal.
func NewSQLiteStore(database *db.DB) (*SQLiteStore, error) {
	s := &SQLiteStore{db: database}
	stored, err := database.LoadCredential()
	if err != nil {
		return nil, fmt.Errorf("failed to load credential: %w", err)
	}
	if stored != nil {
		s.token = stored.Token
		s.identity = Identity{Username: stored.Username, Since: stored.SavedAt}
	}
	return s, nil
}

func (s *SQLiteStore) Get() (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token, s.token != ""
}

func (s *SQLiteStore) Set(token string) error {
	return s.SetFor(token, "")
}

// SetFor stores the token together with the username it was issued to
func (s *SQLiteStore) SetFor(token, username string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.db.SaveCredential(token, username); err != nil {
		return fmt.Errorf("failed to persist credential: %w", err)
	}
	s.token = token
	s.identity = Identity{Username: username, Since: time.Now()}
	return nil
}

func (s *SQLiteStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.db.DeleteCredential(); err != nil {
		return fmt.Errorf("failed to delete credential: %w", err)
	}
	s.token = ""
	s.identity = Identity{}
	return nil
}

// Whoami returns the identity of the stored credential, if any
func (s *SQLiteStore) Whoami() (Identity, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.identity, s.token != ""
}

// MemoryStore is a non-persistent Store
type MemoryStore struct {
	mu    sync.RWMutex
	token string

	sets   int
	clears int
}

func NewMemoryStore(token string) *MemoryStore {
	return &MemoryStore{token: token}
}

func (s *MemoryStore) Get() (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token, s.token != ""
}

func (s *MemoryStore) Set(token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = token
	s.sets++
	return nil
}

func (s *MemoryStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = ""
	s.clears++
	return nil
}

// Writes reports how many times Set and Clear were called
func (s *MemoryStore) Writes() (sets, clears int) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sets, s.clears
}
