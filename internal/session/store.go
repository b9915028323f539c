package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/cockroachdb/pebble/v2"
)

var ErrNoSession = errors.New("no stored session")

var sessionKey = []byte("session/current")

// Store keeps the session in a local pebble database.
type Store struct {
	db *pebble.DB
}

func Open(dir string) (*Store, error) {
	db, err := pebble.Open(filepath.Clean(dir), &pebble.Options{})
	if err != nil {
		return nil, fmt.Errorf("failed to open session store: %w", err)
	}

	return &Store{db: db}, nil
}

func (s *Store) Load() (Session, error) {
	data, closer, err := s.db.Get(sessionKey)
	if err != nil {
		if errors.Is(err, pebble.ErrNotFound) {
			return Session{}, ErrNoSession
		}
		return Session{}, fmt.Errorf("failed to read session: %w", err)
	}
	defer closer.Close()

	var sess Session
	if err := json.Unmarshal(data, &sess); err != nil {
		return Session{}, fmt.Errorf("failed to decode session: %w", err)
	}
	if sess.Token == "" {
		return Session{}, ErrNoSession
	}

	return sess, nil
}

func (s *Store) Save(sess Session) error {
	data, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("failed to encode session: %w", err)
	}

	if err := s.db.Set(sessionKey, data, pebble.Sync); err != nil {
		return fmt.Errorf("failed to write session: %w", err)
	}

	return nil
}

func (s *Store) Clear() error {
	if err := s.db.Delete(sessionKey, pebble.Sync); err != nil {
		return fmt.Errorf("failed to clear session: %w", err)
	}

	return nil
}

func (s *Store) Close() error {
	return s.db.Close()
}
