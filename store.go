package main

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"time"

	"go.etcd.io/bbolt"
)

// Storage scopes. Each actor persists into its own bucket: a room owns the
// authoritative copy of its game under scopeRooms, while the lobby keeps an
// advisory cache of every game under scopeLobby. There is never more than
// one writer per key within a scope.
const (
	scopeRooms = "rooms"
	scopeLobby = "lobby"
)

// Store is a bbolt-backed key-value store holding one serialized Game per
// game id, per scope.
type Store struct {
	db *bbolt.DB
}

// openStore opens (or creates) the database file and its buckets.
func openStore(path string) (*Store, error) {
	if path == "" {
		return nil, fmt.Errorf("storage path is required")
	}

	db, err := bbolt.Open(filepath.Clean(path), 0o600, &bbolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("open storage db: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		for _, scope := range []string{scopeRooms, scopeLobby} {
			if _, err := tx.CreateBucketIfNotExists([]byte(scope)); err != nil {
				return fmt.Errorf("create bucket %q: %w", scope, err)
			}
		}
		return nil
	})
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// PutGame persists a game under its id.
func (s *Store) PutGame(scope string, game *Game) error {
	if game == nil || game.ID == "" {
		return fmt.Errorf("game id is required")
	}

	payload, err := json.Marshal(game)
	if err != nil {
		return fmt.Errorf("marshal game: %w", err)
	}

	return s.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(scope))
		if bucket == nil {
			return fmt.Errorf("bucket %q is missing", scope)
		}
		return bucket.Put([]byte(game.ID), payload)
	})
}

// GetGame fetches a game by id, returning errGameNotFound for a missing key.
func (s *Store) GetGame(scope, id string) (*Game, error) {
	if id == "" {
		return nil, fmt.Errorf("game id is required")
	}

	var game Game
	err := s.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(scope))
		if bucket == nil {
			return fmt.Errorf("bucket %q is missing", scope)
		}
		payload := bucket.Get([]byte(id))
		if payload == nil {
			return errGameNotFound
		}
		if err := json.Unmarshal(payload, &game); err != nil {
			return fmt.Errorf("unmarshal game %q: %w", id, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return &game, nil
}

// DeleteGame removes a game by id. Deleting an absent key is not an error.
func (s *Store) DeleteGame(scope, id string) error {
	if id == "" {
		return fmt.Errorf("game id is required")
	}

	return s.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(scope))
		if bucket == nil {
			return fmt.Errorf("bucket %q is missing", scope)
		}
		return bucket.Delete([]byte(id))
	})
}

// ListGames returns every game persisted in a scope, in key order.
func (s *Store) ListGames(scope string) ([]*Game, error) {
	var games []*Game
	err := s.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(scope))
		if bucket == nil {
			return fmt.Errorf("bucket %q is missing", scope)
		}
		return bucket.ForEach(func(k, v []byte) error {
			var game Game
			if err := json.Unmarshal(v, &game); err != nil {
				return fmt.Errorf("unmarshal game %q: %w", k, err)
			}
			games = append(games, &game)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	return games, nil
}
