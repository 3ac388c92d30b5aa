package main

import (
	"errors"
	"path/filepath"
	"testing"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()

	store, err := openStore(filepath.Join(t.TempDir(), "boerenbridge.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	return store
}

func TestStorePutGet(t *testing.T) {
	store := newTestStore(t)

	game := newGame("game-123", "Thursday table", 7)
	if err := store.PutGame(scopeRooms, game); err != nil {
		t.Fatalf("put game: %v", err)
	}

	loaded, err := store.GetGame(scopeRooms, "game-123")
	if err != nil {
		t.Fatalf("get game: %v", err)
	}
	if loaded.ID != game.ID {
		t.Fatalf("expected id %q, got %q", game.ID, loaded.ID)
	}
	if loaded.Name != game.Name {
		t.Fatalf("expected name %q, got %q", game.Name, loaded.Name)
	}
	if len(loaded.TricksPerRound) != 14 {
		t.Fatalf("expected 14 rounds in sequence, got %d", len(loaded.TricksPerRound))
	}
}

func TestStoreScopesAreIsolated(t *testing.T) {
	store := newTestStore(t)

	game := newGame("game-123", "Thursday table", 7)
	if err := store.PutGame(scopeRooms, game); err != nil {
		t.Fatalf("put game: %v", err)
	}

	if _, err := store.GetGame(scopeLobby, "game-123"); !errors.Is(err, errGameNotFound) {
		t.Fatalf("expected errGameNotFound in lobby scope, got %v", err)
	}
}

func TestStoreGetMissing(t *testing.T) {
	store := newTestStore(t)

	if _, err := store.GetGame(scopeRooms, "nope"); !errors.Is(err, errGameNotFound) {
		t.Fatalf("expected errGameNotFound, got %v", err)
	}
}

func TestStoreDelete(t *testing.T) {
	store := newTestStore(t)

	game := newGame("game-123", "Thursday table", 7)
	if err := store.PutGame(scopeLobby, game); err != nil {
		t.Fatalf("put game: %v", err)
	}
	if err := store.DeleteGame(scopeLobby, "game-123"); err != nil {
		t.Fatalf("delete game: %v", err)
	}
	if _, err := store.GetGame(scopeLobby, "game-123"); !errors.Is(err, errGameNotFound) {
		t.Fatalf("expected errGameNotFound after delete, got %v", err)
	}
	if err := store.DeleteGame(scopeLobby, "game-123"); err != nil {
		t.Fatalf("double delete should be a no-op, got %v", err)
	}
}

func TestStoreList(t *testing.T) {
	store := newTestStore(t)

	for _, id := range []string{"a", "b", "c"} {
		if err := store.PutGame(scopeLobby, newGame(id, "table "+id, 3)); err != nil {
			t.Fatalf("put game %q: %v", id, err)
		}
	}

	games, err := store.ListGames(scopeLobby)
	if err != nil {
		t.Fatalf("list games: %v", err)
	}
	if len(games) != 3 {
		t.Fatalf("expected 3 games, got %d", len(games))
	}
}
