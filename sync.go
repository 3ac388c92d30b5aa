package main

// Cross-actor sync protocol. Room actors push full-state copies of their
// game to the lobby actor after every successful mutation; the lobby absorbs
// them as idempotent last-write-wins upserts. Calls are best effort with a
// bounded timeout: a room's queue must never stall because the lobby is
// busy, so failures are logged and forgotten. Consistency self-heals on the
// next successful sync or on the next cold-start recovery.

import (
	"log"
	"time"
)

type lookupRequest struct {
	id    string
	reply chan *Game
}

// lobbySync is the handle a room actor uses to talk to the lobby actor.
type lobbySync struct {
	cfg   *Config
	lobby *Lobby
}

// Sync pushes a game's current state to the lobby directory, fire and forget.
func (ls *lobbySync) Sync(game *Game) {
	copied := game.clone()
	if copied == nil {
		log.Printf("%s | ERROR: sync: cannot clone game %s", time.Now().Format(logDate), game.ID)
		return
	}

	select {
	case ls.lobby.syncs <- copied:
	case <-time.After(ls.cfg.syncTimeout):
		log.Printf("%s | ERROR: sync: lobby unavailable, directory entry for %s is stale", time.Now().Format(logDate), game.ID)
	}
}

// Delete tells the lobby a game is gone, fire and forget.
func (ls *lobbySync) Delete(gameID string) {
	select {
	case ls.lobby.deletes <- gameID:
	case <-time.After(ls.cfg.syncTimeout):
		log.Printf("%s | ERROR: sync: lobby unavailable, stale directory entry for deleted game %s", time.Now().Format(logDate), gameID)
	}
}

// Lookup asks the lobby directory for its cached copy of a game. Used by a
// cold-started room actor that has lost its own storage. Returns
// errGameNotFound when the lobby does not answer in time or has no record.
func (ls *lobbySync) Lookup(gameID string) (*Game, error) {
	req := lookupRequest{
		id:    gameID,
		reply: make(chan *Game, 1),
	}

	select {
	case ls.lobby.lookups <- req:
	case <-time.After(ls.cfg.syncTimeout):
		return nil, errGameNotFound
	}

	select {
	case game := <-req.reply:
		if game == nil {
			return nil, errGameNotFound
		}
		return game, nil
	case <-time.After(ls.cfg.syncTimeout):
		return nil, errGameNotFound
	}
}
