package main

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig() *Config {
	return &Config{
		rounds:      7,
		syncTimeout: time.Second,
	}
}

// fakeClient builds a client with no underlying socket; actor tests read
// outbound frames straight from the send channel.
func fakeClient(connID string) *Client {
	return &Client{
		send:   make(chan any, 8),
		connID: connID,
	}
}

func waitFrame(t *testing.T, c *Client) any {
	t.Helper()

	select {
	case msg, ok := <-c.send:
		if !ok {
			t.Fatalf("send channel closed while waiting for a frame")
		}
		return msg
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for a frame")
		return nil
	}
}

func newTestLobby(t *testing.T) (*Lobby, *RoomManager, *Store) {
	t.Helper()

	cfg := testConfig()
	store := newTestStore(t)
	lobby := newLobby(cfg, store)
	sync := &lobbySync{cfg: cfg, lobby: lobby}
	manager := newRoomManager(cfg, store, sync)
	lobby.seeder = manager
	go lobby.run()

	return lobby, manager, store
}

func TestLobbyCreateGameRequiresName(t *testing.T) {
	lobby, _, _ := newTestLobby(t)

	_, err := lobby.CreateGame("", 0)
	require.Error(t, err)
	assert.True(t, isValidationError(err))
}

func TestLobbyCreateGamePersistsAndSeeds(t *testing.T) {
	lobby, _, store := newTestLobby(t)

	game, err := lobby.CreateGame("Friday night", 3)
	require.NoError(t, err)
	require.NotEmpty(t, game.ID)
	assert.Equal(t, "Friday night", game.Name)
	assert.Equal(t, 3, game.TotalRounds)
	assert.Equal(t, []int{1, 2, 3, 3, 2, 1}, game.TricksPerRound)
	assert.Equal(t, statusPredicting, game.Status)
	assert.False(t, game.Started)

	// Persisted in the lobby's own bucket and seeded into the room scope.
	if _, err := store.GetGame(scopeLobby, game.ID); err != nil {
		t.Fatalf("game missing from lobby scope: %v", err)
	}
	if _, err := store.GetGame(scopeRooms, game.ID); err != nil {
		t.Fatalf("game missing from rooms scope: %v", err)
	}

	rooms, err := lobby.ListRooms()
	require.NoError(t, err)
	require.Len(t, rooms, 1)
	assert.Equal(t, game.ID, rooms[0].ID)
}

func TestLobbyCreateGameDefaultsRounds(t *testing.T) {
	lobby, _, _ := newTestLobby(t)

	game, err := lobby.CreateGame("Friday night", 0)
	require.NoError(t, err)
	assert.Equal(t, 7, game.TotalRounds)
	assert.Len(t, game.TricksPerRound, 14)
}

func TestLobbyCreateGameRejectsOversizedRounds(t *testing.T) {
	lobby, _, store := newTestLobby(t)

	// An unbounded round count would have the lobby actor build and
	// persist a multi-million-element tricks sequence on one request.
	_, err := lobby.CreateGame("big table", 5_000_000)
	require.Error(t, err)
	assert.True(t, isValidationError(err))

	_, err = lobby.CreateGame("still too big", maxTotalRounds+1)
	require.Error(t, err)
	assert.True(t, isValidationError(err))

	game, err := lobby.CreateGame("at the cap", maxTotalRounds)
	require.NoError(t, err)
	assert.Len(t, game.TricksPerRound, 2*maxTotalRounds)

	games, err := store.ListGames(scopeLobby)
	require.NoError(t, err)
	assert.Len(t, games, 1)
}

func TestLobbySubscriberGetsSnapshotThenUpdates(t *testing.T) {
	lobby, _, _ := newTestLobby(t)

	client := fakeClient("conn-lobby")
	lobby.register <- client

	// Directory snapshot arrives immediately on subscribe.
	frame := waitFrame(t, client)
	update, ok := frame.(roomsUpdateMessage)
	require.True(t, ok, "expected roomsUpdate, got %T", frame)
	assert.Empty(t, update.Rooms)

	_, err := lobby.CreateGame("Friday night", 0)
	require.NoError(t, err)

	frame = waitFrame(t, client)
	update, ok = frame.(roomsUpdateMessage)
	require.True(t, ok, "expected roomsUpdate, got %T", frame)
	assert.Len(t, update.Rooms, 1)

	lobby.unreg <- client
}

func TestLobbyListFiltersStartedAndSortsNewestFirst(t *testing.T) {
	lobby, _, _ := newTestLobby(t)

	older := newGame("older", "first table", 3)
	older.CreatedAt = 1000
	newer := newGame("newer", "second table", 3)
	newer.CreatedAt = 2000
	started := newGame("started", "running table", 3)
	started.CreatedAt = 3000
	started.Started = true

	lobby.syncs <- older
	lobby.syncs <- newer
	lobby.syncs <- started

	rooms, err := lobby.ListRooms()
	require.NoError(t, err)
	require.Len(t, rooms, 2)
	assert.Equal(t, "newer", rooms[0].ID)
	assert.Equal(t, "older", rooms[1].ID)
}

func TestLobbySyncUpsertsAndDeleteRemoves(t *testing.T) {
	lobby, _, store := newTestLobby(t)

	game := newGame("game-1", "table", 3)
	lobby.syncs <- game

	updated := game.clone()
	require.NoError(t, updated.Join("conn-1", "", "alice"))
	lobby.syncs <- updated

	rooms, err := lobby.ListRooms()
	require.NoError(t, err)
	require.Len(t, rooms, 1)
	assert.Len(t, rooms[0].Players, 1)

	lobby.deletes <- "game-1"

	require.Eventually(t, func() bool {
		rooms, err := lobby.ListRooms()
		return err == nil && len(rooms) == 0
	}, 2*time.Second, 10*time.Millisecond)

	if _, err := store.GetGame(scopeLobby, "game-1"); err == nil {
		t.Fatalf("expected game deleted from lobby scope")
	}
}

func TestLobbyLoadsDirectoryOnColdStart(t *testing.T) {
	cfg := testConfig()
	store := newTestStore(t)

	game := newGame("game-1", "table", 3)
	require.NoError(t, store.PutGame(scopeLobby, game))

	lobby := newLobby(cfg, store)
	sync := &lobbySync{cfg: cfg, lobby: lobby}
	lobby.seeder = newRoomManager(cfg, store, sync)
	go lobby.run()

	rooms, err := lobby.ListRooms()
	require.NoError(t, err)
	require.Len(t, rooms, 1)
	assert.Equal(t, "game-1", rooms[0].ID)
}
