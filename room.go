package main

import (
	"errors"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/julienschmidt/httprouter"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Client is one websocket connection. connID is the transport identity: it
// changes on every reconnect and only seeds a player's stable id on their
// very first join.
type Client struct {
	conn   *websocket.Conn
	send   chan any
	connID string
}

func newClient(conn *websocket.Conn) *Client {
	return &Client{
		conn:   conn,
		send:   make(chan any, 8),
		connID: uuid.NewString(),
	}
}

// trySend queues a message without blocking the calling actor. A full send
// buffer means the client is too slow to keep; the caller drops it.
func (c *Client) trySend(msg any) bool {
	select {
	case c.send <- msg:
		return true
	default:
		return false
	}
}

func (c *Client) writePump() {
	defer c.conn.Close()

	for msg := range c.send {
		if err := c.conn.WriteJSON(msg); err != nil {
			return
		}
	}
}

type inboundFrame struct {
	client *Client
	raw    []byte
}

// Room is the actor owning exactly one game. All mutations flow through its
// channels and are processed strictly one at a time by run, so any two
// connections in the same room always observe identical state.
type Room struct {
	id      string
	cfg     *Config
	store   *Store
	lobby   *lobbySync
	manager *RoomManager

	game *Game

	clients   map[*Client]bool
	register  chan *Client
	unreg     chan *Client
	inbound   chan inboundFrame
	seeds     chan *Game
	snapshots chan chan *Game
	done      chan struct{}
}

func newRoom(id string, m *RoomManager) *Room {
	return &Room{
		id:        id,
		cfg:       m.cfg,
		store:     m.store,
		lobby:     m.lobby,
		manager:   m,
		clients:   make(map[*Client]bool),
		register:  make(chan *Client),
		unreg:     make(chan *Client),
		inbound:   make(chan inboundFrame),
		seeds:     make(chan *Game, 1),
		snapshots: make(chan chan *Game),
		done:      make(chan struct{}),
	}
}

func (r *Room) run() {
	r.recoverGame()

	for {
		select {
		case c := <-r.register:
			if r.game == nil {
				c.trySend(newErrorMessage(errGameNotFound))
				close(c.send)
				if r.idle() {
					r.shutdown()
					return
				}
				continue
			}

			r.clients[c] = true
			c.trySend(gameStateMessage{
				Type:         "gameState",
				Game:         r.game.clone(),
				ConnectionID: c.connID,
			})

		case c := <-r.unreg:
			if _, ok := r.clients[c]; ok {
				delete(r.clients, c)
				close(c.send)
			}

		case f := <-r.inbound:
			if done := r.handleFrame(f); done || r.idle() {
				r.shutdown()
				return
			}

		case game := <-r.seeds:
			// Seeded by the lobby on create. The room's own copy always
			// wins once loaded; a seed never overwrites it.
			if r.game == nil {
				r.game = game
				logf(r.cfg, "ROOM: %s seeded from lobby", r.id)
			}

		case reply := <-r.snapshots:
			if r.game == nil {
				reply <- nil
				if r.idle() {
					r.shutdown()
					return
				}
				continue
			}
			reply <- r.game.clone()
		}
	}
}

// idle reports whether the room has nothing left to serve: no game to run
// and no connections to answer. An idle actor shuts down rather than sit in
// the manager forever just because someone probed an unknown id.
func (r *Room) idle() bool {
	return r.game == nil && len(r.clients) == 0
}

// recoverGame loads the room's game before any message is served: own
// storage first, then the lobby's cached copy (seeding local storage from
// it). If both come up empty the room answers "game not found" and shuts
// down once no connections remain.
func (r *Room) recoverGame() {
	game, err := r.store.GetGame(scopeRooms, r.id)
	if err == nil {
		r.game = game
		logf(r.cfg, "ROOM: %s loaded from storage (%d players)", r.id, len(game.Players))
		return
	}
	if !errors.Is(err, errGameNotFound) {
		log.Printf("%s | ERROR: room %s: load game: %v", time.Now().Format(logDate), r.id, err)
	}

	game, err = r.lobby.Lookup(r.id)
	if err != nil {
		logf(r.cfg, "ROOM: %s not found in storage or lobby", r.id)
		return
	}

	r.game = game
	if err := r.store.PutGame(scopeRooms, game); err != nil {
		log.Printf("%s | ERROR: room %s: seed storage from lobby copy: %v", time.Now().Format(logDate), r.id, err)
	}
	logf(r.cfg, "ROOM: %s recovered from lobby directory", r.id)
}

// handleFrame processes one inbound message. It reports true when the game
// was deleted and the actor should shut down.
func (r *Room) handleFrame(f inboundFrame) bool {
	if r.game == nil {
		f.client.trySend(newErrorMessage(errGameNotFound))
		return false
	}

	msg, err := parseClientMessage(f.raw)
	if err != nil {
		f.client.trySend(newErrorMessage(err))
		return false
	}

	empty := false

	switch msg.Type {
	case msgJoinGame:
		err = r.game.Join(f.client.connID, msg.PlayerID, msg.PlayerName)
	case msgLeaveGame:
		empty, err = r.game.Leave(msg.PlayerID)
	case msgStartGame:
		err = r.game.Start()
	case msgUpdatePrediction:
		err = r.game.UpdatePrediction(msg.PlayerID, *msg.Tricks)
	case msgConfirmPrediction:
		err = r.game.ConfirmPrediction(msg.PlayerID, *msg.Tricks)
	case msgSubmitTricks:
		err = r.game.SubmitTricks(msg.PlayerID, msg.Predicted, *msg.Actual)
	case msgConfirmRound:
		err = r.game.ConfirmRound(msg.PlayerID)
	case msgEditRound:
		err = r.game.EditRound(*msg.RoundNumber)
	}

	if err != nil {
		// Validation failures go back to the requester only and leave the
		// game untouched.
		f.client.trySend(newErrorMessage(err))
		return false
	}

	logf(r.cfg, "ROOM: %s processed %s", r.id, msg.Type)

	if empty {
		r.deleteGame()
		return true
	}

	// Persist, then broadcast regardless: a storage failure is transient
	// and the in-memory state is still the truth for this room.
	if err := r.store.PutGame(scopeRooms, r.game); err != nil {
		log.Printf("%s | ERROR: room %s: persist game: %v", time.Now().Format(logDate), r.id, err)
	}

	r.broadcastState()
	r.lobby.Sync(r.game)

	return false
}

func (r *Room) broadcastState() {
	msg := gameStateMessage{
		Type: "gameState",
		Game: r.game.clone(),
	}

	for client := range r.clients {
		if !client.trySend(msg) {
			delete(r.clients, client)
			close(client.send)
		}
	}
}

// deleteGame removes an emptied game from the room's storage and the lobby
// directory.
func (r *Room) deleteGame() {
	if err := r.store.DeleteGame(scopeRooms, r.id); err != nil {
		log.Printf("%s | ERROR: room %s: delete game: %v", time.Now().Format(logDate), r.id, err)
	}
	r.lobby.Delete(r.id)
	r.game = nil

	logf(r.cfg, "ROOM: %s deleted (last player left)", r.id)
}

func (r *Room) shutdown() {
	r.manager.remove(r.id)
	for c := range r.clients {
		close(c.send)
		delete(r.clients, c)
	}
	close(r.done)
}

// Snapshot returns a copy of the current game state, or errGameNotFound if
// the room has no game or is gone.
func (r *Room) Snapshot() (*Game, error) {
	reply := make(chan *Game, 1)

	select {
	case r.snapshots <- reply:
	case <-r.done:
		return nil, errGameNotFound
	case <-time.After(r.cfg.syncTimeout):
		return nil, errLobbyBusy
	}

	select {
	case game := <-reply:
		if game == nil {
			return nil, errGameNotFound
		}
		return game, nil
	case <-r.done:
		return nil, errGameNotFound
	}
}

func (r *Room) readPump(c *Client) {
	defer func() {
		select {
		case r.unreg <- c:
		case <-r.done:
		}
		_ = c.conn.Close()
	}()

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			return
		}

		select {
		case r.inbound <- inboundFrame{client: c, raw: raw}:
		case <-r.done:
			return
		}
	}
}

// RoomManager hands out the single live actor per game id.
type RoomManager struct {
	cfg   *Config
	store *Store
	lobby *lobbySync

	mu    sync.Mutex
	rooms map[string]*Room
}

func newRoomManager(cfg *Config, store *Store, lobby *lobbySync) *RoomManager {
	return &RoomManager{
		cfg:   cfg,
		store: store,
		lobby: lobby,
		rooms: make(map[string]*Room),
	}
}

func (m *RoomManager) get(gameID string) *Room {
	m.mu.Lock()
	defer m.mu.Unlock()

	if room, ok := m.rooms[gameID]; ok {
		return room
	}

	room := newRoom(gameID, m)
	m.rooms[gameID] = room
	go room.run()

	return room
}

func (m *RoomManager) remove(gameID string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.rooms, gameID)
}

// Seed writes a newly created game into the rooms scope and, if an actor is
// already alive for that id, hands the copy to it directly.
func (m *RoomManager) Seed(game *Game) error {
	if err := m.store.PutGame(scopeRooms, game); err != nil {
		return err
	}

	m.mu.Lock()
	room, ok := m.rooms[game.ID]
	m.mu.Unlock()

	if ok {
		select {
		case room.seeds <- game:
		case <-room.done:
		default:
		}
	}

	return nil
}

// serveRoomWS upgrades a connection and attaches it to the game's actor.
func serveRoomWS(cfg *Config, manager *RoomManager, errs chan<- error) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		gameID := ps.ByName("gameid")
		if gameID == "" {
			http.Error(w, "missing game id", http.StatusBadRequest)
			return
		}

		room := manager.get(gameID)

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			errs <- err
			return
		}

		client := newClient(conn)

		select {
		case room.register <- client:
		case <-room.done:
			_ = conn.Close()
			return
		}

		logf(cfg, "ROOM: Connection %s joined %s from %s", client.connID, gameID, realIP(r))

		go client.writePump()
		room.readPump(client)
	}
}

// serveLobbyWS subscribes a connection to directory updates. Lobby clients
// never send anything meaningful; the read loop only watches for close.
func serveLobbyWS(cfg *Config, lobby *Lobby, errs chan<- error) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			errs <- err
			return
		}

		client := newClient(conn)
		lobby.register <- client

		logf(cfg, "LOBBY: Connection %s subscribed from %s", client.connID, realIP(r))

		go client.writePump()

		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				break
			}
		}

		lobby.unreg <- client
		_ = conn.Close()
	}
}
