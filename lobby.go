package main

import (
	"log"
	"slices"
	"time"

	"github.com/google/uuid"
)

type createRequest struct {
	name      string
	maxRounds int
	reply     chan createReply
}

type createReply struct {
	game *Game
	err  error
}

// gameSeeder plants a freshly created game into the room side's storage so
// the room actor finds it on first load.
type gameSeeder interface {
	Seed(game *Game) error
}

// Lobby is the singleton directory actor. It owns the list of joinable
// games, serves discovery queries and absorbs state pushed by room actors.
// All state behind the channels is touched only by the run goroutine.
type Lobby struct {
	cfg    *Config
	store  *Store
	seeder gameSeeder

	games   map[string]*Game
	clients map[*Client]bool

	register chan *Client
	unreg    chan *Client
	creates  chan createRequest
	syncs    chan *Game
	deletes  chan string
	lookups  chan lookupRequest
	lists    chan chan []*Game
}

func newLobby(cfg *Config, store *Store) *Lobby {
	return &Lobby{
		cfg:      cfg,
		store:    store,
		games:    make(map[string]*Game),
		clients:  make(map[*Client]bool),
		register: make(chan *Client),
		unreg:    make(chan *Client),
		creates:  make(chan createRequest),
		syncs:    make(chan *Game),
		deletes:  make(chan string),
		lookups:  make(chan lookupRequest),
		lists:    make(chan chan []*Game),
	}
}

func (l *Lobby) run() {
	l.loadGames()

	for {
		select {
		case c := <-l.register:
			l.clients[c] = true

			// New subscribers get the current directory immediately
			// rather than waiting for the next change.
			c.trySend(roomsUpdateMessage{
				Type:  "roomsUpdate",
				Rooms: l.availableRooms(),
			})

		case c := <-l.unreg:
			if _, ok := l.clients[c]; ok {
				delete(l.clients, c)
				close(c.send)
			}

		case req := <-l.creates:
			req.reply <- l.handleCreate(req)

		case game := <-l.syncs:
			// Idempotent last-write-wins upsert: syncs from a busy room
			// may arrive out of order, but each carries full state.
			l.games[game.ID] = game
			if err := l.store.PutGame(scopeLobby, game); err != nil {
				log.Printf("%s | ERROR: lobby: persist game %s: %v", time.Now().Format(logDate), game.ID, err)
			}
			l.broadcastRooms()

		case gameID := <-l.deletes:
			delete(l.games, gameID)
			if err := l.store.DeleteGame(scopeLobby, gameID); err != nil {
				log.Printf("%s | ERROR: lobby: delete game %s: %v", time.Now().Format(logDate), gameID, err)
			}
			l.broadcastRooms()

		case req := <-l.lookups:
			if game, ok := l.games[req.id]; ok {
				req.reply <- game.clone()
			} else {
				req.reply <- nil
			}

		case reply := <-l.lists:
			reply <- l.availableRooms()
		}
	}
}

// loadGames rebuilds the directory cache from the lobby's own bucket on a
// cold start.
func (l *Lobby) loadGames() {
	games, err := l.store.ListGames(scopeLobby)
	if err != nil {
		log.Printf("%s | ERROR: lobby: load games: %v", time.Now().Format(logDate), err)
		return
	}

	for _, game := range games {
		l.games[game.ID] = game
	}

	logf(l.cfg, "LOBBY: Loaded %d games from storage", len(games))
}

func (l *Lobby) handleCreate(req createRequest) createReply {
	if req.name == "" {
		return createReply{err: validationErrorf("Game name is required")}
	}

	maxRounds := req.maxRounds
	if maxRounds <= 0 {
		maxRounds = l.cfg.rounds
	}
	if maxRounds > maxTotalRounds {
		return createReply{err: validationErrorf("Maximum rounds cannot exceed %d", maxTotalRounds)}
	}

	game := newGame(uuid.NewString(), req.name, maxRounds)

	if err := l.store.PutGame(scopeLobby, game); err != nil {
		log.Printf("%s | ERROR: lobby: persist new game %s: %v", time.Now().Format(logDate), game.ID, err)
	}
	l.games[game.ID] = game

	// Best effort: a room actor with empty storage can also recover its
	// game by asking the lobby, so a failed seed is not fatal.
	if err := l.seeder.Seed(game.clone()); err != nil {
		log.Printf("%s | ERROR: lobby: seed room storage for %s: %v", time.Now().Format(logDate), game.ID, err)
	}

	logf(l.cfg, "LOBBY: Created game %q (%s, %d rounds)", game.Name, game.ID, maxRounds)

	l.broadcastRooms()

	return createReply{game: game.clone()}
}

// availableRooms returns the joinable games, newest first.
func (l *Lobby) availableRooms() []*Game {
	rooms := make([]*Game, 0, len(l.games))
	for _, game := range l.games {
		if !game.Started {
			rooms = append(rooms, game)
		}
	}

	slices.SortFunc(rooms, func(a, b *Game) int {
		switch {
		case a.CreatedAt > b.CreatedAt:
			return -1
		case a.CreatedAt < b.CreatedAt:
			return 1
		default:
			return 0
		}
	})

	return rooms
}

func (l *Lobby) broadcastRooms() {
	msg := roomsUpdateMessage{
		Type:  "roomsUpdate",
		Rooms: l.availableRooms(),
	}

	for client := range l.clients {
		if !client.trySend(msg) {
			delete(l.clients, client)
			close(client.send)
		}
	}
}

// CreateGame is the HTTP-facing entry point for POST /lobby. The request is
// serialized through the lobby actor's queue like any other message.
func (l *Lobby) CreateGame(name string, maxRounds int) (*Game, error) {
	req := createRequest{
		name:      name,
		maxRounds: maxRounds,
		reply:     make(chan createReply, 1),
	}

	select {
	case l.creates <- req:
	case <-time.After(l.cfg.syncTimeout):
		return nil, errLobbyBusy
	}

	select {
	case reply := <-req.reply:
		return reply.game, reply.err
	case <-time.After(l.cfg.syncTimeout):
		return nil, errLobbyBusy
	}
}

// ListRooms is the HTTP-facing entry point for GET /lobby.
func (l *Lobby) ListRooms() ([]*Game, error) {
	reply := make(chan []*Game, 1)

	select {
	case l.lists <- reply:
	case <-time.After(l.cfg.syncTimeout):
		return nil, errLobbyBusy
	}

	select {
	case rooms := <-reply:
		return rooms, nil
	case <-time.After(l.cfg.syncTimeout):
		return nil, errLobbyBusy
	}
}
