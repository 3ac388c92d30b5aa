package main

import (
	"encoding/json"
	"slices"
	"time"
)

// Game status values for the round cycle. Every round walks
// predicting -> playing -> confirming, then either back to predicting or,
// after the final round, to completed.
const (
	statusPredicting = "predicting"
	statusPlaying    = "playing"
	statusConfirming = "confirming"
	statusCompleted  = "completed"
)

// Player is one seat at the table. ID is stable for a (game, name) pair
// across reconnects; it is minted from the first connection that joined
// under that name, not from whichever socket happens to be current.
type Player struct {
	ID              string `json:"id"`
	Name            string `json:"name"`
	Score           int    `json:"score"`
	JoinedAt        int64  `json:"joinedAt"`
	PredictedTricks *int   `json:"predictedTricks,omitempty"`
	ActualTricks    *int   `json:"actualTricks,omitempty"`
	TempPrediction  *int   `json:"tempPrediction,omitempty"`
}

// Round is the finalized record of one played round. Once Completed it only
// changes through an explicit edit, which truncates all later rounds.
type Round struct {
	RoundNumber int            `json:"roundNumber"`
	Predictions map[string]int `json:"predictions"`
	Actual      map[string]int `json:"actual"`
	Scores      map[string]int `json:"scores"`
	Completed   bool           `json:"completed"`
}

// Game is the aggregate owned by exactly one room actor. Player scores are
// always recomputed from Rounds, never incremented in place, so they stay
// correct when an earlier round is edited.
type Game struct {
	ID                 string           `json:"id"`
	Name               string           `json:"name"`
	Players            []*Player        `json:"players"`
	CreatedAt          int64            `json:"createdAt"`
	Started            bool             `json:"started"`
	Status             string           `json:"status"`
	CurrentRound       int              `json:"currentRound"`
	Rounds             []*Round         `json:"rounds"`
	RoundConfirmations map[int][]string `json:"roundConfirmations"`
	TotalRounds        int              `json:"totalRounds"`
	TricksPerRound     []int            `json:"tricksPerRound"`
	CurrentTricks      int              `json:"currentTricks"`
	PredictedTricksSum int              `json:"predictedTricksSum"`
}

func newGame(id, name string, totalRounds int) *Game {
	seq := tricksSequence(totalRounds)

	return &Game{
		ID:                 id,
		Name:               name,
		Players:            []*Player{},
		CreatedAt:          time.Now().UnixMilli(),
		Status:             statusPredicting,
		CurrentRound:       1,
		Rounds:             []*Round{},
		RoundConfirmations: map[int][]string{},
		TotalRounds:        totalRounds,
		TricksPerRound:     seq,
		CurrentTricks:      seq[0],
	}
}

// clone deep-copies a game. Actors never share pointers: every copy that
// crosses an actor boundary is cloned first, so each side mutates only its
// own aggregate.
func (g *Game) clone() *Game {
	payload, err := json.Marshal(g)
	if err != nil {
		return nil
	}

	var out Game
	if err := json.Unmarshal(payload, &out); err != nil {
		return nil
	}

	return &out
}

func (g *Game) playerByID(id string) *Player {
	for _, p := range g.Players {
		if p.ID == id {
			return p
		}
	}

	return nil
}

func (g *Game) playerByName(name string) *Player {
	for _, p := range g.Players {
		if p.Name == name {
			return p
		}
	}

	return nil
}

// recomputeScores rebuilds every player's cumulative score from the round
// records. Round maps may reference players that have since left; those
// entries simply contribute to nobody.
func (g *Game) recomputeScores() {
	for _, p := range g.Players {
		total := 0
		for _, r := range g.Rounds {
			total += r.Scores[p.ID]
		}
		p.Score = total
	}
}

// recomputePredictedSum rebuilds the running prediction total from
// provisional-or-final values, preferring a live tempPrediction.
func (g *Game) recomputePredictedSum() {
	sum := 0
	for _, p := range g.Players {
		switch {
		case p.TempPrediction != nil:
			sum += *p.TempPrediction
		case p.PredictedTricks != nil:
			sum += *p.PredictedTricks
		}
	}
	g.PredictedTricksSum = sum
}

func (g *Game) refreshCurrentTricks() {
	if g.CurrentRound >= 1 && g.CurrentRound <= len(g.TricksPerRound) {
		g.CurrentTricks = g.TricksPerRound[g.CurrentRound-1]
	}
}

func (g *Game) clearRoundState() {
	for _, p := range g.Players {
		p.PredictedTricks = nil
		p.ActualTricks = nil
		p.TempPrediction = nil
	}
	g.PredictedTricksSum = 0
}

// Join adds a player, or reattaches a reconnecting one. The stable player id
// is minted from connID on first join; on reconnect the existing player is
// matched by id or by name and keeps the id it already has.
func (g *Game) Join(connID, playerID, name string) error {
	if name == "" {
		return validationErrorf("Player name is required")
	}
	if g.Started {
		return validationErrorf("Game has already started")
	}

	var existing *Player
	if playerID != "" {
		existing = g.playerByID(playerID)
	}
	if existing == nil {
		existing = g.playerByName(name)
	}

	if existing != nil {
		existing.Name = name
	} else {
		id := playerID
		if id == "" {
			id = connID
		}
		g.Players = append(g.Players, &Player{
			ID:       id,
			Name:     name,
			JoinedAt: time.Now().UnixMilli(),
		})
	}

	g.recomputeScores()

	return nil
}

// Leave removes a player and strips their id from all round records and
// confirmations. It reports whether the table is now empty, in which case
// the caller is expected to delete the game entirely. Only actual members
// can leave: the empty-table delete must never be reachable from a
// connection that was never seated.
func (g *Game) Leave(playerID string) (empty bool, err error) {
	if g.playerByID(playerID) == nil {
		return false, validationErrorf("Unknown player")
	}

	g.Players = slices.DeleteFunc(g.Players, func(p *Player) bool {
		return p.ID == playerID
	})

	for _, r := range g.Rounds {
		delete(r.Predictions, playerID)
		delete(r.Actual, playerID)
		delete(r.Scores, playerID)
	}

	for round, ids := range g.RoundConfirmations {
		g.RoundConfirmations[round] = slices.DeleteFunc(ids, func(id string) bool {
			return id == playerID
		})
	}

	g.recomputeScores()
	g.recomputePredictedSum()
	g.checkTransitions()

	return len(g.Players) == 0, nil
}

// Start begins play from a clean round 1, wiping any state accumulated
// while the table was still filling up.
func (g *Game) Start() error {
	if len(g.Players) < 2 {
		return validationErrorf("At least two players are required to start")
	}

	g.Started = true
	g.Status = statusPredicting
	g.CurrentRound = 1
	g.Rounds = []*Round{}
	g.RoundConfirmations = map[int][]string{}
	g.refreshCurrentTricks()
	g.clearRoundState()
	for _, p := range g.Players {
		p.Score = 0
	}

	return nil
}

// UpdatePrediction records a provisional, non-binding prediction so other
// players can see what everyone is leaning toward.
func (g *Game) UpdatePrediction(playerID string, tricks int) error {
	if g.Status != statusPredicting {
		return validationErrorf("Predictions are closed for this round")
	}
	if tricks < 0 || tricks > g.CurrentTricks {
		return validationErrorf("Prediction must be between 0 and %d", g.CurrentTricks)
	}

	p := g.playerByID(playerID)
	if p == nil {
		return validationErrorf("Unknown player")
	}

	p.TempPrediction = &tricks
	g.recomputePredictedSum()

	return nil
}

// ConfirmPrediction commits a binding prediction. The last player to bid may
// not pick the value that would make all predictions sum to exactly the
// number of tricks in play: someone always has to miss.
func (g *Game) ConfirmPrediction(playerID string, tricks int) error {
	if g.Status != statusPredicting {
		return validationErrorf("Predictions are closed for this round")
	}
	if tricks < 0 || tricks > g.CurrentTricks {
		return validationErrorf("Prediction must be between 0 and %d", g.CurrentTricks)
	}

	p := g.playerByID(playerID)
	if p == nil {
		return validationErrorf("Unknown player")
	}

	unconfirmed := 0
	confirmedSum := 0
	for _, other := range g.Players {
		if other.PredictedTricks == nil {
			unconfirmed++
		} else if other.ID != playerID {
			confirmedSum += *other.PredictedTricks
		}
	}

	if unconfirmed == 1 && p.PredictedTricks == nil && confirmedSum+tricks == g.CurrentTricks {
		return validationErrorf("Last prediction cannot make the total exactly %d", g.CurrentTricks)
	}

	p.PredictedTricks = &tricks
	p.TempPrediction = nil
	g.recomputePredictedSum()
	g.checkTransitions()

	return nil
}

// SubmitTricks records how many tricks a player actually took. The predicted
// value may be resent alongside for reconciliation after a reconnect.
func (g *Game) SubmitTricks(playerID string, predicted *int, actual int) error {
	if g.Status != statusPlaying {
		return validationErrorf("Tricks cannot be submitted right now")
	}
	if actual < 0 || actual > g.CurrentTricks {
		return validationErrorf("Tricks taken must be between 0 and %d", g.CurrentTricks)
	}

	p := g.playerByID(playerID)
	if p == nil {
		return validationErrorf("Unknown player")
	}

	p.ActualTricks = &actual
	if predicted != nil {
		p.PredictedTricks = predicted
	}
	g.checkTransitions()

	return nil
}

// ConfirmRound registers a player's approval of the finalized round. Once
// every player has confirmed, play advances.
func (g *Game) ConfirmRound(playerID string) error {
	if g.Status != statusConfirming {
		return validationErrorf("There is no round awaiting confirmation")
	}

	if g.playerByID(playerID) == nil {
		return validationErrorf("Unknown player")
	}

	ids := g.RoundConfirmations[g.CurrentRound]
	if !slices.Contains(ids, playerID) {
		g.RoundConfirmations[g.CurrentRound] = append(ids, playerID)
	}
	g.checkTransitions()

	return nil
}

// EditRound rolls the game back to replay a finished round. All later rounds
// are discarded, since their inputs were built on the round being corrected.
func (g *Game) EditRound(roundNumber int) error {
	var target *Round
	for _, r := range g.Rounds {
		if r.RoundNumber == roundNumber {
			target = r
			break
		}
	}
	if target == nil {
		return validationErrorf("Round %d has not been played", roundNumber)
	}

	g.Rounds = slices.DeleteFunc(g.Rounds, func(r *Round) bool {
		return r.RoundNumber >= roundNumber
	})

	for round := range g.RoundConfirmations {
		if round >= roundNumber {
			delete(g.RoundConfirmations, round)
		}
	}

	for _, p := range g.Players {
		if v, ok := target.Predictions[p.ID]; ok {
			predicted := v
			p.PredictedTricks = &predicted
		} else {
			p.PredictedTricks = nil
		}
		if v, ok := target.Actual[p.ID]; ok {
			actual := v
			p.ActualTricks = &actual
		} else {
			p.ActualTricks = nil
		}
		p.TempPrediction = nil
	}

	g.CurrentRound = roundNumber
	g.Status = statusPlaying
	g.refreshCurrentTricks()
	g.recomputeScores()
	g.recomputePredictedSum()

	return nil
}

// checkTransitions fires any round-cycle transition whose guard now holds.
// Guards are re-checked after every mutation, including leaves, since a
// departing player can be the last missing prediction or confirmation.
func (g *Game) checkTransitions() {
	if !g.Started || len(g.Players) == 0 {
		return
	}

	switch g.Status {
	case statusPredicting:
		for _, p := range g.Players {
			if p.PredictedTricks == nil {
				return
			}
		}
		g.Status = statusPlaying

	case statusPlaying:
		for _, p := range g.Players {
			if p.ActualTricks == nil {
				return
			}
		}
		g.finalizeRound()

	case statusConfirming:
		confirmed := g.RoundConfirmations[g.CurrentRound]
		for _, p := range g.Players {
			if !slices.Contains(confirmed, p.ID) {
				return
			}
		}
		g.advanceRound()
	}
}

// finalizeRound scores the current round, writes its record (replacing any
// previous attempt at the same number) and opens the confirmation window.
func (g *Game) finalizeRound() {
	round := &Round{
		RoundNumber: g.CurrentRound,
		Predictions: map[string]int{},
		Actual:      map[string]int{},
		Scores:      map[string]int{},
	}

	for _, p := range g.Players {
		if p.PredictedTricks == nil || p.ActualTricks == nil {
			continue
		}
		round.Predictions[p.ID] = *p.PredictedTricks
		round.Actual[p.ID] = *p.ActualTricks
		round.Scores[p.ID] = roundScore(*p.PredictedTricks, *p.ActualTricks)
	}

	g.Rounds = slices.DeleteFunc(g.Rounds, func(r *Round) bool {
		return r.RoundNumber == g.CurrentRound
	})
	g.Rounds = append(g.Rounds, round)
	slices.SortFunc(g.Rounds, func(a, b *Round) int {
		return a.RoundNumber - b.RoundNumber
	})

	g.RoundConfirmations[g.CurrentRound] = []string{}
	g.recomputeScores()
	g.Status = statusConfirming
}

// advanceRound closes a fully-confirmed round and either sets up the next
// one or ends the game after the final round.
func (g *Game) advanceRound() {
	for _, r := range g.Rounds {
		if r.RoundNumber == g.CurrentRound {
			r.Completed = true
		}
	}

	g.CurrentRound++

	if g.CurrentRound > len(g.TricksPerRound) {
		g.Status = statusCompleted
		return
	}

	g.Status = statusPredicting
	g.refreshCurrentTricks()
	g.clearRoundState()
}
