package main

import (
	"encoding/json"
)

// Inbound message types, client -> room actor.
const (
	msgJoinGame          = "joinGame"
	msgLeaveGame         = "leaveGame"
	msgStartGame         = "startGame"
	msgUpdatePrediction  = "updatePrediction"
	msgConfirmPrediction = "confirmPrediction"
	msgSubmitTricks      = "submitTricks"
	msgConfirmRound      = "confirmRound"
	msgEditRound         = "editRound"
)

// clientMessage is the closed union of frames a room accepts. Which fields
// are required depends on the type; parseClientMessage enforces that before
// the actor ever sees the message.
type clientMessage struct {
	Type        string `json:"type"`
	PlayerName  string `json:"playerName,omitempty"`
	PlayerID    string `json:"playerId,omitempty"`
	Tricks      *int   `json:"tricks,omitempty"`
	Predicted   *int   `json:"predicted,omitempty"`
	Actual      *int   `json:"actual,omitempty"`
	RoundNumber *int   `json:"roundNumber,omitempty"`
}

// parseClientMessage validates a raw frame into a clientMessage. Anything
// malformed or incomplete comes back as a validationError so the offending
// connection gets an error frame and nothing else happens.
func parseClientMessage(raw []byte) (clientMessage, error) {
	var msg clientMessage
	if err := json.Unmarshal(raw, &msg); err != nil {
		return clientMessage{}, validationErrorf("Invalid message format")
	}

	switch msg.Type {
	case msgJoinGame:
		if msg.PlayerName == "" {
			return clientMessage{}, validationErrorf("playerName is required")
		}
	case msgLeaveGame, msgConfirmRound:
		if msg.PlayerID == "" {
			return clientMessage{}, validationErrorf("playerId is required")
		}
	case msgStartGame:
	case msgUpdatePrediction, msgConfirmPrediction:
		if msg.PlayerID == "" {
			return clientMessage{}, validationErrorf("playerId is required")
		}
		if msg.Tricks == nil {
			return clientMessage{}, validationErrorf("tricks is required")
		}
	case msgSubmitTricks:
		if msg.PlayerID == "" {
			return clientMessage{}, validationErrorf("playerId is required")
		}
		if msg.Actual == nil {
			return clientMessage{}, validationErrorf("actual is required")
		}
	case msgEditRound:
		if msg.RoundNumber == nil {
			return clientMessage{}, validationErrorf("roundNumber is required")
		}
	default:
		return clientMessage{}, validationErrorf("Unknown message type %q", msg.Type)
	}

	return msg, nil
}

// gameStateMessage is the full snapshot pushed to every room connection on
// connect and after each processed mutation.
type gameStateMessage struct {
	Type         string `json:"type"` // "gameState"
	Game         *Game  `json:"game"`
	ConnectionID string `json:"connectionId,omitempty"`
}

// errorMessage reports a failure to the single requesting connection.
type errorMessage struct {
	Type    string `json:"type"` // "error"
	Message string `json:"message"`
}

func newErrorMessage(err error) errorMessage {
	return errorMessage{
		Type:    "error",
		Message: err.Error(),
	}
}

// roomsUpdateMessage carries the lobby directory to lobby subscribers.
type roomsUpdateMessage struct {
	Type  string  `json:"type"` // "roomsUpdate"
	Rooms []*Game `json:"rooms"`
}
