package main

import (
	"encoding/json"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLobbyListResponseShape(t *testing.T) {
	lobby, _, _ := newTestLobby(t)

	created, err := lobby.CreateGame("Friday night", 3)
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/lobby", nil)
	serveLobbyList(testConfig(), lobby)(rec, req, nil)

	require.Equal(t, 200, rec.Code)

	var body struct {
		Type  *string `json:"type"`
		Rooms []*Game `json:"rooms"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))

	// The plain HTTP listing is just {rooms: [...]}; the roomsUpdate
	// envelope belongs to the websocket feed.
	assert.Nil(t, body.Type)
	require.Len(t, body.Rooms, 1)
	assert.Equal(t, created.ID, body.Rooms[0].ID)
}
