package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseClientMessage(t *testing.T) {
	msg, err := parseClientMessage([]byte(`{"type":"joinGame","playerName":"alice"}`))
	require.NoError(t, err)
	assert.Equal(t, msgJoinGame, msg.Type)
	assert.Equal(t, "alice", msg.PlayerName)

	msg, err = parseClientMessage([]byte(`{"type":"confirmPrediction","playerId":"p1","tricks":0}`))
	require.NoError(t, err)
	require.NotNil(t, msg.Tricks)
	assert.Equal(t, 0, *msg.Tricks)

	msg, err = parseClientMessage([]byte(`{"type":"submitTricks","playerId":"p1","predicted":2,"actual":1}`))
	require.NoError(t, err)
	require.NotNil(t, msg.Predicted)
	assert.Equal(t, 2, *msg.Predicted)
	require.NotNil(t, msg.Actual)
	assert.Equal(t, 1, *msg.Actual)
}

func TestParseClientMessageRejectsBadInput(t *testing.T) {
	cases := map[string]string{
		"malformed json":       `{oops`,
		"unknown type":         `{"type":"teleport"}`,
		"join without name":    `{"type":"joinGame"}`,
		"leave without id":     `{"type":"leaveGame"}`,
		"predict without n":    `{"type":"confirmPrediction","playerId":"p1"}`,
		"submit without total": `{"type":"submitTricks","playerId":"p1"}`,
		"edit without round":   `{"type":"editRound"}`,
	}

	for name, raw := range cases {
		_, err := parseClientMessage([]byte(raw))
		require.Error(t, err, name)
		assert.True(t, isValidationError(err), name)
	}
}
