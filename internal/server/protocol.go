package server

import (
	"encoding/json"
	"errors"

	"github.com/pmquest/pmgame-server/internal/game"
)

// Client message types.
const (
	MsgCreateGame = "create_game"
	MsgJoinGame   = "join_game"
	MsgListGames  = "list_games"
	MsgGetView    = "get_view"
	MsgRoll       = "roll"
	MsgSelectMove = "select_move"
	MsgNegotiate  = "negotiate"
	MsgEndTurn    = "end_turn"
	MsgGetReplay  = "get_replay"
	MsgReplaySeek = "replay_seek"
)

// Server message types.
const (
	MsgGameCreated = "game_created"
	MsgGameList    = "game_list"
	MsgGameState   = "game_state"
	MsgTurnSummary = "turn_summary"
	MsgEvent       = "event"
	MsgReplayInfo  = "replay_info"
	MsgReplayFrame = "replay_frame"
	MsgError       = "error"
)

// Error codes sent in ErrorPayload.Code.
const (
	CodeBadRequest        = "bad_request"
	CodeGameNotFound      = "game_not_found"
	CodeNotYourTurn       = "not_your_turn"
	CodeIllegalTransition = "illegal_transition"
	CodeInvalidRoll       = "invalid_roll"
	CodeNotJoined         = "not_joined"
	CodeReplayNotFound    = "replay_not_found"
	CodeInternal          = "internal"
)

// Envelope is every message a client sends.
type Envelope struct {
	Type      string          `json:"type"`
	RequestID string          `json:"request_id,omitempty"`
	GameID    string          `json:"game_id,omitempty"`
	PlayerID  string          `json:"player_id,omitempty"`
	Data      json.RawMessage `json:"data,omitempty"`
}

// Outbound is every message the server sends.
type Outbound struct {
	Type      string `json:"type"`
	RequestID string `json:"request_id,omitempty"`
	GameID    string `json:"game_id,omitempty"`
	Data      any    `json:"data,omitempty"`
}

// CreateGameRequest is the data of create_game. GameID is optional.
type CreateGameRequest struct {
	GameID string      `json:"game_id,omitempty"`
	Seats  []game.Seat `json:"seats"`
}

// RollRequest is the data of roll. A zero value lets the server roll.
type RollRequest struct {
	Value int `json:"value,omitempty"`
}

// SelectMoveRequest is the data of select_move.
type SelectMoveRequest struct {
	SpaceID string `json:"space_id"`
}

// ReplaySeekRequest is the data of replay_seek: the frame Delta steps away
// from Index, clamped to the recording.
type ReplaySeekRequest struct {
	Index int `json:"index"`
	Delta int `json:"delta,omitempty"`
}

// ReplayInfo answers get_replay. Turns holds the turn number of each frame.
type ReplayInfo struct {
	Frames int   `json:"frames"`
	Turns  []int `json:"turns"`
}

// ReplayFrame answers replay_seek.
type ReplayFrame struct {
	Index    int            `json:"index"`
	Frames   int            `json:"frames"`
	Snapshot *game.Snapshot `json:"snapshot"`
}

// ErrorPayload describes a rejected request.
type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func errorCode(err error) string {
	var illegal *game.IllegalTransitionError
	switch {
	case errors.Is(err, game.ErrGameNotFound):
		return CodeGameNotFound
	case errors.Is(err, game.ErrReplayNotFound):
		return CodeReplayNotFound
	case errors.Is(err, game.ErrNotYourTurn):
		return CodeNotYourTurn
	case errors.Is(err, game.ErrInvalidRoll):
		return CodeInvalidRoll
	case errors.As(err, &illegal):
		return CodeIllegalTransition
	}
	return CodeInternal
}

func decodeData(env Envelope, v any) error {
	if len(env.Data) == 0 {
		return nil
	}
	return json.Unmarshal(env.Data, v)
}
