package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/pmquest/pmgame-server/internal/config"
	"github.com/pmquest/pmgame-server/internal/data"
	"github.com/pmquest/pmgame-server/internal/game"
	"github.com/pmquest/pmgame-server/internal/game/rules"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func newTestEngine(t *testing.T) *game.Engine {
	return newTestEngineWith(t, nil)
}

func newTestEngineWith(t *testing.T, recorder *game.ReplayRecorder) *game.Engine {
	t.Helper()
	logger := zaptest.NewLogger(t)
	ds, err := data.LoadEmbedded(logger)
	require.NoError(t, err)
	ctx, err := game.NewContext(ds, game.DefaultSettings(), logger)
	require.NoError(t, err)
	ctx.Dice = rules.NewFixedDice(4)
	return game.NewEngine(ctx, nil, nil, recorder, logger)
}

type wsHarness struct {
	t      *testing.T
	engine *game.Engine
	server *httptest.Server
	url    string
}

func newWSHarness(t *testing.T, cfg config.WebSocketConfig) *wsHarness {
	t.Helper()
	return newWSHarnessFor(t, cfg, newTestEngine(t))
}

func newWSHarnessFor(t *testing.T, cfg config.WebSocketConfig, engine *game.Engine) *wsHarness {
	t.Helper()
	logger := zaptest.NewLogger(t)

	ctx, cancel := context.WithCancel(context.Background())
	hub := NewHub(engine, logger)
	go hub.Run(ctx)

	ws := NewWebSocketServer(cfg, hub, logger)
	srv := httptest.NewServer(ws.Handler())
	t.Cleanup(func() {
		srv.Close()
		cancel()
	})
	return &wsHarness{
		t:      t,
		engine: engine,
		server: srv,
		url:    "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws",
	}
}

func (h *wsHarness) dial() *websocket.Conn {
	h.t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(h.url, nil)
	require.NoError(h.t, err)
	h.t.Cleanup(func() { conn.Close() })
	return conn
}

func send(t *testing.T, conn *websocket.Conn, env Envelope) {
	t.Helper()
	require.NoError(t, conn.WriteJSON(env))
}

// readUntil skips messages until one of type msgType arrives.
func readUntil(t *testing.T, conn *websocket.Conn, msgType string) Envelope {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for {
		require.NoError(t, conn.SetReadDeadline(deadline))
		var env Envelope
		require.NoError(t, conn.ReadJSON(&env), "waiting for %s", msgType)
		if env.Type == msgType {
			return env
		}
	}
}

func decodeView(t *testing.T, env Envelope) game.View {
	t.Helper()
	var v game.View
	require.NoError(t, json.Unmarshal(env.Data, &v))
	return v
}

func decodeError(t *testing.T, env Envelope) ErrorPayload {
	t.Helper()
	var e ErrorPayload
	require.NoError(t, json.Unmarshal(env.Data, &e))
	return e
}

func raw(t *testing.T, v any) json.RawMessage {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	return b
}

func TestWebSocketGameFlow(t *testing.T) {
	h := newWSHarness(t, config.WebSocketConfig{})
	alice := h.dial()
	bob := h.dial()

	send(t, alice, Envelope{
		Type:      MsgCreateGame,
		RequestID: "r1",
		PlayerID:  "alice",
		Data: raw(t, CreateGameRequest{
			GameID: "table-1",
			Seats:  []game.Seat{{ID: "alice"}, {ID: "bob"}},
		}),
	})
	created := readUntil(t, alice, MsgGameCreated)
	assert.Equal(t, "r1", created.RequestID)
	assert.Equal(t, "table-1", created.GameID)
	v := decodeView(t, created)
	assert.Equal(t, "alice", v.ActivePlayer)
	require.Len(t, v.Moves, 2)

	send(t, bob, Envelope{Type: MsgJoinGame, GameID: "table-1", PlayerID: "bob"})
	joined := readUntil(t, bob, MsgGameState)
	assert.Equal(t, "table-1", joined.GameID)

	send(t, bob, Envelope{Type: MsgSelectMove, RequestID: "r2", Data: raw(t, SelectMoveRequest{SpaceID: "OWNER-FUND-INITIATION:first"})})
	rejected := readUntil(t, bob, MsgError)
	assert.Equal(t, "r2", rejected.RequestID)
	assert.Equal(t, CodeNotYourTurn, decodeError(t, rejected).Code)

	send(t, alice, Envelope{Type: MsgSelectMove, Data: raw(t, SelectMoveRequest{SpaceID: "OWNER-FUND-INITIATION:first"})})
	send(t, alice, Envelope{Type: MsgEndTurn, RequestID: "r3"})
	summaryEnv := readUntil(t, alice, MsgTurnSummary)
	assert.Equal(t, "r3", summaryEnv.RequestID)
	var summary game.TurnSummary
	require.NoError(t, json.Unmarshal(summaryEnv.Data, &summary))
	assert.Equal(t, "OWNER-FUND-INITIATION:first", summary.To)
	assert.Equal(t, 1, summary.TimeDelta)

	// Bob sees the committed move as an event and then the new state.
	var committed rules.Event
	for {
		env := readUntil(t, bob, MsgEvent)
		require.NoError(t, json.Unmarshal(env.Data, &committed))
		if committed.Type == rules.EventMoveCommitted {
			break
		}
	}
	assert.Equal(t, "alice", committed.PlayerID)
	assert.Equal(t, "table-1", committed.GameID)

	var state game.View
	for state.ActivePlayer != "bob" {
		state = decodeView(t, readUntil(t, bob, MsgGameState))
	}
	assert.Equal(t, 2, state.Turn)
}

func TestWebSocketRollAndErrors(t *testing.T) {
	h := newWSHarness(t, config.WebSocketConfig{})
	conn := h.dial()

	send(t, conn, Envelope{Type: MsgEndTurn, RequestID: "early"})
	assert.Equal(t, CodeNotJoined, decodeError(t, readUntil(t, conn, MsgError)).Code)

	send(t, conn, Envelope{Type: MsgJoinGame, GameID: "missing"})
	assert.Equal(t, CodeGameNotFound, decodeError(t, readUntil(t, conn, MsgError)).Code)

	send(t, conn, Envelope{Type: "dance"})
	assert.Equal(t, CodeBadRequest, decodeError(t, readUntil(t, conn, MsgError)).Code)

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("{not json")))
	assert.Equal(t, CodeBadRequest, decodeError(t, readUntil(t, conn, MsgError)).Code)

	send(t, conn, Envelope{Type: MsgCreateGame, PlayerID: "alice", Data: raw(t, CreateGameRequest{Seats: []game.Seat{{ID: "alice"}}})})
	created := readUntil(t, conn, MsgGameCreated)
	require.NotEmpty(t, created.GameID)

	send(t, conn, Envelope{Type: MsgEndTurn})
	assert.Equal(t, CodeIllegalTransition, decodeError(t, readUntil(t, conn, MsgError)).Code)

	send(t, conn, Envelope{Type: MsgSelectMove, Data: raw(t, SelectMoveRequest{SpaceID: "OWNER-FUND-INITIATION:first"})})
	send(t, conn, Envelope{Type: MsgEndTurn})
	readUntil(t, conn, MsgTurnSummary)

	send(t, conn, Envelope{Type: MsgRoll, Data: raw(t, RollRequest{Value: 9})})
	assert.Equal(t, CodeInvalidRoll, decodeError(t, readUntil(t, conn, MsgError)).Code)

	send(t, conn, Envelope{Type: MsgRoll, Data: json.RawMessage(`{"value":"six"}`)})
	assert.Equal(t, CodeBadRequest, decodeError(t, readUntil(t, conn, MsgError)).Code)

	// No value: the server rolls its die.
	send(t, conn, Envelope{Type: MsgRoll})
	var v game.View
	for v.Roll == 0 {
		v = decodeView(t, readUntil(t, conn, MsgGameState))
	}
	assert.Equal(t, 4, v.Roll)
	assert.Equal(t, "AWAITING_MOVE_SELECTION", v.State)

	send(t, conn, Envelope{Type: MsgListGames, RequestID: "list"})
	list := readUntil(t, conn, MsgGameList)
	var ids []string
	require.NoError(t, json.Unmarshal(list.Data, &ids))
	assert.Equal(t, []string{created.GameID}, ids)
}

func TestWebSocketJoinRejectsUnknownSeat(t *testing.T) {
	h := newWSHarness(t, config.WebSocketConfig{})
	_, err := h.engine.StartGameWithID("table-1", []game.Seat{{ID: "alice"}})
	require.NoError(t, err)

	conn := h.dial()
	send(t, conn, Envelope{Type: MsgJoinGame, GameID: "table-1", PlayerID: "mallory"})
	assert.Equal(t, CodeBadRequest, decodeError(t, readUntil(t, conn, MsgError)).Code)

	// Spectators may watch but not play.
	send(t, conn, Envelope{Type: MsgJoinGame, GameID: "table-1"})
	readUntil(t, conn, MsgGameState)
	send(t, conn, Envelope{Type: MsgNegotiate})
	assert.Equal(t, CodeNotYourTurn, decodeError(t, readUntil(t, conn, MsgError)).Code)
}

func TestWebSocketReplay(t *testing.T) {
	recorder := game.NewReplayRecorder(zaptest.NewLogger(t), t.TempDir())
	h := newWSHarnessFor(t, config.WebSocketConfig{}, newTestEngineWith(t, recorder))
	conn := h.dial()

	send(t, conn, Envelope{Type: MsgGetReplay, GameID: "missing"})
	assert.Equal(t, CodeReplayNotFound, decodeError(t, readUntil(t, conn, MsgError)).Code)

	send(t, conn, Envelope{Type: MsgGetReplay})
	assert.Equal(t, CodeBadRequest, decodeError(t, readUntil(t, conn, MsgError)).Code)

	send(t, conn, Envelope{Type: MsgCreateGame, PlayerID: "alice", Data: raw(t, CreateGameRequest{
		GameID: "table-1",
		Seats:  []game.Seat{{ID: "alice"}},
	})})
	readUntil(t, conn, MsgGameCreated)
	send(t, conn, Envelope{Type: MsgSelectMove, Data: raw(t, SelectMoveRequest{SpaceID: "OWNER-FUND-INITIATION:first"})})
	send(t, conn, Envelope{Type: MsgEndTurn})
	readUntil(t, conn, MsgTurnSummary)

	send(t, conn, Envelope{Type: MsgGetReplay, RequestID: "info"})
	infoEnv := readUntil(t, conn, MsgReplayInfo)
	assert.Equal(t, "info", infoEnv.RequestID)
	assert.Equal(t, "table-1", infoEnv.GameID)
	var info ReplayInfo
	require.NoError(t, json.Unmarshal(infoEnv.Data, &info))
	assert.Equal(t, ReplayInfo{Frames: 2, Turns: []int{1, 2}}, info)

	seek := func(index, delta int) ReplayFrame {
		t.Helper()
		send(t, conn, Envelope{Type: MsgReplaySeek, Data: raw(t, ReplaySeekRequest{Index: index, Delta: delta})})
		var frame ReplayFrame
		require.NoError(t, json.Unmarshal(readUntil(t, conn, MsgReplayFrame).Data, &frame))
		return frame
	}

	first := seek(0, 0)
	assert.Equal(t, 0, first.Index)
	assert.Equal(t, 2, first.Frames)
	require.NotNil(t, first.Snapshot)
	assert.Equal(t, 1, first.Snapshot.TurnNumber)
	assert.Equal(t, "OWNER-SCOPE-INITIATION:first", first.Snapshot.Players[0].Position)

	next := seek(first.Index, 1)
	assert.Equal(t, 1, next.Index)
	assert.Equal(t, "OWNER-FUND-INITIATION:first", next.Snapshot.Players[0].Position)

	assert.Equal(t, 1, seek(next.Index, 10).Index, "seeking is clamped to the recording")
	assert.Equal(t, 0, seek(next.Index, -10).Index)

	send(t, conn, Envelope{Type: MsgReplaySeek, Data: json.RawMessage(`{"index":"first"}`)})
	assert.Equal(t, CodeBadRequest, decodeError(t, readUntil(t, conn, MsgError)).Code)
}

func TestCheckOrigin(t *testing.T) {
	h := newWSHarness(t, config.WebSocketConfig{AllowedOrigins: []string{"https://board.example"}})

	header := http.Header{"Origin": []string{"https://evil.example"}}
	_, resp, err := websocket.DefaultDialer.Dial(h.url, header)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	header.Set("Origin", "https://board.example")
	conn, _, err := websocket.DefaultDialer.Dial(h.url, header)
	require.NoError(t, err)
	conn.Close()
}

func TestHealthz(t *testing.T) {
	h := newWSHarness(t, config.WebSocketConfig{})
	resp, err := http.Get(h.server.URL + "/healthz")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
