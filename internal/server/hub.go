package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/pmquest/pmgame-server/internal/game"
	"github.com/pmquest/pmgame-server/internal/game/rules"
	"go.uber.org/zap"
)

// outMessage goes to one client when client is set, otherwise to every
// client of gameID. Direct replies and broadcasts share one queue so each
// producer's messages arrive in order.
type outMessage struct {
	client  *Client
	gameID  string
	payload []byte
}

type subscription struct {
	client *Client
	gameID string
}

// Hub routes messages between websocket clients and the engine. Only the
// run loop touches the client set and the send channels.
type Hub struct {
	engine *game.Engine
	logger *zap.Logger

	register   chan *Client
	unregister chan *Client
	subscribe  chan subscription
	outbox     chan outMessage
	done       chan struct{}

	clients map[*Client]string // client -> game id
}

// NewHub creates a hub over engine and installs itself as the engine's event
// handler. Call Run to start routing.
func NewHub(engine *game.Engine, logger *zap.Logger) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	h := &Hub{
		engine:     engine,
		logger:     logger.Named("hub"),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		subscribe:  make(chan subscription),
		outbox:     make(chan outMessage, 128),
		done:       make(chan struct{}),
		clients:    make(map[*Client]string),
	}
	engine.SetEventHandler(h.onEvent)
	return h
}

// Run routes messages until ctx is cancelled, then closes every client.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			for client := range h.clients {
				close(client.send)
			}
			h.clients = nil
			return

		case client := <-h.register:
			h.clients[client] = ""
			h.logger.Debug("client registered", zap.String("client_id", client.id))

		case client := <-h.unregister:
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
				h.logger.Debug("client unregistered", zap.String("client_id", client.id))
			}

		case sub := <-h.subscribe:
			if _, ok := h.clients[sub.client]; ok {
				h.clients[sub.client] = sub.gameID
			}

		case msg := <-h.outbox:
			if msg.client != nil {
				if _, ok := h.clients[msg.client]; ok {
					h.deliver(msg.client, msg.payload)
				}
				continue
			}
			for client, gameID := range h.clients {
				if gameID == msg.gameID {
					h.deliver(client, msg.payload)
				}
			}
		}
	}
}

// deliver never blocks the run loop. A client whose buffer is full misses
// the message and resyncs on the next game_state.
func (h *Hub) deliver(client *Client, payload []byte) {
	select {
	case client.send <- payload:
	default:
		h.logger.Warn("client send buffer full; dropping message", zap.String("client_id", client.id))
	}
}

func (h *Hub) enqueue(msg outMessage) {
	select {
	case h.outbox <- msg:
	case <-h.done:
	}
}

func (h *Hub) reply(client *Client, msg Outbound) {
	payload, err := json.Marshal(msg)
	if err != nil {
		h.logger.Error("failed to encode message", zap.String("type", msg.Type), zap.Error(err))
		return
	}
	h.enqueue(outMessage{client: client, payload: payload})
}

func (h *Hub) replyError(client *Client, env Envelope, code string, err error) {
	h.reply(client, Outbound{
		Type:      MsgError,
		RequestID: env.RequestID,
		GameID:    env.GameID,
		Data:      ErrorPayload{Code: code, Message: err.Error()},
	})
}

func (h *Hub) publish(gameID string, msg Outbound) {
	payload, err := json.Marshal(msg)
	if err != nil {
		h.logger.Error("failed to encode message", zap.String("type", msg.Type), zap.Error(err))
		return
	}
	h.enqueue(outMessage{gameID: gameID, payload: payload})
}

func (h *Hub) join(client *Client, gameID string) {
	select {
	case h.subscribe <- subscription{client: client, gameID: gameID}:
	case <-h.done:
	}
}

// onEvent forwards engine events to the game's clients.
func (h *Hub) onEvent(e rules.Event) {
	h.publish(e.GameID, Outbound{Type: MsgEvent, GameID: e.GameID, Data: e})
}

// broadcastState sends the current view to every client of g.
func (h *Hub) broadcastState(g *game.Game) {
	h.publish(g.ID(), Outbound{Type: MsgGameState, GameID: g.ID(), Data: g.View()})
}

// handleMessage runs one client request. It is called from the client's
// read loop, so requests of one client are handled in order.
func (h *Hub) handleMessage(ctx context.Context, client *Client, env Envelope) {
	h.logger.Debug("message received",
		zap.String("client_id", client.id),
		zap.String("type", env.Type),
		zap.String("game_id", env.GameID),
	)

	switch env.Type {
	case MsgCreateGame:
		var req CreateGameRequest
		if err := decodeData(env, &req); err != nil {
			h.replyError(client, env, CodeBadRequest, err)
			return
		}
		var g *game.Game
		var err error
		if req.GameID != "" {
			g, err = h.engine.StartGameWithID(req.GameID, req.Seats)
		} else {
			g, err = h.engine.StartGame(req.Seats)
		}
		if err != nil {
			h.replyError(client, env, CodeBadRequest, err)
			return
		}
		client.gameID, client.playerID = g.ID(), env.PlayerID
		h.join(client, g.ID())
		h.reply(client, Outbound{Type: MsgGameCreated, RequestID: env.RequestID, GameID: g.ID(), Data: g.View()})
		h.broadcastState(g)

	case MsgJoinGame:
		g, err := h.engine.Load(ctx, env.GameID)
		if err != nil {
			h.replyError(client, env, errorCode(err), err)
			return
		}
		if env.PlayerID != "" && !g.HasPlayer(env.PlayerID) {
			h.replyError(client, env, CodeBadRequest, fmt.Errorf("player %s is not seated in game %s", env.PlayerID, g.ID()))
			return
		}
		client.gameID, client.playerID = g.ID(), env.PlayerID
		h.join(client, g.ID())
		h.reply(client, Outbound{Type: MsgGameState, RequestID: env.RequestID, GameID: g.ID(), Data: g.View()})

	case MsgListGames:
		h.reply(client, Outbound{Type: MsgGameList, RequestID: env.RequestID, Data: h.engine.List()})

	case MsgGetView, MsgRoll, MsgSelectMove, MsgNegotiate, MsgEndTurn:
		h.handleGameOp(client, env)

	case MsgGetReplay, MsgReplaySeek:
		h.handleReplay(client, env)

	default:
		h.replyError(client, env, CodeBadRequest, fmt.Errorf("unknown message type %q", env.Type))
	}
}

// handleReplay serves recorded frames of any game, running or finished.
// The client keeps its own position and sends it with every seek.
func (h *Hub) handleReplay(client *Client, env Envelope) {
	gameID := env.GameID
	if gameID == "" {
		gameID = client.gameID
	}
	if gameID == "" {
		h.replyError(client, env, CodeBadRequest, errors.New("game_id is required"))
		return
	}
	replay, err := h.engine.Replay(gameID)
	if err != nil {
		h.replyError(client, env, errorCode(err), err)
		return
	}

	if env.Type == MsgGetReplay {
		h.reply(client, Outbound{
			Type:      MsgReplayInfo,
			RequestID: env.RequestID,
			GameID:    gameID,
			Data:      ReplayInfo{Frames: replay.Len(), Turns: replay.Turns()},
		})
		return
	}

	var req ReplaySeekRequest
	if err := decodeData(env, &req); err != nil {
		h.replyError(client, env, CodeBadRequest, err)
		return
	}
	index, frame, ok := replay.Seek(req.Index, req.Delta)
	if !ok {
		h.replyError(client, env, CodeReplayNotFound, fmt.Errorf("replay of game %s has no frames", gameID))
		return
	}
	h.reply(client, Outbound{
		Type:      MsgReplayFrame,
		RequestID: env.RequestID,
		GameID:    gameID,
		Data:      ReplayFrame{Index: index, Frames: replay.Len(), Snapshot: frame},
	})
}

func (h *Hub) handleGameOp(client *Client, env Envelope) {
	if client.gameID == "" {
		h.replyError(client, env, CodeNotJoined, errors.New("join a game first"))
		return
	}
	g, err := h.engine.Get(client.gameID)
	if err != nil {
		h.replyError(client, env, errorCode(err), err)
		return
	}

	var summary *game.TurnSummary
	switch env.Type {
	case MsgGetView:
		h.reply(client, Outbound{Type: MsgGameState, RequestID: env.RequestID, GameID: g.ID(), Data: g.View()})
		return

	case MsgRoll:
		var req RollRequest
		if err = decodeData(env, &req); err == nil {
			_, err = g.Roll(client.playerID, req.Value)
		}

	case MsgSelectMove:
		var req SelectMoveRequest
		if err = decodeData(env, &req); err == nil {
			_, err = g.SelectMove(client.playerID, req.SpaceID)
		}

	case MsgNegotiate:
		var s game.TurnSummary
		if s, err = g.Negotiate(client.playerID); err == nil {
			summary = &s
		}

	case MsgEndTurn:
		var s game.TurnSummary
		if s, err = g.EndTurn(client.playerID); err == nil {
			summary = &s
		}
	}

	if err != nil {
		var syntaxErr *json.SyntaxError
		var typeErr *json.UnmarshalTypeError
		code := errorCode(err)
		if errors.As(err, &syntaxErr) || errors.As(err, &typeErr) {
			code = CodeBadRequest
		}
		h.logger.Debug("request rejected",
			zap.String("client_id", client.id),
			zap.String("type", env.Type),
			zap.String("code", code),
			zap.Error(err),
		)
		h.replyError(client, env, code, err)
		return
	}

	if summary != nil {
		h.reply(client, Outbound{Type: MsgTurnSummary, RequestID: env.RequestID, GameID: g.ID(), Data: summary})
	}
	h.broadcastState(g)
}
