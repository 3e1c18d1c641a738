package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/pmquest/pmgame-server/internal/config"
	"go.uber.org/zap"
)

const (
	writeWait      = 5 * time.Second
	maxMessageSize = 64 * 1024
	sendBuffer     = 64
)

// Client is one websocket connection. gameID and playerID are only touched
// by the client's read loop.
type Client struct {
	id   string
	conn *websocket.Conn
	send chan []byte

	gameID   string
	playerID string
}

// WebSocketServer accepts client connections and feeds them to a Hub.
type WebSocketServer struct {
	cfg      config.WebSocketConfig
	hub      *Hub
	logger   *zap.Logger
	upgrader websocket.Upgrader
	http     *http.Server
}

// NewWebSocketServer builds the websocket listener for hub.
func NewWebSocketServer(cfg config.WebSocketConfig, hub *Hub, logger *zap.Logger) *WebSocketServer {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.PingInterval <= 0 {
		cfg.PingInterval = 30 * time.Second
	}
	if cfg.Path == "" {
		cfg.Path = "/ws"
	}
	s := &WebSocketServer{
		cfg:    cfg,
		hub:    hub,
		logger: logger.Named("websocket"),
	}
	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  cfg.ReadBufferSize,
		WriteBufferSize: cfg.WriteBufferSize,
		CheckOrigin:     s.checkOrigin,
	}
	return s
}

// checkOrigin allows every origin when none are configured.
func (s *WebSocketServer) checkOrigin(r *http.Request) bool {
	if len(s.cfg.AllowedOrigins) == 0 {
		return true
	}
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	for _, allowed := range s.cfg.AllowedOrigins {
		if allowed == "*" || strings.EqualFold(allowed, origin) {
			return true
		}
	}
	return false
}

// Handler returns the mux serving the websocket path and a health check endpoint.
func (s *WebSocketServer) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc(s.cfg.Path, s.serveWS)
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	return mux
}

// ListenAndServe serves until Shutdown is called.
func (s *WebSocketServer) ListenAndServe() error {
	s.http = &http.Server{
		Addr:              s.cfg.Address,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.logger.Info("websocket server listening",
		zap.String("address", s.cfg.Address),
		zap.String("path", s.cfg.Path),
	)
	if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops accepting connections. Open connections are closed when
// the hub stops.
func (s *WebSocketServer) Shutdown(ctx context.Context) error {
	if s.http == nil {
		return nil
	}
	return s.http.Shutdown(ctx)
}

func (s *WebSocketServer) serveWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	client := &Client{
		id:   uuid.NewString(),
		conn: conn,
		send: make(chan []byte, sendBuffer),
	}
	select {
	case s.hub.register <- client:
	case <-s.hub.done:
		conn.Close()
		return
	}
	s.logger.Info("client connected",
		zap.String("client_id", client.id),
		zap.String("remote_addr", r.RemoteAddr),
	)

	go s.writePump(client)
	s.readPump(r.Context(), client)
}

func (s *WebSocketServer) readPump(ctx context.Context, c *Client) {
	defer func() {
		select {
		case s.hub.unregister <- c:
		case <-s.hub.done:
		}
		c.conn.Close()
		s.logger.Info("client disconnected", zap.String("client_id", c.id))
	}()

	pongWait := 2 * s.cfg.PingInterval
	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.logger.Warn("websocket read failed", zap.String("client_id", c.id), zap.Error(err))
			}
			return
		}
		_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))

		var env Envelope
		if err := json.Unmarshal(message, &env); err != nil {
			s.hub.replyError(c, Envelope{}, CodeBadRequest, err)
			continue
		}
		s.hub.handleMessage(ctx, c, env)
	}
}

func (s *WebSocketServer) writePump(c *Client) {
	ticker := time.NewTicker(s.cfg.PingInterval)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
