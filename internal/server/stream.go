package server

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"

	"github.com/rickgao/price-relay/internal/model"
)

const maxControlMessageSize = 4096

// streamConn serializes writes to one downstream socket. The forwarder,
// the read loop and the keepalive all write.
type streamConn struct {
	conn         *websocket.Conn
	writeTimeout time.Duration
	mu           sync.Mutex
}

func (sc *streamConn) writeJSON(v any) error {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	sc.conn.SetWriteDeadline(time.Now().Add(sc.writeTimeout))
	return sc.conn.WriteJSON(v)
}

func (sc *streamConn) ping() error {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	return sc.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(sc.writeTimeout))
}

func (sc *streamConn) closeNormal() {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
	sc.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(sc.writeTimeout))
}

func (s *Server) handleStream(c *gin.Context) {
	conn, err := s.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.logger.Debug("stream upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	sc := &streamConn{conn: conn, writeTimeout: s.cfg.WriteTimeout}
	engine := s.deps.Engine

	if engine == nil || !engine.Enabled() {
		sc.writeJSON(newErrorMessage(msgStreamDisabled))
		sc.closeNormal()
		return
	}

	clientID := uuid.NewString()
	if _, err := engine.RegisterClient(clientID); err != nil {
		s.logger.Warn("stream register failed", "client_id", clientID, "error", err)
		sc.writeJSON(newErrorMessage(err.Error()))
		sc.closeNormal()
		return
	}
	logger := s.logger.With("client_id", clientID)
	logger.Info("stream client connected", "remote", c.ClientIP())

	ctx, cancel := context.WithCancel(context.Background())
	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		err := engine.Forward(ctx, clientID, func(ev model.Event) error {
			return sc.writeJSON(ev)
		})
		if ctx.Err() == nil {
			// Session closed or write failed; unblock the read loop.
			logger.Debug("stream forwarder stopped", "error", err)
			conn.Close()
		}
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		s.keepalive(ctx, sc)
	}()

	defer func() {
		cancel()
		wg.Wait()
		engine.UnregisterClient(clientID)
		logger.Info("stream client disconnected")
	}()

	if err := sc.writeJSON(readyMessage{Type: "ready", ClientID: clientID}); err != nil {
		return
	}

	s.readControls(conn, sc, clientID, logger)
}

// readControls applies client control messages until the socket fails.
func (s *Server) readControls(conn *websocket.Conn, sc *streamConn, clientID string, logger *slog.Logger) {
	readTimeout := 2 * s.cfg.PingInterval
	conn.SetReadLimit(maxControlMessageSize)
	conn.SetReadDeadline(time.Now().Add(readTimeout))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(readTimeout))
	})

	limiter := rate.NewLimiter(rate.Limit(s.cfg.ClientRateLimit), s.cfg.ClientRateBurst)
	engine := s.deps.Engine

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway, websocket.CloseNoStatusReceived) {
				logger.Debug("stream read error", "error", err)
			}
			return
		}
		conn.SetReadDeadline(time.Now().Add(readTimeout))

		if !limiter.Allow() {
			sc.writeJSON(newErrorMessage(msgRateLimited))
			continue
		}

		ctrl, err := ParseControl(data)
		switch {
		case errors.Is(err, ErrUnknownAction):
			sc.writeJSON(newErrorMessage(msgUnknownAction))
			continue
		case err != nil:
			sc.writeJSON(newErrorMessage(msgInvalidMessage))
			continue
		}

		switch ctrl.Action {
		case ActionSubscribe:
			engine.Subscribe(clientID, ctrl.Symbols)
		case ActionUnsubscribe:
			engine.Unsubscribe(clientID, ctrl.Symbols)
		}
	}
}

func (s *Server) keepalive(ctx context.Context, sc *streamConn) {
	ticker := time.NewTicker(s.cfg.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := sc.ping(); err != nil {
				return
			}
		}
	}
}
