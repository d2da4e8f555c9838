package server

import (
	"net/http/httptest"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/rickgao/price-relay/internal/connection"
	"github.com/rickgao/price-relay/internal/model"
	"github.com/rickgao/price-relay/internal/relay"
)

type streamMessage struct {
	Type     string  `json:"type"`
	ClientID string  `json:"clientId"`
	Message  string  `json:"message"`
	Symbol   string  `json:"symbol"`
	Price    float64 `json:"price"`
}

func dialStream(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/stream/prices"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial stream: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readMessage(t *testing.T, conn *websocket.Conn) streamMessage {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var msg streamMessage
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("read stream message: %v", err)
	}
	return msg
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func startStreamServer(t *testing.T, cfg Config, engine *relay.Engine) *httptest.Server {
	t.Helper()
	s := newTestServer(cfg, Deps{Engine: engine})
	srv := httptest.NewServer(s.Handler())
	t.Cleanup(srv.Close)
	return srv
}

func TestStream_Disabled(t *testing.T) {
	engine := relay.New(relay.DefaultConfig(), testLogger(), nil)
	srv := startStreamServer(t, Config{}, engine)
	conn := dialStream(t, srv)

	msg := readMessage(t, conn)
	if msg.Type != "error" || msg.Message != msgStreamDisabled {
		t.Errorf("message = %+v, want disabled error", msg)
	}

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, _, err := conn.ReadMessage()
	if !websocket.IsCloseError(err, websocket.CloseNormalClosure) {
		t.Errorf("read after error = %v, want normal close", err)
	}
}

func TestStream_SubscribeAndReceive(t *testing.T) {
	engine := newTestEngine()
	srv := startStreamServer(t, Config{}, engine)
	conn := dialStream(t, srv)

	ready := readMessage(t, conn)
	if ready.Type != "ready" || ready.ClientID == "" {
		t.Fatalf("first message = %+v, want ready with client id", ready)
	}
	id := ready.ClientID

	if err := conn.WriteJSON(map[string]any{"action": "subscribe", "symbols": []string{"aapl", "MSFT"}}); err != nil {
		t.Fatalf("write subscribe: %v", err)
	}
	waitFor(t, "subscription", func() bool {
		return slices.Equal(engine.Symbols(id), []string{"AAPL", "MSFT"})
	})

	wantCmds := []connection.Command{connection.Subscribe("AAPL"), connection.Subscribe("MSFT")}
	if got := engine.PendingCommands(); !slices.Equal(got, wantCmds) {
		t.Errorf("PendingCommands() = %+v, want %+v", got, wantCmds)
	}

	sessions := engine.SessionsFor("AAPL")
	if len(sessions) != 1 {
		t.Fatalf("SessionsFor(AAPL) = %d sessions, want 1", len(sessions))
	}
	sessions[0].Enqueue(model.Event{Type: model.EventTypeTrade, Symbol: "AAPL", Price: 189.5, Timestamp: 1, Source: "finnhub"})

	trade := readMessage(t, conn)
	if trade.Type != "trade" || trade.Symbol != "AAPL" || trade.Price != 189.5 {
		t.Errorf("trade = %+v, want AAPL 189.5", trade)
	}

	if err := conn.WriteJSON(map[string]any{"action": "unsubscribe", "symbols": []string{"MSFT"}}); err != nil {
		t.Fatalf("write unsubscribe: %v", err)
	}
	waitFor(t, "unsubscribe", func() bool {
		return slices.Equal(engine.Symbols(id), []string{"AAPL"})
	})
}

func TestStream_ControlErrors(t *testing.T) {
	engine := newTestEngine()
	srv := startStreamServer(t, Config{}, engine)
	conn := dialStream(t, srv)
	readMessage(t, conn) // ready

	conn.WriteMessage(websocket.TextMessage, []byte(`{"action":"resubscribe","symbols":["AAPL"]}`))
	if msg := readMessage(t, conn); msg.Type != "error" || msg.Message != msgUnknownAction {
		t.Errorf("unknown action reply = %+v, want %q", msg, msgUnknownAction)
	}

	conn.WriteMessage(websocket.TextMessage, []byte(`not json`))
	if msg := readMessage(t, conn); msg.Type != "error" || msg.Message != msgInvalidMessage {
		t.Errorf("invalid json reply = %+v, want %q", msg, msgInvalidMessage)
	}

	if got := engine.Stats().ActiveSymbols; got != 0 {
		t.Errorf("ActiveSymbols = %d, want 0", got)
	}
}

func TestStream_RateLimited(t *testing.T) {
	engine := newTestEngine()
	srv := startStreamServer(t, Config{ClientRateLimit: 0.001, ClientRateBurst: 1}, engine)
	conn := dialStream(t, srv)
	id := readMessage(t, conn).ClientID

	conn.WriteJSON(map[string]any{"action": "subscribe", "symbols": []string{"AAPL"}})
	conn.WriteJSON(map[string]any{"action": "subscribe", "symbols": []string{"MSFT"}})

	if msg := readMessage(t, conn); msg.Type != "error" || msg.Message != msgRateLimited {
		t.Errorf("second message reply = %+v, want %q", msg, msgRateLimited)
	}
	if got := engine.Symbols(id); !slices.Equal(got, []string{"AAPL"}) {
		t.Errorf("Symbols() = %v, want [AAPL]", got)
	}
}

func TestStream_DisconnectUnregisters(t *testing.T) {
	engine := newTestEngine()
	srv := startStreamServer(t, Config{}, engine)
	conn := dialStream(t, srv)
	readMessage(t, conn)

	conn.WriteJSON(map[string]any{"action": "subscribe", "symbols": []string{"TSLA"}})
	waitFor(t, "subscription", func() bool { return engine.Stats().ActiveSymbols == 1 })

	conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	conn.Close()

	waitFor(t, "unregister", func() bool {
		st := engine.Stats()
		return st.Clients == 0 && st.ActiveSymbols == 0
	})

	want := []connection.Command{connection.Subscribe("TSLA"), connection.Unsubscribe("TSLA")}
	if got := engine.PendingCommands(); !slices.Equal(got, want) {
		t.Errorf("PendingCommands() = %+v, want %+v", got, want)
	}
}

func TestStream_EngineStopClosesSocket(t *testing.T) {
	engine := newTestEngine()
	srv := startStreamServer(t, Config{}, engine)
	conn := dialStream(t, srv)
	readMessage(t, conn)

	engine.Stop(t.Context())

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	if _, _, err := conn.ReadMessage(); err == nil {
		t.Error("read after engine stop succeeded, want error")
	}
}
