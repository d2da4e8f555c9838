package router

import (
	"sync"
	"testing"
	"time"

	"github.com/rickgao/price-relay/internal/connection"
	"github.com/rickgao/price-relay/internal/model"
	"github.com/rickgao/price-relay/internal/session"
)

type fakeSubscribers map[string][]*session.Session

func (f fakeSubscribers) SessionsFor(symbol string) []*session.Session {
	return f[symbol]
}

type fakeReplier struct {
	mu   sync.Mutex
	cmds []connection.Command
}

func (f *fakeReplier) Enqueue(cmd connection.Command) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cmds = append(f.cmds, cmd)
}

func frame(data string) connection.TimestampedMessage {
	return connection.TimestampedMessage{
		Data:       []byte(data),
		ReceivedAt: time.UnixMilli(1700000000000),
	}
}

func TestDispatcher_FanOutToSubscribersOnly(t *testing.T) {
	x := session.New("X", 10, nil)
	y := session.New("Y", 10, nil)
	subs := fakeSubscribers{"MSFT": {x}, "AAPL": {y}}
	replier := &fakeReplier{}

	d := NewDispatcher(subs, replier, "", nil, nil)
	d.HandleFrame(frame(`{"type":"trade","data":[{"s":"MSFT","p":410.1,"t":1700000000000}]}`))

	if x.Queue().Len() != 1 {
		t.Fatalf("X queue length = %d, want 1", x.Queue().Len())
	}
	if y.Queue().Len() != 0 {
		t.Errorf("Y queue length = %d, want 0", y.Queue().Len())
	}

	ev, _ := x.Queue().TryReceive()
	want := model.Event{
		Type:      "trade",
		Symbol:    "MSFT",
		Price:     410.1,
		Volume:    nil,
		Timestamp: 1700000000000,
		Source:    "finnhub",
	}
	if ev != want {
		t.Errorf("event = %+v, want %+v", ev, want)
	}

	if len(replier.cmds) != 0 {
		t.Errorf("replier received %d commands, want 0", len(replier.cmds))
	}
}

func TestDispatcher_PingRepliesPongOnly(t *testing.T) {
	x := session.New("X", 10, nil)
	subs := fakeSubscribers{"MSFT": {x}}
	replier := &fakeReplier{}

	d := NewDispatcher(subs, replier, "", nil, nil)
	d.HandleFrame(frame(`{"type":"ping"}`))

	if len(replier.cmds) != 1 || replier.cmds[0] != connection.Pong() {
		t.Errorf("replier commands = %+v, want [pong]", replier.cmds)
	}
	if x.Queue().Len() != 0 {
		t.Errorf("queue length = %d, want 0 after ping", x.Queue().Len())
	}
	if got := d.Stats().Pings; got != 1 {
		t.Errorf("Pings = %d, want 1", got)
	}
}

func TestDispatcher_MultipleRecordsAndSubscribers(t *testing.T) {
	a := session.New("A", 10, nil)
	b := session.New("B", 10, nil)
	subs := fakeSubscribers{"AAPL": {a, b}, "TSLA": {b}}

	d := NewDispatcher(subs, &fakeReplier{}, "test", nil, nil)
	d.HandleFrame(frame(`{"type":"trade","data":[
		{"s":"AAPL","p":190.5,"v":100,"t":1},
		{"s":"TSLA","p":250,"v":5,"t":2},
		{"s":"NVDA","p":900,"t":3}
	]}`))

	if a.Queue().Len() != 1 {
		t.Errorf("A queue length = %d, want 1", a.Queue().Len())
	}
	if b.Queue().Len() != 2 {
		t.Errorf("B queue length = %d, want 2", b.Queue().Len())
	}

	ev, _ := a.Queue().TryReceive()
	if ev.Volume == nil || *ev.Volume != 100 {
		t.Errorf("Volume = %v, want 100", ev.Volume)
	}
	if ev.Source != "test" {
		t.Errorf("Source = %q, want test", ev.Source)
	}

	stats := d.Stats()
	if stats.TradesReceived != 3 {
		t.Errorf("TradesReceived = %d, want 3", stats.TradesReceived)
	}
	if stats.Dispatched != 3 {
		t.Errorf("Dispatched = %d, want 3", stats.Dispatched)
	}
}

func TestDispatcher_SkipsIncompleteRecords(t *testing.T) {
	a := session.New("A", 10, nil)
	subs := fakeSubscribers{"AAPL": {a}}

	d := NewDispatcher(subs, &fakeReplier{}, "", nil, nil)
	d.HandleFrame(frame(`{"type":"trade","data":[
		{"p":190.5},
		{"s":"AAPL"},
		{"s":"aapl","p":191}
	]}`))

	if a.Queue().Len() != 1 {
		t.Fatalf("queue length = %d, want 1", a.Queue().Len())
	}
	ev, _ := a.Queue().TryReceive()
	if ev.Symbol != "AAPL" || ev.Price != 191 {
		t.Errorf("event = %+v, want AAPL at 191", ev)
	}
	if ev.Timestamp != 1700000000000 {
		t.Errorf("Timestamp = %d, want receipt time 1700000000000", ev.Timestamp)
	}
	if got := d.Stats().Skipped; got != 2 {
		t.Errorf("Skipped = %d, want 2", got)
	}
}

func TestDispatcher_MalformedFrames(t *testing.T) {
	a := session.New("A", 10, nil)
	subs := fakeSubscribers{"AAPL": {a}}
	replier := &fakeReplier{}

	d := NewDispatcher(subs, replier, "", nil, nil)

	frames := []string{
		`not json`,
		`{"type":"trade","data":"oops"}`,
		``,
	}
	for _, f := range frames {
		d.HandleFrame(frame(f))
	}

	// A valid frame after garbage is still handled
	d.HandleFrame(frame(`{"type":"trade","data":[{"s":"AAPL","p":1}]}`))

	stats := d.Stats()
	if stats.ParseErrors != int64(len(frames)) {
		t.Errorf("ParseErrors = %d, want %d", stats.ParseErrors, len(frames))
	}
	if stats.FramesReceived != int64(len(frames))+1 {
		t.Errorf("FramesReceived = %d, want %d", stats.FramesReceived, len(frames)+1)
	}
	if a.Queue().Len() != 1 {
		t.Errorf("queue length = %d, want 1", a.Queue().Len())
	}
	if len(replier.cmds) != 0 {
		t.Errorf("replier received %d commands, want 0", len(replier.cmds))
	}
}

func TestDispatcher_IgnoresOtherTypes(t *testing.T) {
	a := session.New("A", 10, nil)
	subs := fakeSubscribers{"AAPL": {a}}
	replier := &fakeReplier{}

	d := NewDispatcher(subs, replier, "", nil, nil)
	d.HandleFrame(frame(`{"type":"news","data":[{"s":"AAPL","p":1}]}`))
	d.HandleFrame(frame(`{"type":"error","msg":"Invalid symbol"}`))

	if a.Queue().Len() != 0 {
		t.Errorf("queue length = %d, want 0", a.Queue().Len())
	}
	if got := d.Stats().ParseErrors; got != 0 {
		t.Errorf("ParseErrors = %d, want 0", got)
	}
}
