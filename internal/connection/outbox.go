package connection

import (
	"context"
	"sync"
)

// outbox is an unbounded FIFO of commands awaiting the sender duty.
// Push never blocks.
type outbox struct {
	mu     sync.Mutex
	items  []Command
	notify chan struct{}
}

func newOutbox() *outbox {
	return &outbox{notify: make(chan struct{}, 1)}
}

func (o *outbox) push(cmd Command) {
	o.mu.Lock()
	o.items = append(o.items, cmd)
	o.mu.Unlock()
	o.signal()
}

// replace discards every queued command and queues cmds instead.
func (o *outbox) replace(cmds []Command) {
	o.mu.Lock()
	o.items = append(make([]Command, 0, len(cmds)), cmds...)
	o.mu.Unlock()
	o.signal()
}

func (o *outbox) signal() {
	select {
	case o.notify <- struct{}{}:
	default:
	}
}

// pop waits for the oldest command. Returns false if ctx is done first.
func (o *outbox) pop(ctx context.Context) (Command, bool) {
	for {
		o.mu.Lock()
		if len(o.items) > 0 {
			cmd := o.items[0]
			o.items[0] = Command{}
			o.items = o.items[1:]
			o.mu.Unlock()
			return cmd, true
		}
		o.mu.Unlock()

		select {
		case <-ctx.Done():
			return Command{}, false
		case <-o.notify:
		}
	}
}

func (o *outbox) snapshot() []Command {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]Command(nil), o.items...)
}

func (o *outbox) size() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.items)
}
