package irc

import (
	"fmt"
	"sync"

	"github.com/charmbracelet/log"
)

// Lifecycle events fired by the client.
const (
	// EventReady fires once per connection, before the first line is
	// dispatched. Subscribers attach capabilities to the Context.
	EventReady = "connection-ready"
	// EventLine fires for every inbound line, in arrival order.
	EventLine = "line-received"
	// EventDisconnect fires when the connection drops.
	EventDisconnect = "disconnected"
)

// Handler reacts to an event. Returned errors and panics are logged and
// never stop the remaining handlers.
type Handler func(ctx *Context) error

type subscription struct {
	owner string
	fn    Handler
}

// Bus delivers named events to subscribers in registration order.
type Bus struct {
	mu   sync.Mutex
	subs map[string][]subscription
	log  *log.Logger
}

// NewBus creates an empty bus. Logger may be nil.
func NewBus(logger *log.Logger) *Bus {
	if logger == nil {
		logger = log.Default()
	}
	return &Bus{
		subs: make(map[string][]subscription),
		log:  logger,
	}
}

// Subscribe registers fn for event. Owner names the plugin in logs.
func (b *Bus) Subscribe(event, owner string, fn Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subs[event] = append(b.subs[event], subscription{owner: owner, fn: fn})
}

// Publish runs every handler for event against ctx. The subscriber list
// is snapshotted first, so handlers that subscribe during the call only
// see the next publish.
func (b *Bus) Publish(event string, ctx *Context) {
	b.mu.Lock()
	subs := make([]subscription, len(b.subs[event]))
	copy(subs, b.subs[event])
	b.mu.Unlock()

	for _, s := range subs {
		if err := b.run(s, ctx); err != nil {
			b.log.Error("event handler failed", "event", event, "plugin", s.owner, "err", err)
		}
	}
}

// Subscribers returns how many handlers are registered for event.
func (b *Bus) Subscribers(event string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs[event])
}

func (b *Bus) run(s subscription, ctx *Context) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return s.fn(ctx)
}
