package irc

import (
	"sync"

	"github.com/charmbracelet/log"
)

// Session owns the Context of the current connection and drives the bus
// through its lifecycle: Open, Dispatch per line, Close.
type Session struct {
	bus *Bus
	log *log.Logger

	mu  sync.RWMutex
	ctx *Context
}

// NewSession binds a session to a bus. Logger may be nil.
func NewSession(bus *Bus, logger *log.Logger) *Session {
	if logger == nil {
		logger = log.Default()
	}
	return &Session{bus: bus, log: logger}
}

// Open builds a fresh Context over t, fires EventReady so plugins can
// attach capabilities, then seals it. Any previous context is closed.
func (s *Session) Open(t Transport) *Context {
	ctx := NewContext(t, s.log)

	s.bus.Publish(EventReady, ctx)
	ctx.MarkReady()

	s.mu.Lock()
	prev := s.ctx
	s.ctx = ctx
	s.mu.Unlock()

	if prev != nil {
		prev.Close()
	}
	return ctx
}

// Context returns the live context, or nil when disconnected.
func (s *Session) Context() *Context {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ctx
}

// Dispatch makes l the current line and fires EventLine. Lines that
// arrive before Open or after Close are dropped.
func (s *Session) Dispatch(l Line) {
	ctx := s.Context()
	if ctx == nil || !ctx.Ready() {
		s.log.Debug("dropping line, no ready connection", "command", l.Command)
		return
	}
	ctx.SetLine(l)
	s.bus.Publish(EventLine, ctx)
}

// DispatchRaw parses raw and dispatches it. Unparseable lines are dropped.
func (s *Session) DispatchRaw(raw string) {
	l, err := ParseLine(raw)
	if err != nil {
		s.log.Debug("dropping malformed line", "line", raw, "err", err)
		return
	}
	s.Dispatch(l)
}

// Close tears down the live context and fires EventDisconnect.
func (s *Session) Close() {
	s.mu.Lock()
	ctx := s.ctx
	s.ctx = nil
	s.mu.Unlock()

	if ctx == nil {
		return
	}
	ctx.Close()
	s.bus.Publish(EventDisconnect, ctx)
}
