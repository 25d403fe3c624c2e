package irc

import (
	"errors"
	"fmt"
	"sync"

	"github.com/charmbracelet/log"
)

var (
	// ErrDisconnected is returned by SendLine once the context is closed.
	ErrDisconnected = errors.New("irc: connection closed")
	// ErrMissingCapability is returned when a capability was never attached.
	ErrMissingCapability = errors.New("irc: capability not attached")
	// ErrSealed is returned when attaching after the context went ready.
	ErrSealed = errors.New("irc: capabilities already sealed")
)

// Transport is the live connection the context writes through. Framing
// (CRLF) is the transport's job.
type Transport interface {
	SendRaw(line string) error
	CurrentNick() string
}

// Capability function shapes. Each one composes a single protocol line.
type (
	ReplyFunc   func(message string) error
	SendFunc    func(target, message string) error
	ChannelFunc func(channel string) error
)

// Capability names, used for attachment bookkeeping and error messages.
const (
	CapReply  = "reply"
	CapSay    = "say"
	CapNotice = "notice"
	CapAction = "action"
	CapJoin   = "join"
	CapPart   = "part"
)

type capabilities struct {
	reply  ReplyFunc
	say    SendFunc
	notice SendFunc
	action SendFunc
	join   ChannelFunc
	part   ChannelFunc
}

// Context is the state of one live connection. It is created on connect
// and closed on disconnect; a new one is built for every reconnect.
//
// Capabilities are attached during the connection-ready phase and sealed
// by MarkReady. After that they are read-only and safe to call from any
// goroutine.
type Context struct {
	transport Transport
	log       *log.Logger

	mu     sync.RWMutex
	line   Line
	closed bool

	ready    chan struct{}
	seal     sync.Once
	caps     capabilities
	attached map[string]int
}

// NewContext wraps a transport. Logger may be nil.
func NewContext(t Transport, logger *log.Logger) *Context {
	if logger == nil {
		logger = log.Default()
	}
	return &Context{
		transport: t,
		log:       logger,
		ready:     make(chan struct{}),
		attached:  make(map[string]int),
	}
}

// SendLine writes one raw protocol line.
func (c *Context) SendLine(line string) error {
	c.mu.RLock()
	closed := c.closed
	c.mu.RUnlock()
	if closed {
		return ErrDisconnected
	}
	if err := c.transport.SendRaw(line); err != nil {
		return fmt.Errorf("send %q: %w", line, err)
	}
	return nil
}

// Nick is the bot's current nickname.
func (c *Context) Nick() string {
	return c.transport.CurrentNick()
}

// SetLine replaces the current parsed line. Only the read loop calls this.
func (c *Context) SetLine(l Line) {
	c.mu.Lock()
	c.line = l
	c.mu.Unlock()
}

// Line returns a copy of the line currently being dispatched.
func (c *Context) Line() Line {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.line.Copy()
}

// Close tears the context down. Later sends fail with ErrDisconnected.
func (c *Context) Close() {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()
}

// Closed reports whether Close has been called.
func (c *Context) Closed() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.closed
}

// MarkReady seals the capability set. Safe to call more than once.
func (c *Context) MarkReady() {
	c.seal.Do(func() { close(c.ready) })
}

// Ready reports whether capability attachment has completed.
func (c *Context) Ready() bool {
	select {
	case <-c.ready:
		return true
	default:
		return false
	}
}

// Attached reports whether the named capability has been attached.
func (c *Context) Attached(name string) bool {
	return c.attached[name] > 0
}

func (c *Context) attach(name string) error {
	if c.Ready() {
		return fmt.Errorf("%w: %s", ErrSealed, name)
	}
	c.attached[name]++
	if c.attached[name] > 1 {
		c.log.Warn("capability attached more than once, last one wins", "capability", name)
	}
	return nil
}

// AttachReply sets the reply capability. Each Attach method fails with
// ErrSealed once MarkReady has run; attaching twice keeps the last one.
func (c *Context) AttachReply(fn ReplyFunc) error {
	if err := c.attach(CapReply); err != nil {
		return err
	}
	c.caps.reply = fn
	return nil
}

// AttachSay sets the say capability.
func (c *Context) AttachSay(fn SendFunc) error {
	if err := c.attach(CapSay); err != nil {
		return err
	}
	c.caps.say = fn
	return nil
}

// AttachNotice sets the notice capability.
func (c *Context) AttachNotice(fn SendFunc) error {
	if err := c.attach(CapNotice); err != nil {
		return err
	}
	c.caps.notice = fn
	return nil
}

// AttachAction sets the CTCP ACTION capability.
func (c *Context) AttachAction(fn SendFunc) error {
	if err := c.attach(CapAction); err != nil {
		return err
	}
	c.caps.action = fn
	return nil
}

// AttachJoin sets the join capability.
func (c *Context) AttachJoin(fn ChannelFunc) error {
	if err := c.attach(CapJoin); err != nil {
		return err
	}
	c.caps.join = fn
	return nil
}

// AttachPart sets the part capability.
func (c *Context) AttachPart(fn ChannelFunc) error {
	if err := c.attach(CapPart); err != nil {
		return err
	}
	c.caps.part = fn
	return nil
}

// Reply answers the current line in its channel, or privately.
func (c *Context) Reply(message string) error {
	if c.caps.reply == nil {
		return fmt.Errorf("%w: %s", ErrMissingCapability, CapReply)
	}
	return c.caps.reply(message)
}

// Say sends a message to an explicit target.
func (c *Context) Say(target, message string) error {
	if c.caps.say == nil {
		return fmt.Errorf("%w: %s", ErrMissingCapability, CapSay)
	}
	return c.caps.say(target, message)
}

// Notice sends a notice to an explicit target.
func (c *Context) Notice(target, message string) error {
	if c.caps.notice == nil {
		return fmt.Errorf("%w: %s", ErrMissingCapability, CapNotice)
	}
	return c.caps.notice(target, message)
}

// Action sends a CTCP ACTION to an explicit target.
func (c *Context) Action(target, message string) error {
	if c.caps.action == nil {
		return fmt.Errorf("%w: %s", ErrMissingCapability, CapAction)
	}
	return c.caps.action(target, message)
}

// Join joins a channel.
func (c *Context) Join(channel string) error {
	if c.caps.join == nil {
		return fmt.Errorf("%w: %s", ErrMissingCapability, CapJoin)
	}
	return c.caps.join(channel)
}

// Part leaves a channel.
func (c *Context) Part(channel string) error {
	if c.caps.part == nil {
		return fmt.Errorf("%w: %s", ErrMissingCapability, CapPart)
	}
	return c.caps.part(channel)
}
