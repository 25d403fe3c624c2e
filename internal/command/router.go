// Package command turns chat lines into command invocations and runs the
// registered handlers, behind the role gate where one is required.
package command

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/dalnet/ircbot/internal/irc"
)

var (
	// ErrDuplicateAlias is returned when two registrations share a name.
	ErrDuplicateAlias = errors.New("command: alias already registered")
	// ErrFrozen is returned when registering after Freeze.
	ErrFrozen = errors.New("command: registry is frozen")
	// ErrTimeout is reported when a handler overruns its budget.
	ErrTimeout = errors.New("command: handler timed out")
)

// User-visible replies for failed handlers.
const (
	FailureMessage = "There was an error in this module."
	TimeoutMessage = "Request timed out."
)

// Handler runs one invocation. A non-empty result is sent back to the
// invocation's channel. Handlers must respect ctx for blocking work.
type Handler func(ctx context.Context, conn *irc.Context, inv Invocation) (string, error)

// Command is one registration.
type Command struct {
	Names   []string // aliases, at least one
	Roles   []string // required roles; empty means anyone
	Async   bool     // run on the worker pool instead of the read loop
	Handler Handler
}

type entry struct {
	owner   string
	cmd     Command
	handler Handler // gated
}

// Options configures a Router.
type Options struct {
	Prefix  string
	Timeout time.Duration // budget per invocation
	Workers int
	Gate    *Gate
	Logger  *log.Logger
}

// Router maps aliases to registrations. It is populated during plugin
// load and frozen before the read loop starts.
type Router struct {
	prefix  string
	timeout time.Duration
	gate    *Gate
	pool    *Pool
	log     *log.Logger

	mu       sync.RWMutex
	commands map[string]*entry
	frozen   bool
}

// NewRouter creates a router and starts its worker pool.
func NewRouter(opts Options) *Router {
	if opts.Logger == nil {
		opts.Logger = log.Default()
	}
	if opts.Prefix == "" {
		opts.Prefix = "."
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 7 * time.Second
	}
	if opts.Gate == nil {
		opts.Gate = NewGate(nil, 0, opts.Logger)
	}
	return &Router{
		prefix:   opts.Prefix,
		timeout:  opts.Timeout,
		gate:     opts.Gate,
		pool:     NewPool(opts.Workers, opts.Logger),
		log:      opts.Logger,
		commands: make(map[string]*entry),
	}
}

// Register adds cmd under every one of its names. No alias may already
// be taken, and nothing is registered if any is.
func (r *Router) Register(owner string, cmd Command) error {
	if len(cmd.Names) == 0 {
		return fmt.Errorf("command from %s has no names", owner)
	}
	if cmd.Handler == nil {
		return fmt.Errorf("command %q from %s has no handler", cmd.Names[0], owner)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.frozen {
		return fmt.Errorf("%w: %q from %s", ErrFrozen, cmd.Names[0], owner)
	}

	seen := make(map[string]bool)
	for _, name := range cmd.Names {
		if name == "" || strings.ContainsAny(name, " \t") {
			return fmt.Errorf("command from %s has invalid name %q", owner, name)
		}
		if prev, ok := r.commands[name]; ok {
			return fmt.Errorf("%w: %q from %s, already taken by %s", ErrDuplicateAlias, name, owner, prev.owner)
		}
		if seen[name] {
			return fmt.Errorf("%w: %q listed twice by %s", ErrDuplicateAlias, name, owner)
		}
		seen[name] = true
	}

	e := &entry{owner: owner, cmd: cmd, handler: r.gate.Wrap(cmd.Roles, cmd.Handler)}
	for _, name := range cmd.Names {
		r.commands[name] = e
	}
	return nil
}

// Freeze stops further registration.
func (r *Router) Freeze() {
	r.mu.Lock()
	r.frozen = true
	r.mu.Unlock()
}

// Names lists every registered alias, sorted.
func (r *Router) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.commands))
	for name := range r.commands {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// HandleLine is the bus handler for irc.EventLine.
func (r *Router) HandleLine(conn *irc.Context) error {
	inv, ok := Parse(conn.Line(), r.prefix)
	if !ok {
		return nil
	}

	r.mu.RLock()
	e := r.commands[inv.Name]
	r.mu.RUnlock()

	if e == nil {
		return nil
	}

	if e.cmd.Async {
		r.pool.Submit(func() { r.runAsync(conn, e, inv) })
		return nil
	}
	r.runSync(conn, e, inv)
	return nil
}

// Wait blocks until every off-loaded handler has finished.
func (r *Router) Wait() {
	r.pool.Wait()
}

// Close drains and stops the worker pool.
func (r *Router) Close() {
	r.pool.Close()
}

func (r *Router) runSync(conn *irc.Context, e *entry, inv Invocation) {
	ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
	defer cancel()

	// Bounded even here, so a stuck handler can't stall the read loop.
	text, err := callWithin(ctx, e.handler, conn, inv)
	r.respond(e, inv, text, err, conn.Reply)
}

func (r *Router) runAsync(conn *irc.Context, e *entry, inv Invocation) {
	ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
	defer cancel()

	text, err := callWithin(ctx, e.handler, conn, inv)
	if conn.Closed() {
		r.log.Debug("connection gone, discarding result", "command", inv.Name)
		return
	}
	// The current line has moved on by now; answer the captured channel.
	r.respond(e, inv, text, err, func(message string) error {
		return conn.Say(inv.Channel, message)
	})
}

func (r *Router) respond(e *entry, inv Invocation, text string, err error, send func(string) error) {
	switch {
	case errors.Is(err, ErrDenied):
		return
	case errors.Is(err, ErrTimeout), errors.Is(err, context.DeadlineExceeded):
		r.log.Warn("command timed out", "command", inv.Name, "plugin", e.owner, "nick", inv.Nick)
		text = TimeoutMessage
	case err != nil:
		r.log.Error("command failed", "command", inv.Name, "plugin", e.owner, "nick", inv.Nick, "err", err)
		text = FailureMessage
	}

	if text == "" {
		return
	}
	if err := send(text); err != nil {
		r.log.Error("could not send command output", "command", inv.Name, "err", err)
	}
}

// call runs h, turning a panic into an error.
func call(ctx context.Context, h Handler, conn *irc.Context, inv Invocation) (text string, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("panic: %v", rec)
		}
	}()
	return h(ctx, conn, inv)
}

type result struct {
	text string
	err  error
}

// callWithin returns when h does or when ctx expires, whichever is first.
func callWithin(ctx context.Context, h Handler, conn *irc.Context, inv Invocation) (string, error) {
	done := make(chan result, 1)
	go func() {
		text, err := call(ctx, h, conn, inv)
		done <- result{text: text, err: err}
	}()

	select {
	case res := <-done:
		return res.text, res.err
	case <-ctx.Done():
		return "", ErrTimeout
	}
}
