package command

import (
	"context"
	"errors"
	"time"

	"github.com/charmbracelet/log"
	"github.com/dalnet/ircbot/internal/auth"
	"github.com/dalnet/ircbot/internal/irc"
)

// ErrDenied is returned by a gated handler when the caller lacks the
// required roles. The router drops it without telling the channel.
var ErrDenied = errors.New("command: permission denied")

// Gate restricts handlers to callers holding at least one required role.
type Gate struct {
	store   auth.RoleStore
	timeout time.Duration
	log     *log.Logger
}

// NewGate creates a gate over store. A nil store denies every restricted
// command.
func NewGate(store auth.RoleStore, timeout time.Duration, logger *log.Logger) *Gate {
	if logger == nil {
		logger = log.Default()
	}
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	return &Gate{store: store, timeout: timeout, log: logger}
}

// Wrap returns h guarded by required. With no required roles h is
// returned unchanged.
func (g *Gate) Wrap(required []string, h Handler) Handler {
	if len(required) == 0 {
		return h
	}
	roles := make([]string, len(required))
	copy(roles, required)

	return func(ctx context.Context, conn *irc.Context, inv Invocation) (string, error) {
		if !g.Allowed(ctx, inv.Identity, roles) {
			return "", ErrDenied
		}
		return h(ctx, conn, inv)
	}
}

// Allowed resolves id's roles and reports whether any is in required.
// Lookup failures and timeouts count as holding no roles.
func (g *Gate) Allowed(ctx context.Context, id auth.Identity, required []string) bool {
	if len(required) == 0 {
		return true
	}
	if g.store == nil {
		return false
	}

	roles, err := g.lookup(ctx, id)
	if err != nil {
		g.log.Warn("role lookup failed, denying", "identity", id.Mask(), "err", err)
		return false
	}

	for _, want := range required {
		for _, have := range roles {
			if want == have {
				return true
			}
		}
	}
	g.log.Debug("denied", "identity", id.Mask(), "required", required)
	return false
}

type lookupResult struct {
	roles []string
	err   error
}

// lookup bounds the store call by the gate timeout even when the store
// ignores its context.
func (g *Gate) lookup(ctx context.Context, id auth.Identity) ([]string, error) {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	done := make(chan lookupResult, 1)
	go func() {
		roles, err := g.store.Roles(ctx, id)
		done <- lookupResult{roles: roles, err: err}
	}()

	select {
	case res := <-done:
		return res.roles, res.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
