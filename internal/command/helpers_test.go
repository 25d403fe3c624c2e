package command

import (
	"sync"
	"testing"

	"github.com/dalnet/ircbot/internal/auth"
	"github.com/dalnet/ircbot/internal/irc"
	"github.com/dalnet/ircbot/internal/logger"
)

type recorder struct {
	mu    sync.Mutex
	lines []string
}

func (r *recorder) SendRaw(line string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lines = append(r.lines, line)
	return nil
}

func (r *recorder) CurrentNick() string { return "bot" }

func (r *recorder) sent() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.lines))
	copy(out, r.lines)
	return out
}

// harness wires a bus, session and router over a recording transport.
type harness struct {
	t       *testing.T
	bus     *irc.Bus
	session *irc.Session
	router  *Router
	rec     *recorder
}

func newHarness(t *testing.T, opts Options, store auth.RoleStore) *harness {
	t.Helper()
	opts.Logger = logger.Discard()
	if opts.Gate == nil {
		opts.Gate = NewGate(store, 0, logger.Discard())
	}

	h := &harness{
		t:      t,
		bus:    irc.NewBus(logger.Discard()),
		router: NewRouter(opts),
		rec:    &recorder{},
	}
	h.session = irc.NewSession(h.bus, logger.Discard())

	h.bus.Subscribe(irc.EventReady, "test", func(ctx *irc.Context) error {
		ctx.AttachReply(func(message string) error {
			return ctx.SendLine("PRIVMSG " + ctx.Line().ReplyTarget() + " :" + message)
		})
		return ctx.AttachSay(func(target, message string) error {
			return ctx.SendLine("PRIVMSG " + target + " :" + message)
		})
	})
	h.bus.Subscribe(irc.EventLine, "router", h.router.HandleLine)
	t.Cleanup(h.router.Close)
	return h
}

func (h *harness) start() *irc.Context {
	h.router.Freeze()
	return h.session.Open(h.rec)
}

func (h *harness) send(raw string) {
	h.session.DispatchRaw(raw)
}

func (h *harness) expect(want ...string) {
	h.t.Helper()
	h.router.Wait()
	got := h.rec.sent()
	if len(got) != len(want) {
		h.t.Fatalf("Expected lines %q, got %q", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			h.t.Errorf("Line %d: expected %q, got %q", i, want[i], got[i])
		}
	}
}

var admins = auth.NewStaticStore([]auth.User{
	{Nick: "alice", Roles: []string{"Admin"}},
	{Nick: "mod", Roles: []string{"Moderator"}},
	{Nick: "eve", Roles: []string{"Voice"}},
})
