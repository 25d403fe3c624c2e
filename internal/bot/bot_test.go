package bot_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/dalnet/ircbot/internal/auth"
	"github.com/dalnet/ircbot/internal/bot"
	"github.com/dalnet/ircbot/internal/command"
	"github.com/dalnet/ircbot/internal/config"
	"github.com/dalnet/ircbot/internal/irc"
	"github.com/dalnet/ircbot/internal/logger"
	"github.com/dalnet/ircbot/internal/plugins/core"
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

// funcPlugin adapts a setup function into a plugin.
type funcPlugin struct {
	name  string
	setup func(r *bot.Registrar) error
}

func (p funcPlugin) Name() string { return p.name }
func (p funcPlugin) Setup(r *bot.Registrar) error { return p.setup(r) }

func newBot() *bot.Bot {
	cfg := &config.Config{Nick: "bot", Prefix: ".", HandlerTimeout: time.Second, MaxWorkers: 1}
	store := auth.NewStaticStore([]auth.User{{Nick: "alice", Roles: []string{"Admin"}}})
	return bot.New(cfg, store, logger.Discard())
}

func hello(name string) bot.Plugin {
	return funcPlugin{name: name, setup: func(r *bot.Registrar) error {
		return r.Command(command.Command{
			Names: []string{"hello", "hi"},
			Handler: func(context.Context, *irc.Context, command.Invocation) (string, error) {
				return "hello from " + name, nil
			},
		})
	}}
}

func TestLoadRejectsDuplicateAlias(t *testing.T) {
	b := newBot()
	defer b.Close()

	err := b.Load(hello("first"), hello("second"))
	if !errors.Is(err, command.ErrDuplicateAlias) {
		t.Fatalf("Expected ErrDuplicateAlias, got %v", err)
	}
}

func TestLoadTwice(t *testing.T) {
	b := newBot()
	defer b.Close()

	if err := b.Load(core.New()); err != nil {
		t.Fatal(err)
	}
	if err := b.Load(hello("late")); !errors.Is(err, bot.ErrAlreadyLoaded) {
		t.Errorf("Expected ErrAlreadyLoaded, got %v", err)
	}
}

func TestLoadFreezesRegistry(t *testing.T) {
	b := newBot()
	defer b.Close()

	if err := b.Load(core.New()); err != nil {
		t.Fatal(err)
	}
	err := b.Router().Register("late", command.Command{
		Names:   []string{"late"},
		Handler: func(context.Context, *irc.Context, command.Invocation) (string, error) { return "", nil },
	})
	if !errors.Is(err, command.ErrFrozen) {
		t.Errorf("Expected ErrFrozen, got %v", err)
	}
}

func TestCapabilityFailureIsIsolated(t *testing.T) {
	b := newBot()
	defer b.Close()

	broken := funcPlugin{name: "broken", setup: func(r *bot.Registrar) error {
		r.Subscribe(irc.EventReady, func(*irc.Context) error {
			return errors.New("could not extend connection")
		})
		return nil
	}}
	if err := b.Load(broken, core.New(), hello("greeter")); err != nil {
		t.Fatal(err)
	}

	rec := &recorder{}
	s := irc.NewSession(b.Bus(), logger.Discard())
	ctx := s.Open(rec)

	if !ctx.Attached(irc.CapReply) {
		t.Fatal("Core capabilities missing after an earlier plugin failed")
	}

	s.DispatchRaw(":bob!b@host PRIVMSG #test :.hi")
	b.Router().Wait()

	if len(rec.lines) != 1 || rec.lines[0] != "PRIVMSG #test :hello from greeter" {
		t.Errorf("Unexpected output %q", rec.lines)
	}
}

func TestEndToEnd(t *testing.T) {
	b := newBot()
	defer b.Close()

	if err := b.Load(core.New(), hello("greeter")); err != nil {
		t.Fatal(err)
	}

	rec := &recorder{}
	s := irc.NewSession(b.Bus(), logger.Discard())
	s.Open(rec)

	for _, raw := range []string{
		":server.example.net NOTICE * :*** Looking up your hostname",
		":alice!a@host PRIVMSG #test :.say #test hello world",
		":mallory!m@host PRIVMSG #test :.say #test pwned",
		":bob!b@host PRIVMSG bot :.hello",
		":alice!a@host PRIVMSG #test :.kick #test mallory",
	} {
		s.DispatchRaw(raw)
	}
	b.Router().Wait()

	want := []string{
		"PRIVMSG #test :hello world",
		"PRIVMSG bob :hello from greeter",
		"KICK #test mallory :Requested",
	}
	if len(rec.lines) != len(want) {
		t.Fatalf("Expected %q, got %q", want, rec.lines)
	}
	for i := range want {
		if rec.lines[i] != want[i] {
			t.Errorf("Line %d: expected %q, got %q", i, want[i], rec.lines[i])
		}
	}
}
