// Package bot wires the event bus, command router and role gate together
// and runs the plugin load phase.
package bot

import (
	"errors"
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/dalnet/ircbot/internal/auth"
	"github.com/dalnet/ircbot/internal/command"
	"github.com/dalnet/ircbot/internal/config"
	"github.com/dalnet/ircbot/internal/irc"
)

// ErrAlreadyLoaded is returned by a second call to Load.
var ErrAlreadyLoaded = errors.New("bot: plugins already loaded")

// Plugin extends the bot. Setup runs once, during the load phase, and is
// the only place a plugin may subscribe to events or register commands.
type Plugin interface {
	Name() string
	Setup(r *Registrar) error
}

// Registrar is what a plugin sees of the bot during Setup.
type Registrar struct {
	owner string
	bot   *Bot
}

// Subscribe adds a handler for a bus event.
func (r *Registrar) Subscribe(event string, fn irc.Handler) {
	r.bot.bus.Subscribe(event, r.owner, fn)
}

// Command registers a command. Alias clashes are returned, not ignored.
func (r *Registrar) Command(cmd command.Command) error {
	return r.bot.router.Register(r.owner, cmd)
}

// Config exposes the bot configuration.
func (r *Registrar) Config() *config.Config {
	return r.bot.cfg
}

// Logger returns a logger tagged with the plugin's name.
func (r *Registrar) Logger() *log.Logger {
	return r.bot.log.WithPrefix(r.owner)
}

// Bot is the process-wide dispatch core.
type Bot struct {
	cfg    *config.Config
	bus    *irc.Bus
	router *command.Router
	log    *log.Logger
	loaded bool
}

// New builds the core. store resolves roles for restricted commands.
func New(cfg *config.Config, store auth.RoleStore, logger *log.Logger) *Bot {
	if logger == nil {
		logger = log.Default()
	}

	gate := command.NewGate(store, cfg.AuthTimeout, logger.WithPrefix("gate"))
	b := &Bot{
		cfg: cfg,
		bus: irc.NewBus(logger.WithPrefix("bus")),
		router: command.NewRouter(command.Options{
			Prefix:  cfg.Prefix,
			Timeout: cfg.HandlerTimeout,
			Workers: cfg.MaxWorkers,
			Gate:    gate,
			Logger:  logger.WithPrefix("router"),
		}),
		log: logger,
	}
	b.bus.Subscribe(irc.EventLine, "router", b.router.HandleLine)
	return b
}

// Load runs every plugin's Setup in order, then freezes the command
// registry. The first failing plugin aborts the load.
func (b *Bot) Load(plugins ...Plugin) error {
	if b.loaded {
		return ErrAlreadyLoaded
	}
	b.loaded = true

	for _, p := range plugins {
		if err := p.Setup(&Registrar{owner: p.Name(), bot: b}); err != nil {
			return fmt.Errorf("loading plugin %s: %w", p.Name(), err)
		}
		b.log.Info("plugin loaded", "plugin", p.Name())
	}

	b.router.Freeze()
	b.log.Info("command registry frozen", "commands", len(b.router.Names()))
	return nil
}

// Bus is the event bus.
func (b *Bot) Bus() *irc.Bus {
	return b.bus
}

// Router is the command router.
func (b *Bot) Router() *command.Router {
	return b.router
}

// NewClient returns a transport-backed client dispatching into this bot.
func (b *Bot) NewClient() *irc.Client {
	return irc.NewClient(b.cfg, b.bus, b.log.WithPrefix("client"))
}

// Close waits for in-flight handlers and stops the worker pool.
func (b *Bot) Close() {
	b.router.Close()
}
