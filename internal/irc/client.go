package irc

import (
	"crypto/tls"
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/dalnet/ircbot/internal/config"
	"github.com/ergochat/irc-go/ircevent"
	"github.com/ergochat/irc-go/ircmsg"
)

// Version information (set at build time or here)
var (
	Version   = "1.0.0"
	BuildDate = "unknown"
	GitCommit = "unknown"
)

// Client connects the event bus to a live IRC server. Socket handling,
// reconnects and line framing are left to ircevent; every line it reads
// is dispatched through the session on ircevent's read goroutine.
type Client struct {
	conn    *ircevent.Connection
	cfg     *config.Config
	session *Session
	log     *log.Logger
}

// NewClient creates a new IRC client
func NewClient(cfg *config.Config, bus *Bus, logger *log.Logger) *Client {
	if logger == nil {
		logger = log.Default()
	}

	c := &Client{
		cfg:     cfg,
		session: NewSession(bus, logger),
		log:     logger,
	}

	c.conn = &ircevent.Connection{
		Server:      fmt.Sprintf("%s:%d", cfg.Server, cfg.Port),
		Nick:        cfg.Nick,
		User:        cfg.Username,
		RealName:    cfg.IRCName,
		Password:    cfg.ServerPass,
		QuitMessage: "Shutting down",
		UseTLS:      cfg.UseTLS,
		TLSConfig:   &tls.Config{ServerName: cfg.Server},
	}

	c.registerHandlers()
	return c
}

func (c *Client) registerHandlers() {
	c.conn.AddConnectCallback(c.onConnect)
	c.conn.AddDisconnectCallback(c.onDisconnect)

	// Every line goes through the bus.
	c.conn.AddCallback("*", c.onLine)

	// Nick issues
	c.conn.AddCallback("432", c.onNickUnavailable) // ERR_ERRONEUSNICKNAME
	c.conn.AddCallback("433", c.onNickUnavailable) // ERR_NICKNAMEINUSE

	c.conn.AddCallback("CTCP_VERSION", c.onCtcpVersion)
}

// Connect initiates the IRC connection
func (c *Client) Connect() error {
	return c.conn.Connect()
}

// Loop runs the IRC event loop (blocking)
func (c *Client) Loop() {
	c.conn.Loop()
}

// Quit disconnects from IRC
func (c *Client) Quit() {
	c.session.Close()
	c.conn.Quit()
}

func (c *Client) onConnect(e ircmsg.Message) {
	c.log.Info("connected to IRC server", "server", c.conn.Server)

	ctx := c.session.Open(c.conn)
	for _, channel := range c.cfg.Channels {
		if err := ctx.Join(channel); err != nil {
			c.log.Error("could not join channel", "channel", channel, "err", err)
		}
	}

	c.log.Info("bot initialization complete", "nick", ctx.Nick())
}

func (c *Client) onDisconnect(e ircmsg.Message) {
	c.log.Warn("disconnected from IRC server")
	c.session.Close()
}

func (c *Client) onLine(e ircmsg.Message) {
	c.session.Dispatch(FromMessage(e))
}

func (c *Client) onNickUnavailable(e ircmsg.Message) {
	if c.cfg.Alternate == "" || c.conn.CurrentNick() == c.cfg.Alternate {
		return
	}
	c.log.Warn("nick unavailable, switching to alternate", "alternate", c.cfg.Alternate)
	c.conn.SetNick(c.cfg.Alternate)
}

func (c *Client) onCtcpVersion(e ircmsg.Message) {
	nick := e.Nick()
	reply := fmt.Sprintf("ircbot %s (built %s, commit %s)", Version, BuildDate, GitCommit)
	if err := c.conn.SendRaw(fmt.Sprintf("NOTICE %s :\x01VERSION %s\x01", nick, reply)); err != nil {
		c.log.Error("could not answer CTCP VERSION", "nick", nick, "err", err)
	}
}
