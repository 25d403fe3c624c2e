package core

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/dalnet/ircbot/internal/bot"
	"github.com/dalnet/ircbot/internal/command"
	"github.com/dalnet/ircbot/internal/config"
	"github.com/dalnet/ircbot/internal/irc"
)

// AdminRoles may use every command in this package.
var AdminRoles = []string{"Admin", "Moderator"}

// DefaultKickReason is used when .kick is given no reason.
const DefaultKickReason = "Requested"

// Plugin is the core plugin.
type Plugin struct{}

// New creates the core plugin.
func New() *Plugin {
	return &Plugin{}
}

// Name identifies the plugin in logs.
func (p *Plugin) Name() string {
	return "core"
}

// Setup attaches the capabilities on every new connection, identifies
// the bot once they are in place, and registers the admin commands.
func (p *Plugin) Setup(r *bot.Registrar) error {
	r.Subscribe(irc.EventReady, Attach)
	r.Subscribe(irc.EventReady, Identify(r.Config()))

	commands := []struct {
		name    string
		handler command.Handler
	}{
		{"say", cmdSay},
		{"notice", cmdNotice},
		{"action", cmdAction},
		{"join", cmdJoin},
		{"part", cmdPart},
		{"kick", cmdKick},
		{"op", cmdOp},
		{"voice", cmdVoice},
		{"oper", cmdOper},
	}
	for _, c := range commands {
		err := r.Command(command.Command{
			Names:   []string{c.name},
			Roles:   AdminRoles,
			Handler: c.handler,
		})
		if err != nil {
			return err
		}
	}
	return nil
}

// Identify returns a connection-ready handler that identifies to
// NickServ and opers up, for whichever credentials cfg carries.
func Identify(cfg *config.Config) irc.Handler {
	return func(ctx *irc.Context) error {
		var errs []error
		if cfg.NickPass != "" {
			errs = append(errs, ctx.Say("NickServ", fmt.Sprintf("IDENTIFY %s %s", cfg.Nick, cfg.NickPass)))
		}
		if cfg.OperNick != "" && cfg.OperPass != "" {
			errs = append(errs, ctx.SendLine(fmt.Sprintf("OPER %s %s", cfg.OperNick, cfg.OperPass)))
		}
		return errors.Join(errs...)
	}
}

func cmdSay(ctx context.Context, conn *irc.Context, inv command.Invocation) (string, error) {
	target, text, ok := inv.SplitTarget()
	if !ok {
		return inv.Usage("<target> <message>"), nil
	}
	return "", conn.Say(target, text)
}

func cmdNotice(ctx context.Context, conn *irc.Context, inv command.Invocation) (string, error) {
	target, text, ok := inv.SplitTarget()
	if !ok {
		return inv.Usage("<target> <message>"), nil
	}
	return "", conn.Notice(target, text)
}

func cmdAction(ctx context.Context, conn *irc.Context, inv command.Invocation) (string, error) {
	target, text, ok := inv.SplitTarget()
	if !ok {
		return inv.Usage("<target> <message>"), nil
	}
	return "", conn.Action(target, text)
}

func cmdJoin(ctx context.Context, conn *irc.Context, inv command.Invocation) (string, error) {
	if len(inv.Args) == 0 {
		return inv.Usage("<channel>"), nil
	}
	return "", conn.Join(inv.Args[0])
}

func cmdPart(ctx context.Context, conn *irc.Context, inv command.Invocation) (string, error) {
	if len(inv.Args) == 0 {
		return inv.Usage("<channel>"), nil
	}
	return "", conn.Part(inv.Args[0])
}

// channelAndRest takes an optional leading channel off the message,
// falling back to the channel the command came from.
func channelAndRest(inv command.Invocation) (channel, rest string) {
	channel, rest = inv.Channel, inv.Message
	if len(inv.Args) > 0 && irc.IsChannel(inv.Args[0]) {
		channel, rest = firstWord(inv.Message)
	}
	return channel, strings.TrimSpace(rest)
}

// firstWord splits s into its first whitespace-delimited word and the
// trimmed remainder.
func firstWord(s string) (word, rest string) {
	s = strings.TrimSpace(s)
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return "", ""
	}
	return fields[0], strings.TrimSpace(strings.TrimPrefix(s, fields[0]))
}

func cmdKick(ctx context.Context, conn *irc.Context, inv command.Invocation) (string, error) {
	channel, rest := channelAndRest(inv)
	target, reason := firstWord(rest)
	if target == "" || !irc.IsChannel(channel) {
		return inv.Usage("[channel] <nick> [reason]"), nil
	}

	if reason == "" {
		reason = DefaultKickReason
	}
	return "", conn.SendLine(fmt.Sprintf("KICK %s %s :%s", channel, target, reason))
}

func setMode(conn *irc.Context, inv command.Invocation, mode string) (string, error) {
	channel, rest := channelAndRest(inv)
	nick, _ := firstWord(rest)
	if nick == "" || !irc.IsChannel(channel) {
		return inv.Usage("[channel] <nick>"), nil
	}
	return "", conn.SendLine(fmt.Sprintf("MODE %s %s %s", channel, mode, nick))
}

func cmdOp(ctx context.Context, conn *irc.Context, inv command.Invocation) (string, error) {
	return setMode(conn, inv, "+o")
}

func cmdVoice(ctx context.Context, conn *irc.Context, inv command.Invocation) (string, error) {
	return setMode(conn, inv, "+v")
}

func cmdOper(ctx context.Context, conn *irc.Context, inv command.Invocation) (string, error) {
	if inv.Message == "" {
		return inv.Usage("<name> <password>"), nil
	}
	return "", conn.SendLine(fmt.Sprintf("OPER %s", inv.Message))
}
