// Package core attaches the basic messaging capabilities to every new
// connection and provides the channel administration commands.
package core

import (
	"errors"
	"fmt"

	"github.com/dalnet/ircbot/internal/irc"
)

// Attach gives ctx reply, say, notice, action, join and part. It is
// subscribed to irc.EventReady.
func Attach(ctx *irc.Context) error {
	return errors.Join(
		ctx.AttachReply(func(message string) error {
			return ctx.SendLine(fmt.Sprintf("PRIVMSG %s :%s", ctx.Line().ReplyTarget(), message))
		}),
		ctx.AttachSay(func(channel, message string) error {
			return ctx.SendLine(fmt.Sprintf("PRIVMSG %s :%s", channel, message))
		}),
		ctx.AttachNotice(func(user, message string) error {
			return ctx.SendLine(fmt.Sprintf("NOTICE %s :%s", user, message))
		}),
		ctx.AttachAction(func(channel, message string) error {
			return ctx.SendLine(fmt.Sprintf("PRIVMSG %s :\x01ACTION %s\x01", channel, message))
		}),
		ctx.AttachJoin(func(channel string) error {
			return ctx.SendLine(fmt.Sprintf("JOIN %s", channel))
		}),
		ctx.AttachPart(func(channel string) error {
			return ctx.SendLine(fmt.Sprintf("PART %s", channel))
		}),
	)
}
