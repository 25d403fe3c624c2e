package irc

import (
	"strings"

	"github.com/ergochat/irc-go/ircmsg"
)

// ChannelSigil marks a target as a channel rather than a nickname.
const ChannelSigil = "#"

// Line is one inbound protocol line split into its parts.
type Line struct {
	Prefix  string   // sender identity, nick!user@host or a server name
	Command string   // protocol verb or numeric
	Args    []string // middle params followed by the trailing param
}

// ParseLine decodes a raw protocol line. Lines that don't match the
// grammar return an error and should be dropped by the caller.
func ParseLine(raw string) (Line, error) {
	msg, err := ircmsg.ParseLine(raw)
	if err != nil {
		return Line{}, err
	}
	return FromMessage(msg), nil
}

// FromMessage converts a message decoded by the transport.
func FromMessage(msg ircmsg.Message) Line {
	args := make([]string, len(msg.Params))
	copy(args, msg.Params)
	return Line{
		Prefix:  msg.Source,
		Command: msg.Command,
		Args:    args,
	}
}

// Nick is the text of the prefix before '!'.
func (l Line) Nick() string {
	nick, _, _ := strings.Cut(l.Prefix, "!")
	return nick
}

// ReplyTarget is where a reply to this line belongs: the channel when the
// first arg is a channel, otherwise the sender's nick.
func (l Line) ReplyTarget() string {
	if len(l.Args) > 0 && IsChannel(l.Args[0]) {
		return l.Args[0]
	}
	return l.Nick()
}

// Copy returns a Line that shares no memory with l.
func (l Line) Copy() Line {
	args := make([]string, len(l.Args))
	copy(args, l.Args)
	l.Args = args
	return l
}

// IsChannel reports whether target starts with the channel sigil.
func IsChannel(target string) bool {
	return strings.HasPrefix(target, ChannelSigil)
}
