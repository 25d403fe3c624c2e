package command

import (
	"strings"
	"unicode"

	"github.com/dalnet/ircbot/internal/auth"
	"github.com/dalnet/ircbot/internal/irc"
)

// Invocation is a command extracted from a chat line.
type Invocation struct {
	Name     string        // command name, prefix stripped
	Prefix   string        // prefix that triggered it, for usage text
	Nick     string        // sender's nickname
	Identity auth.Identity // sender's full identity, for role lookup
	Channel  string        // reply channel; the sender's nick for private messages
	Message  string        // everything after the command name
	Args     []string      // Message split on whitespace
}

// Parse extracts an invocation from a PRIVMSG whose text starts with
// prefix. Anything else reports false.
func Parse(l irc.Line, prefix string) (Invocation, bool) {
	if prefix == "" || l.Command != "PRIVMSG" || len(l.Args) < 2 {
		return Invocation{}, false
	}

	text := strings.TrimLeftFunc(l.Args[len(l.Args)-1], unicode.IsSpace)
	if !strings.HasPrefix(text, prefix) {
		return Invocation{}, false
	}

	name, rest := cutSpace(strings.TrimPrefix(text, prefix))
	if name == "" {
		return Invocation{}, false
	}
	message := strings.TrimSpace(rest)

	return Invocation{
		Name:     name,
		Prefix:   prefix,
		Nick:     l.Nick(),
		Identity: auth.IdentityFromPrefix(l.Prefix),
		Channel:  l.ReplyTarget(),
		Message:  message,
		Args:     strings.Fields(message),
	}, true
}

// SplitTarget splits Message at its first whitespace into a target and
// the free text after it. ok is false when either part is missing.
func (inv Invocation) SplitTarget() (target, text string, ok bool) {
	target, text = cutSpace(inv.Message)
	text = strings.TrimSpace(text)
	return target, text, target != "" && text != ""
}

// cutSpace splits s around its first whitespace rune.
func cutSpace(s string) (before, after string) {
	i := strings.IndexFunc(s, unicode.IsSpace)
	if i < 0 {
		return s, ""
	}
	return s[:i], s[i:]
}

// Usage formats a usage hint using the prefix the invocation came in on.
func (inv Invocation) Usage(syntax string) string {
	return "Usage: " + inv.Prefix + inv.Name + " " + syntax
}
