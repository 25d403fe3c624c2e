package irc

import (
	"sync"

	"github.com/dalnet/ircbot/internal/logger"
)

type recorder struct {
	mu    sync.Mutex
	nick  string
	lines []string
}

func (r *recorder) SendRaw(line string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lines = append(r.lines, line)
	return nil
}

func (r *recorder) CurrentNick() string {
	return r.nick
}

func (r *recorder) sent() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.lines))
	copy(out, r.lines)
	return out
}

func newTestContext() (*Context, *recorder) {
	rec := &recorder{nick: "bot"}
	return NewContext(rec, logger.Discard()), rec
}
