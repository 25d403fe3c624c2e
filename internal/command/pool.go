package command

import (
	"sync"

	"github.com/charmbracelet/log"
)

// Pool runs off-loaded handlers on a fixed set of workers. Submit never
// blocks, and jobs start in the order they were submitted.
type Pool struct {
	mu     sync.Mutex
	cond   *sync.Cond
	queue  []func()
	closed bool
	log    *log.Logger

	workers sync.WaitGroup
	pending sync.WaitGroup
}

// NewPool starts size workers. Logger may be nil.
func NewPool(size int, logger *log.Logger) *Pool {
	if size <= 0 {
		size = 1
	}
	if logger == nil {
		logger = log.Default()
	}
	p := &Pool{log: logger}
	p.cond = sync.NewCond(&p.mu)

	p.workers.Add(size)
	for i := 0; i < size; i++ {
		go p.work()
	}
	return p
}

// Submit queues fn. It reports false once the pool is closed.
func (p *Pool) Submit(fn func()) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return false
	}
	p.pending.Add(1)
	p.queue = append(p.queue, fn)
	p.cond.Signal()
	return true
}

// Wait blocks until every submitted job has finished.
func (p *Pool) Wait() {
	p.pending.Wait()
}

// Close stops accepting work, lets queued jobs drain and stops the
// workers.
func (p *Pool) Close() {
	p.mu.Lock()
	p.closed = true
	p.cond.Broadcast()
	p.mu.Unlock()
	p.workers.Wait()
}

func (p *Pool) work() {
	defer p.workers.Done()
	for {
		p.mu.Lock()
		for len(p.queue) == 0 && !p.closed {
			p.cond.Wait()
		}
		if len(p.queue) == 0 {
			p.mu.Unlock()
			return
		}
		fn := p.queue[0]
		p.queue = p.queue[1:]
		p.mu.Unlock()

		p.run(fn)
	}
}

func (p *Pool) run(fn func()) {
	defer p.pending.Done()
	defer func() {
		if rec := recover(); rec != nil {
			p.log.Error("worker job panicked", "panic", rec)
		}
	}()
	fn()
}
