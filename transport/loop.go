package transport

import (
	"errors"

	"github.com/cometbft/cometbft/libs/log"
	"github.com/cometbft/cometbft/libs/service"
)

const loopQueueSize = 256

var ErrLoopStopped = errors.New("event loop stopped")

// Loop runs queued functions one at a time on a single goroutine. Everything
// touching an rpcclient.Client goes through the same Loop.
type Loop struct {
	service.BaseService
	queue chan func()
}

func NewLoop(logger log.Logger) *Loop {
	l := &Loop{queue: make(chan func(), loopQueueSize)}
	l.BaseService = *service.NewBaseService(logger.With("module", "loop"), "Loop", l)
	return l
}

func (l *Loop) OnStart() error {
	go l.run()
	return nil
}

func (l *Loop) run() {
	for {
		select {
		case fn := <-l.queue:
			fn()
		case <-l.Quit():
			return
		}
	}
}

// Post queues fn without waiting for it to run. It returns false if the
// loop stopped.
func (l *Loop) Post(fn func()) bool {
	select {
	case <-l.Quit():
		return false
	default:
	}
	select {
	case l.queue <- fn:
		return true
	case <-l.Quit():
		return false
	}
}

// Do runs fn on the loop and returns its error. It must not be called from
// the loop itself, callbacks already run there.
func (l *Loop) Do(fn func() error) error {
	done := make(chan error, 1)
	if !l.Post(func() { done <- fn() }) {
		return ErrLoopStopped
	}
	select {
	case err := <-done:
		return err
	case <-l.Quit():
		return ErrLoopStopped
	}
}
