package events

import (
	"sync"

	"github.com/ethereum/go-ethereum/event"
)

type Callback[T any] func(data T)

type Subscription[T any] struct {
	s event.Subscription
	c chan T
	w *sync.WaitGroup
}

// Wrapper of go-ethereum/event.FeedOf that delivers values to named
// callbacks, each running on its own goroutine.
type FeedOf[T any] struct {
	mu   sync.Mutex
	feed event.FeedOf[T]

	subscriptions map[string]*Subscription[T]
}

// Send delivers data to every callback and returns how many received it.
// It blocks until all subscribers accepted the value.
func (e *FeedOf[T]) Send(data T) (sent int) {
	return e.feed.Send(data)
}

// Subscribe registers callback under id, replacing an earlier callback with
// the same id.
func (e *FeedOf[T]) Subscribe(id string, callback Callback[T]) {
	e.Unsubscribe(id).Wait()

	sub := &Subscription[T]{c: make(chan T), w: &sync.WaitGroup{}}
	sub.s = e.feed.Subscribe(sub.c)
	sub.w.Add(1)
	go func() {
		defer sub.w.Done()
		for {
			select {
			case t := <-sub.c:
				callback(t)
			case <-sub.s.Err():
				return
			}
		}
	}()

	e.mu.Lock()
	if e.subscriptions == nil {
		e.subscriptions = make(map[string]*Subscription[T])
	}
	e.subscriptions[id] = sub
	e.mu.Unlock()
}

// Unsubscribe removes the callback registered under id. The returned group
// is done once the callback goroutine has exited.
func (e *FeedOf[T]) Unsubscribe(id string) *sync.WaitGroup {
	e.mu.Lock()
	sub, ok := e.subscriptions[id]
	if ok {
		delete(e.subscriptions, id)
	}
	e.mu.Unlock()

	if ok {
		sub.s.Unsubscribe()
		return sub.w
	}
	return &sync.WaitGroup{}
}

// Len returns the number of registered callbacks.
func (e *FeedOf[T]) Len() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.subscriptions)
}
