package service

import (
	"errors"
	"sync"

	"github.com/Scalingo/sclng-repo-search/model"
	events "github.com/docker/go-events"
)

var errUnexpectedEvent = errors.New("unexpected event type, expected a search state")

// Subscription delivers the search states to one observer, in publication order.
// States are queued, so a slow observer never blocks the controller nor the other observers.
type Subscription struct {
	sink   *stateSink
	queue  *events.Queue
	detach func(*Subscription)
	once   sync.Once
}

func newSubscription(detach func(*Subscription)) *Subscription {
	sink := &stateSink{
		ch:   make(chan model.State),
		done: make(chan struct{}),
	}

	return &Subscription{
		sink:   sink,
		queue:  events.NewQueue(sink),
		detach: detach,
	}
}

// C returns the channel receiving the states. It is closed by Unsubscribe.
func (s *Subscription) C() <-chan model.State {
	return s.sink.ch
}

// Unsubscribe stops the delivery and closes the channel. Pending states are dropped.
func (s *Subscription) Unsubscribe() {
	s.once.Do(func() {
		if s.detach != nil {
			s.detach(s)
		}

		// stop the sink first so that flushing the queue never waits for a reader
		_ = s.sink.Close()
		_ = s.queue.Close()

		close(s.sink.ch)
	})
}

// stateSink is the end of a subscription queue, writing the states into the observer channel
type stateSink struct {
	ch   chan model.State
	done chan struct{}
	once sync.Once
}

func (s *stateSink) Write(event events.Event) error {
	state, ok := event.(model.State)
	if !ok {
		return errUnexpectedEvent
	}

	select {
	case <-s.done:
		return events.ErrSinkClosed
	default:
	}

	select {
	case s.ch <- state:
		return nil
	case <-s.done:
		return events.ErrSinkClosed
	}
}

func (s *stateSink) Close() error {
	s.once.Do(func() {
		close(s.done)
	})

	return nil
}
