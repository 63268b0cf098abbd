package events

import (
	"sync"

	"github.com/charmbracelet/log"
)

// Dispatcher fans events out to subscribers. Every subscriber receives every
// event published after it subscribed, in publish order, one by one. Each
// subscriber has its own unbounded mailbox so a slow reader never stalls the
// publisher or the other subscribers.
type Dispatcher struct {
	mu     sync.Mutex
	subs   []*Subscription
	closed bool
	logger *log.Logger
}

// NewDispatcher creates a dispatcher
func NewDispatcher(logger *log.Logger) *Dispatcher {
	return &Dispatcher{
		logger: logger.WithPrefix("dispatcher"),
	}
}

// Subscribe registers a new subscriber
func (d *Dispatcher) Subscribe() *Subscription {
	s := &Subscription{
		d:    d,
		out:  make(chan Event),
		wake: make(chan struct{}, 1),
		done: make(chan struct{}),
	}

	d.mu.Lock()
	if d.closed {
		s.draining = true
	} else {
		d.subs = append(d.subs, s)
	}
	d.mu.Unlock()

	go s.pump()
	return s
}

// Publish queues ev for every current subscriber. Publishing after Close is a no-op.
func (d *Dispatcher) Publish(ev Event) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		d.logger.Debug("Dropping event after close", "event", ev.Name())
		return
	}

	d.logger.Debug("Dispatching event", "event", ev.Name(), "subscribers", len(d.subs))
	for _, s := range d.subs {
		s.push(ev)
	}
}

// Close stops accepting events. Subscribers still receive everything queued
// before Close, then their channels are closed.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return
	}
	d.closed = true
	for _, s := range d.subs {
		s.drain()
	}
	d.subs = nil
}

func (d *Dispatcher) remove(s *Subscription) {
	d.mu.Lock()
	defer d.mu.Unlock()

	for i, sub := range d.subs {
		if sub == s {
			d.subs = append(d.subs[:i], d.subs[i+1:]...)
			return
		}
	}
}

// Subscription is one subscriber's ordered stream of events
type Subscription struct {
	d         *Dispatcher
	out       chan Event
	wake      chan struct{}
	done      chan struct{}
	closeOnce sync.Once

	mu       sync.Mutex
	queue    []Event
	draining bool
}

// Events returns the channel events are delivered on. It is closed after
// Close, or once the dispatcher is closed and the backlog is delivered.
func (s *Subscription) Events() <-chan Event {
	return s.out
}

// Close unsubscribes and discards any undelivered events
func (s *Subscription) Close() {
	s.closeOnce.Do(func() {
		close(s.done)
	})
	s.d.remove(s)
}

func (s *Subscription) push(ev Event) {
	s.mu.Lock()
	if s.draining {
		s.mu.Unlock()
		return
	}
	s.queue = append(s.queue, ev)
	s.mu.Unlock()
	s.signal()
}

func (s *Subscription) drain() {
	s.mu.Lock()
	s.draining = true
	s.mu.Unlock()
	s.signal()
}

func (s *Subscription) signal() {
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

func (s *Subscription) pump() {
	defer close(s.out)

	for {
		ev, ok := s.next()
		if !ok {
			return
		}
		select {
		case s.out <- ev:
		case <-s.done:
			return
		}
	}
}

// next blocks until an event is queued, the backlog is drained, or the
// subscription is closed
func (s *Subscription) next() (Event, bool) {
	for {
		s.mu.Lock()
		if len(s.queue) > 0 {
			ev := s.queue[0]
			s.queue[0] = nil
			s.queue = s.queue[1:]
			s.mu.Unlock()
			return ev, true
		}
		draining := s.draining
		s.mu.Unlock()

		if draining {
			return nil, false
		}

		select {
		case <-s.wake:
		case <-s.done:
			return nil, false
		}
	}
}
