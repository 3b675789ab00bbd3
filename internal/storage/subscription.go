package storage

import (
	"context"
	"sync"

	"github.com/mcoot/portfolio-leaderboard/internal/model"
)

// DefaultSubscriptionBuffer is the number of undelivered events a subscription holds
const DefaultSubscriptionBuffer = 64

// ChanSubscription is a channel-backed Subscription shared by all backends.
// Delivery never blocks: when the buffer is full the event is dropped, which
// loses nothing because the listener already has a pending "something changed".
type ChanSubscription struct {
	events chan model.ChangeEvent
	done   chan struct{}
	stop   func() error

	mu     sync.Mutex // guards events against send-after-close
	closed bool

	closeOnce sync.Once
	closeErr  error
}

// NewChanSubscription creates a subscription; stop is called once on Close to
// release whatever feeds it (may be nil)
func NewChanSubscription(bufferSize int, stop func() error) *ChanSubscription {
	if bufferSize <= 0 {
		bufferSize = DefaultSubscriptionBuffer
	}
	return &ChanSubscription{
		events: make(chan model.ChangeEvent, bufferSize),
		done:   make(chan struct{}),
		stop:   stop,
	}
}

// Ensure ChanSubscription implements the interface
var _ Subscription = (*ChanSubscription)(nil)

// Events returns the notification channel
func (s *ChanSubscription) Events() <-chan model.ChangeEvent {
	return s.events
}

// Done is closed once the subscription has been closed
func (s *ChanSubscription) Done() <-chan struct{} {
	return s.done
}

// Deliver queues an event, returning false if the subscription is closed or full
func (s *ChanSubscription) Deliver(ev model.ChangeEvent) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return false
	}
	select {
	case s.events <- ev:
		return true
	default:
		return false
	}
}

// Close ends the subscription; safe to call more than once
func (s *ChanSubscription) Close() error {
	s.closeOnce.Do(func() {
		s.mu.Lock()
		s.closed = true
		close(s.done)
		close(s.events)
		s.mu.Unlock()

		if s.stop != nil {
			s.closeErr = s.stop()
		}
	})
	return s.closeErr
}

// CloseOnDone closes the subscription when ctx ends, binding its lifetime to the caller
func (s *ChanSubscription) CloseOnDone(ctx context.Context) {
	go func() {
		select {
		case <-ctx.Done():
			_ = s.Close()
		case <-s.done:
		}
	}()
}

// Fanout delivers change events to any number of in-process subscriptions
type Fanout struct {
	mu   sync.Mutex
	subs map[*ChanSubscription]struct{}
}

// NewFanout creates an empty Fanout
func NewFanout() *Fanout {
	return &Fanout{
		subs: make(map[*ChanSubscription]struct{}),
	}
}

// Subscribe registers a new subscription, closed when ctx ends
func (f *Fanout) Subscribe(ctx context.Context) *ChanSubscription {
	var sub *ChanSubscription
	sub = NewChanSubscription(DefaultSubscriptionBuffer, func() error {
		f.remove(sub)
		return nil
	})

	f.mu.Lock()
	f.subs[sub] = struct{}{}
	f.mu.Unlock()

	sub.CloseOnDone(ctx)
	return sub
}

// Publish delivers the event to every current subscription
func (f *Fanout) Publish(ev model.ChangeEvent) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for sub := range f.subs {
		sub.Deliver(ev)
	}
}

// Len returns the number of live subscriptions
func (f *Fanout) Len() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.subs)
}

// Close ends every subscription
func (f *Fanout) Close() {
	f.mu.Lock()
	subs := make([]*ChanSubscription, 0, len(f.subs))
	for sub := range f.subs {
		subs = append(subs, sub)
	}
	f.subs = make(map[*ChanSubscription]struct{})
	f.mu.Unlock()

	for _, sub := range subs {
		_ = sub.Close()
	}
}

func (f *Fanout) remove(sub *ChanSubscription) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.subs, sub)
}
