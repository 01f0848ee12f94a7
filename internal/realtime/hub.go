package realtime

import (
	"context"
	"sync"

	"roomchat/pkg/logger"
)

// Subscription delivers matching changes on C until it is unsubscribed, the
// hub closes, or the subscriber falls behind by more than the buffer size.
// In every case C is closed.
type Subscription struct {
	C <-chan Change

	ch   chan Change
	m    matcher
	hub  *Hub
	once sync.Once
}

func (s *Subscription) Unsubscribe() {
	s.once.Do(func() {
		select {
		case s.hub.unregister <- s:
		case <-s.hub.done:
		}
	})
}

// Hub is the in-process change bus. A single goroutine owns the subscriber
// set, the same way a chat room hub owns its clients.
type Hub struct {
	subs       map[*Subscription]bool
	publish    chan Change
	register   chan *Subscription
	unregister chan *Subscription
	count      chan chan int
	shutdown   chan struct{}
	done       chan struct{}
	closeOnce  sync.Once
	bufferSize int
}

func NewHub(bufferSize int) *Hub {
	if bufferSize <= 0 {
		bufferSize = 64
	}
	h := &Hub{
		subs:       make(map[*Subscription]bool),
		publish:    make(chan Change),
		register:   make(chan *Subscription),
		unregister: make(chan *Subscription),
		count:      make(chan chan int),
		shutdown:   make(chan struct{}),
		done:       make(chan struct{}),
		bufferSize: bufferSize,
	}
	go h.run()
	return h
}

func (h *Hub) run() {
	for {
		select {
		case <-h.shutdown:
			for s := range h.subs {
				close(s.ch)
			}
			h.subs = nil
			close(h.done)
			return

		case s := <-h.register:
			h.subs[s] = true

		case s := <-h.unregister:
			if _, ok := h.subs[s]; ok {
				delete(h.subs, s)
				close(s.ch)
			}

		case c := <-h.publish:
			h.broadcast(c)

		case reply := <-h.count:
			reply <- len(h.subs)
		}
	}
}

func (h *Hub) broadcast(c Change) {
	for s := range h.subs {
		if !s.m.match(c) {
			continue
		}
		select {
		case s.ch <- c:
		default:
			close(s.ch)
			delete(h.subs, s)
			logger.Warn("Dropped slow subscriber on %s.%s", s.m.schema, s.m.table)
		}
	}
}

func (h *Hub) Subscribe(ctx context.Context, spec Spec) (*Subscription, error) {
	m, err := compile(spec)
	if err != nil {
		return nil, err
	}
	ch := make(chan Change, h.bufferSize)
	s := &Subscription{C: ch, ch: ch, m: m, hub: h}

	select {
	case h.register <- s:
		return s, nil
	case <-h.done:
		return nil, ErrClosed
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (h *Hub) Publish(ctx context.Context, c Change) error {
	select {
	case h.publish <- c:
		return nil
	case <-h.done:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Count returns the number of live subscriptions.
func (h *Hub) Count() int {
	reply := make(chan int, 1)
	select {
	case h.count <- reply:
		return <-reply
	case <-h.done:
		return 0
	}
}

func (h *Hub) Close() error {
	h.closeOnce.Do(func() { close(h.shutdown) })
	<-h.done
	return nil
}
