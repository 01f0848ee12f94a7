package feed

import (
	"context"
	"fmt"
	"time"

	"roomchat/internal/models"
	"roomchat/internal/realtime"
	"roomchat/pkg/logger"
)

// Emitter hands an event to the session that owns the watcher. It must not
// block.
type Emitter func(*models.Event)

// LostFunc is called from the consumer goroutine when the bus ends a
// subscription the owner did not stop, e.g. after dropping it for falling
// behind. Changes published after that point are never delivered.
type LostFunc func()

// watcher owns one subscription and the goroutine consuming it. start and
// stop are called by the owner only, never from the consumer goroutine.
type watcher struct {
	ctx    context.Context
	cancel context.CancelFunc
	sub    *realtime.Subscription
	spec   realtime.Spec
	lost   LostFunc
	done   chan struct{}
}

func subscribe(parent context.Context, bus realtime.Subscriber, spec realtime.Spec, lost LostFunc) (*watcher, error) {
	ctx, cancel := context.WithCancel(parent)
	sub, err := bus.Subscribe(ctx, spec)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("failed to subscribe to %s: %w", spec.Table, err)
	}
	return &watcher{ctx: ctx, cancel: cancel, sub: sub, spec: spec, lost: lost}, nil
}

// run calls handle for every change, in arrival order.
func (w *watcher) run(handle func(context.Context, realtime.Change)) {
	w.done = make(chan struct{})
	go func() {
		defer close(w.done)
		for {
			select {
			case <-w.ctx.Done():
				return
			case c, ok := <-w.sub.C:
				if !ok {
					w.closed()
					return
				}
				handle(w.ctx, c)
			}
		}
	}()
}

// refreshOn calls reload once right away, then once per burst of changes and
// on every tick when interval is positive.
func (w *watcher) refreshOn(interval time.Duration, reload func(context.Context)) {
	w.done = make(chan struct{})
	go func() {
		defer close(w.done)

		var tick <-chan time.Time
		if interval > 0 {
			t := time.NewTicker(interval)
			defer t.Stop()
			tick = t.C
		}

		reload(w.ctx)
		for {
			select {
			case <-w.ctx.Done():
				return
			case _, ok := <-w.sub.C:
				if !ok {
					w.closed()
					return
				}
				w.drain()
				reload(w.ctx)
			case <-tick:
				reload(w.ctx)
			}
		}
	}()
}

func (w *watcher) drain() {
	for {
		select {
		case _, ok := <-w.sub.C:
			if !ok {
				return
			}
		default:
			return
		}
	}
}

func (w *watcher) closed() {
	if w.ctx.Err() != nil {
		return
	}
	logger.Warn("Subscription to %s (%s) closed by the bus", w.spec.Table, w.spec.Filter)
	if w.lost != nil {
		w.lost()
	}
}

// stop ends the subscription and waits for the consumer to exit.
func (w *watcher) stop() {
	w.cancel()
	w.sub.Unsubscribe()
	if w.done != nil {
		<-w.done
	}
}
