package feed

import (
	"context"
	"sync"

	"roomchat/internal/database"
	"roomchat/internal/models"
	"roomchat/internal/realtime"
	"roomchat/internal/services"
	"roomchat/pkg/logger"
)

// Feed holds the message list of the room a viewer has open and keeps it in
// sync with inserts on the bus.
//
// The subscription is opened before the history is loaded; inserts that land
// in between wait in the subscription buffer and are dropped by id if the
// load already returned them.
type Feed struct {
	bus      realtime.Subscriber
	messages *services.MessageService
	viewerID string
	emit     Emitter

	mu     sync.Mutex
	roomID string
	list   []*models.Message
	seen   map[string]struct{}

	lost LostFunc
	w    *watcher
}

func NewFeed(bus realtime.Subscriber, messages *services.MessageService, viewerID string, emit Emitter) *Feed {
	return &Feed{
		bus:      bus,
		messages: messages,
		viewerID: viewerID,
		emit:     emit,
		seen:     make(map[string]struct{}),
	}
}

// Select switches the feed to roomID. The previous room's subscription is
// fully torn down first. On error the feed is left with no room.
func (f *Feed) Select(ctx context.Context, roomID string) error {
	f.Close()

	w, err := subscribe(ctx, f.bus, realtime.Spec{
		Event:  realtime.EventInsert,
		Schema: realtime.SchemaPublic,
		Table:  database.TableMessages,
		Filter: "room_id=eq." + roomID,
	}, f.lost)
	if err != nil {
		return err
	}

	history, err := f.messages.LoadMessages(ctx, roomID, f.viewerID)
	if err != nil {
		w.stop()
		return err
	}

	seen := make(map[string]struct{}, len(history))
	for _, m := range history {
		seen[m.ID] = struct{}{}
	}

	f.mu.Lock()
	f.roomID = roomID
	f.list = history
	f.seen = seen
	f.mu.Unlock()

	f.emit(&models.Event{
		Type:     models.EventHistory,
		RoomID:   roomID,
		Messages: append([]*models.Message(nil), history...),
	})

	f.w = w
	w.run(f.onInsert(roomID))
	return nil
}

func (f *Feed) onInsert(roomID string) func(context.Context, realtime.Change) {
	return func(ctx context.Context, c realtime.Change) {
		var msg models.Message
		if err := c.Decode(&msg); err != nil {
			logger.Error("Error decoding message change: %v", err)
			return
		}
		if msg.RoomID != roomID {
			return
		}

		f.mu.Lock()
		if _, dup := f.seen[msg.ID]; dup {
			f.mu.Unlock()
			return
		}
		f.seen[msg.ID] = struct{}{}
		f.mu.Unlock()

		profile, err := f.messages.AuthorProfile(ctx, msg.UserID)
		if err != nil {
			logger.Error("Error loading author %s for message %s: %v", msg.UserID, msg.ID, err)
		} else {
			msg.User = profile
		}
		msg.IsSelf = msg.UserID == f.viewerID

		f.mu.Lock()
		if f.roomID != roomID {
			f.mu.Unlock()
			return
		}
		f.list = append(f.list, &msg)
		f.mu.Unlock()

		f.emit(&models.Event{Type: models.EventMessage, RoomID: roomID, Message: &msg})
	}
}

// OnLost sets the callback run when the bus ends the room subscription on
// its own. Set it before the first Select.
func (f *Feed) OnLost(fn LostFunc) { f.lost = fn }

func (f *Feed) RoomID() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.roomID
}

// Messages returns a snapshot of the current list.
func (f *Feed) Messages() []*models.Message {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]*models.Message(nil), f.list...)
}

// Close drops the subscription and the list.
func (f *Feed) Close() {
	if f.w != nil {
		f.w.stop()
		f.w = nil
	}
	f.mu.Lock()
	f.roomID = ""
	f.list = nil
	f.seen = make(map[string]struct{})
	f.mu.Unlock()
}
