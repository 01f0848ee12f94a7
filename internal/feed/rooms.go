package feed

import (
	"context"

	"roomchat/internal/database"
	"roomchat/internal/models"
	"roomchat/internal/realtime"
	"roomchat/internal/services"
	"roomchat/pkg/logger"
)

// RoomsWatcher re-sends the viewer's room list whenever one of their
// memberships changes.
type RoomsWatcher struct {
	bus      realtime.Subscriber
	rooms    *services.RoomService
	viewerID string
	emit     Emitter

	lost LostFunc
	w    *watcher
}

func NewRoomsWatcher(bus realtime.Subscriber, rooms *services.RoomService, viewerID string, emit Emitter) *RoomsWatcher {
	return &RoomsWatcher{bus: bus, rooms: rooms, viewerID: viewerID, emit: emit}
}

func (r *RoomsWatcher) Start(ctx context.Context) error {
	r.Close()

	w, err := subscribe(ctx, r.bus, realtime.Spec{
		Event:  realtime.EventAll,
		Schema: realtime.SchemaPublic,
		Table:  database.TableRoomMembers,
		Filter: "user_id=eq." + r.viewerID,
	}, r.lost)
	if err != nil {
		return err
	}
	r.w = w

	w.refreshOn(0, func(ctx context.Context) {
		rooms, err := r.rooms.ListUserRooms(ctx, r.viewerID)
		if err != nil {
			if ctx.Err() == nil {
				logger.Error("Error loading rooms for %s: %v", r.viewerID, err)
			}
			return
		}
		r.emit(&models.Event{Type: models.EventRooms, Rooms: rooms})
	})
	return nil
}

func (r *RoomsWatcher) OnLost(fn LostFunc) { r.lost = fn }

func (r *RoomsWatcher) Close() {
	if r.w != nil {
		r.w.stop()
		r.w = nil
	}
}
