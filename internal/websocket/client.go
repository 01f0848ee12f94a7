package websocket

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"roomchat/internal/feed"
	"roomchat/internal/models"
	"roomchat/pkg/errs"
	"roomchat/pkg/logger"

	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 16 * 1024
	sendBuffer     = 256
)

// Session is one signed-in browser tab. It owns the tab's room list, message
// feed and typing indicator and runs the composer commands the tab sends.
type Session struct {
	registry *Registry
	conn     *websocket.Conn
	send     chan []byte
	user     *models.User
	id       string

	ctx    context.Context
	cancel context.CancelFunc
	once   sync.Once
	lost   sync.Once

	// Owned by the read pump.
	roomID string
	feed   *feed.Feed
	typing *feed.TypingWatcher
	rooms  *feed.RoomsWatcher
}

func newSession(parent context.Context, r *Registry, conn *websocket.Conn, user *models.User, id string) *Session {
	ctx, cancel := context.WithCancel(parent)
	s := &Session{
		registry: r,
		conn:     conn,
		send:     make(chan []byte, sendBuffer),
		user:     user,
		id:       id,
		ctx:      ctx,
		cancel:   cancel,
	}
	s.feed = feed.NewFeed(r.deps.Bus, r.deps.Messages, user.ID, s.emit)
	s.typing = feed.NewTypingWatcher(r.deps.Bus, r.deps.Typing, user.ID, r.deps.TypingInterval, s.emit)
	s.rooms = feed.NewRoomsWatcher(r.deps.Bus, r.deps.Rooms, user.ID, s.emit)
	s.feed.OnLost(s.subscriptionLost)
	s.typing.OnLost(s.subscriptionLost)
	s.rooms.OnLost(s.subscriptionLost)
	return s
}

func (s *Session) ID() string { return s.id }

func (s *Session) UserID() string { return s.user.ID }

// emit queues an event for the write pump. A tab that cannot keep up is
// disconnected rather than allowed to stall the watchers.
func (s *Session) emit(ev *models.Event) {
	data, err := json.Marshal(ev)
	if err != nil {
		logger.Error("Error marshaling %s event: %v", ev.Type, err)
		return
	}
	select {
	case s.send <- data:
	case <-s.ctx.Done():
	default:
		logger.Warn("Session %s send buffer full, disconnecting", s.id)
		s.Close()
	}
}

func (s *Session) notify(n *models.Notice) {
	s.emit(&models.Event{Type: models.EventNotice, Notice: n})
}

func (s *Session) fail(title string, err error) {
	if errs.Public(err) == "" {
		logger.Error("%s for user %s: %v", title, s.user.ID, err)
	}
	s.notify(models.Failure(title, errs.Message(err)))
}

// subscriptionLost disconnects a tab whose change stream was cut by the bus.
// The tab would otherwise stay open without live updates; on reconnect it
// reloads its rooms and history.
func (s *Session) subscriptionLost() {
	s.lost.Do(func() {
		logger.Warn("Session %s lost a change subscription, disconnecting", s.id)
		s.notify(models.Failure("Connection lost", "Reconnecting to catch up on new messages"))
		// The write pump flushes the notice and the close frame, then closes
		// the connection.
		s.cancel()
	})
}

// Close ends the session; the pumps notice and clean up.
func (s *Session) Close() {
	s.once.Do(func() {
		s.cancel()
		s.conn.Close()
	})
}

func (s *Session) start() error {
	if err := s.rooms.Start(s.ctx); err != nil {
		return err
	}
	go s.WritePump()
	go s.ReadPump()
	return nil
}

func (s *Session) ReadPump() {
	defer func() {
		s.leaveRoom()
		s.rooms.Close()
		s.registry.Unregister(s)
		s.Close()
	}()

	s.conn.SetReadLimit(maxMessageSize)
	// Set read deadline and pong handler for connection health
	s.conn.SetReadDeadline(time.Now().Add(pongWait))
	s.conn.SetPongHandler(func(string) error {
		s.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, data, err := s.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure, websocket.CloseNormalClosure) {
				logger.Error("WebSocket error: %v", err)
			}
			return
		}

		var cmd models.Command
		if err := json.Unmarshal(data, &cmd); err != nil {
			logger.Debug("Session %s sent a malformed command: %v", s.id, err)
			continue
		}
		s.handle(cmd)
	}
}

func (s *Session) handle(cmd models.Command) {
	switch cmd.Type {
	case models.CommandSelectRoom:
		s.selectRoom(cmd.RoomID)
	case models.CommandDraft:
		s.draft(cmd.Text)
	case models.CommandSend:
		s.sendMessage(cmd.Text)
	default:
		logger.Debug("Session %s sent unknown command %q", s.id, cmd.Type)
	}
}

func (s *Session) selectRoom(roomID string) {
	if roomID == "" || roomID == s.roomID {
		return
	}
	s.leaveRoom()

	if err := s.feed.Select(s.ctx, roomID); err != nil {
		s.fail("Error loading messages", err)
		return
	}
	if err := s.typing.Select(s.ctx, roomID); err != nil {
		logger.Error("Error watching typing in room %s: %v", roomID, err)
	}
	s.roomID = roomID
}

// leaveRoom tears down the current room's watchers and clears the typing flag.
func (s *Session) leaveRoom() {
	if s.roomID == "" {
		return
	}
	s.typing.Close()
	s.feed.Close()
	if err := s.registry.deps.Typing.Clear(context.WithoutCancel(s.ctx), s.roomID, s.user.ID); err != nil {
		logger.Error("Error clearing typing flag in room %s: %v", s.roomID, err)
	}
	s.roomID = ""
}

func (s *Session) draft(text string) {
	if s.roomID == "" {
		return
	}
	if err := s.registry.deps.Typing.SetTyping(s.ctx, s.roomID, s.user.ID, text); err != nil {
		logger.Error("Error updating typing status: %v", err)
	}
}

func (s *Session) sendMessage(text string) {
	if s.roomID == "" {
		s.notify(models.Failure("Error sending message", "Select a room first"))
		return
	}
	if _, err := s.registry.deps.Messages.SendMessage(s.ctx, s.roomID, s.user.ID, text); err != nil {
		s.fail("Error sending message", err)
		return
	}
	if err := s.registry.deps.Typing.Clear(s.ctx, s.roomID, s.user.ID); err != nil {
		logger.Error("Error clearing typing flag: %v", err)
	}
}

func (s *Session) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		s.Close()
	}()

	for {
		select {
		case msg := <-s.send:
			s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				logger.Error("Write error: %v", err)
				return
			}

		case <-ticker.C:
			s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-s.ctx.Done():
			s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			s.flush()
			s.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseGoingAway, ""))
			return
		}
	}
}

// flush writes whatever is already queued, under the deadline the caller set.
func (s *Session) flush() {
	for {
		select {
		case msg := <-s.send:
			if err := s.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		default:
			return
		}
	}
}
