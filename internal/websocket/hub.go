package websocket

import (
	"context"
	"sync"
	"time"

	"roomchat/internal/idgen"
	"roomchat/internal/models"
	"roomchat/internal/realtime"
	"roomchat/internal/services"
	"roomchat/pkg/logger"

	"github.com/gorilla/websocket"
)

// Deps are the services every session works against.
type Deps struct {
	Bus            realtime.Subscriber
	Rooms          *services.RoomService
	Messages       *services.MessageService
	Typing         *services.TypingService
	TypingInterval time.Duration
}

// Registry tracks live sessions so they can be counted and shut down.
type Registry struct {
	deps     Deps
	sessions map[*Session]bool
	mutex    sync.Mutex
	ctx      context.Context
	cancel   context.CancelFunc
	closed   bool
}

func NewRegistry(deps Deps) *Registry {
	ctx, cancel := context.WithCancel(context.Background())
	return &Registry{
		deps:     deps,
		sessions: make(map[*Session]bool),
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Start registers a session for an upgraded connection and runs its pumps.
func (r *Registry) Start(conn *websocket.Conn, user *models.User) (*Session, error) {
	s := newSession(r.ctx, r, conn, user, idgen.NewULID())
	if !r.register(s) {
		s.Close()
		return nil, realtime.ErrClosed
	}
	if err := s.start(); err != nil {
		r.Unregister(s)
		s.Close()
		return nil, err
	}
	logger.Info("User %s connected (session %s)", user.ID, s.id)
	return s, nil
}

func (r *Registry) register(s *Session) bool {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	if r.closed {
		return false
	}
	r.sessions[s] = true
	return true
}

func (r *Registry) Unregister(s *Session) {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	if _, ok := r.sessions[s]; ok {
		delete(r.sessions, s)
		logger.Info("User %s disconnected (session %s)", s.user.ID, s.id)
	}
}

func (r *Registry) Count() int {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	return len(r.sessions)
}

// CloseAll disconnects every session and waits until they have unregistered
// or ctx ends.
func (r *Registry) CloseAll(ctx context.Context) error {
	r.mutex.Lock()
	r.closed = true
	r.mutex.Unlock()
	r.cancel()

	r.mutex.Lock()
	for s := range r.sessions {
		s.Close()
	}
	r.mutex.Unlock()

	ticker := time.NewTicker(20 * time.Millisecond)
	defer ticker.Stop()
	for r.Count() > 0 {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
	return nil
}
