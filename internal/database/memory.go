package database

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"roomchat/internal/models"
)

type memberKey struct {
	roomID string
	userID string
}

// MemoryDB keeps everything in-process. It backs DATABASE_URL=memory:// and
// the tests.
type MemoryDB struct {
	mu       sync.RWMutex
	users    map[string]models.User // key: user ID
	emails   map[string]string      // lower(email) -> user ID
	rooms    map[string]models.Room
	members  map[memberKey]models.Membership
	messages map[string][]models.Message // key: room ID
	typing   map[memberKey]models.TypingFlag
}

func NewMemoryDB() *MemoryDB {
	return &MemoryDB{
		users:    make(map[string]models.User),
		emails:   make(map[string]string),
		rooms:    make(map[string]models.Room),
		members:  make(map[memberKey]models.Membership),
		messages: make(map[string][]models.Message),
		typing:   make(map[memberKey]models.TypingFlag),
	}
}

func (m *MemoryDB) Ping(ctx context.Context) error { return ctx.Err() }

func (m *MemoryDB) Close() error { return nil }

func (m *MemoryDB) CreateUser(ctx context.Context, user *models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	email := strings.ToLower(user.Email)
	if _, exists := m.emails[email]; exists {
		return fmt.Errorf("%w: users_email_key", ErrDuplicate)
	}
	if _, exists := m.users[user.ID]; exists {
		return fmt.Errorf("%w: users_pkey", ErrDuplicate)
	}
	m.users[user.ID] = *user
	m.emails[email] = user.ID
	return nil
}

func (m *MemoryDB) GetUserByEmail(ctx context.Context, email string) (*models.User, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	id, ok := m.emails[strings.ToLower(email)]
	if !ok {
		return nil, false, nil
	}
	u := m.users[id]
	return &u, true, nil
}

func (m *MemoryDB) GetUserByID(ctx context.Context, id string) (*models.User, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	u, ok := m.users[id]
	if !ok {
		return nil, false, nil
	}
	return &u, true, nil
}

func (m *MemoryDB) CreateRoomWithOwner(ctx context.Context, room *models.Room) (*models.Membership, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.rooms[room.ID]; exists {
		return nil, fmt.Errorf("%w: rooms_pkey", ErrDuplicate)
	}
	if _, ok := m.users[room.CreatedBy]; !ok {
		return nil, fmt.Errorf("failed to create room: unknown creator %q", room.CreatedBy)
	}
	m.rooms[room.ID] = *room
	member := models.Membership{RoomID: room.ID, UserID: room.CreatedBy, JoinedAt: time.Now().UTC()}
	m.members[memberKey{room.ID, room.CreatedBy}] = member
	return &member, nil
}

func (m *MemoryDB) GetRoomByID(ctx context.Context, id string) (*models.Room, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	r, ok := m.rooms[id]
	if !ok {
		return nil, false, nil
	}
	return &r, true, nil
}

func (m *MemoryDB) ListUserRooms(ctx context.Context, userID string) ([]*models.Room, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	rooms := make([]*models.Room, 0)
	for key := range m.members {
		if key.userID != userID {
			continue
		}
		if r, ok := m.rooms[key.roomID]; ok {
			rooms = append(rooms, &r)
		}
	}
	sort.Slice(rooms, func(i, j int) bool {
		if !rooms[i].CreatedAt.Equal(rooms[j].CreatedAt) {
			return rooms[i].CreatedAt.Before(rooms[j].CreatedAt)
		}
		return rooms[i].ID < rooms[j].ID
	})
	return rooms, nil
}

func (m *MemoryDB) AddMembership(ctx context.Context, roomID, userID string) (*models.Membership, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.rooms[roomID]; !ok {
		return nil, fmt.Errorf("failed to add membership: unknown room %q", roomID)
	}
	if _, ok := m.users[userID]; !ok {
		return nil, fmt.Errorf("failed to add membership: unknown user %q", userID)
	}
	key := memberKey{roomID, userID}
	if _, exists := m.members[key]; exists {
		return nil, fmt.Errorf("%w: room_members_pkey", ErrDuplicate)
	}
	member := models.Membership{RoomID: roomID, UserID: userID, JoinedAt: time.Now().UTC()}
	m.members[key] = member
	return &member, nil
}

func (m *MemoryDB) GetMembership(ctx context.Context, roomID, userID string) (*models.Membership, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	member, ok := m.members[memberKey{roomID, userID}]
	if !ok {
		return nil, false, nil
	}
	return &member, true, nil
}

func (m *MemoryDB) CreateMessage(ctx context.Context, msg *models.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.rooms[msg.RoomID]; !ok {
		return fmt.Errorf("failed to save message: unknown room %q", msg.RoomID)
	}
	if _, ok := m.users[msg.UserID]; !ok {
		return fmt.Errorf("failed to save message: unknown user %q", msg.UserID)
	}
	for _, existing := range m.messages[msg.RoomID] {
		if existing.ID == msg.ID {
			return fmt.Errorf("%w: messages_pkey", ErrDuplicate)
		}
	}
	stored := *msg
	stored.User = nil
	stored.IsSelf = false
	m.messages[msg.RoomID] = append(m.messages[msg.RoomID], stored)
	return nil
}

func (m *MemoryDB) ListMessages(ctx context.Context, roomID string) ([]*models.Message, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	stored := m.messages[roomID]
	messages := make([]*models.Message, 0, len(stored))
	for _, s := range stored {
		u, ok := m.users[s.UserID]
		if !ok {
			continue
		}
		msg := s
		msg.User = u.Profile()
		messages = append(messages, &msg)
	}
	sort.SliceStable(messages, func(i, j int) bool {
		if !messages[i].CreatedAt.Equal(messages[j].CreatedAt) {
			return messages[i].CreatedAt.Before(messages[j].CreatedAt)
		}
		return messages[i].ID < messages[j].ID
	})
	return messages, nil
}

func (m *MemoryDB) UpsertTyping(ctx context.Context, flag *models.TypingFlag) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.rooms[flag.RoomID]; !ok {
		return false, fmt.Errorf("failed to upsert typing flag: unknown room %q", flag.RoomID)
	}
	if _, ok := m.users[flag.UserID]; !ok {
		return false, fmt.Errorf("failed to upsert typing flag: unknown user %q", flag.UserID)
	}
	key := memberKey{flag.RoomID, flag.UserID}
	_, existed := m.typing[key]
	m.typing[key] = *flag
	return !existed, nil
}

func (m *MemoryDB) ListTypingUsers(ctx context.Context, roomID string, since time.Time) ([]*models.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	flags := make([]models.TypingFlag, 0)
	for key, f := range m.typing {
		if key.roomID == roomID && f.IsTyping && f.UpdatedAt.After(since) {
			flags = append(flags, f)
		}
	}
	sort.Slice(flags, func(i, j int) bool {
		if !flags[i].UpdatedAt.Equal(flags[j].UpdatedAt) {
			return flags[i].UpdatedAt.Before(flags[j].UpdatedAt)
		}
		return flags[i].UserID < flags[j].UserID
	})

	users := make([]*models.User, 0, len(flags))
	for _, f := range flags {
		if u, ok := m.users[f.UserID]; ok {
			users = append(users, &u)
		}
	}
	return users, nil
}
