package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"roomchat/internal/database"
	"roomchat/internal/models"
)

const DefaultTypingTTL = 10 * time.Second

type TypingService struct {
	db    database.Database
	rooms *RoomService
	ttl   time.Duration
	now   func() time.Time
}

func NewTypingService(db database.Database, rooms *RoomService, ttl time.Duration) *TypingService {
	if ttl <= 0 {
		ttl = DefaultTypingTTL
	}
	return &TypingService{db: db, rooms: rooms, ttl: ttl, now: time.Now}
}

// SetTyping records whether userID is composing in roomID, based on whether
// the draft has any non-blank text.
func (s *TypingService) SetTyping(ctx context.Context, roomID, userID, draft string) error {
	if err := s.rooms.requireMember(ctx, roomID, userID); err != nil {
		return err
	}
	return s.set(ctx, roomID, userID, strings.TrimSpace(draft) != "")
}

// Clear drops the flag without a membership check so it always succeeds on
// room switch and disconnect. The room must still exist.
func (s *TypingService) Clear(ctx context.Context, roomID, userID string) error {
	if userID == "" {
		return ErrNotAuthenticated
	}
	if _, err := s.rooms.GetRoom(ctx, roomID); err != nil {
		return err
	}
	return s.set(ctx, roomID, userID, false)
}

func (s *TypingService) set(ctx context.Context, roomID, userID string, typing bool) error {
	if userID == "" {
		return ErrNotAuthenticated
	}
	if roomID == "" {
		return ErrRoomNotFound
	}
	flag := &models.TypingFlag{
		RoomID:    roomID,
		UserID:    userID,
		IsTyping:  typing,
		UpdatedAt: s.now().UTC(),
	}
	if _, err := s.db.UpsertTyping(ctx, flag); err != nil {
		return fmt.Errorf("failed to update typing status: %w", err)
	}
	return nil
}

// TypingUsers lists users typing in roomID within the TTL, never including
// the viewer.
func (s *TypingService) TypingUsers(ctx context.Context, roomID, viewerID string) ([]*models.User, error) {
	users, err := s.db.ListTypingUsers(ctx, roomID, s.now().Add(-s.ttl))
	if err != nil {
		return nil, fmt.Errorf("failed to load typing users: %w", err)
	}
	out := users[:0]
	for _, u := range users {
		if u.ID != viewerID {
			out = append(out, u)
		}
	}
	return out, nil
}

// TypingState is the indicator for one viewer, who must be a member.
func (s *TypingService) TypingState(ctx context.Context, roomID, viewerID string) (*models.TypingState, error) {
	if err := s.rooms.requireMember(ctx, roomID, viewerID); err != nil {
		return nil, err
	}
	users, err := s.TypingUsers(ctx, roomID, viewerID)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(users))
	for _, u := range users {
		names = append(names, u.FullName)
	}
	return &models.TypingState{RoomID: roomID, Names: names, Text: IndicatorText(names)}, nil
}

// IndicatorText renders the "is typing" line for the given names.
func IndicatorText(names []string) string {
	switch len(names) {
	case 0:
		return ""
	case 1:
		return names[0] + " is typing..."
	case 2:
		return names[0] + " and " + names[1] + " are typing..."
	default:
		return fmt.Sprintf("%s and %d others are typing...", names[0], len(names)-1)
	}
}
