package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"roomchat/internal/database"
	"roomchat/internal/idgen"
	"roomchat/internal/models"
)

type MessageService struct {
	db    database.Database
	rooms *RoomService
}

func NewMessageService(db database.Database, rooms *RoomService) *MessageService {
	return &MessageService{db: db, rooms: rooms}
}

// LoadMessages returns the room history oldest first. Only members may read it.
func (s *MessageService) LoadMessages(ctx context.Context, roomID, viewerID string) ([]*models.Message, error) {
	if _, err := s.rooms.GetRoom(ctx, roomID); err != nil {
		return nil, err
	}
	if err := s.rooms.requireMember(ctx, roomID, viewerID); err != nil {
		return nil, err
	}

	messages, err := s.db.ListMessages(ctx, roomID)
	if err != nil {
		return nil, fmt.Errorf("failed to load messages: %w", err)
	}
	for _, m := range messages {
		m.IsSelf = m.UserID == viewerID
	}
	return messages, nil
}

// SendMessage stores content as written; only the emptiness check trims it.
func (s *MessageService) SendMessage(ctx context.Context, roomID, senderID, content string) (*models.Message, error) {
	if senderID == "" {
		return nil, ErrNotAuthenticated
	}
	if strings.TrimSpace(content) == "" {
		return nil, ErrEmptyMessage
	}
	if err := s.rooms.requireMember(ctx, roomID, senderID); err != nil {
		return nil, err
	}

	msg := &models.Message{
		ID:        idgen.NewULID(),
		RoomID:    roomID,
		UserID:    senderID,
		Content:   content,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.db.CreateMessage(ctx, msg); err != nil {
		return nil, fmt.Errorf("failed to send message: %w", err)
	}

	profile, err := s.AuthorProfile(ctx, senderID)
	if err == nil {
		msg.User = profile
	}
	msg.IsSelf = true
	return msg, nil
}

// AuthorProfile fetches the public profile attached to a live message.
func (s *MessageService) AuthorProfile(ctx context.Context, userID string) (*models.Profile, error) {
	user, found, err := s.db.GetUserByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load author: %w", err)
	}
	if !found {
		return nil, ErrUserNotFound
	}
	return user.Profile(), nil
}
