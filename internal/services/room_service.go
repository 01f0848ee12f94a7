package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"roomchat/internal/database"
	"roomchat/internal/idgen"
	"roomchat/internal/models"
	"roomchat/pkg/logger"
)

type RoomService struct {
	db        database.Database
	publicURL string
}

func NewRoomService(db database.Database, publicURL string) *RoomService {
	return &RoomService{db: db, publicURL: strings.TrimRight(publicURL, "/")}
}

func (s *RoomService) ListUserRooms(ctx context.Context, userID string) ([]*models.Room, error) {
	if userID == "" {
		return nil, ErrNotAuthenticated
	}
	rooms, err := s.db.ListUserRooms(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list rooms: %w", err)
	}
	return rooms, nil
}

// CreateRoom stores the room together with the creator's membership.
func (s *RoomService) CreateRoom(ctx context.Context, req *models.CreateRoomRequest, ownerID string) (*models.Room, error) {
	if ownerID == "" {
		return nil, ErrNotAuthenticated
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, ErrInvalidRoomName
	}

	room := &models.Room{
		ID:        idgen.NewUUID(),
		Name:      name,
		CreatedBy: ownerID,
		CreatedAt: time.Now().UTC(),
	}
	if _, err := s.db.CreateRoomWithOwner(ctx, room); err != nil {
		return nil, fmt.Errorf("failed to create room: %w", err)
	}

	logger.Info("Room %s created by %s", room.ID, ownerID)
	return room, nil
}

func (s *RoomService) GetRoom(ctx context.Context, roomID string) (*models.Room, error) {
	room, found, err := s.db.GetRoomByID(ctx, roomID)
	if err != nil {
		return nil, fmt.Errorf("failed to load room: %w", err)
	}
	if !found {
		return nil, ErrRoomNotFound
	}
	return room, nil
}

// IsMember reports whether userID belongs to roomID.
func (s *RoomService) IsMember(ctx context.Context, roomID, userID string) (bool, error) {
	_, found, err := s.db.GetMembership(ctx, roomID, userID)
	if err != nil {
		return false, fmt.Errorf("failed to check membership: %w", err)
	}
	return found, nil
}

func (s *RoomService) requireMember(ctx context.Context, roomID, userID string) error {
	if userID == "" {
		return ErrNotAuthenticated
	}
	ok, err := s.IsMember(ctx, roomID, userID)
	if err != nil {
		return err
	}
	if !ok {
		return ErrNotMember
	}
	return nil
}

func (s *RoomService) InviteUser(ctx context.Context, roomID, inviterID, email string) (*models.User, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		return nil, ErrInvalidEmail
	}
	if _, err := s.GetRoom(ctx, roomID); err != nil {
		return nil, err
	}
	if err := s.requireMember(ctx, roomID, inviterID); err != nil {
		return nil, err
	}

	// Get user by email
	user, found, err := s.db.GetUserByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("failed to look up user: %w", err)
	}
	if !found {
		return nil, ErrUserNotFound
	}

	member, err := s.IsMember(ctx, roomID, user.ID)
	if err != nil {
		return nil, err
	}
	if member {
		return nil, ErrAlreadyMember
	}

	if _, err := s.db.AddMembership(ctx, roomID, user.ID); err != nil {
		if errors.Is(err, database.ErrDuplicate) {
			return nil, ErrAlreadyMember
		}
		return nil, fmt.Errorf("failed to add membership: %w", err)
	}

	logger.Info("User %s invited %s to room %s", inviterID, user.ID, roomID)
	return user, nil
}

// ShareLink returns the deep link that lets others join the room.
func (s *RoomService) ShareLink(ctx context.Context, roomID, userID string) (string, error) {
	if _, err := s.GetRoom(ctx, roomID); err != nil {
		return "", err
	}
	if err := s.requireMember(ctx, roomID, userID); err != nil {
		return "", err
	}
	return s.publicURL + "/join/" + roomID, nil
}

// JoinRoom adds userID to roomID unless the membership already exists. joined
// is false when the user was already a member; that is not an error.
func (s *RoomService) JoinRoom(ctx context.Context, userID, roomID string) (*models.Room, bool, error) {
	if userID == "" {
		return nil, false, ErrNotAuthenticated
	}
	room, err := s.GetRoom(ctx, roomID)
	if err != nil {
		return nil, false, err
	}

	member, err := s.IsMember(ctx, roomID, userID)
	if err != nil {
		return room, false, err
	}
	if member {
		return room, false, nil
	}

	if _, err := s.db.AddMembership(ctx, roomID, userID); err != nil {
		if errors.Is(err, database.ErrDuplicate) {
			return room, false, nil
		}
		return room, false, fmt.Errorf("failed to join room: %w", err)
	}

	logger.Info("User %s joined room %s", userID, roomID)
	return room, true, nil
}
