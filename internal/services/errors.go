package services

import "roomchat/pkg/errs"

var (
	ErrNotAuthenticated = errs.New(errs.ErrUnauthorized, "not authenticated")
	ErrRoomNotFound     = errs.New(errs.ErrNotFound, "room not found")
	ErrUserNotFound     = errs.New(errs.ErrNotFound, "user not found")
	ErrAlreadyMember    = errs.New(errs.ErrConflict, "user is already a member of this room")
	ErrNotMember        = errs.New(errs.ErrForbidden, "you are not a member of this room")
	ErrEmptyMessage     = errs.New(errs.ErrInvalidInput, "message cannot be empty")
	ErrInvalidRoomName  = errs.New(errs.ErrInvalidInput, "room name is required")
	ErrInvalidEmail     = errs.New(errs.ErrInvalidInput, "email is required")
)
