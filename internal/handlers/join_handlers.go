package handlers

import (
	"context"
	"errors"
	"net/http"

	"roomchat/internal/models"
	"roomchat/internal/services"
	"roomchat/pkg/errs"
	"roomchat/pkg/logger"

	"github.com/go-chi/chi/v5"
)

const homePath = "/"

type JoinHandlers struct {
	roomService *services.RoomService
}

func NewJoinHandlers(roomService *services.RoomService) *JoinHandlers {
	return &JoinHandlers{roomService: roomService}
}

// join runs the deep-link join flow. The result always sends the user home;
// only the notice differs. status is the HTTP status for the API route.
func (h *JoinHandlers) join(ctx context.Context, user *models.User, roomID string) (*models.JoinResult, int) {
	result := &models.JoinResult{Redirect: homePath}

	userID := ""
	if user != nil {
		userID = user.ID
	}
	room, joined, err := h.roomService.JoinRoom(ctx, userID, roomID)
	switch {
	case errors.Is(err, services.ErrRoomNotFound):
		result.Notice = models.Failure("Room not found", "This room may have been deleted")
		return result, http.StatusNotFound
	case err != nil:
		if errs.Public(err) == "" {
			logger.Error("Error joining room %s for %s: %v", roomID, userID, err)
		}
		result.Notice = models.Failure("Error joining room", errs.Message(err))
		return result, errs.ToHTTP(err)
	}

	result.Room = room
	result.Joined = joined
	if joined {
		result.Notice = models.Info("Joined room", "Successfully joined "+room.Name)
	}
	return result, http.StatusOK
}

// JoinRoom is POST /api/join/{roomId}.
func (h *JoinHandlers) JoinRoom(w http.ResponseWriter, r *http.Request) {
	result, status := h.join(r.Context(), userFrom(r.Context()), chi.URLParam(r, "roomId"))
	writeJSON(w, status, result)
}

// JoinPage is GET /join/{roomId}: join, then 303 home with the notice in the
// flash cookie.
func (h *JoinHandlers) JoinPage(w http.ResponseWriter, r *http.Request) {
	result, _ := h.join(r.Context(), userFrom(r.Context()), chi.URLParam(r, "roomId"))
	if result.Notice != nil {
		setFlash(w, result.Notice)
	}
	http.Redirect(w, r, result.Redirect, http.StatusSeeOther)
}
