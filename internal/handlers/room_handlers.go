package handlers

import (
	"net/http"
	"strings"

	"roomchat/internal/models"
	"roomchat/internal/services"

	"github.com/go-chi/chi/v5"
)

type RoomHandlers struct {
	roomService *services.RoomService
}

func NewRoomHandlers(roomService *services.RoomService) *RoomHandlers {
	return &RoomHandlers{roomService: roomService}
}

type inviteResponse struct {
	User   *models.Profile `json:"user"`
	Notice *models.Notice  `json:"notice"`
}

func (h *RoomHandlers) ListRooms(w http.ResponseWriter, r *http.Request) {
	user := userFrom(r.Context())

	rooms, err := h.roomService.ListUserRooms(r.Context(), user.ID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rooms)
}

func (h *RoomHandlers) CreateRoom(w http.ResponseWriter, r *http.Request) {
	user := userFrom(r.Context())

	var req models.CreateRoomRequest
	if err := decodeJSON(r, &req); err != nil {
		writeFailure(w, r, "Error creating room", err)
		return
	}

	room, err := h.roomService.CreateRoom(r.Context(), &req, user.ID)
	if err != nil {
		writeFailure(w, r, "Error creating room", err)
		return
	}
	writeJSON(w, http.StatusCreated, room)
}

func (h *RoomHandlers) InviteUser(w http.ResponseWriter, r *http.Request) {
	user := userFrom(r.Context())
	roomID := chi.URLParam(r, "id")

	var req models.InviteRequest
	if err := decodeJSON(r, &req); err != nil {
		writeFailure(w, r, "Error inviting user", err)
		return
	}

	invited, err := h.roomService.InviteUser(r.Context(), roomID, user.ID, req.Email)
	if err != nil {
		writeFailure(w, r, "Error inviting user", err)
		return
	}

	email := strings.TrimSpace(req.Email)
	writeJSON(w, http.StatusOK, inviteResponse{
		User:   invited.Profile(),
		Notice: models.Info("User invited", "Successfully invited "+email+" to the room"),
	})
}

func (h *RoomHandlers) ShareLink(w http.ResponseWriter, r *http.Request) {
	user := userFrom(r.Context())
	roomID := chi.URLParam(r, "id")

	url, err := h.roomService.ShareLink(r.Context(), roomID, user.ID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, models.ShareLink{
		RoomID: roomID,
		URL:    url,
		Notice: models.Info("Link copied!", "Share this link with others to join the room"),
	})
}
