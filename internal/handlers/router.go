package handlers

import (
	"context"
	"net/http"
	"slices"
	"time"

	"roomchat/internal/auth"
	"roomchat/internal/services"
	ws "roomchat/internal/websocket"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

type Pinger interface {
	Ping(ctx context.Context) error
}

type Deps struct {
	Auth           *auth.Service
	Rooms          *services.RoomService
	Messages       *services.MessageService
	Typing         *services.TypingService
	Sessions       *ws.Registry
	DB             Pinger
	PublicURL      string
	AllowedOrigins []string
}

func NewRouter(d Deps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   d.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		AllowCredentials: !slices.Contains(d.AllowedOrigins, "*"),
		MaxAge:           300,
	}))

	// health
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := d.DB.Ping(ctx); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	ah := NewAuthHandlers(d.Auth, d.PublicURL)
	rh := NewRoomHandlers(d.Rooms)
	mh := NewMessageHandlers(d.Messages, d.Typing)
	jh := NewJoinHandlers(d.Rooms)
	wh := NewWebSocketHandlers(d.Sessions, d.AllowedOrigins)
	gate := NewGate(d.Auth)

	// Auth endpoints
	r.Post("/register", ah.Register)
	r.Post("/login", ah.Login)
	r.Group(func(r chi.Router) {
		r.Use(requireUser(d.Auth))
		r.Post("/logout", ah.Logout)
		r.Get("/me", ah.Me)
		r.Get("/ws", wh.HandleWebSocket)
	})

	// Page routes
	r.Get("/auth", gate.Auth)
	r.Group(func(r chi.Router) {
		r.Use(gate.RequireSession)
		r.Get("/", gate.Home)
		r.Get("/join/{roomId}", jh.JoinPage)
	})

	r.Route("/api", func(r chi.Router) {
		r.Use(requireUser(d.Auth))

		r.Post("/join/{roomId}", jh.JoinRoom)

		r.Route("/rooms", func(r chi.Router) {
			r.Get("/", rh.ListRooms)
			r.Post("/", rh.CreateRoom)

			r.Route("/{id}", func(r chi.Router) {
				r.Post("/invite", rh.InviteUser)
				r.Get("/share-link", rh.ShareLink)
				r.Get("/messages", mh.ListMessages)
				r.Post("/messages", mh.SendMessage)
				r.Get("/typing", mh.GetTyping)
				r.Put("/typing", mh.SetTyping)
				r.Delete("/typing", mh.ClearTyping)
			})
		})
	})

	return r
}
