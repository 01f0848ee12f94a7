package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"roomchat/internal/auth"
	"roomchat/internal/config"
	"roomchat/internal/database"
	"roomchat/internal/handlers"
	"roomchat/internal/realtime"
	"roomchat/internal/services"
	"roomchat/internal/websocket"
	"roomchat/pkg/logger"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"
)

const (
	revokedPrefix   = "roomchat:revoked:"
	shutdownTimeout = 15 * time.Second
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("Failed to load configuration: %v", err)
	}
	logger.Init(logger.Options{
		Level:   cfg.Logging.Level,
		Format:  cfg.Logging.Format,
		Service: cfg.Logging.Service,
	})
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		logger.Fatal("Server error: %v", err)
	}
	logger.Info("Server stopped")
}

func run(ctx context.Context, cfg *config.Config) error {
	// Initialize database
	store, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	// Realtime bus and token revocation share Redis when it is configured
	var (
		bus     realtime.Broker
		revoker auth.Revoker
	)
	if cfg.Redis.URL != "" {
		opts, err := redis.ParseURL(cfg.Redis.URL)
		if err != nil {
			return err
		}
		client := redis.NewClient(opts)
		defer client.Close()

		broker, err := realtime.NewRedisBroker(ctx, client, cfg.Redis.ChannelPrefix, cfg.Chat.SubscriptionBuffer)
		if err != nil {
			return err
		}
		bus = broker
		revoker = auth.NewRedisRevoker(client, revokedPrefix)
		logger.Info("Realtime changes fan out over Redis")
	} else {
		bus = realtime.NewHub(cfg.Chat.SubscriptionBuffer)
		revoker = auth.NewMemoryRevoker()
		logger.Info("Realtime changes stay in process")
	}
	defer bus.Close()

	db := database.WithChanges(store, bus)

	// Initialize services
	authService := auth.NewService(db, cfg, revoker)
	roomService := services.NewRoomService(db, cfg.Server.PublicURL)
	messageService := services.NewMessageService(db, roomService)
	typingService := services.NewTypingService(db, roomService, cfg.Chat.TypingTTL)

	sessions := websocket.NewRegistry(websocket.Deps{
		Bus:            bus,
		Rooms:          roomService,
		Messages:       messageService,
		Typing:         typingService,
		TypingInterval: cfg.Chat.TypingTTL,
	})

	router := handlers.NewRouter(handlers.Deps{
		Auth:           authService,
		Rooms:          roomService,
		Messages:       messageService,
		Typing:         typingService,
		Sessions:       sessions,
		DB:             db,
		PublicURL:      cfg.Server.PublicURL,
		AllowedOrigins: cfg.Server.AllowedOrigins,
	})

	// Create server
	server := &http.Server{
		Addr:         cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("Server started on %s (public URL %s)", cfg.Server.Port, cfg.Server.PublicURL)
		logger.Info("WebSocket endpoint: %s/ws", cfg.Server.PublicURL)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Server shutting down...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := sessions.CloseAll(shutdownCtx); err != nil {
			logger.Warn("Sessions did not close in time: %v", err)
		}
		return server.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

func openStore(ctx context.Context, cfg *config.Config) (database.Database, error) {
	if cfg.Database.IsMemory() {
		logger.Warn("Using the in-memory store; data is lost on restart")
		return database.NewMemoryDB(), nil
	}

	db, err := database.NewPostgresDB(ctx, cfg.Database.URL, cfg.Database.MaxConns)
	if err != nil {
		return nil, err
	}
	if cfg.Database.Migrate {
		if err := db.Migrate(ctx); err != nil {
			db.Close()
			return nil, err
		}
	}
	return db, nil
}
