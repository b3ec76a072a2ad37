package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"time"

	gfshutdown "github.com/gelmium/graceful-shutdown"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"room-relay/internal/chat"
	"room-relay/internal/config"
	"room-relay/internal/db"
	myMiddleware "room-relay/internal/middleware"
	"room-relay/internal/user"
)

func main() {
	// 1. Config
	if err := godotenv.Load(); err != nil {
		log.Printf("warning: failed to load .env file: %v", err)
		log.Println("continuing with system environment variables only")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("❌ Failed to load configuration: %v", err)
	}

	// 2. Connect to Redis
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	pingCtx, cancelPing := context.WithTimeout(context.Background(), 5*time.Second)
	if _, err := redisClient.Ping(pingCtx).Result(); err != nil {
		log.Fatalf("❌ Failed to connect to Redis: %v", err)
	}
	cancelPing()
	log.Println("✅ Connected to Redis")

	// 3. Optional Postgres archive
	var database *db.Database
	if cfg.ArchiveDSN != "" {
		database, err = db.NewDatabase(cfg.ArchiveDSN)
		if err != nil {
			log.Fatalf("❌ Failed to connect to DB: %v", err)
		}
		log.Println("✅ Connected to PostgreSQL")

		if err := database.AutoMigrate(); err != nil {
			log.Fatalf("❌ Migration failed: %v", err)
		}
		log.Println("✅ Archive Schema Initialized")
	} else {
		log.Println("DB_DSN not set, message archive disabled")
	}

	// 4. Chat
	logger := log.New(os.Stdout, "[relay] ", log.LstdFlags)
	chatRepo := chat.NewRepository(redisClient, cfg.History)

	opts := chat.Options{DefaultRoom: cfg.Relay.DefaultRoom, Policy: cfg.Relay.Policy}
	if database != nil {
		opts.Archive = database
	}
	hub := chat.NewHub(chatRepo, logger, opts)

	hubCtx, stopHub := context.WithCancel(context.Background())
	go hub.Run(hubCtx)

	chatHandler := chat.NewHandler(hub, chatRepo, logger, cfg.Server.AllowedOrigins)
	userHandler := user.NewHandler(user.NewRepository(redisClient), logger)

	// 5. Routes
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(myMiddleware.NewCORS(cfg.Server.AllowedOrigins).Handle)

	chatHandler.RegisterRoutes(r)
	r.Get("/users/{userId}", userHandler.GetProfile)
	if database != nil {
		r.Get("/rooms/{roomId}/archive", db.NewHandler(database, logger).GetArchive)
	}

	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Printf("🚀 Server starting on %s (default room %q, duplicate sessions: %s)",
			cfg.Server.Addr, cfg.Relay.DefaultRoom, cfg.Relay.Policy)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("❌ Server failed: %v", err)
		}
	}()

	// 6. Graceful shutdown. Hijacked websockets are not tracked by
	// srv.Shutdown; they drop when the process exits, without a leave.
	wait := gfshutdown.GracefulShutdown(
		context.Background(),
		cfg.Server.ShutdownTimeout,
		map[string]gfshutdown.Operation{
			// Stores close only after in-flight requests have drained.
			"relay": func(ctx context.Context) error {
				log.Println("Graceful shutdown initiated...")
				errs := []error{srv.Shutdown(ctx)}
				stopHub()
				if database != nil {
					errs = append(errs, database.Close())
				}
				errs = append(errs, redisClient.Close())
				return errors.Join(errs...)
			},
		},
	)

	exitCode := <-wait
	log.Printf("Server exited with code: %d", exitCode)
	os.Exit(exitCode)
}
