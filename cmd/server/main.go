package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/fsnotify/fsnotify"
	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/google/uuid"
	"github.com/joho/godotenv"

	"taskdeck/internal/config"
	"taskdeck/internal/database"
	"taskdeck/internal/handlers"
	"taskdeck/internal/jobs"
	"taskdeck/internal/logging"
	"taskdeck/internal/middleware"
	"taskdeck/internal/services"
	"taskdeck/pkg/auth"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)

	// Initialize structured logging (JSON in production, text in dev)
	logging.Init()

	log.Println("🚀 Starting TaskDeck Server...")

	// Load .env file (ignore error if file doesn't exist)
	if err := godotenv.Load(); err != nil {
		log.Printf("⚠️  No .env file found or error loading it: %v", err)
	}

	// Load configuration
	cfg := config.Load()
	log.Printf("📋 Configuration loaded (Port: %s)", cfg.Port)

	if cfg.MongoURI == "" {
		log.Fatal("❌ MONGODB_URI environment variable is required")
	}
	if cfg.JWTSecret == "" {
		log.Fatal("❌ JWT_SECRET environment variable is required")
	}

	// Connect to MongoDB
	log.Println("🔗 Connecting to MongoDB...")
	db, err := database.NewMongoDB(cfg.MongoURI)
	if err != nil {
		log.Fatalf("❌ Failed to connect to MongoDB: %v", err)
	}
	defer db.Close(context.Background())

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	if err := db.Initialize(ctx); err != nil {
		cancel()
		log.Fatalf("❌ Failed to initialize database: %v", err)
	}
	cancel()
	log.Println("✅ MongoDB connected and initialized")

	// Redis is optional: without it each instance only sees its own writes'
	// snapshot refires.
	var redisService *services.RedisService
	var pubsubService *services.PubSubService
	if cfg.RedisURL != "" {
		redisService, err = services.NewRedisService(cfg.RedisURL)
		if err != nil {
			log.Printf("⚠️ Failed to connect to Redis: %v (cross-instance fanout disabled)", err)
		} else {
			pubsubService = services.NewPubSubService(redisService, uuid.New().String())
			if err := pubsubService.Start(); err != nil {
				log.Printf("⚠️ Failed to start PubSub: %v (cross-instance fanout disabled)", err)
				pubsubService = nil
			} else {
				log.Println("✅ Redis pub/sub connected (cross-instance fanout enabled)")
			}
		}
	}

	// Workspace definition: seed data, canonical project order, aliases
	workspace, err := config.LoadWorkspace(cfg.WorkspaceFile)
	if err != nil {
		log.Fatalf("❌ Failed to load workspace file %s: %v", cfg.WorkspaceFile, err)
	}

	// Core services
	bus := services.NewSnapshotBus()
	store := services.NewDocumentStore(db, bus, pubsubService)
	identityService := services.NewIdentityService(db)
	syncService := services.NewSyncService(store, identityService, cfg, workspace)
	metrics := services.InitMetrics(syncService)
	bus.SetMetrics(metrics)

	taskService := services.NewTaskService(store, metrics)
	projectService := services.NewProjectService(store, metrics)
	parser := services.NewMessageParser(syncService.Workspace)
	slackService := services.NewSlackService(cfg.SlackBotToken)
	webhookService := services.NewWebhookService(store, identityService, cfg, metrics)

	jwtAuth, err := auth.NewJWTAuth(cfg.JWTSecret, 24*time.Hour)
	if err != nil {
		log.Fatalf("❌ Failed to initialize JWT auth: %v", err)
	}

	// Hot reload of the workspace file
	if cfg.WorkspaceFile != "" {
		go startWorkspaceFileWatcher(cfg.WorkspaceFile, syncService)
	}

	// Session janitor
	janitor, err := jobs.NewSessionJanitor(syncService, cfg.SessionIdleTimeout)
	if err != nil {
		log.Fatalf("❌ Failed to create session janitor: %v", err)
	}
	if err := janitor.Start(); err != nil {
		log.Fatalf("❌ Failed to start session janitor: %v", err)
	}

	// Initialize Fiber app
	app := fiber.New(fiber.Config{
		AppName:      "TaskDeck v1.0",
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	})

	// Middleware
	app.Use(recover.New())
	app.Use(logger.New())

	// Prometheus metrics middleware
	prometheus := fiberprometheus.New("taskdeck")
	prometheus.RegisterAt(app, "/metrics")
	app.Use(prometheus.Middleware)
	log.Println("📊 Prometheus metrics endpoint enabled at /metrics")

	allowedOrigins := os.Getenv("ALLOWED_ORIGINS")
	if allowedOrigins == "" {
		allowedOrigins = "http://localhost:5173,http://localhost:3000"
		log.Println("⚠️  ALLOWED_ORIGINS not set, using development defaults")
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins:     allowedOrigins,
		AllowMethods:     "GET,POST,PUT,PATCH,DELETE,OPTIONS",
		AllowHeaders:     "Origin,Content-Type,Accept,Authorization,X-API-Key",
		AllowCredentials: allowedOrigins != "*",
	}))

	// Initialize handlers
	healthHandler := handlers.NewHealthHandler(db)
	sessionHandler := handlers.NewSessionHandler(syncService)
	taskHandler := handlers.NewTaskHandler(syncService, taskService)
	projectHandler := handlers.NewProjectHandler(syncService, projectService)
	viewHandler := handlers.NewViewHandler(syncService)
	webhookHandler := handlers.NewWebhookHandler(cfg, webhookService, syncService)
	slackHandler := handlers.NewSlackHandler(cfg, parser, webhookService, slackService, metrics)
	streamHandler := handlers.NewStreamHandler(syncService, metrics)

	// Public routes
	app.Get("/health", healthHandler.Health)
	app.Post("/api/webhooks/add-task", webhookHandler.AddTask)
	app.Post("/api/webhooks/slack", slackHandler.Events)

	// Authenticated JSON API
	api := app.Group("/api", middleware.JWTMiddleware(jwtAuth))

	api.Get("/session", sessionHandler.Get)
	api.Delete("/session", sessionHandler.Delete)

	api.Get("/board", viewHandler.Board)
	api.Get("/agenda", viewHandler.Agenda)
	api.Put("/selection", projectHandler.SetSelection)

	api.Get("/tasks", taskHandler.List)
	api.Post("/tasks", taskHandler.Create)
	api.Patch("/tasks/:id", taskHandler.Update)
	api.Delete("/tasks/:id", taskHandler.Delete)
	api.Post("/tasks/:id/move", taskHandler.Move)
	api.Post("/tasks/:id/star", taskHandler.Star)
	api.Post("/tasks/:id/complete", taskHandler.Complete)

	api.Get("/projects", projectHandler.List)
	api.Post("/projects", projectHandler.Create)
	api.Patch("/projects/:id", projectHandler.Rename)
	api.Delete("/projects/:id", projectHandler.Delete)

	// WebSocket snapshot stream (requires auth; token via ?token= on upgrade)
	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Use("/ws", middleware.JWTMiddleware(jwtAuth))
	app.Get("/ws", websocket.New(streamHandler.Handle))

	log.Printf("🌐 Server starting on port %s", cfg.Port)
	log.Printf("📡 Health check: http://localhost:%s/health", cfg.Port)
	log.Printf("🔌 Snapshot stream: ws://localhost:%s/ws", cfg.Port)

	// Handle graceful shutdown
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		log.Println("\n🛑 Shutting down server...")

		if err := janitor.Stop(); err != nil {
			log.Printf("⚠️ Error stopping session janitor: %v", err)
		}
		if pubsubService != nil {
			if err := pubsubService.Stop(); err != nil {
				log.Printf("⚠️ Error stopping PubSub: %v", err)
			}
		}
		if redisService != nil {
			if err := redisService.Close(); err != nil {
				log.Printf("⚠️ Error closing Redis: %v", err)
			}
		}

		if err := app.Shutdown(); err != nil {
			log.Printf("⚠️ Error shutting down server: %v", err)
		}
	}()

	if err := app.Listen(":" + cfg.Port); err != nil {
		log.Fatalf("❌ Failed to start server: %v", err)
	}
}

// startWorkspaceFileWatcher watches the workspace file and hot-reloads seeds
// and aliases on change.
func startWorkspaceFileWatcher(filePath string, syncService *services.SyncService) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		log.Printf("⚠️  Failed to create file watcher: %v", err)
		return
	}

	absPath, err := filepath.Abs(filePath)
	if err != nil {
		log.Printf("⚠️  Failed to get absolute path for %s: %v", filePath, err)
		watcher.Close()
		return
	}

	// Watch the directory (more reliable than watching the file directly)
	dir := filepath.Dir(absPath)
	filename := filepath.Base(absPath)

	if err := watcher.Add(dir); err != nil {
		log.Printf("⚠️  Failed to watch directory %s: %v", dir, err)
		watcher.Close()
		return
	}

	log.Printf("👁️  Watching %s for changes (hot-reload enabled)", filePath)

	// Debounce rapid successive writes (editors often write twice)
	var debounceTimer *time.Timer
	debounceDuration := 500 * time.Millisecond

	for {
		select {
		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if filepath.Base(event.Name) != filename {
				continue
			}
			if event.Op&fsnotify.Write == fsnotify.Write || event.Op&fsnotify.Create == fsnotify.Create {
				if debounceTimer != nil {
					debounceTimer.Stop()
				}
				debounceTimer = time.AfterFunc(debounceDuration, func() {
					ws, err := config.LoadWorkspace(filePath)
					if err != nil {
						log.Printf("❌ Failed to reload workspace file: %v", err)
						return
					}
					syncService.SetWorkspace(ws)
					log.Printf("🔄 Workspace reloaded from %s", filePath)
				})
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			log.Printf("⚠️  File watcher error: %v", err)
		}
	}
}
