package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"abundance-backend/internal/config"
	"abundance-backend/internal/database"
	"abundance-backend/internal/handlers"
	"abundance-backend/internal/middleware"
	"abundance-backend/internal/repository"
	"abundance-backend/internal/router"
	"abundance-backend/internal/services"
	"abundance-backend/internal/websocket"
	"abundance-backend/internal/worker"
)

func main() {
	log.Println("🚀 Starting Abundance Backend...")

	// ──── Step 1: Load Environment Variables ────
	cfg := config.Load()
	log.Println("✓ Environment variables loaded")

	// ──── Step 2: Initialize PostgreSQL Connection Pool ────
	pool, err := database.NewPostgresPool(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("✗ PostgreSQL connection failed: %v", err)
	}
	defer pool.Close()
	log.Println("✓ PostgreSQL connected")

	// ──── Step 3: Initialize Redis Clients ────
	redisClients, err := database.NewRedisClients(cfg.RedisURL)
	if err != nil {
		log.Fatalf("✗ Redis connection failed: %v", err)
	}
	defer redisClients.Close()
	log.Println("✓ Redis connected")

	// ──── Step 4: Run Database Migrations ────
	if err := database.RunMigrations(pool, "migrations"); err != nil {
		log.Fatalf("✗ Database migration failed: %v", err)
	}
	log.Println("✓ Database migrations applied")

	// ──── Initialize Repositories ────
	userRepo := repository.NewUserRepo(pool)
	chatRepo := repository.NewChatRepo(pool)
	projectRepo := repository.NewProjectRepo(pool)
	sectionRepo := repository.NewSectionRepo(pool)
	sessionRepo := repository.NewSessionRepo(pool)
	jobRepo := repository.NewJobRepo(pool)

	// ──── Step 5: Initialize Gemini Client ────
	geminiClient, err := services.NewGeminiClient(cfg.GeminiAPIKey)
	if err != nil {
		log.Fatalf("✗ Gemini client initialization failed: %v", err)
	}
	defer geminiClient.Close()
	log.Println("✓ Gemini Flash client initialized")

	// ──── Initialize Services ────
	jwtAuth := middleware.NewJWTAuth(cfg.JWTSecret)
	authService := services.NewAuthService(userRepo, redisClients.Cache, jwtAuth)
	sectionService := services.NewSectionService(sectionRepo, projectRepo, redisClients.Cache)
	sessionService := services.NewSessionService(sessionRepo, projectRepo, redisClients.Cache,
		cfg.SessionTTLHours, cfg.PhaseTimeLimitSeconds)
	assistantService := services.NewAssistantService(geminiClient, chatRepo, projectRepo, jobRepo, redisClients.Cache)
	generatorService := services.NewGeneratorService(geminiClient, cfg.GeminiConcurrentReqs,
		projectRepo, sectionRepo, sectionService)

	// ──── Initialize Handlers ────
	authHandler := handlers.NewAuthHandler(authService)
	chatHandler := handlers.NewChatHandler(assistantService)
	projectHandler := handlers.NewProjectHandler(projectRepo, jobRepo)
	sectionHandler := handlers.NewSectionHandler(sectionService)
	sessionHandler := handlers.NewSessionHandler(sessionService, sectionService)
	cleanupHandler := handlers.NewCleanupHandler(sessionService, cfg.CleanupToken)

	// ──── Step 6: Start Job Worker Pool ────
	workerPool := worker.NewPool(redisClients.Cache, generatorService, jobRepo, projectRepo, cfg.GenerationWorkerCount)
	workerPool.Start()
	log.Printf("✓ Worker pool started (%d goroutines)", cfg.GenerationWorkerCount)

	// ──── Step 7: Start WebSocket Hub ────
	wsHub := websocket.NewHub(redisClients.PubSub, cfg.JWTSecret)
	log.Println("✓ WebSocket hub started")

	// ──── Step 8: Start HTTP Server ────
	r := router.New(
		jwtAuth,
		authHandler,
		chatHandler,
		projectHandler,
		sectionHandler,
		sessionHandler,
		cleanupHandler,
		wsHub,
		cfg.FrontendURL,
	)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Port),
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		log.Println("Shutting down...")
		workerPool.Stop()

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		server.Shutdown(ctx)
	}()

	log.Printf("✓ Abundance Backend ready on http://localhost:%s", cfg.Port)
	log.Printf("  API: http://localhost:%s/api/v1", cfg.Port)
	log.Printf("  WS:  ws://localhost:%s/api/v1/ws", cfg.Port)

	if err := server.ListenAndServe(); err != http.ErrServerClosed {
		log.Fatalf("Server error: %v", err)
	}
}
