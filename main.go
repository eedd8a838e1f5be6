package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"event-reward-system/handlers"
	"event-reward-system/middleware"
	"event-reward-system/models"
	"event-reward-system/services"
	"event-reward-system/workers"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/joho/godotenv"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("⚠️  No .env file found, reading environment variables directly")
	}

	app := fiber.New(fiber.Config{})

	allowedOrigins := os.Getenv("ALLOWED_ORIGINS")
	if allowedOrigins == "" {
		log.Println("⚠️  ALLOWED_ORIGINS not set, using default: http://localhost:3000")
		allowedOrigins = "http://localhost:3000"
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins:     allowedOrigins,
		AllowMethods:     "GET,POST,PUT,DELETE,OPTIONS,PATCH",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, X-Requested-With",
		AllowCredentials: true,
		MaxAge:           86400,
	}))

	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		log.Fatal("DATABASE_URL environment variable not set")
	}
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{TranslateError: true})
	if err != nil {
		log.Fatal("failed to connect to database:", err)
	}

	if err := models.AutoMigrate(db); err != nil {
		log.Fatal("failed to migrate database:", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	blockchainService, err := services.NewBlockchainService(ctx)
	if err != nil {
		log.Fatal("failed to initialize blockchain service:", err)
	}
	defer blockchainService.Close()

	authService := services.NewAuthService(db, services.NewGoogleTokenVerifier())
	claimService := services.NewClaimService(db, blockchainService)
	eventService := services.NewEventService(db)
	participantService := services.NewParticipantService(db, claimService, services.NewWorldIDService())

	staleAfter := 10 * time.Minute
	if v := os.Getenv("CLAIM_STALE_AFTER"); v != "" {
		parsed, err := time.ParseDuration(v)
		if err != nil {
			log.Fatal("invalid CLAIM_STALE_AFTER:", err)
		}
		staleAfter = parsed
	}
	reconciler := workers.NewClaimReconciler(db, staleAfter)
	sched, err := reconciler.Start()
	if err != nil {
		log.Fatal("failed to start claim reconciler:", err)
	}
	defer func() { _ = sched.Shutdown() }()

	auth := middleware.ParticipantAuthMiddleware(db, authService.JWTKey)
	limiter := middleware.NewSlidingWindowLimiter()

	handlers.SetupAuthRoutes(app, authService)
	handlers.SetupEventRoutes(app, eventService, auth)
	handlers.SetupParticipantRoutes(app, participantService, auth, limiter)

	port := os.Getenv("PORT")
	if port == "" {
		port = "8000"
	}

	go func() {
		if err := app.Listen(":" + port); err != nil {
			log.Printf("Server error: %v", err)
		}
	}()

	log.Printf("✅ Server running on http://localhost:%s", port)
	log.Println("✅ Claim reconciler running (every 1m, stale after " + staleAfter.String() + ")")
	log.Printf("✅ CORS configured for origins: %s", strings.TrimSpace(allowedOrigins))

	<-ctx.Done()
	log.Println("Shutting down server...")
	if err := app.Shutdown(); err != nil {
		log.Printf("Shutdown error: %v", err)
	}
}
