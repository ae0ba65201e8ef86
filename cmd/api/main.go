package main

import (
	"context"
	"log"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/arovia-health/arovia-api/internal/auth"
	"github.com/arovia-health/arovia-api/internal/config"
	"github.com/arovia-health/arovia-api/internal/handlers"
	"github.com/arovia-health/arovia-api/internal/middleware"
	"github.com/arovia-health/arovia-api/internal/models"
	"github.com/arovia-health/arovia-api/internal/services"
	"github.com/arovia-health/arovia-api/internal/storage"
	"github.com/arovia-health/arovia-api/internal/store"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	// --- Database Connection ---
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.MongoURI))
	if err != nil {
		log.Fatalf("Failed to connect to MongoDB: %v", err)
	}
	defer client.Disconnect(ctx)
	db := client.Database(cfg.MongoDatabase)
	log.Println("Successfully connected to MongoDB!")

	users := store.NewMongo(db)
	if err := users.EnsureIndexes(ctx); err != nil {
		log.Fatalf("Failed to create indexes: %v", err)
	}

	// --- Services ---
	tokens, err := auth.NewTokens(cfg.JWTSecret)
	if err != nil {
		log.Fatalf("Failed to initialize token service: %v", err)
	}

	files, err := storage.NewFileStore(cfg.UploadDir)
	if err != nil {
		log.Fatalf("Failed to initialize file store: %v", err)
	}

	var google services.IdentityProvider
	if cfg.GoogleEnabled() {
		google = services.NewGoogleProvider(cfg.GoogleClientID, cfg.GoogleClientSecret, cfg.GoogleRedirectURL)
		log.Println("Google OAuth is configured.")
	} else {
		log.Println("Google OAuth is NOT configured; email/password login only.")
	}

	h := handlers.NewHandler(users, tokens, files, google, cfg.ClientURL)

	// --- Gin Router ---
	r := gin.Default()

	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{cfg.ClientURL},
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		AllowCredentials: true,
	}))

	r.Static(storage.URLPrefix, files.Root())

	// --- Routes ---
	r.GET("/api/health", h.Health)

	authRoutes := r.Group("/api/auth")
	{
		authRoutes.POST("/register", h.Register)
		authRoutes.POST("/login", h.Login)
		authRoutes.GET("/google", h.GoogleLogin)
		authRoutes.GET("/google/callback", h.GoogleCallback)
	}

	userRoutes := r.Group("/api/user")
	userRoutes.Use(middleware.Auth(tokens, users))
	{
		userRoutes.GET("/profile", h.GetProfile)
		userRoutes.PUT("/profile", h.UpdateProfile)
		userRoutes.PUT("/address", h.UpdateAddress)
		userRoutes.POST("/change-password", h.ChangePassword)
		userRoutes.POST("/prescription", h.UploadPrescription)
		userRoutes.DELETE("/prescription/:id", h.DeletePrescription)
		userRoutes.DELETE("/delete-account", h.DeleteAccount)
	}

	adminRoutes := r.Group("/api/admin")
	adminRoutes.Use(middleware.Auth(tokens, users), middleware.RequireRole(models.RoleAdmin))
	{
		adminRoutes.GET("/users", h.ListUsers)
		adminRoutes.GET("/analytics", h.GetAnalytics)
		adminRoutes.PATCH("/users/:id/status", h.ToggleUserStatus)
		adminRoutes.DELETE("/users/:id", h.DeleteUser)
	}

	log.Printf("Starting server on port %s", cfg.Port)
	if err := r.Run(":" + cfg.Port); err != nil {
		log.Fatalf("Server stopped: %v", err)
	}
}
