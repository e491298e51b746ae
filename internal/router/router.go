package router

import (
	"log"

	"firebase.google.com/go/v4/auth"
	"github.com/labstack/echo/v4"
	eMiddleware "github.com/labstack/echo/v4/middleware"
	"go.mongodb.org/mongo-driver/mongo"
	"gorm.io/gorm"

	"github.com/foxncici/mincici/internal/handlers"
	"github.com/foxncici/mincici/internal/live"
	"github.com/foxncici/mincici/internal/middleware"
	"github.com/foxncici/mincici/internal/models"
	"github.com/foxncici/mincici/internal/repositories"
	"github.com/foxncici/mincici/internal/services"
	"github.com/foxncici/mincici/internal/store"
	"github.com/foxncici/mincici/pkg/config"
	"github.com/foxncici/mincici/pkg/uploader"
)

// SetupMiddleware configures global Echo middleware
func SetupMiddleware(e *echo.Echo) {
	e.Use(eMiddleware.Recover())
	e.Use(eMiddleware.CORS())
	log.Println("Global middleware configured.")
}

// SetupRoutes configures all application routes and injects dependencies.
// mgClient may be nil to run without the post archive.
func SetupRoutes(e *echo.Echo, st store.Store, pgdb *gorm.DB, mgClient *mongo.Client, firebaseAuthClient *auth.Client, cfg *config.Config) {
	// AutoMigrate PostgreSQL models
	if err := pgdb.AutoMigrate(&models.RelationshipStatus{}); err != nil {
		log.Fatalf("Failed to auto migrate models: %v", err)
	}
	log.Println("PostgreSQL auto-migrations completed for all models.")

	// Health check - always accessible
	e.GET("/health", handlers.HealthCheck)

	// --- Live view plumbing over the tree store ---
	views := live.NewManager(st)
	fanout := live.NewFanout(st)

	// --- Initialize repositories ---
	relationshipRepo := repositories.NewPostgresRelationshipRepository(pgdb)
	var archive repositories.PostArchive
	if mgClient != nil {
		archive = repositories.NewMongoPostArchive(mgClient.Database(cfg.MongoDatabase).Collection("posts"))
	}

	// --- Initialize services ---
	profileService := services.NewProfileService(st)
	postService := services.NewPostService(st, views, fanout, profileService, archive)
	commentService := services.NewCommentService(st, views, fanout)
	followService := services.NewFollowService(st, fanout, profileService)
	messageService := services.NewMessageService(st, views, profileService)
	notificationService := services.NewNotificationService(st, views)
	relationshipService := services.NewRelationshipService(relationshipRepo, services.NewStatusHub(), fanout)

	images := uploader.NewCloudinary(cfg.CloudinaryCloudName, cfg.CloudinaryUploadPreset)

	// --- Unprotected routes for authentication ---
	authGroup := e.Group("/api/v1/auth")
	authHandler := handlers.NewAuthHandler(profileService, firebaseAuthClient)
	authHandler.RegisterAuthRoutes(authGroup)
	log.Println("Auth routes configured.")

	// --- Protected routes (require JWT authentication) ---
	api := e.Group("/api/v1")
	api.Use(middleware.JWTAuthMiddleware(firebaseAuthClient))
	log.Println("JWT authentication middleware applied to /api/v1 group.")

	// User profile routes
	userHandler := handlers.NewUserHandler(profileService, images)
	userHandler.RegisterProfileRoutes(api)
	log.Println("User profile routes configured.")

	// Post routes
	postHandler := handlers.NewPostHandler(postService, profileService)
	postHandler.RegisterPostRoutes(api)
	log.Println("Post routes configured.")

	// Comment routes
	commentHandler := handlers.NewCommentHandler(commentService, profileService)
	commentHandler.RegisterCommentRoutes(api)
	log.Println("Comment routes configured.")

	// Follow routes
	followHandler := handlers.NewFollowHandler(followService, profileService)
	followHandler.RegisterFollowRoutes(api)
	log.Println("Follow routes configured.")

	// Message routes
	messageHandler := handlers.NewMessageHandler(messageService)
	messageHandler.RegisterMessageRoutes(api)
	log.Println("Message routes configured.")

	// Notification routes
	notificationHandler := handlers.NewNotificationHandler(notificationService)
	notificationHandler.RegisterNotificationRoutes(api)
	log.Println("Notification routes configured.")

	// Relationship routes
	relationshipHandler := handlers.NewRelationshipHandler(relationshipService, profileService)
	relationshipHandler.RegisterRelationshipRoutes(api)
	log.Println("Relationship routes configured.")

	log.Println("All routes configured.")
}
