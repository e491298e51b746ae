package main

import (
	"context"
	"log"

	"github.com/labstack/echo/v4"

	"github.com/foxncici/mincici/internal/router"
	"github.com/foxncici/mincici/internal/store"
	"github.com/foxncici/mincici/pkg/config"
	"github.com/foxncici/mincici/pkg/firebase"
	"github.com/foxncici/mincici/validators"
)

func main() {
	// Load configuration
	cfg := config.Load()

	// Initialize database connections
	db, err := config.InitDB()
	if err != nil {
		log.Fatalf("Failed to initialize databases: %v", err)
	}
	defer db.CloseDB()

	// Initialize Firebase
	ctx := context.Background()
	firebaseApp, err := firebase.InitFirebase(ctx, cfg.FirebaseCredentialsPath, cfg.FirebaseDatabaseURL)
	if err != nil {
		log.Fatalf("Failed to initialize Firebase: %v", err)
	}

	// The tree store every live view and mutation runs against
	treeStore := store.NewFirebaseStore(firebaseApp.DBClient, firebaseApp.DatabaseURL, firebaseApp.Tokens)
	defer treeStore.Close()

	// Subscription failures surface here instead of inside snapshot
	// callbacks
	go func() {
		for err := range treeStore.Errors() {
			log.Printf("store subscription error: %v", err)
		}
	}()

	// Create Echo instance
	e := echo.New()

	// Setup global middleware
	router.SetupMiddleware(e)

	// Setup routes and dependencies
	router.SetupRoutes(e, treeStore, db.Postgres, db.Mongo, firebaseApp.AuthClient, cfg)

	// Validator
	e.Validator = validators.NewValidator()

	// Start server
	e.Logger.Fatal(e.Start(":" + cfg.Port))
}
