package firebase

import (
	"context"
	"fmt"
	"log"
	"os"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/auth"
	"firebase.google.com/go/v4/db"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
)

// databaseScopes are the OAuth scopes the Realtime Database REST streaming
// endpoint accepts.
var databaseScopes = []string{
	"https://www.googleapis.com/auth/firebase.database",
	"https://www.googleapis.com/auth/userinfo.email",
}

// App holds the initialized Firebase app and the clients built from it
type App struct {
	FirebaseApp *firebase.App
	AuthClient  *auth.Client
	DBClient    *db.Client
	DatabaseURL string
	// Tokens issues access tokens for the database streaming endpoint,
	// which sits outside the admin SDK.
	Tokens oauth2.TokenSource
}

// InitFirebase initializes the Firebase application, auth client, and
// Realtime Database client
func InitFirebase(ctx context.Context, credentialsPath, databaseURL string) (*App, error) {
	if credentialsPath == "" {
		return nil, fmt.Errorf("Firebase credentials path not provided")
	}
	if databaseURL == "" {
		return nil, fmt.Errorf("Firebase database URL not provided")
	}

	credJSON, err := os.ReadFile(credentialsPath)
	if err != nil {
		return nil, fmt.Errorf("Firebase credentials file not readable at %s: %w", credentialsPath, err)
	}

	opt := option.WithCredentialsFile(credentialsPath)
	conf := &firebase.Config{DatabaseURL: databaseURL}

	firebaseApp, err := firebase.NewApp(ctx, conf, opt)
	if err != nil {
		return nil, fmt.Errorf("error initializing firebase app: %w", err)
	}

	authClient, err := firebaseApp.Auth(ctx)
	if err != nil {
		return nil, fmt.Errorf("error getting firebase auth client: %w", err)
	}

	dbClient, err := firebaseApp.Database(ctx)
	if err != nil {
		return nil, fmt.Errorf("error getting firebase database client: %w", err)
	}

	creds, err := google.CredentialsFromJSON(ctx, credJSON, databaseScopes...)
	if err != nil {
		return nil, fmt.Errorf("error building database token source: %w", err)
	}

	log.Println("Firebase app, auth, and database clients initialized successfully!")
	return &App{
		FirebaseApp: firebaseApp,
		AuthClient:  authClient,
		DBClient:    dbClient,
		DatabaseURL: databaseURL,
		Tokens:      creds.TokenSource,
	}, nil
}
