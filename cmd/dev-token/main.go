package main

import (
	"flag"
	"fmt"
	"log"

	"github.com/google/uuid"
	"github.com/prepforge/prepforge-backend/internal/config"
	"github.com/prepforge/prepforge-backend/internal/service"
)

// dev-token signs a JWT for local development. Production tokens come from
// the identity provider; never run this against a production secret.
func main() {
	var rawUserID string
	flag.StringVar(&rawUserID, "user", "", "User UUID to embed (random if empty)")
	flag.Parse()

	cfg := config.Load()

	userID := uuid.New()
	if rawUserID != "" {
		parsed, err := uuid.Parse(rawUserID)
		if err != nil {
			log.Fatalf("Invalid user id: %v", err)
		}
		userID = parsed
	}

	authService := service.NewAuthService(cfg)
	token, err := authService.GenerateToken(userID, cfg.JWTExpiry)
	if err != nil {
		log.Fatalf("Failed to sign token: %v", err)
	}

	fmt.Printf("user_id: %s\n", userID)
	fmt.Printf("token:   %s\n", token)
}
