package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/noah-isme/consultant-content-api/internal/models"
	"github.com/noah-isme/consultant-content-api/internal/service"
	"github.com/noah-isme/consultant-content-api/pkg/config"
)

// devtoken mints bearer tokens signed with the configured JWT secret so the API can be exercised
// locally without the identity provider.
func main() {
	var (
		userID string
		role   string
		email  string
		ttl    time.Duration
	)

	flag.StringVar(&userID, "user", "", "User ID placed in the token (random when empty)")
	flag.StringVar(&role, "role", string(models.RoleStudent), "Role: student, consultant, recruiter or admin")
	flag.StringVar(&email, "email", "", "Optional email claim")
	flag.DurationVar(&ttl, "ttl", 0, "Token lifetime (defaults to JWT_EXPIRATION)")
	flag.Parse()

	userRole := models.UserRole(role)
	if !userRole.Valid() {
		log.Fatalf("unknown role %q", role)
	}
	if userID == "" {
		userID = uuid.NewString()
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	expiry := cfg.JWT.Expiration
	if ttl > 0 {
		expiry = ttl
	}

	tokens := service.NewTokenService(service.TokenConfig{
		Secret:   cfg.JWT.Secret,
		Issuer:   cfg.JWT.Issuer,
		Audience: cfg.JWT.Audience,
		Expiry:   expiry,
	})
	token, expiresAt, err := tokens.Issue(userID, userRole, email)
	if err != nil {
		log.Fatalf("failed to issue token: %v", err)
	}

	fmt.Fprintf(os.Stderr, "user=%s role=%s expires=%s\n", userID, userRole, expiresAt.Format(time.RFC3339))
	fmt.Println(token)
}
