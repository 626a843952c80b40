package main

import (
	"flag"
	"fmt"
	"log"
	"strings"
	"time"

	"project-ledger-api/internal/auth"
	"project-ledger-api/internal/config"
	"project-ledger-api/internal/models"

	"github.com/google/uuid"
)

func main() {
	var (
		username   = flag.String("user", "admin", "Username")
		role       = flag.String("role", string(models.RoleAdmin), "Role: ADMIN or VIEWER")
		expiryMins = flag.Int("expiry", 1440, "Token expiry in minutes (default: 24 hours)")
		secret     = flag.String("secret", "", "JWT secret (overrides JWT_SECRET env var)")
		issuer     = flag.String("issuer", "", "JWT issuer (overrides JWT_ISS env var)")
		audience   = flag.String("audience", "", "JWT audience (overrides JWT_AUD env var)")
	)
	flag.Parse()

	if err := config.LoadDotEnv(); err != nil {
		log.Fatalf("Failed to load .env: %v", err)
	}
	cfg := config.Load()

	// Override with command line flags if provided
	if *secret != "" {
		cfg.JWTSecret = *secret
	}
	if *issuer != "" {
		cfg.JWTIssuer = *issuer
	}
	if *audience != "" {
		cfg.JWTAudience = *audience
	}

	r, ok := models.ParseRole(strings.TrimSpace(*role))
	if !ok {
		log.Fatalf("Invalid role %q", *role)
	}
	principal := models.Principal{Username: *username, Role: r}

	jwtManager := auth.NewJWTManager(cfg.JWTSecret, cfg.JWTIssuer, cfg.JWTAudience, time.Duration(*expiryMins)*time.Minute)
	if err := jwtManager.ValidateConfig(); err != nil {
		log.Fatalf("Invalid JWT configuration: %v", err)
	}

	// The token carries a fresh session id; it is valid until expiry unless revoked.
	sessionID := uuid.NewString()
	token, expiresAt, err := jwtManager.GenerateToken(principal, sessionID)
	if err != nil {
		log.Fatalf("Failed to generate token: %v", err)
	}

	fmt.Printf("JWT Token generated successfully!\n\n")
	fmt.Printf("User: %s\n", principal.Username)
	fmt.Printf("Role: %s\n", principal.Role)
	fmt.Printf("Session: %s\n", sessionID)
	fmt.Printf("Expires: %s\n", expiresAt.Format(time.RFC3339))
	fmt.Printf("Issuer: %s\n", cfg.JWTIssuer)
	fmt.Printf("Audience: %s\n", cfg.JWTAudience)
	fmt.Printf("\nToken:\n%s\n\n", token)

	fmt.Printf("Usage example:\n")
	fmt.Printf("curl -H \"Authorization: Bearer %s\" http://localhost:%s/dashboard\n", token, cfg.Port)
}
