package main

import (
	"flag"
	"fmt"
	"log"
	"time"

	"autovitrine/precos/internal/common"
	"autovitrine/precos/internal/config"
)

// Mints a bearer token for the /api/admin/fipe endpoints, signed with
// ADMIN_JWT_SECRET.
func main() {
	subject := flag.String("sub", "", "who the token is issued to")
	ttl := flag.Duration("ttl", 24*time.Hour, "token lifetime")
	flag.Parse()

	if *subject == "" {
		log.Fatal("-sub is required")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	if cfg.Admin.JWTSecret == "" {
		log.Fatal("ADMIN_JWT_SECRET is not set")
	}

	token, err := common.NewTokenSigner([]byte(cfg.Admin.JWTSecret)).Issue(*subject, common.RoleAdmin, *ttl)
	if err != nil {
		log.Fatalf("issue token: %v", err)
	}

	fmt.Println(token)
}
