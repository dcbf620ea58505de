package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"time"

	"group-broadcast-gateway/internal/config"
	"group-broadcast-gateway/internal/infra/db"
	"group-broadcast-gateway/internal/infra/logging"
	"group-broadcast-gateway/internal/usecase"
)

// issuecode mints an activation code from the shell, e.g. when the admin
// account is not reachable over the chat transport.
func main() {
	cfgPath := flag.String("config", "config.yaml", "path to YAML config file")
	phone := flag.String("phone", "", "phone number to issue the code for")
	flag.Parse()

	if *phone == "" {
		log.Fatal("-phone is required")
	}

	cfg, err := config.LoadConfig(*cfgPath, true)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	logger := logging.New(cfg.Log, cfg.Runtime.Dev)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	store, err := db.Open(ctx, cfg.Database, logger)
	if err != nil {
		log.Fatalf("open store: %v", err)
	}
	defer store.Close()

	uc := usecase.NewActivationUseCase(store.Codes, store.Users, store.Tx, cfg.Entitlement.CodeTTL, logger)
	code, err := uc.Issue(ctx, *phone)
	if err != nil {
		log.Fatalf("issue code: %v", err)
	}

	fmt.Printf("phone:   %s\n", code.Phone)
	fmt.Printf("code:    %s\n", code.Code)
	fmt.Printf("expires: %s\n", code.ExpiresAt.Format(time.RFC3339))
}
