package main

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/xtrntr/papertrade/internal/auth"
	"github.com/xtrntr/papertrade/internal/config"
	"github.com/xtrntr/papertrade/internal/db"
	"github.com/xtrntr/papertrade/internal/quote"
	"github.com/xtrntr/papertrade/internal/store"
	"github.com/xtrntr/papertrade/internal/trading"
)

type demoAccount struct {
	username string
	password string
	deposit  decimal.Decimal
}

var demoAccounts = []demoAccount{
	{username: "alice", password: "alice123", deposit: decimal.NewFromInt(10000)},
	{username: "bob", password: "bob123", deposit: decimal.NewFromInt(2500)},
}

// Seed the database with demo accounts
func main() {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logger, _ := zap.NewDevelopment()
	defer logger.Sync()

	database, err := db.NewDB(ctx, cfg.Database.URL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer database.Close()

	if err := database.Migrate(ctx); err != nil {
		log.Fatalf("Failed to migrate: %v", err)
	}

	authService := auth.NewAuthService(database, nil, logger)
	// seeding never trades, so no quote source is needed
	tradingService := trading.NewService(database, quote.NewRegistry(), nil, logger)

	for _, a := range demoAccounts {
		if _, err := authService.Register(ctx, a.username, a.password); err != nil {
			if errors.Is(err, store.ErrAccountExists) {
				fmt.Printf("%s already exists, skipping\n", a.username)
				continue
			}
			log.Fatalf("Failed to register %s: %v", a.username, err)
		}

		balance, err := tradingService.Deposit(ctx, a.username, a.deposit)
		if err != nil {
			log.Fatalf("Failed to deposit for %s: %v", a.username, err)
		}
		fmt.Printf("Created %s with balance %s\n", a.username, balance)
	}

	fmt.Println("Successfully seeded the database with demo accounts!")
}
