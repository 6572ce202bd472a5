// seed.go
// Creates console operator accounts in durable storage.
//
//	go run ./scripts -code G7 -name "Ama Owusu" -password s3cretpass
//	go run ./scripts -from-roster -password s3cretpass
//
// With -from-roster an account is created for every active guard in the upstream roster that
// does not have one yet.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"time"

	"github.com/joho/godotenv"

	"gatedesk/auth"
	"gatedesk/config"
	"gatedesk/db"
	"gatedesk/models"
	"gatedesk/upstream"
)

func main() {
	code := flag.String("code", "", "guard code of the operator")
	name := flag.String("name", "", "display name of the operator")
	password := flag.String("password", "", "initial password")
	fromRoster := flag.Bool("from-roster", false, "create accounts for every active guard in the upstream roster")
	overwrite := flag.Bool("overwrite", false, "replace existing accounts")
	flag.Parse()

	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment variables")
	}

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Printf("⚠️  Configuration warnings: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	kv, err := db.Open(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to open %s storage: %v", cfg.Storage.Backend, err)
	}
	defer kv.Close()

	operators := db.NewOperators(kv)

	log.Println("🌱 Starting operator seeding...")

	var guards []models.Guard
	switch {
	case *fromRoster:
		guards, err = upstream.NewClient(cfg.Upstream, nil).FetchAllGuards(ctx)
		if err != nil {
			log.Fatalf("Failed to fetch guard roster: %v", err)
		}
	case *code != "":
		guards = []models.Guard{{Code: *code, Name: *name, IsActive: "Y"}}
	default:
		log.Fatal("Either -code or -from-roster is required")
	}

	created, err := seedOperators(ctx, operators, guards, *password, *overwrite)
	if err != nil {
		log.Fatalf("Failed to seed operators: %v", err)
	}

	log.Printf("✅ Operator seeding completed: %d account(s) created", created)
}

func seedOperators(ctx context.Context, operators *db.Operators, guards []models.Guard, password string, overwrite bool) (int, error) {
	passwordHash, err := auth.HashPassword(password)
	if err != nil {
		return 0, fmt.Errorf("failed to hash password: %w", err)
	}

	created := 0
	for _, g := range guards {
		if !g.Active() {
			log.Printf("  - Skipped inactive guard: %s", g.Code)
			continue
		}

		_, err := operators.GetOperator(ctx, g.Code)
		switch {
		case err == nil && !overwrite:
			log.Printf("  - Skipped existing operator: %s", g.Code)
			continue
		case err != nil && !errors.Is(err, db.ErrOperatorNotFound):
			return created, fmt.Errorf("failed to look up operator %s: %w", g.Code, err)
		}

		op := &models.Operator{Code: g.Code, Name: g.Name, PasswordHash: passwordHash}
		if err := operators.SaveOperator(ctx, op); err != nil {
			return created, fmt.Errorf("failed to create operator %s: %w", g.Code, err)
		}
		created++
		log.Printf("  ✓ Created operator: %s (%s)", op.Code, op.Name)
	}

	return created, nil
}
