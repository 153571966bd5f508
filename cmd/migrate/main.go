package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"

	"sentinal-safety/config"
	"sentinal-safety/internal/repository"
	"sentinal-safety/pkg/database"
)

const usage = `
Sentinal Safety - Database CLI Tool

Usage:
  migrate [command]

Commands:
  up          Create or update the trust & safety tables
  down        Drop the trust & safety tables
  status      Show database connection status and table sizes
  seed-dev    Seed rooms, messages and a report for local development
  reset       Drop the tables and re-run migrations (DANGEROUS)

Examples:
  go run ./cmd/migrate up
  go run ./cmd/migrate seed-dev
  go run ./cmd/migrate reset
`

var coreTables = []string{"chat_rooms", "chat_messages", "user_blocks", "user_suppressions", "chat_reports", "moderation_logs"}

func main() {
	flag.Usage = func() {
		fmt.Print(usage)
	}
	flag.Parse()

	if flag.NArg() < 1 {
		flag.Usage()
		os.Exit(1)
	}

	command := flag.Arg(0)

	cfg := config.LoadConfig()
	if _, err := database.Connect(cfg); err != nil {
		log.Fatalf("❌ %v", err)
	}
	defer database.Close()

	switch command {
	case "up":
		runMigrationsUp()
	case "down":
		runMigrationsDown()
	case "status":
		showStatus()
	case "seed-dev":
		runSeedDevelopment(cfg)
	case "reset":
		runMigrationsDown()
		runMigrationsUp()
	default:
		fmt.Printf("Unknown command: %s\n", command)
		flag.Usage()
		os.Exit(1)
	}
}

func runMigrationsUp() {
	log.Println("🚀 Running migrations UP...")

	if err := repository.InitSchema(database.DB); err != nil {
		log.Fatalf("❌ Migration failed: %v", err)
	}

	log.Println("✅ Migrations completed successfully!")
}

func runMigrationsDown() {
	log.Println("⬇️  Dropping tables...")

	if err := repository.DropSchema(database.DB); err != nil {
		log.Fatalf("❌ Rollback failed: %v", err)
	}

	log.Println("✅ Tables dropped")
}

func showStatus() {
	log.Println("🔍 Checking database status...")

	if err := database.HealthCheck(context.Background()); err != nil {
		log.Fatalf("❌ Database connection failed: %v", err)
	}
	log.Println("✅ Database connection: OK")

	for _, table := range coreTables {
		if !database.TableExists(table) {
			log.Printf("❌ Table %-20s does not exist", table)
			continue
		}
		count, err := database.GetTableCount(table)
		if err != nil {
			log.Printf("⚠️  Error counting table %s: %v", table, err)
			continue
		}
		log.Printf("✅ Table %-20s exists (%d rows)", table, count)
	}
}
