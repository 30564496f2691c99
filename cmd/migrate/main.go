// Command migrate creates or updates the SQLite schema and reports what the
// database currently holds. Useful as a deploy-time check before the API
// starts taking traffic.
package main

import (
	"context"
	"flag"
	"log"
	"os"

	"github.com/yhzhou/merchant-query/internal/infra/sqlite"
)

var dbPath = flag.String("db", defaultDB(), "SQLite database path (or set MERCHANTS_DB env)")

func main() {
	flag.Parse()

	ctx := context.Background()

	// Open runs the schema migration.
	store, err := sqlite.Open(*dbPath)
	if err != nil {
		log.Fatalf("Failed to open database %s: %v", *dbPath, err)
	}
	defer store.Close()

	log.Printf("Schema is up to date: %s", *dbPath)

	stats, err := store.Stats(ctx)
	if err != nil {
		log.Fatalf("Failed to read database stats: %v", err)
	}

	log.Printf("  merchants:      %d", stats.Merchants)
	log.Printf("  ingestion runs: %d", stats.IngestionRuns)
	log.Printf("  data date:      %s", stats.DataDate)
}

func defaultDB() string {
	if v := os.Getenv("MERCHANTS_DB"); v != "" {
		return v
	}
	return "merchants.db"
}
